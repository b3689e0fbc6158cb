package graph

import (
	"fmt"

	"tapac/internal/ast"
)

// extractPorts walks a task's parameter list and emits one Port per
// parameter, expanding mmaps<T,N>/hmap<T,N,S> parameters into N named
// ports "name[0]".."name[N-1]" (spec.md §4.4).
func extractPorts(decl ast.Node) []Port {
	declarator := functionDeclarator(decl.Field("declarator"))
	if !declarator.Valid() {
		return nil
	}
	paramList := declarator.Field("parameters")
	var ports []Port
	for i := 0; i < paramList.NamedChildCount(); i++ {
		param := paramList.NamedChild(i)
		if param.Kind() != "parameter_declaration" {
			continue
		}
		ports = append(ports, portsFromParam(param)...)
	}
	return ports
}

// functionDeclarator unwraps reference/pointer declarators to the
// function_declarator that actually carries the parameter list.
func functionDeclarator(d ast.Node) ast.Node {
	for d.Valid() && d.Kind() != "function_declarator" {
		inner := d.Field("declarator")
		if !inner.Valid() {
			return ast.Node{}
		}
		d = inner
	}
	return d
}

func paramName(param ast.Node) string {
	d := param.Field("declarator")
	for d.Valid() {
		switch d.Kind() {
		case "identifier":
			return d.Text()
		case "reference_declarator", "pointer_declarator", "array_declarator":
			d = d.Field("declarator")
		default:
			return d.Text()
		}
	}
	return ""
}

// Param is one *declared* parameter of a task, unexpanded — unlike Port,
// an mmaps<T,N> parameter is one Param (ArrayLen==N) but N Ports. C4's
// invocation-argument binding works in terms of Param (spec.md §4.4: "The
// parameter is obtained by name from the callee"); the JSON graph's
// `ports` field is expressed in terms of the expanded Port list.
type Param struct {
	Name        string
	Cat         ast.Category
	ArrayLen    int64 // 1 for scalar/non-array categories
	ElementType string
}

// extractParams returns decl's declared parameters in their unexpanded,
// one-per-source-parameter form.
func extractParams(decl ast.Node) []Param {
	declarator := functionDeclarator(decl.Field("declarator"))
	if !declarator.Valid() {
		return nil
	}
	paramList := declarator.Field("parameters")
	var params []Param
	for i := 0; i < paramList.NamedChildCount(); i++ {
		p := paramList.NamedChild(i)
		if p.Kind() != "parameter_declaration" {
			continue
		}
		params = append(params, paramFrom(p))
	}
	return params
}

func paramFrom(param ast.Node) Param {
	typ := param.Field("type")
	name := paramName(param)
	cat := ast.CategoryOf(typ)
	if cat == ast.CategoryUnknown {
		if ast.IsFrameworkType(typ, "seq") {
			cat = ast.CategorySeq
		} else {
			cat = ast.CategoryScalar
		}
	}
	elem := ast.ElementType(typ)
	arrayLen := int64(1)
	switch cat {
	case ast.CategoryMmaps, ast.CategoryHmap, ast.CategoryIStreams, ast.CategoryOStreams:
		if n, ok := ast.ArraySize(typ); ok {
			arrayLen = n
		}
	}
	if cat == ast.CategoryScalar {
		elem = typ.Text()
	}
	return Param{Name: name, Cat: cat, ArrayLen: arrayLen, ElementType: elem}
}

func portsFromParam(param ast.Node) []Port {
	typ := param.Field("type")
	name := paramName(param)
	cat := ast.CategoryOf(typ)

	switch cat {
	case ast.CategoryUnknown:
		if ast.IsFrameworkType(typ, "seq") {
			cat = ast.CategorySeq
		} else {
			cat = ast.CategoryScalar
		}
	}

	switch cat {
	case ast.CategoryMmaps, ast.CategoryHmap:
		n, ok := ast.ArraySize(typ)
		if !ok {
			n = 1
		}
		elem := ast.ElementType(typ)
		width := ast.BitWidth(elem)
		out := make([]Port, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, Port{
				Name:  fmt.Sprintf("%s[%d]", name, i),
				Cat:   cat,
				Width: width,
				Type:  elem,
			})
		}
		return out
	case ast.CategoryIStreams, ast.CategoryOStreams:
		n, ok := ast.ArraySize(typ)
		if !ok {
			n = 1
		}
		elem := ast.ElementType(typ)
		width := ast.BitWidth(elem)
		out := make([]Port, 0, n)
		for i := int64(0); i < n; i++ {
			out = append(out, Port{
				Name:  fmt.Sprintf("%s[%d]", name, i),
				Cat:   cat,
				Width: width,
				Type:  elem,
			})
		}
		return out
	case ast.CategoryIStream, ast.CategoryOStream, ast.CategoryMmap, ast.CategoryAsyncMmap:
		elem := ast.ElementType(typ)
		return []Port{{Name: name, Cat: cat, Width: ast.BitWidth(elem), Type: elem}}
	case ast.CategorySeq:
		return []Port{{Name: name, Cat: cat, Width: 64, Type: "uint64_t"}}
	default: // scalar
		typeText := typ.Text()
		return []Port{{Name: name, Cat: ast.CategoryScalar, Width: ast.BitWidth(typeText), Type: typeText}}
	}
}
