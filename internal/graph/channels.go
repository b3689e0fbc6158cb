package graph

import (
	"fmt"

	"tapac/internal/ast"
	"tapac/internal/diagnostics"
)

// extractFifos walks the direct child statements of an upper-level task's
// body and records each declared tapa::stream/streams local as one or
// more Fifo entries (spec.md §4.4: "Walk each direct child statement...;
// if it declares a framework stream, record its name and depth. For
// streams of length N, emit N named FIFOs name[0]..name[N-1].").
func extractFifos(body ast.Node, t *Task, diag *diagnostics.Collector) {
	for i := 0; i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() != "declaration" {
			continue
		}
		typ := stmt.Field("type")
		if !typ.Valid() {
			continue
		}
		switch {
		case ast.IsFrameworkType(typ, "stream"):
			addFifo(t, stmt, typ, declaredName(stmt), false, diag)
		case ast.IsFrameworkType(typ, "streams"):
			addFifo(t, stmt, typ, declaredName(stmt), true, diag)
		}
	}
}

// declaredName extracts the variable name out of a `tapa::stream<T,D> s;`
// declaration's init_declarator/identifier declarator.
func declaredName(decl ast.Node) string {
	d := decl.Field("declarator")
	for d.Valid() {
		switch d.Kind() {
		case "identifier":
			return d.Text()
		case "init_declarator":
			d = d.Field("declarator")
		default:
			return d.Text()
		}
	}
	return ""
}

func addFifo(t *Task, declNode, typ ast.Node, name string, array bool, diag *diagnostics.Collector) {
	elem := ast.ElementType(typ)
	if array {
		n, ok := ast.ArraySize(typ)
		if !ok {
			n = 1
		}
		depth, ok := ast.IntegralArg(typ, 2)
		if !ok {
			diag.Errorf(nodeRange(declNode), t.Name, "non-constant-evaluable depth for streams %q", name)
			depth = 2
		}
		for i := int64(0); i < n; i++ {
			fname := fmt.Sprintf("%s[%d]", name, i)
			t.Fifos[fname] = &Fifo{Name: fname, ElementType: elem, Depth: depth, Range: nodeRange(declNode)}
		}
		return
	}
	depth, ok := ast.IntegralArg(typ, 1)
	if !ok {
		diag.Errorf(nodeRange(declNode), t.Name, "non-constant-evaluable depth for stream %q", name)
		depth = 2
	}
	t.Fifos[name] = &Fifo{Name: name, ElementType: elem, Depth: depth, Range: nodeRange(declNode)}
}
