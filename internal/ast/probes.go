package ast

import "strings"

// FindTaskGraphObject returns the first child expression of a function
// body whose declared type is the framework's task-graph object
// ("tapa::task"), i.e. the `tapa::task()` local in an upper-level task
// (spec.md §4.2, §3 "Upper-level task"). The zero Node is returned if
// none is found, meaning the enclosing function is not upper-level.
func FindTaskGraphObject(body Node) Node {
	for i := 0; i < body.NamedChildCount(); i++ {
		stmt := body.NamedChild(i)
		if stmt.Kind() != "declaration" {
			continue
		}
		typ := stmt.Field("type")
		if typ.Valid() && IsFrameworkType(typ, "task") {
			return stmt
		}
	}
	return Node{}
}

// Invocation is a single `.invoke(...)` call site found by FindInvocations,
// together with its argument list for C4 to classify.
type Invocation struct {
	Call Node // the whole call_expression
	Args Node // the argument_list node
}

// FindInvocations walks root (typically an upper-level task's function
// body) collecting every call whose method name is "invoke". The
// receiver's type is not checked: any `x.invoke(...)` call under root is
// returned, whether or not x is the task-graph object.
func FindInvocations(root Node) []Invocation {
	var out []Invocation
	Walk(root, func(n Node) bool {
		if n.Kind() != "call_expression" {
			return true
		}
		fn := n.Field("function")
		if !fn.Valid() {
			return true
		}
		if methodName(fn) != "invoke" {
			return true
		}
		out = append(out, Invocation{Call: n, Args: n.Field("arguments")})
		return false // don't descend into the call's own subexpressions
	})
	return out
}

// methodName extracts the method identifier from a call's function
// expression, whether or not it carries explicit template arguments
// (`task_graph.invoke<2, 4>(...)` parses its function as a
// field_expression wrapping a template_method in the cpp grammar).
func methodName(fn Node) string {
	text := fn.Text()
	// Strip a trailing template-argument list, if any.
	if idx := strings.IndexByte(text, '<'); idx >= 0 {
		// only strip if this looks like <...> and not a comparison;
		// field_expression text for a templated method call always has
		// the form `receiver.method<args>` or `receiver->method<args>`.
		depth := 0
		closed := false
		for i := idx; i < len(text); i++ {
			switch text[i] {
			case '<':
				depth++
			case '>':
				depth--
				if depth == 0 {
					closed = true
				}
			}
			if closed {
				break
			}
		}
		if closed {
			text = text[:idx]
		}
	}
	if i := strings.LastIndex(text, "."); i >= 0 {
		return text[i+1:]
	}
	if i := strings.LastIndex(text, "->"); i >= 0 {
		return text[i+2:]
	}
	return text
}

// loopKinds is the closed set of grammar node kinds LoopBody recognizes,
// per spec.md §4.2 ("do/for/while/ranged-for").
var loopKinds = map[string]bool{
	"for_statement":    true,
	"while_statement":  true,
	"do_statement":     true,
	"for_range_loop":   true, // range-based for (`for (auto& x : xs)`)
}

// LoopBody returns the body of a do/for/while/ranged-for statement, or the
// zero Node if stmt is not a loop.
func LoopBody(stmt Node) Node {
	if !loopKinds[stmt.Kind()] {
		return Node{}
	}
	return stmt.Field("body")
}

// CallArgs returns the positional argument expression nodes of an
// argument_list node, skipping punctuation.
func CallArgs(args Node) []Node {
	var out []Node
	for i := 0; i < args.NamedChildCount(); i++ {
		out = append(out, args.NamedChild(i))
	}
	return out
}

// FunctionDefinitions returns every function_definition node directly
// under a translation unit root, the first pass of C7's source rewriter
// driver (spec.md §4.7: "collects all global function definitions").
func FunctionDefinitions(root Node) []Node {
	var out []Node
	for i := 0; i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child.Kind() == "function_definition" {
			out = append(out, child)
		}
		// template<...> function definitions wrap the definition as a
		// template_declaration's named child.
		if child.Kind() == "template_declaration" {
			for j := 0; j < child.NamedChildCount(); j++ {
				gc := child.NamedChild(j)
				if gc.Kind() == "function_definition" {
					out = append(out, gc)
				}
			}
		}
	}
	return out
}

// PrecedingNamedSibling returns the named child of root that immediately
// precedes target among root's named children (by start offset), or the
// zero Node if target is root's first child or not found. Used to locate
// a leading `[[tapa::target("...")]]` attribute_declaration next to the
// function_definition it annotates, since tree-sitter-cpp attaches GNU/
// C++11 attributes as a preceding sibling rather than a child.
func PrecedingNamedSibling(root, target Node) Node {
	prev := Node{}
	for i := 0; i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		if child.StartByte() == target.StartByte() && child.EndByte() == target.EndByte() {
			return prev
		}
		prev = child
	}
	return Node{}
}

// FunctionDeclarator unwraps a function_definition's declarator field
// through any pointer/reference wrapper to the function_declarator that
// carries its parameter list.
func FunctionDeclarator(fn Node) Node {
	d := fn.Field("declarator")
	for d.Valid() && d.Kind() != "function_declarator" {
		inner := d.Field("declarator")
		if !inner.Valid() {
			return Node{}
		}
		d = inner
	}
	return d
}

// FunctionName returns the identifier name of a function_definition node
// (stripping reference/pointer declarators and parameter lists).
func FunctionName(fn Node) string {
	decl := fn.Field("declarator")
	for decl.Valid() && decl.Kind() == "function_declarator" {
		inner := decl.Field("declarator")
		if !inner.Valid() {
			break
		}
		if inner.Kind() == "identifier" || inner.Kind() == "qualified_identifier" ||
			inner.Kind() == "field_identifier" {
			return inner.Text()
		}
		decl = inner
	}
	if decl.Valid() {
		return decl.Text()
	}
	return ""
}
