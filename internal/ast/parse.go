// Package ast provides the typed-AST front end (spec.md §4.1–4.2, C1/C2):
// type predicates over framework objects and the handful of tree shapes the
// extractor needs to locate (the task-graph object, invocation calls, loop
// bodies). It wraps github.com/tree-sitter/go-tree-sitter with the
// tree-sitter-cpp grammar, restricting the accepted input to the C++ subset
// that grammar parses (SPEC_FULL.md §3).
package ast

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
)

// Node wraps a tree-sitter node together with the source buffer it was
// parsed from, since tree-sitter nodes carry only byte ranges and need the
// original bytes to render text.
type Node struct {
	n      *tree_sitter.Node
	Source []byte
}

// Unit is a parsed translation unit: the root node plus the source bytes
// and the live tree-sitter tree (kept alive so node pointers stay valid).
type Unit struct {
	tree   *tree_sitter.Tree
	Source []byte
}

// Parse parses src as the C++ subset the tree-sitter-cpp grammar accepts.
// The framework's embedded API (tapa::task, tapa::stream, tapa::mmap, ...)
// is ordinary C++ syntax as far as the grammar is concerned; C1/C2 resolve
// the framework-specific meaning on top of the generic parse tree.
func Parse(src []byte) (*Unit, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	lang := tree_sitter.NewLanguage(tree_sitter_cpp.Language())
	if err := parser.SetLanguage(lang); err != nil {
		return nil, err
	}
	tree := parser.Parse(src, nil)
	return &Unit{tree: tree, Source: src}, nil
}

// Close releases the underlying tree-sitter tree.
func (u *Unit) Close() {
	if u.tree != nil {
		u.tree.Close()
	}
}

// Root returns the translation unit's root node.
func (u *Unit) Root() Node {
	return Node{n: u.tree.RootNode(), Source: u.Source}
}

// Valid reports whether the wrapped node is non-nil.
func (n Node) Valid() bool { return n.n != nil }

// Kind returns the tree-sitter grammar node type, e.g. "function_definition",
// "call_expression", "declaration".
func (n Node) Kind() string {
	if n.n == nil {
		return ""
	}
	return n.n.Kind()
}

// Text returns the node's source text.
func (n Node) Text() string {
	if n.n == nil {
		return ""
	}
	return n.n.Utf8Text(n.Source)
}

// StartByte and EndByte give the node's half-open byte range in Source.
func (n Node) StartByte() uint32 {
	if n.n == nil {
		return 0
	}
	return uint32(n.n.StartByte())
}

func (n Node) EndByte() uint32 {
	if n.n == nil {
		return 0
	}
	return uint32(n.n.EndByte())
}

// Line and Column give the 1-based start position, for diagnostics.
func (n Node) Line() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPosition().Row) + 1
}

func (n Node) Column() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.StartPosition().Column) + 1
}

// ChildCount and Child give raw (named+anonymous) children.
func (n Node) ChildCount() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.ChildCount())
}

func (n Node) Child(i int) Node {
	if n.n == nil {
		return Node{}
	}
	return Node{n: n.n.Child(uint(i)), Source: n.Source}
}

// NamedChildCount and NamedChild skip anonymous tokens (punctuation,
// keywords), which is what C2's structural probes walk over.
func (n Node) NamedChildCount() int {
	if n.n == nil {
		return 0
	}
	return int(n.n.NamedChildCount())
}

func (n Node) NamedChild(i int) Node {
	if n.n == nil {
		return Node{}
	}
	return Node{n: n.n.NamedChild(uint(i)), Source: n.Source}
}

// Field returns the child bound to the given grammar field name (e.g.
// "declarator", "body", "arguments"), or the zero Node if absent.
func (n Node) Field(name string) Node {
	if n.n == nil {
		return Node{}
	}
	return Node{n: n.n.ChildByFieldName(name), Source: n.Source}
}

// Walk calls visit for n and every descendant, depth-first, pre-order.
// visit returning false skips that subtree's children.
func Walk(n Node, visit func(Node) bool) {
	if !n.Valid() {
		return
	}
	if !visit(n) {
		return
	}
	for i := 0; i < n.ChildCount(); i++ {
		Walk(n.Child(i), visit)
	}
}
