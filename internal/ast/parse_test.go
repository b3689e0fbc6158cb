package ast

import "testing"

func TestParseRoot(t *testing.T) {
	unit, err := Parse([]byte("void top() {}\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer unit.Close()

	root := unit.Root()
	if !root.Valid() {
		t.Fatal("Root() returned an invalid node")
	}
	if root.Kind() != "translation_unit" {
		t.Errorf("Root().Kind() = %q, want %q", root.Kind(), "translation_unit")
	}
	if root.NamedChildCount() != 1 {
		t.Fatalf("NamedChildCount() = %d, want 1", root.NamedChildCount())
	}
	fn := root.NamedChild(0)
	if fn.Kind() != "function_definition" {
		t.Errorf("top-level child Kind() = %q, want %q", fn.Kind(), "function_definition")
	}
}

func TestNodeZeroValue(t *testing.T) {
	var n Node
	if n.Valid() {
		t.Error("zero Node reports Valid()")
	}
	if n.Kind() != "" || n.Text() != "" {
		t.Error("zero Node should have empty Kind/Text")
	}
	if n.StartByte() != 0 || n.EndByte() != 0 {
		t.Error("zero Node should have zero byte range")
	}
	if n.Field("type").Valid() {
		t.Error("zero Node.Field() should return an invalid Node")
	}
}

func TestWalkVisitsEveryDescendant(t *testing.T) {
	unit, err := Parse([]byte("void f(int a, int b) { int c = a + b; }\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer unit.Close()

	count := 0
	Walk(unit.Root(), func(Node) bool {
		count++
		return true
	})
	if count < 5 {
		t.Errorf("Walk visited %d nodes, expected a nontrivial tree", count)
	}
}

func TestWalkStopsDescendingWhenVisitReturnsFalse(t *testing.T) {
	unit, err := Parse([]byte("void f() { int a = 1 + 2; }\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer unit.Close()

	seenBinary := false
	Walk(unit.Root(), func(n Node) bool {
		if n.Kind() == "compound_statement" {
			return false
		}
		if n.Kind() == "binary_expression" {
			seenBinary = true
		}
		return true
	})
	if seenBinary {
		t.Error("Walk descended past a node whose visit returned false")
	}
}
