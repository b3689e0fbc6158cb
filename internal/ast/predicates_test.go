package ast

import "testing"

func declType(t *testing.T, src string) Node {
	t.Helper()
	unit, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	t.Cleanup(unit.Close)

	var typ Node
	Walk(unit.Root(), func(n Node) bool {
		if n.Kind() == "declaration" {
			if f := n.Field("type"); f.Valid() {
				typ = f
				return false
			}
		}
		return true
	})
	if !typ.Valid() {
		t.Fatalf("no declaration type found in %q", src)
	}
	return typ
}

func TestIsFrameworkType(t *testing.T) {
	tests := []struct {
		src     string
		pattern string
		want    bool
	}{
		{"void f() { tapa::mmap<int> a; }", "mmap", true},
		{"void f() { tapa::mmap<int> a; }", "stream", false},
		{"void f() { tapa::istream<int> a; }", "i?stream", true},
		{"void f() { tapa::ostream<int> a; }", "i?stream", true},
		{"void f() { tapa::streams<int,4,8> a; }", "streams", true},
	}
	for _, tt := range tests {
		got := IsFrameworkType(declType(t, tt.src), tt.pattern)
		if got != tt.want {
			t.Errorf("IsFrameworkType(%q, %q) = %v, want %v", tt.src, tt.pattern, got, tt.want)
		}
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		src  string
		want Category
	}{
		{"void f() { tapa::istream<int> a; }", CategoryIStream},
		{"void f() { tapa::ostream<int> a; }", CategoryOStream},
		{"void f() { tapa::mmap<int> a; }", CategoryMmap},
		{"void f() { tapa::mmaps<int,4> a; }", CategoryMmaps},
		{"void f() { tapa::hmap<int,4,2> a; }", CategoryHmap},
	}
	for _, tt := range tests {
		got := CategoryOf(declType(t, tt.src))
		if got != tt.want {
			t.Errorf("CategoryOf(%q) = %v, want %v", tt.src, got, tt.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	if got := CategoryIStream.String(); got != "istream" {
		t.Errorf("CategoryIStream.String() = %q, want %q", got, "istream")
	}
	if got := CategoryUnknown.String(); got != "unknown" {
		t.Errorf("CategoryUnknown.String() = %q, want %q", got, "unknown")
	}
}

func TestElementType(t *testing.T) {
	typ := declType(t, "void f() { tapa::stream<int, 8> s; }")
	if got := ElementType(typ); got != "int" {
		t.Errorf("ElementType() = %q, want %q", got, "int")
	}
}

func TestIntegralArgAndArraySize(t *testing.T) {
	typ := declType(t, "void f() { tapa::streams<int, 4, 8> s; }")
	if n, ok := IntegralArg(typ, 1); !ok || n != 4 {
		t.Errorf("IntegralArg(1) = (%d, %v), want (4, true)", n, ok)
	}
	if n, ok := IntegralArg(typ, 2); !ok || n != 8 {
		t.Errorf("IntegralArg(2) = (%d, %v), want (8, true)", n, ok)
	}
	if n, ok := ArraySize(typ); !ok || n != 4 {
		t.Errorf("ArraySize() = (%d, %v), want (4, true)", n, ok)
	}
}

func TestIntegralArgNonConstant(t *testing.T) {
	typ := declType(t, "void f() { tapa::stream<int, N> s; }")
	if _, ok := IntegralArg(typ, 1); ok {
		t.Error("IntegralArg() should report ok=false for a non-constant-evaluable argument")
	}
}

func TestIsPrimitiveScalar(t *testing.T) {
	for _, name := range []string{"int", "float", "double", "uint32_t", "bool"} {
		if !IsPrimitiveScalar(name) {
			t.Errorf("IsPrimitiveScalar(%q) = false, want true", name)
		}
	}
	if IsPrimitiveScalar("MyStruct") {
		t.Error("IsPrimitiveScalar(\"MyStruct\") = true, want false")
	}
}

func TestBitWidth(t *testing.T) {
	tests := []struct {
		typ  string
		want int
	}{
		{"bool", 1},
		{"char", 8},
		{"short", 16},
		{"int", 32},
		{"uint32_t", 32},
		{"double", 64},
		{"ap_int<24>", 24},
		{"ap_uint<9>", 9},
	}
	for _, tt := range tests {
		if got := BitWidth(tt.typ); got != tt.want {
			t.Errorf("BitWidth(%q) = %d, want %d", tt.typ, got, tt.want)
		}
	}
}
