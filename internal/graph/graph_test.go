package graph

import (
	"encoding/json"
	"testing"

	"tapac/internal/ast"
)

func TestToJSONRoundTrip(t *testing.T) {
	tasks := []*Task{
		{
			Name:         "top",
			ReadableName: "top",
			Level:        LevelUpper,
			Target:       TargetVendorHLS,
			Ports:        []Port{{Name: "in", Cat: ast.CategoryIStream, Width: 32, Type: "tapa::istream<int>&"}},
			Fifos: map[string]*Fifo{
				"s": {
					ElementType: "int",
					Depth:       8,
					ProducedBy:  &Binding{Task: "a", Index: 0},
					ConsumedBy:  &Binding{Task: "b", Index: 0},
				},
			},
			Children: map[string][]*Invocation{
				"child": {{Step: 0, VectorLen: 1, Args: map[string]ArgBinding{"in": {Cat: ast.CategoryIStream, Arg: "in"}}}},
			},
			Code: "void top() {}",
		},
	}

	g := ToJSON("top", tasks)
	if g.Top != "top" {
		t.Errorf("ToJSON().Top = %q, want %q", g.Top, "top")
	}
	tj, ok := g.Tasks["top"]
	if !ok {
		t.Fatal("ToJSON().Tasks has no entry for \"top\"")
	}
	if tj.Level != "upper" {
		t.Errorf("TaskJSON.Level = %q, want %q", tj.Level, "upper")
	}
	if len(tj.Ports) != 1 || tj.Ports[0].Cat != "istream" {
		t.Errorf("TaskJSON.Ports = %+v, want one istream port", tj.Ports)
	}
	if tj.Vendor != "xilinx" {
		t.Errorf("TaskJSON.Vendor = %q, want %q", tj.Vendor, "xilinx")
	}
	fifo, ok := tj.Fifos["s"]
	if !ok {
		t.Fatal("TaskJSON.Fifos has no entry for \"s\"")
	}
	if fifo.ProducedBy != "a@0" || fifo.ConsumedBy != "b@0" {
		t.Errorf("FifoJSON bindings = %q/%q, want %q/%q", fifo.ProducedBy, fifo.ConsumedBy, "a@0", "b@0")
	}
	invs, ok := tj.Tasks["child"]
	if !ok || len(invs) != 1 {
		t.Fatal("TaskJSON.Tasks has no single-entry \"child\" invocation list")
	}
	binding, ok := invs[0].Args["in"]
	if !ok {
		t.Fatal("InvocationJSON.Args has no entry for \"in\"")
	}
	if binding.Cat != "istream" || binding.Arg != "in" {
		t.Errorf("ArgBindingJSON = %+v, want {Cat: istream, Arg: in}", binding)
	}

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var round Graph
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if round.Top != "top" {
		t.Errorf("round-tripped Top = %q, want %q", round.Top, "top")
	}
}

func TestTaskKeyIncludesInvokingParent(t *testing.T) {
	t1 := &Task{Name: "f<2>", InvokingParent: "top"}
	t2 := &Task{Name: "f<2>", InvokingParent: "middle"}
	if t1.Key() == t2.Key() {
		t.Errorf("Task.Key() ignored InvokingParent: both got %q", t1.Key())
	}
	if t1.Key() != "f<2>@top" {
		t.Errorf("Task.Key() = %q, want %q", t1.Key(), "f<2>@top")
	}
}

func TestParseTargetTagDefaultsToHLS(t *testing.T) {
	tests := []struct {
		in   string
		want TargetTag
	}{
		{"", TargetVendorHLS},
		{"xilinx-hls", TargetVendorHLS},
		{"xilinx-aie", TargetVendorAIE},
		{"aie", TargetVendorAIE},
		{"ignore", TargetIgnore},
		{"bogus", TargetVendorHLS},
	}
	for _, tt := range tests {
		if got := ParseTargetTag(tt.in); got != tt.want {
			t.Errorf("ParseTargetTag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestVendorNameIsXilinxForEveryBoundBackend(t *testing.T) {
	tests := []struct {
		tag  TargetTag
		want string
	}{
		{TargetVendorHLS, "xilinx"},
		{TargetVendorAIE, "xilinx"},
		{TargetIgnore, ""},
	}
	for _, tt := range tests {
		if got := vendorName(tt.tag); got != tt.want {
			t.Errorf("vendorName(%v) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
