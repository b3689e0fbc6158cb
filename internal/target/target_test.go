package target

import (
	"strings"
	"testing"

	"tapac/internal/ast"
	"tapac/internal/graph"
)

func TestForTagSelectsConcreteTarget(t *testing.T) {
	tests := []struct {
		tag  graph.TargetTag
		want string
	}{
		{graph.TargetVendorHLS, "xilinx-hls"},
		{graph.TargetVendorAIE, "xilinx-aie"},
		{graph.TargetIgnore, "ignore"},
	}
	for _, tt := range tests {
		if got := ForTag(tt.tag).Name(); got != tt.want {
			t.Errorf("ForTag(%v).Name() = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestPortLevelOf(t *testing.T) {
	tests := []struct {
		level   graph.Level
		name    string
		top     string
		want    PortLevel
	}{
		{graph.LevelUpper, "top", "top", LevelTop},
		{graph.LevelUpper, "middle", "top", LevelMiddle},
		{graph.LevelLower, "leaf", "top", LevelLower},
		{graph.LevelOther, "unreached", "top", LevelOther},
	}
	for _, tt := range tests {
		task := &graph.Task{Name: tt.name, Level: tt.level}
		if got := PortLevelOf(task, tt.top); got != tt.want {
			t.Errorf("PortLevelOf(Level=%v, Name=%q, top=%q) = %v, want %v", tt.level, tt.name, tt.top, got, tt.want)
		}
	}
}

func TestHLSTargetRewriteArg(t *testing.T) {
	hls := &HLSTarget{}
	mmap := graph.Port{Name: "a", Cat: ast.CategoryMmap, Type: "tapa::mmap<int>"}
	args := hls.RewriteArg(LevelLower, mmap)
	if len(args) != 2 {
		t.Fatalf("RewriteArg(mmap) = %v, want 2 parameters (address + offset)", args)
	}
	if !strings.Contains(args[0], "uint64_t a") || !strings.Contains(args[1], "a_offset") {
		t.Errorf("RewriteArg(mmap) = %v, want uint64_t address/offset pair", args)
	}

	stream := graph.Port{Name: "in", Cat: ast.CategoryIStream, Width: 32}
	streamArgs := hls.RewriteArg(LevelLower, stream)
	if len(streamArgs) != 1 || !strings.Contains(streamArgs[0], "qdma_axis<32") {
		t.Errorf("RewriteArg(istream) = %v, want a qdma_axis<32,...> wrapper", streamArgs)
	}
}

func TestHLSTargetTopHookEmitsSAxilite(t *testing.T) {
	hls := &HLSTarget{}
	scalar := graph.Port{Name: "n", Cat: ast.CategoryScalar}
	lines := hls.CategoryHook(LevelTop, scalar)
	if len(lines) != 1 || !strings.Contains(lines[0], "s_axilite") {
		t.Errorf("CategoryHook(top, scalar) = %v, want a single s_axilite pragma", lines)
	}
}

func TestHLSTargetLowerHookForcesPortAccess(t *testing.T) {
	hls := &HLSTarget{}
	istream := graph.Port{Name: "in", Cat: ast.CategoryIStream}
	lines := hls.CategoryHook(LevelLower, istream)
	if len(lines) != 2 {
		t.Fatalf("CategoryHook(lower, istream) = %v, want a pragma plus a dummy read", lines)
	}
	if !strings.Contains(lines[1], "in.read()") {
		t.Errorf("CategoryHook(lower, istream)[1] = %q, want a dummy read of the port", lines[1])
	}
}

func TestHLSTargetRewriteBodyEmptiesTopShell(t *testing.T) {
	hls := &HLSTarget{}
	body := hls.RewriteBody(LevelTop, "{ tapa::task task_graph; }", nil)
	if strings.Contains(body, "task_graph") {
		t.Errorf("RewriteBody(top) should elide the task-graph construction, got %q", body)
	}
}

func TestHLSTargetStripSiblingKeepsDeclaration(t *testing.T) {
	hls := &HLSTarget{}
	rewritten, deleted := hls.StripSibling(&graph.Task{Name: "other"}, "{ real body }")
	if deleted {
		t.Error("HLSTarget.StripSibling should keep the sibling declaration (deleted=false)")
	}
	if strings.Contains(rewritten, "real body") {
		t.Error("HLSTarget.StripSibling should strip the original body text")
	}
}

func TestAIETargetRewriteArg(t *testing.T) {
	aie := &AIETarget{}
	out := graph.Port{Name: "out", Cat: ast.CategoryOStream, Width: 16}
	args := aie.RewriteArg(LevelLower, out)
	if len(args) != 1 || !strings.Contains(args[0], "output_stream<uint16>*") {
		t.Errorf("RewriteArg(ostream) = %v, want an output_stream<uint16>* parameter", args)
	}
}

func TestAIETargetStripSiblingDeletes(t *testing.T) {
	aie := &AIETarget{}
	rewritten, deleted := aie.StripSibling(&graph.Task{Name: "other"}, "{ body }")
	if !deleted {
		t.Error("AIETarget.StripSibling should delete non-current sibling declarations")
	}
	if rewritten != "" {
		t.Errorf("AIETarget.StripSibling rewritten text = %q, want empty", rewritten)
	}
}

func TestAIETargetRewriteBodyStripsTargetAttribute(t *testing.T) {
	aie := &AIETarget{}
	original := `[[tapa::target("xilinx-aie")]] { int x = 1; }`
	got := aie.RewriteBody(LevelLower, original, nil)
	if strings.Contains(got, "tapa::target") {
		t.Errorf("RewriteBody() should strip the target attribute, got %q", got)
	}
}

func TestIgnoreTargetRewriteBodyForcesEachPort(t *testing.T) {
	ignore := &IgnoreTarget{}
	lines := ignore.CategoryHook(LevelLower, graph.Port{Name: "in", Cat: ast.CategoryIStream})
	body := ignore.RewriteBody(LevelLower, "{ /* original, discarded */ }", lines)
	if strings.Contains(body, "original") {
		t.Error("IgnoreTarget.RewriteBody should discard the original body entirely")
	}
	if !strings.Contains(body, "in.read()") {
		t.Errorf("RewriteBody() = %q, want the dummy read line injected", body)
	}
}

func TestIgnoreTargetRewriteBodyEmptyWhenNoPorts(t *testing.T) {
	ignore := &IgnoreTarget{}
	if got := ignore.RewriteBody(LevelLower, "{ anything }", nil); got != "{}" {
		t.Errorf("RewriteBody() with no port lines = %q, want \"{}\"", got)
	}
}
