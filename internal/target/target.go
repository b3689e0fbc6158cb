// Package target implements C5 (the per-vendor backend hook surface) and
// C6 (the concrete HLS/AIE/Ignore targets) of spec.md §4.5–§4.6: for each
// discovered task, a Target rewrites its argument list, emits pragmas and
// extra lines per port category, rewrites or replaces its body, and
// decides how sibling tasks not currently being rewritten are handled.
package target

import (
	"tapac/internal/ast"
	"tapac/internal/graph"
)

// PortLevel is the "top / middle / lower / other" axis spec.md §4.5
// hooks key off — distinct from graph.Level, which only distinguishes
// upper/lower/other at discovery time. A task invoked transitively by
// another upper task is "middle"; the translation unit's --top task is
// "top".
type PortLevel int

const (
	LevelOther PortLevel = iota
	LevelTop
	LevelMiddle
	LevelLower
)

func (l PortLevel) String() string {
	switch l {
	case LevelTop:
		return "top"
	case LevelMiddle:
		return "middle"
	case LevelLower:
		return "lower"
	default:
		return "other"
	}
}

// PortLevelOf derives a task's PortLevel given the translation unit's top
// task name.
func PortLevelOf(t *graph.Task, topName string) PortLevel {
	switch t.Level {
	case graph.LevelUpper:
		if t.Name == topName {
			return LevelTop
		}
		return LevelMiddle
	case graph.LevelLower:
		return LevelLower
	default:
		return LevelOther
	}
}

// Target is the per-vendor hook surface of spec.md §4.5.
type Target interface {
	Name() string

	// RewriteArg returns p's rewritten parameter declaration text at
	// level lvl (e.g. a typed mmap handle becomes a flat uint64_t
	// address plus a "_offset"-suffixed parameter).
	RewriteArg(lvl PortLevel, p graph.Port) []string

	// CategoryHook returns the pragma/line(s) this target inserts into
	// the rewritten body for port p at level lvl.
	CategoryHook(lvl PortLevel, p graph.Port) []string

	// RewriteBody assembles the final body text given the original
	// source text of the function body and the category hook lines
	// already collected for its ports, in port order.
	RewriteBody(lvl PortLevel, original string, portLines []string) string

	// PipelineHook/UnrollHook return the pragma line this target inserts
	// at a pipelined/unrolled loop's opening brace, or "" for none.
	PipelineHook(loop ast.Node) string
	UnrollHook(loop ast.Node) string

	// StripSibling decides how a non-current task's declaration, visible
	// in the same translation unit, is rendered in the emitted source:
	// the replacement text, and whether the declaration is dropped
	// outright (true) rather than kept with a stripped body (false).
	StripSibling(sibling *graph.Task, originalSource string) (rewritten string, deleted bool)
}

// ForTag returns the concrete Target for a task's closed target tag
// (spec.md §3: "absence defaults to VendorHLS").
func ForTag(tag graph.TargetTag) Target {
	switch tag {
	case graph.TargetVendorAIE:
		return &AIETarget{}
	case graph.TargetIgnore:
		return &IgnoreTarget{}
	default:
		return &HLSTarget{}
	}
}

// streamLike reports whether p's category is one of the four stream
// categories. Only HLSTarget's lower-level hook calls it, before adding a
// stream port's dummy read/write; no target routes middle-level ports to
// a separate stream hook.
func streamLike(cat ast.Category) bool {
	switch cat {
	case ast.CategoryIStream, ast.CategoryOStream, ast.CategoryIStreams, ast.CategoryOStreams:
		return true
	default:
		return false
	}
}
