package target

import (
	"fmt"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/graph"
)

// IgnoreTarget is the "preview-only" backend of spec.md §4.6: every task
// body is replaced wholesale by dummy reads/writes that force-evaluate
// each port, legal C++ that performs no real computation.
type IgnoreTarget struct{}

func (t *IgnoreTarget) Name() string { return "ignore" }

func (t *IgnoreTarget) RewriteArg(lvl PortLevel, p graph.Port) []string {
	return []string{fmt.Sprintf("%s %s", p.Type, p.Name)}
}

func (t *IgnoreTarget) CategoryHook(lvl PortLevel, p graph.Port) []string {
	switch p.Cat {
	case ast.CategoryIStream, ast.CategoryIStreams:
		return []string{fmt.Sprintf("auto %s_probe = %s.read();", p.Name, p.Name)}
	case ast.CategoryOStream, ast.CategoryOStreams:
		return []string{fmt.Sprintf("%s.write({});", p.Name)}
	case ast.CategoryMmap, ast.CategoryMmaps, ast.CategoryAsyncMmap, ast.CategoryHmap:
		return []string{fmt.Sprintf("volatile auto %s_probe = %s[0];", p.Name, p.Name)}
	case ast.CategoryScalar, ast.CategorySeq:
		return []string{fmt.Sprintf("volatile auto %s_probe = %s;", p.Name, p.Name)}
	default:
		return nil
	}
}

func (t *IgnoreTarget) RewriteBody(lvl PortLevel, original string, portLines []string) string {
	if len(portLines) == 0 {
		return "{}"
	}
	return "{\n  " + strings.Join(portLines, "\n  ") + "\n}"
}

func (t *IgnoreTarget) PipelineHook(loop ast.Node) string { return "" }
func (t *IgnoreTarget) UnrollHook(loop ast.Node) string   { return "" }

// StripSibling keeps the declaration with an emptied body, consistent
// with an Ignore-target build's "still needs legal syntax" requirement.
func (t *IgnoreTarget) StripSibling(sibling *graph.Task, originalSource string) (string, bool) {
	return "{}", false
}
