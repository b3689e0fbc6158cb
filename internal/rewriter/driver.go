// Package rewriter implements C7, the two-pass source rewriter driver of
// spec.md §4.7: given a parsed translation unit and its extracted task
// graph, it selects each task's target, rewrites that task's own
// declaration and every sibling definition visible in the same unit, and
// records the assembled source text on graph.Task.Code.
package rewriter

import (
	"fmt"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/graph"
	"tapac/internal/target"
)

// Run performs the driver's second pass for every task already discovered
// and extracted by internal/graph (the first pass, collecting global
// function definitions, is internal/ast.FunctionDefinitions, already used
// by internal/graph.Discover).
func Run(root ast.Node, tasks []*graph.Task, topName string) {
	allDefs := ast.FunctionDefinitions(root)

	byDeclStart := map[uint32]*graph.Task{}
	for _, t := range tasks {
		if _, ok := byDeclStart[t.Decl.StartByte()]; !ok {
			byDeclStart[t.Decl.StartByte()] = t
		}
	}

	for _, t := range tasks {
		tgt := target.ForTag(t.Target)
		lvl := target.PortLevelOf(t, topName)

		var out strings.Builder
		for _, def := range allDefs {
			if def.StartByte() == t.Decl.StartByte() {
				out.WriteString(renderCurrent(tgt, lvl, t, def))
			} else {
				out.WriteString(renderSibling(tgt, byDeclStart[def.StartByte()], def))
			}
			out.WriteString("\n\n")
		}
		t.Code = strings.TrimRight(out.String(), "\n") + "\n"
	}
}

// renderCurrent assembles the task currently being rewritten: its
// arguments replaced per-category, its body rewritten with the target's
// per-port hook lines spliced in (spec.md §4.7 step 3).
func renderCurrent(tgt target.Target, lvl target.PortLevel, t *graph.Task, def ast.Node) string {
	name := ast.FunctionName(def)
	retType := strings.TrimSpace(def.Field("type").Text())

	var args []string
	var portLines []string
	for _, p := range t.Ports {
		args = append(args, tgt.RewriteArg(lvl, p)...)
		portLines = append(portLines, tgt.CategoryHook(lvl, p)...)
	}

	originalBody := def.Field("body").Text()
	body := tgt.RewriteBody(lvl, originalBody, portLines)

	return fmt.Sprintf("%s %s(%s) %s", retType, name, strings.Join(args, ", "), body)
}

// renderSibling assembles a non-current task definition visible in the
// same translation unit, keeping its original signature and letting the
// target decide whether to strip its body or delete it outright
// (spec.md §4.7 step 3, §4.6 HLS-vs-AIE sibling handling).
func renderSibling(tgt target.Target, sibling *graph.Task, def ast.Node) string {
	rewrittenBody, deleted := tgt.StripSibling(sibling, def.Text())
	if deleted {
		return ""
	}
	name := ast.FunctionName(def)
	retType := strings.TrimSpace(def.Field("type").Text())
	params := ast.FunctionDeclarator(def).Field("parameters").Text()
	return fmt.Sprintf("%s %s%s %s", retType, name, params, rewrittenBody)
}
