package graph

import (
	"tapac/internal/ast"
	"tapac/internal/diagnostics"
)

// Extract runs C3 (Discover) followed by C4 (port, FIFO, and invocation
// extraction) and returns the fully-populated task list, top task first
// (spec.md §3, §4.3, §4.4).
func Extract(root ast.Node, topName string, diag *diagnostics.Collector) ([]*Task, error) {
	tasks, err := Discover(root, topName, diag)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		t.Ports = extractPorts(t.Decl)
	}

	params := buildParamIndex(tasks)
	seq := newSeqCounters()

	for _, t := range tasks {
		if t.Level != LevelUpper {
			continue
		}
		body := t.Decl.Field("body")
		extractFifos(body, t, diag)

		tgObj := ast.FindTaskGraphObject(body)
		if tgObj.Valid() {
			extractInvocations(t, body, params, seq, diag)
		}
	}

	validateChannels(tasks, diag)

	return tasks, nil
}

// validateChannels implements the post-extraction checks of spec.md §4.4's
// final paragraph: every declared FIFO must have at least a producer or a
// consumer bound to it (an entirely unused FIFO is a warning), and a FIFO
// bound on only one side is a hard error — a channel is only valid once
// both ends are wired, since the default case (no bindings at all) can
// only mean the local stream was declared and never used.
func validateChannels(tasks []*Task, diag *diagnostics.Collector) {
	for _, t := range tasks {
		for name, fifo := range t.Fifos {
			switch {
			case fifo.ProducedBy == nil && fifo.ConsumedBy == nil:
				diag.Warnf(fifo.Range, t.Name, "tapa::stream %q is never bound to an invocation", name)
			case fifo.ProducedBy == nil:
				diag.Errorf(fifo.Range, t.Name, "tapa::stream %q has a consumer but no producer", name)
			case fifo.ConsumedBy == nil:
				diag.Errorf(fifo.Range, t.Name, "tapa::stream %q has a producer but no consumer", name)
			}
		}
	}
}
