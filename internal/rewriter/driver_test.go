package rewriter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"tapac/internal/ast"
	"tapac/internal/diagnostics"
	"tapac/internal/graph"
)

func buildGraph(t *testing.T, src, top string) (ast.Node, []*graph.Task, func()) {
	t.Helper()
	unit, err := ast.Parse([]byte(src))
	if err != nil {
		t.Fatalf("ast.Parse() error = %v", err)
	}
	diag := diagnostics.NewCollector(nil)
	tasks, err := graph.Extract(unit.Root(), top, diag)
	if err != nil {
		t.Fatalf("graph.Extract() error = %v", err)
	}
	if diag.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diag.All())
	}
	return unit.Root(), tasks, unit.Close
}

func TestRunEmitsCodeForEveryTask(t *testing.T) {
	root, tasks, closeFn := buildGraph(t, `
void pass_through(tapa::istream<int>& in, tapa::ostream<int>& out) {
}

void top(tapa::istream<int>& in, tapa::ostream<int>& out) {
  tapa::task task_graph;
  task_graph.invoke(pass_through, in, out);
}
`, "top")
	defer closeFn()

	Run(root, tasks, "top")
	for _, tk := range tasks {
		if tk.Code == "" {
			t.Errorf("task %q has no rewritten Code after Run()", tk.Name)
		}
	}
}

func TestRunTopShellElidesTaskGraphConstruction(t *testing.T) {
	root, tasks, closeFn := buildGraph(t, `
void pass_through(tapa::istream<int>& in, tapa::ostream<int>& out) {
}

void top(tapa::istream<int>& in, tapa::ostream<int>& out) {
  tapa::task task_graph;
  task_graph.invoke(pass_through, in, out);
}
`, "top")
	defer closeFn()

	Run(root, tasks, "top")
	var topTask *graph.Task
	for _, tk := range tasks {
		if tk.Name == "top" {
			topTask = tk
		}
	}
	if topTask == nil {
		t.Fatal("top task not found")
	}
	if strings.Contains(topTask.Code, "task_graph.invoke") {
		t.Errorf("top task's rewritten code should elide the invoke() calls, got %q", topTask.Code)
	}
}

func TestRunSiblingHandling(t *testing.T) {
	root, tasks, closeFn := buildGraph(t, `
void pass_through(tapa::istream<int>& in, tapa::ostream<int>& out) {
}

void unrelated(tapa::istream<int>& in, tapa::ostream<int>& out) {
}

void top(tapa::istream<int>& in, tapa::ostream<int>& out) {
  tapa::task task_graph;
  task_graph.invoke(pass_through, in, out);
}
`, "top")
	defer closeFn()

	Run(root, tasks, "top")
	for _, tk := range tasks {
		if tk.Name == "pass_through" {
			if !strings.Contains(tk.Code, "unrelated") {
				t.Error("pass_through's rewritten unit should still mention the unrelated sibling (HLS keeps, strips body)")
			}
		}
	}
}

func TestEmitProducesValidJSON(t *testing.T) {
	root, tasks, closeFn := buildGraph(t, `
void pass_through(tapa::istream<int>& in, tapa::ostream<int>& out) {
}

void top(tapa::istream<int>& in, tapa::ostream<int>& out) {
  tapa::task task_graph;
  task_graph.invoke(pass_through, in, out);
}
`, "top")
	defer closeFn()

	Run(root, tasks, "top")

	var buf bytes.Buffer
	if err := Emit(&buf, "top", tasks); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Emit() produced invalid JSON: %v", err)
	}
	if doc["top"] != "top" {
		t.Errorf("doc[\"top\"] = %v, want %q", doc["top"], "top")
	}
	tasksField, ok := doc["tasks"].(map[string]any)
	if !ok || len(tasksField) != 2 {
		t.Errorf("doc[\"tasks\"] = %v, want 2 entries", doc["tasks"])
	}
}
