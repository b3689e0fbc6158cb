package rewriter

import (
	"io"

	"tapac/internal/graph"
)

// Emit writes the JSON graph document of spec.md §3/§4.7 step 4 — every
// task's rewritten source text, level, and extracted metadata, together
// with the top task's name — to w.
func Emit(w io.Writer, topName string, tasks []*graph.Task) error {
	g := graph.ToJSON(topName, tasks)
	data, err := graph.Marshal(g)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("\n"))
	return err
}
