package graph

import (
	"encoding/json"
	"sort"
	"strconv"

	"tapac/internal/ast"
)

// Graph is the top-level JSON document emitted by internal/rewriter
// alongside the per-task rewritten source (spec.md §3: "a JSON document
// describing the whole graph").
type Graph struct {
	Top   string              `json:"top"`
	Tasks map[string]*TaskJSON `json:"tasks"`
}

// TaskJSON is the wire shape of one Task, expressed in terms of the
// expanded Port list (not the unexpanded Param list) per spec.md §3.
// Target and Vendor are independent axes (spec.md §3, §6): target is the
// backend dialect (xilinx-hls, xilinx-aie, ignore), vendor is the device
// family that backend targets.
type TaskJSON struct {
	Level        string                      `json:"level"`
	Target       string                      `json:"target"`
	Vendor       string                      `json:"vendor"`
	ReadableName string                      `json:"readable_name"`
	Ports        []PortJSON                  `json:"ports"`
	Tasks        map[string][]InvocationJSON `json:"tasks,omitempty"`
	Fifos        map[string]FifoJSON         `json:"fifos,omitempty"`
	Code         string                      `json:"code,omitempty"`
}

// PortJSON is the wire shape of one Port.
type PortJSON struct {
	Name  string `json:"name"`
	Cat   string `json:"cat"`
	Width int    `json:"width"`
	Type  string `json:"type"`
}

// FifoJSON is the wire shape of one Fifo, with bindings rendered as
// "task@index" strings rather than nested objects.
type FifoJSON struct {
	ElementType string `json:"element_type"`
	Depth       int64  `json:"depth"`
	ProducedBy  string `json:"produced_by,omitempty"`
	ConsumedBy  string `json:"consumed_by,omitempty"`
}

// InvocationJSON is the wire shape of one Invocation.
type InvocationJSON struct {
	Step        int                       `json:"step"`
	VectorLen   int                       `json:"vector_len"`
	DisplayName string                    `json:"display_name,omitempty"`
	Args        map[string]ArgBindingJSON `json:"args"`
}

// ArgBindingJSON is the wire shape of one invocation argument binding: its
// port category alongside the bound argument text (spec.md §3: "args:
// { <port>:{cat,arg} }").
type ArgBindingJSON struct {
	Cat string `json:"cat"`
	Arg string `json:"arg"`
}

func categoryName(c ast.Category) string {
	switch c {
	case ast.CategoryIStream:
		return "istream"
	case ast.CategoryOStream:
		return "ostream"
	case ast.CategoryIStreams:
		return "istreams"
	case ast.CategoryOStreams:
		return "ostreams"
	case ast.CategoryMmap:
		return "mmap"
	case ast.CategoryAsyncMmap:
		return "async_mmap"
	case ast.CategoryMmaps:
		return "mmaps"
	case ast.CategoryHmap:
		return "hmap"
	case ast.CategorySeq:
		return "seq"
	case ast.CategoryTaskGraph:
		return "task_graph"
	default:
		return "scalar"
	}
}

// vendorName reports the device vendor a TargetTag compiles for. Every
// concrete backend this module binds (HLS, AIE) is Xilinx; TargetIgnore
// carries no vendor since it emits no device code.
func vendorName(t TargetTag) string {
	if t == TargetIgnore {
		return ""
	}
	return "xilinx"
}

func bindingString(b *Binding) string {
	if b == nil {
		return ""
	}
	return b.Task + "@" + strconv.Itoa(b.Index)
}

// ToJSON converts the discovered task list into the wire Graph shape.
func ToJSON(top string, tasks []*Task) *Graph {
	g := &Graph{Top: top, Tasks: map[string]*TaskJSON{}}
	for _, t := range tasks {
		tj := &TaskJSON{
			Level:        t.Level.String(),
			Target:       t.Target.String(),
			Vendor:       vendorName(t.Target),
			ReadableName: t.ReadableName,
			Code:         t.Code,
		}
		for _, p := range t.Ports {
			tj.Ports = append(tj.Ports, PortJSON{
				Name:  p.Name,
				Cat:   categoryName(p.Cat),
				Width: p.Width,
				Type:  p.Type,
			})
		}
		if len(t.Fifos) > 0 {
			tj.Fifos = map[string]FifoJSON{}
			for name, f := range t.Fifos {
				tj.Fifos[name] = FifoJSON{
					ElementType: f.ElementType,
					Depth:       f.Depth,
					ProducedBy:  bindingString(f.ProducedBy),
					ConsumedBy:  bindingString(f.ConsumedBy),
				}
			}
		}
		if len(t.Children) > 0 {
			tj.Tasks = map[string][]InvocationJSON{}
			for callee, invs := range t.Children {
				var list []InvocationJSON
				for _, inv := range invs {
					args := map[string]ArgBindingJSON{}
					for name, binding := range inv.Args {
						args[name] = ArgBindingJSON{
							Cat: categoryName(binding.Cat),
							Arg: binding.Arg,
						}
					}
					list = append(list, InvocationJSON{
						Step:        inv.Step,
						VectorLen:   inv.VectorLen,
						DisplayName: inv.DisplayName,
						Args:        args,
					})
				}
				tj.Tasks[callee] = list
			}
		}
		g.Tasks[t.Name] = tj
	}
	return g
}

// Marshal renders g as indented JSON, stable across runs (map keys sorted
// by encoding/json's default behavior).
func Marshal(g *Graph) ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// sortedTaskNames returns a Graph's Tasks map keys in sorted order, for a
// deterministic iteration order. It is unexported and currently unused.
func sortedTaskNames(g *Graph) []string {
	names := make([]string, 0, len(g.Tasks))
	for name := range g.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
