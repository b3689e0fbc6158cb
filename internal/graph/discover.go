package graph

import (
	"fmt"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/diagnostics"
)

func nodeRange(n ast.Node) diagnostics.Range {
	return diagnostics.Range{
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		StartLine: n.Line(),
		StartCol:  n.Column(),
	}
}

// definitionTable is the name→[definitions] table of spec.md §4.3 step 1.
type definitionTable map[string][]ast.Node

// buildDefinitionTable collects every global function definition and
// reports a configuration error at the first redefinition of a name
// (spec.md §4.3 step 1, §7 "duplicate task definition"). A name is
// expected to have exactly one function_definition in the translation
// unit; distinct template specializations of that one definition are a
// BFS-time concept (see mangledName / Task.Key), not multiple
// definitions, so any second definition for the same name here is a
// genuine redefinition error.
func buildDefinitionTable(defs []ast.Node, diag *diagnostics.Collector) definitionTable {
	table := definitionTable{}
	for _, fn := range defs {
		name := ast.FunctionName(fn)
		if name == "" {
			continue
		}
		if existing, ok := table[name]; ok {
			diag.Errorf(nodeRange(fn), name, "task %q redefined (first definition at %s)", name, nodeRange(existing[0]))
		}
		table[name] = append(table[name], fn)
	}
	return table
}

// pendingTask is a BFS work item: a task identity plus the call site that
// discovered it (for diagnostics and for the invoking-parent key).
type pendingTask struct {
	name           string
	templateArgs   []string
	invokingParent string
	decl           ast.Node
}

// Discover performs C3: BFS from topName over the invocation edges of
// upper-level tasks, producing the ordered, deduplicated task set of
// spec.md §4.3 (top first).
func Discover(root ast.Node, topName string, diag *diagnostics.Collector) ([]*Task, error) {
	defs := ast.FunctionDefinitions(root)
	table := buildDefinitionTable(defs, diag)

	topDefs, ok := table[topName]
	if !ok || len(topDefs) == 0 {
		return nil, fmt.Errorf("top task %q has no definition", topName)
	}

	var tasks []*Task
	seen := map[string]*Task{}

	queue := []pendingTask{{name: topName, decl: topDefs[0]}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		t := &Task{
			Name:           mangledName(item.name, item.templateArgs),
			ReadableName:   item.name,
			InvokingParent: item.invokingParent,
			TemplateArgs:   item.templateArgs,
			Decl:           item.decl,
			Fifos:          map[string]*Fifo{},
			Children:       map[string][]*Invocation{},
		}
		key := t.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = t

		target, ignore := taskAttributes(root, item.decl)
		t.Target = target
		if ignore {
			// Ignored tasks contribute no further BFS edges (spec.md
			// §4.3 step 3: "Skip functions marked with the Ignore
			// target.") but are still recorded as discovered nodes so
			// the rewriter can emit their dummy-shell body.
			t.Level = LevelLower
			tasks = append(tasks, t)
			continue
		}

		body := item.decl.Field("body")
		tgObj := ast.FindTaskGraphObject(body)
		if tgObj.Valid() {
			t.Level = LevelUpper
			for _, inv := range ast.FindInvocations(body) {
				callArgs := ast.CallArgs(inv.Args)
				if len(callArgs) == 0 {
					diag.Errorf(nodeRange(inv.Call), t.Name, "invoke() call has no callee argument")
					continue
				}
				calleeText := callArgs[0].Text()
				calleeName, calleeTemplateArgs := splitSpecialization(calleeText)
				if _, ok := table[calleeName]; !ok {
					diag.Errorf(nodeRange(callArgs[0]), t.Name, "invoke() names undefined task %q", calleeName)
					continue
				}
				queue = append(queue, pendingTask{
					name:           calleeName,
					templateArgs:   calleeTemplateArgs,
					invokingParent: t.Name,
					decl:           table[calleeName][0],
				})
			}
		} else {
			t.Level = LevelLower
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

// mangledName combines a function's source name with its specialization
// arguments into the distinct identity spec.md §3 requires ("the same
// template may yield several rewritten variants").
func mangledName(name string, templateArgs []string) string {
	if len(templateArgs) == 0 {
		return name
	}
	return name + "<" + strings.Join(templateArgs, ",") + ">"
}

// splitSpecialization parses "foo" or "foo<2>" / "foo<2, 4>" into a base
// name and its template argument texts.
func splitSpecialization(text string) (name string, args []string) {
	text = strings.TrimSpace(text)
	idx := strings.IndexByte(text, '<')
	if idx < 0 {
		return text, nil
	}
	name = strings.TrimSpace(text[:idx])
	end := strings.LastIndexByte(text, '>')
	if end < idx {
		return name, nil
	}
	inner := text[idx+1 : end]
	for _, a := range strings.Split(inner, ",") {
		args = append(args, strings.TrimSpace(a))
	}
	return name, args
}

// taskAttributes inspects the `[[tapa::target("...")]]` attribute, if
// present, immediately preceding fn in root's children (spec.md §3
// "target tag"; §4.6 Ignore target).
func taskAttributes(root, fn ast.Node) (TargetTag, bool) {
	attr := ast.PrecedingNamedSibling(root, fn)
	if !attr.Valid() || attr.Kind() != "attribute_declaration" {
		return TargetVendorHLS, false
	}
	text := attr.Text()
	if !strings.Contains(text, "tapa::target") && !strings.Contains(text, "tapa::ignore") {
		return TargetVendorHLS, false
	}
	if strings.Contains(text, "ignore") {
		return TargetIgnore, true
	}
	tag := TargetVendorHLS
	switch {
	case strings.Contains(text, "xilinx-aie") || strings.Contains(text, "aie"):
		tag = TargetVendorAIE
	case strings.Contains(text, "xilinx-hls") || strings.Contains(text, "xilinx-vitis"):
		tag = TargetVendorHLS
	}
	return tag, false
}
