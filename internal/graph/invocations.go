package graph

import (
	"fmt"
	"strconv"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/diagnostics"
)

// seqCounters holds one counter per distinct seq-argument AST-expression
// identity (keyed by byte range), preserving the observed-but-unresolved
// behavior named in spec.md §9 Open Question: "two distinct seq
// expressions produce independent counters."
type seqCounters struct {
	byExpr map[string]int64
}

func newSeqCounters() *seqCounters { return &seqCounters{byExpr: map[string]int64{}} }

func (s *seqCounters) next(expr ast.Node) int64 {
	key := fmt.Sprintf("%d:%d", expr.StartByte(), expr.EndByte())
	v := s.byExpr[key]
	s.byExpr[key] = v + 1
	return v
}

// arrayAccessCounters tracks the per-variable demultiplexing position used
// when a bare array name (rather than `name[idx]`) is passed, successive
// invocation by successive invocation, to an istream/ostream-category
// parameter (spec.md §4.4: "a per-variable access counter advances per
// binding").
type arrayAccessCounters struct {
	byVar map[string]int64
}

func newArrayAccessCounters() *arrayAccessCounters {
	return &arrayAccessCounters{byVar: map[string]int64{}}
}

func (a *arrayAccessCounters) next(name string, length int64) int64 {
	if length <= 0 {
		length = 1
	}
	idx := a.byVar[name] % length
	a.byVar[name]++
	return idx
}

// paramIndex maps a callee's readable task name to its declared,
// unexpanded parameter list, built once so invocation extraction can bind
// arguments by position without re-walking every callee's declarator.
type paramIndex map[string][]Param

func buildParamIndex(tasks []*Task) paramIndex {
	idx := paramIndex{}
	for _, t := range tasks {
		if _, ok := idx[t.ReadableName]; ok {
			continue
		}
		idx[t.ReadableName] = extractParams(t.Decl)
	}
	return idx
}

// extractInvocations populates t.Children and registers producer/consumer
// bindings on t.Fifos for every `.invoke(...)` call inside t's function
// body (spec.md §4.4).
func extractInvocations(t *Task, body ast.Node, params paramIndex, seq *seqCounters, diag *diagnostics.Collector) {
	arrAccess := newArrayAccessCounters()

	for _, inv := range ast.FindInvocations(body) {
		callArgs := ast.CallArgs(inv.Args)
		if len(callArgs) == 0 {
			continue // already diagnosed during discovery
		}
		calleeName, calleeTemplateArgs := splitSpecialization(callArgs[0].Text())
		childKey := mangledName(calleeName, calleeTemplateArgs)

		step, vectorLen := invokeTemplateArgs(inv.Call)
		bindArgs := callArgs[1:]

		displayName := ""
		if len(bindArgs) > 0 && bindArgs[len(bindArgs)-1].Kind() == "string_literal" {
			displayName = strings.Trim(bindArgs[len(bindArgs)-1].Text(), `"`)
			bindArgs = bindArgs[:len(bindArgs)-1]
		}

		calleeParams := params[calleeName]

		for vec := 0; vec < max1(vectorLen); vec++ {
			invocation := &Invocation{
				Callee:      childKey,
				Step:        step,
				VectorLen:   vectorLen,
				DisplayName: displayName,
				Args:        map[string]ArgBinding{},
				Range:       nodeRange(inv.Call),
			}
			childIndex := len(t.Children[childKey])

			for i, argNode := range bindArgs {
				if i >= len(calleeParams) {
					diag.Errorf(nodeRange(argNode), t.Name, "invoke() passes more arguments than %q declares", calleeName)
					break
				}
				p := calleeParams[i]
				binding := bindArgument(t, p, argNode, vec, vectorLen > 1, arrAccess, seq, diag)
				invocation.Args[p.Name] = binding
				registerFifoBinding(t, p, binding, childKey, childIndex, diag)
			}

			t.Children[childKey] = append(t.Children[childKey], invocation)
		}
	}
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// invokeTemplateArgs extracts (step, vectorLen) from the explicit template
// arguments of the invoke call itself, e.g. `task_graph.invoke<1,4>(...)`
// (spec.md §4.4: "step (first integer template argument, default 0),
// vector length N (second integral template argument if present, else
// 1)").
func invokeTemplateArgs(call ast.Node) (step, vectorLen int) {
	fn := call.Field("function")
	text := fn.Text()
	idx := strings.IndexByte(text, '<')
	if idx < 0 {
		return 0, 1
	}
	end := strings.LastIndexByte(text, '>')
	if end < idx {
		return 0, 1
	}
	parts := strings.Split(text[idx+1:end], ",")
	step = 0
	vectorLen = 1
	if len(parts) >= 1 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			step = v
		}
	}
	if len(parts) >= 2 {
		if v, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			vectorLen = v
		}
	}
	return step, vectorLen
}

// bindArgument classifies one invocation argument per spec.md §4.4's
// per-category rules and returns the recorded binding.
func bindArgument(t *Task, p Param, argNode ast.Node, vecIdx int, vectorized bool, arrAccess *arrayAccessCounters, seq *seqCounters, diag *diagnostics.Collector) ArgBinding {
	text := strings.TrimSpace(argNode.Text())

	switch p.Cat {
	case ast.CategorySeq:
		return ArgBinding{Cat: p.Cat, Arg: fmt.Sprintf("64'd%d", seq.next(argNode))}

	case ast.CategoryIStream, ast.CategoryOStream:
		return ArgBinding{Cat: p.Cat, Arg: resolveStreamArg(t, text, vecIdx, vectorized, arrAccess, argNode, diag)}

	case ast.CategoryIStreams, ast.CategoryOStreams, ast.CategoryMmaps, ast.CategoryHmap:
		if vectorized {
			idx := vecIdx % int(max64(p.ArrayLen))
			if int64(vecIdx) >= p.ArrayLen {
				diag.Remarkf(nodeRange(argNode), t.Name, "vector instance %d wraps around array %q of length %d", vecIdx, text, p.ArrayLen)
			}
			return ArgBinding{Cat: p.Cat, Arg: fmt.Sprintf("%s[%d]", text, idx)}
		}
		return ArgBinding{Cat: p.Cat, Arg: text}

	case ast.CategoryMmap, ast.CategoryAsyncMmap:
		return ArgBinding{Cat: p.Cat, Arg: text}

	default: // scalar
		if v, ok := intLiteral(argNode); ok {
			return ArgBinding{Cat: ast.CategoryScalar, Arg: fmt.Sprintf("64'd%d", v)}
		}
		return ArgBinding{Cat: ast.CategoryScalar, Arg: text}
	}
}

// resolveStreamArg implements the istream/ostream binding rule: a literal
// `name[idx]` is used as-is; a bare array name is demultiplexed through
// the per-variable access counter (array-driven demux across successive,
// non-vectorized invocations); anything else is a plain variable
// reference.
func resolveStreamArg(t *Task, text string, vecIdx int, vectorized bool, arrAccess *arrayAccessCounters, argNode ast.Node, diag *diagnostics.Collector) string {
	if strings.Contains(text, "[") {
		return text // already indexed, e.g. s[2]
	}
	fifo, isArray, length := fifoArrayInfo(t, text)
	if !isArray {
		return text
	}
	var idx int64
	if vectorized {
		idx = int64(vecIdx) % length
		if int64(vecIdx) >= length {
			diag.Remarkf(nodeRange(argNode), t.Name, "vector instance %d wraps around stream array %q of length %d", vecIdx, text, length)
		}
	} else {
		idx = arrAccess.next(text, length)
	}
	_ = fifo
	return fmt.Sprintf("%s[%d]", text, idx)
}

// fifoArrayInfo reports whether name is the base of a declared fifo array
// (name[0], name[1], ... present in t.Fifos) and its length.
func fifoArrayInfo(t *Task, name string) (base string, isArray bool, length int64) {
	var n int64
	for {
		if _, ok := t.Fifos[fmt.Sprintf("%s[%d]", name, n)]; !ok {
			break
		}
		n++
	}
	return name, n > 0, n
}

func intLiteral(n ast.Node) (int64, bool) {
	if n.Kind() != "number_literal" {
		return 0, false
	}
	text := strings.TrimSuffix(strings.TrimSuffix(n.Text(), "u"), "U")
	text = strings.TrimSuffix(strings.TrimSuffix(text, "l"), "L")
	v, err := strconv.ParseInt(text, 0, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func max64(n int64) int64 {
	if n < 1 {
		return 1
	}
	return n
}

// registerFifoBinding records p's binding as the producer or consumer of
// the named channel, per spec.md §4.4: "binding an argument to an
// ostream(s) parameter registers the task/invocation as the producer...;
// a second producer or consumer registration for the same channel is a
// hard error."
func registerFifoBinding(t *Task, p Param, binding ArgBinding, childTask string, childIndex int, diag *diagnostics.Collector) {
	var fifoNames []string
	switch p.Cat {
	case ast.CategoryIStream, ast.CategoryOStream:
		fifoNames = []string{binding.Arg}
	case ast.CategoryIStreams, ast.CategoryOStreams:
		fifoNames = []string{binding.Arg} // one element of the array per the expansion in bindArgument
	default:
		return
	}

	isProducer := p.Cat == ast.CategoryOStream || p.Cat == ast.CategoryOStreams
	for _, name := range fifoNames {
		fifo, ok := t.Fifos[name]
		if !ok {
			continue // bound to a parent-scope/port-level stream, not a local FIFO
		}
		b := &Binding{Task: childTask, Index: childIndex}
		if isProducer {
			if fifo.ProducedBy != nil {
				diag.Errorf(fifo.Range, t.Name, "tapa::stream %q produced more than once", name)
				continue
			}
			fifo.ProducedBy = b
		} else {
			if fifo.ConsumedBy != nil {
				diag.Errorf(fifo.Range, t.Name, "tapa::stream %q consumed more than once", name)
				continue
			}
			fifo.ConsumedBy = b
		}
	}
}
