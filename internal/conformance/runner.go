package conformance

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tapac/internal/ast"
	"tapac/internal/cosim"
	"tapac/internal/diagnostics"
	"tapac/internal/graph"
	"tapac/internal/rewriter"
	"tapac/internal/shmqueue"
)

// Result is the outcome of running one scenario, mirroring barn/conformance's
// TestResult.
type Result struct {
	Scenario LoadedScenario
	Passed   bool
	Skipped  bool
	Reason   string
	Err      error
}

// Runner executes conformance scenarios. It carries no state across runs;
// every scenario builds its own ast.Unit/graph/device from scratch, unlike
// barn's Runner which holds one shared evaluator/store (this domain's
// scenarios are not transactional against shared state).
type Runner struct{}

// NewRunner returns a Runner ready to execute scenarios.
func NewRunner() *Runner { return &Runner{} }

// Run executes a single scenario.
func (r *Runner) Run(ls LoadedScenario) Result {
	if skipped, reason := ls.Scenario.IsSkipped(); skipped {
		return Result{Scenario: ls, Skipped: true, Reason: reason}
	}

	var err error
	switch ls.Scenario.Kind {
	case "graph":
		err = runGraphScenario(ls.Scenario)
	case "shmqueue":
		err = runShmqueueScenario(ls.Scenario)
	case "cosim":
		err = runCosimScenario(ls.Scenario)
	default:
		err = fmt.Errorf("conformance: unknown scenario kind %q", ls.Scenario.Kind)
	}
	if err != nil {
		return Result{Scenario: ls, Passed: false, Err: err}
	}
	return Result{Scenario: ls, Passed: true}
}

// RunAll executes every scenario in order.
func (r *Runner) RunAll(scenarios []LoadedScenario) []Result {
	results := make([]Result, len(scenarios))
	for i, s := range scenarios {
		results[i] = r.Run(s)
	}
	return results
}

// SummaryStats mirrors barn/conformance's pass/fail/skip tally.
type SummaryStats struct {
	Total   int
	Passed  int
	Failed  int
	Skipped int
}

func ComputeStats(results []Result) SummaryStats {
	stats := SummaryStats{Total: len(results)}
	for _, res := range results {
		switch {
		case res.Skipped:
			stats.Skipped++
		case res.Passed:
			stats.Passed++
		default:
			stats.Failed++
		}
	}
	return stats
}

func FormatStats(stats SummaryStats) string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d total)",
		stats.Passed, stats.Failed, stats.Skipped, stats.Total)
}

// runGraphScenario parses Source, extracts the task graph, rewrites it for
// Target (default xilinx-hls), and checks every field Expect sets
// (spec.md §8 scenarios 1, 2, 3, 6).
func runGraphScenario(s Scenario) error {
	unit, err := ast.Parse([]byte(s.Source))
	if err != nil {
		return fmt.Errorf("parsing source: %w", err)
	}
	defer unit.Close()

	diag := diagnostics.NewCollector(nil)
	tasks, err := graph.Extract(unit.Root(), s.Top, diag)
	if err != nil {
		return fmt.Errorf("extracting graph: %w", err)
	}

	if tag := s.Target; tag != "" {
		want := graph.ParseTargetTag(tag)
		for _, t := range tasks {
			if t.Target == graph.TargetVendorHLS {
				t.Target = want
			}
		}
	}

	if s.Expect.ErrorSubstr != "" {
		if !diag.HasErrors() {
			return fmt.Errorf("expected an error diagnostic containing %q, got none", s.Expect.ErrorSubstr)
		}
		found := false
		for _, d := range diag.All() {
			if d.Severity == diagnostics.SeverityError && strings.Contains(d.Message, s.Expect.ErrorSubstr) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no error diagnostic contains %q (got %v)", s.Expect.ErrorSubstr, diag.All())
		}
		return nil
	}
	if diag.HasErrors() {
		return fmt.Errorf("unexpected error diagnostics: %v", diag.All())
	}

	rewriter.Run(unit.Root(), tasks, s.Top)

	byName := map[string]*graph.Task{}
	for _, t := range tasks {
		byName[t.Name] = t
	}

	if s.Expect.TaskCount != 0 && len(tasks) != s.Expect.TaskCount {
		return fmt.Errorf("expected %d tasks, got %d", s.Expect.TaskCount, len(tasks))
	}

	for name, wantPorts := range s.Expect.Ports {
		t, ok := byName[name]
		if !ok {
			return fmt.Errorf("expected task %q not found among %v", name, taskNames(tasks))
		}
		if len(t.Ports) != wantPorts {
			return fmt.Errorf("task %q: expected %d ports, got %d", name, wantPorts, len(t.Ports))
		}
	}

	for name, wantFifo := range s.Expect.Fifos {
		found := false
		for _, t := range tasks {
			f, ok := t.Fifos[name]
			if !ok {
				continue
			}
			found = true
			if f.Depth != wantFifo.Depth {
				return fmt.Errorf("fifo %q: expected depth %d, got %d", name, wantFifo.Depth, f.Depth)
			}
			if (f.ProducedBy != nil) != wantFifo.HasProducer {
				return fmt.Errorf("fifo %q: expected has_producer=%v", name, wantFifo.HasProducer)
			}
			if (f.ConsumedBy != nil) != wantFifo.HasConsumer {
				return fmt.Errorf("fifo %q: expected has_consumer=%v", name, wantFifo.HasConsumer)
			}
		}
		if !found {
			return fmt.Errorf("expected fifo %q not found", name)
		}
	}

	for name, wantCount := range s.Expect.ChildEntries {
		t, ok := byName[s.Top]
		if !ok {
			return fmt.Errorf("top task %q not found", s.Top)
		}
		invs := t.Children[name]
		if len(invs) != wantCount {
			return fmt.Errorf("child %q: expected %d invocation entries, got %d", name, wantCount, len(invs))
		}
	}

	if len(s.Expect.DistinctKeys) > 0 {
		seen := map[string]bool{}
		for _, t := range tasks {
			k := t.Key()
			if seen[k] {
				return fmt.Errorf("duplicate task key %q, expected all distinct", k)
			}
			seen[k] = true
		}
		for _, want := range s.Expect.DistinctKeys {
			if !seen[want] {
				return fmt.Errorf("expected distinct task key %q not produced (got %v)", want, keysOf(seen))
			}
		}
	}

	if len(s.Expect.SameLevel) > 1 {
		var level graph.Level
		for i, name := range s.Expect.SameLevel {
			t, ok := byName[name]
			if !ok {
				return fmt.Errorf("expected task %q not found", name)
			}
			if i == 0 {
				level = t.Level
				continue
			}
			if t.Level != level {
				return fmt.Errorf("task %q: expected level %s (matching %q), got %s", name, level, s.Expect.SameLevel[0], t.Level)
			}
		}
	}

	return nil
}

func taskNames(tasks []*graph.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func keysOf(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// runShmqueueScenario creates a queue of Depth*Width bytes and applies Ops
// in order, recovering from the panics Push/Pop/Front raise on a
// full/empty queue so ExpectPanic assertions can be checked without
// aborting the whole scenario (spec.md §8 invariant "queue capacity";
// scenario 4).
func runShmqueueScenario(s Scenario) error {
	dir, err := os.MkdirTemp("", "tapa-conformance-shmqueue-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	q, err := shmqueue.Create(filepath.Join(dir, "queue-*.shm"), s.Depth, s.Width)
	if err != nil {
		return fmt.Errorf("creating queue: %w", err)
	}
	defer q.Remove()

	for i, op := range s.Ops {
		if err := runQueueOp(q, op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
	}
	return nil
}

func runQueueOp(q *shmqueue.Queue, op QueueOp) (err error) {
	panicked := false
	defer func() {
		if rec := recover(); rec != nil {
			panicked = true
			if !op.ExpectPanic {
				err = fmt.Errorf("unexpected panic: %v", rec)
			}
		} else if op.ExpectPanic {
			err = fmt.Errorf("expected a panic, got none")
		}
		_ = panicked
	}()

	switch op.Op {
	case "push":
		q.Push([]byte(op.Value))
	case "pop":
		got := q.Pop()
		if op.ExpectValue != "" && string(got) != op.ExpectValue {
			return fmt.Errorf("expected pop to return %q, got %q", op.ExpectValue, string(got))
		}
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
	return nil
}

// cosimConfigMirror duplicates internal/cosim's unexported config shape so
// the conformance runner can assert on the JSON it writes without
// exporting internal fields purely for tests (the same boundary
// cmd/tapa-fast-cosim-runner crosses).
type cosimConfigMirror struct {
	XoPath          string            `json:"xo_path"`
	ScalarToVal     map[string]string `json:"scalar_to_val"`
	AxiToCArraySize map[string]int    `json:"axi_to_c_array_size"`
	AxiToDataFile   map[string]string `json:"axi_to_data_file"`
	AxisToDataFile  map[string]string `json:"axis_to_data_file"`
}

// writeKernelXMLFixture synthesizes a minimal bitstream zip archive
// containing a kernel.xml with one <arg> per entry in args, the shape
// internal/cosim.ArgsInfo parses (spec.md §6 "Bitstream archive").
func writeKernelXMLFixture(path string, args []KernelArgFixture) error {
	var xml strings.Builder
	xml.WriteString("<kernel><args>\n")
	for _, a := range args {
		fmt.Fprintf(&xml, "<arg id=%q name=%q type=%q addressQualifier=%q/>\n",
			strconv.Itoa(a.Index), a.Name, a.Type, a.AddressQualifier)
	}
	xml.WriteString("</args></kernel>\n")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("kernel.xml")
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(xml.String())); err != nil {
		return err
	}
	return zw.Close()
}

func parseBufferTag(s string) (cosim.BufferTag, error) {
	switch s {
	case "read_only":
		return cosim.ReadOnly, nil
	case "write_only":
		return cosim.WriteOnly, nil
	case "read_write":
		return cosim.ReadWrite, nil
	case "placeholder", "":
		return cosim.Placeholder, nil
	default:
		return cosim.Placeholder, fmt.Errorf("unknown buffer tag %q", s)
	}
}

// runCosimScenario exercises set_scalar_arg/set_buffer_arg/set_stream_arg,
// write_to_device, exec, and read_from_device against a real cosim.Device,
// asserting the written config JSON and the buffer round trip (spec.md §8
// scenario 5). Exec's external process is stubbed to "true" (a no-op
// binary present on any POSIX system) since no real simulator exists in
// this module; the runner plays the simulator's role by mirroring
// <i>.bin to <i>_out.bin itself, exactly as cmd/tapa-fast-cosim-runner
// does when it has no kernel to actually run.
func runCosimScenario(s Scenario) error {
	dir, err := os.MkdirTemp("", "tapa-conformance-cosim-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	bitstreamPath := filepath.Join(dir, "fixture.xclbin")
	if len(s.KernelArgs) > 0 {
		if err := writeKernelXMLFixture(bitstreamPath, s.KernelArgs); err != nil {
			return fmt.Errorf("writing kernel.xml fixture: %w", err)
		}
		infos, err := cosim.ArgsInfo(bitstreamPath)
		if err != nil {
			return fmt.Errorf("args_info: %w", err)
		}
		if len(infos) != len(s.Expect.ArgsInfoNames) {
			return fmt.Errorf("args_info: expected %d args, got %d", len(s.Expect.ArgsInfoNames), len(infos))
		}
		for i, want := range s.Expect.ArgsInfoNames {
			if infos[i].Name != want {
				return fmt.Errorf("args_info[%d]: expected name %q, got %q", i, want, infos[i].Name)
			}
		}
	} else if err := os.WriteFile(bitstreamPath, []byte("not a real bitstream"), 0o644); err != nil {
		return fmt.Errorf("writing bitstream placeholder: %w", err)
	}

	dev, err := cosim.NewDevice(bitstreamPath, cosim.Options{WorkDir: dir, Executable: "true"})
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	defer dev.Close()

	if s.BindScalar != nil {
		dev.SetScalarArg(s.BindScalar.Index, s.BindScalar.Value, s.BindScalar.Size)
	}

	var boundBuffer []byte
	var bufferIndex int
	if s.BindBuffer != nil {
		tag, err := parseBufferTag(s.BindBuffer.Tag)
		if err != nil {
			return err
		}
		boundBuffer = []byte(s.BindBuffer.Data)
		bufferIndex = s.BindBuffer.Index
		dev.SetBufferArg(bufferIndex, tag, boundBuffer)
	}

	var q *shmqueue.Queue
	if s.BindStream != nil {
		q, err = shmqueue.Create(filepath.Join(dir, "stream-*.shm"), 8, 8)
		if err != nil {
			return fmt.Errorf("creating stream queue: %w", err)
		}
		defer q.Remove()
		dev.SetStreamArg(s.BindStream.Index, q)
	}

	if err := dev.WriteToDevice(); err != nil {
		return fmt.Errorf("write_to_device: %w", err)
	}
	if err := dev.Exec(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	cfgBytes, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return fmt.Errorf("reading config.json: %w", err)
	}
	var cfg cosimConfigMirror
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		return fmt.Errorf("parsing config.json: %w", err)
	}

	for k, want := range s.Expect.ScalarToVal {
		got, ok := cfg.ScalarToVal[k]
		if !ok {
			return fmt.Errorf("scalar_to_val missing key %q", k)
		}
		if got != want {
			return fmt.Errorf("scalar_to_val[%q]: expected %q, got %q", k, want, got)
		}
	}
	for _, k := range s.Expect.AxiToDataFileKeys {
		if _, ok := cfg.AxiToDataFile[k]; !ok {
			return fmt.Errorf("axi_to_data_file missing key %q", k)
		}
	}
	for _, k := range s.Expect.AxisToDataFileKeys {
		if _, ok := cfg.AxisToDataFile[k]; !ok {
			return fmt.Errorf("axis_to_data_file missing key %q", k)
		}
	}

	if s.BindBuffer != nil {
		dataFile := cfg.AxiToDataFile[strconv.Itoa(bufferIndex)]
		if dataFile != "" {
			raw, err := os.ReadFile(dataFile)
			if err == nil {
				outFile := strings.TrimSuffix(dataFile, ".bin") + "_out.bin"
				if err := os.WriteFile(outFile, raw, 0o644); err != nil {
					return fmt.Errorf("mirroring buffer output: %w", err)
				}
			}
		}
	}

	if err := dev.ReadFromDevice(); err != nil {
		return fmt.Errorf("read_from_device: %w", err)
	}
	if err := dev.Finish(); err != nil {
		return fmt.Errorf("finish: %w", err)
	}

	if s.Expect.BufferRoundTrips && s.BindBuffer != nil {
		if !bytes.Equal(boundBuffer, []byte(s.BindBuffer.Data)) {
			return fmt.Errorf("buffer did not round-trip: expected %q, got %q", s.BindBuffer.Data, string(boundBuffer))
		}
	}

	return nil
}
