// Package conformance drives the YAML-fixture end-to-end scenarios of
// spec.md §8 against the real ast/graph/target/rewriter/shmqueue/cosim
// packages, adapted from barn/conformance's TestSuite/TestCase/Expectation
// schema (MOO expression fixtures re-themed as task-graph fixtures).
package conformance

// Suite is one YAML fixture file: a named group of related scenarios,
// mirroring barn/conformance's TestSuite.
type Suite struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Scenarios   []Scenario `yaml:"scenarios"`
}

// Scenario is a single end-to-end case. Kind selects which backend drives
// it; only the fields relevant to that Kind need be set.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Skip        string `yaml:"skip,omitempty"`

	// Kind is one of "graph", "shmqueue", "cosim".
	Kind string `yaml:"kind"`

	// graph-kind fields: Source is parsed as a translation unit, Top
	// names the top task, Target overrides the default target tag
	// ("xilinx-hls" if empty).
	Source string `yaml:"source,omitempty"`
	Top    string `yaml:"top,omitempty"`
	Target string `yaml:"target,omitempty"`

	// shmqueue-kind fields: a queue of Depth*Width bytes is created, then
	// Ops runs in order against it.
	Depth uint32    `yaml:"depth,omitempty"`
	Width uint32    `yaml:"width,omitempty"`
	Ops   []QueueOp `yaml:"ops,omitempty"`

	// cosim-kind fields describe the kernel.xml arguments to synthesize
	// into a fixture bitstream archive and the arguments to bind.
	KernelArgs []KernelArgFixture `yaml:"kernel_args,omitempty"`
	BindScalar *ScalarBindFixture `yaml:"bind_scalar,omitempty"`
	BindBuffer *BufferBindFixture `yaml:"bind_buffer,omitempty"`
	BindStream *StreamBindFixture `yaml:"bind_stream,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// KernelArgFixture describes one kernel.xml <arg> entry to synthesize.
type KernelArgFixture struct {
	Index            int    `yaml:"index"`
	Name             string `yaml:"name"`
	Type             string `yaml:"type"`
	AddressQualifier string `yaml:"address_qualifier"`
}

// ScalarBindFixture is a set_scalar_arg call to make before Exec.
type ScalarBindFixture struct {
	Index int    `yaml:"index"`
	Value uint64 `yaml:"value"`
	Size  int    `yaml:"size"`
}

// BufferBindFixture is a set_buffer_arg call to make before Exec.
type BufferBindFixture struct {
	Index int    `yaml:"index"`
	Tag   string `yaml:"tag"` // "read_only", "write_only", "read_write", "placeholder"
	Data  string `yaml:"data"`
}

// StreamBindFixture is a set_stream_arg call to make before Exec.
type StreamBindFixture struct {
	Index int `yaml:"index"`
}

// QueueOp is one push or pop applied to a shmqueue-kind scenario's queue,
// in order; ExpectPanic marks an operation expected to hit a fatal-assert
// precondition (full push / empty pop, spec.md §4.9).
type QueueOp struct {
	Op          string `yaml:"op"` // "push" or "pop"
	Value       string `yaml:"value,omitempty"`
	ExpectPanic bool   `yaml:"expect_panic,omitempty"`
	ExpectValue string `yaml:"expect_value,omitempty"`
}

// FifoExpectation checks one FIFO entry of the extracted graph.
type FifoExpectation struct {
	Depth       int64 `yaml:"depth"`
	HasProducer bool  `yaml:"has_producer"`
	HasConsumer bool  `yaml:"has_consumer"`
}

// Expectation is the union of everything a Scenario of any Kind may
// assert; only the fields relevant to the scenario's Kind are checked.
type Expectation struct {
	// graph-kind
	TaskCount    int                        `yaml:"task_count,omitempty"`
	Ports        map[string]int             `yaml:"ports,omitempty"`
	Fifos        map[string]FifoExpectation `yaml:"fifos,omitempty"`
	ChildEntries map[string]int             `yaml:"child_entries,omitempty"`
	DistinctKeys []string                   `yaml:"distinct_keys,omitempty"`
	SameLevel    []string                   `yaml:"same_level,omitempty"`
	ErrorSubstr  string                     `yaml:"error_substr,omitempty"`

	// cosim-kind
	ScalarToVal        map[string]string `yaml:"scalar_to_val,omitempty"`
	AxiToDataFileKeys  []string          `yaml:"axi_to_data_file_keys,omitempty"`
	AxisToDataFileKeys []string          `yaml:"axis_to_data_file_keys,omitempty"`
	BufferRoundTrips   bool              `yaml:"buffer_round_trips,omitempty"`
	ArgsInfoNames      []string          `yaml:"args_info_names,omitempty"`
}

// IsSkipped reports whether a scenario should be skipped, and why.
func (s Scenario) IsSkipped() (bool, string) {
	if s.Skip != "" {
		return true, s.Skip
	}
	return false, ""
}
