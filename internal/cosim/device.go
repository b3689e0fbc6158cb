// Package cosim implements C8, the host-side cosimulation device of
// spec.md §4.8: it packages scalar, buffer, and stream invocation
// arguments, writes them to a work directory, spawns the external cosim
// process, and reports per-stage timings.
package cosim

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"tapac/internal/shmqueue"
)

// BufferTag is the host-side Buffer<T> access tag of spec.md §4 (Data
// Model): it determines a bound buffer's load/store set membership.
type BufferTag int

const (
	Placeholder BufferTag = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

func (t BufferTag) String() string {
	switch t {
	case ReadOnly:
		return "read_only"
	case WriteOnly:
		return "write_only"
	case ReadWrite:
		return "read_write"
	default:
		return "placeholder"
	}
}

// Options is the xosim_* flag surface of spec.md §6, honored one-to-one
// with the original's flag names (fpga-runtime/src/frt/devices/
// tapa_fast_cosim_device.cpp).
type Options struct {
	WorkDir            string
	Executable         string
	StartGUI           bool
	SaveWaveform       bool
	SetupOnly          bool
	ResumeFromPostSim  bool
	PartNum            string
}

type bufferBinding struct {
	tag  BufferTag
	data []byte
}

// Timings records the elapsed nanoseconds of each cosim stage
// (spec.md §4.8: "Times the elapsed nanoseconds" for write/exec/read).
type Timings struct {
	WriteToDeviceNanos  int64
	ComputeNanos        int64
	ReadFromDeviceNanos int64
}

// Device is one cosimulation run's argument bindings, work directory, and
// child-process handle.
type Device struct {
	bitstreamPath string
	workDir       string
	ownsWorkDir   bool
	opts          Options

	scalars map[int]string
	buffers map[int]*bufferBinding
	streams map[int]*shmqueue.Queue

	loadSet  map[int]bool // written to the device before exec (spec §4.8)
	storeSet map[int]bool // read back from the device after exec

	writeScheduled bool // write_to_device called; actual I/O deferred to Exec
	readScheduled  bool // read_from_device called; actual I/O deferred to Finish

	cmd       *exec.Cmd
	execStart time.Time
	Timings   Timings
}

// NewDevice creates a cosim device bound to bitstreamPath. If opts.WorkDir
// is empty, an os.MkdirTemp directory is created and removed on Close
// (spec.md §4.8: "Work directory is either user-supplied or a
// mkdtemp-created path; auto-created dirs are removed on destruction.").
func NewDevice(bitstreamPath string, opts Options) (*Device, error) {
	d := &Device{
		bitstreamPath: bitstreamPath,
		opts:          opts,
		scalars:       map[int]string{},
		buffers:       map[int]*bufferBinding{},
		streams:       map[int]*shmqueue.Queue{},
		loadSet:       map[int]bool{},
		storeSet:      map[int]bool{},
	}
	if opts.WorkDir != "" {
		if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
			return nil, fmt.Errorf("cosim: work dir %q: %w", opts.WorkDir, err)
		}
		d.workDir = opts.WorkDir
		return d, nil
	}
	dir, err := os.MkdirTemp("", "tapa-cosim-*")
	if err != nil {
		return nil, fmt.Errorf("cosim: creating work dir: %w", err)
	}
	d.workDir = dir
	d.ownsWorkDir = true
	return d, nil
}

// WorkDir returns the device's work directory.
func (d *Device) WorkDir() string { return d.workDir }

// SetScalarArg records a little-endian hex literal of value at index i
// (spec.md §4.8: "records a little-endian hex literal of the value"),
// formatted `'h<size*2 hex digits>` as the cosim config's scalar_to_val
// entries expect.
func (d *Device) SetScalarArg(i int, value uint64, size int) {
	d.scalars[i] = fmt.Sprintf("'h%0*x", size*2, value)
}

// SetBufferArg records (data) at index i and updates load/store set
// membership per tag (spec.md §4.8: "ReadOnly→store, WriteOnly→load,
// ReadWrite→both, Placeholder→neither").
func (d *Device) SetBufferArg(i int, tag BufferTag, data []byte) {
	d.buffers[i] = &bufferBinding{tag: tag, data: data}
	delete(d.loadSet, i)
	delete(d.storeSet, i)
	switch tag {
	case ReadOnly:
		d.storeSet[i] = true
	case WriteOnly:
		d.loadSet[i] = true
	case ReadWrite:
		d.loadSet[i] = true
		d.storeSet[i] = true
	}
}

// SetStreamArg binds a shared-memory queue handle to index i.
func (d *Device) SetStreamArg(i int, q *shmqueue.Queue) {
	d.streams[i] = q
}

// SuspendBuffer removes i from both load and store sets, returning the
// count removed (0, 1, or 2).
func (d *Device) SuspendBuffer(i int) int {
	n := 0
	if d.loadSet[i] {
		delete(d.loadSet, i)
		n++
	}
	if d.storeSet[i] {
		delete(d.storeSet, i)
		n++
	}
	return n
}

// WriteToDevice schedules every load-set buffer's bytes to be written to
// <workdir>/<i>.bin; the actual write happens inside Exec, matching the
// original's scheduled-flag pattern (tapa_fast_cosim_device.cpp: write_to_device
// only sets a flag, WriteToDeviceImpl runs as part of Exec).
func (d *Device) WriteToDevice() error {
	d.writeScheduled = true
	return nil
}

// writeBuffersToDevice performs the load-set file writes WriteToDevice
// scheduled.
func (d *Device) writeBuffersToDevice() error {
	start := time.Now()
	for i := range d.loadSet {
		b, ok := d.buffers[i]
		if !ok {
			continue
		}
		path := filepath.Join(d.workDir, fmt.Sprintf("%d.bin", i))
		if err := os.WriteFile(path, b.data, 0o644); err != nil {
			return fmt.Errorf("cosim: write_to_device: buffer %d: %w", i, err)
		}
	}
	d.Timings.WriteToDeviceNanos = time.Since(start).Nanoseconds()
	return nil
}

// Exec performs the load-set buffer writes WriteToDevice scheduled, writes
// the JSON config, and spawns the external cosim binary non-blocking
// (spec.md §4.8).
func (d *Device) Exec() error {
	if d.writeScheduled {
		if err := d.writeBuffersToDevice(); err != nil {
			return fmt.Errorf("cosim: exec: %w", err)
		}
	}

	cfg := d.buildConfig()
	path := filepath.Join(d.workDir, "config.json")
	data, err := marshalConfig(cfg)
	if err != nil {
		return fmt.Errorf("cosim: exec: marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cosim: exec: writing config: %w", err)
	}

	exe := d.opts.Executable
	if exe == "" {
		exe = "tapa-fast-cosim-runner"
	}
	args := []string{"--config", path}
	if d.opts.StartGUI {
		args = append(args, "--start-gui")
	}
	if d.opts.SaveWaveform {
		args = append(args, "--save-waveform")
	}
	if d.opts.SetupOnly {
		args = append(args, "--setup-only")
	}
	if d.opts.ResumeFromPostSim {
		args = append(args, "--resume-from-post-sim")
	}
	if d.opts.PartNum != "" {
		args = append(args, "--part-num", d.opts.PartNum)
	}

	d.cmd = exec.Command(exe, args...)
	d.cmd.Stdout = os.Stdout
	d.cmd.Stderr = os.Stderr
	d.execStart = time.Now()
	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("cosim: exec: starting %q: %w", exe, err)
	}
	return nil
}

// Finish waits on the child process, recording compute elapsed nanoseconds
// from the Exec timestamp, then — only once the process has exited —
// performs any store-set buffer reads ReadFromDevice scheduled (spec.md
// §5: buffer reads happen strictly after the child exit; matches
// tapa_fast_cosim_device.cpp's Finish, where ReadFromDeviceImpl runs after
// context_->proc.wait()). A nonzero exit is fatal and skips the reads.
func (d *Device) Finish() error {
	if d.cmd == nil {
		return fmt.Errorf("cosim: finish: exec was never called")
	}
	err := d.cmd.Wait()
	d.Timings.ComputeNanos = time.Since(d.execStart).Nanoseconds()
	if err != nil {
		return fmt.Errorf("cosim: finish: cosim process failed: %w", err)
	}
	if d.readScheduled {
		if err := d.readBuffersFromDevice(); err != nil {
			return fmt.Errorf("cosim: finish: %w", err)
		}
	}
	return nil
}

// ReadFromDevice schedules every store-set buffer's bytes to be read back
// from <workdir>/<i>_out.bin; the actual read is deferred until Finish has
// waited on the child process (spec.md §4.8, §5).
func (d *Device) ReadFromDevice() error {
	d.readScheduled = true
	return nil
}

// readBuffersFromDevice performs the store-set file reads ReadFromDevice
// scheduled.
func (d *Device) readBuffersFromDevice() error {
	start := time.Now()
	for i := range d.storeSet {
		b, ok := d.buffers[i]
		if !ok {
			continue
		}
		path := filepath.Join(d.workDir, fmt.Sprintf("%d_out.bin", i))
		out, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read_from_device: buffer %d: %w", i, err)
		}
		copy(b.data, out)
	}
	d.Timings.ReadFromDeviceNanos = time.Since(start).Nanoseconds()
	return nil
}

// Close removes an auto-created work directory. It does not wait on a
// still-running child; that is Finish's job.
func (d *Device) Close() error {
	if d.ownsWorkDir {
		return os.RemoveAll(d.workDir)
	}
	return nil
}
