// Package host implements C10, the host-side facade of spec.md §4.10:
// Instance probes a bitstream's magic header, selects a device
// implementation, and composes the set_args/write/exec/read/finish
// sequence behind a single Invoke call. It also carries the supplemented
// Buffer[T].Reinterpret[U] data-model feature (spec.md §7.1).
package host

import (
	"errors"
	"fmt"
	"log"

	"tapac/internal/cosim"
)

// ErrNotImplemented is returned by device operations this module does not
// bind to a real vendor runtime — currently every non-cosim DeviceKind,
// and Kill for every kind (spec.md §5: "killing the cosim is surfaced
// explicitly ... as 'not implemented' and a log message").
var ErrNotImplemented = errors.New("host: not implemented")

// Instance is the device-agnostic facade spec.md §4.10 names: callers
// bind arguments through it and call Invoke, independent of which
// concrete device backend was selected.
type Instance struct {
	kind   DeviceKind
	device *cosim.Device
}

// Open probes bitstreamPath and constructs the matching Instance. Only
// KindCosim is backed by a real implementation in this module; any
// other recognized kind returns ErrNotImplemented (spec.md §7 supplemented
// feature note; no OpenCL SDK exists in the reference pack to ground a
// real binding).
func Open(bitstreamPath string, opts cosim.Options) (*Instance, error) {
	kind, err := ProbeKind(bitstreamPath)
	if err != nil {
		return nil, err
	}
	if kind != KindCosim {
		return nil, fmt.Errorf("host: open %q: %w: device kind %s", bitstreamPath, ErrNotImplemented, kind)
	}
	d, err := cosim.NewDevice(bitstreamPath, opts)
	if err != nil {
		return nil, err
	}
	return &Instance{kind: kind, device: d}, nil
}

// Kind reports which DeviceKind this instance selected.
func (in *Instance) Kind() DeviceKind { return in.kind }

// SetScalarArg, SetBufferArg, and SetStreamArg delegate to the underlying
// device (spec.md §4.8's argument-binding operations).
func (in *Instance) SetScalarArg(i int, value uint64, size int) {
	in.device.SetScalarArg(i, value, size)
}

func (in *Instance) SetBufferArg(i int, tag cosim.BufferTag, data []byte) {
	in.device.SetBufferArg(i, tag, data)
}

// Device exposes the underlying cosim.Device for callers that need
// stream-argument binding (shmqueue handles) or suspend_buffer, which
// this facade does not otherwise wrap.
func (in *Instance) Device() *cosim.Device { return in.device }

// Invoke performs set_args (already done by the caller via SetScalarArg/
// SetBufferArg/Device().SetStreamArg) followed by
// write_to_device → exec → read_from_device → finish (unless
// hasStreamArgs, matching spec.md §4.10: "invoke(args…) is equivalent to
// set_args(args…); write_to_device(); exec(); read_from_device(); if no
// stream args then finish()").
func (in *Instance) Invoke(hasStreamArgs bool) error {
	if err := in.device.WriteToDevice(); err != nil {
		return err
	}
	if err := in.device.Exec(); err != nil {
		return err
	}
	if err := in.device.ReadFromDevice(); err != nil {
		return err
	}
	if !hasStreamArgs {
		return in.device.Finish()
	}
	return nil
}

// Kill is not supported: the cosim child process has no cancellation
// protocol, matching the original OpenCL backends' documented behavior
// (spec.md §5).
func (in *Instance) Kill() error {
	log.Printf("host: kill: not implemented")
	return fmt.Errorf("host: kill: %w", ErrNotImplemented)
}

// Close releases the underlying device's resources.
func (in *Instance) Close() error {
	return in.device.Close()
}
