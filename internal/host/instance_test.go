package host

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tapac/internal/cosim"
)

func writeCosimFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.xclbin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("kernel.xml")
	if err != nil {
		t.Fatalf("zip.Create() error = %v", err)
	}
	if _, err := w.Write([]byte("<kernel><args></args></kernel>")); err != nil {
		t.Fatalf("zip entry write error = %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip.Writer.Close() error = %v", err)
	}
	f.Close()
	return path
}

func TestOpenSelectsCosimDevice(t *testing.T) {
	path := writeCosimFixture(t)
	in, err := Open(path, cosim.Options{WorkDir: t.TempDir(), Executable: "true"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer in.Close()

	if in.Kind() != KindCosim {
		t.Errorf("Kind() = %v, want KindCosim", in.Kind())
	}
	if in.Device() == nil {
		t.Error("Device() returned nil for a cosim instance")
	}
}

func TestOpenRejectsUnimplementedDeviceKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.xclbin")
	data := append([]byte("xclbin2"), make([]byte, 16)...)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	_, err := Open(path, cosim.Options{})
	if err == nil {
		t.Fatal("Open() on a Vitis OpenCL bitstream should fail: no real binding in this module")
	}
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Open() error = %v, want it to wrap ErrNotImplemented", err)
	}
}

func TestKillIsNotImplemented(t *testing.T) {
	path := writeCosimFixture(t)
	in, err := Open(path, cosim.Options{WorkDir: t.TempDir(), Executable: "true"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer in.Close()

	if err := in.Kill(); !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Kill() error = %v, want it to wrap ErrNotImplemented", err)
	}
}

func TestInvokeWithoutStreamArgsCallsFinish(t *testing.T) {
	path := writeCosimFixture(t)
	dir := t.TempDir()
	in, err := Open(path, cosim.Options{WorkDir: dir, Executable: "true"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer in.Close()

	in.SetScalarArg(0, 7, 4)
	if err := in.Invoke(false); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
}
