package shmqueue

import (
	"os"
	"path/filepath"
	"testing"
)

func tempQueue(t *testing.T, depth, width uint32) *Queue {
	t.Helper()
	dir := t.TempDir()
	q, err := Create(filepath.Join(dir, "queue-*.shm"), depth, width)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	t.Cleanup(func() { q.Remove() })
	return q
}

func TestCreateRejectsZeroDepthOrWidth(t *testing.T) {
	dir := t.TempDir()
	if _, err := Create(filepath.Join(dir, "q-*.shm"), 0, 4); err == nil {
		t.Error("Create() with depth=0 should return an error")
	}
	if _, err := Create(filepath.Join(dir, "q-*.shm"), 4, 0); err == nil {
		t.Error("Create() with width=0 should return an error")
	}
}

func TestPushPopRoundTrip(t *testing.T) {
	q := tempQueue(t, 2, 3)
	q.Push([]byte("val"))
	if got := string(q.Pop()); got != "val" {
		t.Errorf("Pop() = %q, want %q", got, "val")
	}
}

func TestFullQueuePanicsOnPush(t *testing.T) {
	q := tempQueue(t, 2, 3)
	q.Push([]byte("aaa"))
	q.Push([]byte("bbb"))

	defer func() {
		if recover() == nil {
			t.Error("Push() on a full queue should panic")
		}
	}()
	q.Push([]byte("ccc"))
}

func TestEmptyQueuePanicsOnPop(t *testing.T) {
	q := tempQueue(t, 2, 3)
	defer func() {
		if recover() == nil {
			t.Error("Pop() on an empty queue should panic")
		}
	}()
	q.Pop()
}

func TestPushWrongWidthPanics(t *testing.T) {
	q := tempQueue(t, 2, 3)
	defer func() {
		if recover() == nil {
			t.Error("Push() with a mismatched value width should panic")
		}
	}()
	q.Push([]byte("ab"))
}

func TestQueueRecoversAfterDrain(t *testing.T) {
	q := tempQueue(t, 2, 3)
	q.Push([]byte("val"))
	if got := string(q.Pop()); got != "val" {
		t.Fatalf("Pop() = %q, want %q", got, "val")
	}
	q.Push([]byte("one"))
	q.Push([]byte("two"))
	if !q.Full() {
		t.Error("queue should report Full() after re-filling to depth")
	}
	if got := string(q.Pop()); got != "one" {
		t.Errorf("Pop() = %q, want %q", got, "one")
	}
	q.Push([]byte("thr"))
	if got := string(q.Pop()); got != "two" {
		t.Errorf("Pop() = %q, want %q", got, "two")
	}
	if got := string(q.Pop()); got != "thr" {
		t.Errorf("Pop() = %q, want %q", got, "thr")
	}
	if !q.Empty() {
		t.Error("queue should report Empty() after draining")
	}
}

func TestFrontDoesNotAdvance(t *testing.T) {
	q := tempQueue(t, 2, 3)
	q.Push([]byte("val"))
	first := string(q.Front())
	second := string(q.Front())
	if first != "val" || second != "val" {
		t.Errorf("Front() = %q, %q, want %q both times (non-advancing peek)", first, second, "val")
	}
	if q.Size() != 1 {
		t.Errorf("Size() after two Front() calls = %d, want 1", q.Size())
	}
}

func TestAttachValidatesHeader(t *testing.T) {
	q := tempQueue(t, 4, 8)
	path := q.Path()

	attached, err := Attach(path)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer attached.Close()

	if attached.Depth() != 4 || attached.Width() != 8 {
		t.Errorf("Attach() depth/width = %d/%d, want 4/8", attached.Depth(), attached.Width())
	}
}

func TestAttachRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-a-queue.shm")
	if err := os.WriteFile(path, make([]byte, headerLen), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	if _, err := Attach(path); err == nil {
		t.Error("Attach() on a file with the wrong magic should return an error")
	}
}
