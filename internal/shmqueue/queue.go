// Package shmqueue implements C9, the lock-free single-producer/
// single-consumer shared-memory byte queue of spec.md §4.9: a
// fixed-depth, fixed-width ring buffer laid out in a POSIX shared-memory
// file, synchronized by two atomic counters rather than a lock.
package shmqueue

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

const (
	wireMagic   = "tapa"
	wireVersion = int32(1)

	offMagic   = 0
	offVersion = 4
	offDepth   = 8
	offWidth   = 12
	offTail    = 16
	offHead    = 24
	headerLen  = 32
)

// Queue is an attached or newly created shared-memory ring buffer.
type Queue struct {
	file  *os.File
	m     mmap.MMap
	depth uint32
	width uint32
	path  string
}

// Depth returns the queue's fixed element capacity.
func (q *Queue) Depth() uint32 { return q.depth }

// Width returns the queue's fixed element byte width.
func (q *Queue) Width() uint32 { return q.width }

// Path returns the backing shared-memory file's path.
func (q *Queue) Path() string { return q.path }

// Create atomically creates a shared-memory file whose name is derived
// from pathTemplate (a single "*" in the template is replaced with a
// random suffix; templates without "*" get one appended), lays out the
// header, and returns the attached Queue along with the file's actual
// path (spec.md §4.9 "create"). A negative-fd-equivalent failure is
// reported as a non-nil error; callers that want the original's "log the
// errno" behavior can wrap this with their own logger.
func Create(pathTemplate string, depth, width uint32) (*Queue, error) {
	if depth == 0 || width == 0 {
		return nil, fmt.Errorf("shmqueue: create: depth and width must be positive, got depth=%d width=%d", depth, width)
	}

	const attempts = 8
	var file *os.File
	var path string
	var err error
	for i := 0; i < attempts; i++ {
		path = expandTemplate(pathTemplate)
		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("shmqueue: create %q: %w", path, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("shmqueue: create: exhausted %d name attempts: %w", attempts, err)
	}

	total := int64(headerLen) + int64(depth)*int64(width)
	if err := file.Truncate(total); err != nil {
		file.Close()
		os.Remove(path)
		return nil, fmt.Errorf("shmqueue: truncate %q: %w", path, err)
	}

	q, err := attachFile(file, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	copy(q.m[offMagic:offMagic+4], wireMagic)
	binary.LittleEndian.PutUint32(q.m[offVersion:], uint32(wireVersion))
	binary.LittleEndian.PutUint32(q.m[offDepth:], depth)
	binary.LittleEndian.PutUint32(q.m[offWidth:], width)
	atomic.StoreUint64(q.tailPtr(), 0)
	atomic.StoreUint64(q.headPtr(), 0)
	q.depth, q.width = depth, width

	return q, nil
}

// Attach maps an already-created shared-memory file by path, validating
// its header (magic, version, positive depth/width) before exposing it
// (spec.md §4.9 "attach").
func Attach(path string) (*Queue, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shmqueue: attach %q: %w", path, err)
	}
	q, err := attachFile(file, path)
	if err != nil {
		return nil, err
	}
	if string(q.m[offMagic:offMagic+4]) != wireMagic {
		q.Close()
		return nil, fmt.Errorf("shmqueue: attach %q: bad magic", path)
	}
	if v := int32(binary.LittleEndian.Uint32(q.m[offVersion:])); v != wireVersion {
		q.Close()
		return nil, fmt.Errorf("shmqueue: attach %q: unsupported version %d", path, v)
	}
	depth := binary.LittleEndian.Uint32(q.m[offDepth:])
	width := binary.LittleEndian.Uint32(q.m[offWidth:])
	if depth == 0 || width == 0 {
		q.Close()
		return nil, fmt.Errorf("shmqueue: attach %q: non-positive depth/width in header", path)
	}
	q.depth, q.width = depth, width
	return q, nil
}

// attachFile maps the whole file (header plus the eventual data region);
// the header's depth/width are not yet known for a fresh Create, so the
// caller fills q.depth/q.width afterward.
func attachFile(file *os.File, path string) (*Queue, error) {
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmqueue: stat %q: %w", path, err)
	}
	m, err := mmap.MapRegion(file, int(info.Size()), mmap.RDWR, 0, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmqueue: mmap %q: %w", path, err)
	}
	return &Queue{file: file, m: m, path: path}, nil
}

func (q *Queue) tailPtr() *uint64 { return (*uint64)(unsafe.Pointer(&q.m[offTail])) }
func (q *Queue) headPtr() *uint64 { return (*uint64)(unsafe.Pointer(&q.m[offHead])) }

// Size reports the queue's current element count (head − tail).
func (q *Queue) Size() int64 {
	head := atomic.LoadUint64(q.headPtr())
	tail := atomic.LoadUint64(q.tailPtr())
	return int64(head - tail)
}

// Empty reports size ≤ 0.
func (q *Queue) Empty() bool { return q.Size() <= 0 }

// Full reports size ≥ depth.
func (q *Queue) Full() bool { return q.Size() >= int64(q.depth) }

// Push copies value into the slot at head mod depth and advances head.
// Panics (fatal assert, per spec.md §7 "precondition violations") if the
// queue is full or value's length does not equal width.
func (q *Queue) Push(value []byte) {
	if uint32(len(value)) != q.width {
		panic(fmt.Sprintf("shmqueue: push: value width %d != queue width %d", len(value), q.width))
	}
	if q.Full() {
		panic("shmqueue: push on full queue")
	}
	head := atomic.LoadUint64(q.headPtr())
	slot := headerLen + (head%uint64(q.depth))*uint64(q.width)
	copy(q.m[slot:slot+uint64(q.width)], value)
	// Release: the data write above must be visible to any consumer that
	// observes this incremented head.
	atomic.StoreUint64(q.headPtr(), head+1)
}

// Pop copies the element at tail mod depth into a freshly allocated
// buffer, advances tail, and returns it. Panics if the queue is empty.
func (q *Queue) Pop() []byte {
	buf := q.Front()
	atomic.AddUint64(q.tailPtr(), 1)
	return buf
}

// Front peeks at the element tail mod depth without advancing tail,
// the pattern a one-cycle registered DPI handshake uses: read front(), decide whether
// to consume, then conditionally Pop() (spec §7 supplemented feature 4).
func (q *Queue) Front() []byte {
	// Acquire: this load must happen-before reading the data it guards,
	// so a concurrent Push's prior write is visible.
	head := atomic.LoadUint64(q.headPtr())
	tail := atomic.LoadUint64(q.tailPtr())
	if head <= tail {
		panic("shmqueue: front/pop on empty queue")
	}
	slot := headerLen + (tail%uint64(q.depth))*uint64(q.width)
	buf := make([]byte, q.width)
	copy(buf, q.m[slot:slot+uint64(q.width)])
	return buf
}

// Close unmaps and closes the backing file without removing it; callers
// that created the file and own its lifetime call Remove as well.
func (q *Queue) Close() error {
	if err := q.m.Unmap(); err != nil {
		q.file.Close()
		return fmt.Errorf("shmqueue: unmap %q: %w", q.path, err)
	}
	return q.file.Close()
}

// Remove closes and deletes the backing shared-memory file.
func (q *Queue) Remove() error {
	if err := q.Close(); err != nil {
		return err
	}
	return os.Remove(q.path)
}

func expandTemplate(tmpl string) string {
	suffix := randomSuffix()
	if strings.Contains(tmpl, "*") {
		return strings.Replace(tmpl, "*", suffix, 1)
	}
	return tmpl + suffix
}

func randomSuffix() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failures are not recoverable in any useful way on
		// a POSIX host; fall back to a fixed salt so callers still get a
		// deterministic-length suffix rather than a crash here.
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}

