package host

import (
	"fmt"
	"unsafe"

	"tapac/internal/cosim"
)

// Buffer is the host-side Buffer<T> of spec.md §4 (Data Model): a
// caller-owned slice with an access tag. The runtime only borrows it
// (spec.md §4: "Buffers are owned by the caller; the runtime only
// borrows.").
type Buffer[T any] struct {
	data []T
	Tag  cosim.BufferTag
}

// NewBuffer wraps data (owned by the caller) with tag.
func NewBuffer[T any](data []T, tag cosim.BufferTag) *Buffer[T] {
	return &Buffer[T]{data: data, Tag: tag}
}

// Len returns the buffer's element count.
func (b *Buffer[T]) Len() int64 { return int64(len(b.data)) }

// Slice returns the buffer's underlying elements.
func (b *Buffer[T]) Slice() []T { return b.data }

// Bytes reinterprets the buffer's backing storage as a flat byte slice,
// the form internal/cosim.SetBufferArg consumes.
func (b *Buffer[T]) Bytes() []byte {
	if len(b.data) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return unsafe.Slice((*byte)(unsafe.Pointer(&b.data[0])), len(b.data)*size)
}

// Reinterpret reinterprets b's backing storage as a Buffer[U]. Per
// spec.md §4 (Data Model): "Reinterpreting as U requires sizeof(T) and
// sizeof(U) to divide one another and the pointer to be alignof(U)-
// aligned." Expressed as a free function rather than a generic method
// because Go methods cannot introduce their own type parameters beyond
// the receiver's (spec §7 supplemented feature 1, from frt/buffer.h).
func Reinterpret[U any, T any](b *Buffer[T]) (*Buffer[U], error) {
	var zt T
	var zu U
	tSize := int(unsafe.Sizeof(zt))
	uSize := int(unsafe.Sizeof(zu))
	if tSize == 0 || uSize == 0 {
		return nil, fmt.Errorf("host: reinterpret: zero-sized element type")
	}
	if tSize%uSize != 0 && uSize%tSize != 0 {
		return nil, fmt.Errorf("host: reinterpret: sizeof(T)=%d and sizeof(U)=%d do not divide one another", tSize, uSize)
	}
	if len(b.data) == 0 {
		return &Buffer[U]{Tag: b.Tag}, nil
	}

	ptr := unsafe.Pointer(&b.data[0])
	if align := unsafe.Alignof(zu); uintptr(ptr)%align != 0 {
		return nil, fmt.Errorf("host: reinterpret: pointer not %d-byte aligned for U", align)
	}

	totalBytes := len(b.data) * tSize
	newLen := totalBytes / uSize
	newData := unsafe.Slice((*U)(ptr), newLen)
	return &Buffer[U]{data: newData, Tag: b.Tag}, nil
}
