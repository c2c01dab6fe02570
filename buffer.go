package minarrow

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"unicode/utf8"
	"unsafe"

	"github.com/pbower/minarrow-go/internal/hash"
	"github.com/pbower/minarrow-go/internal/mem"
)

// Owner is an arbitrary externally owned byte source a Buffer can wrap,
// for example a memory-mapped file region. The returned slice must stay
// valid and immutable for the owner's lifetime, and the owner must be
// safe to share across goroutines. If the owner also implements
// io.Closer, Close is invoked when the last handle is released.
type Owner interface {
	Bytes() []byte
}

// Buffer is a zero-copy, reference-counted byte buffer handle.
//
// The handle is a fixed-shape value: a byte window, an opaque control
// pointer (nil only for the static backend), and a pointer to the
// backend's static dispatch table. Clone and Slice are O(1) and bump an
// atomic reference count; Close releases the reference and tears the
// backing down when it was the last one.
//
// Handles are safe to share across goroutines; the only shared mutable
// state is the reference count. A handle value itself must not be used
// concurrently with its own Close.
type Buffer struct {
	data []byte
	ctrl unsafe.Pointer
	vt   *vtable
}

// NewBuffer returns the canonical empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{vt: &staticVT}
}

// FromStatic wraps immortal data. Clone and Close are no-ops and the
// buffer always reports unique: static data never needs a defensive
// copy. The caller must not mutate v afterwards.
func FromStatic(v []byte) *Buffer {
	return &Buffer{data: v, vt: &staticVT}
}

// FromBytes takes ownership of a plain heap slice. The caller must not
// use v afterwards; IntoBytes hands it back zero-copy while the handle
// is unique.
func FromBytes(v []byte) *Buffer {
	return &Buffer{data: v, ctrl: newVecCtrl(v, false), vt: &vecVT}
}

// FromAligned takes ownership of a 64-byte aligned slice, as produced
// by AllocAligned. Panics if v does not start on a 64-byte boundary:
// the aligned backend's contract is the origin alignment downstream
// SIMD kernels rely on.
func FromAligned(v []byte) *Buffer {
	if !mem.IsAligned(v) {
		panic("minarrow: FromAligned requires a 64-byte aligned slice (use AllocAligned)")
	}
	return &Buffer{data: v, ctrl: newVecCtrl(v, true), vt: &alignedVT}
}

// FromOwner wraps an arbitrary externally owned byte source behind a
// minimal reference-counted control block.
func FromOwner(o Owner) *Buffer {
	return &Buffer{data: o.Bytes(), ctrl: newOwnedCtrl(o), vt: &ownedVT}
}

// AllocAligned allocates a 64-byte aligned byte slice of the given
// size, suitable for FromAligned.
func AllocAligned(size int) []byte {
	return mem.AllocAligned(size)
}

// Len returns the number of bytes in this buffer's window.
func (b *Buffer) Len() int {
	return len(b.data)
}

// IsEmpty reports whether the buffer holds no bytes.
func (b *Buffer) IsEmpty() bool {
	return len(b.data) == 0
}

// Bytes returns the buffer's window. The slice aliases shared storage:
// treat it as read-only and do not retain it past Close.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Clone returns a new handle sharing the same storage. Always O(1);
// increments the reference count where the backend tracks one.
func (b *Buffer) Clone() *Buffer {
	return b.vt.clone(b)
}

// Close releases this handle's reference. When it was the last one the
// backing resources are torn down (the memfd backend unmaps its region
// and closes the descriptor). The handle then reads as the empty
// buffer; Close is idempotent.
func (b *Buffer) Close() error {
	err := b.vt.release(b)
	b.reset()
	return err
}

// IsUnique reports whether no other live handle shares the allocation.
// Always true for static buffers. This is the primitive copy-on-write
// callers use to decide between mutating in place and cloning first.
func (b *Buffer) IsUnique() bool {
	return b.vt.isUnique(b)
}

// Slice returns a zero-copy handle over the window [start, end),
// incrementing the reference count. A zero-length range returns the
// canonical empty buffer without touching the source. Panics when the
// range is out of bounds: callers are internal, pre-validated code.
func (b *Buffer) Slice(start, end int) *Buffer {
	if start < 0 || start > end || end > len(b.data) {
		panic(fmt.Sprintf("minarrow: Buffer.Slice [%d:%d) out of bounds for len %d", start, end, len(b.data)))
	}
	if start == end {
		return NewBuffer()
	}
	s := b.vt.clone(b)
	s.data = s.data[start:end:end]
	return s
}

// IntoBytes consumes the handle and returns its window as an owned
// plain slice. Zero-copy when this is the unique handle of a plain vec
// backend covering its whole backing; otherwise it copies. Never
// fails. The handle reads as empty afterwards.
func (b *Buffer) IntoBytes() []byte {
	out := b.vt.intoBytes(b)
	b.reset()
	return out
}

// IntoAligned is IntoBytes producing a 64-byte aligned slice, zero-copy
// when the backend is the aligned vec and the handle is unique.
func (b *Buffer) IntoAligned() []byte {
	out := b.vt.intoAligned(b)
	b.reset()
	return out
}

// MemfdFd returns the backing file descriptor when this buffer is
// memfd-backed, for transmission to another process over the caller's
// own IPC channel. Reports false for every other backend.
func (b *Buffer) MemfdFd() (int, bool) {
	if b.vt.fd == nil {
		return -1, false
	}
	return b.vt.fd(b)
}

// Equal reports byte equality of the two windows. Content-defined:
// buffers with different backends but equal bytes compare equal.
func (b *Buffer) Equal(other *Buffer) bool {
	return bytes.Equal(b.data, other.data)
}

// EqualBytes reports byte equality with a raw slice.
func (b *Buffer) EqualBytes(v []byte) bool {
	return bytes.Equal(b.data, v)
}

// Compare lexicographically compares the two windows, returning
// -1, 0, or +1 as in bytes.Compare.
func (b *Buffer) Compare(other *Buffer) int {
	return bytes.Compare(b.data, other.data)
}

// Checksum returns the CRC32C of the window, content-defined like
// Equal.
func (b *Buffer) Checksum() uint32 {
	return hash.CRC32C(b.data)
}

// String renders the content as text when it is valid UTF-8, falling
// back to hex.
func (b *Buffer) String() string {
	if utf8.Valid(b.data) {
		return string(b.data)
	}
	return hex.EncodeToString(b.data)
}

// reset neutralizes a consumed or closed handle so accidental reuse
// reads as the empty buffer instead of corrupting refcounts.
func (b *Buffer) reset() {
	b.data = nil
	b.ctrl = nil
	b.vt = &staticVT
}

// mutable returns the full writable backing slice when this handle is
// the unique owner of an aligned vec backend covering its backing, or
// nil when the caller must copy-on-write first.
func (b *Buffer) mutable() []byte {
	if b.vt != &alignedVT {
		return nil
	}
	c := (*vecCtrl)(b.ctrl)
	if c.refs.Load() != 1 || !c.covers(b.data) {
		return nil
	}
	return c.buf
}
