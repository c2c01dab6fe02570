package minarrow

import (
	"sync/atomic"
	"unsafe"

	"github.com/pbower/minarrow-go/internal/mem"
)

// vtable is the static dispatch table a Buffer handle points at. One
// immutable instance exists per backend, selected once at construction,
// so the handle stays a fixed three-field value and dispatch never
// branches on a backend tag. New backends are added by defining a new
// table, never by changing the handle type.
type vtable struct {
	// clone returns a new handle sharing the same storage, bumping the
	// reference count where one exists.
	clone func(b *Buffer) *Buffer
	// release retires the handle: refcount decrement, resource teardown
	// exactly once when the count reaches zero.
	release func(b *Buffer) error
	// isUnique reports whether no other live handle shares the storage.
	isUnique func(b *Buffer) bool
	// intoBytes extracts the window as a plain []byte, consuming the
	// handle's reference. Zero-copy when unique and backend-matched.
	intoBytes func(b *Buffer) []byte
	// intoAligned is intoBytes producing a 64-byte aligned slice.
	intoAligned func(b *Buffer) []byte
	// fd extracts the backing file descriptor. Non-nil only for the
	// memfd backend.
	fd func(b *Buffer) (int, bool)
}

// Static backend: immortal data, no control block, no counting.

var staticVT = vtable{
	clone:       aliasClone,
	release:     func(*Buffer) error { return nil },
	isUnique:    func(*Buffer) bool { return true },
	intoBytes:   copyBytes,
	intoAligned: copyAligned,
}

// aliasClone copies the handle as-is. For counted backends the caller's
// table wraps it with a refcount bump first.
func aliasClone(b *Buffer) *Buffer {
	return &Buffer{data: b.data, ctrl: b.ctrl, vt: b.vt}
}

func copyBytes(b *Buffer) []byte {
	return append([]byte(nil), b.data...)
}

func copyAligned(b *Buffer) []byte {
	return mem.CopyAligned(b.data)
}

// Vec backends: a heap slice behind an atomically counted control
// block. Two tables share the control type; plain and aligned differ
// only in which extraction direction can move the slice out without a
// copy. The original design tagged the sub-kind in the capacity parity;
// an explicit field costs a byte and reads honestly.

type vecCtrl struct {
	refs    atomic.Int64
	buf     []byte
	aligned bool
}

// covers reports whether the handle window spans the whole backing
// slice. A sliced handle never moves the backing out, even when unique;
// it extracts a copy of its window instead.
func (c *vecCtrl) covers(win []byte) bool {
	if len(win) != len(c.buf) {
		return false
	}
	return len(win) == 0 || &win[0] == &c.buf[0]
}

func vecClone(b *Buffer) *Buffer {
	(*vecCtrl)(b.ctrl).refs.Add(1)
	return aliasClone(b)
}

func vecRelease(b *Buffer) error {
	c := (*vecCtrl)(b.ctrl)
	if c.refs.Add(-1) == 0 {
		c.buf = nil
	}
	return nil
}

func vecIsUnique(b *Buffer) bool {
	return (*vecCtrl)(b.ctrl).refs.Load() == 1
}

// vecExtract implements both extraction directions for the two vec
// backends. The move happens only when this is the sole handle, the
// window covers the backing, and the backing matches the requested
// flavor; every other combination copies.
func vecExtract(b *Buffer, wantAligned bool) []byte {
	c := (*vecCtrl)(b.ctrl)
	if c.aligned == wantAligned && c.refs.Load() == 1 && c.covers(b.data) {
		out := c.buf
		c.buf = nil
		c.refs.Add(-1)
		return out
	}
	var out []byte
	if wantAligned {
		out = copyAligned(b)
	} else {
		out = copyBytes(b)
	}
	vecRelease(b)
	return out
}

func vecIntoBytes(b *Buffer) []byte   { return vecExtract(b, false) }
func vecIntoAligned(b *Buffer) []byte { return vecExtract(b, true) }

var vecVT = vtable{
	clone:       vecClone,
	release:     vecRelease,
	isUnique:    vecIsUnique,
	intoBytes:   vecIntoBytes,
	intoAligned: vecIntoAligned,
}

var alignedVT = vtable{
	clone:       vecClone,
	release:     vecRelease,
	isUnique:    vecIsUnique,
	intoBytes:   vecIntoBytes,
	intoAligned: vecIntoAligned,
}

// Owned backend: wraps an arbitrary externally owned byte source. The
// owner's native form is unknown, so extraction always copies.

type ownedCtrl struct {
	refs  atomic.Int64
	owner Owner
}

func ownedRelease(b *Buffer) error {
	c := (*ownedCtrl)(b.ctrl)
	if c.refs.Add(-1) == 0 {
		owner := c.owner
		c.owner = nil
		if closer, ok := owner.(interface{ Close() error }); ok {
			return closer.Close()
		}
	}
	return nil
}

func ownedIntoBytes(b *Buffer) []byte {
	out := copyBytes(b)
	ownedRelease(b) //nolint:errcheck // extraction never fails
	return out
}

func ownedIntoAligned(b *Buffer) []byte {
	out := copyAligned(b)
	ownedRelease(b) //nolint:errcheck // extraction never fails
	return out
}

var ownedVT = vtable{
	clone: func(b *Buffer) *Buffer {
		(*ownedCtrl)(b.ctrl).refs.Add(1)
		return aliasClone(b)
	},
	release: ownedRelease,
	isUnique: func(b *Buffer) bool {
		return (*ownedCtrl)(b.ctrl).refs.Load() == 1
	},
	intoBytes:   ownedIntoBytes,
	intoAligned: ownedIntoAligned,
}

// Memfd backend: like owned, but the backing store is a shared kernel
// mapping that cannot be moved out, and the table additionally exposes
// descriptor extraction.

type memfdCtrl struct {
	refs atomic.Int64
	mem  *Memfd
}

func memfdRelease(b *Buffer) error {
	c := (*memfdCtrl)(b.ctrl)
	if c.refs.Add(-1) == 0 {
		return c.mem.Close()
	}
	return nil
}

func memfdIntoBytes(b *Buffer) []byte {
	out := copyBytes(b)
	memfdRelease(b) //nolint:errcheck // extraction never fails
	return out
}

func memfdIntoAligned(b *Buffer) []byte {
	out := copyAligned(b)
	memfdRelease(b) //nolint:errcheck // extraction never fails
	return out
}

var memfdVT = vtable{
	clone: func(b *Buffer) *Buffer {
		(*memfdCtrl)(b.ctrl).refs.Add(1)
		return aliasClone(b)
	},
	release: memfdRelease,
	isUnique: func(b *Buffer) bool {
		return (*memfdCtrl)(b.ctrl).refs.Load() == 1
	},
	intoBytes:   memfdIntoBytes,
	intoAligned: memfdIntoAligned,
	fd: func(b *Buffer) (int, bool) {
		return (*memfdCtrl)(b.ctrl).mem.Fd(), true
	},
}

func newVecCtrl(buf []byte, aligned bool) unsafe.Pointer {
	c := &vecCtrl{buf: buf, aligned: aligned}
	c.refs.Store(1)
	return unsafe.Pointer(c)
}

func newOwnedCtrl(o Owner) unsafe.Pointer {
	c := &ownedCtrl{owner: o}
	c.refs.Store(1)
	return unsafe.Pointer(c)
}

func newMemfdCtrl(m *Memfd) unsafe.Pointer {
	c := &memfdCtrl{mem: m}
	c.refs.Store(1)
	return unsafe.Pointer(c)
}
