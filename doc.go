// Package minarrow provides the memory substrate for a columnar,
// Arrow-compatible array library: a zero-copy reference-counted byte
// buffer and a bit-packed validity mask built on top of it.
//
// # Buffer
//
// A Buffer is a small handle over pluggable byte storage. Cloning and
// slicing are O(1) pointer operations that bump an atomic reference
// count; extraction to an owned slice is zero-copy whenever the handle
// is the unique owner of a matching backend:
//
//	buf := minarrow.FromBytes([]byte{1, 2, 3, 4, 5})
//	win := buf.Slice(1, 4)       // zero-copy window
//	dup := buf.Clone()           // refcount bump
//	out := dup.IntoBytes()       // owned []byte, copies only if shared
//
// Backends: static data, plain heap slices, 64-byte aligned slices
// (SIMD origin guarantee), arbitrary foreign owners, and Linux
// memfd-backed shared memory. Each backend is a static dispatch table
// selected at construction; the handle shape never changes.
//
// # Bitmask
//
// A Bitmask is a dense LSB-first validity vector (1 = present) packed
// one bit per element over an aligned Buffer. Bits beyond the logical
// length are kept zero after every mutation, so whole-byte population
// counts and byte-wise comparisons stay exact:
//
//	m := minarrow.NewBitmask(10, false)
//	m.Set(3, true)
//	m.Set(7, true)
//	ones := m.CountOnes() // 2
//
// BitmaskView gives a zero-copy logical window over a mask. Mutating
// the parent afterwards copies-on-write, so views stay stable.
//
// # Cross-process sharing
//
// On Linux, NewMemfd allocates anonymous shared memory with a 64-byte
// aligned usable window. The file descriptor travels over the caller's
// own IPC channel; the peer calls ReopenMemfd with the creator's PID.
// FromMemfd plugs the region into the ordinary Buffer contract while
// preserving fd extraction via MemfdFd.
//
// # Concurrency
//
// Buffers are safe to share across goroutines; the only shared mutable
// state is the atomic reference count. A Bitmask is not internally
// synchronized: give each goroutine its own Clone or an exclusive view.
//
// The snapshot subpackage serializes buffer sets to any io.Writer with
// block compression (LZ4, zstd) and CRC32C framing.
package minarrow
