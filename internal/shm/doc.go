// Package shm provides anonymous, fd-addressable shared memory regions.
//
// A Region is created with memfd_create(2), sized, and mapped into the
// process. The usable window always begins on a 64-byte boundary so that
// SIMD loads on the region are safe. The backing descriptor can be handed
// to another process, which reopens the same physical pages via
// /proc/<pid>/fd introspection.
//
// Linux only. On other platforms Create and Open return ErrUnsupported;
// callers are expected to gate the feature or substitute an equivalent
// primitive (POSIX shm, Windows file mapping).
package shm
