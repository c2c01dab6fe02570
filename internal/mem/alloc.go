package mem

import (
	"unsafe"
)

// Alignment is the byte alignment required for AVX-512 (64 bytes).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// Allocate size + alignment to ensure we can find an aligned offset
	// We need enough space to shift the start pointer up to Alignment-1 bytes
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	// Calculate the offset to the first aligned byte
	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	// Return the slice starting at the aligned offset
	return buf[offset : offset+uintptr(size)]
}

// IsAligned reports whether the first byte of b sits on a 64-byte boundary.
// An empty slice counts as aligned.
func IsAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	ptr := unsafe.Pointer(&b[0]) //nolint:gosec // pointer inspection only
	return uintptr(ptr)&(Alignment-1) == 0
}

// CopyAligned returns a 64-byte aligned copy of src.
func CopyAligned(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := AllocAligned(len(src))
	copy(dst, src)
	return dst
}
