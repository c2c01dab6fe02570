package minarrow

import (
	"sync/atomic"

	"github.com/pbower/minarrow-go/internal/shm"
)

// Memfd is an anonymous shared-memory buffer backed by a Linux memfd.
//
// The usable window is guaranteed to begin on a 64-byte boundary for
// SIMD loads. The file descriptor can be shared with other processes,
// which then map the same physical pages for true zero-copy access:
//
//	// creator
//	m, _ := minarrow.NewMemfd("table_col0", 1<<20)
//	fd := m.Fd() // transmit fd + os.Getpid() over your own IPC channel
//
//	// peer
//	m, _ := minarrow.ReopenMemfd(creatorPID, fd, 1<<20)
//
// Closing a Memfd unmaps the region and closes the descriptor; other
// processes' duplicated descriptors and mappings stay valid because the
// kernel keeps the pages alive while any reference exists.
//
// Linux only: constructors return ErrUnsupportedPlatform elsewhere.
type Memfd struct {
	region *shm.Region
	name   string
	closed atomic.Bool
}

// NewMemfd creates an anonymous shared-memory buffer of the given size.
// The name is a debugging label visible in /proc/<pid>/fd. On any
// syscall failure every partially acquired resource is released before
// the error is returned.
func NewMemfd(name string, size int) (*Memfd, error) {
	region, err := shm.Create(name, size)
	if err != nil {
		return nil, err
	}
	return &Memfd{region: region, name: name}, nil
}

// ReopenMemfd opens another process's memfd through its fd table and
// duplicates the descriptor so this handle owns an independent
// lifetime. Fails with ErrRegionTooSmall when the region holds fewer
// than size bytes.
//
// Requires the same user as the creator process or CAP_SYS_PTRACE.
func ReopenMemfd(creatorPID, fd, size int) (*Memfd, error) {
	region, err := shm.Open(creatorPID, fd, size)
	if err != nil {
		return nil, err
	}
	return &Memfd{region: region}, nil
}

// Name returns the label the region was created with. Empty for
// reopened regions.
func (m *Memfd) Name() string {
	return m.name
}

// Fd returns the raw file descriptor for sharing with other processes.
func (m *Memfd) Fd() int {
	return m.region.Fd()
}

// Len returns the usable length in bytes.
func (m *Memfd) Len() int {
	return m.region.Size()
}

// IsEmpty reports whether the buffer holds no bytes.
func (m *Memfd) IsEmpty() bool {
	return m.region.Size() == 0
}

// Bytes returns the aligned usable window. Writes through it are seen
// by every process mapping the region. Returns nil after Close.
func (m *Memfd) Bytes() []byte {
	return m.region.Bytes()
}

// SetBytes copies p into the start of the region. Fails with
// ErrRegionTooSmall when p does not fit.
func (m *Memfd) SetBytes(p []byte) error {
	dst := m.Bytes()
	if len(p) > len(dst) {
		return &ErrRegionTooSmall{Expected: len(p), Actual: len(dst)}
	}
	copy(dst, p)
	return nil
}

// Close unmaps the region and closes the descriptor. Idempotent.
func (m *Memfd) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	return m.region.Close()
}

// FromMemfd wraps the region in a Buffer, transferring ownership: the
// region is released when the last handle closes. Unlike FromOwner the
// memfd dispatch table keeps descriptor extraction available through
// Buffer.MemfdFd, and all other operations behave like any other
// backend.
func FromMemfd(m *Memfd) *Buffer {
	return &Buffer{data: m.Bytes(), ctrl: newMemfdCtrl(m), vt: &memfdVT}
}
