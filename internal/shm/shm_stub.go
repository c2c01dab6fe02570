//go:build !linux

package shm

// Region is a mapped anonymous shared-memory region.
// Unavailable on this platform.
type Region struct{}

// Create returns ErrUnsupported on non-Linux platforms.
func Create(name string, size int) (*Region, error) {
	return nil, ErrUnsupported
}

// Open returns ErrUnsupported on non-Linux platforms.
func Open(creatorPID, fd, size int) (*Region, error) {
	return nil, ErrUnsupported
}

// Bytes returns nil.
func (r *Region) Bytes() []byte { return nil }

// Size returns 0.
func (r *Region) Size() int { return 0 }

// Fd returns -1.
func (r *Region) Fd() int { return -1 }

// Close is a no-op.
func (r *Region) Close() error { return nil }
