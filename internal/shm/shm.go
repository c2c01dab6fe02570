package shm

import (
	"errors"
	"fmt"
)

// Alignment is the byte alignment of the usable window (AVX-512 friendly).
const Alignment = 64

var (
	// ErrUnsupported is returned when the platform has no memfd support.
	ErrUnsupported = errors.New("shm: not supported on this platform")
	// ErrEmptyName is returned when the region name is empty.
	ErrEmptyName = errors.New("shm: name must not be empty")
	// ErrZeroSize is returned when the requested size is not positive.
	ErrZeroSize = errors.New("shm: size must be greater than 0")
)

// ErrRegionTooSmall indicates a reopened region smaller than expected.
type ErrRegionTooSmall struct {
	Expected int
	Actual   int
}

func (e *ErrRegionTooSmall) Error() string {
	return fmt.Sprintf("shm: region too small: expected at least %d bytes, got %d", e.Expected, e.Actual)
}
