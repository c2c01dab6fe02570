package minarrow

import (
	"github.com/pbower/minarrow-go/internal/shm"
)

var (
	// ErrUnsupportedPlatform is returned by the memfd constructors on
	// platforms without memfd support (anything other than Linux).
	ErrUnsupportedPlatform = shm.ErrUnsupported

	// ErrEmptyName is returned when a memfd region name is empty.
	ErrEmptyName = shm.ErrEmptyName

	// ErrZeroSize is returned when a memfd region size is not positive.
	ErrZeroSize = shm.ErrZeroSize
)

// ErrRegionTooSmall indicates a reopened shared-memory region smaller
// than the caller expected.
//
// Use errors.As to retrieve the expected and actual sizes.
type ErrRegionTooSmall = shm.ErrRegionTooSmall
