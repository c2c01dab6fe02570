//go:build linux

package shm

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is a mapped anonymous shared-memory region.
// It owns both the mapping and the file descriptor.
type Region struct {
	mapped []byte // full kernel mapping, includes alignment padding
	data   []byte // usable window, 64-byte aligned
	fd     int
	closed atomic.Bool
}

// Create allocates a new memfd of size+Alignment bytes, maps it, and
// returns a region whose usable window is size bytes on a 64-byte
// boundary. The name is only a debugging label (visible in /proc/pid/fd).
//
// Every failure path releases whatever was acquired before it.
func Create(name string, size int) (*Region, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if size <= 0 {
		return nil, ErrZeroSize
	}

	// Worst case alignment padding is Alignment-1 bytes; over-allocate a
	// full Alignment so the window always fits.
	total := size + Alignment

	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(total)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate: %w", err)
	}

	mapped, err := unix.Mmap(fd, 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}

	return newRegion(mapped, fd, size)
}

// Open maps an existing memfd owned by another process through
// /proc/<pid>/fd/<fd> and duplicates the descriptor so the returned
// region has an independent lifetime. The creator closing its copy does
// not invalidate this one; the kernel keeps the pages alive while any
// mapping or descriptor remains.
func Open(creatorPID, fd, size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrZeroSize
	}

	path := fmt.Sprintf("/proc/%d/fd/%d", creatorPID, fd)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}
	total := int(fi.Size())
	if total < size {
		f.Close()
		return nil, &ErrRegionTooSmall{Expected: size, Actual: total}
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}

	dupFd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		unix.Munmap(mapped)
		f.Close()
		return nil, fmt.Errorf("shm: dup: %w", err)
	}
	f.Close()

	r, err := newRegionFd(mapped, dupFd, size)
	if err != nil {
		unix.Munmap(mapped)
		unix.Close(dupFd)
		return nil, err
	}
	return r, nil
}

func newRegion(mapped []byte, fd, size int) (*Region, error) {
	r, err := newRegionFd(mapped, fd, size)
	if err != nil {
		unix.Munmap(mapped)
		unix.Close(fd)
		return nil, err
	}
	return r, nil
}

func newRegionFd(mapped []byte, fd, size int) (*Region, error) {
	// mmap returns page-aligned addresses, so in practice the offset is
	// zero; the derivation is kept explicit so creator and reopener agree
	// on any mapping granularity.
	off := alignOffset(mapped)
	if off+size > len(mapped) {
		return nil, &ErrRegionTooSmall{Expected: off + size, Actual: len(mapped)}
	}
	return &Region{
		mapped: mapped,
		data:   mapped[off : off+size],
		fd:     fd,
	}, nil
}

func alignOffset(b []byte) int {
	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // pointer inspection only
	return int((Alignment - (addr & (Alignment - 1))) & (Alignment - 1))
}

// Bytes returns the usable aligned window, or nil after Close.
func (r *Region) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Size returns the usable window length in bytes.
func (r *Region) Size() int {
	return len(r.data)
}

// Fd returns the raw descriptor for transmission to another process.
func (r *Region) Fd() int {
	return r.fd
}

// Close unmaps the region and closes the descriptor. It is idempotent.
// Mappings and duplicated descriptors held by other processes remain
// valid.
func (r *Region) Close() error {
	if r.closed.Swap(true) {
		return nil // Already closed
	}
	err := unix.Munmap(r.mapped)
	if closeErr := unix.Close(r.fd); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
