package minarrow

import (
	"fmt"
	"iter"
	"strings"
)

// BitmaskView is a zero-copy, read-only logical window over a Bitmask.
//
// The view holds its own clone of the mask, so a later mutation of the
// parent copies-on-write away from the shared buffer and the view's
// content stays stable. All indices are relative to the window and all
// accessors remap into the parent's coordinate space. Further slicing
// composes offsets without touching storage.
type BitmaskView struct {
	mask   *Bitmask
	offset int
	length int
}

// NewBitmaskView creates a view over mask[offset, offset+n). Panics
// when the window does not fit.
func NewBitmaskView(mask *Bitmask, offset, n int) *BitmaskView {
	if offset < 0 || n < 0 || offset+n > mask.Len() {
		panic(fmt.Sprintf("minarrow: BitmaskView [%d, %d+%d) out of bounds for mask len %d",
			offset, offset, n, mask.Len()))
	}
	return &BitmaskView{mask: mask.Clone(), offset: offset, length: n}
}

// Len returns the number of bits in the window.
func (v *BitmaskView) Len() int {
	return v.length
}

// IsEmpty reports whether the window holds no bits.
func (v *BitmaskView) IsEmpty() bool {
	return v.length == 0
}

// Get returns the bit at window-relative index i.
func (v *BitmaskView) Get(i int) bool {
	if i < 0 || i >= v.length {
		panic(fmt.Sprintf("minarrow: BitmaskView.Get index %d out of bounds for window len %d", i, v.length))
	}
	return v.mask.Get(v.offset + i)
}

// Slice returns a sub-view; offsets compose without touching storage.
func (v *BitmaskView) Slice(offset, n int) *BitmaskView {
	if offset < 0 || n < 0 || offset+n > v.length {
		panic(fmt.Sprintf("minarrow: BitmaskView.Slice [%d, %d+%d) out of bounds for window len %d",
			offset, offset, n, v.length))
	}
	return &BitmaskView{mask: v.mask.Clone(), offset: v.offset + offset, length: n}
}

// AsBytesWindow returns the packed bytes covering the window, the bit
// offset of the first bit within the first byte, and the bit length.
func (v *BitmaskView) AsBytesWindow() ([]byte, int, int) {
	return v.mask.SliceWindow(v.offset, v.length)
}

// ToBitmask materializes only the windowed bits into a new,
// independently owned Bitmask.
func (v *BitmaskView) ToBitmask() *Bitmask {
	return v.mask.SliceClone(v.offset, v.length)
}

// CountOnes returns the number of set bits inside the window.
func (v *BitmaskView) CountOnes() int {
	count := 0
	for i := 0; i < v.length; i++ {
		if v.mask.Get(v.offset + i) {
			count++
		}
	}
	return count
}

// CountZeros returns the number of cleared bits inside the window.
func (v *BitmaskView) CountZeros() int {
	return v.length - v.CountOnes()
}

// SetIndices iterates window-relative indices of set bits in order.
func (v *BitmaskView) SetIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < v.length; i++ {
			if v.mask.Get(v.offset+i) && !yield(i) {
				return
			}
		}
	}
}

// Equal reports logical equality of two windows.
func (v *BitmaskView) Equal(other *BitmaskView) bool {
	if v.length != other.length {
		return false
	}
	for i := 0; i < v.length; i++ {
		if v.mask.Get(v.offset+i) != other.mask.Get(other.offset+i) {
			return false
		}
	}
	return true
}

// Close releases the view's hold on the parent mask's buffer.
func (v *BitmaskView) Close() error {
	v.length = 0
	v.offset = 0
	return v.mask.Close()
}

// String renders a short preview of the window.
func (v *BitmaskView) String() string {
	const maxPreview = 64
	var sb strings.Builder
	fmt.Fprintf(&sb, "BitmaskView [%d bits @ %d] [", v.length, v.offset)
	for i := 0; i < v.length && i < maxPreview; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if v.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	if v.length > maxPreview {
		fmt.Fprintf(&sb, " … (%d total)", v.length)
	}
	sb.WriteByte(']')
	return sb.String()
}
