package minarrow

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ToRoaring converts the dense mask into a compressed roaring bitmap of
// its set-bit indices. Useful for handing validity information to
// set-oriented filter engines without exposing the packed byte layout.
func (m *Bitmask) ToRoaring() *roaring.Bitmap {
	rb := roaring.New()
	buf := m.bits.Bytes()
	for i := 0; i < m.length; i++ {
		if (buf[i>>3]>>(i&7))&1 != 0 {
			rb.Add(uint32(i)) //nolint:gosec // mask indices fit uint32 in practice
		}
	}
	return rb
}

// BitmaskFromRoaring builds a dense mask of the given bit length with
// every index present in rb set. Indices at or beyond length are
// ignored.
func BitmaskFromRoaring(rb *roaring.Bitmap, length int) *Bitmask {
	m := NewBitmask(length, false)
	buf := m.writable()
	it := rb.Iterator()
	for it.HasNext() {
		i := int(it.Next())
		if i >= length {
			break
		}
		buf[i>>3] |= 1 << (i & 7)
	}
	maskTrailing(buf, length)
	return m
}
