package minarrow

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math/bits"
	"strings"

	"github.com/pbower/minarrow-go/internal/mem"
)

// Bitmask is a dense, bit-packed validity/boolean vector backed by a
// 64-byte aligned Buffer.
//
// Layout is Arrow-compatible: one bit per logical element, the least
// significant bit of each byte is the lowest index in that byte, 1 =
// present/true. The physical window is ceil(len/8) bytes and every
// mutation forces bits at positions >= Len() in the final occupied byte
// back to zero, so whole-byte population counts and byte-wise
// comparisons stay exact.
//
// Mutators copy-on-write: when the backing buffer is shared (a Clone or
// View is alive) the mask first materializes a private aligned copy, so
// other holders never observe the write. The mask itself is not
// internally synchronized; concurrent mutation of one Bitmask is
// unsupported.
type Bitmask struct {
	bits   *Buffer
	length int
}

// NewBitmask creates a mask of the given bit length with every bit set
// or cleared.
func NewBitmask(length int, set bool) *Bitmask {
	n := bytesForBits(length)
	buf := mem.AllocAligned(n)
	if set {
		for i := range buf {
			buf[i] = 0xFF
		}
	}
	maskTrailing(buf, length)
	return &Bitmask{bits: FromAligned(buf), length: length}
}

// BitmaskWithCapacity creates an empty mask whose physical buffer
// already holds capacity bits, so early appends grow without
// reallocating. Get tolerates reads into the unused capacity by
// returning false.
func BitmaskWithCapacity(capacity int) *Bitmask {
	buf := mem.AllocAligned(bytesForBits(capacity))
	return &Bitmask{bits: FromAligned(buf), length: 0}
}

// BitmaskFromBools packs a bool slice (true = set).
func BitmaskFromBools(vals []bool) *Bitmask {
	buf := mem.AllocAligned(bytesForBits(len(vals)))
	for i, v := range vals {
		if v {
			buf[i>>3] |= 1 << (i & 7)
		}
	}
	return &Bitmask{bits: FromAligned(buf), length: len(vals)}
}

// BitmaskFromBytes copies length bits from a bit-packed slice
// (LSB-first) and normalizes the tail. src must hold at least
// ceil(length/8) bytes.
func BitmaskFromBytes(src []byte, length int) *Bitmask {
	n := bytesForBits(length)
	buf := mem.AllocAligned(n)
	copy(buf, src[:n])
	maskTrailing(buf, length)
	return &Bitmask{bits: FromAligned(buf), length: length}
}

// BitmaskFromBuffer wraps an existing buffer of packed bits, taking
// ownership of the handle. The buffer must hold at least ceil(length/8)
// bytes; reads are served from it directly and the first mutation
// copies-on-write into a private aligned buffer. This is how masks
// arrive zero-copy from IPC and foreign owners.
func BitmaskFromBuffer(b *Buffer, length int) *Bitmask {
	if b.Len() < bytesForBits(length) {
		panic(fmt.Sprintf("minarrow: BitmaskFromBuffer: buffer holds %d bytes, need %d for %d bits",
			b.Len(), bytesForBits(length), length))
	}
	return &Bitmask{bits: b, length: length}
}

// Len returns the logical number of bits, excluding padding.
func (m *Bitmask) Len() int {
	return m.length
}

// IsEmpty reports whether the mask holds no bits.
func (m *Bitmask) IsEmpty() bool {
	return m.length == 0
}

// Bytes returns the physical bit-packed window. Read-only; it may
// alias storage shared with clones and views.
func (m *Bitmask) Bytes() []byte {
	return m.bits.Bytes()
}

// Buffer returns a new handle on the backing buffer (refcount bump).
func (m *Bitmask) Buffer() *Buffer {
	return m.bits.Clone()
}

// Clone returns a mask sharing the backing buffer. O(1); a later
// mutation of either side copies-on-write.
func (m *Bitmask) Clone() *Bitmask {
	return &Bitmask{bits: m.bits.Clone(), length: m.length}
}

// Close releases the backing buffer handle. Only required when the
// mask wraps a resource-owning buffer (memfd); heap-backed masks may
// simply be dropped.
func (m *Bitmask) Close() error {
	m.length = 0
	return m.bits.Close()
}

// Get returns bit i. Indices beyond the logical length but still
// inside the physical buffer read as false, which tolerates a buffer
// whose capacity exceeds its logical length during growth. Panics only
// when i exceeds the physical capacity.
func (m *Bitmask) Get(i int) bool {
	capBits := m.bits.Len() * 8
	if i < 0 || i >= capBits {
		panic(fmt.Sprintf("minarrow: Bitmask.Get out of physical bounds (i=%d, cap=%d)", i, capBits))
	}
	if i >= m.length {
		return false
	}
	return (m.bits.Bytes()[i>>3]>>(i&7))&1 != 0
}

// Set writes bit i, growing the mask when i is past the end. Every call
// re-normalizes the trailing bits; hot loops that batch their own
// normalization should use SetUnchecked and Word/SetWord.
func (m *Bitmask) Set(i int, v bool) {
	if i < 0 {
		panic(fmt.Sprintf("minarrow: Bitmask.Set negative index %d", i))
	}
	m.EnsureCapacity(i + 1)
	buf := m.writable()
	setBit(buf, i, v)
	maskTrailing(buf, m.length)
}

// SetTrue sets bit i.
func (m *Bitmask) SetTrue(i int) { m.Set(i, true) }

// SetFalse clears bit i.
func (m *Bitmask) SetFalse(i int) { m.Set(i, false) }

// SetUnchecked writes bit i with no growth and no trailing-bit
// normalization. The caller guarantees i is inside the physical
// capacity and re-normalizes after its batch.
func (m *Bitmask) SetUnchecked(i int, v bool) {
	setBit(m.writable(), i, v)
}

// Word returns the w-th 64-bit little-endian word of the mask. The
// caller guarantees the word lies fully inside the physical buffer.
func (m *Bitmask) Word(w int) uint64 {
	return binary.LittleEndian.Uint64(m.bits.Bytes()[w*8:])
}

// SetWord writes the w-th 64-bit word without normalization; a batch
// primitive with the same preconditions as Word.
func (m *Bitmask) SetWord(w int, word uint64) {
	binary.LittleEndian.PutUint64(m.writable()[w*8:], word)
}

// Normalize forces all trailing bits back to zero. Call after a batch
// of unchecked writes.
func (m *Bitmask) Normalize() {
	maskTrailing(m.writable(), m.length)
}

// EnsureCapacity grows the mask so at least n bits are addressable,
// extending the logical length with cleared bits when n exceeds it.
func (m *Bitmask) EnsureCapacity(n int) {
	need := bytesForBits(n)
	if m.bits.Len() < need {
		m.materialize(need, 0)
	}
	if n > m.length {
		m.length = n
		maskTrailing(m.writable(), m.length)
	}
}

// SetBitsChunk writes the low n bits of value starting at bit
// position start, growing as needed.
func (m *Bitmask) SetBitsChunk(start int, value uint64, n int) {
	if n > 64 {
		panic("minarrow: Bitmask.SetBitsChunk: n > 64")
	}
	for i := 0; i < n; i++ {
		m.Set(start+i, (value>>i)&1 != 0)
	}
}

// PushBits appends n bits, all set or cleared.
func (m *Bitmask) PushBits(v bool, n int) {
	m.Resize(m.length+n, v)
}

// Resize grows or shrinks the mask to length n. Bits gained by growth
// take the fill value; the tail is re-normalized.
func (m *Bitmask) Resize(n int, fill bool) {
	var fillByte byte
	if fill {
		fillByte = 0xFF
	}
	old := m.length
	buf := m.materialize(bytesForBits(n), fillByte)
	if n > old {
		// materialize filled whole bytes past the occupied prefix; bits
		// gained inside the old partial byte are written individually.
		for i := old; i < n && i>>3 < bytesForBits(old); i++ {
			setBit(buf, i, fill)
		}
	}
	m.length = n
	maskTrailing(buf, n)
}

// Fill sets every bit to the given value.
func (m *Bitmask) Fill(v bool) {
	var b byte
	if v {
		b = 0xFF
	}
	buf := m.writable()
	for i := range buf {
		buf[i] = b
	}
	maskTrailing(buf, m.length)
}

// CountOnes returns the number of set bits: whole bytes by population
// count, the partial final byte masked. O(len/8).
func (m *Bitmask) CountOnes() int {
	buf := m.bits.Bytes()
	full := m.length / 8
	count := 0
	for _, b := range buf[:full] {
		count += bits.OnesCount8(b)
	}
	if rem := m.length & 7; rem != 0 {
		mask := byte(1<<rem) - 1
		count += bits.OnesCount8(buf[full] & mask)
	}
	return count
}

// CountZeros returns the number of cleared bits.
func (m *Bitmask) CountZeros() int {
	return m.length - m.CountOnes()
}

// NullCount is CountZeros under its validity-mask name.
func (m *Bitmask) NullCount() int {
	return m.CountZeros()
}

// AllTrue reports whether every bit is set. True for an empty mask.
func (m *Bitmask) AllTrue() bool {
	if m.length == 0 {
		return true
	}
	buf := m.bits.Bytes()
	full := m.length / 8
	for _, b := range buf[:full] {
		if b != 0xFF {
			return false
		}
	}
	if rem := m.length & 7; rem != 0 {
		mask := byte(1<<rem) - 1
		return buf[full]&mask == mask
	}
	return true
}

// AllFalse reports whether every bit is cleared. True for an empty mask.
func (m *Bitmask) AllFalse() bool {
	if m.length == 0 {
		return true
	}
	buf := m.bits.Bytes()
	full := m.length / 8
	for _, b := range buf[:full] {
		if b != 0 {
			return false
		}
	}
	if rem := m.length & 7; rem != 0 {
		mask := byte(1<<rem) - 1
		return buf[full]&mask == 0
	}
	return true
}

// HasNulls reports whether any bit is cleared.
func (m *Bitmask) HasNulls() bool {
	return !m.AllTrue()
}

// SplitOff splits the mask at bit position at, truncating the receiver
// to [0, at) and returning a new mask holding [at, len).
//
// A byte-aligned split reuses the backing buffer's O(1) slice, so both
// sides share storage until one mutates. An unaligned split cannot be
// produced by pointer arithmetic alone: it rebuilds the tail bit by bit
// into a fresh buffer, O(n) in the tail length.
func (m *Bitmask) SplitOff(at int) *Bitmask {
	if at < 0 || at > m.length {
		panic(fmt.Sprintf("minarrow: Bitmask.SplitOff index %d out of bounds for len %d", at, m.length))
	}
	if at == m.length {
		return NewBitmask(0, false)
	}

	tailLen := m.length - at

	if at&7 == 0 {
		startByte := at >> 3
		phys := m.bits.Len()
		right := m.bits.Slice(startByte, phys)
		left := m.bits.Slice(0, startByte)
		m.bits.Close()
		m.bits = left
		m.length = at
		return &Bitmask{bits: right, length: tailLen}
	}

	out := NewBitmask(tailLen, false)
	obuf := out.writable()
	src := m.bits.Bytes()
	for i := 0; i < tailLen; i++ {
		j := at + i
		if (src[j>>3]>>(j&7))&1 != 0 {
			obuf[i>>3] |= 1 << (i & 7)
		}
	}
	maskTrailing(obuf, tailLen)

	buf := m.materialize(bytesForBits(at), 0)
	m.length = at
	maskTrailing(buf, at)
	return out
}

// ExtendFromSlice appends n bits from an external bit-packed slice
// (LSB-first). When the current length is byte-aligned the source bytes
// are copied wholesale with a masked tail; otherwise the append runs
// bit by bit.
func (m *Bitmask) ExtendFromSlice(src []byte, n int) {
	start := m.length
	m.Resize(start+n, false)
	buf := m.writable()

	if start&7 == 0 {
		dstByte := start >> 3
		fullBytes := n >> 3
		copy(buf[dstByte:dstByte+fullBytes], src[:fullBytes])
		if tail := n & 7; tail != 0 {
			mask := byte(1<<tail) - 1
			buf[dstByte+fullBytes] &^= mask
			buf[dstByte+fullBytes] |= src[fullBytes] & mask
		}
		maskTrailing(buf, m.length)
		return
	}

	for i := 0; i < n; i++ {
		setBit(buf, start+i, (src[i>>3]>>(i&7))&1 != 0)
	}
	maskTrailing(buf, m.length)
}

// ExtendFromBitmask appends every bit of other.
func (m *Bitmask) ExtendFromBitmask(other *Bitmask) {
	m.ExtendFromSlice(other.Bytes(), other.Len())
}

// Union returns the element-wise OR of two equal-length masks.
func (m *Bitmask) Union(other *Bitmask) *Bitmask {
	return m.combine(other, func(a, b byte) byte { return a | b })
}

// Intersect returns the element-wise AND of two equal-length masks.
func (m *Bitmask) Intersect(other *Bitmask) *Bitmask {
	return m.combine(other, func(a, b byte) byte { return a & b })
}

func (m *Bitmask) combine(other *Bitmask, op func(a, b byte) byte) *Bitmask {
	if m.length != other.length {
		panic(fmt.Sprintf("minarrow: Bitmask length mismatch (%d vs %d)", m.length, other.length))
	}
	out := NewBitmask(m.length, false)
	obuf := out.writable()
	a, b := m.bits.Bytes(), other.bits.Bytes()
	for i := range obuf {
		obuf[i] = op(a[i], b[i])
	}
	maskTrailing(obuf, m.length)
	return out
}

// Invert returns a mask with every bit flipped.
func (m *Bitmask) Invert() *Bitmask {
	out := NewBitmask(m.length, false)
	obuf := out.writable()
	src := m.bits.Bytes()
	for i := range obuf {
		obuf[i] = ^src[i]
	}
	maskTrailing(obuf, m.length)
	return out
}

// SetIndices iterates the indices of all set bits in order.
func (m *Bitmask) SetIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		buf := m.bits.Bytes()
		for i := 0; i < m.length; i++ {
			if (buf[i>>3]>>(i&7))&1 != 0 {
				if !yield(i) {
					return
				}
			}
		}
	}
}

// ClearedIndices iterates the indices of all cleared bits in order.
func (m *Bitmask) ClearedIndices() iter.Seq[int] {
	return func(yield func(int) bool) {
		buf := m.bits.Bytes()
		for i := 0; i < m.length; i++ {
			if (buf[i>>3]>>(i&7))&1 == 0 {
				if !yield(i) {
					return
				}
			}
		}
	}
}

// SliceClone materializes bits [offset, offset+n) into a new,
// independently owned mask.
func (m *Bitmask) SliceClone(offset, n int) *Bitmask {
	if offset < 0 || n < 0 || offset+n > m.length {
		panic(fmt.Sprintf("minarrow: Bitmask.SliceClone [%d, %d+%d) out of bounds for len %d", offset, offset, n, m.length))
	}
	out := NewBitmask(n, false)
	obuf := out.writable()
	src := m.bits.Bytes()
	for i := 0; i < n; i++ {
		j := offset + i
		if (src[j>>3]>>(j&7))&1 != 0 {
			obuf[i>>3] |= 1 << (i & 7)
		}
	}
	maskTrailing(obuf, n)
	return out
}

// SliceWindow returns the zero-copy byte window covering bits
// [offset, offset+n): the packed bytes, the bit offset of the first
// bit inside the first byte, and the logical bit length.
func (m *Bitmask) SliceWindow(offset, n int) ([]byte, int, int) {
	if offset < 0 || n < 0 || offset+n > m.length {
		panic(fmt.Sprintf("minarrow: Bitmask.SliceWindow [%d, %d+%d) out of bounds for len %d", offset, offset, n, m.length))
	}
	startByte := offset >> 3
	endByte := bytesForBits(offset + n)
	return m.bits.Bytes()[startByte:endByte], offset & 7, n
}

// View returns a zero-copy read-only window over [offset, offset+n).
func (m *Bitmask) View(offset, n int) *BitmaskView {
	return NewBitmaskView(m, offset, n)
}

// Equal reports logical equality: same length and same bit content.
// Backend and physical capacity are irrelevant.
func (m *Bitmask) Equal(other *Bitmask) bool {
	if m.length != other.length {
		return false
	}
	a, b := m.bits.Bytes(), other.bits.Bytes()
	full := m.length / 8
	for i := 0; i < full; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	if rem := m.length & 7; rem != 0 {
		mask := byte(1<<rem) - 1
		return a[full]&mask == b[full]&mask
	}
	return true
}

// String renders a short preview of the mask.
func (m *Bitmask) String() string {
	const maxPreview = 64
	var sb strings.Builder
	fmt.Fprintf(&sb, "Bitmask [%d bits] (ones: %d, zeros: %d) [", m.length, m.CountOnes(), m.CountZeros())
	for i := 0; i < m.length && i < maxPreview; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if m.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	if m.length > maxPreview {
		fmt.Fprintf(&sb, " … (%d total)", m.length)
	}
	sb.WriteByte(']')
	return sb.String()
}

// writable returns the mask's backing bytes, materializing a private
// aligned copy first when the buffer is shared or foreign-backed. The
// uniqueness check is what makes every mutator copy-on-write.
func (m *Bitmask) writable() []byte {
	return m.materialize(m.bits.Len(), 0)
}

// materialize guarantees the backing is a uniquely owned aligned vec of
// exactly n bytes, preserving the occupied prefix and writing fill into
// every byte past it. The fill boundary is the logical occupancy
// ceil(len/8), not the physical length: spare capacity bytes hold no
// live bits, so growth into them must take the fill value like any
// other gained byte. Returns the writable slice.
func (m *Bitmask) materialize(n int, fill byte) []byte {
	occupied := bytesForBits(m.length)
	cur := m.bits.Bytes()
	if len(cur) == n {
		if w := m.bits.mutable(); w != nil {
			fillFrom(w, occupied, fill)
			return w
		}
	}
	next := mem.AllocAligned(n)
	copy(next, cur)
	fillFrom(next, occupied, fill)
	m.bits.Close()
	m.bits = FromAligned(next)
	return next
}

func fillFrom(buf []byte, start int, fill byte) {
	for i := start; i < len(buf); i++ {
		buf[i] = fill
	}
}

func bytesForBits(n int) int {
	return (n + 7) / 8
}

func setBit(buf []byte, i int, v bool) {
	if v {
		buf[i>>3] |= 1 << (i & 7)
	} else {
		buf[i>>3] &^= 1 << (i & 7)
	}
}

// maskTrailing zeroes every bit at position >= length in the occupied
// prefix and every byte past it, keeping popcounts and byte compares
// exact.
func maskTrailing(buf []byte, length int) {
	if length&7 != 0 {
		buf[length>>3] &= byte(1<<(length&7)) - 1
	}
	for i := bytesForBits(length); i < len(buf); i++ {
		buf[i] = 0
	}
}
