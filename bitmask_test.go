package minarrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maskBools(m *Bitmask) []bool {
	out := make([]bool, m.Len())
	for i := range out {
		out[i] = m.Get(i)
	}
	return out
}

func TestBitmask_New(t *testing.T) {
	m := NewBitmask(10, false)
	assert.Equal(t, 10, m.Len())
	assert.False(t, m.IsEmpty())
	assert.True(t, m.AllFalse())
	assert.Equal(t, 0, m.CountOnes())

	s := NewBitmask(10, true)
	assert.True(t, s.AllTrue())
	assert.Equal(t, 10, s.CountOnes())
	// Physical tail bits stay zero.
	assert.Equal(t, byte(0b00000011), s.Bytes()[1])
}

func TestBitmask_Empty(t *testing.T) {
	m := NewBitmask(0, false)
	assert.True(t, m.IsEmpty())
	assert.True(t, m.AllTrue())
	assert.True(t, m.AllFalse())
	assert.Equal(t, 0, m.CountOnes())
}

func TestBitmask_SetAndGet(t *testing.T) {
	m := NewBitmask(10, false)
	m.SetTrue(3)
	m.SetTrue(7)

	assert.True(t, m.Get(3))
	assert.True(t, m.Get(7))
	assert.False(t, m.Get(0))
	assert.False(t, m.Get(9))
	assert.Equal(t, 2, m.CountOnes())
	assert.Equal(t, byte(0b10001000), m.Bytes()[0])

	m.SetFalse(3)
	assert.False(t, m.Get(3))
	assert.Equal(t, 1, m.CountOnes())
}

func TestBitmask_SetGrows(t *testing.T) {
	m := NewBitmask(4, false)
	m.Set(20, true)

	assert.Equal(t, 21, m.Len())
	assert.True(t, m.Get(20))
	// Gap bits read cleared.
	for i := 4; i < 20; i++ {
		assert.False(t, m.Get(i))
	}
}

func TestBitmask_GetBeyondPhysicalPanics(t *testing.T) {
	m := NewBitmask(10, false)
	assert.Panics(t, func() { m.Get(16) })
	assert.Panics(t, func() { m.Get(-1) })
}

func TestBitmask_CapacityReadsFalse(t *testing.T) {
	m := BitmaskWithCapacity(64)
	assert.Equal(t, 0, m.Len())
	// Unused capacity reads as cleared rather than panicking.
	assert.False(t, m.Get(63))
}

func TestBitmask_FromBools(t *testing.T) {
	vals := []bool{true, false, true, true, false, false, true}
	m := BitmaskFromBools(vals)

	assert.Equal(t, vals, maskBools(m))
	assert.Equal(t, 4, m.CountOnes())
	assert.Equal(t, 3, m.CountZeros())
}

func TestBitmask_FromBytesNormalizesTail(t *testing.T) {
	// All 16 source bits set, but only 12 are logical.
	m := BitmaskFromBytes([]byte{0xFF, 0xFF}, 12)

	assert.Equal(t, 12, m.Len())
	assert.Equal(t, 12, m.CountOnes())
	assert.Equal(t, byte(0x0F), m.Bytes()[1])
	assert.True(t, m.AllTrue())
}

func TestBitmask_FromBufferZeroCopy(t *testing.T) {
	b := FromBytes([]byte{0b10101010, 0b00000001})
	m := BitmaskFromBuffer(b, 9)

	assert.False(t, m.Get(0))
	assert.True(t, m.Get(1))
	assert.True(t, m.Get(7))
	assert.True(t, m.Get(8))
	assert.Equal(t, 5, m.CountOnes())
}

func TestBitmask_FromBufferTooShortPanics(t *testing.T) {
	b := FromBytes([]byte{0xFF})
	defer b.Close()
	assert.Panics(t, func() { BitmaskFromBuffer(b.Clone(), 9) })
}

func TestBitmask_CloneIsCopyOnWrite(t *testing.T) {
	m := BitmaskFromBools([]bool{true, false, true})
	c := m.Clone()

	c.SetTrue(1)
	assert.True(t, c.Get(1))
	// The original never observes the clone's write.
	assert.False(t, m.Get(1))

	m.SetFalse(0)
	assert.False(t, m.Get(0))
	assert.True(t, c.Get(0))
}

func TestBitmask_CountInvariant(t *testing.T) {
	m := BitmaskFromBools([]bool{true, false, true, true, false, true, false, true, true, false, true})
	assert.Equal(t, m.Len(), m.CountOnes()+m.CountZeros())
	assert.Equal(t, m.CountZeros(), m.NullCount())
	assert.True(t, m.HasNulls())
}

func TestBitmask_ExtendFromSliceAligned(t *testing.T) {
	// [1,0,1,0,1] extended with 7 bits of 0b0110011 (LSB-first:
	// 1,1,0,0,1,1,0) must yield the 12-bit concatenation.
	m := BitmaskFromBools([]bool{true, false, true, false, true})
	m.ExtendFromSlice([]byte{0b0110011}, 7)

	want := []bool{
		true, false, true, false, true,
		true, true, false, false, true, true, false,
	}
	assert.Equal(t, 12, m.Len())
	assert.Equal(t, want, maskBools(m))
}

func TestBitmask_ExtendFromBitmask(t *testing.T) {
	a := BitmaskFromBools([]bool{true, true, false})
	b := BitmaskFromBools([]bool{false, true})
	a.ExtendFromBitmask(b)

	assert.Equal(t, []bool{true, true, false, false, true}, maskBools(a))
	// The source is untouched.
	assert.Equal(t, []bool{false, true}, maskBools(b))
}

func TestBitmask_ExtendByteAlignedFastPath(t *testing.T) {
	m := NewBitmask(8, true)
	m.ExtendFromSlice([]byte{0b10110100, 0b00000101}, 11)

	assert.Equal(t, 19, m.Len())
	assert.Equal(t, byte(0xFF), m.Bytes()[0])
	assert.Equal(t, byte(0b10110100), m.Bytes()[1])
	assert.Equal(t, byte(0b00000101), m.Bytes()[2])
}

func TestBitmask_SplitOffByteAligned(t *testing.T) {
	m := BitmaskFromBytes([]byte{0b11001100, 0b10101010, 0b00001111}, 24)
	ones := m.CountOnes()

	tail := m.SplitOff(8)
	assert.Equal(t, 8, m.Len())
	assert.Equal(t, 16, tail.Len())
	assert.Equal(t, byte(0b11001100), m.Bytes()[0])
	assert.Equal(t, byte(0b10101010), tail.Bytes()[0])
	assert.Equal(t, byte(0b00001111), tail.Bytes()[1])
	assert.Equal(t, ones, m.CountOnes()+tail.CountOnes())
}

func TestBitmask_SplitOffUnaligned(t *testing.T) {
	src := []bool{true, false, true, true, false, true, false, false, true, true}
	m := BitmaskFromBools(src)

	tail := m.SplitOff(3)
	assert.Equal(t, src[:3], maskBools(m))
	assert.Equal(t, src[3:], maskBools(tail))
}

func TestBitmask_SplitMergeRoundtrip(t *testing.T) {
	src := []bool{true, false, true, true, false, true, false, false, true, true, false, true, true}
	for _, at := range []int{0, 3, 8, 13} {
		m := BitmaskFromBools(src)
		tail := m.SplitOff(at)
		m.ExtendFromBitmask(tail)
		assert.Equal(t, src, maskBools(m), "split at %d", at)
	}
}

func TestBitmask_SplitIsolation(t *testing.T) {
	m := BitmaskFromBytes([]byte{0xFF, 0xFF}, 16)
	tail := m.SplitOff(8)

	// The halves share storage until one mutates.
	tail.SetFalse(0)
	assert.True(t, m.AllTrue())
	m.SetFalse(0)
	assert.False(t, m.Get(0))
	assert.False(t, tail.Get(0))
	assert.True(t, tail.Get(1))
}

func TestBitmask_Resize(t *testing.T) {
	m := BitmaskFromBools([]bool{true, false, true})

	m.Resize(10, true)
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, []bool{true, false, true, true, true, true, true, true, true, true}, maskBools(m))

	m.Resize(2, false)
	assert.Equal(t, []bool{true, false}, maskBools(m))
	// Truncation re-normalizes the trailing bits.
	assert.Equal(t, byte(0b00000001), m.Bytes()[0])
}

func TestBitmask_FillGrowthIntoSpareCapacity(t *testing.T) {
	// Growth that lands inside pre-allocated physical bytes must still
	// take the fill value; spare capacity holds no live bits.
	m := BitmaskWithCapacity(64)
	m.PushBits(true, 10)
	assert.Equal(t, 10, m.Len())
	assert.Equal(t, 10, m.CountOnes())
	assert.True(t, m.AllTrue())

	m.Resize(20, true)
	assert.Equal(t, 20, m.CountOnes())

	// Shrink then regrow: the regained region takes the new fill.
	m.Resize(5, false)
	m.Resize(12, true)
	assert.Equal(t, 12, m.CountOnes())
	assert.True(t, m.AllTrue())

	// Same contract when the physical buffer is exactly target-sized.
	ex := BitmaskWithCapacity(16)
	ex.Resize(16, true)
	assert.Equal(t, 16, ex.CountOnes())
}

func TestBitmask_PushBits(t *testing.T) {
	m := NewBitmask(0, false)
	m.PushBits(true, 5)
	m.PushBits(false, 3)
	m.PushBits(true, 2)

	assert.Equal(t, 10, m.Len())
	assert.Equal(t, []bool{true, true, true, true, true, false, false, false, true, true}, maskBools(m))
}

func TestBitmask_Fill(t *testing.T) {
	m := NewBitmask(11, false)
	m.Fill(true)
	assert.True(t, m.AllTrue())
	assert.Equal(t, byte(0b00000111), m.Bytes()[1])

	m.Fill(false)
	assert.True(t, m.AllFalse())
}

func TestBitmask_UnionIntersectInvert(t *testing.T) {
	a := BitmaskFromBools([]bool{true, true, false, false, true})
	b := BitmaskFromBools([]bool{true, false, true, false, true})

	assert.Equal(t, []bool{true, true, true, false, true}, maskBools(a.Union(b)))
	assert.Equal(t, []bool{true, false, false, false, true}, maskBools(a.Intersect(b)))
	assert.Equal(t, []bool{false, false, true, true, false}, maskBools(a.Invert()))

	// The inverted tail stays normalized.
	inv := a.Invert()
	assert.Equal(t, inv.Len(), inv.CountOnes()+inv.CountZeros())
}

func TestBitmask_CombineLengthMismatchPanics(t *testing.T) {
	a := NewBitmask(5, false)
	b := NewBitmask(6, false)
	assert.Panics(t, func() { a.Union(b) })
	assert.Panics(t, func() { a.Intersect(b) })
}

func TestBitmask_SetIndices(t *testing.T) {
	m := BitmaskFromBools([]bool{false, true, false, true, true, false})

	var set []int
	for i := range m.SetIndices() {
		set = append(set, i)
	}
	assert.Equal(t, []int{1, 3, 4}, set)

	var cleared []int
	for i := range m.ClearedIndices() {
		cleared = append(cleared, i)
	}
	assert.Equal(t, []int{0, 2, 5}, cleared)
}

func TestBitmask_SliceClone(t *testing.T) {
	m := BitmaskFromBools([]bool{true, false, true, true, false, true, false, false, true})

	s := m.SliceClone(2, 5)
	assert.Equal(t, []bool{true, true, false, true, false}, maskBools(s))

	// Independent storage.
	s.SetFalse(0)
	assert.True(t, m.Get(2))
}

func TestBitmask_SliceWindow(t *testing.T) {
	m := BitmaskFromBytes([]byte{0b10101010, 0b11001100}, 16)

	window, bitOff, n := m.SliceWindow(3, 10)
	assert.Equal(t, 3, bitOff)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte{0b10101010, 0b11001100}, window)

	window, bitOff, n = m.SliceWindow(8, 8)
	assert.Equal(t, 0, bitOff)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0b11001100}, window)
}

func TestBitmask_Equal(t *testing.T) {
	a := BitmaskFromBools([]bool{true, false, true})
	b := BitmaskFromBools([]bool{true, false, true})
	c := BitmaskFromBools([]bool{true, false, false})
	d := BitmaskFromBools([]bool{true, false})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestBitmask_NormalizeAfterUncheckedBatch(t *testing.T) {
	m := NewBitmask(10, false)
	for i := 0; i < 10; i++ {
		m.SetUnchecked(i, true)
	}
	// Unchecked writes may dirty nothing past len here, but the batch
	// contract is to normalize afterwards.
	m.Normalize()
	assert.True(t, m.AllTrue())
	assert.Equal(t, 10, m.CountOnes())
}

func TestBitmask_WordAccess(t *testing.T) {
	m := NewBitmask(64, false)
	m.SetWord(0, 0xDEADBEEF_CAFEBABE)
	assert.Equal(t, uint64(0xDEADBEEF_CAFEBABE), m.Word(0))
	assert.True(t, m.Get(1))  // bit 1 of 0xBE
	assert.False(t, m.Get(0)) // bit 0 of 0xBE
}

func TestBitmask_SetBitsChunk(t *testing.T) {
	m := NewBitmask(0, false)
	m.SetBitsChunk(0, 0b1011, 4)
	m.SetBitsChunk(4, 0b01, 2)

	assert.Equal(t, 6, m.Len())
	assert.Equal(t, []bool{true, true, false, true, true, false}, maskBools(m))
	assert.Panics(t, func() { m.SetBitsChunk(0, 0, 65) })
}

func TestBitmask_BufferHandleSharing(t *testing.T) {
	m := BitmaskFromBools([]bool{true, true, false})
	h := m.Buffer()

	assert.Equal(t, m.Bytes(), h.Bytes())
	// The handle's existence forces copy-on-write in the mask.
	m.SetFalse(0)
	assert.Equal(t, byte(0b00000011), h.Bytes()[0])
	require.NoError(t, h.Close())
}

func TestBitmask_CloseResets(t *testing.T) {
	m := NewBitmask(16, true)
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
	require.NoError(t, m.Close())
}

func TestBitmask_String(t *testing.T) {
	m := BitmaskFromBools([]bool{true, false, true})
	s := m.String()
	assert.Contains(t, s, "3 bits")
	assert.Contains(t, s, "1 0 1")
}
