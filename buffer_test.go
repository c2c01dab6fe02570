package minarrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbower/minarrow-go/internal/mem"
)

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer()
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.IsEmpty())
	assert.True(t, b.IsUnique())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close()) // Idempotent
}

func TestBuffer_FromBytes(t *testing.T) {
	b := FromBytes([]byte("hello"))
	defer b.Close()

	assert.Equal(t, 5, b.Len())
	assert.Equal(t, []byte("hello"), b.Bytes())
	assert.True(t, b.IsUnique())
}

func TestBuffer_CloneSharesAndCountsReferences(t *testing.T) {
	b := FromBytes([]byte("shared"))

	c := b.Clone()
	assert.False(t, b.IsUnique())
	assert.False(t, c.IsUnique())
	assert.True(t, b.Equal(c))

	require.NoError(t, c.Close())
	assert.True(t, b.IsUnique())
	require.NoError(t, b.Close())
}

func TestBuffer_StaticAlwaysUnique(t *testing.T) {
	data := []byte("immortal")
	b := FromStatic(data)
	c := b.Clone()

	// Static data never needs a defensive copy: both handles stay unique.
	assert.True(t, b.IsUnique())
	assert.True(t, c.IsUnique())

	require.NoError(t, c.Close())
	assert.Equal(t, data, b.Bytes())
	require.NoError(t, b.Close())
}

func TestBuffer_CloseResetsHandle(t *testing.T) {
	b := FromBytes([]byte("gone"))
	require.NoError(t, b.Close())

	assert.True(t, b.IsEmpty())
	assert.True(t, b.IsUnique())
	require.NoError(t, b.Close())
}

func TestBuffer_Slice(t *testing.T) {
	b := FromBytes([]byte("0123456789"))
	defer b.Close()

	s := b.Slice(2, 6)
	assert.Equal(t, []byte("2345"), s.Bytes())
	assert.False(t, b.IsUnique())
	require.NoError(t, s.Close())
	assert.True(t, b.IsUnique())
}

func TestBuffer_SliceEmptyRangeIsDetached(t *testing.T) {
	b := FromBytes([]byte("abc"))
	defer b.Close()

	s := b.Slice(1, 1)
	assert.True(t, s.IsEmpty())
	// The empty slice takes no reference on the source.
	assert.True(t, b.IsUnique())
	require.NoError(t, s.Close())
}

func TestBuffer_SliceOutOfBoundsPanics(t *testing.T) {
	b := FromBytes([]byte("abc"))
	defer b.Close()

	assert.Panics(t, func() { b.Slice(0, 4) })
	assert.Panics(t, func() { b.Slice(-1, 2) })
	assert.Panics(t, func() { b.Slice(2, 1) })
}

func TestBuffer_IntoBytesZeroCopyWhenUnique(t *testing.T) {
	src := []byte("move me")
	b := FromBytes(src)

	out := b.IntoBytes()
	assert.Equal(t, []byte("move me"), out)
	// The backing moved out, not a copy of it.
	assert.Same(t, &src[0], &out[0])
	assert.True(t, b.IsEmpty())
}

func TestBuffer_IntoBytesCopiesWhenShared(t *testing.T) {
	src := []byte("copy me")
	b := FromBytes(src)
	c := b.Clone()
	defer c.Close()

	out := b.IntoBytes()
	assert.Equal(t, []byte("copy me"), out)
	assert.NotSame(t, &src[0], &out[0])
	// The clone still reads the original backing.
	assert.Equal(t, []byte("copy me"), c.Bytes())
}

func TestBuffer_IntoBytesCopiesSlicedWindow(t *testing.T) {
	b := FromBytes([]byte("0123456789"))
	s := b.Slice(3, 7)
	require.NoError(t, b.Close())

	// A sliced handle extracts its window, never the full backing.
	assert.Equal(t, []byte("3456"), s.IntoBytes())
}

func TestBuffer_AlignedRoundtrip(t *testing.T) {
	data := AllocAligned(100)
	for i := range data {
		data[i] = byte(i)
	}
	b := FromAligned(data)

	out := b.IntoAligned()
	assert.True(t, mem.IsAligned(out))
	assert.Same(t, &data[0], &out[0])
}

func TestBuffer_IntoAlignedRealignsPlainVec(t *testing.T) {
	b := FromBytes([]byte("plain heap bytes"))

	out := b.IntoAligned()
	assert.True(t, mem.IsAligned(out))
	assert.Equal(t, []byte("plain heap bytes"), out)
}

func TestBuffer_FromAlignedRejectsUnaligned(t *testing.T) {
	raw := make([]byte, 128)
	// One of the two offsets is guaranteed off a 64-byte boundary.
	off := raw[1:65]
	if mem.IsAligned(off) {
		off = raw[2:66]
	}
	assert.Panics(t, func() { FromAligned(off) })
}

type testOwner struct {
	data   []byte
	closed bool
}

func (o *testOwner) Bytes() []byte { return o.data }
func (o *testOwner) Close() error {
	o.closed = true
	return nil
}

func TestBuffer_OwnerClosedOnLastRelease(t *testing.T) {
	owner := &testOwner{data: []byte("foreign")}
	b := FromOwner(owner)
	c := b.Clone()

	require.NoError(t, b.Close())
	assert.False(t, owner.closed)
	require.NoError(t, c.Close())
	assert.True(t, owner.closed)
}

func TestBuffer_OwnerExtractionCopies(t *testing.T) {
	owner := &testOwner{data: []byte("foreign")}
	b := FromOwner(owner)

	out := b.IntoBytes()
	assert.Equal(t, []byte("foreign"), out)
	assert.NotSame(t, &owner.data[0], &out[0])
	assert.True(t, owner.closed)
}

func TestBuffer_EqualIsContentDefined(t *testing.T) {
	a := FromStatic([]byte("same"))
	b := FromBytes([]byte("same"))
	c := FromBytes([]byte("diff"))
	defer b.Close()
	defer c.Close()

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, a.EqualBytes([]byte("same")))
	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.NotEqual(t, a.Checksum(), c.Checksum())
}

func TestBuffer_Compare(t *testing.T) {
	a := FromStatic([]byte("apple"))
	b := FromStatic([]byte("banana"))

	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestBuffer_String(t *testing.T) {
	assert.Equal(t, "hello", FromStatic([]byte("hello")).String())
	assert.Equal(t, "fffe", FromStatic([]byte{0xFF, 0xFE}).String())
}

func TestBuffer_MemfdFdFalseForOtherBackends(t *testing.T) {
	for _, b := range []*Buffer{
		NewBuffer(),
		FromStatic([]byte("s")),
		FromBytes([]byte("v")),
	} {
		fd, ok := b.MemfdFd()
		assert.False(t, ok)
		assert.Equal(t, -1, fd)
		b.Close()
	}
}
