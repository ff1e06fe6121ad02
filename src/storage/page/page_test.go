package page

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageIsZeroed(t *testing.T) {
	p := New(64)

	assert.Equal(t, 64, p.Capacity())
	assert.Equal(t, 0, p.Used())
	assert.Equal(t, 64, p.AvailSpace())
	assert.Equal(t, make([]byte, 64), p.GetData())
}

func TestByteAccessorsBounds(t *testing.T) {
	p := New(8)

	assert.True(t, p.SetByte(7, 0xAB))
	b, ok := p.GetByte(7)
	assert.True(t, ok)
	assert.Equal(t, byte(0xAB), b)

	assert.False(t, p.SetByte(8, 1))
	assert.False(t, p.SetByte(-1, 1))

	_, ok = p.GetByte(8)
	assert.False(t, ok)
	_, ok = p.GetByte(-1)
	assert.False(t, ok)

	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0xAB}, p.GetData())
}

func TestAppendShortWrite(t *testing.T) {
	p := New(10)

	assert.Equal(t, 6, p.Append([]byte("abcdef")))
	assert.Equal(t, 4, p.AvailSpace())

	n := p.Append([]byte("ghijkl"))
	assert.Equal(t, 4, n, "only the bytes that fit are written")
	assert.Equal(t, 0, p.AvailSpace())
	assert.Equal(t, []byte("abcdefghij"), p.GetData())

	assert.Equal(t, 0, p.Append([]byte("x")))
}

func TestReset(t *testing.T) {
	p := New(16)
	p.Append(bytes.Repeat([]byte{0xFF}, 12))

	p.Reset()

	assert.Equal(t, 16, p.AvailSpace())
	assert.Equal(t, make([]byte, 16), p.GetData())
}

func TestSetDataKeepsCursor(t *testing.T) {
	p := New(4)
	p.Append([]byte{1})

	p.SetData([]byte{9, 8, 7, 6})

	assert.Equal(t, []byte{9, 8, 7, 6}, p.GetData())
	assert.Equal(t, 1, p.Used())
}

type blockNo uint64

func TestScalarRoundTrip(t *testing.T) {
	p := New(32)

	require.NoError(t, Set[uint64](p, 0, 0x0102030405060708))
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, p.GetData()[:8], "little-endian layout")

	require.NoError(t, Set[int32](p, 8, -5))
	require.NoError(t, Set(p, 12, true))
	require.NoError(t, Set(p, 13, blockNo(77)))

	u, err := Get[uint64](p, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u)

	i, err := Get[int32](p, 8)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), i)

	b, err := Get[bool](p, 12)
	require.NoError(t, err)
	assert.True(t, b)

	n, err := Get[blockNo](p, 13)
	require.NoError(t, err)
	assert.Equal(t, blockNo(77), n)
}

func TestScalarShortSpan(t *testing.T) {
	p := New(10)

	_, err := Get[uint64](p, 3)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = Get[uint16](p, -1)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	err = Set[uint32](p, 8, 0xFFFFFFFF)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, make([]byte, 10), p.GetData(), "no partial write")
}

func TestStringEncoding(t *testing.T) {
	p := New(32)

	require.NoError(t, SetString(p, 4, "hello"))
	assert.Equal(t, []byte{5, 0, 0, 0}, p.GetData()[4:8])

	s, err := GetString(p, 4)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	require.NoError(t, SetBytes(p, 20, nil))
	b, err := GetBytes(p, 20)
	require.NoError(t, err)
	assert.Empty(t, b)

	assert.Equal(t, 9, EncodedLen(5))
}

func TestStringShortSpan(t *testing.T) {
	p := New(12)

	err := SetString(p, 4, "too long")
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, make([]byte, 12), p.GetData())

	// a length header that claims more bytes than the page holds
	require.NoError(t, Set[uint32](p, 0, 100))
	_, err = GetString(p, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = GetBytes(p, 10)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestGetBytesReturnsCopy(t *testing.T) {
	p := New(16)
	require.NoError(t, SetBytes(p, 0, []byte{1, 2, 3}))

	b, err := GetBytes(p, 0)
	require.NoError(t, err)
	b[0] = 42

	again, err := GetBytes(p, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}
