package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderBoundsChecked(t *testing.T) {
	r := newReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	v8, err := r.u8(0)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x01), v8)

	v16, err := r.u16(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v16)

	v32, err := r.u32(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v32)

	v64, err := r.u64(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), v64)

	_, err = r.u32(6)
	assert.ErrorIs(t, err, ErrOutsideBoundary)

	_, err = r.u8(-1)
	assert.ErrorIs(t, err, ErrOutsideBoundary)
}

func TestReaderUintWidth(t *testing.T) {
	r := newReader([]byte{0xAA, 0xBB, 0xCC, 0xDD})

	v, err := r.uintWidth(0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xAA), v)

	v, err = r.uintWidth(0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xBBAA), v)

	_, err = r.uintWidth(0, 3)
	assert.ErrorIs(t, err, ErrOutsideBoundary)
}

func TestBackCursorReadsBackward(t *testing.T) {
	// Bytes laid out forward as they'd sit at the tail of a record: a
	// 2-byte field followed by a 1-byte field, ending at offset 3.
	data := []byte{0x11, 0x22, 0x33}
	r := newReader(data)
	cur := newBackCursor(r, 3)

	last, err := cur.readWidth(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x33), last)
	assert.Equal(t, 2, cur.pos)

	prev, err := cur.readWidth(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2211), prev)
	assert.Equal(t, 0, cur.pos)

	_, err = cur.readWidth(1)
	assert.ErrorIs(t, err, ErrOutsideBoundary)
}
