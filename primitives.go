package mdb

import "encoding/binary"

// reader is a bounds-checked little-endian primitive codec over a byte
// slice, in the style of the teacher's ReadUint8/16/32/64 helpers, extended
// with the version-aware widths the Jet formats need.
type reader struct {
	data []byte
}

func newReader(data []byte) reader {
	return reader{data: data}
}

func (r reader) u8(off int) (uint8, error) {
	if off < 0 || off+1 > len(r.data) {
		return 0, ErrOutsideBoundary
	}
	return r.data[off], nil
}

func (r reader) u16(off int) (uint16, error) {
	if off < 0 || off+2 > len(r.data) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint16(r.data[off : off+2]), nil
}

func (r reader) u32(off int) (uint32, error) {
	if off < 0 || off+4 > len(r.data) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint32(r.data[off : off+4]), nil
}

func (r reader) u64(off int) (uint64, error) {
	if off < 0 || off+8 > len(r.data) {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint64(r.data[off : off+8]), nil
}

func (r reader) bytes(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(r.data) {
		return nil, ErrOutsideBoundary
	}
	return r.data[off : off+n], nil
}

// uintWidth reads an N-byte (1, 2, 4 or 8) little-endian unsigned integer
// at off. It exists so version-parameterized fields (which switch between
// 1- and 2-byte widths across Jet 3 and Jet 4+) can share one call site.
func (r reader) uintWidth(off, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.u8(off)
		return uint64(v), err
	case 2:
		v, err := r.u16(off)
		return uint64(v), err
	case 4:
		v, err := r.u32(off)
		return uint64(v), err
	case 8:
		return r.u64(off)
	default:
		return 0, ErrOutsideBoundary
	}
}

// backCursor reads version-aware trailer fields from the tail of a record
// by walking backward through ordinary, forward-addressed little-endian
// integers. The reversed byte stream described by the original construct
// layout (Int16ub over record[::-1]) is mathematically identical to a
// forward little-endian read of the same bytes — reversing the whole
// record never happens here, only the read position moves backward.
type backCursor struct {
	r   reader
	pos int // exclusive end of the next field to read
}

func newBackCursor(r reader, end int) *backCursor {
	return &backCursor{r: r, pos: end}
}

// readWidth reads a width-byte little-endian integer ending at the current
// position and moves the cursor back by width.
func (b *backCursor) readWidth(width int) (uint64, error) {
	start := b.pos - width
	if start < 0 {
		return 0, ErrOutsideBoundary
	}
	v, err := b.r.uintWidth(start, width)
	if err != nil {
		return 0, err
	}
	b.pos = start
	return v, nil
}
