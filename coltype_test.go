package mdb

import (
	"encoding/binary"
	"math"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFixedIntegers(t *testing.T) {
	v, ok := decodeFixed(TypeInt8, []byte{0xFE}, 1, VersionJet4, columnVarious{})
	require.True(t, ok)
	assert.Equal(t, int8(-2), v)

	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, 0xFFFFFFFE)
	v, ok = decodeFixed(TypeInt32, data, 4, VersionJet4, columnVarious{})
	require.True(t, ok)
	assert.Equal(t, int32(-2), v)
}

func TestDecodeFixedGUID(t *testing.T) {
	id := uuid.New()
	raw, err := id.MarshalBinary()
	require.NoError(t, err)

	v, ok := decodeFixed(TypeGUID, raw, 16, VersionJet4, columnVarious{})
	require.True(t, ok)
	assert.Equal(t, id.String(), v)
}

func TestDecodeFixedUnknownType(t *testing.T) {
	_, ok := decodeFixed(0xEE, []byte{1, 2, 3}, 3, VersionJet4, columnVarious{})
	assert.False(t, ok)
}

func TestDecodeDateTimeEmpty(t *testing.T) {
	assert.Equal(t, "(Empty Date)", decodeDateTime(0))
}

func TestDecodeDateTimeInvalid(t *testing.T) {
	assert.Equal(t, "(Invalid Date)", decodeDateTime(math.Float64bits(math.NaN())))
	assert.Equal(t, "(Invalid Date)", decodeDateTime(math.Float64bits(math.Inf(1))))
	assert.Equal(t, "(Invalid Date)", decodeDateTime(math.Float64bits(math.Inf(-1))))
	assert.Equal(t, "(Invalid Date)", decodeDateTime(math.Float64bits(math.MaxFloat64)))
}

func TestDecodeDateTimeHalfDay(t *testing.T) {
	assert.Equal(t, "1899-12-31 12:00:00", decodeDateTime(math.Float64bits(1.5)))
}

func TestFormatDecimalPadsLeadingZeros(t *testing.T) {
	n := big.NewInt(149804168)
	assert.Equal(t, "0.0149804168", formatDecimal(0, n, 10))
	assert.Equal(t, "149.804168", formatDecimal(0, n, 6))
	assert.Equal(t, "-149.804168", formatDecimal(1, n, 6))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "123.4500", formatCurrency(1234500))
	assert.Equal(t, "-1.0000", formatCurrency(-10000))
}

func TestFormatCurrencyWithHintZero(t *testing.T) {
	assert.Equal(t, "Zero", formatCurrencyWithHint(0, "Pos;Neg;Zero"))
	assert.Equal(t, "0.0000", formatCurrencyWithHint(0, ""))
	assert.Equal(t, "5.0000", formatCurrencyWithHint(50000, "Pos;Neg;Zero"))
}

func TestDecodeText1252(t *testing.T) {
	// 0xE9 in Windows-1252 is é.
	s := decodeText1252([]byte{0x68, 0x65, 0x6C, 0x6C, 0xE9})
	assert.Equal(t, "hellé", s)
}

func TestDecodeUTF16LE(t *testing.T) {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint16(data[0:2], uint16('h'))
	binary.LittleEndian.PutUint16(data[2:4], uint16('i'))
	assert.Equal(t, "hi", decodeUTF16LE(data))
}

func TestDecodeCompressedUnicode(t *testing.T) {
	// Compressed run "ab" (single bytes), terminator, empty uncompressed run.
	payload := []byte{'a', 'b', 0x00}
	s, lossy := decodeCompressedUnicode(payload)
	assert.False(t, lossy)
	assert.Equal(t, "ab", s)
}

func TestDecodeCompressedUnicodeSwitchesToUncompressed(t *testing.T) {
	// "FF FE 48 00 69 00": the FF FE prefix marks compressed unicode and is
	// stripped before this function runs, leaving "48 00 69 00" — 'H'
	// followed by the 00 terminator, then the uncompressed run "69 00"
	// ('i' as a 2-byte UTF-16LE unit). The 0x00 high byte of 'i' must not
	// be mistaken for a terminator once in uncompressed mode.
	payload := []byte{0x48, 0x00, 0x69, 0x00}
	s, lossy := decodeCompressedUnicode(payload)
	assert.False(t, lossy)
	assert.Equal(t, "Hi", s)
}

func TestDecodeNumericRoundTrip(t *testing.T) {
	data := make([]byte, 17)
	data[0] = 0
	binary.LittleEndian.PutUint32(data[1:5], 0)
	binary.LittleEndian.PutUint32(data[5:9], 0)
	binary.LittleEndian.PutUint32(data[9:13], 0)
	binary.LittleEndian.PutUint32(data[13:17], 149804168)
	assert.Equal(t, "0.0149804168", decodeNumeric(data, 10))
}

func TestDecodeFixedFloat(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(3.5))
	v, ok := decodeFixed(TypeFloat64, data, 8, VersionJet4, columnVarious{})
	require.True(t, ok)
	assert.Equal(t, 3.5, v)
}
