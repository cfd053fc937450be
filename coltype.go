package mdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// accessEpoch is December 30, 1899 — the zero point Jet datetime doubles
// are measured from (the same epoch OLE Automation dates use).
var accessEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// decodeFixed decodes a fixed-length field's raw bytes per its type code.
// length and cv are only consulted by the few types that need them (binary
// length, numeric scale). Unrecognized type codes return (nil, false) so the
// caller can record an UnknownType anomaly without aborting the row.
func decodeFixed(typ byte, data []byte, length int, version int, cv columnVarious) (any, bool) {
	switch typ {
	case TypeBoolean:
		// handled via the null bitmap by the caller; a fixed-data boolean
		// read never happens, but keep a safe fallback.
		return len(data) > 0 && data[0] != 0, true
	case TypeInt8:
		if len(data) < 1 {
			return nil, false
		}
		return int8(data[0]), true
	case TypeInt16:
		if len(data) < 2 {
			return nil, false
		}
		return int16(binary.LittleEndian.Uint16(data)), true
	case TypeInt32, TypeComplex:
		if len(data) < 4 {
			return nil, false
		}
		return int32(binary.LittleEndian.Uint32(data)), true
	case TypeCurrency:
		if len(data) < 8 {
			return nil, false
		}
		raw := int64(binary.LittleEndian.Uint64(data))
		return formatCurrency(raw), true
	case TypeFloat32:
		if len(data) < 4 {
			return nil, false
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(data)), true
	case TypeFloat64:
		if len(data) < 8 {
			return nil, false
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), true
	case TypeDateTime:
		if len(data) < 8 {
			return nil, false
		}
		return decodeDateTime(binary.LittleEndian.Uint64(data)), true
	case TypeBinary:
		if length > len(data) {
			length = len(data)
		}
		out := make([]byte, length)
		copy(out, data[:length])
		return out, true
	case TypeGUID:
		if len(data) < 16 {
			return nil, false
		}
		id, err := uuid.FromBytes(data[:16])
		if err != nil {
			return nil, false
		}
		return id.String(), true
	case TypeNumeric:
		if len(data) < 17 {
			return nil, false
		}
		scale := int(cv.scale)
		if !cv.present {
			scale = 6
		}
		return decodeNumeric(data[:17], scale), true
	case TypeText:
		return decodeText(data, version), true
	default:
		return nil, false
	}
}

// decodeDateTime converts a Jet datetime double (days since the Access
// epoch, with a fractional time-of-day component) to a formatted string.
func decodeDateTime(bits uint64) string {
	f := math.Float64frombits(bits)
	if f == 0 {
		return "(Empty Date)"
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "(Invalid Date)"
	}
	nanos := f * 24 * float64(time.Hour)
	if nanos > float64(math.MaxInt64) || nanos < float64(math.MinInt64) {
		return "(Invalid Date)"
	}
	t := accessEpoch.Add(time.Duration(nanos))
	return t.Format("2006-01-02 15:04:05")
}

// decodeNumeric decodes the 17-byte decimal layout: a sign byte followed
// by four little-endian uint32 limbs, most significant first, combined
// into a 128-bit magnitude and rendered with the column's scale.
func decodeNumeric(data []byte, scale int) string {
	sign := data[0]
	num1 := binary.LittleEndian.Uint32(data[1:5])
	num2 := binary.LittleEndian.Uint32(data[5:9])
	num3 := binary.LittleEndian.Uint32(data[9:13])
	num4 := binary.LittleEndian.Uint32(data[13:17])

	full := new(big.Int)
	full.Lsh(big.NewInt(int64(num1)), 96)
	t2 := new(big.Int).Lsh(big.NewInt(int64(num2)), 64)
	t3 := new(big.Int).Lsh(big.NewInt(int64(num3)), 32)
	full.Add(full, t2).Add(full, t3).Add(full, big.NewInt(int64(num4)))

	return formatDecimal(sign, full, scale)
}

// formatDecimal renders an unsigned magnitude with a decimal point scale
// digits from the right, left-padding with zeros (including a leading
// "0.") when the magnitude has fewer digits than the scale demands.
func formatDecimal(sign byte, n *big.Int, scale int) string {
	s := n.String()
	if scale <= 0 {
		if sign != 0 {
			return "-" + s
		}
		return s
	}
	if len(s) <= scale {
		s = strings.Repeat("0", scale-len(s)+1) + s
	}
	dot := len(s) - scale
	result := s[:dot] + "." + s[dot:]
	if sign != 0 {
		result = "-" + result
	}
	return result
}

// formatCurrency renders a currency fixed-point integer (scaled by 1e-4)
// with four fractional digits and no format hint applied.
func formatCurrency(raw int64) string {
	sign := ""
	if raw < 0 {
		sign = "-"
	}
	whole := raw / 10000
	frac := raw % 10000
	if whole < 0 {
		whole = -whole
	}
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%s%d.%04d", sign, whole, frac)
}

// formatCurrencyWithHint renders a zero value as the literal third (zero)
// section of an Access format string when that section is non-empty, and
// every other value as formatCurrency does; no other part of the format
// string is interpreted. decodeFixed does not call it, so decoded currency
// cells are always rendered by formatCurrency without a format hint.
func formatCurrencyWithHint(raw int64, hint string) string {
	if raw == 0 && hint != "" {
		sections := strings.Split(hint, ";")
		if len(sections) >= 3 && sections[2] != "" {
			return sections[2]
		}
	}
	return formatCurrency(raw)
}

// decodeText decodes a text payload per §4.3: Jet 3 is Windows-1252,
// Jet 4+ is UTF-16LE, optionally framed as Jackcess-style compressed
// Unicode when it begins with the FF FE marker.
func decodeText(data []byte, version int) string {
	s, _ := decodeTextLossy(data, version)
	return s
}

// decodeTextLossy is decodeText plus a flag reporting whether any segment
// fell back to the lossy UTF-16 decoder, so the caller can raise a
// DecodeLossy anomaly instead of silently returning best-effort text.
func decodeTextLossy(data []byte, version int) (string, bool) {
	if version == VersionJet3 {
		return decodeText1252(data), false
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return decodeCompressedUnicode(data[2:])
	}
	return decodeUTF16LELossy(data)
}

func decodeText1252(data []byte) string {
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func decodeUTF16LE(data []byte) string {
	s, _ := decodeUTF16LELossy(data)
	return s
}

func decodeUTF16LELossy(data []byte) (string, bool) {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return lossyUTF16LE(data), true
	}
	return string(out), false
}

// lossyUTF16LE is the DecodeLossy fallback: decode what can be decoded,
// replacing anything truncated or malformed rather than failing the field.
func lossyUTF16LE(data []byte) string {
	var b strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		b.WriteRune(rune(binary.LittleEndian.Uint16(data[i : i+2])))
	}
	return b.String()
}

// decodeCompressedUnicode expands Jackcess-style compressed-Unicode
// framing, starting in compressed mode. It splits payload into alternating
// compressed (1 byte/char, terminated by a single 0x00) and uncompressed
// (2 bytes/char UTF-16LE, terminated by a 00 00 pair) runs. A compressed
// run is expanded by placing a zero high byte after each source byte and
// decoding the result as UTF-16LE. A lone trailing 0x00 inside
// an uncompressed run is data — the high byte of a character — not a
// terminator, so the uncompressed scan must consume two bytes at a time.
func decodeCompressedUnicode(payload []byte) (string, bool) {
	var out strings.Builder
	var lossy bool
	compressed := true
	pos := 0
	for pos < len(payload) {
		start := pos
		term := 0
		for pos < len(payload) {
			if compressed {
				if payload[pos] == 0x00 {
					term = 1
					break
				}
				pos++
				continue
			}
			if pos+1 >= len(payload) {
				pos = len(payload) // odd trailing byte, not a terminator
				break
			}
			if payload[pos] == 0x00 && payload[pos+1] == 0x00 {
				term = 2
				break
			}
			pos += 2
		}

		segment := payload[start:pos]
		var s string
		var l bool
		if compressed {
			expanded := make([]byte, 0, len(segment)*2)
			for _, c := range segment {
				expanded = append(expanded, c, 0x00)
			}
			s, l = decodeUTF16LELossy(expanded)
		} else {
			s, l = decodeUTF16LELossy(segment)
		}
		out.WriteString(s)
		lossy = lossy || l

		if term == 0 {
			break
		}
		pos += term
		compressed = !compressed
	}
	return out.String(), lossy
}
