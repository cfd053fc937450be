package mdb

// LVPROP blobs are stored in MSysObjects' LvProp long-value column and
// carry extra per-table/per-column metadata (e.g. a currency column's
// display format) that never made it into the table definition itself.
//
// magic(4) + GreedyRange(chunk), chunk = length(4) u32 + chunk_type(2) u16
// + (length-6) bytes of chunk-type-specific payload.
const (
	lvPropChunkNames = 128
	lvPropChunkValue = 0
	lvPropChunkValue2 = 1
)

type lvPropName struct {
	name string
}

type lvPropDataEntry struct {
	nameIndex int
	typ       byte
	data      []byte
}

type lvPropValueChunk struct {
	columnName string
	entries    []lvPropDataEntry
}

// parseLvProp parses one LVPROP blob into its name pool (chunk type 128)
// and its per-column value chunks. Chunks of type 0 and 1 are both parsed,
// but only type-1 chunks are returned in values.
func parseLvProp(blob []byte) (names []lvPropName, values []lvPropValueChunk, ok bool) {
	if len(blob) < 4 {
		return nil, nil, false
	}
	pos := 4 // skip magic
	for pos+6 <= len(blob) {
		r := newReader(blob)
		length, err := r.u32(pos)
		if err != nil || length < 6 {
			break
		}
		chunkType, err := r.u16(pos + 4)
		if err != nil {
			break
		}
		dataLen := int(length) - 6
		dataStart := pos + 6
		if dataLen < 0 || dataStart+dataLen > len(blob) {
			break
		}
		payload := blob[dataStart : dataStart+dataLen]

		switch chunkType {
		case lvPropChunkNames:
			names = append(names, parseLvPropNames(payload)...)
		case lvPropChunkValue, lvPropChunkValue2:
			if v, ok := parseLvPropValue(payload); ok && chunkType == lvPropChunkValue2 {
				values = append(values, v)
			}
		}
		pos = dataStart + dataLen
	}
	return names, values, true
}

func parseLvPropNames(payload []byte) []lvPropName {
	var out []lvPropName
	pos := 0
	for pos+2 <= len(payload) {
		r := newReader(payload)
		nameLen, err := r.u16(pos)
		if err != nil {
			break
		}
		pos += 2
		if pos+int(nameLen) > len(payload) {
			break
		}
		out = append(out, lvPropName{name: decodeUTF16LE(payload[pos : pos+int(nameLen)])})
		pos += int(nameLen)
	}
	return out
}

func parseLvPropValue(payload []byte) (lvPropValueChunk, bool) {
	if len(payload) < 6 {
		return lvPropValueChunk{}, false
	}
	r := newReader(payload)
	if _, err := r.u32(0); err != nil { // val_length, unused
		return lvPropValueChunk{}, false
	}
	nameLen, err := r.u16(4)
	if err != nil {
		return lvPropValueChunk{}, false
	}
	pos := 6
	if pos+int(nameLen) > len(payload) {
		return lvPropValueChunk{}, false
	}
	colName := decodeUTF16LE(payload[pos : pos+int(nameLen)])
	pos += int(nameLen)

	var entries []lvPropDataEntry
	for pos+8 <= len(payload) {
		// data_length(2) ddl_flag(1) type(1) name_index(2) only_data_length(2) actual_data(...)
		typ, err := r.u8(pos + 2)
		if err != nil {
			break
		}
		nameIndex, err := r.u16(pos + 4)
		if err != nil {
			break
		}
		onlyDataLen, err := r.u16(pos + 6)
		if err != nil {
			break
		}
		dataStart := pos + 8
		if dataStart+int(onlyDataLen) > len(payload) {
			break
		}
		entries = append(entries, lvPropDataEntry{
			nameIndex: int(nameIndex),
			typ:       typ,
			data:      payload[dataStart : dataStart+int(onlyDataLen)],
		})
		pos = dataStart + int(onlyDataLen)
	}

	return lvPropValueChunk{columnName: colName, entries: entries}, true
}

// resolveLvProps turns the parsed name pool and value chunks into
// {column name: {property name: decoded value}}.
func resolveLvProps(names []lvPropName, values []lvPropValueChunk, version int) map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, v := range values {
		if v.columnName == "" {
			continue
		}
		props := make(map[string]any)
		for _, e := range v.entries {
			if e.nameIndex < 0 || e.nameIndex >= len(names) {
				continue
			}
			val, ok := decodeFixed(e.typ, e.data, len(e.data), version, columnVarious{})
			if !ok {
				val = e.data
			}
			props[names[e.nameIndex].name] = val
		}
		out[v.columnName] = props
	}
	return out
}
