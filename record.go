package mdb

import "encoding/binary"

// dataPageHeader is the fixed header every data page (magic 01 01) starts
// with: free space, the owning table-definition page, and the slot array
// of record offsets.
type dataPageHeader struct {
	freeSpace     uint16
	owner         uint32
	recordOffsets []uint16
}

func parseDataPageHeader(page []byte, version int) (dataPageHeader, error) {
	r := newReader(page)
	var h dataPageHeader
	fs, err := r.u16(2)
	if err != nil {
		return h, err
	}
	h.freeSpace = fs
	owner, err := r.u32(4)
	if err != nil {
		return h, err
	}
	h.owner = owner

	pos := 8
	if version != VersionJet3 {
		pos += 4 // ver4_unknown_dat1
	}
	count, err := r.u16(pos)
	if err != nil {
		return h, err
	}
	pos += 2
	offsets := make([]uint16, count)
	for i := 0; i < int(count); i++ {
		v, err := r.u16(pos)
		if err != nil {
			return h, err
		}
		offsets[i] = v
		pos += 2
	}
	h.recordOffsets = offsets
	return h, nil
}

const (
	slotFlagDeleted  = 0x8000
	slotFlagOverflow = 0x4000
	slotOffsetMask   = 0x0FFF
)

// buildOwnerPageMap scans every data page once and groups page indices by
// the owning TDEF page number named in each page's header, giving §4.4's
// allocation-map fallback something to fall back to. Built once at Parse
// time (§9: the reverse-indexed mapping "can be stale after deletions" but
// remains the best-effort fallback when the inline usage map itself can't
// be read).
func buildOwnerPageMap(ps *pageStore, version int) map[int][]int {
	out := make(map[int][]int)
	for _, pn := range ps.dataPages() {
		hdr, err := parseDataPageHeader(ps.page(pn), version)
		if err != nil {
			continue
		}
		owner := int(hdr.owner)
		out[owner] = append(out[owner], pn)
	}
	return out
}

// collectTableRecords walks a table's owned data pages and reconstructs
// the raw byte range of every live record, resolving overflow pointers
// along the way. Slot offsets are laid out top-down in the page but the
// records they delimit grow bottom-up, so each record's end boundary is
// the previous slot's start offset — mirrored here with a running cursor
// exactly as the reference parser does it.
func collectTableRecords(ps *pageStore, ownedPages []int, version int) ([][]byte, []string) {
	var records [][]byte
	var anomalies []string

	for _, pn := range ownedPages {
		page := ps.page(pn)
		if page == nil || ps.kind(pn) != pageKindData {
			anomalies = append(anomalies, anoMalformedDataPage)
			continue
		}
		hdr, err := parseDataPageHeader(page, version)
		if err != nil {
			anomalies = append(anomalies, anoMalformedDataPage)
			continue
		}

		haveLast := false
		var lastOffset int
		for _, raw := range hdr.recordOffsets {
			switch {
			case raw&slotFlagDeleted != 0:
				lastOffset = int(raw & slotOffsetMask)
				haveLast = true
				continue
			case raw&slotFlagOverflow != 0:
				ptrOffset := int(raw & slotOffsetMask)
				lastOffset = ptrOffset
				haveLast = true
				if ptrOffset+4 > len(page) {
					anomalies = append(anomalies, anoMalformedRecord)
					continue
				}
				ptr := binary.LittleEndian.Uint32(page[ptrOffset : ptrOffset+4])
				rec, ok := getOverflowRecord(ps, version, ptr)
				if !ok {
					anomalies = append(anomalies, anoLookupMiss)
					continue
				}
				if len(rec) > 0 {
					records = append(records, rec)
				}
				continue
			default:
				offset := int(raw)
				var rec []byte
				if !haveLast {
					if offset > len(page) {
						anomalies = append(anomalies, anoMalformedRecord)
						continue
					}
					rec = page[offset:]
				} else {
					if offset > lastOffset || lastOffset > len(page) {
						anomalies = append(anomalies, anoMalformedRecord)
						continue
					}
					rec = page[offset:lastOffset]
				}
				lastOffset = offset
				haveLast = true
				if len(rec) > 0 {
					records = append(records, rec)
				}
			}
		}
	}
	return records, anomalies
}

// getOverflowRecord resolves a record pointer (page<<8 | slot) to the raw
// bytes of the record it addresses, used both for overflow slots and for
// long-value (LVAL) chain continuation pages.
func getOverflowRecord(ps *pageStore, version int, ptr uint32) ([]byte, bool) {
	recordOffset := int(ptr & 0xFF)
	pageNum := int(ptr >> 8)
	page := ps.page(pageNum)
	if page == nil || ps.kind(pageNum) != pageKindData {
		return nil, false
	}
	hdr, err := parseDataPageHeader(page, version)
	if err != nil {
		return nil, false
	}
	if recordOffset < 0 || recordOffset >= len(hdr.recordOffsets) {
		return nil, false
	}
	start := int(hdr.recordOffsets[recordOffset])
	if start&slotFlagDeleted != 0 {
		start &= slotOffsetMask
	}
	var rec []byte
	if recordOffset == 0 {
		if start > len(page) {
			return nil, false
		}
		rec = page[start:]
	} else {
		end := int(hdr.recordOffsets[recordOffset-1])
		if end&slotFlagDeleted != 0 {
			end &= slotOffsetMask
		}
		if start > end || end > len(page) {
			return nil, false
		}
		rec = page[start:end]
	}
	return rec, true
}

// trailerMeta is the parsed variable-length-field trailer: how many
// variable columns the record claims, which Jet-3 columns need the 0x100
// jump-table addition, the per-column byte offsets into the record, and
// the end-of-variable-region offset.
type trailerMeta struct {
	fieldCount  int
	jumpSet     map[int]bool
	offsets     []int
	varLenCount int
}

// parseTrailerMeta reads the reversed-growth trailer at the tail of a
// record (see backCursor) and, if the declared field count does not match
// the table's variable column count, rescans the first ten trailer bytes
// for one equal to that count and retries from there — the same
// best-effort resync the reference parser performs for tables with an
// extra leading dword in their metadata.
func parseTrailerMeta(record []byte, nullBitmapLen int, variableColumns int, version int) (trailerMeta, bool) {
	r := newReader(record)
	metaEnd := len(record) - nullBitmapLen
	countWidth := 2
	offWidth := 2
	if version == VersionJet3 {
		countWidth = 1
		offWidth = 1
	}

	attempt := func(end int) (trailerMeta, bool) {
		bc := newBackCursor(r, end)
		fc, err := bc.readWidth(countWidth)
		if err != nil {
			return trailerMeta{}, false
		}
		jumpSet := map[int]bool{}
		if version == VersionJet3 {
			jumpCnt := (len(record) - 1) / 256
			for i := 0; i < jumpCnt; i++ {
				b, err := bc.readWidth(1)
				if err != nil {
					return trailerMeta{}, false
				}
				jumpSet[int(b)] = true
			}
		}
		maskedCount := int(fc)
		if version != VersionJet3 {
			maskedCount = maskedCount & 0xFF
		}
		offsets := make([]int, maskedCount)
		for i := 0; i < maskedCount; i++ {
			v, err := bc.readWidth(offWidth)
			if err != nil {
				return trailerMeta{}, false
			}
			offsets[i] = int(v)
		}
		vlc, err := bc.readWidth(countWidth)
		if err != nil {
			return trailerMeta{}, false
		}
		return trailerMeta{fieldCount: int(fc), jumpSet: jumpSet, offsets: offsets, varLenCount: int(vlc)}, true
	}

	if meta, ok := attempt(metaEnd); ok && meta.fieldCount == variableColumns {
		return meta, true
	}

	for k := 0; k < 10; k++ {
		off := metaEnd - 1 - k
		if off < 0 {
			break
		}
		b, err := r.u8(off)
		if err != nil {
			continue
		}
		if int(b) == variableColumns {
			if meta, ok := attempt(metaEnd - k); ok {
				return meta, true
			}
			return trailerMeta{}, false
		}
	}
	return trailerMeta{}, false
}

// decodeRecord decodes one raw record into a name-keyed row, following
// fixed-length columns first (read directly by offset) and then
// variable-length columns (read through the trailer metadata).
func decodeRecord(td *tableDef, record []byte, version int, ps *pageStore) (map[string]any, []string) {
	var anomalies []string
	if len(record) == 0 {
		return nil, anomalies
	}

	countWidth := 2
	if version == VersionJet3 {
		countWidth = 1
	}
	r := newReader(record)
	fieldCount, err := r.uintWidth(0, countWidth)
	if err != nil {
		return nil, append(anomalies, anoMalformedRecord)
	}
	postCount := record[countWidth:]

	nullBitmapLen := (int(fieldCount) + 7) / 8
	if nullBitmapLen == 0 || nullBitmapLen >= len(record) {
		return nil, append(anomalies, anoMalformedRecord)
	}
	nullBitmap := record[len(record)-nullBitmapLen:]
	bitLen := nullBitmapLen * 8
	isSet := func(i int) bool {
		if i < 0 || i >= bitLen {
			return false
		}
		return nullBitmap[i/8]&(1<<uint(i%8)) != 0
	}

	row := make(map[string]any, len(td.orderedCols))
	var varCols []*column
	for _, c := range td.orderedCols {
		if !c.Flags.fixedLength {
			varCols = append(varCols, c)
			continue
		}

		if c.Type == TypeBoolean {
			if int(c.ColumnID) >= bitLen {
				row[c.Name] = nil
			} else {
				row[c.Name] = isSet(int(c.ColumnID))
			}
			continue
		}

		hasValue := int(c.ColumnID) < bitLen && isSet(int(c.ColumnID))
		if int(c.FixedOffset) > len(postCount) {
			anomalies = append(anomalies, anoMalformedRecord)
			continue
		}
		data := postCount[c.FixedOffset:]
		val, ok := decodeFixed(c.Type, data, int(c.Length), version, c.Various)
		if !ok {
			anomalies = append(anomalies, anoUnknownType)
			continue
		}
		if !hasValue {
			row[c.Name] = nil
			continue
		}
		row[c.Name] = val
	}

	if len(varCols) == 0 {
		return row, anomalies
	}

	meta, ok := parseTrailerMeta(record, nullBitmapLen, int(td.header.variableColumns), version)
	if !ok {
		anomalies = append(anomalies, anoMalformedVarMetadata)
		return row, anomalies
	}

	jumpAdd := 0
	for _, c := range varCols {
		hasValue := int(c.ColumnID) < bitLen && isSet(int(c.ColumnID))
		if !hasValue {
			row[c.Name] = nil
			continue
		}

		if version == VersionJet3 && meta.jumpSet[int(c.VariableColumnNumber)] {
			jumpAdd += 0x100
		}
		idx := int(c.VariableColumnNumber)
		if idx < 0 || idx >= len(meta.offsets) {
			row[c.Name] = nil
			continue
		}
		relStart := meta.offsets[idx] + jumpAdd
		relEnd := meta.varLenCount + jumpAdd
		if idx+1 < len(meta.offsets) {
			relEnd = meta.offsets[idx+1] + jumpAdd
		}
		if relStart == relEnd {
			row[c.Name] = ""
			continue
		}
		if relStart < 0 || relEnd > len(record) || relStart > relEnd {
			anomalies = append(anomalies, anoMalformedRecord)
			row[c.Name] = nil
			continue
		}

		val, anomaly := decodeVariable(c, record[relStart:relEnd], version, ps)
		if anomaly != "" {
			anomalies = append(anomalies, anomaly)
		}
		row[c.Name] = val
	}

	return row, anomalies
}

func decodeVariable(c *column, chunk []byte, version int, ps *pageStore) (any, string) {
	switch c.Type {
	case TypeMemo:
		return decodeMemo(chunk, version, ps, false)
	case TypeOLE:
		return decodeMemo(chunk, version, ps, true)
	case TypeNumeric:
		if len(chunk) != 17 {
			return append([]byte(nil), chunk...), anoMalformedRecord
		}
		scale := 6
		if c.Various.present {
			scale = int(c.Various.scale)
		}
		return decodeNumeric(chunk, scale), ""
	case TypeText:
		s, lossy := decodeTextLossy(chunk, version)
		if lossy {
			return s, anoLossyText
		}
		return s, ""
	default:
		val, ok := decodeFixed(c.Type, chunk, len(chunk), version, c.Various)
		if !ok {
			return append([]byte(nil), chunk...), anoUnknownType
		}
		return val, ""
	}
}

// decodeMemo resolves a MEMO/LVAL descriptor (memo_length, record_pointer,
// memo_unknown) to its payload: inline, a single overflow record (LVAL
// type 1), or a chain of overflow records each prefixed with the next
// page's pointer (LVAL type 2). returnRaw skips text decoding, used for
// OLE columns whose payload is arbitrary binary data.
func decodeMemo(data []byte, version int, ps *pageStore, returnRaw bool) (any, string) {
	if len(data) < 12 {
		return append([]byte(nil), data...), anoMalformedRecord
	}
	r := newReader(data)
	memoLength, _ := r.u32(0)
	recordPointer, _ := r.u32(4)
	const memoEnd = 12

	var memoData []byte
	switch {
	case memoLength&0x80000000 != 0:
		inlineLen := int(memoLength & 0x3FFFFFFF)
		if len(data) < memoEnd+inlineLen {
			memoData = data[memoEnd:]
		} else {
			memoData = data[memoEnd : memoEnd+inlineLen]
		}
	case memoLength&0x40000000 != 0:
		rec, ok := getOverflowRecord(ps, version, recordPointer)
		if !ok {
			return nil, anoLookupMiss
		}
		memoData = rec
	default:
		rec, ok := getOverflowRecord(ps, version, recordPointer)
		if !ok {
			return nil, anoLookupMiss
		}
		var buf []byte
		maxChain := ps.numPages() + 1
		for i := 0; len(rec) >= 4; i++ {
			if i >= maxChain {
				return nil, anoMalformedRecord
			}
			next := binary.LittleEndian.Uint32(rec[:4])
			buf = append(buf, rec[4:]...)
			if next == 0 {
				break
			}
			rec, ok = getOverflowRecord(ps, version, next)
			if !ok {
				return nil, anoLookupMiss
			}
		}
		memoData = buf
	}

	if len(memoData) == 0 {
		return "", ""
	}
	if returnRaw {
		return append([]byte(nil), memoData...), ""
	}
	return decodeText(memoData, version), ""
}
