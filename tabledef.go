package mdb

// columnFlags is the subset of the per-column bit flags this decoder acts
// on. Jet 3 packs them into one byte, Jet 4+ into two; the extra Jet 4+
// bits (hyperlink, auto-GUID, replication, ...) are parsed by other tools
// but have no bearing on value decoding here.
type columnFlags struct {
	fixedLength      bool
	canBeNull        bool
	compressedUnicode bool // Jet 4+ only
}

// columnVarious holds the version- and type-dependent fixed-width blob that
// follows every column descriptor's core fields: LCID/code-page for text
// columns, precision/scale for numeric and decimal-family columns.
type columnVarious struct {
	codePage uint16 // text, Jet 3
	scale    uint8  // numeric (type 16) and currency-like decimal types
	present  bool
}

// column describes one table column as decoded from its TDEF descriptor.
type column struct {
	Type                 byte
	ColumnID             uint16
	VariableColumnNumber uint16
	ColumnIndex          uint16
	FixedOffset          uint16
	Length               uint16
	Flags                columnFlags
	Various              columnVarious
	Name                 string
	ExtraProps           map[string]any
}

// tableHeader is the fixed-layout portion of a table definition, parsed
// once from the table's first TDEF page.
type tableHeader struct {
	version                    int
	nextPagePtr                uint32
	headerEnd                  int
	tableDefLength             uint32
	rowCount                   uint32
	autonumber                 uint32
	tableTypeFlags             byte
	nextColumnID               uint16
	variableColumns            uint16
	columnCount                uint16
	indexCount                 uint32
	realIndexCount             uint32
	rowPageMapRowNumber        uint8
	rowPageMapPageNumber       uint32
	freeSpacePageMapRowNumber  uint8
	freeSpacePageMapPageNumber uint32
}

// realIndexEntry is REAL_INDEX: a row-count summary per physical index.
type realIndexEntry struct {
	indexRowCount uint32
}

// indexColumnSlot is one of the ten fixed column-id/flag slots inside a
// REAL_INDEX2 entry.
type indexColumnSlot struct {
	colID    uint16
	idxFlags uint8
}

// realIndex2Entry is REAL_INDEX2: the column composition of one physical
// index, referenced by ALL_INDEXES.idxColNum.
type realIndex2Entry struct {
	columns       [10]indexColumnSlot
	firstIndexPage uint32
	flags          uint8
}

// allIndexEntry is ALL_INDEXES: one logical index/relationship descriptor.
type allIndexEntry struct {
	idxColNum   uint32
	relTblType  uint8
	relIdxNum   int32
	relTblPage  uint32
	cascadeUps  uint8
	cascadeDels uint8
	idxType     uint8 // 1 == primary key
	name        string
}

// tableDef is the fully assembled table definition: header, columns (by
// declaration position and by column id), and indexes.
type tableDef struct {
	header        tableHeader
	columnsByPos  map[int]*column   // keyed by column_index, offset to be zero-based
	columnsByID   map[uint16]*column
	orderedCols   []*column // columnsByPos in ascending key order
	realIndexes   []realIndexEntry
	realIndex2s   []realIndex2Entry
	allIndexes    []allIndexEntry
	primaryKeys   []string
}

func boolWidth(v3 bool, w3, w4 int) int {
	if v3 {
		return w3
	}
	return w4
}

// parseTDEFHeaderAt parses the 8-byte TDEF_HEADER that begins every table
// definition page (the 2-byte page magic has already been consumed by page
// classification). The tdef_ver field's value is never used downstream —
// only its width matters for keeping the cursor aligned — so it is skipped
// rather than decoded.
func parseTDEFHeaderAt(r reader) (nextPagePtr uint32, headerEnd int, err error) {
	nextPagePtr, err = r.u32(4)
	if err != nil {
		return 0, 0, err
	}
	return nextPagePtr, 8, nil
}

// parseTableHeader parses parse_table_head: the fixed fields following the
// TDEF_HEADER on a table's first page.
func parseTableHeader(r reader, version int) (tableHeader, error) {
	v3 := version == VersionJet3
	pos := 8 // after TDEF_HEADER

	var h tableHeader
	h.version = version

	u32at := func() (uint32, error) {
		v, err := r.u32(pos)
		pos += 4
		return v, err
	}
	u16at := func() (uint16, error) {
		v, err := r.u16(pos)
		pos += 2
		return v, err
	}
	u8at := func() (uint8, error) {
		v, err := r.u8(pos)
		pos++
		return v, err
	}
	u24at := func() (uint32, error) {
		b0, err := r.u8(pos)
		if err != nil {
			return 0, err
		}
		b1, err := r.u8(pos + 1)
		if err != nil {
			return 0, err
		}
		b2, err := r.u8(pos + 2)
		if err != nil {
			return 0, err
		}
		pos += 3
		return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16, nil
	}

	var err error
	if h.tableDefLength, err = u32at(); err != nil {
		return h, err
	}
	if !v3 {
		if _, err = u32at(); err != nil { // ver4_unknown
			return h, err
		}
	}
	if h.rowCount, err = u32at(); err != nil {
		return h, err
	}
	if h.autonumber, err = u32at(); err != nil {
		return h, err
	}
	if !v3 {
		for i := 0; i < 3; i++ { // autonumber_increment, complex_autonumber, ver4_unknown_1
			if _, err = u32at(); err != nil {
				return h, err
			}
		}
		if _, err = u32at(); err != nil { // ver4_unknown_2
			return h, err
		}
	}
	var ttf uint8
	if ttf, err = u8at(); err != nil {
		return h, err
	}
	h.tableTypeFlags = ttf
	if h.nextColumnID, err = u16at(); err != nil {
		return h, err
	}
	if h.variableColumns, err = u16at(); err != nil {
		return h, err
	}
	if h.columnCount, err = u16at(); err != nil {
		return h, err
	}
	if h.indexCount, err = u32at(); err != nil {
		return h, err
	}
	if h.realIndexCount, err = u32at(); err != nil {
		return h, err
	}
	var rpmrn uint8
	if rpmrn, err = u8at(); err != nil {
		return h, err
	}
	h.rowPageMapRowNumber = rpmrn
	if h.rowPageMapPageNumber, err = u24at(); err != nil {
		return h, err
	}
	var fsprn uint8
	if fsprn, err = u8at(); err != nil {
		return h, err
	}
	h.freeSpacePageMapRowNumber = fsprn
	if h.freeSpacePageMapPageNumber, err = u24at(); err != nil {
		return h, err
	}
	h.headerEnd = pos
	return h, nil
}

// variousWidth returns the width of a column descriptor's always-present
// "various" sub-block: 6 bytes in Jet 3, 4 in Jet 4+, regardless of type.
func variousWidth(version int) int {
	if version == VersionJet3 {
		return 6
	}
	return 4
}

func parseColumnVarious(r reader, off int, typ byte, version int) columnVarious {
	v3 := version == VersionJet3
	var cv columnVarious
	switch typ {
	case TypeText, TypeOLE, TypeMemo, TypeBinary:
		if v3 {
			if cp, err := r.u16(off + 2); err == nil {
				cv.codePage = cp
				cv.present = true
			}
		}
	case TypeNumeric:
		if sc, err := r.u8(off + 1); err == nil {
			cv.scale = sc
			cv.present = true
		}
	case TypeBoolean, TypeInt8, TypeInt16, TypeInt32, TypeCurrency, TypeFloat32, TypeFloat64, TypeDateTime:
		// VARIOUS_DEC: max-digits/num-decimal sit at a version-dependent
		// offset; only num-decimal (the scale) is used by any decoder here.
		digitsOff := off + 2
		if !v3 {
			digitsOff = off
		}
		if sc, err := r.u8(digitsOff + 1); err == nil {
			cv.scale = sc
			cv.present = true
		}
	}
	return cv
}

func parseColumnFlags(r reader, off int, version int) (columnFlags, error) {
	var f columnFlags
	b0, err := r.u8(off)
	if err != nil {
		return f, err
	}
	f.fixedLength = b0&0x01 != 0
	f.canBeNull = b0&0x02 != 0
	if version != VersionJet3 {
		b1, err := r.u8(off + 1)
		if err != nil {
			return f, err
		}
		f.compressedUnicode = b1&0x01 != 0
	}
	return f, nil
}

// parseColumns parses the COLUMN array out of merged table-definition data,
// returning the columns in on-disk order and the cursor position just past
// the array.
func parseColumns(r reader, start int, count int, version int) ([]column, int, error) {
	v3 := version == VersionJet3
	pos := start
	cols := make([]column, count)
	for i := 0; i < count; i++ {
		var c column
		typ, err := r.u8(pos)
		if err != nil {
			return nil, 0, err
		}
		c.Type = typ
		pos++
		if !v3 {
			pos += 4 // ver4_unknown_3
		}
		if c.ColumnID, err = r.u16(pos); err != nil {
			return nil, 0, err
		}
		pos += 2
		if c.VariableColumnNumber, err = r.u16(pos); err != nil {
			return nil, 0, err
		}
		pos += 2
		if c.ColumnIndex, err = r.u16(pos); err != nil {
			return nil, 0, err
		}
		pos += 2

		c.Various = parseColumnVarious(r, pos, c.Type, version)
		pos += variousWidth(version)

		flagsWidth := boolWidth(v3, 1, 2)
		if c.Flags, err = parseColumnFlags(r, pos, version); err != nil {
			return nil, 0, err
		}
		pos += flagsWidth

		if !v3 {
			pos += 4 // ver4_unknown_4
		}
		if c.FixedOffset, err = r.u16(pos); err != nil {
			return nil, 0, err
		}
		pos += 2
		if c.Length, err = r.u16(pos); err != nil {
			return nil, 0, err
		}
		pos += 2

		cols[i] = c
	}
	return cols, pos, nil
}

// parseColumnNames parses the COLUMN_NAMES array and assigns names onto an
// already-parsed column slice in matching order.
func parseColumnNames(r reader, start int, cols []column, version int) (int, error) {
	v3 := version == VersionJet3
	pos := start
	for i := range cols {
		var nameLen int
		if v3 {
			b, err := r.u8(pos)
			if err != nil {
				return 0, err
			}
			nameLen = int(b)
			pos++
		} else {
			b, err := r.u16(pos)
			if err != nil {
				return 0, err
			}
			nameLen = int(b)
			pos += 2
		}
		raw, err := r.bytes(pos, nameLen)
		if err != nil {
			return 0, err
		}
		pos += nameLen
		if v3 {
			cols[i].Name = decodeText1252(raw)
		} else {
			cols[i].Name = decodeUTF16LE(raw)
		}
	}
	return pos, nil
}

func realIndexWidth(version int) int {
	return boolWidth(version == VersionJet3, 8, 12)
}

func parseRealIndexes(r reader, start int, count int, version int) ([]realIndexEntry, int, error) {
	v3 := version == VersionJet3
	pos := start
	out := make([]realIndexEntry, count)
	w := realIndexWidth(version)
	for i := 0; i < count; i++ {
		base := pos
		cnt, err := r.u32(base + 4)
		if err != nil {
			return nil, 0, err
		}
		out[i] = realIndexEntry{indexRowCount: cnt}
		pos += w
		_ = v3
	}
	return out, pos, nil
}

func realIndex2Width(version int) int {
	// unknown_b1(4 if v4+) + 10*(2+1) + runk(4) + first_index_page(4) + flags(1) + padding(9 if v4+)
	return boolWidth(version == VersionJet3, 0, 4) + 30 + 4 + 4 + 1 + boolWidth(version == VersionJet3, 0, 9)
}

func parseRealIndex2s(r reader, start int, count int, version int) ([]realIndex2Entry, int, error) {
	v3 := version == VersionJet3
	pos := start
	out := make([]realIndex2Entry, count)
	for i := 0; i < count; i++ {
		base := pos
		if !v3 {
			base += 4
		}
		var e realIndex2Entry
		for s := 0; s < 10; s++ {
			colID, err := r.u16(base)
			if err != nil {
				return nil, 0, err
			}
			flags, err := r.u8(base + 2)
			if err != nil {
				return nil, 0, err
			}
			e.columns[s] = indexColumnSlot{colID: colID, idxFlags: flags}
			base += 3
		}
		base += 4 // runk
		fip, err := r.u32(base)
		if err != nil {
			return nil, 0, err
		}
		e.firstIndexPage = fip
		base += 4
		fl, err := r.u8(base)
		if err != nil {
			return nil, 0, err
		}
		e.flags = fl
		pos += realIndex2Width(version)
		out[i] = e
	}
	return out, pos, nil
}

func allIndexWidth(version int) int {
	return boolWidth(version == VersionJet3, 0, 4) + 4 + 4 + 1 + 4 + 4 + 1 + 1 + 1 + boolWidth(version == VersionJet3, 0, 4)
}

func parseAllIndexes(r reader, start int, count int, version int) ([]allIndexEntry, int, error) {
	v3 := version == VersionJet3
	pos := start
	out := make([]allIndexEntry, count)
	for i := 0; i < count; i++ {
		base := pos
		if !v3 {
			base += 4
		}
		base += 4 // idx_num
		idxColNum, err := r.u32(base)
		if err != nil {
			return nil, 0, err
		}
		base += 4
		relTblType, err := r.u8(base)
		if err != nil {
			return nil, 0, err
		}
		base++
		relIdxRaw, err := r.u32(base)
		if err != nil {
			return nil, 0, err
		}
		base += 4
		relTblPage, err := r.u32(base)
		if err != nil {
			return nil, 0, err
		}
		base += 4
		cascadeUps, err := r.u8(base)
		if err != nil {
			return nil, 0, err
		}
		base++
		cascadeDels, err := r.u8(base)
		if err != nil {
			return nil, 0, err
		}
		base++
		idxType, err := r.u8(base)
		if err != nil {
			return nil, 0, err
		}

		out[i] = allIndexEntry{
			idxColNum:   idxColNum,
			relTblType:  relTblType,
			relIdxNum:   int32(relIdxRaw),
			relTblPage:  relTblPage,
			cascadeUps:  cascadeUps,
			cascadeDels: cascadeDels,
			idxType:     idxType,
		}
		pos += allIndexWidth(version)
	}
	return out, pos, nil
}

func parseIndexNames(r reader, start int, entries []allIndexEntry, version int) (int, error) {
	v3 := version == VersionJet3
	pos := start
	for i := range entries {
		var nameLen int
		if v3 {
			b, err := r.u8(pos)
			if err != nil {
				return 0, err
			}
			nameLen = int(b)
			pos++
		} else {
			b, err := r.u16(pos)
			if err != nil {
				return 0, err
			}
			nameLen = int(b)
			pos += 2
		}
		raw, err := r.bytes(pos, nameLen)
		if err != nil {
			return 0, err
		}
		pos += nameLen
		if v3 {
			entries[i].name = decodeText1252(raw)
		} else {
			entries[i].name = decodeUTF16LE(raw)
		}
	}
	return pos, nil
}

// assembleTableDef parses the TDEF header plus the merged column/index
// arrays that follow it (already concatenated across chained TDEF pages by
// the caller) into a tableDef.
func assembleTableDef(headerPage []byte, mergedTail []byte, version int) (*tableDef, error) {
	hr := newReader(headerPage)
	h, err := parseTableHeader(hr, version)
	if err != nil {
		return nil, err
	}

	r := newReader(mergedTail)
	pos := 0

	realIdx, pos, err := parseRealIndexes(r, pos, int(h.realIndexCount), version)
	if err != nil {
		return nil, err
	}
	cols, pos, err := parseColumns(r, pos, int(h.columnCount), version)
	if err != nil {
		return nil, err
	}
	pos, err = parseColumnNames(r, pos, cols, version)
	if err != nil {
		return nil, err
	}
	realIdx2, pos, err := parseRealIndex2s(r, pos, int(h.realIndexCount), version)
	if err != nil {
		return nil, err
	}
	allIdx, pos, err := parseAllIndexes(r, pos, int(h.indexCount), version)
	if err != nil {
		return nil, err
	}
	if _, err = parseIndexNames(r, pos, allIdx, version); err != nil {
		return nil, err
	}

	td := &tableDef{
		header:      h,
		realIndexes: realIdx,
		realIndex2s: realIdx2,
		allIndexes:  allIdx,
		columnsByPos: make(map[int]*column),
		columnsByID:  make(map[uint16]*column),
	}

	minIdx := -1
	for i := range cols {
		if minIdx == -1 || int(cols[i].ColumnIndex) < minIdx {
			minIdx = int(cols[i].ColumnIndex)
		}
	}
	if minIdx == -1 {
		minIdx = 0
	}
	seen := map[int]bool{}
	dup := false
	for i := range cols {
		k := int(cols[i].ColumnIndex) - minIdx
		if seen[k] {
			dup = true
		}
		seen[k] = true
	}
	for i := range cols {
		c := &cols[i]
		td.columnsByID[c.ColumnID] = c
		if dup {
			td.columnsByPos[int(c.ColumnID)] = c
		} else {
			td.columnsByPos[int(c.ColumnIndex)-minIdx] = c
		}
	}

	td.orderedCols = make([]*column, 0, len(cols))
	keys := make([]int, 0, len(td.columnsByPos))
	for k := range td.columnsByPos {
		keys = append(keys, k)
	}
	sortInts(keys)
	for _, k := range keys {
		td.orderedCols = append(td.orderedCols, td.columnsByPos[k])
	}

	for _, idx := range td.allIndexes {
		if idx.idxType != 1 {
			continue
		}
		if int(idx.idxColNum) < 0 || int(idx.idxColNum) >= len(td.realIndex2s) {
			continue
		}
		entry := td.realIndex2s[idx.idxColNum]
		for _, slot := range entry.columns {
			if slot.colID == 0xFFFF {
				continue
			}
			if c, ok := td.columnsByID[slot.colID]; ok {
				td.primaryKeys = append(td.primaryKeys, c.Name)
			}
		}
	}

	return td, nil
}

// sortInts is a tiny insertion sort so tabledef.go does not need to import
// sort for what is always a small (column-count sized) slice.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
