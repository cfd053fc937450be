package mdb

// usageMapKindInline is the only map_type this reader decodes: a start
// page followed by a bitmap, one bit per page, LSB-first within each byte.
// Reference-list usage maps (map_type != 0) are rare for table page lists
// and are reported as an anomaly instead, with the caller falling back to
// whatever page list it already has (e.g. a table's owned-pages chain).
const usageMapKindInline = 0

// usageMapRecordOffsetBase is OFFSET_ROW_START: the byte offset of a page's
// row-offset slot array, which differs from the ordinary data page header
// layout only in that it is addressed directly by row number rather than
// walked via a parsed record count.
func usageMapRecordOffsetBase(version int) int {
	if version == VersionJet3 {
		return 10
	}
	return 14
}

// usageMapRecord fetches the raw bytes of usage-map "row" rowNum from page
// pageNum, using the same top-down slot array / bottom-up record cursor
// convention as ordinary data page rows (§4.5), but addressed directly by
// row number instead of being walked from the start.
func usageMapRecord(ps *pageStore, pageNum, rowNum, version int) ([]byte, bool) {
	page := ps.page(pageNum)
	if page == nil {
		return nil, false
	}
	r := newReader(page)
	base := usageMapRecordOffsetBase(version)

	rowStartRaw, err := r.u16(base + 2*rowNum)
	if err != nil {
		return nil, false
	}
	rowStart := int(rowStartRaw) & 0x1FFF

	rowEnd := len(page)
	if rowNum != 0 {
		rowEndRaw, err := r.u16(base + 2*(rowNum-1))
		if err != nil {
			return nil, false
		}
		rowEnd = int(rowEndRaw) & 0x1FFF
	}
	if rowStart < 0 || rowEnd > len(page) || rowStart > rowEnd {
		return nil, false
	}
	return page[rowStart:rowEnd], true
}

// ownedPages resolves a table's row-page usage map (or free-space usage
// map) to the list of page numbers it marks, given the table header's
// (pageNumber, rowNumber) locator for that map. If the map record cannot be
// located or is not the inline type this reader decodes, it falls back to
// fallbackPages — the reverse-indexed data-page owner mapping built once in
// Database.Parse (§4.4/§9) — rather than silently reporting zero pages.
func ownedPages(ps *pageStore, pageNum, rowNum, version int, fallbackPages []int) ([]int, string) {
	rec, ok := usageMapRecord(ps, pageNum, rowNum, version)
	if !ok {
		if len(fallbackPages) > 0 {
			return fallbackPages, anoUnknownUsageMap
		}
		return nil, anoUnknownUsageMap
	}
	pages, anomaly := parseUsageMap(rec)
	if anomaly != "" && len(fallbackPages) > 0 {
		return fallbackPages, anomaly
	}
	return pages, anomaly
}

// parseUsageMap decodes an inline usage map blob (as stored inline in a
// table definition page, not the separate usage-map pages) into the sorted
// list of page numbers it marks as owned.
func parseUsageMap(blob []byte) (pages []int, anomaly string) {
	if len(blob) < 5 {
		return nil, anoUnknownUsageMap
	}
	r := newReader(blob)
	mapType, _ := r.u8(0)
	if mapType != usageMapKindInline {
		return nil, anoUnknownUsageMap
	}
	startPage32, err := r.u32(1)
	if err != nil {
		return nil, anoUnknownUsageMap
	}
	startPage := int(startPage32)

	bitmap := blob[5:]
	for byteIdx, b := range bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) == 0 {
				continue
			}
			pages = append(pages, startPage+byteIdx*8+bit)
		}
	}
	return pages, ""
}
