package mdb

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUsageMapInline(t *testing.T) {
	blob := []byte{usageMapKindInline, 0x0A, 0x00, 0x00, 0x00, 0b00000101}
	pages, warn := parseUsageMap(blob)
	require.Empty(t, warn)
	assert.Equal(t, []int{10, 12}, pages)
}

func TestParseUsageMapUnknownType(t *testing.T) {
	blob := []byte{1, 0, 0, 0, 0, 0xFF}
	pages, warn := parseUsageMap(blob)
	assert.Nil(t, pages)
	assert.Equal(t, anoUnknownUsageMap, warn)
}

func TestParseUsageMapTooShort(t *testing.T) {
	_, warn := parseUsageMap([]byte{0, 1, 2})
	assert.Equal(t, anoUnknownUsageMap, warn)
}

// buildUsageMapPage lays out a Jet4+ page whose slot array (starting at
// OFFSET_ROW_START=14) holds one usage-map "record" at row 0, the same way
// a table's free-space or owned-page usage map is addressed.
func buildUsageMapPage(pageSize int, record []byte) []byte {
	page := make([]byte, pageSize)
	recordStart := pageSize - len(record)
	copy(page[recordStart:], record)
	binary.LittleEndian.PutUint16(page[14:16], uint16(recordStart))
	return page
}

func TestUsageMapRecordAndOwnedPages(t *testing.T) {
	record := []byte{usageMapKindInline, 5, 0, 0, 0, 0b00000011}
	page := buildUsageMapPage(PageSizeV4, record)

	ps := &pageStore{pages: [][]byte{page}, kinds: []pageKind{pageKindData}}

	got, ok := usageMapRecord(ps, 0, 0, VersionJet4)
	require.True(t, ok)
	assert.Equal(t, record, got)

	pages, warn := ownedPages(ps, 0, 0, VersionJet4, nil)
	assert.Empty(t, warn)
	assert.Equal(t, []int{5, 6}, pages)
}

func TestOwnedPagesMissingPage(t *testing.T) {
	ps := &pageStore{pages: [][]byte{}, kinds: []pageKind{}}
	pages, warn := ownedPages(ps, 0, 0, VersionJet4, nil)
	assert.Nil(t, pages)
	assert.Equal(t, anoUnknownUsageMap, warn)
}

func TestOwnedPagesMissingPageFallsBackToOwnerMap(t *testing.T) {
	ps := &pageStore{pages: [][]byte{}, kinds: []pageKind{}}
	pages, warn := ownedPages(ps, 0, 0, VersionJet4, []int{7, 9})
	assert.Equal(t, []int{7, 9}, pages)
	assert.Equal(t, anoUnknownUsageMap, warn)
}

func TestOwnedPagesNonInlineFallsBackToOwnerMap(t *testing.T) {
	record := []byte{1, 5, 0, 0, 0, 0xFF} // map_type 1: not the inline type this reader decodes
	page := buildUsageMapPage(PageSizeV4, record)
	ps := &pageStore{pages: [][]byte{page}, kinds: []pageKind{pageKindData}}

	pages, warn := ownedPages(ps, 0, 0, VersionJet4, []int{3})
	assert.Equal(t, []int{3}, pages)
	assert.Equal(t, anoUnknownUsageMap, warn)
}

func TestBuildOwnerPageMap(t *testing.T) {
	page := make([]byte, PageSizeV4)
	page[0], page[1] = magicData[0], magicData[1]
	binary.LittleEndian.PutUint32(page[4:8], 42) // owner
	ps := &pageStore{pages: [][]byte{page}, kinds: []pageKind{pageKindData}}

	owners := buildOwnerPageMap(ps, VersionJet4)
	assert.Equal(t, []int{0}, owners[42])
}
