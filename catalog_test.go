package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsInt64(t *testing.T) {
	v, ok := asInt64(int8(5))
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)

	v, ok = asInt64(int16(-5))
	assert.True(t, ok)
	assert.Equal(t, int64(-5), v)

	v, ok = asInt64(int32(1000))
	assert.True(t, ok)
	assert.Equal(t, int64(1000), v)

	_, ok = asInt64("not an int")
	assert.False(t, ok)
}

func TestIsSystemTableFlag(t *testing.T) {
	assert.True(t, isSystemTableFlag(-0x80000000))
	assert.True(t, isSystemTableFlag(2))
	assert.True(t, isSystemTableFlag(-2))
	assert.False(t, isSystemTableFlag(0))
	assert.False(t, isSystemTableFlag(1))
}

// newTestDatabase builds a Database with its catalog/tableDef maps
// populated directly, bypassing byte-level page parsing, so the façade
// methods (Tables, Table, ParseTable, ColumnProps) can be exercised against
// a known table definition.
func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	col := &column{
		Type:        TypeInt32,
		ColumnID:    0,
		ColumnIndex: 0,
		FixedOffset: 0,
		Length:      4,
		Flags:       columnFlags{fixedLength: true},
		Name:        "Id",
	}
	td := &tableDef{
		columnsByPos: map[int]*column{0: col},
		columnsByID:  map[uint16]*column{0: col},
		orderedCols:  []*column{col},
		primaryKeys:  []string{"Id"},
	}

	db := &Database{
		Version:  VersionJet4,
		catalog:  map[string]int{"Widgets": 7, "MSysObjects": 2},
		tableDef: map[int]*tableDef{7: td},
		msysProp: map[string]map[string]map[string]any{
			"Widgets": {"Id": {"Format": "Fixed"}},
		},
	}
	return db
}

func TestDatabaseTablesExcludesMSysObjects(t *testing.T) {
	db := newTestDatabase(t)
	assert.Equal(t, []string{"Widgets"}, db.Tables())
}

func TestDatabaseTableAndColumns(t *testing.T) {
	db := newTestDatabase(t)
	h, err := db.Table("Widgets")
	require.NoError(t, err)
	assert.Equal(t, []string{"Id"}, h.Columns())
	assert.Equal(t, []string{"Id"}, h.PrimaryKey())
	assert.Equal(t, map[string]any{"Format": "Fixed"}, h.ColumnProps("Id"))
}

func TestDatabaseTableNotFound(t *testing.T) {
	db := newTestDatabase(t)
	_, err := db.Table("Nope")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestDatabaseTableProps(t *testing.T) {
	db := newTestDatabase(t)
	props := db.TableProps("Widgets")
	assert.Equal(t, map[string]any{"Format": "Fixed"}, props["Id"])
}

func TestMergeTableDefPagesSinglePage(t *testing.T) {
	page := buildTableHeaderV4(1, 0, 0, 0)
	// Append a one-byte tail so mergeTableDefPages has something to return
	// past the header.
	page = append(page, 0xEE)
	page[0], page[1] = magicTableDef[0], magicTableDef[1]

	ps := &pageStore{pages: [][]byte{page}, kinds: []pageKind{pageKindTableDef}}
	headerPage, tail, err := mergeTableDefPages(ps, 0, VersionJet4)
	require.NoError(t, err)
	assert.Equal(t, page, headerPage)
	assert.Equal(t, []byte{0xEE}, tail)
}

func TestMergeTableDefPagesMissingPage(t *testing.T) {
	ps := &pageStore{pages: [][]byte{}, kinds: []pageKind{}}
	_, _, err := mergeTableDefPages(ps, 0, VersionJet4)
	assert.ErrorIs(t, err, ErrCatalogPageMissing)
}
