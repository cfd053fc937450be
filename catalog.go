package mdb

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
)

// TableHandle is a table whose definition has been parsed but whose rows
// have not — the cheap half of opening a table, useful for inspecting
// columns, indexes or free-space accounting without decoding every record.
type TableHandle struct {
	db   *Database
	Name string
	id   int
	td   *tableDef
}

// Columns returns the table's column names in declaration order.
func (th *TableHandle) Columns() []string {
	out := make([]string, 0, len(th.td.orderedCols))
	for _, c := range th.td.orderedCols {
		out = append(out, c.Name)
	}
	return out
}

// PrimaryKey returns the column names making up the table's primary key
// index, if any.
func (th *TableHandle) PrimaryKey() []string {
	return th.td.primaryKeys
}

// FreeSpacePages returns the page numbers the table definition's
// free-space usage map marks as belonging to this table.
func (th *TableHandle) FreeSpacePages() []int {
	pages, _ := ownedPages(th.db.pages, int(th.td.header.freeSpacePageMapPageNumber),
		int(th.td.header.freeSpacePageMapRowNumber), th.db.Version, th.db.ownerPages[th.id])
	return pages
}

// ColumnProps returns the MSysObjects-derived extra properties (such as a
// currency column's display Format) for one column, if any were recorded.
func (th *TableHandle) ColumnProps(column string) map[string]any {
	return th.db.msysProp[th.Name][column]
}

// parseRows decodes every live row owned by the table into row-major
// maps, the intermediate shape the catalog bootstrap walks row by row
// before the public, column-major Parse reshapes it.
func (th *TableHandle) parseRows() ([]map[string]any, []string, error) {
	pageNums, warn := ownedPages(th.db.pages, int(th.td.header.rowPageMapPageNumber),
		int(th.td.header.rowPageMapRowNumber), th.db.Version, th.db.ownerPages[th.id])
	var anomalies []string
	if warn != "" {
		anomalies = append(anomalies, warn)
	}

	records, anos := collectTableRecords(th.db.pages, pageNums, th.db.Version)
	anomalies = append(anomalies, anos...)

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row, anos2 := decodeRecord(th.td, rec, th.db.Version, th.db.pages)
		anomalies = append(anomalies, anos2...)
		if row != nil {
			rows = append(rows, row)
		}
	}
	return rows, anomalies, nil
}

// Parse decodes every live row owned by the table into a column-keyed
// mapping of value sequences, preserving schema order — the shape
// parse_table documents: column name to a list of that column's values
// across rows, in row order.
func (th *TableHandle) Parse() (map[string][]any, error) {
	rows, anomalies, err := th.parseRows()
	if err != nil {
		return nil, err
	}
	th.db.Anomalies = append(th.db.Anomalies, anomalies...)

	cols := th.Columns()
	out := make(map[string][]any, len(cols))
	for _, c := range cols {
		out[c] = make([]any, 0, len(rows))
	}
	for _, row := range rows {
		for _, c := range cols {
			out[c] = append(out[c], row[c])
		}
	}
	return out, nil
}

// loadTableDef parses (or returns the cached parse of) the table
// definition chain starting at tdef page pageIdx.
func (db *Database) loadTableDef(pageIdx int) (*tableDef, error) {
	if td, ok := db.tableDef[pageIdx]; ok {
		return td, nil
	}
	headerPage, merged, err := mergeTableDefPages(db.pages, pageIdx, db.Version)
	if err != nil {
		return nil, err
	}
	td, err := assembleTableDef(headerPage, merged, db.Version)
	if err != nil {
		db.warn(anoMalformedTableDef+": %v", err)
		return nil, err
	}
	db.tableDef[pageIdx] = td
	return td, nil
}

// mergeTableDefPages concatenates a table's chained TDEF pages (beyond the
// first) into one contiguous buffer, the way a table definition too large
// for one page is reassembled before parsing its column/index arrays.
func mergeTableDefPages(ps *pageStore, firstPageIdx int, version int) (headerPage []byte, tail []byte, err error) {
	first := ps.page(firstPageIdx)
	if first == nil || ps.kind(firstPageIdx) != pageKindTableDef {
		return nil, nil, ErrCatalogPageMissing
	}
	hr := newReader(first)
	nextPtr, _, err := parseTDEFHeaderAt(hr)
	if err != nil {
		return nil, nil, err
	}
	th, err := parseTableHeader(hr, version)
	if err != nil {
		return nil, nil, err
	}

	merged := append([]byte(nil), first[th.headerEnd:]...)
	next := nextPtr
	for guard := 0; next != 0 && guard < 10000; guard++ {
		page := ps.page(int(next))
		if page == nil || ps.kind(int(next)) != pageKindTableDef {
			break
		}
		pr := newReader(page)
		n2, he2, err := parseTDEFHeaderAt(pr)
		if err != nil {
			break
		}
		merged = append(merged, page[he2:]...)
		next = n2
	}
	return first, merged, nil
}

// asInt64 widens any of the signed integer types decodeFixed can produce
// for a catalog column to int64, since the catalog's Id/Type/Flags columns
// may be stored as Int16 or Int32 depending on the database generation.
func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	default:
		return 0, false
	}
}

// bootstrapCatalog parses MSysObjects (the fixed catalog page index) and
// records every visible user table's name to its TDEF page index.
func (db *Database) bootstrapCatalog() error {
	td, err := db.loadTableDef(catalogPageIndex)
	if err != nil {
		return ErrCatalogPageMissing
	}
	handle := &TableHandle{db: db, Name: "MSysObjects", id: catalogPageIndex, td: td}
	rows, anomalies, err := handle.parseRows()
	if err != nil {
		return err
	}
	db.Anomalies = append(db.Anomalies, anomalies...)

	db.catalog = make(map[string]int)
	for _, row := range rows {
		name, _ := row["Name"].(string)
		if name == "" {
			continue
		}
		id, _ := asInt64(row["Id"])
		if name == "MSysObjects" {
			db.catalog[name] = int(id)
			continue
		}
		typ, _ := asInt64(row["Type"])
		if typ != catalogTypeTable {
			continue
		}
		flags, _ := asInt64(row["Flags"])
		if isSystemTableFlag(int32(flags)) {
			continue
		}
		db.catalog[name] = int(id)
	}
	return nil
}

// loadMSysProps resolves every row's LvProp long-value blob (if any) into
// db.msysProp, giving later table opens access to MSysObjects-derived
// per-column properties such as display formats.
func (db *Database) loadMSysProps() {
	id, ok := db.catalog["MSysObjects"]
	if !ok {
		return
	}
	td, err := db.loadTableDef(id)
	if err != nil {
		return
	}
	handle := &TableHandle{db: db, Name: "MSysObjects", id: id, td: td}
	rows, _, err := handle.parseRows()
	if err != nil {
		return
	}

	db.msysProp = make(map[string]map[string]map[string]any)
	for _, row := range rows {
		name, _ := row["Name"].(string)
		if name == "" {
			continue
		}
		blob, ok := row["LvProp"].([]byte)
		if !ok || len(blob) == 0 {
			continue
		}
		names, values, ok := parseLvProp(blob)
		if !ok {
			continue
		}
		db.msysProp[name] = resolveLvProps(names, values, db.Version)
	}
}

// Tables returns the names of every visible user table in the catalog,
// sorted for deterministic iteration. System tables are excluded;
// MSysObjects is tracked internally but not listed here.
func (db *Database) Tables() []string {
	out := make([]string, 0, len(db.catalog))
	for name := range db.catalog {
		if name == "MSysObjects" {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Table opens a table's definition without decoding its rows.
func (db *Database) Table(name string) (*TableHandle, error) {
	id, ok := db.catalog[name]
	if !ok {
		return nil, ErrTableNotFound
	}
	td, err := db.loadTableDef(id)
	if err != nil {
		return nil, err
	}
	return &TableHandle{db: db, Name: name, id: id, td: td}, nil
}

// ParseTable opens and fully decodes a table's rows in one call, returning
// a column-keyed mapping of value sequences in schema order — the shape
// parse_table documents.
func (db *Database) ParseTable(name string) (map[string][]any, error) {
	h, err := db.Table(name)
	if err != nil {
		return nil, err
	}
	return h.Parse()
}

// TableProps returns the MSysObjects-derived extra properties for every
// column of the named table, if any were recorded.
func (db *Database) TableProps(name string) map[string]map[string]any {
	return db.msysProp[name]
}

// PrintDatabase writes every visible table's rows to w as tab-aligned
// text, in the style of a quick inspection dump.
func (db *Database) PrintDatabase(w io.Writer) error {
	for _, name := range db.Tables() {
		h, err := db.Table(name)
		if err != nil {
			db.warn("%s: %v", name, err)
			continue
		}
		data, err := h.Parse()
		if err != nil {
			db.warn("%s: %v", name, err)
			continue
		}
		cols := h.Columns()
		rowCount := 0
		if len(cols) > 0 {
			rowCount = len(data[cols[0]])
		}

		fmt.Fprintf(w, "TABLE: %s\n", name)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(cols, "\t"))
		for i := 0; i < rowCount; i++ {
			vals := make([]string, len(cols))
			for j, c := range cols {
				vals[j] = fmt.Sprintf("%v", data[c][i])
			}
			fmt.Fprintln(tw, strings.Join(vals, "\t"))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
	return nil
}
