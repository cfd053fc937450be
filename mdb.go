// Package mdb parses the on-disk Jet Blue database format used by
// Microsoft Access (MDB/ACCDB), generations Jet 3 through Jet 2010. It is
// read-only: given the raw bytes of a database file it reconstructs the
// catalog of user tables and, for each table, column-major row data
// decoded into typed Go values.
package mdb

// Jet format generations, as stored in the file header's jet_version field.
const (
	VersionJet3    = 0 // Access 97
	VersionJet4    = 1 // Access 2000
	VersionJet5    = 2 // Access 2002/2003
	VersionJet2010 = 3 // Access 2007+
)

// Page sizes by format generation.
const (
	PageSizeV3 = 0x800  // Jet 3
	PageSizeV4 = 0x1000 // Jet 4, 5, 2010
)

// Page magic bytes (first two bytes of a page).
var (
	magicTableDef = [2]byte{0x02, 0x01}
	magicData     = [2]byte{0x01, 0x01}
)

// catalogPageIndex is the fixed page index (offset / pageSize) of the
// system catalog (MSysObjects) table definition.
const catalogPageIndex = 2

// Column type codes (§4.3 Type Decoder).
const (
	TypeBoolean  = 1
	TypeInt8     = 2
	TypeInt16    = 3
	TypeInt32    = 4
	TypeCurrency = 5
	TypeFloat32  = 6
	TypeFloat64  = 7
	TypeDateTime = 8
	TypeBinary   = 9
	TypeText     = 10
	TypeOLE      = 11
	TypeMemo     = 12
	TypeGUID     = 15
	TypeNumeric  = 16 // 17-byte decimal
	TypeComplex  = 18
)

// Catalog object types.
const (
	catalogTypeTable = 1
)

// Table-definition type-flag byte.
const (
	tableTypeSystem = 0x53
	tableTypeUser   = 0x4E
)

// isSystemTableFlag reports whether a catalog row's Flags value marks a
// system table. Per spec the set is {0x80000000, 0x00000002, -0x80000000,
// -0x00000002}; Flags is read as a signed 32-bit integer so 0x80000000
// itself never occurs (it overflows int32) and collapses onto the bit
// pattern of -0x80000000 — three distinct values survive, not four.
func isSystemTableFlag(flags int32) bool {
	return flags == -0x80000000 || flags == 2 || flags == -2
}

// pageSizeForVersion returns the page size for a jet_version, degrading
// unknown versions to Jet 3 per §6.
func pageSizeForVersion(version int) int {
	switch version {
	case VersionJet4, VersionJet5, VersionJet2010:
		return PageSizeV4
	default:
		return PageSizeV3
	}
}
