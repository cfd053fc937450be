package mdb

import "errors"

// Errors returned by Open/OpenBytes and the fatal paths of Parse. Every
// other failure mode described in the error taxonomy (MalformedPage,
// MalformedRecord, UnknownType, DecodeLossy, LookupMiss) is recoverable and
// is reported through Database.Anomalies instead of an error return, so that
// one bad page or record never aborts the whole parse. Only the anomalies
// recorded through Database.warn are also written to the logger.
var (
	// ErrFileTooSmall is returned when the image is smaller than a single
	// file header.
	ErrFileTooSmall = errors.New("mdb: file too small to contain a database header")

	// ErrNotADatabase is returned when the file header magic or jet_string
	// preamble does not parse. Together with ErrFileTooSmall and
	// ErrCatalogPageMissing it is one of the parse errors that make
	// Open/OpenBytes fail.
	ErrNotADatabase = errors.New("mdb: not a valid Access database")

	// ErrTableNotFound is returned by Table/ParseTable when the name is
	// absent from the catalog. LookupMiss in the taxonomy; kept as an error
	// here (rather than a silent empty result) because unlike a missing row
	// or field, a missing table is always caller-actionable.
	ErrTableNotFound = errors.New("mdb: table not found in catalog")

	// ErrOutsideBoundary is returned by the primitive readers when an offset
	// or length would read past the end of the image.
	ErrOutsideBoundary = errors.New("mdb: read outside file boundary")

	// ErrCatalogPageMissing is returned when the page at offset 2*pageSize
	// cannot be resolved to a table-definition page.
	ErrCatalogPageMissing = errors.New("mdb: catalog page is missing or malformed")
)

// anomaly text constants, appended to Database.Anomalies. These mirror the
// teacher's Anomalies strings: short, user-facing, not sentinel errors.
const (
	anoTruncatedImage       = "file length is not a multiple of the page size; trailing bytes ignored"
	anoMalformedDataPage    = "data page header failed to parse and was skipped"
	anoMalformedRecord      = "record failed to parse and was skipped"
	anoMalformedTableDef    = "table definition failed to parse"
	anoMalformedVarMetadata = "variable-length metadata did not match column count"
	anoUnknownType          = "column type code not recognized"
	anoLookupMiss           = "referenced overflow or long-value page could not be resolved"
	anoLossyText            = "text field failed strict decoding; used lossy replacement"
	anoUnknownUsageMap      = "usage map type is not inline; falling back to owner-field enumeration"
)
