package mdb

import (
	"fmt"
	"os"

	"github.com/go-kratos/kratos/v2/log"
	mmap "github.com/edsrzf/mmap-go"
)

// Database represents an open Jet Blue (Access MDB/ACCDB) database image.
type Database struct {
	Header    FileHeader `json:"header"`
	Version   int        `json:"version"`
	PageSize  int        `json:"page_size"`
	Anomalies []string   `json:"anomalies,omitempty"`

	pages      *pageStore
	catalog    map[string]int // table name -> catalog row id (also the tdef page index)
	tableDef   map[int]*tableDef
	msysProp   map[string]map[string]map[string]any // table -> column -> prop -> value
	ownerPages map[int][]int                         // tdef page index -> data pages whose header names it as owner

	data   []byte
	mm     mmap.MMap
	f      *os.File
	opts   *Options
	logger *log.Helper
}

// Options configures how a Database is opened and parsed.
type Options struct {
	// StrictText is accepted but not consulted by the decoder: text that
	// fails strict decoding is always returned with a best-effort
	// replacement, whatever its value. Defaults to false.
	StrictText bool

	// A custom logger.
	Logger log.Logger
}

func newOptions(opts *Options) *Options {
	if opts != nil {
		return opts
	}
	return &Options{}
}

func newLogger(opts *Options) *log.Helper {
	if opts.Logger != nil {
		return log.NewHelper(opts.Logger)
	}
	logger := log.NewStdLogger(os.Stderr)
	return log.NewHelper(log.NewFilter(logger, log.FilterLevel(log.LevelError)))
}

// Open memory-maps the file at name and parses it as a Jet Blue database.
func Open(name string, opts *Options) (*Database, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	db := &Database{opts: newOptions(opts)}
	db.logger = newLogger(db.opts)
	db.data = data
	db.mm = data
	db.f = f

	if err := db.Parse(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenBytes parses an in-memory Jet Blue database image.
func OpenBytes(data []byte, opts *Options) (*Database, error) {
	db := &Database{opts: newOptions(opts)}
	db.logger = newLogger(db.opts)
	db.data = data

	if err := db.Parse(); err != nil {
		return nil, err
	}
	return db, nil
}

// Close unmaps and closes the underlying file, if any.
func (db *Database) Close() error {
	if db.mm != nil {
		_ = db.mm.Unmap()
	}
	if db.f != nil {
		return db.f.Close()
	}
	return nil
}

// warn records a non-fatal anomaly both in Anomalies and through the
// logger, mirroring the teacher's Anomalies side-channel.
func (db *Database) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	db.Anomalies = append(db.Anomalies, msg)
	db.logger.Warnf(format, args...)
}

// Parse runs the staged parse pipeline: file header, page classification,
// catalog bootstrap. A failure to parse the file header or to load the
// catalog's table definition aborts the parse; every other failure is
// contained to the smallest affected unit — a page, a record, a field —
// and reported through Anomalies instead.
func (db *Database) Parse() error {
	header, err := parseFileHeader(db.data)
	if err != nil {
		return err
	}
	db.Header = header

	version, pageSize, warn := resolveVersion(header.JetVersion)
	db.Version = version
	db.PageSize = pageSize
	if warn != "" {
		db.warn(warn)
	}

	pages, pageWarn := newPageStore(db.data, db.PageSize)
	if pageWarn != "" {
		db.warn(pageWarn)
	}
	db.pages = pages
	db.tableDef = make(map[int]*tableDef)
	db.ownerPages = buildOwnerPageMap(pages, db.Version)

	if err := db.bootstrapCatalog(); err != nil {
		return err
	}
	db.loadMSysProps()

	return nil
}
