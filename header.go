package mdb

import (
	"bytes"
	"encoding/binary"
)

// fileHeaderMagic begins every Jet Blue file. It is followed by a
// NUL-terminated ASCII "jet_string", a 32-bit jet_version, then 126 bytes
// of RC4-encrypted metadata that this parser treats as opaque padding.
var fileHeaderMagic = [4]byte{0x00, 0x01, 0x00, 0x00}

const (
	fileHeaderPaddingLen = 126
	fileHeaderMinLen     = len(fileHeaderMagic) + 1 /* empty jet_string */ + 4 + fileHeaderPaddingLen
)

// FileHeader is the parsed preamble every Jet Blue image starts with.
type FileHeader struct {
	JetString  string
	JetVersion uint32
}

// parseFileHeader parses the file header. It is one of the two fatal parse
// steps (the other is loading the catalog's table definition): if it fails
// the image is rejected as not a database (§7 InvalidImage).
func parseFileHeader(data []byte) (FileHeader, error) {
	if len(data) < fileHeaderMinLen {
		return FileHeader{}, ErrFileTooSmall
	}
	if !bytes.Equal(data[:len(fileHeaderMagic)], fileHeaderMagic[:]) {
		return FileHeader{}, ErrNotADatabase
	}

	rest := data[len(fileHeaderMagic):]
	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return FileHeader{}, ErrNotADatabase
	}
	jetString := string(rest[:nul])

	versionOff := nul + 1
	if versionOff+4 > len(rest) {
		return FileHeader{}, ErrNotADatabase
	}
	version := binary.LittleEndian.Uint32(rest[versionOff : versionOff+4])

	return FileHeader{JetString: jetString, JetVersion: version}, nil
}

// resolveVersion maps a raw jet_version to the parser's internal version
// constant and page size, degrading unrecognized versions to Jet 3 with a
// warning per §6.
func resolveVersion(jetVersion uint32) (version int, pageSize int, warn string) {
	switch jetVersion {
	case VersionJet4, VersionJet5, VersionJet2010:
		v := int(jetVersion)
		return v, pageSizeForVersion(v), ""
	case VersionJet3:
		return VersionJet3, PageSizeV3, ""
	default:
		return VersionJet3, PageSizeV3, "unknown jet_version, parsing as Jet 3"
	}
}
