package mdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(jetString string, version uint32) []byte {
	buf := make([]byte, 0, fileHeaderMinLen)
	buf = append(buf, fileHeaderMagic[:]...)
	buf = append(buf, []byte(jetString)...)
	buf = append(buf, 0x00)
	versionBytes := []byte{byte(version), byte(version >> 8), byte(version >> 16), byte(version >> 24)}
	buf = append(buf, versionBytes...)
	buf = append(buf, make([]byte, fileHeaderPaddingLen)...)
	return buf
}

func TestParseFileHeader(t *testing.T) {
	data := buildHeader("Standard Jet DB", VersionJet4)
	h, err := parseFileHeader(data)
	require.NoError(t, err)
	assert.Equal(t, "Standard Jet DB", h.JetString)
	assert.Equal(t, uint32(VersionJet4), h.JetVersion)
}

func TestParseFileHeaderTooSmall(t *testing.T) {
	_, err := parseFileHeader(make([]byte, 10))
	assert.ErrorIs(t, err, ErrFileTooSmall)
}

func TestParseFileHeaderBadMagic(t *testing.T) {
	data := buildHeader("Standard Jet DB", VersionJet4)
	data[0] = 0xFF
	_, err := parseFileHeader(data)
	assert.ErrorIs(t, err, ErrNotADatabase)
}

func TestParseFileHeaderNoNulTerminator(t *testing.T) {
	data := bytes.Repeat([]byte{0x41}, fileHeaderMinLen)
	copy(data, fileHeaderMagic[:])
	_, err := parseFileHeader(data)
	assert.ErrorIs(t, err, ErrNotADatabase)
}

func TestResolveVersion(t *testing.T) {
	cases := []struct {
		jet      uint32
		wantVer  int
		wantSize int
		wantWarn bool
	}{
		{VersionJet3, VersionJet3, PageSizeV3, false},
		{VersionJet4, VersionJet4, PageSizeV4, false},
		{VersionJet5, VersionJet5, PageSizeV4, false},
		{VersionJet2010, VersionJet2010, PageSizeV4, false},
		{99, VersionJet3, PageSizeV3, true},
	}
	for _, c := range cases {
		ver, size, warn := resolveVersion(c.jet)
		assert.Equal(t, c.wantVer, ver)
		assert.Equal(t, c.wantSize, size)
		assert.Equal(t, c.wantWarn, warn != "")
	}
}
