package mdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makePage(size int, magic [2]byte) []byte {
	p := make([]byte, size)
	p[0], p[1] = magic[0], magic[1]
	return p
}

func TestNewPageStoreClassifiesPages(t *testing.T) {
	const size = 16
	var data []byte
	data = append(data, makePage(size, magicTableDef)...)
	data = append(data, makePage(size, magicData)...)
	data = append(data, make([]byte, size)...) // "other" page, zeroed magic

	ps, warn := newPageStore(data, size)
	assert.Empty(t, warn)
	assert.Equal(t, 3, ps.numPages())
	assert.Equal(t, pageKindTableDef, ps.kind(0))
	assert.Equal(t, pageKindData, ps.kind(1))
	assert.Equal(t, pageKindOther, ps.kind(2))
	assert.Equal(t, []int{1}, ps.dataPages())
}

func TestNewPageStoreTruncatedImage(t *testing.T) {
	_, warn := newPageStore(make([]byte, 20), 16)
	assert.Equal(t, anoTruncatedImage, warn)
}

func TestPageStoreOutOfRange(t *testing.T) {
	ps, _ := newPageStore(make([]byte, 16), 16)
	assert.Nil(t, ps.page(-1))
	assert.Nil(t, ps.page(5))
	assert.Equal(t, pageKindOther, ps.kind(5))
}
