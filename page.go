package mdb

// pageKind classifies a page by its first two magic bytes.
type pageKind int

const (
	pageKindOther pageKind = iota
	pageKindTableDef
	pageKindData
)

// pageStore slices a raw image into fixed-size pages and classifies each
// one, mirroring categorize_pages from the reference implementation. It
// never copies the underlying bytes: every page is a subslice of the
// original image.
type pageStore struct {
	data     []byte
	pageSize int
	pages    [][]byte
	kinds    []pageKind
}

// newPageStore slices data into pageSize chunks. A trailing partial page is
// dropped with an anomaly rather than rejected, since the catalog and every
// table page index it cares about sit well before the end of real images.
func newPageStore(data []byte, pageSize int) (*pageStore, string) {
	n := len(data) / pageSize
	var warn string
	if len(data)%pageSize != 0 {
		warn = anoTruncatedImage
	}

	ps := &pageStore{
		data:     data,
		pageSize: pageSize,
		pages:    make([][]byte, n),
		kinds:    make([]pageKind, n),
	}
	for i := 0; i < n; i++ {
		p := data[i*pageSize : (i+1)*pageSize]
		ps.pages[i] = p
		ps.kinds[i] = classifyPage(p)
	}
	return ps, warn
}

func classifyPage(p []byte) pageKind {
	if len(p) < 2 {
		return pageKindOther
	}
	switch {
	case p[0] == magicTableDef[0] && p[1] == magicTableDef[1]:
		return pageKindTableDef
	case p[0] == magicData[0] && p[1] == magicData[1]:
		return pageKindData
	default:
		return pageKindOther
	}
}

// numPages reports how many whole pages the image contains.
func (ps *pageStore) numPages() int {
	return len(ps.pages)
}

// page returns the raw bytes of page index n, or nil if n is out of range.
func (ps *pageStore) page(n int) []byte {
	if n < 0 || n >= len(ps.pages) {
		return nil
	}
	return ps.pages[n]
}

// kind returns the classification of page index n.
func (ps *pageStore) kind(n int) pageKind {
	if n < 0 || n >= len(ps.kinds) {
		return pageKindOther
	}
	return ps.kinds[n]
}

// dataPages returns the page indices classified as data pages, in
// ascending order.
func (ps *pageStore) dataPages() []int {
	var out []int
	for i, k := range ps.kinds {
		if k == pageKindData {
			out = append(out, i)
		}
	}
	return out
}
