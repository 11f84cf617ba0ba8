package cag

import "fmt"

// Thumbnail dimensions in the Nail stream
const (
	ThumbnailWidth  = 44
	ThumbnailHeight = 88
)

const (
	nailHeaderSize = 0x800
	nailPixelSize  = ThumbnailWidth * ThumbnailHeight
	nailFooterSize = 0xe0
)

// nailReader yields the thumbnails of the Nail stream in catalog order.
// It has no end marker of its own, the Thumb stream decides how many
// thumbnails are taken.
type nailReader struct {
	f *fieldReader
	n int
}

func newNailReader(f *fieldReader) *nailReader {
	nr := &nailReader{f: f}
	nr.Reset()
	return nr
}

// Reset moves back to the first thumbnail
func (n *nailReader) Reset() {
	n.f.seek(nailHeaderSize)
	n.n = 0
}

// Next reads the next thumbnail and its footer
func (n *nailReader) Next() (*Thumbnail, error) {
	raw, err := n.f.readBytes(nailPixelSize)
	if err != nil {
		return nil, fmt.Errorf("reading pixels of thumbnail %d: %w", n.n, err)
	}

	thumb := &Thumbnail{Pix: make([]byte, nailPixelSize)}

	// Rows are stored bottom-up
	for y := 0; y < ThumbnailHeight; y++ {
		src := (ThumbnailHeight - 1 - y) * ThumbnailWidth
		copy(thumb.Pix[y*ThumbnailWidth:(y+1)*ThumbnailWidth], raw[src:src+ThumbnailWidth])
	}

	if err = n.f.read(&thumb.Footer); err != nil {
		return nil, fmt.Errorf("reading footer of thumbnail %d: %w", n.n, err)
	}

	n.n++
	return thumb, nil
}
