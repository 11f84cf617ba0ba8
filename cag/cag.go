// Package cag contains a decoder for Clip Art Gallery 3.0 catalog (CAG)
// files as shipped with Office 97
package cag

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Names of the streams inside the compound document container
const (
	StreamCategory = "Category"
	StreamNail     = "Nail"
	StreamThumb    = "Thumb"
)

var (
	// ErrTruncatedStream signals a read past the end of one of the streams
	ErrTruncatedStream = errors.New("stream truncated")
	// ErrMasterCategory signals the master category could not be told
	// apart from the other categories, see MasterCategoryError
	ErrMasterCategory = errors.New("master category not resolvable")
	// ErrRecordOverrun signals the fields of a clip declaration did not
	// fit into the record length given by its type
	ErrRecordOverrun = errors.New("record overrun")
	// ErrStreamNotFound signals the container lacks one of the catalog streams
	ErrStreamNotFound = errors.New("stream not found")
)

type (
	// Catalog represents a decoded CAG file with categories, clip
	// declarations and thumbnails joined together
	Catalog struct {
		Source string         `json:"source" yaml:"source"`
		Header CategoryHeader `json:"header" yaml:"header"`

		Categories     []Category    `json:"categories" yaml:"categories"`
		MasterCategory int           `json:"master_category" yaml:"master_category"`
		Declarations   []Declaration `json:"declarations" yaml:"declarations"`

		// TerminatingTag is the value found where the next record type
		// would have been, it ended the declaration sequence
		TerminatingTag RecordType `json:"terminating_tag" yaml:"terminating_tag"`
		// ThumbJunk contains everything in the Thumb stream from the
		// terminating tag onwards
		ThumbJunk []byte `json:"-" yaml:"-"`
	}

	// CategoryHeader holds the scalars in front of the category list.
	// Only CategoryCount is understood.
	CategoryHeader struct {
		Unknown1      uint32 `json:"unknown1" yaml:"unknown1"`
		Unknown2      uint32 `json:"unknown2" yaml:"unknown2"`
		CategoryCount uint32 `json:"category_count" yaml:"category_count"`
		Unknown3      uint32 `json:"unknown3" yaml:"unknown3"`
	}

	// Category is a titled list of clip IDs
	Category struct {
		Title    string   `json:"title" yaml:"title"`
		ClipIDs  []uint32 `json:"clip_ids" yaml:"clip_ids"`
		Unknown1 uint32   `json:"unknown1" yaml:"unknown1"`
	}

	// RawDeclaration is a clip declaration as read from the Thumb stream,
	// not yet joined with the categories
	RawDeclaration struct {
		Type         RecordType `json:"type" yaml:"type"`
		Filename     string     `json:"filename" yaml:"filename"`
		Subdirectory string     `json:"subdirectory" yaml:"subdirectory"`
		Keywords     []string   `json:"keywords" yaml:"keywords"`

		Thumbnail *Thumbnail `json:"-" yaml:"-"`
		// Tail holds the unused bytes after the text fields up to the
		// end of the record, may contain remnants of deleted clips
		Tail []byte `json:"-" yaml:"-"`
	}

	// Declaration is a clip declaration with its clip ID and the titles
	// of the categories it is listed in
	Declaration struct {
		RawDeclaration `yaml:",inline"`

		ID         uint32   `json:"id" yaml:"id"`
		Categories []string `json:"categories" yaml:"categories"`
	}

	// Thumbnail is an indexed-color preview image in display orientation
	Thumbnail struct {
		// Pix holds ThumbnailWidth*ThumbnailHeight palette indices, top row first
		Pix []byte
		// Footer is the opaque block following the pixels in the Nail stream
		Footer [nailFooterSize]byte
	}

	// MasterCategoryError carries details why the master category could
	// not be resolved
	MasterCategoryError struct {
		Candidates int
		ClipCount  int
	}
)

// Master returns the category listing all clips of the catalog
func (c *Catalog) Master() *Category {
	return &c.Categories[c.MasterCategory]
}

// Image returns the thumbnail as paletted image using the given palette
func (t *Thumbnail) Image(p color.Palette) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, ThumbnailWidth, ThumbnailHeight), p)
	copy(img.Pix, t.Pix)
	return img
}

func (e *MasterCategoryError) Error() string {
	return fmt.Sprintf("%s: %d categories list %d clip IDs", ErrMasterCategory, e.Candidates, e.ClipCount)
}

func (*MasterCategoryError) Unwrap() error { return ErrMasterCategory }
