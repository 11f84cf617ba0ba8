package cag

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

type (
	// Decoder turns the streams of a CAG container into a Catalog
	Decoder struct {
		// Encoding of all text fields, defaults to ISO-8859-1 which
		// matches catalogs of the US English product
		Encoding encoding.Encoding
	}

	// Streams holds the raw contents of the three catalog streams
	Streams struct {
		Category []byte
		Nail     []byte
		Thumb    []byte
	}
)

// Decode decodes the streams using the default Decoder
func Decode(source string, s Streams) (*Catalog, error) {
	return Decoder{}.Decode(source, s)
}

// Decode decodes and joins the three streams into a Catalog. Either the
// whole catalog decodes consistently or an error is returned.
func (d Decoder) Decode(source string, s Streams) (*Catalog, error) {
	enc := d.Encoding
	if enc == nil {
		enc = charmap.ISO8859_1
	}

	c := &Catalog{Source: source}

	var (
		cats []Category
		err  error
	)
	if c.Header, cats, err = decodeCategories(s.Category, enc); err != nil {
		return nil, fmt.Errorf("decoding %s stream: %w", StreamCategory, err)
	}
	c.Categories = cats

	var (
		nails = newNailReader(newFieldReader(s.Nail, enc))
		thumb = newThumbDecoder(newFieldReader(s.Thumb, enc), nails)
		raw   []*RawDeclaration
	)

	for {
		decl, err := thumb.Next()
		if err != nil {
			return nil, fmt.Errorf("decoding %s stream: %w", StreamThumb, err)
		}
		if decl == nil {
			break
		}
		raw = append(raw, decl)
	}
	c.TerminatingTag = thumb.terminatingTag
	c.ThumbJunk = thumb.junk

	if c.MasterCategory, err = resolveMasterCategory(c.Categories, len(raw)); err != nil {
		return nil, err
	}

	c.Declarations = resolveDeclarations(raw, c.Categories, c.MasterCategory)

	return c, nil
}

// resolveMasterCategory finds the "(All Categories)" category. There
// might be several categories titled like that, so the one listing one
// clip ID more than there are declarations is taken.
func resolveMasterCategory(cats []Category, declCount int) (int, error) {
	var (
		master     = -1
		candidates int
	)

	for i := range cats {
		if len(cats[i].ClipIDs) == declCount+1 {
			master = i
			candidates++
		}
	}

	if candidates != 1 {
		return -1, &MasterCategoryError{Candidates: candidates, ClipCount: declCount + 1}
	}

	return master, nil
}

// resolveDeclarations assigns the clip IDs of the master category to the
// declarations by position and fills their category titles
func resolveDeclarations(raw []*RawDeclaration, cats []Category, master int) []Declaration {
	// The first ID of the master category belongs to no declaration
	ids := cats[master].ClipIDs[1:]

	titles := make(map[uint32][]string)
	for ci, cat := range cats {
		if ci == master {
			continue
		}

		seen := make(map[uint32]bool, len(cat.ClipIDs))
		for _, id := range cat.ClipIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			titles[id] = append(titles[id], cat.Title)
		}
	}

	out := make([]Declaration, len(raw))
	for i, r := range raw {
		out[i] = Declaration{
			RawDeclaration: *r,
			ID:             ids[i],
			Categories:     append([]string{}, titles[ids[i]]...),
		}
	}

	return out
}
