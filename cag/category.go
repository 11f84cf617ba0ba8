package cag

import (
	"fmt"

	"golang.org/x/text/encoding"
)

const categoryTerminator = 0x00

type categoryRecordHeader struct {
	ClipCount uint16
	Unknown1  uint32
}

// decodeCategories reads the Category stream: a fixed header followed by
// up to CategoryCount categories, ended early by a terminator title
func decodeCategories(stream []byte, enc encoding.Encoding) (hdr CategoryHeader, cats []Category, err error) {
	f := newFieldReader(stream, enc)

	if err = f.read(&hdr); err != nil {
		return hdr, nil, fmt.Errorf("reading category header: %w", err)
	}

	for i := uint32(0); i < hdr.CategoryCount; i++ {
		cat, ok, err := decodeCategory(f)
		if err != nil {
			return hdr, nil, fmt.Errorf("reading category %d: %w", i, err)
		}

		if !ok {
			// Terminator, nothing follows
			break
		}

		cats = append(cats, cat)
	}

	return hdr, cats, nil
}

func decodeCategory(f *fieldReader) (cat Category, ok bool, err error) {
	raw, err := f.readRawString()
	if err != nil {
		return cat, false, fmt.Errorf("reading title: %w", err)
	}

	if isCategoryTerminator(raw) {
		return cat, false, nil
	}

	if cat.Title, err = f.decode(raw); err != nil {
		return cat, false, fmt.Errorf("decoding title: %w", err)
	}

	var rec categoryRecordHeader
	if err = f.read(&rec); err != nil {
		return cat, false, fmt.Errorf("reading record header of %q: %w", cat.Title, err)
	}
	cat.Unknown1 = rec.Unknown1

	cat.ClipIDs = make([]uint32, rec.ClipCount)
	if err = f.read(cat.ClipIDs); err != nil {
		return cat, false, fmt.Errorf("reading %d clip IDs of %q: %w", rec.ClipCount, cat.Title, err)
	}

	return cat, true, nil
}

func isCategoryTerminator(title []byte) bool {
	return len(title) == 0 || (len(title) == 1 && title[0] == categoryTerminator)
}
