package cag

import (
	"fmt"
	"strings"
)

const (
	thumbHeaderSize  = 0x190
	keywordSeparator = ","
)

// RecordType is the tag in front of every clip declaration in the Thumb
// stream. The tag implies the on-disk length of the record.
type RecordType uint32

// recordLengths maps every known record type to its total record length
// including the tag itself
var recordLengths = map[RecordType]int64{
	0x10: 0x320,
	0x20: 0x640,
	0x28: 0x640,
	0x30: 0x190,
	0x90: 0x320,
	0xa0: 0x640,
}

// Length returns the record length for the type, false for unknown types
func (t RecordType) Length() (int64, bool) {
	l, ok := recordLengths[t]
	return l, ok
}

// MarshalText renders the tag in hex as it is listed in the length table
func (t RecordType) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", uint32(t))), nil
}

// thumbDecoder reads clip declarations from the Thumb stream and pulls
// exactly one thumbnail from the Nail stream for each of them
type thumbDecoder struct {
	f     *fieldReader
	nails *nailReader
	n     int

	terminatingTag RecordType
	junk           []byte
}

func newThumbDecoder(f *fieldReader, nails *nailReader) *thumbDecoder {
	f.seek(thumbHeaderSize)
	return &thumbDecoder{f: f, nails: nails}
}

// Next returns the next declaration or nil when the record sequence
// ended. After the end the junk is available.
func (d *thumbDecoder) Next() (*RawDeclaration, error) {
	entryStart := d.f.pos()

	var tag RecordType
	if err := d.f.read(&tag); err != nil {
		return nil, fmt.Errorf("reading type of record %d: %w", d.n, err)
	}

	length, ok := tag.Length()
	if !ok {
		d.terminatingTag = tag
		d.f.seek(entryStart)
		junk, err := d.f.readBytes(int64(d.f.r.Len()))
		if err != nil {
			return nil, fmt.Errorf("reading trailing data: %w", err)
		}
		d.junk = junk
		return nil, nil
	}
	entryEnd := entryStart + length

	decl, err := d.readFields(tag, entryEnd)
	if err != nil {
		return nil, fmt.Errorf("reading record %d (type %#x at 0x%x): %w", d.n, uint32(tag), entryStart, err)
	}

	if decl.Thumbnail, err = d.nails.Next(); err != nil {
		return nil, fmt.Errorf("reading thumbnail for record %d: %w", d.n, err)
	}

	d.n++
	return decl, nil
}

func (d *thumbDecoder) readFields(tag RecordType, entryEnd int64) (decl *RawDeclaration, err error) {
	decl = &RawDeclaration{Type: tag}

	if decl.Filename, err = d.f.readString(); err != nil {
		return nil, fmt.Errorf("reading filename: %w", err)
	}

	// Without subdirectory this holds the drive root (usually "C:\")
	if decl.Subdirectory, err = d.f.readString(); err != nil {
		return nil, fmt.Errorf("reading subdirectory: %w", err)
	}

	keywords, err := d.f.readString()
	if err != nil {
		return nil, fmt.Errorf("reading keywords: %w", err)
	}
	decl.Keywords = strings.Split(keywords, keywordSeparator)

	pos := d.f.pos()
	if pos > entryEnd {
		return nil, fmt.Errorf("fields end at 0x%x, record ends at 0x%x: %w", pos, entryEnd, ErrRecordOverrun)
	}

	if decl.Tail, err = d.f.readBytes(entryEnd - pos); err != nil {
		return nil, fmt.Errorf("reading record tail: %w", err)
	}

	return decl, nil
}
