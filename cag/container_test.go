package cag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"unicode/utf16"
)

const (
	cfbSectorSize = 512
	cfbEntrySize  = 128

	cfbFATSector  = 0xfffffffd
	cfbEndOfChain = 0xfffffffe
	cfbFree       = 0xffffffff

	cfbTypeStream = 2
	cfbTypeRoot   = 5
)

type cfbStream struct {
	name string
	data []byte
}

// buildContainer lays out a version 3 compound document holding the
// streams as root children. Sector 0 holds the FAT, sector 1 the
// directory, stream data follows. Streams shorter than the mini stream
// cutoff are not supported.
func buildContainer(streams []cfbStream) []byte {
	if len(streams) > cfbSectorSize/cfbEntrySize-1 {
		panic("too many streams for a single directory sector")
	}

	fat := []uint32{cfbFATSector, cfbEndOfChain}
	starts := make([]uint32, len(streams))
	for i, s := range streams {
		if len(s.data) < 0x1000 {
			panic("stream would live in the mini stream")
		}
		starts[i] = uint32(len(fat))
		n := (len(s.data) + cfbSectorSize - 1) / cfbSectorSize
		for j := 1; j < n; j++ {
			fat = append(fat, uint32(len(fat)+1))
		}
		fat = append(fat, cfbEndOfChain)
	}
	if len(fat) > cfbSectorSize/4 {
		panic("streams exceed a single FAT sector")
	}
	for len(fat) < cfbSectorSize/4 {
		fat = append(fat, cfbFree)
	}

	buf := new(bytes.Buffer)

	// Header
	hdr := make([]byte, cfbSectorSize)
	copy(hdr, []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1})
	binary.LittleEndian.PutUint16(hdr[24:], 0x3e)
	binary.LittleEndian.PutUint16(hdr[26:], 3)
	binary.LittleEndian.PutUint16(hdr[28:], 0xfffe)
	binary.LittleEndian.PutUint16(hdr[30:], 9)
	binary.LittleEndian.PutUint16(hdr[32:], 6)
	binary.LittleEndian.PutUint32(hdr[44:], 1)
	binary.LittleEndian.PutUint32(hdr[48:], 1)
	binary.LittleEndian.PutUint32(hdr[56:], 0x1000)
	binary.LittleEndian.PutUint32(hdr[60:], cfbEndOfChain)
	binary.LittleEndian.PutUint32(hdr[68:], cfbEndOfChain)
	binary.LittleEndian.PutUint32(hdr[76:], 0)
	for off := 80; off < cfbSectorSize; off += 4 {
		binary.LittleEndian.PutUint32(hdr[off:], cfbFree)
	}
	buf.Write(hdr)

	// FAT
	putLE(buf, fat)

	// Directory, streams are chained as right siblings below the root
	dir := make([]byte, cfbSectorSize)
	putEntry(dir[0:], "Root Entry", cfbTypeRoot, cfbFree, 1, cfbEndOfChain, 0)
	for i, s := range streams {
		right := uint32(cfbFree)
		if i < len(streams)-1 {
			right = uint32(i + 2)
		}
		putEntry(dir[(i+1)*cfbEntrySize:], s.name, cfbTypeStream, right, cfbFree, starts[i], uint32(len(s.data)))
	}
	buf.Write(dir)

	for _, s := range streams {
		buf.Write(s.data)
		if rem := len(s.data) % cfbSectorSize; rem > 0 {
			buf.Write(make([]byte, cfbSectorSize-rem))
		}
	}

	return buf.Bytes()
}

func putEntry(b []byte, name string, typ byte, right, child, start, size uint32) {
	u := utf16.Encode([]rune(name))
	for i, c := range u {
		binary.LittleEndian.PutUint16(b[i*2:], c)
	}
	binary.LittleEndian.PutUint16(b[64:], uint16((len(u)+1)*2))
	b[66] = typ
	b[67] = 1 // black
	binary.LittleEndian.PutUint32(b[68:], cfbFree)
	binary.LittleEndian.PutUint32(b[72:], right)
	binary.LittleEndian.PutUint32(b[76:], child)
	binary.LittleEndian.PutUint32(b[116:], start)
	binary.LittleEndian.PutUint32(b[120:], size)
}

// padStream extends a stream beyond the mini stream cutoff, the decoders
// ignore everything past the data they need
func padStream(b []byte) []byte {
	if len(b) >= 0x1000 {
		return b
	}
	return append(b, make([]byte, 0x1000+100-len(b))...)
}

func containerStreams() Streams {
	s := testStreams()
	s.Category = padStream(s.Category)
	s.Thumb = padStream(s.Thumb)
	return s
}

func TestReadStreams(t *testing.T) {
	s := containerStreams()

	got, err := ReadStreams(bytes.NewReader(buildContainer([]cfbStream{
		{StreamCategory, s.Category},
		{StreamNail, s.Nail},
		{"thumb", s.Thumb}, // names match regardless of case
	})))
	if err != nil {
		t.Fatalf("reading streams: %s", err)
	}

	for name, pair := range map[string][2][]byte{
		StreamCategory: {s.Category, got.Category},
		StreamNail:     {s.Nail, got.Nail},
		StreamThumb:    {s.Thumb, got.Thumb},
	} {
		if !bytes.Equal(pair[0], pair[1]) {
			t.Errorf("Unexpected %s stream: expect=%d bytes result=%d bytes", name, len(pair[0]), len(pair[1]))
		}
	}
}

func TestReadStreamsMissingStream(t *testing.T) {
	s := containerStreams()

	_, err := ReadStreams(bytes.NewReader(buildContainer([]cfbStream{
		{StreamCategory, s.Category},
		{StreamThumb, s.Thumb},
	})))
	if !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("Unexpected error: expect=%v result=%v", ErrStreamNotFound, err)
	}
}

func TestOpenContainer(t *testing.T) {
	s := containerStreams()

	p := filepath.Join(t.TempDir(), "test.cag")
	if err := os.WriteFile(p, buildContainer([]cfbStream{
		{StreamThumb, s.Thumb},
		{StreamNail, s.Nail},
		{StreamCategory, s.Category},
	}), 0o600); err != nil {
		t.Fatalf("writing test file: %s", err)
	}

	c, err := Open(p)
	if err != nil {
		t.Fatalf("opening catalog: %s", err)
	}

	if c.Source != p {
		t.Errorf("Unexpected source: expect=%q result=%q", p, c.Source)
	}
	if len(c.Declarations) != 2 || c.Declarations[1].Filename != "dog.wmf" || c.Declarations[1].ID != 9 {
		t.Fatalf("unexpected declarations %+v", c.Declarations)
	}
	if c.TerminatingTag != 0xffffffff {
		t.Errorf("unexpected terminating tag %#x", uint32(c.TerminatingTag))
	}
}
