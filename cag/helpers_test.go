package cag

import (
	"bytes"
	"encoding/binary"
)

type (
	testCategory struct {
		title string
		ids   []uint32
	}

	testRecord struct {
		tag              RecordType
		filename, subdir string
		keywords         string
		tailFill         byte
	}
)

func putLE(buf *bytes.Buffer, v any) {
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

func putString(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

func buildCategoryStream(cats []testCategory, terminate bool) []byte {
	buf := new(bytes.Buffer)

	count := uint32(len(cats))
	if terminate {
		count++
	}
	putLE(buf, [4]uint32{0x11, 0x22, count, 0x33})

	for _, c := range cats {
		putString(buf, c.title)
		putLE(buf, uint16(len(c.ids)))
		putLE(buf, uint32(0xdeadbeef))
		putLE(buf, c.ids)
	}

	if terminate {
		putString(buf, "\x00")
	}

	return buf.Bytes()
}

func buildThumbStream(records []testRecord, trailer []byte) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, thumbHeaderSize))

	for _, r := range records {
		start := buf.Len()
		putLE(buf, uint32(r.tag))
		putString(buf, r.filename)
		putString(buf, r.subdir)
		putString(buf, r.keywords)

		length, _ := r.tag.Length()
		for int64(buf.Len()-start) < length {
			buf.WriteByte(r.tailFill)
		}
	}

	buf.Write(trailer)
	return buf.Bytes()
}

// buildNailStream creates count thumbnails, pixel values of thumbnail i
// are pixel(i, x, y) in storage order
func buildNailStream(count int, pixel func(i, x, y int) byte) []byte {
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, nailHeaderSize))

	for i := 0; i < count; i++ {
		for y := 0; y < ThumbnailHeight; y++ {
			for x := 0; x < ThumbnailWidth; x++ {
				buf.WriteByte(pixel(i, x, y))
			}
		}
		buf.Write(bytes.Repeat([]byte{byte(i)}, nailFooterSize))
	}

	return buf.Bytes()
}

func zeroPixel(int, int, int) byte { return 0 }
