package cag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
)

// fieldReader reads the little-endian scalars and length-prefixed
// strings all three streams are built from
type fieldReader struct {
	r   *bytes.Reader
	txt *encoding.Decoder
}

func newFieldReader(stream []byte, enc encoding.Encoding) *fieldReader {
	return &fieldReader{
		r:   bytes.NewReader(stream),
		txt: enc.NewDecoder(),
	}
}

func (f *fieldReader) pos() int64 {
	return f.r.Size() - int64(f.r.Len())
}

func (f *fieldReader) seek(offset int64) {
	// bytes.Reader only rejects negative offsets
	_, _ = f.r.Seek(offset, io.SeekStart)
}

func (f *fieldReader) read(data any) error {
	if err := binary.Read(f.r, binary.LittleEndian, data); err != nil {
		return truncated(err)
	}
	return nil
}

func (f *fieldReader) readBytes(n int64) ([]byte, error) {
	if n > int64(f.r.Len()) {
		return nil, fmt.Errorf("reading %d bytes at 0x%x: %w", n, f.pos(), ErrTruncatedStream)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, truncated(err)
	}
	return buf, nil
}

// readRawString reads a string prefixed with its length as single byte
// without decoding it
func (f *fieldReader) readRawString() ([]byte, error) {
	n, err := f.r.ReadByte()
	if err != nil {
		return nil, truncated(err)
	}
	return f.readBytes(int64(n))
}

// readString reads a length-prefixed string and decodes it from the
// legacy single-byte encoding
func (f *fieldReader) readString() (string, error) {
	raw, err := f.readRawString()
	if err != nil {
		return "", err
	}
	return f.decode(raw)
}

func (f *fieldReader) decode(raw []byte) (string, error) {
	s, err := f.txt.Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decoding string: %w", err)
	}
	return string(s), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %w", ErrTruncatedStream, err)
	}
	return err
}
