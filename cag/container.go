package cag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
)

// Open reads the CAG file at the given path using the default Decoder
func Open(path string) (*Catalog, error) {
	return Decoder{}.Open(path)
}

// Open reads the streams from the CAG file at the given path and
// decodes them
func (d Decoder) Open(path string) (*Catalog, error) {
	f, err := os.Open(path) //#nosec:G304 // Intended to open arbitrary files
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	s, err := ReadStreams(f)
	if err != nil {
		return nil, err
	}

	return d.Decode(path, s)
}

// ReadStreams extracts the Category, Nail and Thumb streams from the
// compound document container
func ReadStreams(r io.ReaderAt) (s Streams, err error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return s, fmt.Errorf("opening compound document: %w", err)
	}

	targets := map[string]*[]byte{
		StreamCategory: &s.Category,
		StreamNail:     &s.Nail,
		StreamThumb:    &s.Thumb,
	}
	found := map[string]bool{}

	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s, fmt.Errorf("reading directory entry: %w", err)
		}

		for name, target := range targets {
			// Entry names in compound documents are case-insensitive
			if found[name] || !strings.EqualFold(entry.Name, name) {
				continue
			}

			if *target, err = io.ReadAll(entry); err != nil {
				return s, fmt.Errorf("reading %s stream: %w", name, err)
			}
			found[name] = true
		}
	}

	for _, name := range []string{StreamCategory, StreamNail, StreamThumb} {
		if !found[name] {
			return s, fmt.Errorf("%s: %w", name, ErrStreamNotFound)
		}
	}

	return s, nil
}
