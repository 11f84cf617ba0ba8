package main

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/Luzifer/cag-extract/export"
	"github.com/Luzifer/go_helpers/v2/str"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
)

// defaultEncoding matches the catalogs of the US English product
const defaultEncoding = "ISO-8859-1"

type (
	// profile holds per-deployment defaults read from a TOML file,
	// command line flags take precedence
	profile struct {
		Encoding string `toml:"encoding"`
		Format   string `toml:"format"`
		Palette  string `toml:"palette"`
		IndexDB  string `toml:"index_db"`
	}

	settings struct {
		encoding encoding.Encoding
		format   string
		palette  color.Palette
		indexDB  string
	}
)

func loadProfile(path string) (p profile, err error) {
	if path == "" {
		return p, nil
	}

	f, err := os.Open(path) //#nosec:G304 // Intended to open arbitrary files
	if err != nil {
		return p, fmt.Errorf("opening profile: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	if err = toml.NewDecoder(f).DisallowUnknownFields().Decode(&p); err != nil {
		var sErr *toml.StrictMissingError
		if errors.As(err, &sErr) {
			return p, fmt.Errorf("parsing profile: %s", sErr.String())
		}
		return p, fmt.Errorf("parsing profile: %w", err)
	}

	return p, nil
}

func loadSettings() (s settings, err error) {
	p, err := loadProfile(cfg.Config)
	if err != nil {
		return s, err
	}

	encName := firstNonEmpty(cfg.Encoding, p.Encoding, defaultEncoding)
	if s.encoding, err = ianaindex.IANA.Encoding(encName); err != nil || s.encoding == nil {
		return s, fmt.Errorf("unsupported text encoding %q", encName)
	}

	s.format = firstNonEmpty(cfg.Format, p.Format, export.FormatJSON)
	if !str.StringInSlice(s.format, export.Formats) {
		return s, fmt.Errorf("unsupported format %q, use one of %v", s.format, export.Formats)
	}

	if s.palette, err = export.PaletteByName(firstNonEmpty(cfg.Palette, p.Palette, export.DefaultPalette)); err != nil {
		return s, fmt.Errorf("%w, use one of %v", err, export.PaletteNames())
	}

	s.indexDB = firstNonEmpty(cfg.IndexDB, p.IndexDB)

	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
