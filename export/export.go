// Package export writes decoded catalogs to the filesystem
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/Luzifer/cag-extract/cag"
	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"
)

// Supported metadata document formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o644

	junkSuffix      = ".thumb_junk.dat"
	thumbnailSuffix = ".thumbnail.bmp"
)

// Formats lists the supported metadata document formats
var Formats = []string{FormatJSON, FormatYAML}

// Exporter writes the metadata document, the Thumb stream junk and one
// BMP per clip thumbnail into Dir. One Exporter should be used for all
// catalogs exported into the same Dir to detect overwritten files.
type Exporter struct {
	Dir     string
	Format  string
	Palette color.Palette

	// OnFile is called with the path of every file written, overwritten
	// is set when this Exporter already wrote that path before
	OnFile func(path string, overwritten bool)

	written map[string]bool
}

// Export writes all artifacts of the catalog
func (e *Exporter) Export(c *cag.Catalog) error {
	if err := os.MkdirAll(e.Dir, dirPermissions); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	base := filepath.Base(c.Source)

	doc, err := Document(c, e.Format)
	if err != nil {
		return err
	}

	if err = e.write(base+"."+e.format(), doc); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	if err = e.write(base+junkSuffix, c.ThumbJunk); err != nil {
		return fmt.Errorf("writing thumb junk: %w", err)
	}

	for i := range c.Declarations {
		d := &c.Declarations[i]
		if d.Thumbnail == nil {
			continue
		}

		buf := new(bytes.Buffer)
		if err = bmp.Encode(buf, d.Thumbnail.Image(e.palette())); err != nil {
			return fmt.Errorf("encoding thumbnail of clip %d: %w", d.ID, err)
		}

		if err = e.write(ThumbnailName(d), buf.Bytes()); err != nil {
			return fmt.Errorf("writing thumbnail of clip %d: %w", d.ID, err)
		}
	}

	return nil
}

// Document renders the catalog metadata in the given format, pixel data
// and junk regions are left out
func Document(c *cag.Catalog, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		doc, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshalling JSON: %w", err)
		}
		return append(doc, '\n'), nil

	case FormatYAML:
		buf := new(bytes.Buffer)
		enc := yaml.NewEncoder(buf)
		enc.SetIndent(2) //nolint:mnd
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("marshalling YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("finishing YAML: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// ThumbnailName derives the name of the thumbnail file from the filename
// of the clip, which may contain a DOS path
func ThumbnailName(d *cag.Declaration) string {
	name := d.Filename
	if i := strings.LastIndexAny(name, `\/:`); i >= 0 {
		name = name[i+1:]
	}

	if name == "" || name == "." || name == ".." {
		name = fmt.Sprintf("clip-%d", d.ID)
	}

	return name + thumbnailSuffix
}

func (e *Exporter) format() string {
	if e.Format == "" {
		return FormatJSON
	}
	return e.Format
}

func (e *Exporter) palette() color.Palette {
	if e.Palette == nil {
		p, _ := PaletteByName(DefaultPalette)
		return p
	}
	return e.Palette
}

func (e *Exporter) write(name string, data []byte) error {
	p := filepath.Join(e.Dir, name)
	if err := os.WriteFile(p, data, filePermissions); err != nil { //#nosec:G306 // exported files are meant to be shared
		return err
	}

	if e.written == nil {
		e.written = make(map[string]bool)
	}
	overwritten := e.written[p]
	e.written[p] = true

	if e.OnFile != nil {
		e.OnFile(p, overwritten)
	}
	return nil
}
