package export

import (
	"fmt"
	"image/color"
	"image/color/palette"
	"sort"
)

// DefaultPalette is used for thumbnails when no palette is configured
const DefaultPalette = "gray"

var palettes = map[string]color.Palette{
	"gray":    grayPalette(),
	"plan9":   palette.Plan9,
	"websafe": palette.WebSafe,
}

// PaletteByName returns one of the known thumbnail palettes. The Nail
// stream only stores indices, the catalog carries no palette.
func PaletteByName(name string) (color.Palette, error) {
	p, ok := palettes[name]
	if !ok {
		return nil, fmt.Errorf("unknown palette %q", name)
	}
	return p, nil
}

// PaletteNames lists the names accepted by PaletteByName
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for n := range palettes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func grayPalette() color.Palette {
	p := make(color.Palette, 256) //nolint:mnd
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)} //#nosec:G115 // i < 256
	}
	return p
}
