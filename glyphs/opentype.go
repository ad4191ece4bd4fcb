package glyphs

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"

	"github.com/inkterm/inkterm"
)

// OpenType rasterizes glyphs from an OpenType or TrueType font file.
// Sizes are given in 1/64ths of a point, so size 12*64 is a 12 pt font at
// the configured DPI.
type OpenType struct {
	mu    sync.Mutex
	font  *sfnt.Font
	dpi   float64
	faces map[int]font.Face
	cache *cache
}

// LoadOpenType loads a font file. maxCacheSize bounds the number of
// cached glyph bitmaps; zero selects a sensible default.
func LoadOpenType(path string, dpi int, maxCacheSize int) (*OpenType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("glyphs: reading font %q: %w", path, err)
	}
	return ParseOpenType(data, dpi, maxCacheSize)
}

// ParseOpenType parses font data already in memory.
func ParseOpenType(data []byte, dpi int, maxCacheSize int) (*OpenType, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("glyphs: parsing font: %w", err)
	}
	if dpi <= 0 {
		dpi = 96
	}
	return &OpenType{
		font:  f,
		dpi:   float64(dpi),
		faces: make(map[int]font.Face),
		cache: newCache(maxCacheSize),
	}, nil
}

// face returns (and lazily creates) the face for the given size.
func (o *OpenType) face(size int) font.Face {
	if f, ok := o.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(o.font, &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     o.dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// Fall back to the builtin face so that rendering stays
		// possible; every lookup will miss the same way.
		f = builtinFace
	}
	o.faces[size] = f
	return f
}

// Clear drops all cached glyphs and faces.
func (o *OpenType) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.faces = make(map[int]font.Face)
	o.cache.clear()
}

// Metrics returns the monospace cell geometry at the given size.
func (o *OpenType) Metrics(size int) inkterm.MonospaceFontMetrics {
	o.mu.Lock()
	defer o.mu.Unlock()
	return faceMetrics(o.face(size))
}

// Render rasterizes a glyph. The returned bitmap is cached and must not
// be modified.
func (o *OpenType) Render(glyph rune, size int, monochrome bool, orientation int) *inkterm.GlyphBitmap {
	o.mu.Lock()
	defer o.mu.Unlock()

	orientation = ((orientation % 4) + 4) % 4
	key := cacheKey{glyph, size, monochrome, orientation}
	if g, ok := o.cache.get(key); ok {
		return g
	}

	face := o.face(size)
	g := renderFace(face, glyph, monochrome)
	if g != nil && orientation != 0 {
		m := faceMetrics(face)
		g = rotate(g, orientation, m.CellWidth, m.CellHeight)
	}
	o.cache.put(key, g)
	return g
}
