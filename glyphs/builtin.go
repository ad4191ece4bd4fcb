package glyphs

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/inkterm/inkterm"
)

// builtinFace is the fixed 7x13 bitmap face shipped with x/image.
var builtinFace font.Face = basicfont.Face7x13

// Builtin is a glyph provider backed by the builtin 7x13 bitmap font. It
// ignores the requested size, which makes it a useful fallback when no
// font file is configured.
type Builtin struct {
	mu    sync.Mutex
	cache *cache
}

// NewBuiltin creates the builtin bitmap provider.
func NewBuiltin() *Builtin {
	return &Builtin{cache: newCache(0)}
}

// Metrics returns the fixed cell geometry of the bitmap font. The size
// argument is ignored.
func (b *Builtin) Metrics(size int) inkterm.MonospaceFontMetrics {
	return faceMetrics(builtinFace)
}

// Render rasterizes a glyph from the bitmap font.
func (b *Builtin) Render(glyph rune, size int, monochrome bool, orientation int) *inkterm.GlyphBitmap {
	b.mu.Lock()
	defer b.mu.Unlock()

	orientation = ((orientation % 4) + 4) % 4
	key := cacheKey{glyph, 0, monochrome, orientation}
	if g, ok := b.cache.get(key); ok {
		return g
	}

	g := renderFace(builtinFace, glyph, monochrome)
	if g != nil && orientation != 0 {
		m := faceMetrics(builtinFace)
		g = rotate(g, orientation, m.CellWidth, m.CellHeight)
	}
	b.cache.put(key, g)
	return g
}
