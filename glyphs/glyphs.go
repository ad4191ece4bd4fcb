// Package glyphs provides the glyph providers of the terminal: an
// OpenType rasterizer built on golang.org/x/image and a builtin bitmap
// font for systems without font files. Both share the rendering core in
// this file: glyphs are rasterized through a font.Face into an 8-bit
// alpha mask, optionally thresholded to monochrome, rotated to the
// requested orientation and cached.
package glyphs

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/inkterm/inkterm"
)

// cacheKey identifies a rendered glyph.
type cacheKey struct {
	glyph       rune
	size        int
	monochrome  bool
	orientation int
}

// cache is a bounded glyph bitmap cache with FIFO eviction. Returned
// bitmap pointers stay valid for the lifetime of the cache, matching the
// provider contract.
type cache struct {
	maxSize int
	entries map[cacheKey]*inkterm.GlyphBitmap
	order   []cacheKey
}

func newCache(maxSize int) *cache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &cache{
		maxSize: maxSize,
		entries: make(map[cacheKey]*inkterm.GlyphBitmap),
	}
}

func (c *cache) get(k cacheKey) (*inkterm.GlyphBitmap, bool) {
	g, ok := c.entries[k]
	return g, ok
}

func (c *cache) put(k cacheKey, g *inkterm.GlyphBitmap) {
	if _, ok := c.entries[k]; !ok {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, k)
	}
	c.entries[k] = g
}

func (c *cache) clear() {
	c.entries = make(map[cacheKey]*inkterm.GlyphBitmap)
	c.order = c.order[:0]
}

// faceMetrics derives the monospace cell geometry from a font face. The
// cell width comes from the advance of 'M'.
func faceMetrics(face font.Face) inkterm.MonospaceFontMetrics {
	m := face.Metrics()
	adv, ok := face.GlyphAdvance('M')
	if !ok {
		adv = m.Height / 2
	}
	return inkterm.MonospaceFontMetrics{
		CellWidth:  adv.Ceil(),
		CellHeight: m.Height.Ceil(),
		OriginY:    m.Ascent.Ceil(),
	}
}

// renderFace rasterizes a single glyph with the dot on the cell baseline
// and returns the unrotated alpha mask, or nil if the face has no glyph
// for the rune.
func renderFace(face font.Face, glyph rune, mono bool) *inkterm.GlyphBitmap {
	if glyph == 0 {
		return nil
	}
	m := face.Metrics()
	dot := fixed.Point26_6{X: 0, Y: m.Ascent}
	dr, maskImg, maskp, _, ok := face.Glyph(dot, glyph)
	if !ok || dr.Empty() {
		return nil
	}

	w, h := dr.Dx(), dr.Dy()
	g := &inkterm.GlyphBitmap{
		X:      dr.Min.X,
		Y:      dr.Min.Y,
		W:      w,
		H:      h,
		Stride: w,
		Buf:    make([]uint8, w*h),
	}

	// Pull the mask rows into the bitmap buffer.
	alpha, isAlpha := maskImg.(*image.Alpha)
	if !isAlpha {
		tmp := image.NewAlpha(image.Rect(0, 0, w, h))
		draw.Draw(tmp, tmp.Bounds(), maskImg, maskp, draw.Src)
		alpha, maskp = tmp, image.Point{}
	}
	for y := 0; y < h; y++ {
		src := alpha.Pix[(maskp.Y+y)*alpha.Stride+maskp.X:]
		copy(g.Buf[y*g.Stride:(y+1)*g.Stride], src[:w])
	}

	if mono {
		for i, a := range g.Buf {
			if a >= 0x80 {
				g.Buf[i] = 0xFF
			} else {
				g.Buf[i] = 0
			}
		}
	}
	return g
}

// rotate returns the glyph bitmap rotated into the given orientation
// within a cell of the given size. Orientation 0 returns the input
// unchanged.
func rotate(g *inkterm.GlyphBitmap, orientation, cellW, cellH int) *inkterm.GlyphBitmap {
	if g == nil || orientation == 0 {
		return g
	}

	var out inkterm.GlyphBitmap
	switch orientation {
	case 1:
		out = inkterm.GlyphBitmap{
			X: g.Y, Y: cellW - g.X - g.W,
			W: g.H, H: g.W,
		}
	case 2:
		out = inkterm.GlyphBitmap{
			X: cellW - g.X - g.W, Y: cellH - g.Y - g.H,
			W: g.W, H: g.H,
		}
	case 3:
		out = inkterm.GlyphBitmap{
			X: cellH - g.Y - g.H, Y: g.X,
			W: g.H, H: g.W,
		}
	}
	out.Stride = out.W
	out.Buf = make([]uint8, out.W*out.H)

	for b := 0; b < out.H; b++ {
		for a := 0; a < out.W; a++ {
			var u, v int
			switch orientation {
			case 1:
				u, v = g.W-1-b, a
			case 2:
				u, v = g.W-1-a, g.H-1-b
			case 3:
				u, v = b, g.H-1-a
			}
			out.Buf[b*out.Stride+a] = g.Buf[v*g.Stride+u]
		}
	}
	return &out
}
