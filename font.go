package inkterm

// GlyphBitmap is a rendered glyph: an 8-bit alpha mask plus the origin
// offsets of the mask within its cell. Bitmaps are immutable and owned by
// the glyph provider; the renderer only borrows them for the duration of
// a draw pass.
type GlyphBitmap struct {
	// Offset of the top-left corner of the mask within the cell.
	X, Y int

	// Mask dimensions in pixels.
	W, H int

	// Length of one mask row in bytes.
	Stride int

	// Alpha mask, H rows of Stride bytes.
	Buf []uint8
}

// MonospaceFontMetrics describes the fixed cell geometry of a monospace
// font at a given size.
type MonospaceFontMetrics struct {
	CellWidth  int
	CellHeight int

	// Distance from the cell top to the text baseline.
	OriginY int
}

// GlyphProvider rasterizes Unicode codepoints into glyph bitmaps. Sizes
// are given in 1/64ths of a point. With monochrome set the mask contains
// only the values 0 and 255. Orientation rotates the glyph in 90° steps
// so that it can be blitted into rotated cell rectangles without further
// transformation.
//
// Render returns nil for glyphs the font cannot display.
type GlyphProvider interface {
	Metrics(size int) MonospaceFontMetrics
	Render(glyph rune, size int, monochrome bool, orientation int) *GlyphBitmap
}
