// Package inkterm provides the rendering pipeline of a terminal emulator
// for reflective electrophoretic (e-paper) displays.
//
// This package contains:
//   - Color types and palettes
//   - The terminal cell matrix with dirty tracking
//   - A layered memory display with scoped lock/commit semantics
//   - The two-pass matrix renderer (fast dithered draft, high-quality
//     promotion)
//   - The e-paper update semantics shared by the hardware and emulation
//     backends
//
// Backend-specific packages (fbdev, gtk, qt, term) provide the physical
// display implementations that drive this core package.
package inkterm

// RGBA is a 32-bit color with an 8-bit alpha channel.
type RGBA struct {
	R, G, B, A uint8
}

// Predefined colors
var (
	Black       = RGBA{0, 0, 0, 0xFF}
	White       = RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	Transparent = RGBA{}
)

// RGBAFromHex builds an opaque color from a 0xRRGGBB hex code.
func RGBAFromHex(hex uint32) RGBA {
	return RGBA{
		R: uint8(hex >> 16),
		G: uint8(hex >> 8),
		B: uint8(hex),
		A: 0xFF,
	}
}

// PremultiplyAlpha returns the color with R, G and B scaled by the alpha
// channel. Premultiplied alpha makes composition cheaper.
func (c RGBA) PremultiplyAlpha() RGBA {
	return RGBA{
		R: uint8(uint16(c.R) * uint16(c.A) / 255),
		G: uint8(uint16(c.G) * uint16(c.A) / 255),
		B: uint8(uint16(c.B) * uint16(c.A) / 255),
		A: c.A,
	}
}

// Invert returns the color with all color channels inverted. The alpha
// channel is preserved.
func (c RGBA) Invert() RGBA {
	return RGBA{R: ^c.R, G: ^c.G, B: ^c.B, A: c.A}
}

// Palette is a dense table of up to 256 colors. Out-of-range lookups
// yield black.
type Palette struct {
	entries [256]RGBA
	size    int
}

// NewPalette builds a palette from the given entries. At most 256 entries
// are used.
func NewPalette(entries []RGBA) *Palette {
	p := &Palette{}
	p.size = len(entries)
	if p.size > 256 {
		p.size = 256
	}
	copy(p.entries[:], entries[:p.size])
	return p
}

// Size returns the number of entries in the palette.
func (p *Palette) Size() int { return p.size }

// At returns the palette entry at index i, or black if i is out of range.
func (p *Palette) At(i int) RGBA {
	if i < 0 || i >= p.size {
		return Black
	}
	return p.entries[i]
}

// Set overwrites the palette entry at index i. Out-of-range indices are
// ignored.
func (p *Palette) Set(i int, c RGBA) {
	if i >= 0 && i < p.size {
		p.entries[i] = c
	}
}

// Tango16 is the 16 color palette used by Gnome Terminal.
var Tango16 = NewPalette([]RGBA{
	RGBAFromHex(0x000000), RGBAFromHex(0xCC0000),
	RGBAFromHex(0x4E9A06), RGBAFromHex(0xC4A000),
	RGBAFromHex(0x3465A4), RGBAFromHex(0x75507B),
	RGBAFromHex(0x06989A), RGBAFromHex(0xD3D7CF),
	RGBAFromHex(0x555753), RGBAFromHex(0xEF2929),
	RGBAFromHex(0x8AE234), RGBAFromHex(0xFCE94F),
	RGBAFromHex(0x729FCF), RGBAFromHex(0xAD7FA8),
	RGBAFromHex(0x34E2E2), RGBAFromHex(0xEEEEEC),
})

// Default256 extends Tango16 with the 6x6x6 color cube and the 24-step
// gray ramp of the xterm 256 color palette.
var Default256 = func() *Palette {
	entries := make([]RGBA, 256)
	for i := 0; i < 16; i++ {
		entries[i] = Tango16.At(i)
	}
	ramp := [6]uint8{0, 95, 135, 175, 215, 255}
	for i := 16; i < 232; i++ {
		j := i - 16
		entries[i] = RGBA{
			R: ramp[j/36],
			G: ramp[(j/6)%6],
			B: ramp[j%6],
			A: 0xFF,
		}
	}
	for i := 232; i < 256; i++ {
		v := uint8((i-232)*10 + 8)
		entries[i] = RGBA{v, v, v, 0xFF}
	}
	return NewPalette(entries)
}()

// colorMode indicates how a Color was specified.
type colorMode uint8

const (
	colorModeIndexed colorMode = iota
	colorModeRGB
)

// Color is either a palette index or a direct RGB color.
type Color struct {
	mode colorMode
	idx  int
	rgb  RGBA
}

// IndexedColor creates a color referring to a palette entry.
func IndexedColor(idx int) Color {
	return Color{mode: colorModeIndexed, idx: idx}
}

// RGBColor creates a direct RGB color.
func RGBColor(c RGBA) Color {
	return Color{mode: colorModeRGB, rgb: c}
}

// IsIndexed reports whether the color refers to a palette entry.
func (c Color) IsIndexed() bool { return c.mode == colorModeIndexed }

// Index returns the palette index, or -1 for RGB colors.
func (c Color) Index() int {
	if c.mode != colorModeIndexed {
		return -1
	}
	return c.idx
}

// RGB resolves the color against the given palette. Direct RGB colors are
// returned unchanged.
func (c Color) RGB(p *Palette) RGBA {
	if c.mode == colorModeIndexed {
		return p.At(c.idx)
	}
	return c.rgb
}

// ColorLayout describes the pixel packing of a display backend: bits per
// pixel and per-channel shifts to convert between 8-bit components and the
// packed value.
type ColorLayout struct {
	// Bits per pixel.
	BPP uint8

	// Right shift applied to the 8-bit component, then left shift into
	// the packed pixel value, per channel.
	RR, RL, GR, GL, BR, BL uint8
}

// RGBA32Layout is the layout of the 32-bpp surfaces used by the memory
// display and the emulation backends.
var RGBA32Layout = ColorLayout{BPP: 32, RR: 0, RL: 16, GR: 0, GL: 8, BR: 0, BL: 0}

// BytesPerPixel returns the pixel size in whole bytes.
func (l ColorLayout) BytesPerPixel() int {
	return (int(l.BPP) + 7) >> 3
}

// Conv packs the given color into the backend pixel format.
func (l ColorLayout) Conv(c RGBA) uint32 {
	return (uint32(c.R)>>l.RR)<<l.RL |
		(uint32(c.G)>>l.GR)<<l.GL |
		(uint32(c.B)>>l.BR)<<l.BL
}

// ConvToRGBA unpacks a backend pixel value into an opaque RGBA color. The
// low bits lost by the packing are backfilled by replicating the high
// bits, so full white round-trips to full white.
func (l ColorLayout) ConvToRGBA(v uint32) RGBA {
	return RGBA{
		R: expandChannel(v>>l.RL, l.RR),
		G: expandChannel(v>>l.GL, l.GR),
		B: expandChannel(v>>l.BL, l.BR),
		A: 0xFF,
	}
}

func expandChannel(x uint32, rshift uint8) uint8 {
	x &= 0xFF >> rshift
	x <<= rshift
	if rshift > 0 {
		x |= x >> (8 - rshift)
	}
	return uint8(x)
}
