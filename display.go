package inkterm

import "sync"

// Layer selects one of the two drawing layers of the memory display. The
// background layer is treated as opaque; the presentation layer is
// alpha-blended on top of it during composition.
type Layer int

const (
	LayerBackground Layer = iota
	LayerPresentation
)

// DrawMode selects how a blit affects the target layer.
type DrawMode int

const (
	// DrawWrite stores the premultiplied source color wherever the mask
	// is non-zero.
	DrawWrite DrawMode = iota

	// DrawErase zeroes the target pixels wherever the mask is non-zero.
	DrawErase
)

// OutputOp transforms source pixel values before they are written to the
// e-paper. The values are bit flags; Invert and ForceMono combine.
type OutputOp uint8

const (
	OutputIdentity  OutputOp = 0
	OutputForceMono OutputOp = 1 << 0
	OutputInvert    OutputOp = 1 << 1
	OutputWhite     OutputOp = 1 << 2

	OutputInvertAndForceMono = OutputInvert | OutputForceMono
)

// MaskOp selects which pixels within a commit region the panel actually
// rewrites. The values are bit flags and combine.
type MaskOp uint8

const (
	MaskFull       MaskOp = 0
	MaskSourceMono MaskOp = 1 << 0
	MaskTargetMono MaskOp = 1 << 1
	MaskPartial    MaskOp = 1 << 2

	MaskSourceAndTargetMono = MaskSourceMono | MaskTargetMono
)

// UpdateMode is the waveform hint attached to a commit region. The
// renderer's draft pass uses (Identity, SourceMono); the promotion pass
// uses (Identity, Partial).
type UpdateMode struct {
	Output OutputOp
	Mask   MaskOp
}

// CommitRequest is a queued display update: a rectangle plus the update
// mode it should be driven with.
type CommitRequest struct {
	Rect Rect
	Mode UpdateMode
}

// Backend is the physical display a MemoryDisplay drives.
//
// DoLock returns the display rectangle in display coordinates; an invalid
// rectangle means no surface is available and the frame becomes a no-op.
// DoUnlock receives the queued commit requests (in display coordinates)
// together with the composed RGBA buffer; it blocks until the updates
// have been driven to the panel. Both hooks are called exactly once per
// outer lock/unlock cycle, on the unlocking thread. The backend must not
// change size while locked.
type Backend interface {
	DoLock() Rect
	DoUnlock(requests []CommitRequest, composite []RGBA, stride int)
}

// MemoryDisplay is a layered drawing surface with deferred, batched
// commits. Draw operations target the background or presentation layer;
// on the final unlock the committed rectangles are composed into a single
// buffer and handed to the backend.
//
// Lock and Unlock nest. Drawing and committing require the lock to be
// held; nested Lock calls must come from the call path that holds the
// outer lock.
type MemoryDisplay struct {
	backend Backend

	mu        sync.Mutex
	lockCount int

	width  int
	height int

	// Row stride in pixels. Rows are padded so that a row in bytes is a
	// multiple of 16.
	stride int

	displayRect Rect
	surfRect    Rect

	requests []CommitRequest

	composite    []RGBA
	background   []RGBA
	presentation []RGBA
}

// NewMemoryDisplay creates a memory display driving the given backend.
func NewMemoryDisplay(backend Backend) *MemoryDisplay {
	return &MemoryDisplay{backend: backend}
}

// resize reallocates the pixel buffers for the given surface size.
func (d *MemoryDisplay) resize(w, h int) {
	if w == d.width && h == d.height {
		return
	}
	const pxSize = 4
	d.stride = (w*pxSize + 15) / 16 * 16 / pxSize
	d.width = w
	d.height = h

	size := h * d.stride
	d.composite = make([]RGBA, size)
	d.background = make([]RGBA, size)
	d.presentation = make([]RGBA, size)
}

// Lock acquires the display for drawing. The first lock of a cycle asks
// the backend for the physical display rectangle and reallocates the
// internal buffers if the geometry changed. The returned rectangle is the
// drawable surface in local (0-based) coordinates.
func (d *MemoryDisplay) Lock() Rect {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lockCount == 0 {
		r := d.backend.DoLock()
		if r.Valid() {
			d.resize(r.Width(), r.Height())
			d.displayRect = r
			d.surfRect = Rect{0, 0, d.width, d.height}
		} else {
			d.surfRect = Rect{}
		}
	}
	d.lockCount++
	return d.surfRect
}

// Unlock releases the display. The final unlock of a cycle composes every
// queued commit rectangle, translates the rectangles into display
// coordinates and hands them to the backend in a single DoUnlock call.
func (d *MemoryDisplay) Unlock() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lockCount == 0 {
		return
	}
	d.lockCount--
	if d.lockCount > 0 {
		return
	}

	origin := Point{d.displayRect.X0, d.displayRect.Y0}
	for i := range d.requests {
		d.compose(d.requests[i].Rect)
		d.requests[i].Rect = d.requests[i].Rect.Translate(origin)
	}
	d.backend.DoUnlock(d.requests, d.composite, d.stride)
	d.requests = d.requests[:0]
}

// Commit queues a rectangle to be driven to the panel with the given
// update mode on the final unlock. An invalid rectangle commits the whole
// surface. Commit is only valid while the display is locked.
func (d *MemoryDisplay) Commit(r Rect, mode UpdateMode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lockCount <= 0 || d.surfRect.Width() == 0 || d.surfRect.Height() == 0 {
		return
	}
	tar := d.surfRect
	if r.Valid() {
		tar = d.surfRect.Clip(r)
	}
	d.requests = append(d.requests, CommitRequest{Rect: tar, Mode: mode})
}

// layerBuf returns the pixel buffer of the given layer.
func (d *MemoryDisplay) layerBuf(layer Layer) []RGBA {
	switch layer {
	case LayerBackground:
		return d.background
	case LayerPresentation:
		return d.presentation
	}
	return nil
}

// clipTarget clips r to the surface and returns the target layer buffer,
// or nil if there is nothing to draw.
func (d *MemoryDisplay) clipTarget(layer Layer, r Rect) ([]RGBA, Rect) {
	if d.lockCount <= 0 || d.surfRect.Width() == 0 || d.surfRect.Height() == 0 {
		return nil, r
	}
	r = d.surfRect.Clip(r)
	if r.Width() == 0 || r.Height() == 0 {
		return nil, r
	}
	return d.layerBuf(layer), r
}

// Fill fills the rectangle on the given layer with a solid color. The
// color is stored with premultiplied alpha.
func (d *MemoryDisplay) Fill(layer Layer, c RGBA, r Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, r := d.clipTarget(layer, r)
	if p == nil {
		return
	}
	f := c.PremultiplyAlpha()
	for y := r.Y0; y < r.Y1; y++ {
		row := p[y*d.stride+r.X0 : y*d.stride+r.X1]
		for x := range row {
			row[x] = f
		}
	}
}

// FillDither fills the rectangle on the given layer with an ordered
// black-and-white dither pattern approximating the 4-bit grayscale value
// g.
func (d *MemoryDisplay) FillDither(layer Layer, g uint8, r Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, r := d.clipTarget(layer, r)
	if p == nil {
		return
	}
	ditherOrderedGrayscale(g, p, d.stride, r)
}

// Blit draws an 8-bit alpha mask onto the given layer. In write mode,
// pixels with non-zero mask alpha receive the premultiplied color; in
// erase mode they are cleared to fully transparent.
func (d *MemoryDisplay) Blit(layer Layer, c RGBA, mask []uint8, maskStride int, r Rect, mode DrawMode) {
	d.mu.Lock()
	defer d.mu.Unlock()

	clipped := r
	p, clipped := d.clipTarget(layer, clipped)
	if p == nil {
		return
	}

	for y := clipped.Y0; y < clipped.Y1; y++ {
		tar := p[y*d.stride:]
		src := mask[(y-r.Y0)*maskStride:]
		for x := clipped.X0; x < clipped.X1; x++ {
			a := uint16(src[x-r.X0])
			if a == 0 {
				continue
			}
			if mode == DrawWrite {
				tar[x] = RGBA{
					R: uint8(uint16(c.R) * a / 255),
					G: uint8(uint16(c.G) * a / 255),
					B: uint8(uint16(c.B) * a / 255),
					A: uint8(a),
				}
			} else {
				tar[x] = RGBA{}
			}
		}
	}
}

// compose blends the presentation layer over the opaque background layer
// for every pixel of the rectangle and stores the result in the composite
// buffer.
func (d *MemoryDisplay) compose(r Rect) {
	for y := r.Y0; y < r.Y1; y++ {
		o0 := y*d.stride + r.X0
		o1 := y*d.stride + r.X1
		tar := d.composite[o0:o1]
		bg := d.background[o0:o1]
		pr := d.presentation[o0:o1]
		for i := range tar {
			a := uint16(pr[i].A)
			tar[i] = RGBA{
				R: uint8(uint16(bg[i].R)*(255-a)/255 + uint16(pr[i].R)),
				G: uint8(uint16(bg[i].G)*(255-a)/255 + uint16(pr[i].G)),
				B: uint8(uint16(bg[i].B)*(255-a)/255 + uint16(pr[i].B)),
				A: 0xFF,
			}
		}
	}
}
