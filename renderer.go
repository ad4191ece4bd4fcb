package inkterm

import "log/slog"

// Overdue thresholds. Cells drawn in the low-quality mode are promoted to
// high quality once they age past the redraw timeout; cells that survived
// many updates of other screen regions are refreshed once their operation
// counter passes the counter threshold, which combats ghosting. Whenever
// any cell crosses the high threshold, the corresponding low threshold
// takes over for the whole frame so that pending promotions batch up.
const (
	redrawTimeoutLow     = 250
	redrawTimeoutHigh    = 1000
	counterThresholdLow  = 1000
	counterThresholdHigh = 2000
)

// RendererOptions carries the color configuration of the renderer.
type RendererOptions struct {
	// Palette used to resolve indexed colors.
	Palette *Palette

	// Colors substituted for cells with the default-color flags set.
	DefaultFg RGBA
	DefaultBg RGBA

	// If set, bold cells with an indexed foreground in [0, 7] use the
	// bright half of the palette. RGB foregrounds are never brightened.
	BrightOnBold bool

	// Merge ratio handed to the rectangle merger; zero values keep the
	// default of 3/4.
	MergeRatioNum int
	MergeRatioDen int
}

// DefaultRendererOptions returns options with the Tango palette, white
// text on black background and bright-on-bold enabled.
func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		Palette:      Default256,
		DefaultFg:    RGBAFromHex(0xF7F7F7),
		DefaultBg:    RGBAFromHex(0x000000),
		BrightOnBold: true,
	}
}

// rendererCell is the per-cell display metadata: what is on the panel,
// when it was put there, and in which quality.
type rendererCell struct {
	// Last drawn cell content.
	cell Cell

	// Milliseconds since the cell was last drawn.
	lastUpdate uint32

	// Number of draw passes that touched the screen since the cell was
	// last drawn.
	operationCounter uint32

	lowQuality  bool
	highQuality bool
	overdue     bool
	dirty       bool
}

// newRendererCell returns fresh metadata: nothing drawn yet, the cell
// counts as overdue so that a redraw promotes it to high quality.
func newRendererCell() rendererCell {
	return rendererCell{highQuality: true, overdue: true}
}

// MatrixRenderer translates Matrix commits into display writes. Every
// draw runs up to two passes: dirty cells are first drawn in a fast
// dithered monochrome mode so that keystrokes become visible within one
// frame, and overdue cells are then redrawn in high quality with a
// partial grayscale waveform.
type MatrixRenderer struct {
	opts    RendererOptions
	font    GlyphProvider
	display *MemoryDisplay
	matrix  *Matrix
	log     *slog.Logger

	fontSize    int
	orientation int

	cols, rows   int
	bounds       Rect
	padX, padY   int
	cellW, cellH int

	needsGeometryUpdate bool

	cells        [][]rendererCell
	updateBounds Rect

	merger  *RectangleMerger
	updates []CellUpdate
}

// NewMatrixRenderer creates a renderer drawing the given matrix onto the
// given display. The font size is in 1/64ths of a point. A nil logger
// uses the process default.
func NewMatrixRenderer(opts RendererOptions, font GlyphProvider, display *MemoryDisplay, matrix *Matrix, fontSize int, orientation int, log *slog.Logger) *MatrixRenderer {
	if log == nil {
		log = slog.Default()
	}
	if opts.Palette == nil {
		opts.Palette = Default256
	}
	r := &MatrixRenderer{
		opts:                opts,
		font:                font,
		display:             display,
		matrix:              matrix,
		log:                 log,
		fontSize:            fontSize,
		orientation:         orientation % 4,
		updateBounds:        InvalidRect(),
		merger:              NewRectangleMerger(),
		needsGeometryUpdate: true,
	}
	if opts.MergeRatioNum > 0 && opts.MergeRatioDen > 0 {
		r.merger.SetMergeRatio(opts.MergeRatioNum, opts.MergeRatioDen)
	}

	// Briefly lock the display to learn the screen size.
	r.bounds = display.Lock()
	display.Unlock()
	r.updateGeometry()
	return r
}

// RefreshBounds re-reads the backend bounds and marks the geometry dirty
// if they changed. Called by the event loop on resize events.
func (r *MatrixRenderer) RefreshBounds() {
	b := r.display.Lock()
	r.display.Unlock()
	if b != r.bounds {
		r.bounds = b
		r.needsGeometryUpdate = true
	}
}

// updateGeometry recomputes the cell grid from the display bounds and the
// font metrics, resizes the matrix and resets all cell metadata.
func (r *MatrixRenderer) updateGeometry() {
	m := r.font.Metrics(r.fontSize)
	r.cellW = max(1, m.CellWidth)
	r.cellH = max(1, m.CellHeight)

	w := max(0, r.bounds.Width())
	h := max(0, r.bounds.Height())
	if r.orientation&1 != 0 {
		w, h = h, w
	}

	r.cols = w / r.cellW
	r.rows = h / r.cellH
	r.padX = (w - r.cellW*r.cols) / 2
	r.padY = (h - r.cellH*r.rows) / 2

	r.cells = make([][]rendererCell, r.rows)
	for y := range r.cells {
		r.cells[y] = make([]rendererCell, r.cols)
		for x := range r.cells[y] {
			r.cells[y][x] = newRendererCell()
		}
	}

	r.matrix.Resize(r.rows, r.cols)
	r.needsGeometryUpdate = false

	r.log.Debug("matrix geometry updated",
		"cols", r.cols, "rows", r.rows,
		"cell_w", r.cellW, "cell_h", r.cellH,
		"orientation", r.orientation)
}

// cellCoords returns the pixel rectangle of the cell at the given
// (0-based) grid position, rotated into backend coordinates.
func (r *MatrixRenderer) cellCoords(row, col int) Rect {
	x0 := col * r.cellW
	x1 := x0 + r.cellW
	y0 := row * r.cellH
	y1 := y0 + r.cellH

	b := r.bounds
	switch r.orientation {
	default:
		return Rect{
			b.X0 + r.padX + x0,
			b.Y0 + r.padY + y0,
			b.X0 + r.padX + x1,
			b.Y0 + r.padY + y1,
		}
	case 1:
		return Rect{
			b.X0 + r.padY + y0,
			b.Y1 - r.padX - x1,
			b.X0 + r.padY + y1,
			b.Y1 - r.padX - x0,
		}
	case 2:
		return Rect{
			b.X1 - r.padX - x1,
			b.Y1 - r.padY - y1,
			b.X1 - r.padX - x0,
			b.Y1 - r.padY - y0,
		}
	case 3:
		return Rect{
			b.X1 - r.padY - y1,
			b.Y0 + r.padX + x0,
			b.X1 - r.padY - y0,
			b.Y0 + r.padX + x1,
		}
	}
}

// resolveColors computes the effective foreground and background of a
// cell: bright-on-bold promotion, default-color substitution and the
// cursor/inverse swap.
func (r *MatrixRenderer) resolveColors(cell *Cell) (fg, bg RGBA) {
	cfg := cell.Style.Fg
	if r.opts.BrightOnBold && cell.Style.Bold &&
		cfg.IsIndexed() && cfg.Index() >= 0 && cfg.Index() < 8 {
		cfg = IndexedColor(cfg.Index() + 8)
	}

	if cell.Style.DefaultFg {
		fg = r.opts.DefaultFg
	} else {
		fg = cfg.RGB(r.opts.Palette)
	}
	if cell.Style.DefaultBg {
		bg = r.opts.DefaultBg
	} else {
		bg = cell.Style.Bg.RGB(r.opts.Palette)
	}

	if cell.Cursor != cell.Style.Inverse {
		fg, bg = bg, fg
	}
	return fg, bg
}

// drawCell draws (or, with erase set, undoes) a single cell and returns
// the union of the touched background and glyph rectangles.
//
// The low-quality mode approximates the background with an ordered dither
// pattern and snaps the glyph color to whichever of pure black or white
// is farther from the background; on mid-tone backgrounds an inverted
// shadow copy of the glyph is blitted at (+1, +1) so the glyph stays
// legible on top of the dither pattern.
func (r *MatrixRenderer) drawCell(row, col int, cell *Cell, erase, lowQuality bool) Rect {
	fg, bg := r.resolveColors(cell)

	rect := r.cellCoords(row, col)
	glyphRect := rect
	shadowRect := InvalidRect()
	var g *GlyphBitmap

	mode := DrawWrite
	if erase {
		mode = DrawErase
	}

	if lowQuality {
		gBg := RGBAToGrayscale(bg)
		if !erase {
			r.display.FillDither(LayerBackground, gBg, rect)
		}
		if fg != bg {
			g = r.font.Render(cell.Glyph, r.fontSize, true, r.orientation)
		}
		if gBg < 8 {
			fg = White
		} else {
			fg = Black
		}
		if g != nil && bg != White && bg != Black {
			shadow := RectSized(rect.X0+g.X+1, rect.Y0+g.Y+1, g.W, g.H)
			r.display.Blit(LayerPresentation, fg.Invert(), g.Buf, g.Stride, shadow, mode)
			shadowRect = shadow
		}
	} else {
		if !erase {
			r.display.Fill(LayerBackground, bg, rect)
		}
		g = r.font.Render(cell.Glyph, r.fontSize, false, r.orientation)
	}

	if g != nil {
		glyphRect = RectSized(rect.X0+g.X, rect.Y0+g.Y, g.W, g.H)
		r.display.Blit(LayerPresentation, fg, g.Buf, g.Stride, glyphRect, mode)
	}
	return rect.Grow(glyphRect).Grow(shadowRect)
}

// Draw renders all pending matrix updates. With redraw set the whole
// screen is repainted. dt is the number of milliseconds since the
// previous call.
func (r *MatrixRenderer) Draw(redraw bool, dt int) {
	if r.needsGeometryUpdate {
		r.updateGeometry()
	}

	// A full redraw resets all metadata; the fresh cells count as
	// overdue, so pass B repaints everything in high quality.
	if redraw {
		for y := 0; y < r.rows; y++ {
			for x := 0; x < r.cols; x++ {
				r.cells[y][x] = newRendererCell()
				r.updateBounds = r.updateBounds.GrowPoint(Point{x, y})
			}
		}
	}

	if dt > 0 {
		for y := 0; y < r.rows; y++ {
			for x := 0; x < r.cols; x++ {
				r.cells[y][x].lastUpdate += uint32(dt)
			}
		}
	}

	// Ingest the matrix commit.
	r.updates = r.matrix.Commit(r.updates[:0])
	for _, up := range r.updates {
		if up.Pos.Y >= 1 && up.Pos.Y <= r.rows && up.Pos.X >= 1 && up.Pos.X <= r.cols {
			r.cells[up.Pos.Y-1][up.Pos.X-1].dirty = true
			r.updateBounds = r.updateBounds.GrowPoint(Point{up.Pos.X - 1, up.Pos.Y - 1})
		}
	}

	// Adaptive overdue detection: as soon as any cell crosses the high
	// threshold, the low threshold applies globally for this frame.
	counterThreshold := uint32(counterThresholdHigh)
	redrawTimeout := uint32(redrawTimeoutHigh)
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			c := &r.cells[y][x]
			if c.operationCounter > counterThresholdHigh {
				counterThreshold = counterThresholdLow
			}
			if c.lowQuality && c.lastUpdate > redrawTimeoutHigh {
				redrawTimeout = redrawTimeoutLow
			}
		}
	}
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			c := &r.cells[y][x]
			ruleCounter := c.operationCounter >= counterThreshold
			ruleTimeout := c.lowQuality && c.lastUpdate >= redrawTimeout
			if ruleCounter || ruleTimeout {
				c.overdue = true
				r.updateBounds = r.updateBounds.GrowPoint(Point{x, y})
			}
		}
	}

	if !r.updateBounds.Valid() {
		return
	}

	// At least one draw operation follows; every cell ages by one
	// screen-touching operation.
	for y := 0; y < r.rows; y++ {
		for x := 0; x < r.cols; x++ {
			r.cells[y][x].operationCounter++
		}
	}

	r.display.Lock()

	bx0 := max(0, r.updateBounds.X0)
	by0 := max(0, r.updateBounds.Y0)
	bx1 := min(r.cols-1, r.updateBounds.X1)
	by1 := min(r.rows-1, r.updateBounds.Y1)

	// Pass A: draft all dirty cells in low quality.
	r.merger.Reset()
	for y := by0; y <= by1; y++ {
		for x := bx0; x <= bx1; x++ {
			c := &r.cells[y][x]
			if !c.dirty {
				continue
			}

			cNew := r.matrix.CellAt(Point{x + 1, y + 1})

			r1 := r.drawCell(y, x, &c.cell, true, c.lowQuality)
			r2 := r.drawCell(y, x, &cNew, false, true)
			r.merger.Insert(r1.Grow(r2))

			c.cell = cNew
			c.operationCounter = 0
			c.lastUpdate = 0
			c.highQuality = false
			c.lowQuality = true
			c.overdue = false
			c.dirty = false
		}
	}
	r.merger.Merge()
	for _, rect := range r.merger.Rects() {
		r.display.Commit(rect, UpdateMode{OutputIdentity, MaskSourceMono})
	}

	// Pass B: promote all overdue cells to high quality.
	r.merger.Reset()
	for y := by0; y <= by1; y++ {
		for x := bx0; x <= bx1; x++ {
			c := &r.cells[y][x]
			if !c.overdue {
				continue
			}

			cNew := r.matrix.CellAt(Point{x + 1, y + 1})

			r1 := r.drawCell(y, x, &c.cell, true, c.lowQuality)
			r2 := r.drawCell(y, x, &cNew, false, false)
			r.merger.Insert(r1.Grow(r2))

			c.cell = cNew
			c.operationCounter = 0
			c.lastUpdate = 0
			c.highQuality = true
			c.lowQuality = false
			c.overdue = false
			c.dirty = false
		}
	}
	r.merger.Merge()
	for _, rect := range r.merger.Rects() {
		r.display.Commit(rect, UpdateMode{OutputIdentity, MaskPartial})
	}

	r.display.Unlock()

	r.updateBounds = InvalidRect()
}

// SetFontSize changes the font size (1/64ths of a point) and marks the
// geometry dirty.
func (r *MatrixRenderer) SetFontSize(size int) {
	if size != r.fontSize {
		r.fontSize = size
		r.needsGeometryUpdate = true
	}
}

// FontSize returns the current font size.
func (r *MatrixRenderer) FontSize() int { return r.fontSize }

// SetOrientation rotates the rendering in 90° steps. A change clears both
// layers and marks the geometry dirty.
func (r *MatrixRenderer) SetOrientation(orientation int) {
	orientation = ((orientation % 4) + 4) % 4
	if orientation == r.orientation {
		return
	}
	r.display.Lock()
	r.display.Fill(LayerBackground, Black, r.bounds)
	r.display.Fill(LayerPresentation, Transparent, r.bounds)
	r.display.Unlock()
	r.orientation = orientation
	r.needsGeometryUpdate = true
}

// Orientation returns the current orientation.
func (r *MatrixRenderer) Orientation() int { return r.orientation }

// Cols returns the number of cell columns.
func (r *MatrixRenderer) Cols() int { return r.cols }

// Rows returns the number of cell rows.
func (r *MatrixRenderer) Rows() int { return r.rows }
