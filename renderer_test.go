package inkterm

import "testing"

// stubFont is a fixed-metrics glyph provider: every glyph renders as a
// fully opaque 2x2 block at offset (1, 1) inside a 4x6 cell.
type stubFont struct {
	renders int
}

func (f *stubFont) Metrics(size int) MonospaceFontMetrics {
	return MonospaceFontMetrics{CellWidth: 4, CellHeight: 6, OriginY: 5}
}

func (f *stubFont) Render(glyph rune, size int, monochrome bool, orientation int) *GlyphBitmap {
	if glyph == 0 {
		return nil
	}
	f.renders++
	return &GlyphBitmap{
		X: 1, Y: 1, W: 2, H: 2, Stride: 2,
		Buf: []uint8{255, 255, 255, 255},
	}
}

func newTestRenderer(t *testing.T, w, h int) (*MatrixRenderer, *Matrix, *recordingBackend) {
	t.Helper()
	backend := &recordingBackend{rect: Rect{0, 0, w, h}}
	display := NewMemoryDisplay(backend)
	matrix := NewMatrix(0, 0)
	r := NewMatrixRenderer(DefaultRendererOptions(), &stubFont{}, display, matrix, 12*64, 0, nil)
	return r, matrix, backend
}

func TestRendererGeometry(t *testing.T) {
	r, matrix, _ := newTestRenderer(t, 33, 26)

	// 33/4 columns, 26/6 rows, remainder split as centering padding.
	if r.Cols() != 8 || r.Rows() != 4 {
		t.Fatalf("grid = %dx%d, want 8x4", r.Cols(), r.Rows())
	}
	if matrix.Cols() != 8 || matrix.Rows() != 4 {
		t.Fatalf("matrix not resized: %dx%d", matrix.Cols(), matrix.Rows())
	}
	if r.padX != 0 || r.padY != 1 {
		t.Errorf("padding = (%d,%d), want (0,1)", r.padX, r.padY)
	}
}

func TestRendererCellCoordsOrientation(t *testing.T) {
	r, _, _ := newTestRenderer(t, 24, 12)
	// 6x2 cells, no padding.

	tests := []struct {
		name        string
		orientation int
		row, col    int
		want        Rect
	}{
		{"o0 origin", 0, 0, 0, Rect{0, 0, 4, 6}},
		{"o0 cell", 0, 1, 2, Rect{8, 6, 12, 12}},
		{"o2 origin mirrors", 2, 0, 0, Rect{20, 6, 24, 12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r.orientation = tt.orientation
			if got := r.cellCoords(tt.row, tt.col); got != tt.want {
				t.Errorf("cellCoords(%d,%d) = %v, want %v", tt.row, tt.col, got, tt.want)
			}
		})
	}
	r.orientation = 0
}

func TestRendererOrientationSwapsGrid(t *testing.T) {
	backend := &recordingBackend{rect: Rect{0, 0, 24, 12}}
	display := NewMemoryDisplay(backend)
	matrix := NewMatrix(0, 0)
	r := NewMatrixRenderer(DefaultRendererOptions(), &stubFont{}, display, matrix, 12*64, 1, nil)

	// Rotated 90°: the 24px axis carries the rows.
	if r.Cols() != 3 || r.Rows() != 4 {
		t.Fatalf("rotated grid = %dx%d, want 3x4", r.Cols(), r.Rows())
	}
}

func TestRendererNoUpdatesNoCommit(t *testing.T) {
	r, matrix, backend := newTestRenderer(t, 32, 24)
	matrix.SetCursorVisible(false)
	unlocks := backend.unlocks

	r.Draw(false, 16)
	if backend.unlocks != unlocks {
		t.Errorf("idle draw touched the display")
	}
}

func TestRendererDraftThenPromotion(t *testing.T) {
	r, matrix, backend := newTestRenderer(t, 32, 24)
	matrix.SetCursorVisible(false)

	matrix.Set('A', DefaultStyle(), Point{1, 1})
	r.Draw(false, 16)

	// Pass A committed the draft with the source-mono waveform; the
	// cell is not yet overdue so no promotion commit follows.
	if len(backend.requests) == 0 {
		t.Fatalf("draft draw produced no commits")
	}
	for i, req := range backend.requests {
		if req.Mode != (UpdateMode{OutputIdentity, MaskSourceMono}) {
			t.Errorf("request %d mode = %+v, want draft mode", i, req.Mode)
		}
	}

	// Property 7: after the redraw timeout the cell promotes to high
	// quality with a partial-mask commit within one draw.
	r.Draw(false, redrawTimeoutHigh+100)
	if len(backend.requests) == 0 {
		t.Fatalf("promotion draw produced no commits")
	}
	for i, req := range backend.requests {
		if req.Mode != (UpdateMode{OutputIdentity, MaskPartial}) {
			t.Errorf("request %d mode = %+v, want promotion mode", i, req.Mode)
		}
	}

	// Everything is high quality now; further aging changes nothing.
	backend.requests = nil
	r.Draw(false, redrawTimeoutHigh+100)
	if len(backend.requests) != 0 {
		t.Errorf("stable screen committed %d requests", len(backend.requests))
	}
}

func TestRendererDraftPrecedesPromotion(t *testing.T) {
	r, matrix, backend := newTestRenderer(t, 32, 24)
	matrix.SetCursorVisible(false)

	// Age one cell into overdue and dirty another in the same frame.
	matrix.Set('A', DefaultStyle(), Point{1, 1})
	r.Draw(false, 16)

	matrix.Set('B', DefaultStyle(), Point{5, 3})
	r.Draw(false, redrawTimeoutHigh+100)

	var modes []MaskOp
	for _, req := range backend.requests {
		modes = append(modes, req.Mode.Mask)
	}
	sawPartial := false
	for _, m := range modes {
		if m == MaskPartial {
			sawPartial = true
		} else if sawPartial {
			t.Fatalf("draft commit after promotion commit: %v", modes)
		}
	}
	if !sawPartial {
		t.Fatalf("no promotion commit in %v", modes)
	}
}

func TestRendererRedrawRepaintsEverything(t *testing.T) {
	r, matrix, backend := newTestRenderer(t, 32, 24)
	matrix.SetCursorVisible(false)

	r.Draw(true, 0)

	// A full redraw promotes every cell through pass B.
	if len(backend.requests) == 0 {
		t.Fatalf("redraw produced no commits")
	}
	for i, req := range backend.requests {
		if req.Mode.Mask != MaskPartial {
			t.Errorf("request %d mask = %v, want partial", i, req.Mode.Mask)
		}
	}
}

func TestRendererCounterThresholdRefresh(t *testing.T) {
	r, matrix, backend := newTestRenderer(t, 32, 24)
	matrix.SetCursorVisible(false)

	// Park one high-quality cell and keep hammering another; the parked
	// cell must eventually refresh via the counter rule.
	matrix.Set('A', DefaultStyle(), Point{1, 1})
	r.Draw(false, 16)
	r.Draw(false, redrawTimeoutHigh+100)

	// Find the parked cell's coordinates in metadata space.
	parked := r.cells[0][0]
	if !parked.highQuality {
		t.Fatalf("setup failed: cell not high quality")
	}

	glyph := rune('0')
	for i := 0; i < counterThresholdHigh; i++ {
		matrix.Set(glyph, DefaultStyle(), Point{8, 4})
		glyph++
		if glyph > '9' {
			glyph = '0'
		}
		r.Draw(false, 1)
	}

	backend.requests = nil
	matrix.Set('!', DefaultStyle(), Point{8, 4})
	r.Draw(false, 1)

	if !r.cells[0][0].highQuality || r.cells[0][0].operationCounter != 0 {
		t.Errorf("parked cell not refreshed by counter rule: %+v", r.cells[0][0])
	}
}

func TestRendererSetOrientationMarksGeometryDirty(t *testing.T) {
	r, _, _ := newTestRenderer(t, 32, 24)

	r.SetOrientation(1)
	if !r.needsGeometryUpdate {
		t.Fatalf("orientation change did not mark geometry dirty")
	}
	r.Draw(false, 0)
	if r.Cols() != 6 || r.Rows() != 5 {
		t.Errorf("rotated grid = %dx%d, want 6x5", r.Cols(), r.Rows())
	}

	// Setting the same orientation again is a no-op.
	r.SetOrientation(5)
	if r.needsGeometryUpdate {
		t.Errorf("identical orientation marked geometry dirty")
	}
}

func TestRendererResolveColors(t *testing.T) {
	r, _, _ := newTestRenderer(t, 32, 24)

	style := DefaultStyle()
	style.DefaultFg = false
	style.Fg = IndexedColor(1)

	// Plain indexed foreground resolves through the palette.
	cell := Cell{Glyph: 'x', Style: style}
	fg, _ := r.resolveColors(&cell)
	if fg != r.opts.Palette.At(1) {
		t.Errorf("fg = %+v, want palette entry 1", fg)
	}

	// Bright-on-bold shifts indexed colors below 8 into the bright
	// half.
	cell.Style.Bold = true
	fg, _ = r.resolveColors(&cell)
	if fg != r.opts.Palette.At(9) {
		t.Errorf("bold fg = %+v, want palette entry 9", fg)
	}

	// RGB foregrounds are never brightened.
	cell.Style.Fg = RGBColor(RGBA{10, 20, 30, 0xFF})
	fg, _ = r.resolveColors(&cell)
	if fg != (RGBA{10, 20, 30, 0xFF}) {
		t.Errorf("rgb fg = %+v", fg)
	}

	// The cursor swaps foreground and background.
	cell.Style.Bold = false
	cell.Cursor = true
	fg, bg := r.resolveColors(&cell)
	if fg != r.opts.DefaultBg || bg != (RGBA{10, 20, 30, 0xFF}) {
		t.Errorf("cursor swap fg=%+v bg=%+v", fg, bg)
	}
}
