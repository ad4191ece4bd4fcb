package glyphs

import "testing"

func TestBuiltinMetrics(t *testing.T) {
	b := NewBuiltin()
	m := b.Metrics(12 * 64)
	if m.CellWidth != 7 {
		t.Errorf("CellWidth = %d, want 7", m.CellWidth)
	}
	if m.CellHeight <= 0 || m.OriginY <= 0 {
		t.Errorf("bad metrics: %+v", m)
	}
	if m.OriginY > m.CellHeight {
		t.Errorf("baseline below the cell: %+v", m)
	}
}

func TestBuiltinRender(t *testing.T) {
	b := NewBuiltin()

	g := b.Render('A', 0, false, 0)
	if g == nil {
		t.Fatal("no bitmap for 'A'")
	}
	if g.W <= 0 || g.H <= 0 || len(g.Buf) < g.H*g.Stride {
		t.Fatalf("bad bitmap geometry: %+v", g)
	}
	nonzero := 0
	for _, a := range g.Buf {
		if a != 0 {
			nonzero++
		}
	}
	if nonzero == 0 {
		t.Errorf("'A' rendered fully transparent")
	}

	// The empty glyph renders as nothing.
	if g := b.Render(0, 0, false, 0); g != nil {
		t.Errorf("glyph 0 rendered a bitmap")
	}
}

func TestBuiltinRenderMonochrome(t *testing.T) {
	b := NewBuiltin()
	g := b.Render('B', 0, true, 0)
	if g == nil {
		t.Fatal("no bitmap for 'B'")
	}
	for i, a := range g.Buf {
		if a != 0 && a != 0xFF {
			t.Fatalf("monochrome mask has mid-tone %d at %d", a, i)
		}
	}
}

func TestBuiltinCacheIdentity(t *testing.T) {
	b := NewBuiltin()
	g1 := b.Render('C', 0, false, 0)
	g2 := b.Render('C', 0, false, 0)
	if g1 != g2 {
		t.Errorf("cache returned distinct bitmaps")
	}
	if g3 := b.Render('C', 0, true, 0); g3 == g1 {
		t.Errorf("monochrome variant shares the cache slot")
	}
}

func TestRotateGeometry(t *testing.T) {
	b := NewBuiltin()
	base := b.Render('D', 0, false, 0)
	if base == nil {
		t.Fatal("no bitmap")
	}

	m := b.Metrics(0)
	for _, o := range []int{1, 3} {
		g := b.Render('D', 0, false, o)
		if g.W != base.H || g.H != base.W {
			t.Errorf("orientation %d: %dx%d, want %dx%d", o, g.W, g.H, base.H, base.W)
		}
		if g.X < 0 || g.Y < 0 || g.X+g.W > m.CellHeight || g.Y+g.H > m.CellWidth {
			t.Errorf("orientation %d offsets outside rotated cell: %+v", o, g)
		}
	}

	g := b.Render('D', 0, false, 2)
	if g.W != base.W || g.H != base.H {
		t.Errorf("orientation 2 changed dimensions: %+v", g)
	}
}

func TestRotatePreservesInk(t *testing.T) {
	b := NewBuiltin()
	base := b.Render('E', 0, false, 0)

	count := func(buf []uint8) int {
		n := 0
		for _, a := range buf {
			if a != 0 {
				n++
			}
		}
		return n
	}

	want := count(base.Buf)
	for o := 1; o < 4; o++ {
		g := b.Render('E', 0, false, o)
		if got := count(g.Buf); got != want {
			t.Errorf("orientation %d has %d inked pixels, want %d", o, got, want)
		}
	}
}
