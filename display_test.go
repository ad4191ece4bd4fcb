package inkterm

import "testing"

// recordingBackend captures the hook calls of a MemoryDisplay.
type recordingBackend struct {
	rect      Rect
	lockCount int
	unlocks   int

	requests  []CommitRequest
	composite []RGBA
	stride    int
}

func (b *recordingBackend) DoLock() Rect {
	b.lockCount++
	return b.rect
}

func (b *recordingBackend) DoUnlock(requests []CommitRequest, composite []RGBA, stride int) {
	b.unlocks++
	b.requests = append([]CommitRequest(nil), requests...)
	b.composite = append([]RGBA(nil), composite...)
	b.stride = stride
}

func newTestDisplay(w, h int) (*MemoryDisplay, *recordingBackend) {
	backend := &recordingBackend{rect: Rect{0, 0, w, h}}
	return NewMemoryDisplay(backend), backend
}

func TestDisplayLockReturnsSurface(t *testing.T) {
	d, backend := newTestDisplay(8, 4)

	r := d.Lock()
	if r != (Rect{0, 0, 8, 4}) {
		t.Fatalf("Lock() = %v", r)
	}
	if backend.lockCount != 1 {
		t.Fatalf("DoLock called %d times", backend.lockCount)
	}

	// Nested lock does not consult the backend again.
	d.Lock()
	if backend.lockCount != 1 {
		t.Errorf("nested Lock hit the backend")
	}
	d.Unlock()
	if backend.unlocks != 0 {
		t.Errorf("inner Unlock reached the backend")
	}
	d.Unlock()
	if backend.unlocks != 1 {
		t.Errorf("outer Unlock missing: %d", backend.unlocks)
	}
}

func TestDisplayStridePadding(t *testing.T) {
	d, backend := newTestDisplay(7, 2)
	d.Lock()
	d.Unlock()

	// 7 pixels are 28 bytes; rows pad to 32 bytes, 8 pixels.
	if backend.stride != 8 {
		t.Fatalf("stride = %d px, want 8", backend.stride)
	}
}

func TestDisplayCommitClipping(t *testing.T) {
	d, backend := newTestDisplay(8, 4)

	d.Lock()
	d.Commit(Rect{-5, -5, 100, 100}, UpdateMode{})
	d.Commit(InvalidRect(), UpdateMode{Mask: MaskPartial})
	d.Unlock()

	if len(backend.requests) != 2 {
		t.Fatalf("got %d requests", len(backend.requests))
	}
	for i, req := range backend.requests {
		if req.Rect != (Rect{0, 0, 8, 4}) {
			t.Errorf("request %d rect = %v", i, req.Rect)
		}
	}
	if backend.requests[1].Mode.Mask != MaskPartial {
		t.Errorf("update mode lost")
	}
}

func TestDisplayCommitWithoutLockIgnored(t *testing.T) {
	d, backend := newTestDisplay(8, 4)
	d.Commit(Rect{0, 0, 4, 4}, UpdateMode{})
	d.Lock()
	d.Unlock()
	if len(backend.requests) != 0 {
		t.Fatalf("unlocked commit was queued")
	}
}

func TestDisplayComposeBlendsLayers(t *testing.T) {
	d, backend := newTestDisplay(4, 2)

	d.Lock()
	d.Fill(LayerBackground, RGBA{100, 100, 100, 0xFF}, Rect{0, 0, 4, 2})
	mask := []uint8{128}
	d.Blit(LayerPresentation, RGBA{255, 0, 0, 0xFF}, mask, 1, Rect{1, 0, 2, 1}, DrawWrite)
	d.Commit(InvalidRect(), UpdateMode{})
	d.Unlock()

	// Property 5: composite = bg*(255-a)/255 + premultiplied fg.
	at := func(x, y int) RGBA { return backend.composite[y*backend.stride+x] }

	plain := at(0, 0)
	if plain != (RGBA{100, 100, 100, 0xFF}) {
		t.Errorf("uncovered pixel = %+v", plain)
	}

	blended := at(1, 0)
	want := RGBA{
		R: 100*127/255 + 255*128/255,
		G: 100 * 127 / 255,
		B: 100 * 127 / 255,
		A: 0xFF,
	}
	if blended != want {
		t.Errorf("blended pixel = %+v, want %+v", blended, want)
	}
}

func TestDisplayBlitErase(t *testing.T) {
	d, backend := newTestDisplay(4, 2)

	d.Lock()
	d.Fill(LayerBackground, White, Rect{0, 0, 4, 2})
	mask := []uint8{255}
	d.Blit(LayerPresentation, Black, mask, 1, Rect{0, 0, 1, 1}, DrawWrite)
	d.Blit(LayerPresentation, Black, mask, 1, Rect{0, 0, 1, 1}, DrawErase)
	d.Commit(InvalidRect(), UpdateMode{})
	d.Unlock()

	// The erase removed the presentation pixel, so the background shows.
	if got := backend.composite[0]; got != White {
		t.Errorf("erased pixel = %+v, want white", got)
	}
}

func TestDisplayBlitZeroAlphaUntouched(t *testing.T) {
	d, backend := newTestDisplay(2, 1)

	d.Lock()
	d.Fill(LayerBackground, White, Rect{0, 0, 2, 1})
	mask := []uint8{0, 255}
	d.Blit(LayerPresentation, Black, mask, 2, Rect{0, 0, 2, 1}, DrawWrite)
	d.Commit(InvalidRect(), UpdateMode{})
	d.Unlock()

	if backend.composite[0] != White {
		t.Errorf("zero-alpha mask pixel overwritten: %+v", backend.composite[0])
	}
	if backend.composite[1] != (RGBA{0, 0, 0, 0xFF}) {
		t.Errorf("opaque mask pixel = %+v", backend.composite[1])
	}
}

func TestDisplayFillPremultipliesAlpha(t *testing.T) {
	d, backend := newTestDisplay(1, 1)

	d.Lock()
	d.Fill(LayerBackground, Black, Rect{0, 0, 1, 1})
	// A half-transparent presentation fill stores premultiplied values
	// and composes accordingly.
	d.Fill(LayerPresentation, RGBA{200, 100, 50, 128}, Rect{0, 0, 1, 1})
	d.Commit(InvalidRect(), UpdateMode{})
	d.Unlock()

	got := backend.composite[0]
	want := RGBA{
		R: 200 * 128 / 255,
		G: 100 * 128 / 255,
		B: 50 * 128 / 255,
		A: 0xFF,
	}
	if got != want {
		t.Errorf("composite = %+v, want %+v", got, want)
	}
}

func TestDisplayInvalidBackendRect(t *testing.T) {
	backend := &recordingBackend{rect: InvalidRect()}
	d := NewMemoryDisplay(backend)

	// A backend without a surface turns the frame into a no-op.
	r := d.Lock()
	if r.Valid() && r.Area() != 0 {
		t.Errorf("Lock() on surfaceless backend = %v", r)
	}
	d.Fill(LayerBackground, White, Rect{0, 0, 10, 10})
	d.Commit(Rect{0, 0, 10, 10}, UpdateMode{})
	d.Unlock()
}

func TestDisplayGeometryChangeReallocates(t *testing.T) {
	backend := &recordingBackend{rect: Rect{0, 0, 4, 4}}
	d := NewMemoryDisplay(backend)
	d.Lock()
	d.Unlock()

	backend.rect = Rect{0, 0, 16, 8}
	r := d.Lock()
	d.Unlock()
	if r != (Rect{0, 0, 16, 8}) {
		t.Fatalf("surface after resize = %v", r)
	}
	if backend.stride != 16 {
		t.Errorf("stride after resize = %d", backend.stride)
	}
}
