package inkterm

import "testing"

func TestMergerMergesCloseRectangles(t *testing.T) {
	m := NewRectangleMerger()
	m.Insert(Rect{0, 0, 10, 10})
	m.Insert(Rect{5, 5, 15, 15})
	m.Merge()

	// Sum 200 vs union 225: 200 >= 3/4 * 225, so the pair merges.
	rects := m.Rects()
	if len(rects) != 1 || rects[0] != (Rect{0, 0, 15, 15}) {
		t.Fatalf("got %v, want one rect (0,0,15,15)", rects)
	}
}

func TestMergerKeepsDistantRectangles(t *testing.T) {
	m := NewRectangleMerger()
	m.Insert(Rect{0, 0, 10, 10})
	m.Insert(Rect{100, 100, 110, 110})
	m.Merge()

	if len(m.Rects()) != 2 {
		t.Fatalf("distant rectangles merged: %v", m.Rects())
	}
}

func TestMergerTransitiveMerge(t *testing.T) {
	// The chain only collapses once the middle piece bridges the ends.
	m := NewRectangleMerger()
	m.Insert(Rect{0, 0, 10, 10})
	m.Insert(Rect{18, 0, 28, 10})
	m.Insert(Rect{9, 0, 19, 10})
	m.Merge()

	rects := m.Rects()
	if len(rects) != 1 || rects[0] != (Rect{0, 0, 28, 10}) {
		t.Fatalf("got %v, want one rect (0,0,28,10)", rects)
	}
}

func TestMergerWasteBound(t *testing.T) {
	// Property 4: every output rectangle covers at least 3/4 of its area
	// with inserted source pixels. Verified by summing the source areas
	// that landed inside each output rectangle.
	inserted := []Rect{
		{0, 0, 8, 8}, {6, 6, 14, 14}, {40, 0, 50, 10},
		{41, 1, 49, 9}, {100, 100, 101, 101}, {0, 40, 30, 41},
		{0, 41, 30, 42},
	}

	m := NewRectangleMerger()
	for _, r := range inserted {
		m.Insert(r)
	}
	m.Merge()

	contains := func(u, r Rect) bool {
		return r.X0 >= u.X0 && r.Y0 >= u.Y0 && r.X1 <= u.X1 && r.Y1 <= u.Y1
	}
	for _, u := range m.Rects() {
		sum := 0
		for _, r := range inserted {
			if contains(u, r) {
				sum += r.Area()
			}
		}
		if 4*sum < 3*u.Area() {
			t.Errorf("rect %v wastes too much: sources %d, area %d", u, sum, u.Area())
		}
	}
}

func TestMergerInvalidInsertIgnored(t *testing.T) {
	m := NewRectangleMerger()
	m.Insert(InvalidRect())
	m.Insert(Rect{0, 0, 4, 4})
	m.Merge()
	if len(m.Rects()) != 1 {
		t.Fatalf("got %v", m.Rects())
	}
}

func TestMergerSetMergeRatio(t *testing.T) {
	// With a 1/100 ratio nearly everything merges.
	m := NewRectangleMerger()
	m.SetMergeRatio(1, 100)
	m.Insert(Rect{0, 0, 2, 2})
	m.Insert(Rect{20, 20, 22, 22})
	if len(m.Rects()) != 1 {
		t.Fatalf("loose ratio did not merge: %v", m.Rects())
	}

	// Out-of-range ratios are ignored.
	m2 := NewRectangleMerger()
	m2.SetMergeRatio(5, 4)
	m2.Insert(Rect{0, 0, 10, 10})
	m2.Insert(Rect{5, 5, 15, 15})
	if len(m2.Rects()) != 1 {
		t.Fatalf("default ratio lost after bad SetMergeRatio: %v", m2.Rects())
	}
}

func TestMergerReset(t *testing.T) {
	m := NewRectangleMerger()
	m.Insert(Rect{0, 0, 4, 4})
	m.Reset()
	if len(m.Rects()) != 0 {
		t.Fatalf("reset left %v", m.Rects())
	}
}
