package inkterm

// RectangleMerger coalesces many small dirty rectangles into fewer, larger
// ones without wasting too much area. Two rectangles are merged into their
// bounding box when the area the sources cover is at least mergeRatio of
// the bounding box area, so a merged commit region never rewrites more
// than roughly 1/ratio times the pixels the sources touched.
type RectangleMerger struct {
	rects []Rect

	// Numerator and denominator of the merge ratio. Defaults to 3/4.
	ratioNum, ratioDen int
}

// NewRectangleMerger creates a merger with the default 3/4 merge ratio.
func NewRectangleMerger() *RectangleMerger {
	return &RectangleMerger{ratioNum: 3, ratioDen: 4}
}

// SetMergeRatio overrides the merge threshold. Values outside (0, 1] are
// ignored.
func (m *RectangleMerger) SetMergeRatio(num, den int) {
	if num <= 0 || den <= 0 || num > den {
		return
	}
	m.ratioNum, m.ratioDen = num, den
}

// Reset discards all inserted rectangles.
func (m *RectangleMerger) Reset() {
	m.rects = m.rects[:0]
}

// searchMatchingRectangle scans rectangles [0, i1) in reverse insertion
// order and returns the index of the first one that may be merged with r,
// or -1 if none qualifies.
func (m *RectangleMerger) searchMatchingRectangle(r Rect, i1 int) int {
	rArea := r.Area()
	for i := i1 - 1; i >= 0; i-- {
		s := m.rects[i]
		u := r.Grow(s)
		if (rArea+s.Area())*m.ratioDen >= m.ratioNum*u.Area() {
			return i
		}
	}
	return -1
}

// Insert adds a rectangle, merging it into an existing entry when the
// merge rule allows.
func (m *RectangleMerger) Insert(r Rect) {
	if !r.Valid() {
		return
	}
	if idx := m.searchMatchingRectangle(r, len(m.rects)); idx >= 0 {
		m.rects[idx] = m.rects[idx].Grow(r)
	} else {
		m.rects = append(m.rects, r)
	}
}

// Merge repeatedly rescans the rectangle list until a full pass produces
// no further merges.
func (m *RectangleMerger) Merge() {
	for {
		foundMerge := false
		for i := len(m.rects) - 1; i >= 1; i-- {
			idx := m.searchMatchingRectangle(m.rects[i], i)
			if idx >= 0 {
				m.rects[idx] = m.rects[idx].Grow(m.rects[i])
				m.rects[i] = InvalidRect()
				foundMerge = true
			}
		}
		if !foundMerge {
			return
		}
		// Drop the rectangles invalidated by this pass.
		valid := m.rects[:0]
		for _, r := range m.rects {
			if r.Valid() {
				valid = append(valid, r)
			}
		}
		m.rects = valid
	}
}

// Rects returns the current rectangle list. The order is unspecified.
func (m *RectangleMerger) Rects() []Rect {
	return m.rects
}
