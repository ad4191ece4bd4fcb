package inkterm

// Style describes the text attributes of a single cell. It is modified by
// the VT driver in response to SGR escape sequences.
type Style struct {
	// Foreground or text color. Ignored while DefaultFg is set.
	Fg Color

	// Background color. Ignored while DefaultBg is set.
	Bg Color

	// Use the configured default colors instead of Fg/Bg.
	DefaultFg bool
	DefaultBg bool

	// If true, the foreground is not rendered.
	Concealed bool

	Bold          bool
	Italic        bool
	Strikethrough bool

	// If true, background and foreground color are swapped.
	Inverse bool

	// 0 = no underline, 1 = single, 2 = double.
	Underline int
}

// DefaultStyle returns the style of an untouched cell: the configured
// default colors with no attributes set.
func DefaultStyle() Style {
	return Style{
		Fg:        IndexedColor(7),
		Bg:        IndexedColor(0),
		DefaultFg: true,
		DefaultBg: true,
	}
}

// Cell describes the content and style of a single position in the
// terminal matrix.
type Cell struct {
	// Unicode scalar displayed in this cell, or zero if the cell is
	// empty.
	Glyph rune

	Style Style

	// True if this cell holds the cursor.
	Cursor bool

	// True if the cell has been touched since the last commit.
	Dirty bool
}

// invisible reports whether the cell's foreground contributes nothing to
// its appearance.
func (c *Cell) invisible() bool {
	if c.Style.Concealed {
		return true
	}
	if c.Style.Strikethrough || c.Style.Underline != 0 {
		return false
	}
	return c.Glyph == 0 || c.Glyph == ' '
}

// NeedsUpdate reports whether the cell changed in a way that affects its
// appearance compared to the previously committed content. Changes to
// invisible foregrounds (e.g. recoloring whitespace) are ignored, which
// avoids needless e-paper refreshes.
func (c *Cell) NeedsUpdate(old *Cell) bool {
	if !c.Dirty {
		return false
	}

	inverse := c.Cursor != c.Style.Inverse
	inverseOld := old.Cursor != old.Style.Inverse
	if inverse != inverseOld {
		return true
	}

	// The foreground only matters if it is visible on either side.
	if !(c.invisible() && old.invisible()) {
		if c.Glyph != old.Glyph {
			return true
		}
		// The effective foreground comes from whichever side the
		// inverse flag selects.
		if !inverse {
			if c.Style.Fg != old.Style.Fg || c.Style.DefaultFg != old.Style.DefaultFg {
				return true
			}
		} else {
			if c.Style.Bg != old.Style.Bg || c.Style.DefaultBg != old.Style.DefaultBg {
				return true
			}
		}
		if c.Style.Bold != old.Style.Bold ||
			c.Style.Italic != old.Style.Italic ||
			c.Style.Strikethrough != old.Style.Strikethrough ||
			c.Style.Underline != old.Style.Underline {
			return true
		}
	}

	// The effective background.
	if !inverse {
		if c.Style.Bg != old.Style.Bg || c.Style.DefaultBg != old.Style.DefaultBg {
			return true
		}
	} else {
		if c.Style.Fg != old.Style.Fg || c.Style.DefaultFg != old.Style.DefaultFg {
			return true
		}
	}
	return false
}

// CellUpdate reports a single changed cell from Matrix.Commit.
type CellUpdate struct {
	// Position the update refers to (1-based).
	Pos Point

	// New cell content.
	Current Cell

	// Cell content before the update.
	Old Cell
}

// Matrix is the logical character grid of the terminal. Cell addressing
// is 1-based with (1, 1) in the upper-left corner; out-of-range accesses
// are silently ignored. Mutations accumulate until Commit, which emits a
// minimal list of visually changed cells.
type Matrix struct {
	cells    [][]Cell
	cellsAlt [][]Cell
	cellsOld [][]Cell

	pos     Point
	posLast Point
	posOld  Point

	size Point

	cursorVisible    bool
	cursorVisibleOld bool

	altBufferActive bool

	updateBounds Rect
}

// NewMatrix creates a matrix with the given initial size.
func NewMatrix(rows, cols int) *Matrix {
	m := &Matrix{
		pos:           Point{1, 1},
		posLast:       Point{1, 1},
		posOld:        Point{1, 1},
		size:          Point{cols, rows},
		cursorVisible: true,
		updateBounds:  InvalidRect(),
	}
	m.Reset()
	return m
}

func defaultCell() Cell {
	return Cell{Style: DefaultStyle(), Dirty: true}
}

func (m *Matrix) valid(p Point) bool {
	return p.X >= 1 && p.Y >= 1 && p.X <= m.size.X && p.Y <= m.size.Y
}

func (m *Matrix) extendUpdateBounds(p Point) {
	m.updateBounds = m.updateBounds.GrowPoint(p)
}

// Size returns the current matrix size as (cols, rows).
func (m *Matrix) Size() Point { return m.size }

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.size.Y }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.size.X }

// Pos returns the current cursor location.
func (m *Matrix) Pos() Point { return m.pos }

// Row returns the current cursor row.
func (m *Matrix) Row() int { return m.pos.Y }

// Col returns the current cursor column.
func (m *Matrix) Col() int { return m.pos.X }

// SetCursorVisible shows or hides the cursor.
func (m *Matrix) SetCursorVisible(visible bool) { m.cursorVisible = visible }

// CursorVisible reports whether the cursor is visible.
func (m *Matrix) CursorVisible() bool { return m.cursorVisible }

// CellAt returns a copy of the cell at the given 1-based position. Some
// updates only become visible in the returned cells after Commit.
func (m *Matrix) CellAt(p Point) Cell {
	if !m.valid(p) {
		return defaultCell()
	}
	return m.cells[p.Y-1][p.X-1]
}

// Reset clears the primary and alternate buffers and homes the cursor.
// The size is unchanged.
func (m *Matrix) Reset() {
	m.pos = Point{1, 1}
	m.posLast = Point{1, 1}
	m.cursorVisible = true

	m.cells = growCellArray(m.cells, m.size)
	m.cellsAlt = growCellArray(m.cellsAlt, m.size)
	m.cellsOld = growCellArray(m.cellsOld, m.size)

	for y := 1; y <= m.size.Y; y++ {
		for x := 1; x <= m.size.X; x++ {
			m.Set(0, DefaultStyle(), Point{x, y})
			m.cellsAlt[y-1][x-1] = defaultCell()
		}
	}
}

// growCellArray ensures the cell array covers at least the given size.
// Allocations never shrink so that content survives transient resizes.
func growCellArray(cells [][]Cell, size Point) [][]Cell {
	for len(cells) < size.Y {
		cells = append(cells, nil)
	}
	for y := range cells {
		for len(cells[y]) < size.X {
			cells[y] = append(cells[y], defaultCell())
		}
	}
	return cells
}

// Resize sets the matrix size. Content within the common sub-grid is
// preserved; the update bounds are clamped to the new geometry.
func (m *Matrix) Resize(rows, cols int) {
	rows = max(0, rows)
	cols = max(0, cols)

	m.size = Point{cols, rows}
	m.cells = growCellArray(m.cells, m.size)
	m.cellsAlt = growCellArray(m.cellsAlt, m.size)
	m.cellsOld = growCellArray(m.cellsOld, m.size)

	m.updateBounds.X1 = min(m.updateBounds.X1, cols)
	m.updateBounds.Y1 = min(m.updateBounds.Y1, rows)
}

// MoveAbs moves the cursor to the given absolute position, clipped to the
// matrix. (1, 1) is the upper-left corner.
func (m *Matrix) MoveAbs(row, col int) {
	m.pos = Rect{1, 1, m.size.X, m.size.Y}.ClipPoint(Point{col, row}, true)
}

// MoveRel moves the cursor relative to its current position. Without
// wrap the target is clipped. With wrap, columns past the right edge
// carry into the next row, and rows past the bottom scroll the view up
// before the position is clamped.
func (m *Matrix) MoveRel(dy, dx int, wrap bool) {
	p := Point{m.pos.X + dx, m.pos.Y + dy}
	if wrap {
		for p.X > m.size.X && m.size.X > 0 {
			p.X -= m.size.X
			p.Y++
		}
		if p.Y > m.size.Y {
			m.Scroll(0, DefaultStyle(), Rect{1, 1, m.size.X, m.size.Y}, p.Y-m.size.Y, 0)
			p.Y = m.size.Y
		}
	}
	m.pos = Rect{1, 1, m.size.X, m.size.Y}.ClipPoint(p, true)
}

// Set places a glyph with the given style at the given position. Invalid
// positions are ignored; writing identical content leaves the cell clean.
func (m *Matrix) Set(glyph rune, style Style, p Point) {
	if !m.valid(p) {
		return
	}
	c := &m.cells[p.Y-1][p.X-1]
	if glyph != c.Glyph || style != c.Style {
		c.Glyph = glyph
		c.Style = style
		c.Dirty = true
		m.extendUpdateBounds(p)
	}
}

// Write stamps a glyph at the cursor and advances it by one column,
// wrapping to the next row and scrolling the view when the grid
// overflows. With replacesLast set the cursor first jumps back to the
// previous write position, which is how combining characters replace the
// base glyph they attach to.
func (m *Matrix) Write(glyph rune, style Style, replacesLast bool) {
	if replacesLast {
		m.pos = m.posLast
	}

	// Resolve a pending wrap from the previous write.
	if m.pos.X > m.size.X && m.size.X > 0 {
		m.pos = Point{1, m.pos.Y + 1}
	}
	if m.pos.Y > m.size.Y && m.size.Y > 0 {
		m.Scroll(0, style, Rect{1, 1, m.size.X, m.size.Y}, m.pos.Y-m.size.Y, 0)
		m.pos.Y = m.size.Y
	}

	m.Set(glyph, style, m.pos)
	m.posLast = m.pos
	m.pos.X++
}

// Fill sets every cell between the two cursor locations (inclusive, in
// reading order) to the given glyph and style.
func (m *Matrix) Fill(glyph rune, style Style, from, to Point) {
	for row := from.Y; row <= to.Y; row++ {
		col0, col1 := 1, m.size.X
		if row == from.Y {
			col0 = from.X
		}
		if row == to.Y {
			col1 = to.X
		}
		for col := col0; col <= col1; col++ {
			m.Set(glyph, style, Point{col, row})
		}
	}
}

// Scroll translates the cell contents of the given rectangle by
// (-rightward, -downward). Cells whose source falls outside the rectangle
// are replaced with the given glyph and style. The whole screen is marked
// as updated.
func (m *Matrix) Scroll(glyph rune, style Style, r Rect, downward, rightward int) {
	if (downward == 0 && rightward == 0) || !r.Valid() {
		return
	}

	blank := Cell{Glyph: glyph, Style: style, Dirty: true}

	// Pick the iteration direction so that an in-place copy never reads
	// a cell it already overwrote.
	x0, x1, dirX := r.X0, r.X1, 1
	if rightward < 0 {
		x0, x1, dirX = r.X1, r.X0, -1
	}
	y0, y1, dirY := r.Y0, r.Y1, 1
	if downward < 0 {
		y0, y1, dirY = r.Y1, r.Y0, -1
	}

	for yTar := y0; dirY*yTar <= dirY*y1; yTar += dirY {
		if yTar < 1 || yTar > m.size.Y {
			continue
		}
		ySrc := yTar + downward
		if ySrc < r.Y0 || ySrc > r.Y1 {
			for x := r.X0; x <= r.X1; x++ {
				if x >= 1 && x <= m.size.X {
					m.cells[yTar-1][x-1] = blank
				}
			}
			continue
		}
		for xTar := x0; dirX*xTar <= dirX*x1; xTar += dirX {
			if xTar < 1 || xTar > m.size.X {
				continue
			}
			xSrc := xTar + rightward
			if xSrc < r.X0 || xSrc > r.X1 || xSrc < 1 || xSrc > m.size.X {
				m.cells[yTar-1][xTar-1] = blank
				continue
			}
			c := m.cells[ySrc-1][xSrc-1]
			c.Dirty = true
			c.Cursor = false
			m.cells[yTar-1][xTar-1] = c
		}
	}

	// The committed cursor position moves with the content.
	m.posOld.Y -= downward
	m.posOld.X -= rightward

	m.updateBounds = Rect{1, 1, m.size.X, m.size.Y}
}

// SetAlternativeBufferActive switches between the primary and alternate
// cell buffers. A switch marks every cell dirty.
func (m *Matrix) SetAlternativeBufferActive(active bool) {
	if active == m.altBufferActive {
		return
	}
	m.altBufferActive = active
	m.cells, m.cellsAlt = m.cellsAlt, m.cells
	for y := range m.cells {
		for x := range m.cells[y] {
			m.cells[y][x].Dirty = true
		}
	}
	m.updateBounds = Rect{1, 1, m.size.X, m.size.Y}
}

// Commit materializes all accumulated changes. Every cell whose
// appearance changed since the last commit is appended to updates, which
// is returned. The update list is compressed: a cell set twice appears
// once, with the last content, and updates are not in call order.
func (m *Matrix) Commit(updates []CellUpdate) []CellUpdate {
	// Remove the cursor flag from the cell that last held the cursor.
	if m.cursorVisibleOld && m.valid(m.posOld) {
		c := &m.cells[m.posOld.Y-1][m.posOld.X-1]
		c.Cursor = false
		c.Dirty = true
		m.extendUpdateBounds(m.posOld)
	}

	// Mark the cell that currently holds the cursor.
	if m.cursorVisible && m.valid(m.pos) {
		c := &m.cells[m.pos.Y-1][m.pos.X-1]
		c.Cursor = true
		c.Dirty = true
		m.extendUpdateBounds(m.pos)
	}

	for y := max(1, m.updateBounds.Y0); y <= min(m.size.Y, m.updateBounds.Y1); y++ {
		for x := max(1, m.updateBounds.X0); x <= min(m.size.X, m.updateBounds.X1); x++ {
			cell := &m.cells[y-1][x-1]
			old := &m.cellsOld[y-1][x-1]
			if cell.NeedsUpdate(old) {
				updates = append(updates, CellUpdate{
					Pos:     Point{x, y},
					Current: *cell,
					Old:     *old,
				})
			}
			cell.Dirty = false
			*old = *cell
		}
	}

	m.posOld = m.pos
	m.cursorVisibleOld = m.cursorVisible
	m.updateBounds = InvalidRect()
	return updates
}
