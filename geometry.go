package inkterm

import "math"

// Point is an integer 2D coordinate.
type Point struct {
	X, Y int
}

// Add returns the component-wise sum of two points.
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns the component-wise difference of two points.
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Rect is an axis-aligned rectangle. X0, Y0 is the upper-left corner.
// Pixel-space rectangles treat X1, Y1 as exclusive; the Matrix uses cell
// coordinates and scans its bounds inclusively.
type Rect struct {
	X0, Y0, X1, Y1 int
}

// InvalidRect returns the sentinel rectangle for which Valid reports false
// and which acts as the neutral element of Grow.
func InvalidRect() Rect {
	return Rect{math.MaxInt32, math.MaxInt32, math.MinInt32, math.MinInt32}
}

// RectSized builds a rectangle from an origin and a size.
func RectSized(x, y, w, h int) Rect {
	return Rect{x, y, x + w, y + h}
}

// Valid reports whether the rectangle describes an actual region.
func (r Rect) Valid() bool {
	return r.X0 <= r.X1 && r.Y0 <= r.Y1
}

// Width returns the width of the rectangle. Only meaningful if the
// rectangle is valid.
func (r Rect) Width() int { return r.X1 - r.X0 }

// Height returns the height of the rectangle. Only meaningful if the
// rectangle is valid.
func (r Rect) Height() int { return r.Y1 - r.Y0 }

// Area returns the covered area in pixels.
func (r Rect) Area() int {
	if !r.Valid() {
		return 0
	}
	return r.Width() * r.Height()
}

// ClipX clips an x-coordinate to the rectangle. With border set the
// coordinate may land on the exclusive right edge.
func (r Rect) ClipX(x int, border bool) int {
	if x < r.X0 {
		return r.X0
	}
	if border {
		if x > r.X1 {
			return r.X1
		}
		return x
	}
	if x >= r.X1 {
		return r.X1 - 1
	}
	return x
}

// ClipY clips a y-coordinate to the rectangle. With border set the
// coordinate may land on the exclusive bottom edge.
func (r Rect) ClipY(y int, border bool) int {
	if y < r.Y0 {
		return r.Y0
	}
	if border {
		if y > r.Y1 {
			return r.Y1
		}
		return y
	}
	if y >= r.Y1 {
		return r.Y1 - 1
	}
	return y
}

// ClipPoint clips the given point into the rectangle.
func (r Rect) ClipPoint(p Point, border bool) Point {
	return Point{r.ClipX(p.X, border), r.ClipY(p.Y, border)}
}

// Clip returns the intersection of s with r.
func (r Rect) Clip(s Rect) Rect {
	return Rect{
		r.ClipX(s.X0, false), r.ClipY(s.Y0, false),
		r.ClipX(s.X1, true), r.ClipY(s.Y1, true),
	}
}

// Grow returns the bounding box of r and s. Growing by an invalid
// rectangle returns the other rectangle unchanged.
func (r Rect) Grow(s Rect) Rect {
	return Rect{
		min(r.X0, s.X0), min(r.Y0, s.Y0),
		max(r.X1, s.X1), max(r.Y1, s.Y1),
	}
}

// GrowPoint extends the rectangle to include the given point.
func (r Rect) GrowPoint(p Point) Rect {
	return Rect{
		min(r.X0, p.X), min(r.Y0, p.Y),
		max(r.X1, p.X), max(r.Y1, p.Y),
	}
}

// Translate returns the rectangle shifted by the given point.
func (r Rect) Translate(p Point) Rect {
	return Rect{r.X0 + p.X, r.Y0 + p.Y, r.X1 + p.X, r.Y1 + p.Y}
}
