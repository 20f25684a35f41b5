// Package geometry holds the position, z-order and sizing arithmetic shared
// by the chat panel and the cards. Units are terminal cells.
package geometry

// Point is a cell coordinate or a delta between two coordinates.
type Point struct {
	X int
	Y int
}

// Add returns p + q
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a width/height pair in cells.
type Size struct {
	Width  int
	Height int
}

// Rect is a panel's on-screen footprint.
type Rect struct {
	Pos  Point
	Size Size
}

// Contains reports whether p lies inside the rectangle
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Pos.X && p.X < r.Pos.X+r.Size.Width &&
		p.Y >= r.Pos.Y && p.Y < r.Pos.Y+r.Size.Height
}

// Right returns the x coordinate of the last column
func (r Rect) Right() int {
	return r.Pos.X + r.Size.Width - 1
}

// Bottom returns the y coordinate of the last row
func (r Rect) Bottom() int {
	return r.Pos.Y + r.Size.Height - 1
}

// Translate moves p by delta. Positions are never clamped, so panels can be
// dragged partly or fully off-screen.
func Translate(p Point, delta Point) Point {
	return p.Add(delta)
}
