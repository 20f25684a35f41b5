package geometry

// DragSession follows one press-move-release gesture on a panel. The offset
// between pointer and panel origin is captured once, at press time, so the
// panel never jumps to the pointer's absolute position.
type DragSession struct {
	ID     int
	origin Point
	start  Point
	last   Point
}

// StartDrag opens a session for panel id located at origin, pressed at pointer
func StartDrag(id int, origin, pointer Point) *DragSession {
	return &DragSession{
		ID:     id,
		origin: origin,
		start:  pointer,
		last:   pointer,
	}
}

// Move returns the panel position for the current pointer. The result equals
// the origin plus the sum of all pointer deltas seen so far.
func (d *DragSession) Move(pointer Point) Point {
	d.last = pointer
	return Translate(d.origin, pointer.Sub(d.start))
}

// Delta returns the total pointer movement since the press
func (d *DragSession) Delta() Point {
	return d.last.Sub(d.start)
}
