package geometry

// Bounds limits a resizable panel. Min is always <= Max.
type Bounds struct {
	Min Size
	Max Size
}

// BoundsForViewport computes resize bounds for a terminal of size view. Max
// is the given fraction of the view on each axis, raised to min when the
// terminal is too small to honor it.
func BoundsForViewport(view Size, min Size, widthRatio, heightRatio float64) Bounds {
	maxW := int(float64(view.Width) * normalizeRatio(widthRatio))
	maxH := int(float64(view.Height) * normalizeRatio(heightRatio))
	return Bounds{
		Min: min,
		Max: Size{
			Width:  max(maxW, min.Width),
			Height: max(maxH, min.Height),
		},
	}
}

func normalizeRatio(r float64) float64 {
	if r <= 0 || r > 1 {
		return 1
	}
	return r
}

// Clamp forces s inside b, per axis
func (b Bounds) Clamp(s Size) Size {
	return Size{
		Width:  clamp(s.Width, b.Min.Width, b.Max.Width),
		Height: clamp(s.Height, b.Min.Height, b.Max.Height),
	}
}

// Resize computes the size of a panel anchored at anchor whose bottom-right
// corner is dragged to pointer. The pointer cell belongs to the panel, hence
// the +1. Each axis is clamped independently, so pointers outside the
// terminal still yield an in-bounds size.
func Resize(pointer, anchor Point, b Bounds) Size {
	d := pointer.Sub(anchor)
	return b.Clamp(Size{Width: d.X + 1, Height: d.Y + 1})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
