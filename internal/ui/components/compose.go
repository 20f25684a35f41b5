package components

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/ui/geometry"
)

const resetSGR = "\x1b[0m"

// Layer is one rendered panel placed on the canvas
type Layer struct {
	Pos  geometry.Point
	View string
}

// Compose paints layers over a blank width x height canvas in the given
// order, so later layers cover earlier ones. Anything outside the canvas is
// clipped.
func Compose(width, height int, layers []Layer) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	blank := strings.Repeat(" ", width)
	canvas := make([]string, height)
	for i := range canvas {
		canvas[i] = blank
	}

	for _, layer := range layers {
		if layer.View == "" {
			continue
		}
		for i, line := range strings.Split(layer.View, "\n") {
			y := layer.Pos.Y + i
			if y < 0 {
				continue
			}
			if y >= height {
				break
			}
			canvas[y] = overlayLine(canvas[y], line, layer.Pos.X, width)
		}
	}

	return strings.Join(canvas, "\n")
}

// overlayLine writes line over base starting at column x. base is always
// exactly width cells wide and so is the result.
func overlayLine(base, line string, x, width int) string {
	lineW := ansi.StringWidth(line)
	if x < 0 {
		line = ansi.TruncateLeft(line, -x, "")
		lineW += x
		x = 0
	}
	if lineW <= 0 || x >= width {
		return base
	}
	if x+lineW > width {
		line = ansi.Truncate(line, width-x, "")
		lineW = width - x
	}

	left := ansi.Truncate(base, x, "")
	if w := ansi.StringWidth(left); w < x {
		left += strings.Repeat(" ", x-w)
	}
	right := ansi.TruncateLeft(base, x+lineW, "")
	if w, want := ansi.StringWidth(right), width-x-lineW; w < want {
		right = strings.Repeat(" ", want-w) + right
	}

	return left + resetSGR + line + resetSGR + right
}
