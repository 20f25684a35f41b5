package components

import (
	"math/rand/v2"

	"cardchat/internal/ui/geometry"
)

// LayoutOptions holds the sizing knobs the layout manager needs
type LayoutOptions struct {
	ChatMin        geometry.Size
	ChatInitial    geometry.Size
	MaxWidthRatio  float64
	MaxHeightRatio float64
	CardSize       geometry.Size
}

// LayoutManager centralizes layout calculations and constraints
type LayoutManager struct {
	width       int
	height      int
	footerLines int // help line below the canvas
	opts        LayoutOptions
}

// NewLayoutManager creates a layout manager for the given terminal size
func NewLayoutManager(width, height int, opts LayoutOptions) *LayoutManager {
	return &LayoutManager{
		width:       width,
		height:      height,
		footerLines: 1,
		opts:        opts,
	}
}

// Canvas returns the area panels are drawn on
func (lm *LayoutManager) Canvas() geometry.Size {
	return geometry.Size{
		Width:  max(0, lm.width),
		Height: max(0, lm.height-lm.footerLines),
	}
}

// ChatBounds returns the chat panel size limits for the current terminal
func (lm *LayoutManager) ChatBounds() geometry.Bounds {
	return geometry.BoundsForViewport(
		lm.Canvas(),
		lm.opts.ChatMin,
		lm.opts.MaxWidthRatio,
		lm.opts.MaxHeightRatio,
	)
}

// InitialChatRect places the chat panel in the bottom-right corner of the
// canvas at its initial size, clamped to the current bounds
func (lm *LayoutManager) InitialChatRect() geometry.Rect {
	canvas := lm.Canvas()
	size := lm.ChatBounds().Clamp(lm.opts.ChatInitial)
	pos := geometry.Point{
		X: max(0, canvas.Width-size.Width-1),
		Y: max(0, canvas.Height-size.Height),
	}
	return geometry.Rect{Pos: pos, Size: size}
}

// CardSize returns the fixed card dimensions
func (lm *LayoutManager) CardSize() geometry.Size {
	return lm.opts.CardSize
}

// SpawnPosition picks a random top-left for a new card so that the card fits
// on the canvas. A canvas smaller than a card pins that axis to 0.
func (lm *LayoutManager) SpawnPosition(rng *rand.Rand) geometry.Point {
	canvas := lm.Canvas()
	maxX := canvas.Width - lm.opts.CardSize.Width
	maxY := canvas.Height - lm.opts.CardSize.Height

	var p geometry.Point
	if maxX > 0 {
		p.X = rng.IntN(maxX + 1)
	}
	if maxY > 0 {
		p.Y = rng.IntN(maxY + 1)
	}
	return p
}
