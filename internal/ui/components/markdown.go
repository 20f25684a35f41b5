package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// DefaultMarkdownStyle is used when no glamour style is configured
const DefaultMarkdownStyle = "dark"

// MarkdownRenderer wraps glamour for consistent markdown rendering
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	style    string
	width    int
}

// NewMarkdownRenderer creates a markdown renderer for the given glamour style
// ("dark", "light", "notty", ...) wrapping at width cells.
func NewMarkdownRenderer(style string, width int) (*MarkdownRenderer, error) {
	if style == "" {
		style = DefaultMarkdownStyle
	}
	if width < 1 {
		width = 1
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return nil, err
	}

	return &MarkdownRenderer{
		renderer: renderer,
		style:    style,
		width:    width,
	}, nil
}

// Render renders markdown content to styled terminal output. The blank lines
// glamour adds around the document are trimmed.
func (mr *MarkdownRenderer) Render(content string) (string, error) {
	out, err := mr.renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Width returns the current wrap width
func (mr *MarkdownRenderer) Width() int {
	return mr.width
}

// UpdateWidth updates the renderer width for responsive display
func (mr *MarkdownRenderer) UpdateWidth(width int) error {
	if width == mr.width {
		return nil
	}

	// Recreate renderer with new width
	newRenderer, err := NewMarkdownRenderer(mr.style, width)
	if err != nil {
		return err
	}

	mr.renderer = newRenderer.renderer
	mr.width = newRenderer.width
	return nil
}
