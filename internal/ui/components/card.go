package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/logger"
	"cardchat/internal/ui/geometry"
)

// CardMode is the card's interaction state
type CardMode int

const (
	CardViewing CardMode = iota
	CardEditing
)

const (
	closeButton = "[x]"
	editButton  = "[e]"
	moreMarker  = "…"
)

// Card is a floating content panel spawned from a backend card item. Its z
// value lives in the shared geometry.Stack, not here.
type Card struct {
	id       int
	content  string
	editable bool
	pos      geometry.Point
	size     geometry.Size
	mode     CardMode

	editor   textarea.Model
	markdown *MarkdownRenderer
	cached   string
	styles   *FrameStyles
}

// NewCard creates a card in viewing mode. markdown may be shared between
// cards of the same size; nil renders plain text.
func NewCard(
	id int,
	content string,
	pos geometry.Point,
	size geometry.Size,
	editable bool,
	markdown *MarkdownRenderer,
) *Card {
	ta := textarea.New()
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ta.SetWidth(max(1, size.Width-2))
	ta.SetHeight(max(1, size.Height-2))

	return &Card{
		id:       id,
		content:  content,
		editable: editable,
		pos:      pos,
		size:     size,
		mode:     CardViewing,
		editor:   ta,
		markdown: markdown,
		styles:   NewFrameStyles(),
	}
}

// ID returns the card id
func (c *Card) ID() int { return c.id }

// Content returns the committed content
func (c *Card) Content() string { return c.content }

// Editable reports whether the card accepts inline edits
func (c *Card) Editable() bool { return c.editable }

// Position returns the top-left cell
func (c *Card) Position() geometry.Point { return c.pos }

// SetPosition moves the card. Positions are not clamped.
func (c *Card) SetPosition(p geometry.Point) { c.pos = p }

// Rect returns the card footprint
func (c *Card) Rect() geometry.Rect {
	return geometry.Rect{Pos: c.pos, Size: c.size}
}

// Mode returns the current interaction state
func (c *Card) Mode() CardMode { return c.mode }

// IsEditing reports whether the card is in editing mode
func (c *Card) IsEditing() bool { return c.mode == CardEditing }

// StartEdit switches an editable card into editing mode with the current
// content in the buffer. It does nothing for read-only or already editing
// cards.
func (c *Card) StartEdit() tea.Cmd {
	if !c.editable || c.mode == CardEditing {
		return nil
	}
	c.editor.SetValue(c.content)
	c.mode = CardEditing
	return c.editor.Focus()
}

// Commit leaves editing mode, keeping the buffer as the new content. There
// is no cancel path. The second result is false when the card was not
// editing.
func (c *Card) Commit() (string, bool) {
	if c.mode != CardEditing {
		return c.content, false
	}
	c.content = c.editor.Value()
	c.editor.Blur()
	c.mode = CardViewing
	c.cached = ""
	logger.Debug("card edit committed", "card", c.id, "chars", len(c.content))
	return c.content, true
}

// Update forwards input to the editor while editing
func (c *Card) Update(msg tea.Msg) tea.Cmd {
	if c.mode != CardEditing {
		return nil
	}
	var cmd tea.Cmd
	c.editor, cmd = c.editor.Update(msg)
	return cmd
}

// HitZone maps an absolute cell to the part of the card under it
func (c *Card) HitZone(p geometry.Point) Zone {
	if !c.Rect().Contains(p) {
		return ZoneNone
	}
	rel := p.Sub(c.pos)
	if rel.Y != 0 {
		return ZoneBody
	}
	if start := affordanceStart(c.size.Width, 0); rel.X >= start && rel.X < start+affordanceWidth {
		return ZoneClose
	}
	if c.editable {
		if start := affordanceStart(c.size.Width, 1); rel.X >= start && rel.X < start+affordanceWidth {
			return ZoneEdit
		}
	}
	return ZoneHeader
}

// View renders the card at its fixed size. focused highlights the border.
func (c *Card) View(focused bool) string {
	buttons := []string{closeButton}
	if c.editable {
		buttons = append(buttons, editButton)
	}

	title := fmt.Sprintf("Card #%d", c.id)
	var body []string
	if c.mode == CardEditing {
		title += " (editing)"
		body = strings.Split(c.editor.View(), "\n")
	} else {
		body = clipBody(strings.Split(c.renderContent(), "\n"), c.size.Height-2, c.size.Width-2)
	}

	return renderFrame(c.styles, title, buttons, body, c.size.Width, c.size.Height, focused, false)
}

func (c *Card) renderContent() string {
	if c.cached != "" {
		return c.cached
	}
	inner := max(1, c.size.Width-2)
	out := wordWrap(c.content, inner)
	if c.markdown != nil {
		rendered, err := c.markdown.Render(c.content)
		if err != nil {
			logger.Debug("card markdown render failed", "card", c.id, "err", err)
		} else {
			out = rendered
		}
	}
	c.cached = out
	return out
}

// clipBody drops trailing blank lines and, when the rest does not fit in
// height rows, ends the last visible row with a marker so cut-off text is
// not lost silently
func clipBody(lines []string, height, width int) []string {
	for len(lines) > 0 && strings.TrimSpace(ansi.Strip(lines[len(lines)-1])) == "" {
		lines = lines[:len(lines)-1]
	}
	if height <= 0 || len(lines) <= height {
		return lines
	}
	lines = append([]string(nil), lines[:height]...)
	room := max(0, width-ansi.StringWidth(moreMarker))
	lines[height-1] = fitLine(lines[height-1], room) + moreMarker
	return lines
}
