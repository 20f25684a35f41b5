package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cardchat/internal/gateway"
	"cardchat/internal/logger"
	"cardchat/internal/ui/geometry"
)

// DefaultJumpThreshold is how far above the bottom, in lines, the view has
// to be before the jump-to-latest line appears
const DefaultJumpThreshold = 3

// chrome rows inside the frame below the transcript: jump, status, input
const chatChromeRows = 3

// ChatPanelStyles contains styling for the chat panel rows
type ChatPanelStyles struct {
	Frame   *FrameStyles
	Jump    lipgloss.Style
	Status  lipgloss.Style
	Typing  lipgloss.Style
	Spinner lipgloss.Style
}

// NewChatPanelStyles creates default chat panel styles
func NewChatPanelStyles() *ChatPanelStyles {
	return &ChatPanelStyles{
		Frame: NewFrameStyles(),
		Jump: lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("75")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Typing: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),
		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")),
	}
}

// ChatPanelOptions configures a new chat panel
type ChatPanelOptions struct {
	Rect          geometry.Rect
	Bounds        geometry.Bounds
	JumpThreshold int
	HistoryLimit  int
	Markdown      *MarkdownRenderer
	Keys          KeyMap
}

// ChatPanel is the single draggable, resizable chat window. It owns the
// transcript and produces SubmitMsg for the root model to act on.
type ChatPanel struct {
	rect     geometry.Rect
	bounds   geometry.Bounds
	resizing bool

	conversation  *ConversationComponent
	input         textinput.Model
	spinner       spinner.Model
	keys          KeyMap
	responding    bool
	status        string
	jumpThreshold int
	styles        *ChatPanelStyles
}

// NewChatPanel creates a chat panel with a focused input
func NewChatPanel(opts ChatPanelOptions) *ChatPanel {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	threshold := opts.JumpThreshold
	if threshold < 0 {
		threshold = DefaultJumpThreshold
	}

	styles := NewChatPanelStyles()
	s.Style = styles.Spinner

	cp := &ChatPanel{
		bounds:        opts.Bounds,
		conversation:  NewConversationComponent(opts.Markdown, opts.HistoryLimit),
		input:         ti,
		spinner:       s,
		keys:          opts.Keys,
		jumpThreshold: threshold,
		styles:        styles,
	}
	cp.rect = geometry.Rect{Pos: opts.Rect.Pos, Size: opts.Bounds.Clamp(opts.Rect.Size)}
	cp.relayout()
	return cp
}

// Rect returns the panel footprint
func (cp *ChatPanel) Rect() geometry.Rect { return cp.rect }

// Position returns the top-left cell
func (cp *ChatPanel) Position() geometry.Point { return cp.rect.Pos }

// SetPosition moves the panel. Positions are not clamped.
func (cp *ChatPanel) SetPosition(p geometry.Point) { cp.rect.Pos = p }

// SetRect places and sizes the panel, clamping the size to the current bounds
func (cp *ChatPanel) SetRect(r geometry.Rect) {
	cp.rect = geometry.Rect{Pos: r.Pos, Size: cp.bounds.Clamp(r.Size)}
	cp.relayout()
}

// Size returns the current dimensions
func (cp *ChatPanel) Size() geometry.Size { return cp.rect.Size }

// Bounds returns the current size limits
func (cp *ChatPanel) Bounds() geometry.Bounds { return cp.bounds }

// SetBounds installs new size limits and re-clamps the current size
func (cp *ChatPanel) SetBounds(b geometry.Bounds) {
	cp.bounds = b
	cp.rect.Size = b.Clamp(cp.rect.Size)
	cp.relayout()
}

// StartResize marks the start of a corner resize session
func (cp *ChatPanel) StartResize() { cp.resizing = true }

// StopResize ends the resize session
func (cp *ChatPanel) StopResize() { cp.resizing = false }

// IsResizing reports whether a resize session is active
func (cp *ChatPanel) IsResizing() bool { return cp.resizing }

// ResizeTo sizes the panel so that pointer becomes its bottom-right cell,
// within bounds
func (cp *ChatPanel) ResizeTo(pointer geometry.Point) {
	cp.rect.Size = geometry.Resize(pointer, cp.rect.Pos, cp.bounds)
	cp.relayout()
}

// relayout pushes the inner size down to the transcript and the input
func (cp *ChatPanel) relayout() {
	innerW := max(1, cp.rect.Size.Width-2)
	cp.conversation.SetDimensions(innerW, cp.transcriptHeight())
	cp.input.Width = max(1, innerW-lipgloss.Width(cp.input.Prompt)-1)
}

func (cp *ChatPanel) transcriptHeight() int {
	return max(1, cp.rect.Size.Height-2-chatChromeRows)
}

// Messages returns a copy of the transcript
func (cp *ChatPanel) Messages() []Message {
	return cp.conversation.GetMessages()
}

// Conversation exposes the transcript view for scrolling
func (cp *ChatPanel) Conversation() *ConversationComponent {
	return cp.conversation
}

// Responding reports whether a request is in flight
func (cp *ChatPanel) Responding() bool { return cp.responding }

// Status returns the status line text
func (cp *ChatPanel) Status() string { return cp.status }

// SetStatus replaces the status line text
func (cp *ChatPanel) SetStatus(s string) { cp.status = s }

// Input returns the current input buffer
func (cp *ChatPanel) Input() string { return cp.input.Value() }

// SetInput replaces the input buffer
func (cp *ChatPanel) SetInput(s string) { cp.input.SetValue(s) }

// Focus gives the input the keyboard
func (cp *ChatPanel) Focus() tea.Cmd { return cp.input.Focus() }

// Blur takes the keyboard away from the input
func (cp *ChatPanel) Blur() { cp.input.Blur() }

// Focused reports whether the input has the keyboard
func (cp *ChatPanel) Focused() bool { return cp.input.Focused() }

// Submit sends the input. Whitespace-only input changes nothing. While a
// request is in flight the input is kept and a status note explains why.
// Otherwise the user message is appended at once, the input cleared and a
// SubmitMsg requested.
func (cp *ChatPanel) Submit() tea.Cmd {
	text := strings.TrimSpace(cp.input.Value())
	if text == "" {
		return nil
	}
	if cp.responding {
		cp.status = "Still waiting for the last reply"
		return nil
	}

	cp.conversation.AddMessage(Message{
		Content: text,
		Sender:  gateway.SenderUser,
		Type:    gateway.TypeMessage,
	})
	cp.input.Reset()
	cp.responding = true
	cp.status = ""

	return tea.Batch(
		cp.spinner.Tick,
		func() tea.Msg { return SubmitMsg{Text: text} },
	)
}

// ApplyResponse ends the in-flight request: message items are appended in
// order and card items are returned for the caller to spawn
func (cp *ChatPanel) ApplyResponse(resp *gateway.Response) []gateway.ResponseItem {
	cp.responding = false
	cp.status = ""

	var cards []gateway.ResponseItem
	for _, item := range resp.Items {
		switch item.Type {
		case gateway.TypeCard:
			cards = append(cards, item)
		default:
			cp.conversation.AddMessage(Message{
				Content: item.Content,
				Sender:  item.Sender,
				Type:    item.Type,
			})
		}
	}

	if resp.ConversationEnded {
		cp.status = "Conversation ended"
	}
	return cards
}

// FailResponse ends the in-flight request without touching the transcript
func (cp *ChatPanel) FailResponse(err error) {
	cp.responding = false
	switch {
	case gateway.IsNetworkError(err):
		cp.status = "Backend error: " + err.Error()
	case gateway.IsMalformed(err):
		cp.status = "Backend sent an invalid reply"
	default:
		cp.status = "Request failed: " + err.Error()
	}
	logger.Error("chat request failed", "err", err)
}

// JumpVisible reports whether the jump-to-latest line is shown
func (cp *ChatPanel) JumpVisible() bool {
	return cp.conversation.LinesFromBottom() > cp.jumpThreshold
}

// JumpToLatest scrolls the transcript to the newest message
func (cp *ChatPanel) JumpToLatest() {
	cp.conversation.ScrollToBottom()
}

// Scroll moves the transcript by n lines; negative scrolls up
func (cp *ChatPanel) Scroll(n int) {
	if n < 0 {
		cp.conversation.ScrollUp(-n)
		return
	}
	cp.conversation.ScrollDown(n)
}

// HitZone maps an absolute cell to the part of the panel under it
func (cp *ChatPanel) HitZone(p geometry.Point) Zone {
	if !cp.rect.Contains(p) {
		return ZoneNone
	}
	rel := p.Sub(cp.rect.Pos)
	w, h := cp.rect.Size.Width, cp.rect.Size.Height

	switch {
	case rel.Y == 0:
		return ZoneHeader
	case rel.Y == h-1 && rel.X >= w-2:
		return ZoneResize
	case rel.Y == h-2:
		return ZoneInput
	case rel.Y == h-2-chatChromeRows+1 && cp.JumpVisible():
		return ZoneJump
	}
	return ZoneBody
}

// Update handles keys and spinner ticks routed to the chat panel
func (cp *ChatPanel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !cp.responding {
			return nil
		}
		var cmd tea.Cmd
		cp.spinner, cmd = cp.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, cp.keys.Submit):
			return cp.Submit()
		case key.Matches(msg, cp.keys.PageUp):
			cp.conversation.ScrollPageUp()
			return nil
		case key.Matches(msg, cp.keys.PageDown):
			cp.conversation.ScrollPageDown()
			return nil
		case key.Matches(msg, cp.keys.Bottom):
			cp.JumpToLatest()
			return nil
		}
		var cmd tea.Cmd
		cp.input, cmd = cp.input.Update(msg)
		return cmd

	default:
		// cursor blinks and other input-internal messages
		var cmd tea.Cmd
		cp.input, cmd = cp.input.Update(msg)
		return cmd
	}
}

// View renders the panel at its current size
func (cp *ChatPanel) View(focused bool) string {
	innerW := max(1, cp.rect.Size.Width-2)
	body := cp.conversation.Render()

	jump := ""
	if cp.JumpVisible() {
		label := fmt.Sprintf(" ↓ jump to latest (%d lines) ", cp.conversation.LinesFromBottom())
		jump = lipgloss.PlaceHorizontal(innerW, lipgloss.Center, cp.styles.Jump.Render(label))
	}

	status := cp.styles.Status.Render(cp.status)
	if cp.responding {
		status = cp.spinner.View() + " " + cp.styles.Typing.Render("agent is typing...")
	}

	body = append(body, jump, status, cp.input.View())

	return renderFrame(
		cp.styles.Frame,
		"Chat",
		nil,
		body,
		cp.rect.Size.Width,
		cp.rect.Size.Height,
		focused,
		true,
	)
}
