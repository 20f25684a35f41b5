package components

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/gateway"
	"cardchat/internal/logger"
)

// DefaultHistoryLimit caps the transcript when no limit is configured
const DefaultHistoryLimit = 500

// ConversationComponent handles the display of conversation messages. It
// renders each message once per width and keeps the rendered lines cached.
type ConversationComponent struct {
	messages  []Message
	rendered  [][]string
	width     int
	height    int
	scrollPos int
	limit     int
	styles    *ConversationStyles
	markdown  *MarkdownRenderer
}

// ConversationStyles contains styling for conversation display
type ConversationStyles struct {
	UserMessage  lipgloss.Style
	AgentLabel   lipgloss.Style
	SystemLabel  lipgloss.Style
	UserLabel    lipgloss.Style
	Timestamp    lipgloss.Style
	EmptyMessage lipgloss.Style
}

// NewConversationStyles creates default conversation styles
func NewConversationStyles() *ConversationStyles {
	return &ConversationStyles{
		UserMessage: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")), // Light blue
		AgentLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		SystemLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),
		UserLabel: lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")).
			Bold(true),
		Timestamp: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")). // Dark gray
			Faint(true),
		EmptyMessage: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true),
	}
}

// NewConversationComponent creates a new conversation component. Agent and
// system messages are rendered as markdown with the given renderer; a nil
// renderer falls back to plain word wrapping.
func NewConversationComponent(markdown *MarkdownRenderer, limit int) *ConversationComponent {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ConversationComponent{
		messages: make([]Message, 0),
		limit:    limit,
		styles:   NewConversationStyles(),
		markdown: markdown,
	}
}

// SetDimensions sets the width and height for the component. Cached lines
// are dropped when the width changes; the view stays pinned to the bottom if
// it was there before.
func (cc *ConversationComponent) SetDimensions(width, height int) {
	atBottom := cc.IsAtBottom()
	if width != cc.width {
		cc.rendered = make([][]string, len(cc.messages))
		if cc.markdown != nil && width > 2 {
			if err := cc.markdown.UpdateWidth(width - 2); err != nil {
				logger.Warn("markdown renderer resize failed", "width", width, "err", err)
			}
		}
	}
	cc.width = width
	cc.height = height
	if atBottom {
		cc.ScrollToBottom()
	} else {
		cc.clampScroll()
	}
}

// AddMessage appends a message and scrolls to it
func (cc *ConversationComponent) AddMessage(message Message) {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	cc.messages = append(cc.messages, message)
	cc.rendered = append(cc.rendered, nil)

	// Limit message history to prevent memory issues
	if len(cc.messages) > cc.limit {
		drop := len(cc.messages) - cc.limit
		cc.messages = append([]Message(nil), cc.messages[drop:]...)
		cc.rendered = append([][]string(nil), cc.rendered[drop:]...)
	}

	// Auto-scroll to bottom when new message is added
	cc.ScrollToBottom()
}

// GetMessages returns the current messages
func (cc *ConversationComponent) GetMessages() []Message {
	return append([]Message(nil), cc.messages...)
}

// Len returns the number of messages in the transcript
func (cc *ConversationComponent) Len() int {
	return len(cc.messages)
}

// ScrollUp scrolls up by n lines
func (cc *ConversationComponent) ScrollUp(n int) {
	cc.scrollPos = max(0, cc.scrollPos-n)
}

// ScrollDown scrolls down by n lines
func (cc *ConversationComponent) ScrollDown(n int) {
	cc.scrollPos = min(cc.getMaxScrollPosition(), cc.scrollPos+n)
}

// ScrollPageUp scrolls up by one page
func (cc *ConversationComponent) ScrollPageUp() {
	cc.ScrollUp(max(1, cc.height-1))
}

// ScrollPageDown scrolls down by one page
func (cc *ConversationComponent) ScrollPageDown() {
	cc.ScrollDown(max(1, cc.height-1))
}

// ScrollToBottom scrolls to the bottom of the conversation
func (cc *ConversationComponent) ScrollToBottom() {
	cc.scrollPos = cc.getMaxScrollPosition()
}

// LinesFromBottom returns how many lines the view sits above the newest line
func (cc *ConversationComponent) LinesFromBottom() int {
	return cc.getMaxScrollPosition() - cc.scrollPos
}

// IsAtBottom returns true if scrolled to bottom
func (cc *ConversationComponent) IsAtBottom() bool {
	return cc.scrollPos >= cc.getMaxScrollPosition()
}

func (cc *ConversationComponent) clampScroll() {
	cc.scrollPos = max(0, min(cc.scrollPos, cc.getMaxScrollPosition()))
}

// getMaxScrollPosition calculates the maximum scroll position
func (cc *ConversationComponent) getMaxScrollPosition() int {
	if cc.height <= 0 {
		return 0
	}
	return max(0, cc.getTotalLines()-cc.height)
}

// getTotalLines counts lines for all messages including the blank separator
func (cc *ConversationComponent) getTotalLines() int {
	if cc.width <= 0 {
		return 0
	}
	total := 0
	for i := range cc.messages {
		total += len(cc.messageLines(i)) + 1
	}
	return total
}

// messageLines returns the cached rendering of message i
func (cc *ConversationComponent) messageLines(i int) []string {
	if cc.rendered[i] == nil {
		cc.rendered[i] = strings.Split(cc.renderMessage(cc.messages[i], cc.width), "\n")
	}
	return cc.rendered[i]
}

// Render returns exactly height lines of the visible window
func (cc *ConversationComponent) Render() []string {
	if cc.width <= 0 || cc.height <= 0 {
		return nil
	}

	if len(cc.messages) == 0 {
		empty := cc.styles.EmptyMessage.Render(
			ansi.Truncate("No messages yet. Say hello below.", cc.width, "…"),
		)
		return fitLines([]string{empty}, cc.height)
	}

	var allLines []string
	for i := range cc.messages {
		allLines = append(allLines, cc.messageLines(i)...)
		allLines = append(allLines, "") // spacing between messages
	}

	cc.clampScroll()
	end := min(cc.scrollPos+cc.height, len(allLines))
	visible := append([]string(nil), allLines[cc.scrollPos:end]...)
	return fitLines(visible, cc.height)
}

// renderMessage renders a single message: a header line then the content
func (cc *ConversationComponent) renderMessage(msg Message, width int) string {
	var label string
	switch msg.Sender {
	case gateway.SenderUser:
		label = cc.styles.UserLabel.Render("You")
	case gateway.SenderSystem:
		label = cc.styles.SystemLabel.Render("System")
	default:
		label = cc.styles.AgentLabel.Render("Agent")
	}

	// Format timestamp
	timestamp := cc.styles.Timestamp.Render(
		msg.Timestamp.Format("15:04:05"),
	)
	header := label + " " + timestamp

	var body string
	if msg.Sender == gateway.SenderUser || cc.markdown == nil {
		body = indent(wordWrap(msg.Content, width-2), "  ")
		if msg.Sender == gateway.SenderUser {
			body = cc.styles.UserMessage.Render(body)
		}
	} else {
		rendered, err := cc.markdown.Render(msg.Content)
		if err != nil {
			logger.Debug("markdown render failed, using plain text", "err", err)
			rendered = indent(wordWrap(msg.Content, width-2), "  ")
		}
		body = rendered
	}

	return header + "\n" + body
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// wordWrap wraps text to fit within the specified width, breaking words
// that are longer than a line
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "")
}
