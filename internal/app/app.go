package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/config"
	"cardchat/internal/gateway"
	"cardchat/internal/logger"
	"cardchat/internal/ui/components"
	"cardchat/internal/ui/geometry"
)

// wheelStep is how many transcript lines one wheel notch scrolls
const wheelStep = 3

// Submitter sends one user message to the backend
type Submitter interface {
	Submit(ctx context.Context, text string) (*gateway.Response, error)
}

// eventSource is implemented by submitters that report request lifecycle
// events, such as *gateway.Client
type eventSource interface {
	AddEventHandler(handler gateway.EventHandler)
}

// Options configures the application
type Options struct {
	Layout        components.LayoutOptions
	JumpThreshold int
	HistoryLimit  int
	MarkdownStyle string
	CardEditable  bool
	Rand          *rand.Rand // spawn positions; nil seeds from the runtime
}

// OptionsFromConfig maps the UI section of the config onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	ui := cfg.UI
	return Options{
		Layout: components.LayoutOptions{
			ChatMin:        geometry.Size{Width: ui.Chat.MinWidth, Height: ui.Chat.MinHeight},
			ChatInitial:    geometry.Size{Width: ui.Chat.InitialWidth, Height: ui.Chat.InitialHeight},
			MaxWidthRatio:  ui.Chat.MaxWidthRatio,
			MaxHeightRatio: ui.Chat.MaxHeightRatio,
			CardSize:       geometry.Size{Width: ui.Card.Width, Height: ui.Card.Height},
		},
		JumpThreshold: ui.JumpThreshold,
		HistoryLimit:  ui.HistoryLimit,
		MarkdownStyle: ui.MarkdownStyle,
		CardEditable:  ui.Card.Editable,
	}
}

// Application is the root model. It owns the chat panel, the cards and the
// shared z stack, and routes input to whichever panel is on top.
type Application struct {
	ctx            context.Context
	gateway        Submitter
	eventBus       *EventBus
	eventProcessor *EventProcessor
	opts           Options

	// UI State
	width  int
	height int
	ready  bool
	layout *components.LayoutManager

	// Panels
	stack        *geometry.Stack
	cardIDs      *geometry.Counter
	chat         *components.ChatPanel
	cards        map[int]*components.Card
	cardMarkdown *components.MarkdownRenderer
	drag         *geometry.DragSession
	editing      *components.Card
	rng          *rand.Rand

	// Footer
	keys          components.KeyMap
	help          help.Model
	statusMessage string

	// Styles
	styles *Styles
}

// Styles contains the styling for the root view
type Styles struct {
	Footer lipgloss.Style
	Status lipgloss.Style
	Error  lipgloss.Style
}

// NewStyles creates default styles for the application
func NewStyles() *Styles {
	return &Styles{
		Footer: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}
}

// NewApplication creates a new TUI application
func NewApplication(ctx context.Context, gw Submitter, opts Options) (*Application, error) {
	eventBus := NewEventBus(ctx)
	eventProcessor := NewEventProcessor(ctx, eventBus)

	// Chat markdown width follows the panel; cards share one fixed-width renderer
	chatMarkdown, err := components.NewMarkdownRenderer(opts.MarkdownStyle, opts.Layout.ChatInitial.Width-4)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	cardMarkdown, err := components.NewMarkdownRenderer(opts.MarkdownStyle, opts.Layout.CardSize.Width-2)
	if err != nil {
		return nil, fmt.Errorf("failed to create card markdown renderer: %w", err)
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	keys := components.DefaultKeyMap()
	layout := components.NewLayoutManager(80, 24, opts.Layout)

	app := &Application{
		ctx:            ctx,
		gateway:        gw,
		eventBus:       eventBus,
		eventProcessor: eventProcessor,
		opts:           opts,
		layout:         layout,
		stack:          geometry.NewStack(),
		cardIDs:        geometry.NewCounter(1),
		cards:          make(map[int]*components.Card),
		cardMarkdown:   cardMarkdown,
		rng:            rng,
		keys:           keys,
		help:           help.New(),
		styles:         NewStyles(),
	}

	app.chat = components.NewChatPanel(components.ChatPanelOptions{
		Rect:          layout.InitialChatRect(),
		Bounds:        layout.ChatBounds(),
		JumpThreshold: opts.JumpThreshold,
		HistoryLimit:  opts.HistoryLimit,
		Markdown:      chatMarkdown,
		Keys:          keys,
	})
	app.stack.Add(components.ChatPanelID)

	// Register event bus as event handler for the gateway
	if src, ok := gw.(eventSource); ok {
		src.AddEventHandler(eventBus)
	}

	return app, nil
}

// SetProgram wires gateway events to the running program
func (a *Application) SetProgram(program MessageSender) {
	a.eventProcessor.ProcessEvents(program)
}

// Shutdown stops event delivery
func (a *Application) Shutdown() {
	a.eventBus.Shutdown()
}

// Chat returns the chat panel
func (a *Application) Chat() *components.ChatPanel { return a.chat }

// Stack returns the shared z-order stack
func (a *Application) Stack() *geometry.Stack { return a.stack }

// Card returns a card by id
func (a *Application) Card(id int) (*components.Card, bool) {
	c, ok := a.cards[id]
	return c, ok
}

// Cards returns the live cards in paint order
func (a *Application) Cards() []*components.Card {
	var out []*components.Card
	for _, id := range a.stack.Order() {
		if c, ok := a.cards[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Init initializes the application (bubbletea interface)
func (a *Application) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages (bubbletea interface)
func (a *Application) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKeyPress(msg)

	case tea.MouseMsg:
		return a, a.handleMouse(msg)

	case components.SubmitMsg:
		return a, a.submit(msg.Text)

	case ResponseMsg:
		for _, item := range a.chat.ApplyResponse(msg.Response) {
			a.spawnCard(item)
		}
		return a, nil

	case ResponseErrorMsg:
		a.chat.FailResponse(msg.Err)
		return a, nil

	case StatusMsg:
		a.statusMessage = fmt.Sprintf("[%s] %s", msg.Status, msg.Message)
		return a, nil

	case spinner.TickMsg:
		return a, a.chat.Update(msg)

	default:
		if a.editing != nil {
			return a, a.editing.Update(msg)
		}
		return a, a.chat.Update(msg)
	}
}

// resize recomputes the layout. The first size places the chat panel; later
// ones only re-clamp it.
func (a *Application) resize(width, height int) {
	a.width = width
	a.height = height
	a.layout = components.NewLayoutManager(width, height, a.opts.Layout)
	a.chat.SetBounds(a.layout.ChatBounds())
	if !a.ready {
		a.chat.SetRect(a.layout.InitialChatRect())
		a.ready = true
	}
	a.help.Width = width
	logger.Debug("terminal resized", "width", width, "height", height, "chat", a.chat.Size())
}

// handleKeyPress routes keys: an editing card gets everything but quit,
// otherwise keys go to the chat panel
func (a *Application) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, a.keys.Quit) {
		return tea.Quit
	}

	if a.editing != nil {
		if key.Matches(msg, a.keys.Commit) || key.Matches(msg, a.keys.Blur) {
			a.commitEdit()
			return a.chat.Focus()
		}
		return a.editing.Update(msg)
	}

	if key.Matches(msg, a.keys.Edit) {
		if c := a.topCard(); c != nil {
			return a.startEdit(c)
		}
		return nil
	}

	return a.chat.Update(msg)
}

// handleMouse implements press/motion/release routing. Only the left button
// starts sessions; the wheel scrolls the chat transcript under the pointer.
func (a *Application) handleMouse(msg tea.MouseMsg) tea.Cmd {
	p := geometry.Point{X: msg.X, Y: msg.Y}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if id, _ := a.hitTest(p); id == components.ChatPanelID {
				a.chat.Scroll(-wheelStep)
			}
		case tea.MouseButtonWheelDown:
			if id, _ := a.hitTest(p); id == components.ChatPanelID {
				a.chat.Scroll(wheelStep)
			}
		case tea.MouseButtonLeft:
			return a.handlePress(p)
		}

	case tea.MouseActionMotion:
		switch {
		case a.drag != nil:
			pos := a.drag.Move(p)
			if a.drag.ID == components.ChatPanelID {
				a.chat.SetPosition(pos)
			} else if c, ok := a.cards[a.drag.ID]; ok {
				c.SetPosition(pos)
			}
		case a.chat.IsResizing():
			a.chat.ResizeTo(p)
		}

	case tea.MouseActionRelease:
		a.drag = nil
		a.chat.StopResize()
	}

	return nil
}

// hitTest returns the front-most panel under p and the zone hit. The id is -1
// when nothing is hit.
func (a *Application) hitTest(p geometry.Point) (int, components.Zone) {
	order := a.stack.Order()
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		var zone components.Zone
		if id == components.ChatPanelID {
			zone = a.chat.HitZone(p)
		} else if c, ok := a.cards[id]; ok {
			zone = c.HitZone(p)
		}
		if zone != components.ZoneNone {
			return id, zone
		}
	}
	return -1, components.ZoneNone
}

func (a *Application) handlePress(p geometry.Point) tea.Cmd {
	id, zone := a.hitTest(p)

	var cmds []tea.Cmd

	// any press outside the editing card commits it
	if a.editing != nil && id != a.editing.ID() {
		a.commitEdit()
		cmds = append(cmds, a.chat.Focus())
	}
	if zone == components.ZoneNone {
		return tea.Batch(cmds...)
	}

	if id == components.ChatPanelID {
		a.stack.BringToFront(id)
		switch zone {
		case components.ZoneHeader:
			a.drag = geometry.StartDrag(id, a.chat.Position(), p)
		case components.ZoneResize:
			a.chat.StartResize()
		case components.ZoneJump:
			a.chat.JumpToLatest()
		}
		return tea.Batch(cmds...)
	}

	c := a.cards[id]
	switch zone {
	case components.ZoneClose:
		a.closeCard(id)
	case components.ZoneEdit:
		cmds = append(cmds, a.startEdit(c))
	case components.ZoneHeader:
		a.stack.BringToFront(id)
		a.drag = geometry.StartDrag(id, c.Position(), p)
	default:
		a.stack.BringToFront(id)
	}
	return tea.Batch(cmds...)
}

// topCard returns the front-most card, or nil when there are none
func (a *Application) topCard() *components.Card {
	order := a.stack.Order()
	for i := len(order) - 1; i >= 0; i-- {
		if c, ok := a.cards[order[i]]; ok {
			return c
		}
	}
	return nil
}

func (a *Application) startEdit(c *components.Card) tea.Cmd {
	if a.editing != nil && a.editing != c {
		a.commitEdit()
	}
	a.stack.BringToFront(c.ID())
	cmd := c.StartEdit()
	if c.IsEditing() {
		a.editing = c
		a.chat.Blur()
	}
	return cmd
}

func (a *Application) commitEdit() {
	if a.editing == nil {
		return
	}
	if content, ok := a.editing.Commit(); ok {
		logger.Info("card edited", "card", a.editing.ID(), "chars", len(content))
	}
	a.editing = nil
}

func (a *Application) closeCard(id int) {
	if a.editing != nil && a.editing.ID() == id {
		a.commitEdit()
	}
	a.stack.Remove(id)
	delete(a.cards, id)
	if a.drag != nil && a.drag.ID == id {
		a.drag = nil
	}
	logger.Info("card dismissed", "card", id)
}

// spawnCard creates a card at a random spot on top of every other panel
func (a *Application) spawnCard(item gateway.ResponseItem) *components.Card {
	id := a.cardIDs.Next()
	pos := a.layout.SpawnPosition(a.rng)
	c := components.NewCard(id, item.Content, pos, a.layout.CardSize(), a.opts.CardEditable, a.cardMarkdown)
	a.cards[id] = c
	z := a.stack.Add(id)
	logger.Info("card spawned", "card", id, "z", z, "x", pos.X, "y", pos.Y)
	return c
}

// submit runs the gateway call off the update loop
func (a *Application) submit(text string) tea.Cmd {
	ctx, gw := a.ctx, a.gateway
	return func() tea.Msg {
		resp, err := gw.Submit(ctx, text)
		if err != nil {
			return ResponseErrorMsg{Err: err}
		}
		return ResponseMsg{Response: resp}
	}
}

// View renders the application (bubbletea interface)
func (a *Application) View() string {
	if !a.ready {
		return "Starting..."
	}

	top, _ := a.stack.Top()
	var layers []components.Layer
	for _, id := range a.stack.Order() {
		if id == components.ChatPanelID {
			layers = append(layers, components.Layer{
				Pos:  a.chat.Position(),
				View: a.chat.View(id == top),
			})
			continue
		}
		if c, ok := a.cards[id]; ok {
			layers = append(layers, components.Layer{
				Pos:  c.Position(),
				View: c.View(id == top),
			})
		}
	}

	canvas := a.layout.Canvas()
	body := components.Compose(canvas.Width, canvas.Height, layers)
	return body + "\n" + a.renderFooter()
}

func (a *Application) renderFooter() string {
	footer := a.help.View(a.keys)
	if a.statusMessage != "" {
		style := a.styles.Status
		if strings.HasPrefix(a.statusMessage, "[error]") {
			style = a.styles.Error
		}
		footer += a.styles.Footer.Render("  │  ") + style.Render(a.statusMessage)
	}
	return ansi.Truncate(footer, a.width, "…")
}
