package app

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/gateway"
	"cardchat/internal/ui/components"
	"cardchat/internal/ui/geometry"
)

type fakeGateway struct {
	mu    sync.Mutex
	resp  *gateway.Response
	queue []*gateway.Response // served in order before resp
	err   error
	calls []string
}

func (f *fakeGateway) Submit(ctx context.Context, text string) (*gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.queue) > 0 {
		resp := f.queue[0]
		f.queue = f.queue[1:]
		return resp, nil
	}
	return f.resp, nil
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestApp(t *testing.T, gw Submitter) *Application {
	t.Helper()
	a, err := NewApplication(context.Background(), gw, Options{
		Layout: components.LayoutOptions{
			ChatMin:        geometry.Size{Width: 30, Height: 10},
			ChatInitial:    geometry.Size{Width: 60, Height: 22},
			MaxWidthRatio:  0.9,
			MaxHeightRatio: 0.9,
			CardSize:       geometry.Size{Width: 40, Height: 10},
		},
		JumpThreshold: 3,
		HistoryLimit:  100,
		MarkdownStyle: "notty",
		CardEditable:  true,
		Rand:          rand.New(rand.NewPCG(7, 11)),
	})
	if err != nil {
		t.Fatalf("NewApplication() error = %v", err)
	}
	t.Cleanup(a.Shutdown)
	a.Update(tea.WindowSizeMsg{Width: 120, Height: 41})
	return a
}

// drain runs cmd and feeds the resulting messages back into the app until
// nothing is left. Timers such as cursor blinks are abandoned after a short
// wait; spinner ticks are dropped so the loop terminates.
func drain(t *testing.T, a *Application, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 100 {
			t.Fatalf("drain: too many steps")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}

		done := make(chan tea.Msg, 1)
		go func() { done <- next() }()
		var msg tea.Msg
		select {
		case msg = <-done:
		case <-time.After(200 * time.Millisecond):
			continue
		}

		switch msg := msg.(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case components.SubmitMsg, ResponseMsg, ResponseErrorMsg:
			_, c := a.Update(msg)
			queue = append(queue, c)
		}
	}
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone}
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func transcript(a *Application) []string {
	var out []string
	for _, m := range a.Chat().Messages() {
		out = append(out, string(m.Sender)+":"+m.Content)
	}
	return out
}

// spawnAt injects a card response and moves the new card to pos
func spawnAt(t *testing.T, a *Application, content string, pos geometry.Point) *components.Card {
	t.Helper()
	before := len(a.Cards())
	a.Update(ResponseMsg{Response: &gateway.Response{Items: []gateway.ResponseItem{
		{Content: content, Sender: gateway.SenderAgent, Type: gateway.TypeCard},
	}}})
	cards := a.Cards()
	if len(cards) != before+1 {
		t.Fatalf("expected a new card, have %d", len(cards))
	}
	c := cards[len(cards)-1]
	c.SetPosition(pos)
	return c
}

func TestDermatitisScenario(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.Response{Items: []gateway.ResponseItem{
		{Content: "Possible contact dermatitis", Sender: gateway.SenderAgent, Type: gateway.TypeMessage},
		{Content: "Recommended: hydrocortisone 1%", Sender: gateway.SenderAgent, Type: gateway.TypeCard},
	}}}
	a := newTestApp(t, gw)
	priorMax := a.Stack().MaxZ()

	a.Chat().SetInput("red patch on forearm")
	_, cmd := a.Update(enter())
	drain(t, a, cmd)

	if got := gw.Calls(); len(got) != 1 || got[0] != "red patch on forearm" {
		t.Fatalf("gateway calls = %v", got)
	}
	want := []string{"user:red patch on forearm", "agent:Possible contact dermatitis"}
	if got := transcript(a); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("transcript = %v, want %v", got, want)
	}

	cards := a.Cards()
	if len(cards) != 1 {
		t.Fatalf("len(Cards()) = %d, want 1", len(cards))
	}
	if cards[0].Content() != "Recommended: hydrocortisone 1%" {
		t.Fatalf("card content = %q", cards[0].Content())
	}
	z, ok := a.Stack().Z(cards[0].ID())
	if !ok || z <= priorMax {
		t.Fatalf("card z = %d, want > %d", z, priorMax)
	}
	if top, _ := a.Stack().Top(); top != cards[0].ID() {
		t.Fatalf("Top() = %d, want the new card", top)
	}
	if a.Chat().Responding() {
		t.Fatalf("Responding() = true after response")
	}
}

func TestTranscriptOrderAcrossSubmissions(t *testing.T) {
	agent := func(content string, typ gateway.ItemType) gateway.ResponseItem {
		return gateway.ResponseItem{Content: content, Sender: gateway.SenderAgent, Type: typ}
	}
	gw := &fakeGateway{queue: []*gateway.Response{
		{Items: []gateway.ResponseItem{
			agent("first a", gateway.TypeMessage),
			agent("first card", gateway.TypeCard),
			agent("first b", gateway.TypeMessage),
		}},
		{Items: []gateway.ResponseItem{
			agent("second a", gateway.TypeMessage),
			agent("second b", gateway.TypeMessage),
		}},
	}}
	a := newTestApp(t, gw)

	for _, text := range []string{"one", "two"} {
		a.Chat().SetInput(text)
		_, cmd := a.Update(enter())
		drain(t, a, cmd)
	}

	want := []string{
		"user:one", "agent:first a", "agent:first b",
		"user:two", "agent:second a", "agent:second b",
	}
	if got := transcript(a); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("transcript = %v, want %v", got, want)
	}
	if cards := a.Cards(); len(cards) != 1 || cards[0].Content() != "first card" {
		t.Fatalf("cards = %d, want only the first reply's card", len(cards))
	}
}

func TestNetworkFailureScenario(t *testing.T) {
	gw := &fakeGateway{err: &gateway.NetworkError{URL: "http://localhost:8000/process_input", Err: errors.New("connection refused")}}
	a := newTestApp(t, gw)

	a.Chat().SetInput("help")
	_, cmd := a.Update(enter())
	drain(t, a, cmd)

	if got := transcript(a); len(got) != 1 || got[0] != "user:help" {
		t.Fatalf("transcript = %v", got)
	}
	if a.Chat().Responding() {
		t.Fatalf("Responding() = true after failure")
	}
	if len(a.Cards()) != 0 {
		t.Fatalf("cards created on failure")
	}
	if a.Chat().Status() == "" {
		t.Fatalf("failure not reported in status")
	}
}

func TestEmptySubmitDoesNothing(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.Response{}}
	a := newTestApp(t, gw)

	a.Chat().SetInput("   ")
	_, cmd := a.Update(enter())
	drain(t, a, cmd)

	if len(gw.Calls()) != 0 {
		t.Fatalf("gateway called for blank input")
	}
	if len(a.Chat().Messages()) != 0 || a.Chat().Input() != "   " {
		t.Fatalf("blank submit changed state")
	}
}

func TestOverlappingSubmitRejected(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.Response{}}
	a := newTestApp(t, gw)

	a.Chat().SetInput("first")
	_, first := a.Update(enter())

	a.Chat().SetInput("second")
	if _, cmd := a.Update(enter()); cmd != nil {
		t.Fatalf("second submit returned a cmd")
	}
	if a.Chat().Input() != "second" {
		t.Fatalf("input = %q, want kept", a.Chat().Input())
	}

	drain(t, a, first)
	if got := gw.Calls(); len(got) != 1 || got[0] != "first" {
		t.Fatalf("gateway calls = %v", got)
	}
}

func TestChatHeaderDrag(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	origin := a.Chat().Position()

	a.Update(press(origin.X+4, origin.Y))
	a.Update(motion(origin.X+4-10, origin.Y-5))
	a.Update(motion(origin.X+4-30, origin.Y-7))
	a.Update(release(origin.X+4-30, origin.Y-7))

	want := geometry.Point{X: origin.X - 30, Y: origin.Y - 7}
	if got := a.Chat().Position(); got != want {
		t.Fatalf("Position() = %v, want %v", got, want)
	}

	a.Update(motion(0, 0))
	if got := a.Chat().Position(); got != want {
		t.Fatalf("motion after release moved panel to %v", got)
	}
}

func TestChatCornerResizeClamped(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	r := a.Chat().Rect()
	bounds := a.Chat().Bounds()

	a.Update(press(r.Right(), r.Bottom()))
	if !a.Chat().IsResizing() {
		t.Fatalf("press on corner did not start a resize")
	}
	a.Update(motion(5000, 5000))
	if got := a.Chat().Size(); got != bounds.Max {
		t.Fatalf("Size() = %v, want max %v", got, bounds.Max)
	}
	a.Update(motion(-5000, -5000))
	if got := a.Chat().Size(); got != bounds.Min {
		t.Fatalf("Size() = %v, want min %v", got, bounds.Min)
	}
	a.Update(release(0, 0))
	if a.Chat().IsResizing() {
		t.Fatalf("IsResizing() = true after release")
	}
	if a.Chat().Position() != r.Pos {
		t.Fatalf("resize moved the panel")
	}
}

func TestCardBringToFrontOnBodyPress(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	back := spawnAt(t, a, "back", geometry.Point{X: 0, Y: 0})
	front := spawnAt(t, a, "front", geometry.Point{X: 5, Y: 3})

	// overlap is owned by the front card
	a.Update(press(6, 5))
	if top, _ := a.Stack().Top(); top != front.ID() {
		t.Fatalf("Top() = %d, want %d", top, front.ID())
	}

	// a cell only the back card covers raises it
	a.Update(press(1, 1))
	if top, _ := a.Stack().Top(); top != back.ID() {
		t.Fatalf("Top() = %d, want %d", top, back.ID())
	}

	// now the overlap belongs to the back card
	a.Update(press(6, 5))
	if top, _ := a.Stack().Top(); top != back.ID() {
		t.Fatalf("Top() = %d after overlap press, want %d", top, back.ID())
	}
}

func TestCardDragByTitle(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	c := spawnAt(t, a, "drag me", geometry.Point{X: 10, Y: 2})

	a.Update(press(12, 2))
	a.Update(motion(3, 1))
	a.Update(motion(20, 12))
	a.Update(release(20, 12))

	if got := c.Position(); got != (geometry.Point{X: 18, Y: 12}) {
		t.Fatalf("Position() = %v, want {18 12}", got)
	}
}

func TestCardEditCommitsOnClickAway(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	c := spawnAt(t, a, "note", geometry.Point{X: 0, Y: 0})

	// [e] sits at x 32..34 on a 40 wide card
	a.Update(press(33, 0))
	if !c.IsEditing() {
		t.Fatalf("edit affordance did not start editing")
	}
	if a.Chat().Focused() {
		t.Fatalf("chat input still focused while editing")
	}
	a.Update(runes("!"))

	a.Update(press(100, 1))
	if c.IsEditing() {
		t.Fatalf("click-away did not commit")
	}
	if c.Content() != "note!" {
		t.Fatalf("Content() = %q, want %q", c.Content(), "note!")
	}
	if !a.Chat().Focused() {
		t.Fatalf("chat input not refocused")
	}
}

func TestCardEditCommitsOnEsc(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	c := spawnAt(t, a, "abc", geometry.Point{X: 0, Y: 0})

	a.Update(tea.KeyMsg{Type: tea.KeyCtrlE})
	if !c.IsEditing() {
		t.Fatalf("ctrl+e did not edit the top card")
	}
	a.Update(runes("d"))
	a.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if c.IsEditing() || c.Content() != "abcd" {
		t.Fatalf("after esc: editing=%v content=%q", c.IsEditing(), c.Content())
	}
	// keys go back to the chat input
	a.Update(runes("x"))
	if a.Chat().Input() != "x" {
		t.Fatalf("chat input = %q", a.Chat().Input())
	}
}

func TestCardClose(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	c := spawnAt(t, a, "bye", geometry.Point{X: 0, Y: 0})
	stackLen := a.Stack().Len()

	a.Update(press(36, 0))

	if _, ok := a.Card(c.ID()); ok {
		t.Fatalf("card still present after close")
	}
	if _, ok := a.Stack().Z(c.ID()); ok {
		t.Fatalf("card still in stack")
	}
	if a.Stack().Len() != stackLen-1 {
		t.Fatalf("Stack().Len() = %d, want %d", a.Stack().Len(), stackLen-1)
	}
}

func TestCardIDsUnique(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	seen := map[int]bool{}
	for i := 0; i < 20; i++ {
		c := spawnAt(t, a, "c", geometry.Point{})
		if seen[c.ID()] || c.ID() == components.ChatPanelID {
			t.Fatalf("duplicate card id %d", c.ID())
		}
		seen[c.ID()] = true
	}
}

func TestWheelScrollsChat(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	for i := 0; i < 40; i++ {
		a.Update(ResponseMsg{Response: &gateway.Response{Items: []gateway.ResponseItem{
			{Content: "line", Sender: gateway.SenderAgent, Type: gateway.TypeMessage},
		}}})
	}
	r := a.Chat().Rect()

	a.Update(tea.MouseMsg{X: r.Pos.X + 5, Y: r.Pos.Y + 3, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := a.Chat().Conversation().LinesFromBottom(); got != wheelStep {
		t.Fatalf("LinesFromBottom() = %d, want %d", got, wheelStep)
	}

	// wheel outside the chat is ignored
	a.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	if got := a.Chat().Conversation().LinesFromBottom(); got != wheelStep {
		t.Fatalf("LinesFromBottom() = %d after outside wheel", got)
	}
}

func TestViewComposesAllPanels(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	spawnAt(t, a, "hello card", geometry.Point{X: 2, Y: 1})

	view := a.View()
	lines := strings.Split(view, "\n")
	if len(lines) != 41 {
		t.Fatalf("View() has %d lines, want 41", len(lines))
	}
	plain := ansi.Strip(view)
	for _, want := range []string{"Chat", "Card #1", "hello card", "send"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("View() missing %q", want)
		}
	}
}

func TestWindowResizeReclampsChat(t *testing.T) {
	a := newTestApp(t, &fakeGateway{})
	pos := a.Chat().Position()

	a.Update(tea.WindowSizeMsg{Width: 40, Height: 13})
	if got := a.Chat().Size(); got != (geometry.Size{Width: 36, Height: 10}) {
		t.Fatalf("Size() = %v after shrink", got)
	}
	if a.Chat().Position() != pos {
		t.Fatalf("resize moved the chat panel")
	}
}
