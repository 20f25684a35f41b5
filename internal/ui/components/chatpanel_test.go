package components

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"cardchat/internal/gateway"
	"cardchat/internal/ui/geometry"
)

func newTestChatPanel(t *testing.T) *ChatPanel {
	t.Helper()
	return NewChatPanel(ChatPanelOptions{
		Rect: geometry.Rect{
			Pos:  geometry.Point{X: 5, Y: 2},
			Size: geometry.Size{Width: 40, Height: 14},
		},
		Bounds: geometry.Bounds{
			Min: geometry.Size{Width: 20, Height: 8},
			Max: geometry.Size{Width: 60, Height: 20},
		},
		JumpThreshold: DefaultJumpThreshold,
		Keys:          DefaultKeyMap(),
	})
}

// submitText extracts the SubmitMsg from the batch returned by Submit
func submitText(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	if cmd == nil {
		t.Fatalf("Submit() returned nil cmd")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatalf("Submit() cmd did not produce a batch")
	}
	for _, c := range batch {
		if c == nil {
			continue
		}
		if msg, ok := c().(SubmitMsg); ok {
			return msg.Text
		}
	}
	t.Fatalf("no SubmitMsg in batch")
	return ""
}

func TestChatPanelEmptySubmitIsNoop(t *testing.T) {
	for _, input := range []string{"", "   ", "\t", " \t  "} {
		cp := newTestChatPanel(t)
		cp.SetInput(input)
		// the text input normalizes tabs, so compare against what it stored
		before := cp.Input()

		if cmd := cp.Submit(); cmd != nil {
			t.Fatalf("Submit(%q) returned a cmd", input)
		}
		if cp.Input() != before {
			t.Fatalf("input = %q, want %q", cp.Input(), before)
		}
		if len(cp.Messages()) != 0 || cp.Responding() || cp.Status() != "" {
			t.Fatalf("Submit(%q) changed state", input)
		}
	}
}

func TestChatPanelSubmitAppendsAndClears(t *testing.T) {
	cp := newTestChatPanel(t)
	cp.SetInput("I have a rash")

	cmd := cp.Submit()
	msgs := cp.Messages()
	if len(msgs) != 1 || msgs[0].Sender != gateway.SenderUser || msgs[0].Content != "I have a rash" {
		t.Fatalf("Messages() = %+v", msgs)
	}
	if cp.Input() != "" {
		t.Fatalf("input not cleared: %q", cp.Input())
	}
	if !cp.Responding() {
		t.Fatalf("Responding() = false")
	}
	if got := submitText(t, cmd); got != "I have a rash" {
		t.Fatalf("SubmitMsg.Text = %q", got)
	}
}

func TestChatPanelRejectsOverlappingSubmit(t *testing.T) {
	cp := newTestChatPanel(t)
	cp.SetInput("first")
	cp.Submit()

	cp.SetInput("second")
	if cmd := cp.Submit(); cmd != nil {
		t.Fatalf("second Submit() returned a cmd")
	}
	if cp.Input() != "second" {
		t.Fatalf("input = %q, want it kept", cp.Input())
	}
	if len(cp.Messages()) != 1 {
		t.Fatalf("len(Messages()) = %d, want 1", len(cp.Messages()))
	}
	if cp.Status() == "" {
		t.Fatalf("expected a status note")
	}
}

func TestChatPanelApplyResponseSplitsItems(t *testing.T) {
	cp := newTestChatPanel(t)
	cp.SetInput("hi")
	cp.Submit()

	cards := cp.ApplyResponse(&gateway.Response{
		Items: []gateway.ResponseItem{
			{Content: "one", Sender: gateway.SenderAgent, Type: gateway.TypeMessage},
			{Content: "card A", Sender: gateway.SenderAgent, Type: gateway.TypeCard},
			{Content: "two", Sender: gateway.SenderSystem, Type: gateway.TypeMessage},
			{Content: "card B", Sender: gateway.SenderAgent, Type: gateway.TypeCard},
		},
		ConversationEnded: true,
	})

	if cp.Responding() {
		t.Fatalf("Responding() = true after response")
	}
	var got []string
	for _, m := range cp.Messages() {
		got = append(got, m.Content)
	}
	if strings.Join(got, ",") != "hi,one,two" {
		t.Fatalf("transcript = %v", got)
	}
	if len(cards) != 2 || cards[0].Content != "card A" || cards[1].Content != "card B" {
		t.Fatalf("cards = %+v", cards)
	}
	if cp.Status() != "Conversation ended" {
		t.Fatalf("Status() = %q", cp.Status())
	}
}

func TestChatPanelFailureKeepsTranscript(t *testing.T) {
	cp := newTestChatPanel(t)
	cp.SetInput("hello")
	cp.Submit()

	cp.FailResponse(&gateway.NetworkError{URL: "http://x", Err: errors.New("refused")})

	if cp.Responding() {
		t.Fatalf("Responding() = true after failure")
	}
	msgs := cp.Messages()
	if len(msgs) != 1 || msgs[0].Content != "hello" {
		t.Fatalf("Messages() = %+v", msgs)
	}
	if !strings.Contains(cp.Status(), "unreachable") {
		t.Fatalf("Status() = %q", cp.Status())
	}
}

func TestChatPanelHitZones(t *testing.T) {
	cp := newTestChatPanel(t) // at (5,2), 40x14
	tests := []struct {
		name string
		p    geometry.Point
		want Zone
	}{
		{"outside", geometry.Point{X: 0, Y: 0}, ZoneNone},
		{"header", geometry.Point{X: 10, Y: 2}, ZoneHeader},
		{"body", geometry.Point{X: 10, Y: 5}, ZoneBody},
		{"input", geometry.Point{X: 10, Y: 14}, ZoneInput},
		{"resize corner", geometry.Point{X: 44, Y: 15}, ZoneResize},
		{"resize grip", geometry.Point{X: 43, Y: 15}, ZoneResize},
		{"bottom border", geometry.Point{X: 10, Y: 15}, ZoneBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cp.HitZone(tt.p); got != tt.want {
				t.Fatalf("HitZone(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestChatPanelJumpToLatest(t *testing.T) {
	cp := newTestChatPanel(t)
	for i := 0; i < 30; i++ {
		cp.conversation.AddMessage(agentMessage(fmt.Sprintf("m%d", i)))
	}
	if cp.JumpVisible() {
		t.Fatalf("JumpVisible() = true at bottom")
	}

	cp.Scroll(-DefaultJumpThreshold)
	if cp.JumpVisible() {
		t.Fatalf("JumpVisible() = true within threshold")
	}
	cp.Scroll(-1)
	if !cp.JumpVisible() {
		t.Fatalf("JumpVisible() = false beyond threshold")
	}

	jumpRow := geometry.Point{X: 10, Y: cp.Rect().Pos.Y + cp.Rect().Size.Height - 4}
	if got := cp.HitZone(jumpRow); got != ZoneJump {
		t.Fatalf("HitZone(jump row) = %v, want jump", got)
	}
	if !strings.Contains(ansi.Strip(cp.View(true)), "jump to latest") {
		t.Fatalf("jump line not rendered")
	}

	cp.JumpToLatest()
	if cp.JumpVisible() {
		t.Fatalf("JumpVisible() = true after JumpToLatest")
	}
}

func TestChatPanelResizeClamps(t *testing.T) {
	cp := newTestChatPanel(t)

	cp.ResizeTo(geometry.Point{X: 1000, Y: 1000})
	if got := cp.Size(); got != (geometry.Size{Width: 60, Height: 20}) {
		t.Fatalf("Size() = %v after huge resize", got)
	}
	cp.ResizeTo(geometry.Point{X: -50, Y: -50})
	if got := cp.Size(); got != (geometry.Size{Width: 20, Height: 8}) {
		t.Fatalf("Size() = %v after negative resize", got)
	}

	cp.ResizeTo(geometry.Point{X: 5 + 29, Y: 2 + 9})
	if got := cp.Size(); got != (geometry.Size{Width: 30, Height: 10}) {
		t.Fatalf("Size() = %v, want 30x10", got)
	}

	cp.SetBounds(geometry.Bounds{
		Min: geometry.Size{Width: 20, Height: 8},
		Max: geometry.Size{Width: 25, Height: 9},
	})
	if got := cp.Size(); got != (geometry.Size{Width: 25, Height: 9}) {
		t.Fatalf("Size() = %v after shrinking bounds", got)
	}
}

func TestChatPanelViewSize(t *testing.T) {
	cp := newTestChatPanel(t)
	cp.conversation.AddMessage(agentMessage(strings.Repeat("long words ", 40)))

	lines := strings.Split(cp.View(false), "\n")
	if len(lines) != 14 {
		t.Fatalf("View() has %d lines, want 14", len(lines))
	}
	for i, line := range lines {
		if w := ansi.StringWidth(line); w != 40 {
			t.Fatalf("line %d width = %d, want 40", i, w)
		}
	}
}
