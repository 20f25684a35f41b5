package components

import (
	"time"

	"cardchat/internal/gateway"
)

// ChatPanelID is the stack id of the single chat panel. Card ids start at 1.
const ChatPanelID = 0

// Message is one immutable transcript entry
type Message struct {
	Content   string
	Sender    gateway.Sender
	Type      gateway.ItemType
	Timestamp time.Time
}

// Zone identifies what part of a panel a pointer press landed on
type Zone int

const (
	ZoneNone Zone = iota
	ZoneHeader
	ZoneBody
	ZoneResize
	ZoneEdit
	ZoneClose
	ZoneJump
	ZoneInput
)

func (z Zone) String() string {
	switch z {
	case ZoneHeader:
		return "header"
	case ZoneBody:
		return "body"
	case ZoneResize:
		return "resize"
	case ZoneEdit:
		return "edit"
	case ZoneClose:
		return "close"
	case ZoneJump:
		return "jump"
	case ZoneInput:
		return "input"
	default:
		return "none"
	}
}

// SubmitMsg is emitted by the chat panel when the user sends non-empty input
type SubmitMsg struct {
	Text string
}
