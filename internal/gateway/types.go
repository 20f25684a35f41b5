package gateway

import (
	"encoding/json"
	"time"
)

// Sender identifies who produced a response item
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderSystem Sender = "system"
)

// ItemType decides whether an item goes to the transcript or becomes a card
type ItemType string

const (
	TypeMessage ItemType = "message"
	TypeCard    ItemType = "card"
)

// ResponseItem is one classified entry returned by the backend
type ResponseItem struct {
	Content string   `json:"content"`
	Sender  Sender   `json:"sender"`
	Type    ItemType `json:"type"`
}

// Response is the validated result of one Submit call
type Response struct {
	RequestID         string
	Items             []ResponseItem
	State             json.RawMessage // opaque, passed through untouched
	ConversationEnded bool
	Duration          time.Duration
}

// Messages returns the items destined for the transcript, in order
func (r *Response) Messages() []ResponseItem {
	return r.filter(TypeMessage)
}

// Cards returns the items that spawn cards, in order
func (r *Response) Cards() []ResponseItem {
	return r.filter(TypeCard)
}

func (r *Response) filter(t ItemType) []ResponseItem {
	var out []ResponseItem
	for _, item := range r.Items {
		if item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// processRequest is the /process_input request body
type processRequest struct {
	Input string `json:"input"`
}

// wireResponse mirrors the backend body with pointers so that missing fields
// can be told apart from empty ones.
type wireResponse struct {
	Messages          *[]wireItem     `json:"messages"`
	State             json.RawMessage `json:"state,omitempty"`
	EndOfConversation *bool           `json:"endOfConversation,omitempty"`
}

type wireItem struct {
	Content *string `json:"content"`
	Sender  *string `json:"sender"`
	Type    *string `json:"type"`
}

// Event is emitted by the client around every request
type Event struct {
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventType represents the different lifecycle events
type EventType string

const (
	EventRequestStarted   EventType = "request_started"
	EventResponseReceived EventType = "response_received"
	EventRequestFailed    EventType = "request_failed"
)

// ResponseSummary is the Data of an EventResponseReceived event
type ResponseSummary struct {
	Messages          int
	Cards             int
	ConversationEnded bool
	Duration          time.Duration
}
