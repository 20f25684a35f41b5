package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cardchat/internal/gateway"
)

// MessageSender is the part of *tea.Program the event plumbing needs
type MessageSender interface {
	Send(msg tea.Msg)
}

// EventBus manages event distribution throughout the application
type EventBus struct {
	subscribers map[gateway.EventType][]chan gateway.Event
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewEventBus creates a new event bus
func NewEventBus(ctx context.Context) *EventBus {
	busCtx, cancel := context.WithCancel(ctx)
	return &EventBus{
		subscribers: make(map[gateway.EventType][]chan gateway.Event),
		ctx:         busCtx,
		cancel:      cancel,
	}
}

// Subscribe subscribes to specific event types
func (eb *EventBus) Subscribe(eventType gateway.EventType, bufferSize int) <-chan gateway.Event {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eventCh := make(chan gateway.Event, bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], eventCh)

	return eventCh
}

// HandleEvent implements gateway.EventHandler interface
func (eb *EventBus) HandleEvent(event gateway.Event) {
	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	// Send event to all subscribers of this type
	for _, subscriber := range eb.subscribers[event.Type] {
		select {
		case subscriber <- event:
		case <-eb.ctx.Done():
			return
		default:
			// Non-blocking send - drop event if channel is full
		}
	}
}

// Shutdown gracefully shuts down the event bus
func (eb *EventBus) Shutdown() {
	eb.cancel()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	// Close all subscriber channels
	for _, subscribers := range eb.subscribers {
		for _, ch := range subscribers {
			close(ch)
		}
	}

	eb.subscribers = make(map[gateway.EventType][]chan gateway.Event)
}

// ResponseMsg carries a successful gateway response back into Update
type ResponseMsg struct {
	Response *gateway.Response
}

// ResponseErrorMsg carries a failed gateway call back into Update
type ResponseErrorMsg struct {
	Err error
}

// StatusMsg represents request lifecycle updates shown in the footer
type StatusMsg struct {
	Status    string
	Message   string
	Timestamp time.Time
}

// EventProcessor processes events and converts them to bubbletea messages
type EventProcessor struct {
	eventBus *EventBus
	ctx      context.Context
}

// NewEventProcessor creates a new event processor
func NewEventProcessor(ctx context.Context, eventBus *EventBus) *EventProcessor {
	return &EventProcessor{
		eventBus: eventBus,
		ctx:      ctx,
	}
}

// ProcessEvents starts processing events and sending them as tea messages
func (ep *EventProcessor) ProcessEvents(program MessageSender) {
	started := ep.eventBus.Subscribe(gateway.EventRequestStarted, 10)
	received := ep.eventBus.Subscribe(gateway.EventResponseReceived, 10)
	failed := ep.eventBus.Subscribe(gateway.EventRequestFailed, 10)

	go ep.processEventStream(started, program, ep.handleStarted)
	go ep.processEventStream(received, program, ep.handleReceived)
	go ep.processEventStream(failed, program, ep.handleFailed)
}

// processEventStream processes a stream of events
func (ep *EventProcessor) processEventStream(eventCh <-chan gateway.Event, program MessageSender, handler func(gateway.Event) tea.Msg) {
	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			if msg := handler(event); msg != nil {
				program.Send(msg)
			}
		case <-ep.ctx.Done():
			return
		}
	}
}

// Event handlers convert gateway events to tea messages
func (ep *EventProcessor) handleStarted(event gateway.Event) tea.Msg {
	return StatusMsg{
		Status:    "request",
		Message:   "sent " + shortID(event.RequestID),
		Timestamp: event.Timestamp,
	}
}

func (ep *EventProcessor) handleReceived(event gateway.Event) tea.Msg {
	summary, ok := event.Data.(gateway.ResponseSummary)
	if !ok {
		return nil
	}
	return StatusMsg{
		Status: "response",
		Message: fmt.Sprintf("%s: %d messages, %d cards in %s",
			shortID(event.RequestID),
			summary.Messages,
			summary.Cards,
			summary.Duration.Round(time.Millisecond),
		),
		Timestamp: event.Timestamp,
	}
}

func (ep *EventProcessor) handleFailed(event gateway.Event) tea.Msg {
	err, ok := event.Data.(error)
	if !ok {
		return nil
	}
	return StatusMsg{
		Status:    "error",
		Message:   fmt.Sprintf("%s: %v", shortID(event.RequestID), err),
		Timestamp: event.Timestamp,
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
