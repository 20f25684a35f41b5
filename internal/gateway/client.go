// Package gateway talks to the agent backend: one POST /process_input per
// user submission, validated and classified into messages and cards.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/network/standard"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	"cardchat/internal/logger"
)

const (
	// DefaultBaseURL is where the backend listens unless configured otherwise
	DefaultBaseURL = "http://localhost:8000"

	endpointProcessInput = "/process_input"
	requestIDHeader      = "X-Request-ID"
)

// EventHandler defines the interface for receiving request lifecycle events
type EventHandler interface {
	HandleEvent(event Event)
}

// Options tune the underlying HTTP client
type Options struct {
	DialTimeout time.Duration
	// RequestTimeout bounds one round trip. Zero means no timeout.
	RequestTimeout time.Duration
}

// Client submits user input to the backend
type Client struct {
	client  *client.Client
	baseURL string
	opts    Options

	mu        sync.RWMutex
	lastState json.RawMessage

	eventHandlers []EventHandler
	eventMutex    sync.RWMutex
}

// NewClient creates a gateway client for baseURL
func NewClient(baseURL string, opts Options) (*Client, error) {
	normalized, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}

	c, err := client.NewClient(
		client.WithDialTimeout(opts.DialTimeout),
		client.WithMaxIdleConnDuration(60*time.Second),
		client.WithDialer(standard.NewDialer()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		client:  c,
		baseURL: normalized,
		opts:    opts,
	}, nil
}

// normalizeBaseURL adds a scheme when missing and strips trailing slashes.
// A path prefix is kept so the backend can live under a sub-route.
func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	return fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, strings.TrimRight(u.Path, "/")), nil
}

// BaseURL returns the normalized backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LastState returns the opaque state from the most recent successful response
func (c *Client) LastState() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append(json.RawMessage(nil), c.lastState...)
}

// AddEventHandler registers an event handler
func (c *Client) AddEventHandler(handler EventHandler) {
	c.eventMutex.Lock()
	defer c.eventMutex.Unlock()
	c.eventHandlers = append(c.eventHandlers, handler)
}

// emitEvent sends an event to all registered handlers
func (c *Client) emitEvent(eventType EventType, requestID string, data interface{}) {
	c.eventMutex.RLock()
	defer c.eventMutex.RUnlock()

	event := Event{
		Type:      eventType,
		RequestID: requestID,
		Data:      data,
		Timestamp: time.Now(),
	}

	for _, handler := range c.eventHandlers {
		go handler.HandleEvent(event)
	}
}

// Submit sends text to the backend and returns the classified items. It makes
// exactly one attempt.
func (c *Client) Submit(ctx context.Context, text string) (*Response, error) {
	requestID := uuid.New().String()
	target := c.baseURL + endpointProcessInput
	start := time.Now()

	c.emitEvent(EventRequestStarted, requestID, text)
	logger.Debug("submitting input", "request_id", requestID, "url", target, "chars", len(text))

	resp, err := c.do(ctx, requestID, target, text)
	if err != nil {
		c.emitEvent(EventRequestFailed, requestID, err)
		logger.Warn("backend request failed", "request_id", requestID, "err", err)
		return nil, err
	}

	resp.RequestID = requestID
	resp.Duration = time.Since(start)

	c.mu.Lock()
	c.lastState = append(json.RawMessage(nil), resp.State...)
	c.mu.Unlock()

	summary := ResponseSummary{
		Messages:          len(resp.Messages()),
		Cards:             len(resp.Cards()),
		ConversationEnded: resp.ConversationEnded,
		Duration:          resp.Duration,
	}
	c.emitEvent(EventResponseReceived, requestID, summary)
	logger.Info("backend responded",
		"request_id", requestID,
		"messages", summary.Messages,
		"cards", summary.Cards,
		"ended", summary.ConversationEnded,
		"duration", summary.Duration,
	)

	return resp, nil
}

func (c *Client) do(ctx context.Context, requestID, target, text string) (*Response, error) {
	bodyBytes, err := sonic.Marshal(processRequest{Input: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(target)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.Header.Set(requestIDHeader, requestID)
	req.SetBody(bodyBytes)

	if c.opts.RequestTimeout > 0 {
		err = c.client.DoTimeout(ctx, req, resp, c.opts.RequestTimeout)
	} else {
		err = c.client.Do(ctx, req, resp)
	}
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, &NetworkError{
			URL:        target,
			StatusCode: status,
			Err:        fmt.Errorf("unexpected status %d", status),
		}
	}

	// The response buffer goes back to the pool on return, so decode from a copy.
	body := append([]byte(nil), resp.Body()...)
	return decodeResponse(body)
}

// decodeResponse validates a /process_input body against the expected schema
func decodeResponse(body []byte) (*Response, error) {
	var wire wireResponse
	if err := sonic.Unmarshal(body, &wire); err != nil {
		return nil, &MalformedResponseError{Reason: "invalid JSON", Err: err}
	}
	if wire.Messages == nil {
		return nil, &MalformedResponseError{Reason: `missing "messages" array`}
	}

	items := make([]ResponseItem, 0, len(*wire.Messages))
	for i, w := range *wire.Messages {
		item, err := validateItem(w)
		if err != nil {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("messages[%d]", i), Err: err}
		}
		items = append(items, item)
	}

	out := &Response{
		Items: items,
		State: wire.State,
	}
	if wire.EndOfConversation != nil {
		out.ConversationEnded = *wire.EndOfConversation
	}
	return out, nil
}

func validateItem(w wireItem) (ResponseItem, error) {
	if w.Content == nil {
		return ResponseItem{}, fmt.Errorf("missing content")
	}
	if w.Sender == nil {
		return ResponseItem{}, fmt.Errorf("missing sender")
	}
	if w.Type == nil {
		return ResponseItem{}, fmt.Errorf("missing type")
	}

	sender := Sender(*w.Sender)
	switch sender {
	case SenderUser, SenderAgent, SenderSystem:
	default:
		return ResponseItem{}, fmt.Errorf("unknown sender %q", *w.Sender)
	}

	itemType := ItemType(*w.Type)
	switch itemType {
	case TypeMessage, TypeCard:
	default:
		return ResponseItem{}, fmt.Errorf("unknown type %q", *w.Type)
	}

	return ResponseItem{Content: *w.Content, Sender: sender, Type: itemType}, nil
}
