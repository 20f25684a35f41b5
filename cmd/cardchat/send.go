package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cardchat/internal/app"
	"cardchat/internal/gateway"
)

var (
	sendMessage string
	sendVerbose bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send messages to the backend without the TUI",
	Long: `Send a single message with -m and print the reply, or start a line-based
session when -m is omitted.

Session commands:
  /state  print the opaque state from the last reply
  /new    reset the session summary
  /exit   print the summary and quit`,
	Example: `  $ cardchat send -m "red patch on forearm"
  $ cardchat send --verbose`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "send a single message")
	sendCmd.Flags().BoolVar(&sendVerbose, "verbose", false, "trace request lifecycle events on stderr")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, _ []string) error {
	gw, err := newGateway()
	if err != nil {
		return err
	}

	var trace *traceHandler
	if sendVerbose {
		trace = newTraceHandler(os.Stderr)
		gw.AddEventHandler(trace)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s := newSession(gw, cmd.OutOrStdout(), trace)

	// Single message mode
	if sendMessage != "" {
		return s.send(ctx, sendMessage)
	}

	s.repl(ctx, os.Stdin)
	return nil
}

// session keeps running totals across sends, like a conversation summary
type session struct {
	gw    app.Submitter
	out   io.Writer
	trace *traceHandler

	started   time.Time
	requests  int
	messages  int
	cards     int
	failures  int
	totalTime time.Duration
	lastState []byte
}

func newSession(gw app.Submitter, out io.Writer, trace *traceHandler) *session {
	return &session{gw: gw, out: out, trace: trace, started: time.Now()}
}

func (s *session) send(ctx context.Context, text string) error {
	s.requests++
	resp, err := s.gw.Submit(ctx, text)
	if s.trace != nil {
		s.trace.flush(2, time.Second)
	}
	if err != nil {
		s.failures++
		return fmt.Errorf("send failed: %w", err)
	}

	s.totalTime += resp.Duration
	s.messages += len(resp.Messages())
	s.cards += len(resp.Cards())
	s.lastState = append([]byte(nil), resp.State...)

	printResponse(s.out, resp)
	return nil
}

// repl reads one message per line until EOF or /exit
func (s *session) repl(ctx context.Context, in io.Reader) {
	fmt.Fprintln(s.out, "cardchat send (type /exit to quit)")
	fmt.Fprintln(s.out)

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(s.out, "> ")
		input, err := reader.ReadString('\n')
		input = strings.TrimSpace(input)

		switch {
		case input == "" && err != nil:
			s.summary()
			return
		case input == "":
			continue
		case input == "/exit":
			s.summary()
			return
		case input == "/new":
			s.summary()
			*s = *newSession(s.gw, s.out, s.trace)
			fmt.Fprintln(s.out, "Started a new session")
		case input == "/state":
			if len(s.lastState) == 0 {
				fmt.Fprintln(s.out, "No state yet")
			} else {
				fmt.Fprintln(s.out, string(s.lastState))
			}
		case strings.HasPrefix(input, "/"):
			fmt.Fprintf(s.out, "Unknown command: %s\n", input)
		default:
			if sendErr := s.send(ctx, input); sendErr != nil {
				fmt.Fprintf(s.out, "Error: %v\n", sendErr)
			}
		}

		if err != nil {
			s.summary()
			return
		}
	}
}

func (s *session) summary() {
	if s.requests == 0 {
		return
	}
	line := strings.Repeat("=", 40)
	fmt.Fprintln(s.out, "\n"+line)
	fmt.Fprintln(s.out, "SESSION SUMMARY")
	fmt.Fprintln(s.out, line)
	fmt.Fprintf(s.out, "Duration: %s\n", time.Since(s.started).Round(time.Second))
	fmt.Fprintf(s.out, "Requests: %d (%d failed)\n", s.requests, s.failures)
	fmt.Fprintf(s.out, "Messages: %d\n", s.messages)
	fmt.Fprintf(s.out, "Cards:    %d\n", s.cards)
	fmt.Fprintf(s.out, "Backend time: %s\n", s.totalTime.Round(time.Millisecond))
	fmt.Fprintln(s.out, line)
}

var cardBox = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(0, 1)

// printResponse writes messages as "[sender] text" and cards as boxes, in
// backend order
func printResponse(w io.Writer, resp *gateway.Response) {
	for _, item := range resp.Items {
		switch item.Type {
		case gateway.TypeCard:
			fmt.Fprintln(w, cardBox.Render(item.Content))
		default:
			fmt.Fprintf(w, "[%s] %s\n", item.Sender, item.Content)
		}
	}
	if resp.ConversationEnded {
		fmt.Fprintln(w, "(conversation ended)")
	}
}

// traceHandler prints gateway events. Events arrive on their own goroutines,
// so flush waits for the expected number before returning.
type traceHandler struct {
	w      io.Writer
	mu     sync.Mutex
	events chan gateway.Event
}

func newTraceHandler(w io.Writer) *traceHandler {
	return &traceHandler{w: w, events: make(chan gateway.Event, 16)}
}

// HandleEvent implements gateway.EventHandler
func (t *traceHandler) HandleEvent(event gateway.Event) {
	select {
	case t.events <- event:
	default:
	}
}

func (t *traceHandler) flush(n int, timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case ev := <-t.events:
			fmt.Fprintf(t.w, "[trace] %s %s %s %+v\n",
				ev.Timestamp.Format("15:04:05.000"), ev.Type, ev.RequestID, ev.Data)
		case <-deadline:
			return
		}
	}
}
