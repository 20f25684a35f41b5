// Package stub serves a scripted /process_input backend for local use. Replies
// are classified into messages and cards with the same keyword rule the real
// dermatology backend uses.
package stub

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cardchat/internal/gateway"
)

// cardKeywords mark agent replies that are shown as cards
var cardKeywords = []string{
	"Medical Dermatologist Assessment",
	"Surgical Dermatologist Assessment",
	"Dermatopathologist Assessment",
	"Pharmacist's Recommendations",
}

// Classify returns TypeCard when content carries one of the card keywords
func Classify(content string) gateway.ItemType {
	for _, kw := range cardKeywords {
		if strings.Contains(content, kw) {
			return gateway.TypeCard
		}
	}
	return gateway.TypeMessage
}

// Reply is one scripted response item. Sender defaults to agent and Type to
// the keyword classification.
type Reply struct {
	Content string `yaml:"content"`
	Sender  string `yaml:"sender,omitempty"`
	Type    string `yaml:"type,omitempty"`
}

// Rule answers inputs containing Match (case-insensitive). An empty Match or
// "*" matches everything.
type Rule struct {
	Match   string  `yaml:"match"`
	Replies []Reply `yaml:"replies"`
}

// Script is an ordered rule list; the first matching rule wins
type Script struct {
	Rules []Rule `yaml:"rules"`
}

// LoadScript reads and validates a YAML script file
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks every reply for content and known sender/type values
func (s *Script) Validate() error {
	for i, rule := range s.Rules {
		if len(rule.Replies) == 0 {
			return fmt.Errorf("rules[%d]: no replies", i)
		}
		for j, r := range rule.Replies {
			if strings.TrimSpace(r.Content) == "" {
				return fmt.Errorf("rules[%d].replies[%d]: empty content", i, j)
			}
			switch gateway.Sender(r.Sender) {
			case "", gateway.SenderUser, gateway.SenderAgent, gateway.SenderSystem:
			default:
				return fmt.Errorf("rules[%d].replies[%d]: unknown sender %q", i, j, r.Sender)
			}
			switch gateway.ItemType(r.Type) {
			case "", gateway.TypeMessage, gateway.TypeCard:
			default:
				return fmt.Errorf("rules[%d].replies[%d]: unknown type %q", i, j, r.Type)
			}
		}
	}
	return nil
}

// match returns the first rule for input, or nil
func (s *Script) match(input string) *Rule {
	if s == nil {
		return nil
	}
	lower := strings.ToLower(input)
	for i := range s.Rules {
		m := strings.ToLower(strings.TrimSpace(s.Rules[i].Match))
		if m == "" || m == "*" || strings.Contains(lower, m) {
			return &s.Rules[i]
		}
	}
	return nil
}

// Item is one entry of the /process_input response
type Item struct {
	Content string           `json:"content"`
	Sender  gateway.Sender   `json:"sender"`
	Type    gateway.ItemType `json:"type"`
}

// State is the consultation summary returned alongside the items. Clients
// treat it as opaque.
type State struct {
	DifficultyLevel string `json:"difficulty_level"`
	Diagnosis       string `json:"diagnosis"`
	TreatmentPlan   string `json:"treatment_plan"`
	Prescription    string `json:"prescription"`
}

// ProcessRequest is the /process_input request body
type ProcessRequest struct {
	Input string `json:"input"`
}

// ProcessResponse is the /process_input response body
type ProcessResponse struct {
	Messages          []Item `json:"messages"`
	State             State  `json:"state"`
	EndOfConversation bool   `json:"endOfConversation"`
}

// Respond builds the full response for input: the echoed user message first,
// then the scripted replies, or a canned consultation when no rule matches.
func (s *Script) Respond(input string) ProcessResponse {
	difficulty := Triage(input)
	resp := ProcessResponse{
		Messages:          []Item{{Content: input, Sender: gateway.SenderUser, Type: gateway.TypeMessage}},
		State:             State{DifficultyLevel: string(difficulty)},
		EndOfConversation: true,
	}

	if rule := s.match(input); rule != nil {
		for _, r := range rule.Replies {
			resp.Messages = append(resp.Messages, r.item())
		}
		return resp
	}

	c := consult(input, difficulty)
	resp.Messages = append(resp.Messages, c.items...)
	resp.State.Diagnosis = c.diagnosis
	resp.State.TreatmentPlan = c.treatment
	resp.State.Prescription = c.prescription
	return resp
}

func (r Reply) item() Item {
	sender := gateway.Sender(r.Sender)
	if sender == "" {
		sender = gateway.SenderAgent
	}
	itemType := gateway.ItemType(r.Type)
	if itemType == "" {
		itemType = Classify(r.Content)
	}
	return Item{Content: r.Content, Sender: sender, Type: itemType}
}
