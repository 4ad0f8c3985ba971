// Package agent holds the natural-language ask model: conversation turns,
// tool-calling messages, and the answer with its tool trace.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/taarya/internal/domain"
	"github.com/kailas-cloud/taarya/internal/domain/catalog"
	"github.com/kailas-cloud/taarya/internal/domain/similarity"
)

// PreviewLength is the maximum number of characters kept from a tool output.
const PreviewLength = 200

// MaxQueryLength bounds an ask query.
const MaxQueryLength = 4096

// Mode tells which reasoner produced an answer.
type Mode string

const (
	// ModeGenerative is an answer from the LLM tool loop.
	ModeGenerative Mode = "generative"
	// ModeFallback is an answer from the rule-based interpreter.
	ModeFallback Mode = "fallback"
)

// Role of a chat message.
type Role string

// Chat roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one prior exchange forwarded as chat history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ToolUse records one tool invocation.
type ToolUse struct {
	Tool          string `json:"tool"`
	Input         string `json:"input"`
	OutputPreview string `json:"output_preview"`
}

// Results carries the structured data behind a fallback answer.
type Results struct {
	Cone   []catalog.Hit    `json:"cone,omitempty"`
	Star   *catalog.Record  `json:"star,omitempty"`
	Papers []similarity.Hit `json:"papers,omitempty"`
}

// Answer is the outcome of an ask.
type Answer struct {
	Answer       string    `json:"answer"`
	ToolsUsed    []ToolUse `json:"tools_used"`
	Query        string    `json:"query"`
	Mode         Mode      `json:"mode"`
	Insufficient bool      `json:"insufficient_signal,omitempty"`
	Results      *Results  `json:"results,omitempty"`
	TraceID      string    `json:"trace_id,omitempty"`
}

// ToolCall is a model's request to run a tool. Arguments is a JSON object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of a tool-calling conversation.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolSpec describes a tool to the model. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Preview truncates s to PreviewLength characters.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewLength])
}

// ValidateQuery checks an ask query.
func ValidateQuery(q string) error {
	q = strings.TrimSpace(q)
	if q == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidParameter)
	}
	if len(q) > MaxQueryLength {
		return fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidParameter, MaxQueryLength)
	}
	return nil
}

// HistoryMessages converts prior turns into chat messages. Turns with other
// roles or empty content are dropped.
func HistoryMessages(history []Turn) []Message {
	out := make([]Message, 0, len(history))
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		switch t.Role {
		case RoleUser, RoleAssistant:
			out = append(out, Message{Role: t.Role, Content: t.Content})
		}
	}
	return out
}
