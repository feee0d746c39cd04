// File: internal/services/turn/types.go
package turn

import (
	"encoding/json"

	"github.com/calyra-app/calyra/internal/domain"
)

// Request is the typed form of the inbound turn payload. Exactly one
// of Message or Messages drives the flow: a non-empty Messages is the
// client re-sending its full transcript (the approval-continuation
// flow), otherwise Message must carry the new user message.
type Request struct {
	ChatID     string           `json:"id"`
	Message    *domain.Message  `json:"message,omitempty"`
	Messages   []domain.Message `json:"messages,omitempty"`
	Model      string           `json:"selectedChatModel"`
	Visibility string           `json:"selectedVisibilityType,omitempty"`
}

// Flow tells downstream components which branch the assembler chose,
// so nothing re-infers it from transcript shape.
type Flow int

const (
	FlowNewMessage Flow = iota
	FlowContinuation
)

// EventType enumerates the wire frame kinds.
type EventType string

const (
	EventTextDelta EventType = "text-delta"
	EventToolState EventType = "tool-state"
	EventTitle     EventType = "title"
	EventFinish    EventType = "finish"
	EventError     EventType = "error"
)

// Event is one wire frame. Every frame is a complete, independently
// parseable JSON object; Seq is assigned by the publisher and lets a
// reattaching consumer discard frames it has already seen.
type Event struct {
	Seq       int64           `json:"seq"`
	Type      EventType       `json:"type"`
	MessageID string          `json:"messageId,omitempty"`
	Delta     string          `json:"delta,omitempty"`
	ToolName  string          `json:"toolName,omitempty"`
	CallID    string          `json:"callId,omitempty"`
	State     string          `json:"state,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Title     string          `json:"title,omitempty"`
	Code      Code            `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// AssembledTurn is the assembler's output: the resolved flow, the
// chat, the exact ordered context for generation and the set of
// message ids that already existed in the transcript (the sink uses it
// to pick update over insert).
type AssembledTurn struct {
	Flow        Flow
	Chat        *domain.Chat
	Messages    []domain.Message
	ExistingIDs map[string]bool

	// NewChat is set when the chat record was created (or attempted)
	// this turn; FirstUserText seeds the title side-task.
	NewChat       bool
	FirstUserText string
}
