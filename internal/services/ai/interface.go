// File: internal/services/ai/interface.go
package ai

import (
	"context"
	"encoding/json"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/services/tools"
)

// EventType enumerates what a generation stream can produce.
type EventType string

const (
	EventTextDelta EventType = "text-delta"
	EventToolCall  EventType = "tool-call"
	EventFinish    EventType = "finish"
	EventError     EventType = "error"
)

// ToolCall is one tool invocation proposed by the model. Arguments is
// the fully accumulated JSON input.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Event is one element of the ordered generation stream.
type Event struct {
	Type         EventType
	Delta        string
	Call         *ToolCall
	FinishReason string
	Err          error
}

// Request describes one generation call: the system prompt, the full
// ordered message context and the tools the model may propose.
type Request struct {
	Model    string
	System   string
	Messages []domain.Message
	Tools    []tools.Descriptor
}

// Provider is the generation engine boundary. Stream returns a channel
// that carries the ordered event sequence and is closed when the
// generation ends; a stream-level failure arrives as an error event
// before the close. Complete is the non-streaming path used by side
// tasks such as title generation.
type Provider interface {
	Stream(ctx context.Context, req Request) (<-chan Event, error)
	Complete(ctx context.Context, model, prompt string) (string, error)
}
