// File: internal/domain/message.go
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Part type tags.
const (
	PartTypeText = "text"
	PartTypeFile = "file"
	PartTypeTool = "tool-invocation"
)

// Tool invocation states. A tool part moves through
// proposed -> awaiting-approval -> approved -> executing -> {completed|denied};
// side-effect-free tools skip awaiting-approval. The approval-responded
// state is only ever written by the client when it answers an approval
// prompt.
const (
	ToolStateProposed         = "proposed"
	ToolStateAwaitingApproval = "awaiting-approval"
	ToolStateApprovalResponse = "approval-responded"
	ToolStateApproved         = "approved"
	ToolStateExecuting        = "executing"
	ToolStateCompleted        = "completed"
	ToolStateDenied           = "denied"
)

// Limits for user-authored parts.
const (
	MaxTextPartChars = 2000
	MaxFileNameChars = 100
)

// Approval is the client's answer to an approval prompt, carried on a
// tool part with state approval-responded.
type Approval struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Part is the tagged union that makes up a message body: text, file or
// tool-invocation. Exactly the fields for the tagged variant are set;
// the rest stay zero and are omitted on the wire.
type Part struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// file
	MediaType string `json:"mediaType,omitempty"`
	Name      string `json:"name,omitempty"`
	URL       string `json:"url,omitempty"`

	// tool-invocation
	ToolName string          `json:"toolName,omitempty"`
	CallID   string          `json:"callId,omitempty"`
	State    string          `json:"state,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Approval *Approval       `json:"approval,omitempty"`
}

// Message represents a single message within a chat. Parts are stored
// as a JSON column; the struct is shared between the wire payload and
// the gorm model.
type Message struct {
	ID        string    `json:"id" gorm:"primarykey"`
	ChatID    string    `json:"chat_id" gorm:"not null;index"`
	Role      string    `json:"role" gorm:"not null"`
	Parts     []Part    `json:"parts" gorm:"serializer:json"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrEmptyParts      = errors.New("message parts cannot be empty")
	ErrUnknownPartType = errors.New("unknown part type")
)

// TextContent joins the text parts of a message.
func (m *Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolParts returns pointers to the tool-invocation parts of a message
// so callers can transition their state in place.
func (m *Message) ToolParts() []*Part {
	var out []*Part
	for i := range m.Parts {
		if m.Parts[i].Type == PartTypeTool {
			out = append(out, &m.Parts[i])
		}
	}
	return out
}

// ValidateUserParts applies the strict schema for user-authored
// content: non-empty, bounded text, image files only. Model and tool
// content goes through ValidateParts instead.
func ValidateUserParts(parts []Part) error {
	if len(parts) == 0 {
		return ErrEmptyParts
	}
	for i, p := range parts {
		switch p.Type {
		case PartTypeText:
			if p.Text == "" {
				return fmt.Errorf("part %d: text cannot be empty", i)
			}
			if len(p.Text) > MaxTextPartChars {
				return fmt.Errorf("part %d: text exceeds %d characters", i, MaxTextPartChars)
			}
		case PartTypeFile:
			if !strings.HasPrefix(p.MediaType, "image/") {
				return fmt.Errorf("part %d: media type %q is not allowed", i, p.MediaType)
			}
			if p.Name == "" || len(p.Name) > MaxFileNameChars {
				return fmt.Errorf("part %d: file name must be 1..%d characters", i, MaxFileNameChars)
			}
			if p.URL == "" {
				return fmt.Errorf("part %d: file url is required", i)
			}
		default:
			return fmt.Errorf("part %d: %w: %q", i, ErrUnknownPartType, p.Type)
		}
	}
	return nil
}

// ValidateParts is the permissive schema for non-user roles: any part
// carrying a known type tag passes.
func ValidateParts(parts []Part) error {
	for i, p := range parts {
		switch p.Type {
		case PartTypeText, PartTypeFile, PartTypeTool:
		default:
			return fmt.Errorf("part %d: %w: %q", i, ErrUnknownPartType, p.Type)
		}
	}
	return nil
}
