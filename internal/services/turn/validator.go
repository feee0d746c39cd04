// File: internal/services/turn/validator.go
package turn

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/calyra-app/calyra/internal/domain"
)

// Payloads larger than this are rejected before JSON decoding.
const maxRequestBytes = 1 << 20

// ValidateRequest parses the raw wire payload into a typed Request.
// The schema is asymmetric on purpose: user-authored parts are
// strictly constrained, model and tool content is passed through as
// long as its shape is recognizable. No side effects.
func ValidateRequest(body io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(io.LimitReader(body, maxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		return nil, NewBadRequestError("validate", "malformed request body")
	}

	if req.ChatID == "" {
		return nil, NewBadRequestError("validate", "chat id is required")
	}
	if req.Model == "" {
		return nil, NewBadRequestError("validate", "selectedChatModel is required")
	}

	switch req.Visibility {
	case "", domain.VisibilityPrivate, domain.VisibilityPublic:
	default:
		return nil, NewBadRequestError("validate", "unknown visibility type")
	}

	if req.Message != nil {
		if err := validateMessage(req.Message); err != nil {
			return nil, NewBadRequestError("validate", fmt.Sprintf("message: %v", err))
		}
	}
	for i := range req.Messages {
		if err := validateMessage(&req.Messages[i]); err != nil {
			return nil, NewBadRequestError("validate", fmt.Sprintf("messages[%d]: %v", i, err))
		}
	}

	if len(req.Messages) == 0 && req.Message == nil {
		return nil, NewBadRequestError("validate", "either message or messages must be provided")
	}

	return &req, nil
}

func validateMessage(m *domain.Message) error {
	switch m.Role {
	case domain.RoleUser:
		return domain.ValidateUserParts(m.Parts)
	case domain.RoleAssistant, domain.RoleSystem, domain.RoleTool:
		return domain.ValidateParts(m.Parts)
	default:
		return fmt.Errorf("unknown role %q", m.Role)
	}
}
