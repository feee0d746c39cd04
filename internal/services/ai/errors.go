// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type ErrorType string

const (
	ErrTypeConfig   ErrorType = "CONFIG"
	ErrTypeNetwork  ErrorType = "NETWORK"
	ErrTypeProvider ErrorType = "PROVIDER"
	ErrTypeGateway  ErrorType = "GATEWAY"
	ErrTypeModel    ErrorType = "MODEL"
)

type AIError struct {
	Type      ErrorType
	Code      int
	Message   string
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

func NewGatewayError(operation string, code int, cause error) *AIError {
	return &AIError{
		Type:      ErrTypeGateway,
		Code:      code,
		Operation: operation,
		Message:   "generation gateway is not activated or out of credit",
		Cause:     cause,
	}
}

// IsGatewayError reports whether an error is the recognized
// billing/configuration failure class from the upstream gateway, as
// opposed to a transient or unknown failure.
func IsGatewayError(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Type == ErrTypeGateway
	}
	return false
}

// classifyAPIError separates billing/configuration rejections from
// everything else the upstream can throw.
func classifyAPIError(operation string, err error) *AIError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 402, 403:
			return NewGatewayError(operation, apiErr.HTTPStatusCode, err)
		}
	}
	return NewProviderError(operation, "upstream generation call failed", err)
}
