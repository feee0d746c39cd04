// File: internal/services/turn/errors.go
package turn

import (
	"fmt"
	"net/http"
)

// Code is the machine-readable error category exposed on the wire.
type Code string

const (
	CodeBadRequest    Code = "bad_request"
	CodeUnauthorized  Code = "unauthorized"
	CodeForbidden     Code = "forbidden"
	CodeNotFound      Code = "not_found"
	CodeRateLimited   Code = "rate_limited"
	CodeUpstream      Code = "upstream_unavailable"
	CodeMisconfigured Code = "misconfigured"

	// Terminal-frame codes for failures inside an open stream.
	CodeActivateGateway Code = "bad_request:activate_gateway"
	CodeOffline         Code = "offline"
)

// Fixed user-facing text for terminal error frames. The client never
// sees raw upstream errors.
const (
	MsgOffline         = "The assistant is temporarily offline. Please try again."
	MsgActivateGateway = "The generation gateway needs to be activated before chatting."
)

type TurnError struct {
	Code      Code
	Operation string
	Message   string
	Cause     error
}

func (e *TurnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("turn %s error in %s: %s (caused by: %v)",
			e.Code, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("turn %s error in %s: %s", e.Code, e.Operation, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps each categorical code to its stable HTTP status.
func (e *TurnError) HTTPStatus() int {
	switch e.Code {
	case CodeBadRequest, CodeActivateGateway:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream, CodeOffline:
		return http.StatusBadGateway
	case CodeMisconfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func NewBadRequestError(operation, msg string) *TurnError {
	return &TurnError{Code: CodeBadRequest, Operation: operation, Message: msg}
}

func NewUnauthorizedError(operation string) *TurnError {
	return &TurnError{Code: CodeUnauthorized, Operation: operation, Message: "authentication required"}
}

func NewForbiddenError(operation string) *TurnError {
	return &TurnError{Code: CodeForbidden, Operation: operation, Message: "chat belongs to another user"}
}

func NewNotFoundError(operation, msg string) *TurnError {
	return &TurnError{Code: CodeNotFound, Operation: operation, Message: msg}
}

func NewRateLimitedError(operation string, limit int) *TurnError {
	return &TurnError{
		Code:      CodeRateLimited,
		Operation: operation,
		Message:   fmt.Sprintf("daily message limit of %d reached", limit),
	}
}
