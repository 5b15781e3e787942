package api

import (
	"errors"
	"fmt"

	"github.com/pulsegram/feedengine/internal/feed"
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

// classifyError maps engine errors to JSON-RPC error codes. Bad cursors are
// caller mistakes; an unavailable feed is a server-side failure the caller
// must be able to tell apart from an empty result.
func classifyError(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message
	}
	switch {
	case errors.Is(err, feed.ErrBadCursor), errors.Is(err, feed.ErrCursorPoolMismatch):
		return ErrInvalidParams, "Invalid cursor"
	case errors.Is(err, feed.ErrFeedUnavailable):
		return ErrServerError, "Feed unavailable"
	default:
		return ErrServerError, "Server error"
	}
}
