package errors

import (
	"github.com/cockroachdb/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse builds the wire representation of an error, surfacing the
// hint as the display message when one was attached.
func NewErrorResponse(err error) ErrorResponse {
	if err == nil {
		return ErrorResponse{Success: true}
	}

	display := err.Error()
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		display = hints[0]
	}

	return ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:       display,
			InternalError: err.Error(),
		},
	}
}
