package mcp

import (
	"errors"
	"fmt"

	"github.com/labspace/labnav/internal/domain/journal"
	"github.com/labspace/labnav/internal/domain/navigation"
	"github.com/labspace/labnav/internal/domain/submission"
)

var (
	// ErrUnknownMethod indicates a method name the handler does not serve.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrInvalidParams indicates parameters that could not be decoded.
	ErrInvalidParams = errors.New("invalid params")
)

// Error codes reported in APIError.Code.
const (
	CodeInvalidActivityID  = "INVALID_ACTIVITY_ID"
	CodeSubmissionInFlight = "SUBMISSION_IN_FLIGHT"
	CodeNoBackup           = "NO_BACKUP"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeInvalidParams      = "INVALID_PARAMS"
	CodeUnknownMethod      = "UNKNOWN_METHOD"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to API error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, navigation.ErrInvalidActivityID), errors.Is(err, submission.ErrInvalidActivityID):
		return &APIError{Code: CodeInvalidActivityID, Message: "activity id is required", RecoveryHint: "Pass activity_id; list_activities shows known ids"}
	case errors.Is(err, submission.ErrSubmissionInFlight):
		return &APIError{Code: CodeSubmissionInFlight, Message: "a submission for this activity is already running", RecoveryHint: "Wait for it to finish, then check get_backup"}
	case errors.Is(err, submission.ErrNoBackup):
		return &APIError{Code: CodeNoBackup, Message: "no saved code for this activity", RecoveryHint: "Submit with submit_code instead"}
	case errors.Is(err, journal.ErrInvalidInput):
		return &APIError{Code: CodeInvalidInput, Message: "invalid journal query"}
	case errors.Is(err, ErrInvalidParams):
		return &APIError{Code: CodeInvalidParams, Message: err.Error(), RecoveryHint: "Check parameter names and types"}
	case errors.Is(err, ErrUnknownMethod):
		return &APIError{Code: CodeUnknownMethod, Message: err.Error()}
	default:
		return nil
	}
}
