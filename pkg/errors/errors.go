package errors

import (
	"errors"
	"fmt"
	"time"

	"igfollowers/pkg/models"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeDenied      ErrorType = "denied"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type       ErrorType
	Message    string
	Code       int
	RetryAfter time.Duration // from the Retry-After header, when present
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// ErrUnknownIdentifier is returned by the checkpoint store when a result is
// written for a username that was never seeded. It indicates a programming
// or data error, fatal to the call but not to the run.
var ErrUnknownIdentifier = errors.New("unknown identifier: never seeded")

// PersistenceError wraps a failed checkpoint store write or read. The prior
// state is intact; the caller may retry the operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("checkpoint %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AbortError halts an entire lookup run. It carries the fatal signal kind
// and the username being processed when it fired so the operator can take
// action and resume. Automatic recovery is never attempted.
type AbortError struct {
	Kind     models.FatalKind
	Username string
	Err      error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("run aborted (%s) while looking up %q", e.Kind, e.Username)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + "; " + abortAdvice(e.Kind)
}

func (e *AbortError) Unwrap() error { return e.Err }

func abortAdvice(kind models.FatalKind) string {
	switch kind {
	case models.FatalSessionInvalid:
		return "session expired; run 'igfollowers auth login' and resume"
	case models.FatalChallenge:
		return "challenge detected; complete it in a browser, re-login, then resume"
	case models.FatalHardDeny:
		return "suspicious HTTP denial; wait several hours before resuming"
	default:
		return "manual intervention required before resuming"
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeDenied, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500 // Retry all 5xx errors
	}
}
