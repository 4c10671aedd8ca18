package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var errRefused = errors.New("model declined to answer")

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that does not
// conform to the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down, unreachable or
// timed out.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was truncated at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// ErrAuthentication indicates the credentials were rejected (401/403).
// Retrying cannot help.
type ErrAuthentication struct {
	Status int
	Err    error
}

func (e *ErrAuthentication) Error() string {
	return fmt.Sprintf("LLM authentication failed (%d): %v", e.Status, e.Err)
}

func (e *ErrAuthentication) Unwrap() error { return e.Err }

// ErrBadRequest indicates the provider refused the request shape (400).
type ErrBadRequest struct {
	Err error
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("LLM request rejected: %v", e.Err)
}

func (e *ErrBadRequest) Unwrap() error { return e.Err }

// Fatal reports whether err can never succeed on retry.
func Fatal(err error) bool {
	var auth *ErrAuthentication
	var bad *ErrBadRequest
	var maxTok *ErrMaxTokensExceeded
	return errors.As(err, &auth) || errors.As(err, &bad) || errors.As(err, &maxTok)
}

// mapStatus turns an HTTP status reported by a provider SDK into one of
// the typed errors above. Unknown statuses count as unavailability.
func mapStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ErrAuthentication{Status: status, Err: err}
	case status == http.StatusBadRequest:
		return &ErrBadRequest{Err: err}
	default:
		return &ErrProviderUnavailable{Err: err}
	}
}
