package generation

import (
	"errors"
	"fmt"

	"github.com/abhisek/eikengen/internal/llm"
)

// TransportError is a classified content generator failure.
// Retryable errors consume an attempt; the rest abort the run.
type TransportError struct {
	Retryable bool

	// InvalidOutput marks a response that arrived but was unusable.
	InvalidOutput bool

	Err error
}

func (e *TransportError) Error() string {
	kind := "fatal"
	if e.Retryable {
		kind = "retryable"
	}
	return fmt.Sprintf("generator %s error: %v", kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// classify maps a generator error onto TransportError. Timeouts, outages,
// rate limits and unknown errors are retryable; rejected credentials and
// malformed requests are not.
func classify(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	if llm.Fatal(err) {
		return &TransportError{Err: err}
	}
	var inv *llm.ErrInvalidResponse
	if errors.As(err, &inv) {
		return &TransportError{Retryable: true, InvalidOutput: true, Err: err}
	}
	return &TransportError{Retryable: true, Err: err}
}
