package selection

import (
	"errors"
	"fmt"
)

// ErrSelectionExhausted is matched by errors.Is when every stage of the
// cascade came up empty.
var ErrSelectionExhausted = errors.New("topic selection exhausted")

// ExhaustedError reports which request exhausted the cascade.
type ExhaustedError struct {
	Request Request
	Stages  int
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("topic selection exhausted for grade %s %s after %d stages",
		e.Request.Grade, e.Request.QuestionType, e.Stages)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrSelectionExhausted }

// PersistenceWarning wraps a failed best-effort store operation. Callers
// log it and carry on.
type PersistenceWarning struct {
	Op  string
	Err error
}

func (e *PersistenceWarning) Error() string {
	return fmt.Sprintf("persistence warning (%s): %v", e.Op, e.Err)
}

func (e *PersistenceWarning) Unwrap() error { return e.Err }
