package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by operations that require a loaded session.
	ErrNotReady = errors.New("session not ready")
	// ErrSuperseded is returned when a later Load or Reset discarded the
	// result of the call.
	ErrSuperseded = errors.New("superseded by a later load or reset")
	// ErrInvalidReference matches any InvalidReferenceError.
	ErrInvalidReference = errors.New("invalid question reference")
	// ErrDuplicateQuestion is returned by Load when the source repeats an id.
	ErrDuplicateQuestion = errors.New("duplicate question id")
)

// InvalidReferenceError reports an operation on a question id that is not
// part of the loaded session.
type InvalidReferenceError struct {
	QuestionID string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("unknown question %q", e.QuestionID)
}

func (e *InvalidReferenceError) Is(target error) bool {
	return target == ErrInvalidReference
}
