package applications

import (
	"errors"
	"fmt"

	"onboarding-backend/internal/forms"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrFormLocked is returned by UpsertForm when the stored form is held by
	// a reviewer and may no longer be overwritten.
	ErrFormLocked = errors.New("form is under review")
)

func reviewerHeld(status forms.Status) bool {
	return status == forms.StatusUnderReview || status == forms.StatusApproved
}

// ValidationError lists the required fields missing from a form save.
type ValidationError struct {
	Key    forms.FormKey
	Fields []forms.FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %d required field(s) missing", e.Key, len(e.Fields))
}

// Is lets callers match with errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	Key  forms.FormKey
	From forms.Status
	To   forms.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Key, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
