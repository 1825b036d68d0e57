package applications

import (
	"context"

	"onboarding-backend/internal/forms"
)

// Repo defines persistence operations for applications and their forms.
type Repo interface {
	// GetOrCreateByUser returns the user's application, creating an empty
	// in-progress one on first access.
	GetOrCreateByUser(ctx context.Context, userID string) (Application, error)
	GetByID(ctx context.Context, applicationID string) (Application, error)
	// UpsertForm writes a form unless the stored one is under review or
	// approved, in which case it returns ErrFormLocked and changes nothing.
	UpsertForm(ctx context.Context, record FormRecord) error
	// TransitionForm moves a form from one status to another only if it is
	// still in the from status. It reports whether a row changed.
	TransitionForm(ctx context.Context, applicationID string, key forms.FormKey, from, to forms.Status) (bool, error)
	MarkCompleted(ctx context.Context, applicationID string, key forms.FormKey) error
	UpdateStatus(ctx context.Context, applicationID, status string) error
}
