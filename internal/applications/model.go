package applications

import (
	"time"

	"onboarding-backend/internal/forms"
)

// Application statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Application aggregates one applicant's onboarding forms.
type Application struct {
	ID             string
	UserID         string
	Status         string
	Forms          map[forms.FormKey]FormRecord
	CompletedForms map[forms.FormKey]struct{}
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FormRecord is the saved state of one form.
type FormRecord struct {
	ApplicationID string
	Key           forms.FormKey
	Status        forms.Status
	Data          map[string]any
	SubmittedAt   *time.Time
	UpdatedAt     time.Time
}

// Progress computes completion from the stored forms and completed set.
func (a Application) Progress() forms.Progress {
	states := make(map[forms.FormKey]forms.FormState, len(a.Forms))
	for key, rec := range a.Forms {
		states[key] = forms.FormState{Status: rec.Status}
	}
	return forms.ComputeProgress(states, a.CompletedForms)
}

// CompletedKeys returns the explicit completed set in canonical key order.
func (a Application) CompletedKeys() []forms.FormKey {
	out := make([]forms.FormKey, 0, len(a.CompletedForms))
	for _, key := range forms.FormKeys() {
		if _, ok := a.CompletedForms[key]; ok {
			out = append(out, key)
		}
	}
	return out
}

func (a Application) clone() Application {
	out := a
	out.Forms = make(map[forms.FormKey]FormRecord, len(a.Forms))
	for k, v := range a.Forms {
		out.Forms[k] = v.clone()
	}
	out.CompletedForms = make(map[forms.FormKey]struct{}, len(a.CompletedForms))
	for k := range a.CompletedForms {
		out.CompletedForms[k] = struct{}{}
	}
	return out
}

func (r FormRecord) clone() FormRecord {
	out := r
	if r.Data != nil {
		out.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			out.Data[k] = v
		}
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		out.SubmittedAt = &t
	}
	return out
}
