package applications

import (
	"time"

	"onboarding-backend/internal/forms"
)

// FormResponse is the outward-facing representation of a form.
type FormResponse struct {
	Key         forms.FormKey  `json:"formKey"`
	Title       string         `json:"title,omitempty"`
	Status      forms.Status   `json:"status"`
	Data        map[string]any `json:"data"`
	StepPath    string         `json:"stepPath,omitempty"`
	SubmittedAt *time.Time     `json:"submittedAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// ApplicationResponse is the get-application payload.
type ApplicationResponse struct {
	ApplicationID  string                         `json:"applicationId"`
	Status         string                         `json:"status"`
	Forms          map[forms.FormKey]FormResponse `json:"forms"`
	CompletedForms []forms.FormKey                `json:"completedForms"`
	Progress       forms.Progress                 `json:"progress"`
	UpdatedAt      time.Time                      `json:"updatedAt"`
}

// SaveFormResponse is returned after a form save.
type SaveFormResponse struct {
	Form              FormResponse   `json:"form"`
	ApplicationStatus string         `json:"applicationStatus"`
	Progress          forms.Progress `json:"progress"`
	NextPath          string         `json:"nextPath"`
	PreviousPath      string         `json:"previousPath"`
}

type saveFormRequest struct {
	Status string         `json:"status"`
	Data   map[string]any `json:"data"`
}

func toFormResponse(rec FormRecord) FormResponse {
	resp := FormResponse{
		Key:         rec.Key,
		Status:      rec.Status,
		Data:        rec.Data,
		SubmittedAt: rec.SubmittedAt,
	}
	if resp.Data == nil {
		resp.Data = map[string]any{}
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		resp.UpdatedAt = &t
	}
	if def, ok := forms.Lookup(rec.Key); ok {
		resp.Title = def.Title
		resp.StepPath = def.StepPath()
	}
	return resp
}

func toApplicationResponse(app Application) ApplicationResponse {
	out := ApplicationResponse{
		ApplicationID:  app.ID,
		Status:         app.Status,
		Forms:          make(map[forms.FormKey]FormResponse, len(app.Forms)),
		CompletedForms: app.CompletedKeys(),
		Progress:       app.Progress(),
		UpdatedAt:      app.UpdatedAt,
	}
	for key, rec := range app.Forms {
		out.Forms[key] = toFormResponse(rec)
	}
	return out
}
