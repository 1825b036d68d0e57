package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"onboarding-backend/internal/forms"
	"onboarding-backend/internal/queue"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/telemetry"
)

// Service contains the onboarding application business logic.
type Service struct {
	Repo Repo
	// Queue receives review messages for submitted forms. Optional.
	Queue queue.Client
	Now   func() time.Time
}

// SaveInput is one save of a form page.
type SaveInput struct {
	Status    string
	Data      map[string]any
	RequestID string
}

// SaveResult is what the page needs after a save: the stored form, the
// refreshed progress, and where to go next.
type SaveResult struct {
	Form         FormRecord
	Application  Application
	Progress     forms.Progress
	Previous     forms.Status
	NextPath     string
	PreviousPath string
}

// Current returns the applicant's application, creating it on first access.
func (s *Service) Current(ctx context.Context, userID string) (Application, error) {
	if err := s.ready(); err != nil {
		return Application{}, err
	}
	if strings.TrimSpace(userID) == "" {
		return Application{}, ErrInvalidInput
	}
	return s.Repo.GetOrCreateByUser(ctx, userID)
}

// GetForm returns the saved form, or an empty draft when it was never saved.
func (s *Service) GetForm(ctx context.Context, userID string, key forms.FormKey) (FormRecord, error) {
	if !forms.IsFormKey(key) {
		return FormRecord{}, ErrInvalidInput
	}
	app, err := s.Current(ctx, userID)
	if err != nil {
		return FormRecord{}, err
	}
	if rec, ok := app.Forms[key]; ok {
		return rec, nil
	}
	return FormRecord{
		ApplicationID: app.ID,
		Key:           key,
		Status:        forms.StatusDraft,
		Data:          map[string]any{},
	}, nil
}

// Progress computes the applicant's completion.
func (s *Service) Progress(ctx context.Context, userID string) (forms.Progress, error) {
	app, err := s.Current(ctx, userID)
	if err != nil {
		return forms.Progress{}, err
	}
	return app.Progress(), nil
}

// SaveForm persists one form. Drafts save as-is; completed-class statuses
// require the definition's fields and add the key to the completed set.
// Applicants can't set reviewer statuses or change a form under review.
func (s *Service) SaveForm(ctx context.Context, userID string, key forms.FormKey, in SaveInput) (SaveResult, error) {
	def, ok := forms.Lookup(key)
	if !ok {
		return SaveResult{}, ErrInvalidInput
	}
	status := forms.StatusDraft
	if raw := strings.TrimSpace(in.Status); raw != "" {
		parsed, ok := forms.ParseStatus(raw)
		if !ok {
			return SaveResult{}, ErrInvalidInput
		}
		status = parsed
	}

	app, err := s.Current(ctx, userID)
	if err != nil {
		return SaveResult{}, err
	}

	existing, saved := app.Forms[key]
	previous := forms.StatusDraft
	if saved {
		previous = existing.Status
	}
	if err := checkApplicantTransition(key, previous, status); err != nil {
		return SaveResult{}, err
	}

	if status.IsCompleted() {
		if missing := def.Validate(in.Data); len(missing) > 0 {
			metrics.IncFormValidationFailed()
			return SaveResult{}, &ValidationError{Key: key, Fields: missing}
		}
	}

	rec := FormRecord{
		ApplicationID: app.ID,
		Key:           key,
		Status:        status,
		Data:          in.Data,
		UpdatedAt:     s.now(),
	}
	if rec.Data == nil {
		rec.Data = map[string]any{}
	}
	switch {
	case status == forms.StatusSubmitted && previous != forms.StatusSubmitted:
		now := s.now()
		rec.SubmittedAt = &now
	case saved:
		rec.SubmittedAt = existing.SubmittedAt
	}

	if err := s.Repo.UpsertForm(ctx, rec); err != nil {
		if errors.Is(err, ErrFormLocked) {
			return SaveResult{}, s.lockedTransition(ctx, app.ID, key, status)
		}
		return SaveResult{}, err
	}
	if status.IsCompleted() {
		if err := s.Repo.MarkCompleted(ctx, app.ID, key); err != nil {
			return SaveResult{}, err
		}
	}

	app, err = s.Repo.GetByID(ctx, app.ID)
	if err != nil {
		return SaveResult{}, err
	}
	if err := s.syncStatus(ctx, &app); err != nil {
		return SaveResult{}, err
	}
	progress := app.Progress()

	metrics.IncFormSaves()
	metrics.ObserveProgress(progress.Percentage)
	telemetry.Info("form.saved", map[string]any{
		"application_id": app.ID,
		"form_key":       string(key),
		"from":           string(previous),
		"to":             string(status),
		"completed":      progress.CompletedCount,
		"percentage":     progress.Percentage,
	})

	if status == forms.StatusSubmitted && previous != forms.StatusSubmitted {
		metrics.IncFormSubmissions()
		s.enqueueReview(ctx, app.ID, key, in.RequestID)
	}

	stepPath := def.StepPath()
	if stored, ok := app.Forms[key]; ok {
		rec = stored
	}
	return SaveResult{
		Form:         rec,
		Application:  app,
		Progress:     progress,
		Previous:     previous,
		NextPath:     forms.NextPath(stepPath),
		PreviousPath: forms.PreviousPath(stepPath),
	}, nil
}

// BeginReview moves a submitted form to under_review. Forms already under
// review or approved are left alone.
func (s *Service) BeginReview(ctx context.Context, applicationID string, key forms.FormKey) error {
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(applicationID) == "" || !forms.IsFormKey(key) {
		return ErrInvalidInput
	}
	changed, err := s.Repo.TransitionForm(ctx, applicationID, key, forms.StatusSubmitted, forms.StatusUnderReview)
	if err != nil {
		return err
	}
	if changed {
		telemetry.Info("form.review_started", map[string]any{
			"application_id": applicationID,
			"form_key":       string(key),
		})
		return nil
	}

	app, err := s.Repo.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	rec, ok := app.Forms[key]
	if !ok {
		return ErrNotFound
	}
	switch rec.Status {
	case forms.StatusUnderReview, forms.StatusApproved:
		return nil
	default:
		return &TransitionError{Key: key, From: rec.Status, To: forms.StatusUnderReview}
	}
}

func (s *Service) syncStatus(ctx context.Context, app *Application) error {
	want := StatusInProgress
	if app.Progress().Percentage == 100 {
		want = StatusCompleted
	}
	if app.Status == want {
		return nil
	}
	if err := s.Repo.UpdateStatus(ctx, app.ID, want); err != nil {
		return err
	}
	telemetry.Info("application.status_changed", map[string]any{
		"application_id": app.ID,
		"from":           app.Status,
		"to":             want,
	})
	app.Status = want
	return nil
}

func (s *Service) enqueueReview(ctx context.Context, applicationID string, key forms.FormKey, requestID string) {
	if s.Queue == nil {
		return
	}
	msg := queue.Message{
		ApplicationID: applicationID,
		FormKey:       string(key),
		RequestID:     requestID,
		EnqueuedAt:    s.now().Format(time.RFC3339),
		Version:       queue.MessageVersion,
	}
	if err := s.Queue.Send(ctx, msg); err != nil {
		metrics.IncReviewEnqueueFailed()
		telemetry.Error("review.enqueue_failed", map[string]any{
			"application_id": applicationID,
			"form_key":       string(key),
			"request_id":     requestID,
			"error":          err.Error(),
		})
		return
	}
	metrics.IncReviewEnqueued()
}

// checkApplicantTransition rejects reviewer-owned statuses and any edit of a
// form that a reviewer already holds.
func checkApplicantTransition(key forms.FormKey, from, to forms.Status) error {
	if reviewerHeld(to) || reviewerHeld(from) {
		return &TransitionError{Key: key, From: from, To: to}
	}
	return nil
}

// lockedTransition reports a save that lost a race with the reviewer, using
// the stored status as the from side when it can be read.
func (s *Service) lockedTransition(ctx context.Context, applicationID string, key forms.FormKey, to forms.Status) error {
	from := forms.StatusUnderReview
	if app, err := s.Repo.GetByID(ctx, applicationID); err == nil {
		if rec, ok := app.Forms[key]; ok {
			from = rec.Status
		}
	}
	telemetry.Info("form.save_rejected", map[string]any{
		"application_id": applicationID,
		"form_key":       string(key),
		"from":           string(from),
		"to":             string(to),
	})
	return &TransitionError{Key: key, From: from, To: to}
}

func (s *Service) ready() error {
	if s == nil || s.Repo == nil {
		return errors.New("applications service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
