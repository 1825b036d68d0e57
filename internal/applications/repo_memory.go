package applications

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"onboarding-backend/internal/forms"
)

// MemoryRepo stores applications in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]*Application
	byUser map[string]string
	now    func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]*Application),
		byUser: make(map[string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepo) GetOrCreateByUser(ctx context.Context, userID string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byUser[userID]; ok {
		return r.byID[id].clone(), nil
	}
	now := r.now()
	app := &Application{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         StatusInProgress,
		Forms:          make(map[forms.FormKey]FormRecord),
		CompletedForms: make(map[forms.FormKey]struct{}),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.byID[app.ID] = app
	r.byUser[userID] = app.ID
	return app.clone(), nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, applicationID string) (Application, error) {
	if err := ctx.Err(); err != nil {
		return Application{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	app, ok := r.byID[applicationID]
	if !ok {
		return Application{}, ErrNotFound
	}
	return app.clone(), nil
}

func (r *MemoryRepo) UpsertForm(ctx context.Context, record FormRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.byID[record.ApplicationID]
	if !ok {
		return ErrNotFound
	}
	if current, ok := app.Forms[record.Key]; ok && reviewerHeld(current.Status) {
		return ErrFormLocked
	}
	record = record.clone()
	record.UpdatedAt = r.now()
	app.Forms[record.Key] = record
	app.UpdatedAt = record.UpdatedAt
	return nil
}

func (r *MemoryRepo) TransitionForm(ctx context.Context, applicationID string, key forms.FormKey, from, to forms.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.byID[applicationID]
	if !ok {
		return false, ErrNotFound
	}
	rec, ok := app.Forms[key]
	if !ok || rec.Status != from {
		return false, nil
	}
	rec.Status = to
	rec.UpdatedAt = r.now()
	app.Forms[key] = rec
	app.UpdatedAt = rec.UpdatedAt
	return true, nil
}

func (r *MemoryRepo) MarkCompleted(ctx context.Context, applicationID string, key forms.FormKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.byID[applicationID]
	if !ok {
		return ErrNotFound
	}
	app.CompletedForms[key] = struct{}{}
	return nil
}

func (r *MemoryRepo) UpdateStatus(ctx context.Context, applicationID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.byID[applicationID]
	if !ok {
		return ErrNotFound
	}
	app.Status = status
	app.UpdatedAt = r.now()
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
