package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"onboarding-backend/internal/forms"
)

// PGRepo persists applications in Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) GetOrCreateByUser(ctx context.Context, userID string) (Application, error) {
	const insert = `
INSERT INTO applications (id, user_id, status, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.DB.ExecContext(ctx, insert, uuid.NewString(), userID, StatusInProgress); err != nil {
		return Application{}, fmt.Errorf("create application: %w", err)
	}

	const query = `
SELECT id, user_id, status, created_at, updated_at
FROM applications
WHERE user_id = $1
LIMIT 1`
	return r.load(ctx, query, userID)
}

func (r *PGRepo) GetByID(ctx context.Context, applicationID string) (Application, error) {
	const query = `
SELECT id, user_id, status, created_at, updated_at
FROM applications
WHERE id = $1
LIMIT 1`
	return r.load(ctx, query, applicationID)
}

func (r *PGRepo) load(ctx context.Context, query string, arg string) (Application, error) {
	var app Application
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&app.ID,
		&app.UserID,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}

	app.Forms, err = r.loadForms(ctx, app.ID)
	if err != nil {
		return Application{}, err
	}
	app.CompletedForms, err = r.loadCompleted(ctx, app.ID)
	if err != nil {
		return Application{}, err
	}
	return app, nil
}

func (r *PGRepo) loadForms(ctx context.Context, applicationID string) (map[forms.FormKey]FormRecord, error) {
	const query = `
SELECT form_key, status, data, submitted_at, updated_at
FROM application_forms
WHERE application_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load forms: %w", err)
	}
	defer rows.Close()

	out := make(map[forms.FormKey]FormRecord)
	for rows.Next() {
		var (
			rec         FormRecord
			key, status string
			raw         []byte
			submittedAt sql.NullTime
		)
		if err := rows.Scan(&key, &status, &raw, &submittedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		rec.ApplicationID = applicationID
		rec.Key = forms.FormKey(key)
		rec.Status = forms.Status(status)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Data); err != nil {
				return nil, fmt.Errorf("decode form %s: %w", key, err)
			}
		}
		if submittedAt.Valid {
			t := submittedAt.Time
			rec.SubmittedAt = &t
		}
		out[rec.Key] = rec
	}
	return out, rows.Err()
}

func (r *PGRepo) loadCompleted(ctx context.Context, applicationID string) (map[forms.FormKey]struct{}, error) {
	const query = `
SELECT form_key
FROM application_completed_forms
WHERE application_id = $1`
	rows, err := r.DB.QueryContext(ctx, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("load completed forms: %w", err)
	}
	defer rows.Close()

	out := make(map[forms.FormKey]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan completed form: %w", err)
		}
		out[forms.FormKey(key)] = struct{}{}
	}
	return out, rows.Err()
}

func (r *PGRepo) UpsertForm(ctx context.Context, record FormRecord) error {
	data := record.Data
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode form %s: %w", record.Key, err)
	}
	const query = `
INSERT INTO application_forms (application_id, form_key, status, data, submitted_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (application_id, form_key) DO UPDATE SET
  status = EXCLUDED.status,
  data = EXCLUDED.data,
  submitted_at = EXCLUDED.submitted_at,
  updated_at = now()
WHERE application_forms.status NOT IN ($6, $7)`
	res, err := r.DB.ExecContext(ctx, query,
		record.ApplicationID,
		string(record.Key),
		string(record.Status),
		payload,
		nullableTime(record.SubmittedAt),
		string(forms.StatusUnderReview),
		string(forms.StatusApproved),
	)
	if err != nil {
		return fmt.Errorf("upsert form %s: %w", record.Key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFormLocked
	}
	return nil
}

func (r *PGRepo) TransitionForm(ctx context.Context, applicationID string, key forms.FormKey, from, to forms.Status) (bool, error) {
	const query = `
UPDATE application_forms
SET status = $4, updated_at = now()
WHERE application_id = $1 AND form_key = $2 AND status = $3`
	res, err := r.DB.ExecContext(ctx, query, applicationID, string(key), string(from), string(to))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PGRepo) MarkCompleted(ctx context.Context, applicationID string, key forms.FormKey) error {
	const query = `
INSERT INTO application_completed_forms (application_id, form_key, completed_at)
VALUES ($1, $2, now())
ON CONFLICT (application_id, form_key) DO NOTHING`
	_, err := r.DB.ExecContext(ctx, query, applicationID, string(key))
	return err
}

func (r *PGRepo) UpdateStatus(ctx context.Context, applicationID, status string) error {
	const query = `
UPDATE applications
SET status = $2, updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, applicationID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)
