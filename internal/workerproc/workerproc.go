package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"onboarding-backend/internal/applications"
	"onboarding-backend/internal/forms"
	"onboarding-backend/internal/queue"
)

// Reviewer starts the review of a submitted form.
type Reviewer interface {
	BeginReview(ctx context.Context, applicationID string, key forms.FormKey) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingFields indicates a message without a usable application id or form key.
type ErrMissingFields struct {
	Meta      MessageMeta
	RequestID string
	Fields    []string
}

func (e ErrMissingFields) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ",")
}

// ErrProcess indicates the review step failed after successful parsing.
type ErrProcess struct {
	ApplicationID string
	FormKey       string
	RequestID     string
	Err           error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "begin review"
	}
	return "begin review: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}

	var missing []string
	if strings.TrimSpace(msg.ApplicationID) == "" {
		missing = append(missing, "applicationId")
	}
	if key, ok := forms.ParseFormKey(msg.FormKey); ok {
		msg.FormKey = string(key)
	} else {
		missing = append(missing, "formKey")
	}
	if len(missing) > 0 {
		return msg, meta, ErrMissingFields{Meta: meta, RequestID: msg.RequestID, Fields: missing}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and starts the review for a message payload.
func HandleMessage(ctx context.Context, reviewer Reviewer, body string) error {
	if reviewer == nil {
		return errors.New("review service not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if err := reviewer.BeginReview(ctx, msg.ApplicationID, forms.FormKey(msg.FormKey)); err != nil {
		return ErrProcess{
			ApplicationID: msg.ApplicationID,
			FormKey:       msg.FormKey,
			RequestID:     msg.RequestID,
			Err:           err,
		}
	}
	return nil
}

// Unrecoverable reports whether redelivering the message can never succeed,
// so the worker should delete it instead of waiting for a retry.
func Unrecoverable(err error) bool {
	if err == nil {
		return false
	}
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingFields
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode), errors.As(err, &missing):
		return true
	case errors.Is(err, applications.ErrNotFound),
		errors.Is(err, applications.ErrInvalidInput),
		errors.Is(err, applications.ErrInvalidTransition):
		return true
	default:
		return false
	}
}
