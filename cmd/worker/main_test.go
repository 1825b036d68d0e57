package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"onboarding-backend/internal/applications"
	"onboarding-backend/internal/forms"
	"onboarding-backend/internal/queue"
)

type fakeSQS struct {
	deleted   []string
	deleteErr error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeReviewer struct {
	err error
}

func (f fakeReviewer) BeginReview(ctx context.Context, applicationID string, key forms.FormKey) error {
	_ = ctx
	_ = applicationID
	_ = key
	return f.err
}

func reviewMessage(t *testing.T, id, receipt string) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		ApplicationID: "app-" + id,
		FormKey:       string(forms.KeyW9Form),
		RequestID:     "req-" + id,
		Version:       queue.MessageVersion,
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m" + id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeReviewer{}, reviewMessage(t, "1", "r1"))

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
}

func TestWorkerDoesNotDeleteOnFailure(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeReviewer{err: errors.New("boom")}, reviewMessage(t, "2", "r2"))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnUnrecoverableFailure(t *testing.T) {
	client := &fakeSQS{}
	handleMessage(context.Background(), client, "queue", fakeReviewer{err: applications.ErrNotFound}, reviewMessage(t, "3", "r3"))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", fakeReviewer{}, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnEmptyBody(t *testing.T) {
	client := &fakeSQS{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m5"),
		ReceiptHandle: aws.String("r5"),
		Body:          aws.String(""),
	}

	handleMessage(context.Background(), client, "queue", fakeReviewer{}, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerSkipsDeleteWithoutReceipt(t *testing.T) {
	client := &fakeSQS{}
	msg := reviewMessage(t, "6", "")

	handleMessage(context.Background(), client, "queue", fakeReviewer{}, msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "x"}}); got != 0 {
		t.Fatalf("expected 0 for invalid count, got %d", got)
	}
}

type scriptedSQS struct {
	mu      sync.Mutex
	batches [][]sqstypes.Message
	calls   int
	cancel  context.CancelFunc
	deleted []string
}

func (s *scriptedSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = optFns
	s.mu.Lock()
	defer s.mu.Unlock()
	if params.VisibilityTimeout != 300 {
		return nil, errors.New("unexpected visibility timeout")
	}
	if s.calls >= len(s.batches) {
		s.cancel()
		return nil, context.Canceled
	}
	batch := s.batches[s.calls]
	s.calls++
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (s *scriptedSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestPollerProcessesBatchesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &scriptedSQS{
		cancel: cancel,
		batches: [][]sqstypes.Message{
			{reviewMessage(t, "1", "r1"), reviewMessage(t, "2", "r2")},
			{reviewMessage(t, "3", "r3")},
		},
	}
	p := &poller{
		client:   client,
		reviewer: fakeReviewer{},
		settings: settings{
			queueURL:        "queue",
			visibility:      300,
			concurrency:     2,
			waitSeconds:     0,
			batchSize:       10,
			shutdownTimeout: 5 * time.Second,
		},
	}
	p.run(ctx)

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.deleted) != 3 {
		t.Fatalf("expected 3 deletes, got %v", client.deleted)
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	t.Setenv("ONB_SQS_VISIBILITY_TIMEOUT_SECONDS", "")
	t.Setenv("ONB_WORKER_CONCURRENCY", "0")
	t.Setenv("ONB_SHUTDOWN_TIMEOUT_SECONDS", "bad")

	s := loadSettings("queue")
	if s.visibility != defaultVisibilitySeconds {
		t.Fatalf("expected default visibility, got %d", s.visibility)
	}
	if s.concurrency != 1 {
		t.Fatalf("expected concurrency floor of 1, got %d", s.concurrency)
	}
	if s.shutdownTimeout != defaultShutdownTimeoutSec*time.Second {
		t.Fatalf("expected default shutdown timeout, got %s", s.shutdownTimeout)
	}
}
