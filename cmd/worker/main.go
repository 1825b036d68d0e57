package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"onboarding-backend/internal/bootstrap"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/telemetry"
	"onboarding-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 300
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

// settings controls the receive loop. Values come from ONB_* env vars.
type settings struct {
	queueURL        string
	visibility      int32
	concurrency     int
	waitSeconds     int32
	batchSize       int32
	shutdownTimeout time.Duration
}

func loadSettings(queueURL string) settings {
	return settings{
		queueURL:        queueURL,
		visibility:      int32(envInt("ONB_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)),
		concurrency:     max(1, envInt("ONB_WORKER_CONCURRENCY", defaultWorkerConcurrency)),
		waitSeconds:     20,
		batchSize:       10,
		shutdownTimeout: time.Duration(envInt("ONB_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second,
	}
}

func main() {
	cfg := config.Load()
	if cfg.ReviewQueueURL == "" {
		log.Fatal("ONB_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	p := &poller{
		client:   sqs.NewFromConfig(awsCfg),
		reviewer: app.ApplicationService,
		settings: loadSettings(cfg.ReviewQueueURL),
	}
	p.run(ctx)
}

// poller long-polls the review queue and hands each message to a bounded
// pool of goroutines.
type poller struct {
	client   sqsAPI
	reviewer workerproc.Reviewer
	settings settings
}

func (p *poller) run(ctx context.Context) {
	s := p.settings
	sem := make(chan struct{}, max(1, s.concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":       s.queueURL,
		"concurrency": s.concurrency,
		"visibility":  s.visibility,
	})

	for ctx.Err() == nil {
		batch, ok := p.receive(ctx)
		if !ok {
			break
		}
		if !p.dispatch(ctx, batch, sem, &wg) {
			break
		}
	}

	p.drain(&wg)
}

// receive returns false once the context is done.
func (p *poller) receive(ctx context.Context) ([]sqstypes.Message, bool) {
	s := p.settings
	resp, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.batchSize,
		WaitTimeSeconds:     s.waitSeconds,
		VisibilityTimeout:   s.visibility,
		AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, false
		}
		telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
		return nil, true
	}
	return resp.Messages, true
}

func (p *poller) dispatch(ctx context.Context, batch []sqstypes.Message, sem chan struct{}, wg *sync.WaitGroup) bool {
	for _, msg := range batch {
		select {
		case <-ctx.Done():
			return false
		case sem <- struct{}{}:
		}
		metrics.IncReviewJobsReceived()
		wg.Add(1)
		go func(m sqstypes.Message) {
			defer wg.Done()
			defer func() { <-sem }()
			handleMessage(ctx, p.client, p.settings.queueURL, p.reviewer, m)
		}(msg)
	}
	return true
}

func (p *poller) drain(wg *sync.WaitGroup) {
	timeout := p.settings.shutdownTimeout
	telemetry.Info("worker.shutdown", map[string]any{"timeout": timeout.String()})
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		telemetry.Error("worker.shutdown_timeout", map[string]any{"timeout": timeout.String()})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func handleMessage(ctx context.Context, client sqsAPI, queueURL string, reviewer workerproc.Reviewer, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, "", "", "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		var missing workerproc.ErrMissingFields
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.review.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, fields) {
			metrics.IncReviewJobsUnrecoverable()
		}
		return
	}

	fields := baseFields(msg, decoded.ApplicationID, decoded.FormKey, decoded.RequestID)
	telemetry.Info("worker.review.received", fields)

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctxWithParsed, reviewer, body); err != nil {
		failed := baseFields(msg, decoded.ApplicationID, decoded.FormKey, decoded.RequestID)
		failed["error"] = err.Error()
		if workerproc.Unrecoverable(err) {
			telemetry.Error("worker.review.unrecoverable", failed)
			if deleteMessage(ctx, client, queueURL, msg, failed) {
				metrics.IncReviewJobsUnrecoverable()
			}
			return
		}
		telemetry.Error("worker.review.failed", failed)
		metrics.IncReviewJobsFailed()
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, fields) {
		telemetry.Info("worker.review.completed", fields)
		metrics.IncReviewJobsCompleted()
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.review.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.review.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = msg
	return out
}

func baseFields(msg sqstypes.Message, applicationID, formKey, requestID string) map[string]any {
	fields := map[string]any{
		"application_id": applicationID,
		"form_key":       formKey,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
