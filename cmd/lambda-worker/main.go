package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"onboarding-backend/internal/bootstrap"
	"onboarding-backend/internal/shared/config"
	"onboarding-backend/internal/shared/metrics"
	"onboarding-backend/internal/shared/telemetry"
	"onboarding-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	reviewer workerproc.Reviewer
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	reviewer = built.ApplicationService
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr.Error()})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, reviewer, event), nil
}

// processBatch reports only retryable records as failures; unrecoverable
// records are dropped so they don't loop back into the queue.
func processBatch(ctx context.Context, r workerproc.Reviewer, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncReviewJobsReceived()
		err := workerproc.HandleMessage(ctx, r, record.Body)
		switch {
		case err == nil:
			metrics.IncReviewJobsCompleted()
		case workerproc.Unrecoverable(err):
			metrics.IncReviewJobsUnrecoverable()
			telemetry.Error("lambda_worker.review.unrecoverable", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
		default:
			metrics.IncReviewJobsFailed()
			telemetry.Error("lambda_worker.review.failed", map[string]any{
				"sqs_message_id": record.MessageId,
				"error":          err.Error(),
			})
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
