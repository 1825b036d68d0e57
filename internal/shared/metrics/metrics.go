package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	formSavesTotal        atomic.Uint64
	formValidationFailed  atomic.Uint64
	formSubmissionsTotal  atomic.Uint64
	reviewEnqueuedTotal   atomic.Uint64
	reviewEnqueueFailed   atomic.Uint64
	reviewJobsReceived    atomic.Uint64
	reviewJobsCompleted   atomic.Uint64
	reviewJobsFailed      atomic.Uint64
	reviewJobsUnrecovered atomic.Uint64

	progressPercentage = newHistogram([]float64{0, 10, 25, 50, 75, 90, 100})
)

func IncFormSaves() { formSavesTotal.Add(1) }
func IncFormValidationFailed() { formValidationFailed.Add(1) }
func IncFormSubmissions() { formSubmissionsTotal.Add(1) }
func IncReviewEnqueued() { reviewEnqueuedTotal.Add(1) }
func IncReviewEnqueueFailed() { reviewEnqueueFailed.Add(1) }
func IncReviewJobsReceived() { reviewJobsReceived.Add(1) }
func IncReviewJobsCompleted() { reviewJobsCompleted.Add(1) }
func IncReviewJobsFailed() { reviewJobsFailed.Add(1) }
func IncReviewJobsUnrecoverable() { reviewJobsUnrecovered.Add(1) }

// ObserveProgress records an applicant's completion percentage after a save.
func ObserveProgress(percentage int) {
	if percentage < 0 {
		percentage = 0
	}
	progressPercentage.Observe(float64(percentage))
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "onboarding_form_saves_total", "Total form saves accepted", formSavesTotal.Load())
	writeCounter(&buf, "onboarding_form_validation_failed_total", "Total form saves rejected by required-field checks", formValidationFailed.Load())
	writeCounter(&buf, "onboarding_form_submissions_total", "Total forms moved to submitted", formSubmissionsTotal.Load())
	writeCounter(&buf, "onboarding_review_enqueued_total", "Total review messages enqueued", reviewEnqueuedTotal.Load())
	writeCounter(&buf, "onboarding_review_enqueue_failed_total", "Total review messages that failed to enqueue", reviewEnqueueFailed.Load())
	writeCounter(&buf, "onboarding_review_jobs_received_total", "Total review jobs received by the worker", reviewJobsReceived.Load())
	writeCounter(&buf, "onboarding_review_jobs_completed_total", "Total review jobs completed", reviewJobsCompleted.Load())
	writeCounter(&buf, "onboarding_review_jobs_failed_total", "Total review jobs failed", reviewJobsFailed.Load())
	writeCounter(&buf, "onboarding_review_jobs_unrecoverable_total", "Total review jobs deleted as unrecoverable", reviewJobsUnrecovered.Load())
	writeHistogram(&buf, "onboarding_progress_percentage", "Applicant completion percentage observed after saves", progressPercentage.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe adds value to the first bucket whose bound contains it; Render
// accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
