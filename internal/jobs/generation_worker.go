package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
)

const (
	DefaultJobTimeout = 30 * time.Minute

	finishTimeout = 10 * time.Second
)

// GenerationJobQueue hands out queued jobs and records their outcome.
type GenerationJobQueue interface {
	ClaimQueued(ctx context.Context, limit int) ([]*domain.GenerationJob, error)
	Finish(ctx context.Context, id string, status domain.GenerationJobStatus, results []domain.SubjectResult, errMsg string) error
}

// SubjectRunner runs the generate-and-publish task for a list of subjects.
type SubjectRunner interface {
	Run(ctx context.Context, subjects []string, topic string, count int) []domain.SubjectResult
}

// GenerationWorker runs queued generation jobs one at a time.
type GenerationWorker struct {
	queue      GenerationJobQueue
	runner     SubjectRunner
	jobTimeout time.Duration
	metrics    *metrics.Metrics
}

func NewGenerationWorker(queue GenerationJobQueue, runner SubjectRunner, jobTimeout time.Duration, m *metrics.Metrics) *GenerationWorker {
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &GenerationWorker{queue: queue, runner: runner, jobTimeout: jobTimeout, metrics: m}
}

// ProcessJobs drains the queue, claiming one job at a time.
func (w *GenerationWorker) ProcessJobs(ctx context.Context) error {
	for ctx.Err() == nil {
		claimed, err := w.queue.ClaimQueued(ctx, 1)
		if err != nil {
			return fmt.Errorf("failed to claim generation jobs: %w", err)
		}
		if len(claimed) == 0 {
			return nil
		}
		if err := w.processJob(ctx, claimed[0]); err != nil {
			log.Printf("Error processing job %s: %v", claimed[0].ID, err)
		}
	}
	return nil
}

func (w *GenerationWorker) processJob(ctx context.Context, job *domain.GenerationJob) error {
	log.Printf("Processing generation job %s (%s) for %s on %q",
		job.ID, job.Trigger, strings.Join(job.Subjects, ", "), job.Topic)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	jobCtx, span := telemetry.StartJob(jobCtx, "generation.job", telemetry.SpanAttributes{
		JobID:     job.ID,
		Topic:     job.Topic,
		Operation: "run_job",
	})
	defer span.End()

	results := w.runner.Run(jobCtx, job.Subjects, job.Topic, job.Count)
	status, errMsg := summarize(results)
	if status == domain.GenerationJobStatusFailed {
		span.SetError(errors.New(errMsg))
	}

	// record the outcome even when shutdown cancelled the job
	finishCtx, finishCancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer finishCancel()
	if err := w.queue.Finish(finishCtx, job.ID, status, results, errMsg); err != nil {
		return fmt.Errorf("failed to record job result: %w", err)
	}

	w.metrics.JobFinished(string(status))
	log.Printf("Job %s %s", job.ID, status)
	return nil
}

// summarize marks a job failed only when no subject was published.
func summarize(results []domain.SubjectResult) (domain.GenerationJobStatus, string) {
	var failed []string
	for _, r := range results {
		if !r.Succeeded() {
			failed = append(failed, r.Subject)
		}
	}
	if len(failed) == 0 {
		return domain.GenerationJobStatusCompleted, ""
	}
	msg := fmt.Sprintf("%d of %d subjects failed: %s", len(failed), len(results), strings.Join(failed, ", "))
	if len(failed) == len(results) {
		return domain.GenerationJobStatusFailed, msg
	}
	return domain.GenerationJobStatusCompleted, msg
}
