package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
)

// DefaultSubjects are the subjects of the weekly task.
var DefaultSubjects = []string{"Physics", "Chemistry", "Mathematics"}

const DefaultTopic = "General Revision"

// Generator produces a validated contest.
type Generator interface {
	Generate(ctx context.Context, subject, topic string, count int) (*domain.Contest, error)
}

// ContestPublisher pushes a contest to the backend.
type ContestPublisher interface {
	Publish(ctx context.Context, contest *domain.Contest) (*PublishResult, error)
}

// Pipeline generates and publishes one contest per subject.
type Pipeline struct {
	generator Generator
	publisher ContestPublisher
	metrics   *metrics.Metrics
}

func NewPipeline(generator Generator, publisher ContestPublisher, m *metrics.Metrics) *Pipeline {
	return &Pipeline{generator: generator, publisher: publisher, metrics: m}
}

// RunSubject generates and publishes a single contest. Failures are reported
// in the result rather than returned.
func (p *Pipeline) RunSubject(ctx context.Context, subject, topic string, count int) (result domain.SubjectResult) {
	result.Subject = subject

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic: %v", r)
		}
		if result.Error != "" {
			p.metrics.SubjectFailed(subject)
			log.Printf("pipeline: %s failed: %s", subject, result.Error)
		}
	}()

	contest, err := p.generator.Generate(ctx, subject, topic, count)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		result.Error = err.Error()
		return result
	}
	result.ContestTitle = contest.Title

	published, err := p.publisher.Publish(ctx, contest)
	if err != nil {
		var pubErr *PublishError
		if errors.As(err, &pubErr) {
			result.ContestNumber = pubErr.ContestNumber
			result.RemoteContestID = pubErr.ContestID
			result.QuestionsAdded = pubErr.QuestionsAdded
		}
		telemetry.CaptureError(ctx, err)
		result.Error = err.Error()
		return result
	}

	result.ContestNumber = published.ContestNumber
	result.RemoteContestID = published.ContestID
	result.QuestionsAdded = published.QuestionsAdded
	log.Printf("pipeline: published %s contest %d (%s) with %d questions",
		subject, published.ContestNumber, published.ContestID, published.QuestionsAdded)
	return result
}

// Run processes subjects in order. One subject failing never stops the rest.
func (p *Pipeline) Run(ctx context.Context, subjects []string, topic string, count int) []domain.SubjectResult {
	results := make([]domain.SubjectResult, 0, len(subjects))
	for _, subject := range subjects {
		if ctx.Err() != nil {
			results = append(results, domain.SubjectResult{Subject: subject, Error: ctx.Err().Error()})
			continue
		}
		results = append(results, p.RunSubject(ctx, subject, topic, count))
	}
	return results
}
