package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/orbit"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
)

// ContestBackend is the remote contest API.
type ContestBackend interface {
	HasToken() bool
	ListContests(ctx context.Context) ([]orbit.RemoteContest, error)
	CreateContest(ctx context.Context, envelope *domain.ContestEnvelope) (string, error)
	AddProblem(ctx context.Context, contestID string, q *domain.Question) error
}

// PublishResult describes a contest that was fully published.
type PublishResult struct {
	ContestNumber  int64
	ContestID      string
	QuestionsAdded int
}

// PublishError reports how far a failed publish got. ContestID is empty when
// the contest itself was never created.
type PublishError struct {
	ContestNumber  int64
	ContestID      string
	QuestionsAdded int
	Err            error
}

func (e *PublishError) Error() string {
	if e.ContestID == "" {
		return fmt.Sprintf("failed to create contest %d: %v", e.ContestNumber, e.Err)
	}
	return fmt.Sprintf("contest %s: failed after %d questions: %v", e.ContestID, e.QuestionsAdded, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Publisher pushes generated contests to the backend.
type Publisher struct {
	backend ContestBackend
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewPublisher(backend ContestBackend, m *metrics.Metrics) *Publisher {
	return &Publisher{backend: backend, metrics: m, now: time.Now}
}

// NextContestNumber returns one more than the largest remote contest number.
// It never fails: without a token it returns 1, and when the backend cannot be
// read it falls back to the current unix time.
func (p *Publisher) NextContestNumber(ctx context.Context) int64 {
	if !p.backend.HasToken() {
		return 1
	}

	contests, err := p.backend.ListContests(ctx)
	if err != nil {
		fallback := p.now().Unix()
		log.Printf("publisher: failed to fetch contests, using %d as contest number: %v", fallback, err)
		return fallback
	}

	var highest int64
	for _, c := range contests {
		if n := int64(c.ContestNumber); n > highest {
			highest = n
		}
	}
	return highest + 1
}

// Publish creates the contest envelope and then attaches every question in
// order, stopping at the first failure. A created contest is not rolled back.
func (p *Publisher) Publish(ctx context.Context, contest *domain.Contest) (*PublishResult, error) {
	if !p.backend.HasToken() {
		return nil, domain.ErrMissingAdminCredential
	}

	ctx, span := telemetry.StartSpan(ctx, "publisher.publish", telemetry.SpanAttributes{Operation: "publish_contest"})
	defer span.End()

	number := p.NextContestNumber(ctx)
	envelope := domain.NewContestEnvelope(number, contest.Title, p.now().UTC())

	log.Printf("publisher: creating contest %d: %s", number, contest.Title)
	contestID, err := p.backend.CreateContest(ctx, envelope)
	if err != nil {
		p.metrics.ContestPublished(metrics.OutcomeFailure)
		span.SetError(err)
		return nil, &PublishError{ContestNumber: number, Err: domain.ExternalCallFailed("backend create contest", err)}
	}
	log.Printf("publisher: contest created with id %s", contestID)
	telemetry.AddBreadcrumb(ctx, "publisher", "contest "+contestID+" created")

	for i := range contest.Problems {
		q := &contest.Problems[i]
		if err := p.backend.AddProblem(ctx, contestID, q); err != nil {
			p.metrics.ContestPublished(metrics.OutcomeFailure)
			span.SetError(err)
			return nil, &PublishError{
				ContestNumber:  number,
				ContestID:      contestID,
				QuestionsAdded: i,
				Err:            domain.ExternalCallFailed("backend add problem", err),
			}
		}
		p.metrics.QuestionPublished()
		log.Printf("publisher: added problem %q", q.Title)
	}

	p.metrics.ContestPublished(metrics.OutcomeSuccess)
	return &PublishResult{ContestNumber: number, ContestID: contestID, QuestionsAdded: len(contest.Problems)}, nil
}
