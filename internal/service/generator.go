package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/telemetry"
)

const systemPrompt = "You are an expert JEE (Mains & Advanced) question setter. Your task is to generate a high-quality contest based on the provided context from textbooks and question banks."

// ContestModel produces a contest constrained to the contest schema.
type ContestModel interface {
	GenerateContest(ctx context.Context, prompt domain.Prompt) (*domain.Contest, error)
}

// ContextRetriever supplies reference material for a subject and topic.
type ContextRetriever interface {
	Retrieve(ctx context.Context, subject, topic string) (string, error)
}

// ContestGenerator turns retrieved context into a validated contest.
type ContestGenerator struct {
	retriever ContextRetriever
	model     ContestModel
	metrics   *metrics.Metrics
}

// NewContestGenerator creates a generator. A nil model means no credential is
// configured and every Generate call fails with MISSING_CREDENTIAL.
func NewContestGenerator(retriever ContextRetriever, model ContestModel, m *metrics.Metrics) *ContestGenerator {
	return &ContestGenerator{retriever: retriever, model: model, metrics: m}
}

// BuildPrompt renders the system and user messages for one contest.
func BuildPrompt(subject, topic, reference string, count int) domain.Prompt {
	return domain.Prompt{
		System: systemPrompt,
		User: fmt.Sprintf("Create a JEE contest for %s on the topic of '%s'. \n\nContext from materials:\n%s\n\n"+
			"Generate %d questions. Ensure a mix of MCQ and Numeric types. The questions should be challenging and follow the JEE pattern. "+
			"For MCQs, provide 4 options with IDs A, B, C, and D.",
			subject, topic, reference, count),
	}
}

// Generate retrieves context and asks the model for count questions. A
// non-positive count asks for the default five.
func (g *ContestGenerator) Generate(ctx context.Context, subject, topic string, count int) (*domain.Contest, error) {
	if count <= 0 {
		count = domain.DefaultQuestionCount
	}
	if g.model == nil {
		return nil, domain.ErrMissingModelCredential
	}

	ctx, span := telemetry.StartSpan(ctx, "generator.generate", telemetry.SpanAttributes{
		Subject:   subject,
		Topic:     topic,
		Operation: "generate_contest",
	})
	defer span.End()

	start := time.Now()
	contest, err := g.generate(ctx, subject, topic, count)
	if err != nil {
		span.SetError(err)
		g.metrics.ContestGenerated(subject, metrics.OutcomeFailure, time.Since(start))
		return nil, err
	}
	g.metrics.ContestGenerated(subject, metrics.OutcomeSuccess, time.Since(start))
	return contest, nil
}

func (g *ContestGenerator) generate(ctx context.Context, subject, topic string, count int) (*domain.Contest, error) {
	reference, err := g.retriever.Retrieve(ctx, subject, topic)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	if reference == "" {
		log.Printf("generator: no stored context for %s / %s, generating without reference material", subject, topic)
	}

	contest, err := g.model.GenerateContest(ctx, BuildPrompt(subject, topic, reference, count))
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateContest(contest); err != nil {
		return nil, err
	}
	if len(contest.Problems) != count {
		log.Printf("generator: asked for %d questions for %s, model returned %d", count, subject, len(contest.Problems))
	}
	return contest, nil
}
