package service

import (
	"context"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type MockQueryEmbedder struct {
	mock.Mock
}

func (m *MockQueryEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockChunkSearcher struct {
	mock.Mock
}

func (m *MockChunkSearcher) SimilaritySearch(ctx context.Context, embedding []float32, k int) ([]domain.RetrievedChunk, error) {
	args := m.Called(ctx, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RetrievedChunk), args.Error(1)
}

type MockContestModel struct {
	mock.Mock
}

func (m *MockContestModel) GenerateContest(ctx context.Context, prompt domain.Prompt) (*domain.Contest, error) {
	args := m.Called(ctx, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contest), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, subject, topic string, count int) (*domain.Contest, error) {
	args := m.Called(ctx, subject, topic, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contest), args.Error(1)
}

type MockContestPublisher struct {
	mock.Mock
}

func (m *MockContestPublisher) Publish(ctx context.Context, contest *domain.Contest) (*PublishResult, error) {
	args := m.Called(ctx, contest)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PublishResult), args.Error(1)
}

type MockGenerationJobStore struct {
	mock.Mock
}

func (m *MockGenerationJobStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockGenerationJobStore) GetByID(ctx context.Context, id string) (*domain.GenerationJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationJob), args.Error(1)
}

func (m *MockGenerationJobStore) List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.GenerationJob, error) {
	args := m.Called(ctx, limit, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GenerationJob), args.Error(1)
}

type fixedUUID struct {
	id string
}

func (f fixedUUID) NewString() string { return f.id }

func mcq(title string) domain.Question {
	return domain.Question{
		Title:     title,
		Statement: "Statement for " + title,
		InputType: domain.InputTypeMCQSingle,
		Options: []domain.Option{
			{ID: "A", Text: "one"}, {ID: "B", Text: "two"}, {ID: "C", Text: "three"}, {ID: "D", Text: "four"},
		},
		CorrectAnswer: "C",
		Points:        4,
		Difficulty:    domain.DifficultyMedium,
		Solution:      "Work it out.",
	}
}

func numeric(title, answer string) domain.Question {
	return domain.Question{
		Title:         title,
		Statement:     "Statement for " + title,
		InputType:     domain.InputTypeNumeric,
		CorrectAnswer: answer,
		Points:        4,
		Difficulty:    domain.DifficultyHard,
		Solution:      "Compute it.",
	}
}

func threeQuestionContest() *domain.Contest {
	return &domain.Contest{
		Title:       "Laws of Motion Sprint",
		Description: "Newton's laws",
		Problems:    []domain.Question{mcq("Pulley"), numeric("Incline", "9.8"), mcq("Friction")},
	}
}
