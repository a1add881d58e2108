package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/pagination"
	"github.com/google/uuid"
)

const (
	DefaultJobPageSize = 20
	MaxJobPageSize     = 100
)

// GenerationJobStore persists generation jobs.
type GenerationJobStore interface {
	Create(ctx context.Context, job *domain.GenerationJob) error
	GetByID(ctx context.Context, id string) (*domain.GenerationJob, error)
	List(ctx context.Context, limit int, cursor *pagination.Cursor) ([]*domain.GenerationJob, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// JobDefaults describe the weekly task.
type JobDefaults struct {
	Subjects []string
	Topic    string
	Count    int
}

// TriggerRequest asks for a generation run. An empty Subject means every
// default subject; an empty Topic or zero Count means the weekly default.
type TriggerRequest struct {
	Subject string
	Topic   string
	Count   int
	Trigger domain.JobTrigger
}

// JobService queues generation jobs and reports their status.
type JobService struct {
	repo     GenerationJobStore
	uuidGen  UUIDGenerator
	now      func() time.Time
	defaults JobDefaults
}

func NewJobService(repo GenerationJobStore, defaults JobDefaults) *JobService {
	return NewJobServiceWithUUID(repo, defaults, &DefaultUUIDGenerator{})
}

func NewJobServiceWithUUID(repo GenerationJobStore, defaults JobDefaults, uuidGen UUIDGenerator) *JobService {
	if len(defaults.Subjects) == 0 {
		defaults.Subjects = DefaultSubjects
	}
	if defaults.Topic == "" {
		defaults.Topic = DefaultTopic
	}
	if defaults.Count <= 0 {
		defaults.Count = domain.DefaultQuestionCount
	}
	return &JobService{repo: repo, uuidGen: uuidGen, now: time.Now, defaults: defaults}
}

// Enqueue stores a queued job and returns it without running anything.
func (s *JobService) Enqueue(ctx context.Context, req TriggerRequest) (*domain.GenerationJob, error) {
	if req.Count < 0 {
		return nil, domain.ErrInvalidQuestionCount
	}

	subjects := s.defaults.Subjects
	if subject := strings.TrimSpace(req.Subject); subject != "" {
		subjects = []string{subject}
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = s.defaults.Topic
	}
	count := req.Count
	if count == 0 {
		count = s.defaults.Count
	}
	trigger := req.Trigger
	if trigger == "" {
		trigger = domain.JobTriggerManual
	}

	job := domain.NewGenerationJob(s.uuidGen.NewString(), append([]string(nil), subjects...), topic, count, trigger,
		s.now().UTC().Truncate(time.Microsecond))
	if err := domain.ValidateGenerationJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidGenerationJob.Message, err)
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// EnqueueWeekly queues the weekly task: every default subject on the default
// topic and count. The scheduler and the manual trigger both use it.
func (s *JobService) EnqueueWeekly(ctx context.Context, trigger domain.JobTrigger) (*domain.GenerationJob, error) {
	return s.Enqueue(ctx, TriggerRequest{Trigger: trigger})
}

func (s *JobService) Get(ctx context.Context, id string) (*domain.GenerationJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrGenerationJobNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// List returns one page of jobs, newest first.
func (s *JobService) List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.GenerationJob], error) {
	limit = pagination.ClampLimit(limit, DefaultJobPageSize, MaxJobPageSize)

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.ErrInvalidPaginationToken
	}

	// one extra row tells whether another page exists
	jobs, err := s.repo.List(ctx, limit+1, decoded)
	if err != nil {
		return nil, err
	}

	return pagination.Paginate(jobs, limit,
		func(j *domain.GenerationJob) string { return j.ID },
		func(j *domain.GenerationJob) time.Time { return j.CreatedAt },
	), nil
}
