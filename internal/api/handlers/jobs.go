package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/contestgen/internal/api"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/pagination"
	"github.com/cloo-solutions/contestgen/internal/service"
	"github.com/go-chi/chi/v5"
)

const (
	ServiceStatus    = "Orbit Generator Service is running"
	TriggeredMessage = "Contest generation triggered in background"
)

type JobService interface {
	EnqueueWeekly(ctx context.Context, trigger domain.JobTrigger) (*domain.GenerationJob, error)
	Enqueue(ctx context.Context, req service.TriggerRequest) (*domain.GenerationJob, error)
	Get(ctx context.Context, id string) (*domain.GenerationJob, error)
	List(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.GenerationJob], error)
}

type JobHandler struct {
	svc JobService
}

func NewJobHandler(svc JobService) *JobHandler {
	return &JobHandler{svc: svc}
}

type StatusResponse struct {
	Status string `json:"status"`
}

type TriggerResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

type JobResponse struct {
	ID            string                 `json:"id"`
	Subjects      []string               `json:"subjects"`
	Topic         string                 `json:"topic"`
	QuestionCount int                    `json:"question_count"`
	Trigger       string                 `json:"trigger"`
	Status        string                 `json:"status"`
	Results       []domain.SubjectResult `json:"results"`
	Error         string                 `json:"error,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
}

func toJobResponse(j *domain.GenerationJob) JobResponse {
	results := j.Results
	if results == nil {
		results = []domain.SubjectResult{}
	}
	return JobResponse{
		ID:            j.ID,
		Subjects:      j.Subjects,
		Topic:         j.Topic,
		QuestionCount: j.Count,
		Trigger:       string(j.Trigger),
		Status:        string(j.Status),
		Results:       results,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
	}
}

// Status answers the liveness probe on the root path.
func Status(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, StatusResponse{Status: ServiceStatus})
}

// GenerateNow queues the weekly task and returns before anything runs. The
// subject and topic query parameters are accepted for compatibility and
// ignored: a manual trigger always runs every default subject.
func (h *JobHandler) GenerateNow(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.EnqueueWeekly(r.Context(), domain.JobTriggerManual)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, TriggerResponse{Message: TriggeredMessage, JobID: job.ID})
}

// GenerateSubject queues a run for a single subject, with optional topic and
// count query parameters.
func (h *JobHandler) GenerateSubject(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := 0
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			api.Error(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = n
	}

	subject := strings.TrimSpace(chi.URLParam(r, "subject"))
	if subject == "" {
		api.Error(w, http.StatusBadRequest, "subject is required")
		return
	}

	job, err := h.svc.Enqueue(r.Context(), service.TriggerRequest{
		Subject: subject,
		Topic:   q.Get("topic"),
		Count:   count,
		Trigger: domain.JobTriggerManual,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, TriggerResponse{Message: TriggeredMessage, JobID: job.ID})
}

func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, toJobResponse(job))
}

func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	page, err := h.svc.List(r.Context(), q.Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, pagination.Map(page, toJobResponse))
}
