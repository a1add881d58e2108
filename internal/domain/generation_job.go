package domain

import (
	"fmt"
	"time"
)

// GenerationJobStatus represents the status of a contest generation job
type GenerationJobStatus string

const (
	GenerationJobStatusQueued    GenerationJobStatus = "queued"
	GenerationJobStatusRunning   GenerationJobStatus = "running"
	GenerationJobStatusCompleted GenerationJobStatus = "completed"
	GenerationJobStatusFailed    GenerationJobStatus = "failed"
)

// JobTrigger records what requested a generation job.
type JobTrigger string

const (
	JobTriggerManual   JobTrigger = "manual"
	JobTriggerSchedule JobTrigger = "schedule"
	JobTriggerCLI      JobTrigger = "cli"
)

// SubjectResult is the outcome of generating and publishing one subject.
type SubjectResult struct {
	Subject         string `json:"subject"`
	ContestTitle    string `json:"contest_title,omitempty"`
	ContestNumber   int64  `json:"contest_number,omitempty"`
	RemoteContestID string `json:"remote_contest_id,omitempty"`
	QuestionsAdded  int    `json:"questions_added"`
	Error           string `json:"error,omitempty"`
}

// Succeeded reports whether the subject was fully published.
func (r SubjectResult) Succeeded() bool {
	return r.Error == ""
}

// GenerationJob is one run of the generate-and-publish task over a set of subjects.
type GenerationJob struct {
	ID         string
	Subjects   []string
	Topic      string
	Count      int
	Trigger    JobTrigger
	Status     GenerationJobStatus
	Results    []SubjectResult
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// NewGenerationJob creates a queued job.
func NewGenerationJob(id string, subjects []string, topic string, count int, trigger JobTrigger, createdAt time.Time) *GenerationJob {
	return &GenerationJob{
		ID:        id,
		Subjects:  subjects,
		Topic:     topic,
		Count:     count,
		Trigger:   trigger,
		Status:    GenerationJobStatusQueued,
		CreatedAt: createdAt,
	}
}

// IsTerminal reports whether the job will not change any more.
func (j *GenerationJob) IsTerminal() bool {
	return j.Status == GenerationJobStatusCompleted || j.Status == GenerationJobStatusFailed
}

// ValidateGenerationJob validates a GenerationJob instance
func ValidateGenerationJob(j *GenerationJob) error {
	if j == nil {
		return fmt.Errorf("generation job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("generation job ID is required")
	}

	if len(j.Subjects) == 0 {
		return fmt.Errorf("generation job must have at least one subject")
	}

	for _, s := range j.Subjects {
		if s == "" {
			return fmt.Errorf("generation job subject cannot be empty")
		}
	}

	if j.Topic == "" {
		return fmt.Errorf("generation job Topic is required")
	}

	if j.Count <= 0 {
		return fmt.Errorf("generation job Count must be positive")
	}

	if !IsValidGenerationJobStatus(j.Status) {
		return fmt.Errorf("generation job Status is invalid: %s", j.Status)
	}

	return nil
}

// IsValidGenerationJobStatus checks if a GenerationJobStatus is valid
func IsValidGenerationJobStatus(s GenerationJobStatus) bool {
	switch s {
	case GenerationJobStatusQueued, GenerationJobStatusRunning,
		GenerationJobStatusCompleted, GenerationJobStatusFailed:
		return true
	}
	return false
}
