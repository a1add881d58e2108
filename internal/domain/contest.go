package domain

import (
	"strconv"
	"strings"
	"time"
)

// InputType is how a contestant answers a question.
type InputType string

const (
	InputTypeMCQSingle InputType = "mcq_single"
	InputTypeNumeric   InputType = "numeric"
)

// Difficulty grades a single question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	// DefaultQuestionCount is used when a caller does not ask for a specific count.
	DefaultQuestionCount = 5

	ContestTypeWeekly       = "weekly"
	ContestDifficultyMedium = "medium"

	// ContestLeadTime is how far ahead of publication a contest starts.
	ContestLeadTime = 24 * time.Hour
	// ContestDuration is the length of every published contest.
	ContestDuration = 3 * time.Hour
)

// Option is one choice of a multiple-choice question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is a single problem. Its JSON form is posted to the backend as is.
type Question struct {
	Title         string     `json:"title"`
	Statement     string     `json:"statement"`
	InputType     InputType  `json:"inputType"`
	Options       []Option   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Points        int        `json:"points"`
	Difficulty    Difficulty `json:"difficulty"`
	Solution      string     `json:"solution"`
}

// Contest is the structured output of the generative model.
type Contest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Problems    []Question `json:"problems"`
}

// ContestEnvelope is the metadata record created on the backend before any
// problem is attached. Problems is always an empty array on the wire.
type ContestEnvelope struct {
	ContestNumber int64     `json:"contestNumber"`
	Title         string    `json:"title"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Type          string    `json:"type"`
	Difficulty    string    `json:"difficulty"`
	Problems      []string  `json:"problems"`
}

// NewContestEnvelope builds the weekly medium envelope for a contest generated at now.
func NewContestEnvelope(number int64, title string, now time.Time) *ContestEnvelope {
	start := now.Add(ContestLeadTime)
	return &ContestEnvelope{
		ContestNumber: number,
		Title:         title,
		StartTime:     start,
		EndTime:       start.Add(ContestDuration),
		Type:          ContestTypeWeekly,
		Difficulty:    ContestDifficultyMedium,
		Problems:      []string{},
	}
}

// ValidateContest checks the generated contest against the question invariants.
// Every failure is a SCHEMA_VIOLATION.
func ValidateContest(c *Contest) error {
	if c == nil {
		return SchemaViolation("contest is empty")
	}
	if strings.TrimSpace(c.Title) == "" {
		return SchemaViolation("contest title is required")
	}
	if len(c.Problems) == 0 {
		return SchemaViolation("contest has no problems")
	}
	for i := range c.Problems {
		if err := validateQuestion(&c.Problems[i]); err != nil {
			return SchemaViolation("problem %d: %v", i+1, err)
		}
	}
	return nil
}

type questionError string

func (e questionError) Error() string { return string(e) }

func validateQuestion(q *Question) error {
	if strings.TrimSpace(q.Title) == "" {
		return questionError("title is required")
	}
	if strings.TrimSpace(q.Statement) == "" {
		return questionError("statement is required")
	}
	if q.Points < 0 {
		return questionError("points cannot be negative")
	}
	if !isValidDifficulty(q.Difficulty) {
		return questionError("invalid difficulty " + strconv.Quote(string(q.Difficulty)))
	}

	switch q.InputType {
	case InputTypeMCQSingle:
		if len(q.Options) == 0 {
			return questionError("mcq_single question has no options")
		}
		seen := make(map[string]bool, len(q.Options))
		for _, opt := range q.Options {
			if opt.ID == "" {
				return questionError("option without id")
			}
			if seen[opt.ID] {
				return questionError("duplicate option id " + strconv.Quote(opt.ID))
			}
			seen[opt.ID] = true
		}
		if !seen[q.CorrectAnswer] {
			return questionError("correct answer " + strconv.Quote(q.CorrectAnswer) + " is not an option id")
		}
	case InputTypeNumeric:
		if len(q.Options) > 0 {
			return questionError("numeric question must not carry options")
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(q.CorrectAnswer), 64); err != nil {
			return questionError("numeric correct answer " + strconv.Quote(q.CorrectAnswer) + " is not a number")
		}
	default:
		return questionError("invalid input type " + strconv.Quote(string(q.InputType)))
	}
	return nil
}

func isValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}
