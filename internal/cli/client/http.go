package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL = "CONTESTGEN_API_URL"
	envToken  = "CONTESTGEN_TRIGGER_TOKEN"

	defaultAPIURL = "http://localhost:8000"
)

type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the base URL and token from flags, then the
// environment (including .env), then the default URL. The token is optional.
func NewAPIClientWithCmd(cmd *cobra.Command) *APIClient {
	_ = godotenv.Load()

	var token, baseURL string
	if cmd != nil {
		token, _ = cmd.Flags().GetString("token")
		baseURL, _ = cmd.Flags().GetString("api-url")
	}
	if token == "" {
		token = os.Getenv(envToken)
	}
	if baseURL == "" {
		baseURL = os.Getenv(envAPIURL)
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return NewAPIClientWithConfig(token, baseURL)
}

func NewAPIClientWithConfig(token, baseURL string) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// SubjectResult mirrors one entry of a job's results.
type SubjectResult struct {
	Subject         string `json:"subject"`
	ContestTitle    string `json:"contest_title,omitempty"`
	ContestNumber   int64  `json:"contest_number,omitempty"`
	RemoteContestID string `json:"remote_contest_id,omitempty"`
	QuestionsAdded  int    `json:"questions_added"`
	Error           string `json:"error,omitempty"`
}

// Job is a generation job as reported by the service.
type Job struct {
	ID            string          `json:"id"`
	Subjects      []string        `json:"subjects"`
	Topic         string          `json:"topic"`
	QuestionCount int             `json:"question_count"`
	Trigger       string          `json:"trigger"`
	Status        string          `json:"status"`
	Results       []SubjectResult `json:"results"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	FinishedAt    *time.Time      `json:"finished_at,omitempty"`
}

// Done reports whether the job has finished, successfully or not.
func (j *Job) Done() bool {
	return j.Status == "completed" || j.Status == "failed"
}

type TriggerResult struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

type JobPage struct {
	Items   []Job  `json:"items"`
	Cursor  string `json:"cursor,omitempty"`
	HasMore bool   `json:"has_more"`
}

// TriggerOptions selects what a manual run generates. Without a Subject the
// service runs the weekly task; Topic and Count only apply to a single subject.
type TriggerOptions struct {
	Subject string
	Topic   string
	Count   int
}

var ErrSubjectRequired = errors.New("topic and count require a subject")

func (c *APIClient) Trigger(ctx context.Context, opts TriggerOptions) (*TriggerResult, error) {
	path := "/generate-now"
	q := url.Values{}
	if opts.Subject == "" {
		if opts.Topic != "" || opts.Count > 0 {
			return nil, ErrSubjectRequired
		}
	} else {
		path = "/generate/" + url.PathEscape(opts.Subject)
		if opts.Topic != "" {
			q.Set("topic", opts.Topic)
		}
		if opts.Count > 0 {
			q.Set("count", strconv.Itoa(opts.Count))
		}
	}

	var result TriggerResult
	if err := c.do(ctx, http.MethodPost, path, q, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *APIClient) GetJob(ctx context.Context, id string) (*Job, error) {
	var resp struct {
		Data Job `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (c *APIClient) ListJobs(ctx context.Context, cursor string, limit int) (*JobPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Data JobPage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/jobs", q, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// WaitForJob polls a job until it finishes or ctx ends.
func (c *APIClient) WaitForJob(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *APIClient) do(ctx context.Context, method, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
			apiErr.Code = errResp.Code
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
