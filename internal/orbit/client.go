// Package orbit is a client for the contest backend that published contests land in.
package orbit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
)

const DefaultTimeout = 30 * time.Second

// ErrMissingContestID is returned when a create response carries no identifier at either known path.
var ErrMissingContestID = errors.New("contest id missing from create response")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// RemoteContest is the part of a backend contest record the generator reads.
type RemoteContest struct {
	ID            string  `json:"_id"`
	ContestNumber float64 `json:"contestNumber"`
	Title         string  `json:"title"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return NewClientWithHTTP(baseURL, token, &http.Client{Timeout: DefaultTimeout})
}

func NewClientWithHTTP(baseURL, token string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// HasToken reports whether an admin bearer token is configured.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ListContests returns every contest the backend knows about.
func (c *Client) ListContests(ctx context.Context) ([]RemoteContest, error) {
	var out struct {
		Contests []RemoteContest `json:"contests"`
	}
	if err := c.do(ctx, http.MethodGet, "/contests", nil, &out); err != nil {
		return nil, err
	}
	return out.Contests, nil
}

// CreateContest creates the contest envelope and returns the backend's id for it.
func (c *Client) CreateContest(ctx context.Context, envelope *domain.ContestEnvelope) (string, error) {
	var out struct {
		ID      string `json:"_id"`
		Contest struct {
			ID string `json:"_id"`
		} `json:"contest"`
	}
	if err := c.do(ctx, http.MethodPost, "/contests", envelope, &out); err != nil {
		return "", err
	}
	if out.Contest.ID != "" {
		return out.Contest.ID, nil
	}
	if out.ID != "" {
		return out.ID, nil
	}
	return "", ErrMissingContestID
}

// AddProblem attaches one question to an existing contest.
func (c *Client) AddProblem(ctx context.Context, contestID string, q *domain.Question) error {
	return c.do(ctx, http.MethodPost, "/contests/"+url.PathEscape(contestID)+"/problems", q, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
