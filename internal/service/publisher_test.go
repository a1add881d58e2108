package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/orbit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeBackend records every call and answers with the configured handlers.
type fakeBackend struct {
	mu          sync.Mutex
	calls       []recordedCall
	contests    string
	listStatus  int
	createBody  string
	failProblem int
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	problemCount := 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))

		var body map[string]any
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, recordedCall{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/contests":
			if f.listStatus != 0 {
				w.WriteHeader(f.listStatus)
				return
			}
			w.Write([]byte(f.contests))
		case r.Method == http.MethodPost && r.URL.Path == "/contests":
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(f.createBody))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/problems"):
			problemCount++
			if problemCount == f.failProblem {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"invalid problem"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeBackend) callsTo(method, suffix string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func newTestPublisher(t *testing.T, backend *fakeBackend, token string) *Publisher {
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)

	p := NewPublisher(orbit.NewClient(server.URL, token), metrics.New())
	p.now = func() time.Time { return time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestPublisher_NextContestNumber(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		contests string
		status   int
		want     int64
	}{
		{name: "no token", token: "", want: 1},
		{name: "empty list", token: "admin-token", contests: `{"contests":[]}`, want: 1},
		{name: "missing field", token: "admin-token", contests: `{}`, want: 1},
		{name: "max plus one", token: "admin-token", contests: `{"contests":[{"contestNumber":4},{"contestNumber":11},{"contestNumber":7}]}`, want: 12},
		{name: "backend error falls back to timestamp", token: "admin-token", status: http.StatusInternalServerError,
			want: time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC).Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{contests: tt.contests, listStatus: tt.status}
			p := newTestPublisher(t, backend, tt.token)

			assert.Equal(t, tt.want, p.NextContestNumber(context.Background()))
			if tt.token == "" {
				assert.Empty(t, backend.calls)
			}
		})
	}
}

func TestPublisher_Publish_AllProblemsInOrder(t *testing.T) {
	backend := &fakeBackend{
		contests:   `{"contests":[{"contestNumber":2}]}`,
		createBody: `{"contest":{"_id":"abc123"}}`,
	}
	p := newTestPublisher(t, backend, "admin-token")
	contest := threeQuestionContest()

	result, err := p.Publish(context.Background(), contest)

	require.NoError(t, err)
	assert.Equal(t, "abc123", result.ContestID)
	assert.Equal(t, int64(3), result.ContestNumber)
	assert.Equal(t, 3, result.QuestionsAdded)

	creates := backend.callsTo(http.MethodPost, "/contests")
	require.Len(t, creates, 1)
	envelope := creates[0].Body
	assert.Equal(t, float64(3), envelope["contestNumber"])
	assert.Equal(t, contest.Title, envelope["title"])
	assert.Equal(t, "weekly", envelope["type"])
	assert.Equal(t, "medium", envelope["difficulty"])
	assert.Equal(t, []any{}, envelope["problems"])
	assert.Equal(t, "2026-05-04T00:00:00Z", envelope["startTime"])
	assert.Equal(t, "2026-05-04T03:00:00Z", envelope["endTime"])

	problems := backend.callsTo(http.MethodPost, "/problems")
	require.Len(t, problems, 3)
	for i, call := range problems {
		assert.Equal(t, "/contests/abc123/problems", call.Path)
		assert.Equal(t, contest.Problems[i].Title, call.Body["title"])
	}
	assert.Equal(t, "numeric", problems[1].Body["inputType"])
	assert.Equal(t, "9.8", problems[1].Body["correctAnswer"])
}

func TestPublisher_Publish_FallbackIDPath(t *testing.T) {
	backend := &fakeBackend{contests: `{"contests":[]}`, createBody: `{"_id":"flat-id"}`}
	p := newTestPublisher(t, backend, "admin-token")

	result, err := p.Publish(context.Background(), threeQuestionContest())

	require.NoError(t, err)
	assert.Equal(t, "flat-id", result.ContestID)
	assert.Len(t, backend.callsTo(http.MethodPost, "/contests/flat-id/problems"), 3)
}

func TestPublisher_Publish_StopsAtFirstProblemFailure(t *testing.T) {
	backend := &fakeBackend{
		contests:    `{"contests":[]}`,
		createBody:  `{"contest":{"_id":"abc123"}}`,
		failProblem: 2,
	}
	p := newTestPublisher(t, backend, "admin-token")

	result, err := p.Publish(context.Background(), threeQuestionContest())

	require.Error(t, err)
	assert.Nil(t, result)

	var pubErr *PublishError
	require.True(t, errors.As(err, &pubErr))
	assert.Equal(t, "abc123", pubErr.ContestID)
	assert.Equal(t, 1, pubErr.QuestionsAdded)
	assert.True(t, domain.HasCode(err, domain.ErrCodeExternalCallFailed))

	var apiErr *orbit.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid problem")

	// the third problem is never sent
	assert.Len(t, backend.callsTo(http.MethodPost, "/problems"), 2)
}

func TestPublisher_Publish_CreateFailure(t *testing.T) {
	backend := &fakeBackend{contests: `{"contests":[]}`, createBody: `{"nothing":"here"}`}
	p := newTestPublisher(t, backend, "admin-token")

	_, err := p.Publish(context.Background(), threeQuestionContest())

	var pubErr *PublishError
	require.True(t, errors.As(err, &pubErr))
	assert.Empty(t, pubErr.ContestID)
	assert.ErrorIs(t, err, orbit.ErrMissingContestID)
	assert.Empty(t, backend.callsTo(http.MethodPost, "/problems"))
}

func TestPublisher_Publish_MissingToken(t *testing.T) {
	backend := &fakeBackend{}
	p := newTestPublisher(t, backend, "")

	_, err := p.Publish(context.Background(), threeQuestionContest())

	assert.ErrorIs(t, err, domain.ErrMissingAdminCredential)
	assert.Empty(t, backend.calls)
}
