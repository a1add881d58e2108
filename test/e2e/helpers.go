//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/contestgen/internal/api/handlers"
	"github.com/cloo-solutions/contestgen/internal/api/middleware"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/cloo-solutions/contestgen/internal/ingest"
	"github.com/cloo-solutions/contestgen/internal/jobs"
	"github.com/cloo-solutions/contestgen/internal/metrics"
	"github.com/cloo-solutions/contestgen/internal/orbit"
	"github.com/cloo-solutions/contestgen/internal/repository"
	"github.com/cloo-solutions/contestgen/internal/server"
	"github.com/cloo-solutions/contestgen/internal/service"
	"github.com/cloo-solutions/contestgen/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	triggerToken = "e2e-trigger-token"
	adminToken   = "e2e-admin-token"
	embedDims    = 768
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Backend      *fakeBackend
	Model        *fakeModel
	Embedder     *hashEmbedder
	Metrics      *metrics.Metrics
	stopWorkers  func()
}

// SetupE2EEnv starts Postgres, a fake contest backend and the full service
// with a fast generation worker.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	env := &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		Pool:      pool,
		Backend:   newFakeBackend(t, 41),
		Model:     &fakeModel{},
		Embedder:  &hashEmbedder{},
		Metrics:   metrics.New(),
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	env.ServerURL, env.ServerCloser = env.startServer(port)
	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.stopWorkers != nil {
		e.stopWorkers()
	}
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Backend != nil {
		e.Backend.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Ingest stores docs through the real chunker and chunk repository.
func (e *E2ETestEnv) Ingest(docs ...domain.Document) *ingest.Report {
	ing := ingest.NewIngester(
		ingest.NewChunker(ingest.WithChunkSize(200), ingest.WithOverlap(20)),
		e.Embedder,
		repository.NewChunkRepository(e.Pool),
		ingest.IngesterConfig{BatchSize: 5, MaxAttempts: 1},
		e.Metrics,
	)
	report, err := ing.Ingest(e.Ctx, docs)
	if err != nil {
		e.T.Fatalf("ingest failed: %v", err)
	}
	return report
}

func (e *E2ETestEnv) startServer(port int) (string, func()) {
	chunkRepo := repository.NewChunkRepository(e.Pool)
	jobRepo := repository.NewGenerationJobRepository(e.Pool)

	retriever := service.NewRetriever(e.Embedder, chunkRepo, 3)
	generator := service.NewContestGenerator(retriever, e.Model, e.Metrics)
	publisher := service.NewPublisher(orbit.NewClient(e.Backend.URL+"/api", adminToken), e.Metrics)
	pipeline := service.NewPipeline(generator, publisher, e.Metrics)
	jobSvc := service.NewJobService(jobRepo, service.JobDefaults{
		Subjects: []string{"Physics", "Chemistry", "Mathematics"},
		Topic:    "General Revision",
		Count:    2,
	})

	router := server.NewRouter(server.RouterConfig{
		JobHandler:     handlers.NewJobHandler(jobSvc),
		TokenValidator: middleware.StaticToken{Token: triggerToken},
		Metrics:        e.Metrics.Handler(),
		Database:       e.Pool,
	})

	workerCtx, cancel := context.WithCancel(e.Ctx)
	worker := jobs.NewWorker("generation", jobs.NewGenerationWorker(jobRepo, pipeline, time.Minute, e.Metrics), 100*time.Millisecond)
	go worker.Start(workerCtx)
	e.stopWorkers = func() {
		cancel()
		worker.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// hashEmbedder maps text to a deterministic unit-ish vector so identical
// texts are nearest neighbours.
type hashEmbedder struct{}

func (hashEmbedder) vector(text string) []float32 {
	v := make([]float32, embedDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%embedDims] += 1
	}
	v[0] += 0.01
	return v
}

func (e hashEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e hashEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

// fakeModel returns a valid contest with the requested number of questions
// and remembers every prompt it was given.
type fakeModel struct {
	mu      sync.Mutex
	prompts []domain.Prompt
	failFor string
}

func (m *fakeModel) GenerateContest(_ context.Context, prompt domain.Prompt) (*domain.Contest, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	failFor := m.failFor
	m.mu.Unlock()

	if failFor != "" && strings.Contains(prompt.User, "for "+failFor+" ") {
		return nil, domain.ExternalCallFailed("fake model", fmt.Errorf("quota exceeded"))
	}

	count := 2
	fmt.Sscanf(prompt.User[strings.Index(prompt.User, "Generate ")+len("Generate "):], "%d", &count)

	contest := &domain.Contest{Title: "Weekly Challenge", Description: "Generated for e2e"}
	for i := 0; i < count; i++ {
		if i%2 == 0 {
			contest.Problems = append(contest.Problems, domain.Question{
				Title:     fmt.Sprintf("Q%d", i+1),
				Statement: "Pick the right option",
				InputType: domain.InputTypeMCQSingle,
				Options: []domain.Option{
					{ID: "A", Text: "1"}, {ID: "B", Text: "2"}, {ID: "C", Text: "3"}, {ID: "D", Text: "4"},
				},
				CorrectAnswer: "B",
				Points:        4,
				Difficulty:    domain.DifficultyMedium,
				Solution:      "Because.",
			})
			continue
		}
		contest.Problems = append(contest.Problems, domain.Question{
			Title:         fmt.Sprintf("Q%d", i+1),
			Statement:     "Compute the value",
			InputType:     domain.InputTypeNumeric,
			Options:       []domain.Option{},
			CorrectAnswer: "9.8",
			Points:        4,
			Difficulty:    domain.DifficultyHard,
			Solution:      "g.",
		})
	}
	return contest, nil
}

func (m *fakeModel) Prompts() []domain.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Prompt(nil), m.prompts...)
}

// fakeBackend is an in-memory contest backend speaking the admin API.
type fakeBackend struct {
	*httptest.Server
	mu       sync.Mutex
	contests []map[string]any
	problems map[string][]domain.Question
}

func newFakeBackend(t *testing.T, highest int) *fakeBackend {
	b := &fakeBackend{
		contests: []map[string]any{{"_id": "seed", "contestNumber": highest}},
		problems: make(map[string][]domain.Question),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+adminToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/contests":
			json.NewEncoder(w).Encode(map[string]any{"contests": b.contests})
		case r.Method == http.MethodPost && r.URL.Path == "/api/contests":
			var envelope map[string]any
			if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			id := fmt.Sprintf("c%d", len(b.contests))
			envelope["_id"] = id
			b.contests = append(b.contests, envelope)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"contest": map[string]any{"_id": id}})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/problems"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/contests/"), "/problems")
			var q domain.Question
			if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.problems[id] = append(b.problems[id], q)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return b
}

func (b *fakeBackend) Contests() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.contests...)
}

func (b *fakeBackend) Problems(contestID string) []domain.Question {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Question(nil), b.problems[contestID]...)
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
