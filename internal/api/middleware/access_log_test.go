package middleware

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestAccessLog_WritesEntry(t *testing.T) {
	buf := captureLog(t)

	handler := RequestID(AccessLog()(BearerAuth(StaticToken{Token: "s3cret"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte("queued"))
		}),
	)))

	req := httptest.NewRequest(http.MethodPost, "/generate-now?subject=Physics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	req.Header.Set("X-Request-ID", "req-1")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/generate-now", entry.Path)
	assert.Equal(t, "subject=Physics", entry.Query)
	assert.Equal(t, http.StatusAccepted, entry.Status)
	assert.Equal(t, 6, entry.Bytes)
	assert.Equal(t, "req-1", entry.RequestID)
	assert.Equal(t, "trigger", entry.Caller)
	assert.Equal(t, "203.0.113.9", entry.RemoteAddr)
}

func TestAccessLog_IgnoresSpoofedCaller(t *testing.T) {
	buf := captureLog(t)

	handler := AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("X-Caller", "admin")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Empty(t, entry.Caller)
	assert.Equal(t, http.StatusOK, entry.Status)
}

func TestAccessLog_RoutePattern(t *testing.T) {
	buf := captureLog(t)

	r := chi.NewRouter()
	r.Use(AccessLog())
	r.Get("/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/jobs/abc", nil))

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "/jobs/abc", entry.Path)
	assert.Equal(t, "/jobs/{id}", entry.Route)
	assert.Equal(t, http.StatusNotFound, entry.Status)
}

func TestAccessLog_QuietPaths(t *testing.T) {
	buf := captureLog(t)

	status := http.StatusOK
	handler := AccessLog("/health", "/metrics")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Empty(t, buf.String())

	// failures on quiet paths are still logged
	status = http.StatusServiceUnavailable
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, buf.String(), `"status":503`)
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	handler.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", seen)

	// header injection and oversized ids are replaced
	for _, bad := range []string{"id with spaces", strings.Repeat("a", 65), "a/b"} {
		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", bad)
		handler.ServeHTTP(w, req)
		assert.NotEqual(t, bad, seen)
		assert.Len(t, seen, 36)
	}
}

func TestLimitBody(t *testing.T) {
	handler := LimitBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate-now", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate-now", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}
