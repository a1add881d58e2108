package middleware

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type accessLogEntry struct {
	Timestamp  string `json:"ts"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Route      string `json:"route,omitempty"`
	Query      string `json:"query,omitempty"`
	Status     int    `json:"status"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	RequestID  string `json:"request_id,omitempty"`
	Caller     string `json:"caller,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// statusWriter remembers the status and size of the response.
type statusWriter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

// AccessLog emits one JSON line per request. Successful requests to
// quietPaths (probes, scrapes) are not logged. The query string is kept since
// trigger parameters travel there.
func AccessLog(quietPaths ...string) func(http.Handler) http.Handler {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			// only BearerAuth may set the caller header
			r.Header.Del(callerHeader)

			next.ServeHTTP(sw, r)

			status := sw.status()
			if status < http.StatusBadRequest && quiet[r.URL.Path] {
				return
			}

			writeAccessLog(accessLogEntry{
				Timestamp:  start.UTC().Format(time.RFC3339Nano),
				Method:     r.Method,
				Path:       r.URL.Path,
				Route:      routePattern(r),
				Query:      r.URL.RawQuery,
				Status:     status,
				Bytes:      sw.bytes,
				DurationMS: time.Since(start).Milliseconds(),
				RequestID:  GetRequestID(r.Context()),
				Caller:     r.Header.Get(callerHeader),
				RemoteAddr: clientIP(r),
				UserAgent:  r.UserAgent(),
			})
		})
	}
}

func writeAccessLog(entry accessLogEntry) {
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("access_log_marshal_error: %v", err)
		return
	}
	log.Println(string(payload))
}

// routePattern is the matched chi pattern, e.g. /jobs/{id}, once routing ran.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
