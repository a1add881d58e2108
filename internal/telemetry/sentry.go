// Package telemetry wraps Sentry error reporting and tracing for the HTTP
// surface and the background generation jobs.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serviceName  = "contestgen"
	flushTimeout = 5 * time.Second
)

// probe routes are never traced
var untracedTransactions = map[string]bool{
	"GET /":        true,
	"GET /health":  true,
	"GET /metrics": true,
}

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts Sentry and returns a func that flushes pending events. An empty
// DSN or an init failure leaves telemetry disabled; every helper in this
// package is then a cheap no-op.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       serviceName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampler drops probe routes and keeps child spans with their parent's decision.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if untracedTransactions[ctx.Span.Name] {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are the tags and data attached to a generation span.
type SpanAttributes struct {
	JobID     string
	Subject   string
	Topic     string
	ContestID string
	Operation string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	tags := map[string]string{"job_id": a.JobID, "subject": a.Subject, "contest_id": a.ContestID}
	for k, v := range tags {
		if v != "" {
			span.SetTag(k, v)
		}
	}
	if a.Topic != "" {
		span.SetData("topic", a.Topic)
	}
	if a.Operation != "" {
		span.Op = a.Operation
		span.SetData("operation", a.Operation)
	}
}

// Span is a nil-safe handle on a sentry span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetError marks the span failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

// StartSpan starts a child of the span in ctx, or a new transaction when ctx
// carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// StartJob starts the root transaction of a background generation job on its
// own hub, so events captured while the job runs carry the job id and do not
// leak into other jobs or requests.
func StartJob(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		if attrs.JobID != "" {
			scope.SetTag("job_id", attrs.JobID)
		}
	})
	ctx = sentry.SetHubOnContext(ctx, hub)

	span := sentry.StartSpan(ctx, name, sentry.WithTransactionName(name), sentry.WithTransactionSource(sentry.SourceTask))
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub in ctx, falling back to the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records a step of the current request or job.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
