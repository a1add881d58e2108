// Package metrics exposes Prometheus counters for ingestion, generation and publishing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contestgen"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailure = "failure"
)

// Metrics holds every collector on a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	chunksIngested     prometheus.Counter
	ingestBatches      *prometheus.CounterVec
	contestsGenerated  *prometheus.CounterVec
	generationLatency  prometheus.Histogram
	questionsPublished prometheus.Counter
	contestsPublished  *prometheus.CounterVec
	subjectFailures    *prometheus.CounterVec
	jobsFinished       *prometheus.CounterVec
	scheduleTriggers   prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Metrics{
		registry: reg,
		chunksIngested: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunks embedded and stored",
		}),
		ingestBatches: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "batch_attempts_total",
			Help:      "Ingestion batch attempts by outcome",
		}, []string{"outcome"}),
		contestsGenerated: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "contests_total",
			Help:      "Contest generation calls by subject and outcome",
		}, []string{"subject", "outcome"}),
		generationLatency: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generator",
			Name:      "duration_seconds",
			Help:      "Time spent in the generative model call",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		questionsPublished: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "questions_total",
			Help:      "Questions attached to remote contests",
		}),
		contestsPublished: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publisher",
			Name:      "contests_total",
			Help:      "Publish attempts by outcome",
		}, []string{"outcome"}),
		subjectFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "subject_failures_total",
			Help:      "Subjects that failed during a generation job",
		}, []string{"subject"}),
		jobsFinished: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "finished_total",
			Help:      "Generation jobs by terminal status",
		}, []string{"status"}),
		scheduleTriggers: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "triggers_total",
			Help:      "Weekly trigger points fired",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ChunksIngested(n int) {
	if m == nil {
		return
	}
	m.chunksIngested.Add(float64(n))
}

func (m *Metrics) IngestBatch(outcome string) {
	if m == nil {
		return
	}
	m.ingestBatches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ContestGenerated(subject, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.contestsGenerated.WithLabelValues(subject, outcome).Inc()
	m.generationLatency.Observe(took.Seconds())
}

func (m *Metrics) QuestionPublished() {
	if m == nil {
		return
	}
	m.questionsPublished.Inc()
}

func (m *Metrics) ContestPublished(outcome string) {
	if m == nil {
		return
	}
	m.contestsPublished.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SubjectFailed(subject string) {
	if m == nil {
		return
	}
	m.subjectFailures.WithLabelValues(subject).Inc()
}

func (m *Metrics) JobFinished(status string) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(status).Inc()
}

func (m *Metrics) ScheduleTriggered() {
	if m == nil {
		return
	}
	m.scheduleTriggers.Inc()
}
