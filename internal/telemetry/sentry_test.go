package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NotPanics(t, shutdown)
}

func TestStartSpan_ChildOfTransaction(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "generation.job", SpanAttributes{Operation: "run_job"})
	defer root.End()

	childCtx, child := StartSpan(ctx, "generate contest", SpanAttributes{Subject: "Physics", JobID: "job-1"})
	defer child.End()

	span := sentry.SpanFromContext(childCtx)
	require.NotNil(t, span)
	assert.Equal(t, "Physics", span.Tags["subject"])
	assert.Equal(t, "job-1", span.Tags["job_id"])
	assert.NotNil(t, child.Context())
}

func TestStartJob_UsesOwnHub(t *testing.T) {
	ctx, span := StartJob(context.Background(), "generation.job", SpanAttributes{JobID: "job-7", Topic: "Optics", Operation: "run_job"})
	defer span.End()

	hub := sentry.GetHubFromContext(ctx)
	require.NotNil(t, hub)
	assert.NotSame(t, sentry.CurrentHub(), hub)

	inner := sentry.SpanFromContext(ctx)
	require.NotNil(t, inner)
	assert.Equal(t, "job-7", inner.Tags["job_id"])
	assert.Equal(t, "run_job", inner.Op)
	assert.Equal(t, "Optics", inner.Data["topic"])
}

func TestSampler(t *testing.T) {
	s := sampler(0.25)

	probe := sentry.StartSpan(context.Background(), "probe", sentry.WithTransactionName("GET /health"))
	probe.Name = "GET /health"
	assert.Equal(t, 0.0, s(sentry.SamplingContext{Span: probe}))

	root := sentry.StartSpan(context.Background(), "job")
	root.Name = "generation.job"
	assert.Equal(t, 0.25, s(sentry.SamplingContext{Span: root}))
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	s := &Span{}

	assert.NotPanics(t, func() {
		s.SetError(errors.New("boom"))
		s.End()
	})
	assert.NotNil(t, s.Context())
}
