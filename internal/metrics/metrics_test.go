package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ChunksIngested(5)
	m.ChunksIngested(3)
	m.IngestBatch(OutcomeRetry)
	m.IngestBatch(OutcomeSuccess)
	m.IngestBatch(OutcomeSuccess)
	m.ContestGenerated("Physics", OutcomeSuccess, 2*time.Second)
	m.QuestionPublished()
	m.ContestPublished(OutcomeFailure)
	m.SubjectFailed("Chemistry")
	m.JobFinished("completed")
	m.ScheduleTriggered()

	assert.Equal(t, 8.0, testutil.ToFloat64(m.chunksIngested))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestBatches.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestBatches.WithLabelValues(OutcomeRetry)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contestsGenerated.WithLabelValues("Physics", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionsPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.contestsPublished.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subjectFailures.WithLabelValues("Chemistry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scheduleTriggers))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ChunksIngested(1)
		m.IngestBatch(OutcomeSuccess)
		m.ContestGenerated("Physics", OutcomeSuccess, time.Second)
		m.QuestionPublished()
		m.ContestPublished(OutcomeSuccess)
		m.SubjectFailed("Physics")
		m.JobFinished("failed")
		m.ScheduleTriggered()
	})
	assert.Nil(t, m.Registry())
	assert.NotNil(t, m.Handler())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ChunksIngested(2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "contestgen_ingest_chunks_total 2")
}
