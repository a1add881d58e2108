//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/contestgen/internal/cli/client"
	"github.com/cloo-solutions/contestgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobWaitTimeout = 30 * time.Second

func TestE2E_GenerateAndPublish(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	report := env.Ingest(
		domain.Document{Source: "data/mechanics.txt", Text: "Projectile motion: horizontal range depends on launch angle and initial velocity. Kinematics of uniformly accelerated bodies."},
		domain.Document{Source: "data/organic.txt", Text: "Aldehydes and ketones undergo nucleophilic addition. Carbonyl compounds and their reactions."},
	)
	require.Equal(t, 2, report.Documents)

	api := client.NewAPIClientWithConfig(triggerToken, env.ServerURL)
	ctx := context.Background()

	t.Run("status route", func(t *testing.T) {
		resp, err := http.Get(env.ServerURL + "/")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"Orbit Generator Service is running"}`, string(body))
	})

	t.Run("trigger requires token", func(t *testing.T) {
		_, err := client.NewAPIClientWithConfig("", env.ServerURL).Trigger(ctx, client.TriggerOptions{Subject: "Physics"})

		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	t.Run("single subject is generated and published", func(t *testing.T) {
		result, err := api.Trigger(ctx, client.TriggerOptions{Subject: "Physics", Topic: "Kinematics", Count: 3})
		require.NoError(t, err)
		assert.Equal(t, "Contest generation triggered in background", result.Message)
		require.NotEmpty(t, result.JobID)

		waitCtx, cancel := context.WithTimeout(ctx, jobWaitTimeout)
		defer cancel()
		job, err := api.WaitForJob(waitCtx, result.JobID, 100*time.Millisecond)
		require.NoError(t, err)

		assert.Equal(t, "completed", job.Status)
		require.Len(t, job.Results, 1)
		res := job.Results[0]
		assert.Equal(t, "Physics", res.Subject)
		assert.Equal(t, int64(42), res.ContestNumber)
		assert.Equal(t, 3, res.QuestionsAdded)
		assert.Empty(t, res.Error)

		assert.Len(t, env.Backend.Problems(res.RemoteContestID), 3)

		prompts := env.Model.Prompts()
		require.NotEmpty(t, prompts)
		last := prompts[len(prompts)-1]
		assert.Contains(t, last.User, "Create a JEE contest for Physics on the topic of 'Kinematics'")
		assert.Contains(t, last.User, "Generate 3 questions")
		assert.Contains(t, last.User, "Projectile motion")
	})

	t.Run("contest numbers keep increasing", func(t *testing.T) {
		result, err := api.Trigger(ctx, client.TriggerOptions{Subject: "Mathematics"})
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, jobWaitTimeout)
		defer cancel()
		job, err := api.WaitForJob(waitCtx, result.JobID, 100*time.Millisecond)
		require.NoError(t, err)

		require.Len(t, job.Results, 1)
		assert.Equal(t, int64(43), job.Results[0].ContestNumber)
		assert.Equal(t, "General Revision", job.Topic)
		assert.Equal(t, 2, job.QuestionCount)
	})

	t.Run("jobs are listed newest first", func(t *testing.T) {
		page, err := api.ListJobs(ctx, "", 1)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.True(t, page.HasMore)
		assert.Equal(t, []string{"Mathematics"}, page.Items[0].Subjects)

		next, err := api.ListJobs(ctx, page.Cursor, 10)
		require.NoError(t, err)
		require.Len(t, next.Items, 1)
		assert.Equal(t, []string{"Physics"}, next.Items[0].Subjects)
		assert.False(t, next.HasMore)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		_, err := api.GetJob(ctx, "00000000-0000-0000-0000-000000000000")

		var apiErr *client.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}

func TestE2E_WeeklyTaskContinuesPastFailures(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	env.Model.failFor = "Chemistry"
	api := client.NewAPIClientWithConfig(triggerToken, env.ServerURL)
	ctx := context.Background()

	result, err := api.Trigger(ctx, client.TriggerOptions{})
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, jobWaitTimeout)
	defer cancel()
	job, err := api.WaitForJob(waitCtx, result.JobID, 100*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, "completed", job.Status)
	assert.Equal(t, "1 of 3 subjects failed: Chemistry", job.Error)
	require.Len(t, job.Results, 3)
	assert.Equal(t, "Physics", job.Results[0].Subject)
	assert.Empty(t, job.Results[0].Error)
	assert.Equal(t, "Chemistry", job.Results[1].Subject)
	assert.Contains(t, job.Results[1].Error, "quota exceeded")
	assert.Equal(t, "Mathematics", job.Results[2].Subject)
	assert.Empty(t, job.Results[2].Error)

	// seed + two published contests
	assert.Len(t, env.Backend.Contests(), 3)
}

func TestE2E_HealthAndMetrics(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := http.Get(env.ServerURL + "/health")
	require.NoError(t, err)
	var health struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health.Data.Status)

	env.Ingest(domain.Document{Source: "notes.txt", Text: "Thermodynamics first law"})

	resp, err = http.Get(env.ServerURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "contestgen_ingest_chunks_total 1"))
}
