package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := &models.CategorizationRun{
		ID: "run-1", Model: "openai", CaseCount: 10, ErrorCount: 2,
		Duration: 1500 * time.Millisecond, CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
	second := &models.CategorizationRun{
		ID: "run-2", Model: "ollama", CaseCount: 3, ErrorCount: 0,
		Duration: 200 * time.Millisecond, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.RecordRun(ctx, first))
	require.NoError(t, s.RecordRun(ctx, second))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID, "newest first")
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)
	assert.Equal(t, 2, runs[1].ErrorCount)
}

func TestStore_JobLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	job := &models.Job{
		ID: "job-1", Model: "gemini", State: models.JobStateQueued,
		CaseCount: 2, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	require.NoError(t, s.SetJobState(ctx, "job-1", models.JobStateRunning, ""))

	results := []models.PredictionResult{
		{
			OriginalCase:        models.CaseRecord{"Title": "t"},
			PredictedCategory:   "Technical Support",
			PredictedResolution: "Resolved - Provided Solution",
			PredictedCertainty:  "High",
			PredictedReasoning:  "ok",
		},
		{
			OriginalCase:      models.CaseRecord{"bad": "row"},
			PredictedCategory: "Error",
			Error:             "record is missing required field(s): [Title]",
		},
	}
	require.NoError(t, s.SetJobResults(ctx, "job-1", results))

	got, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateDone, got.State)
	require.Len(t, got.Results, 2)
	assert.Equal(t, "Technical Support", got.Results[0].PredictedCategory)
	assert.Equal(t, "Error", got.Results[1].PredictedCategory)
	assert.NotEmpty(t, got.Results[1].Error)
}

func TestStore_JobFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateJob(ctx, &models.Job{
		ID: "job-2", Model: "openai", State: models.JobStateQueued, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.SetJobState(ctx, "job-2", models.JobStateFailed, "model id 'nope': unsupported model"))

	got, err := s.GetJob(ctx, "job-2")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateFailed, got.State)
	assert.Contains(t, got.Error, "unsupported model")
	assert.Empty(t, got.Results)
}

func TestStore_MissingJob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetJob(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	err = s.SetJobState(ctx, "nope", models.JobStateRunning, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
