package worker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/llm"
	"triage/internal/models"
	"triage/internal/prompt"
	"triage/internal/services"
	"triage/internal/tasks"
)

type fakeJobStore struct {
	states  []models.JobState
	errs    []string
	results map[string][]models.PredictionResult
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{results: make(map[string][]models.PredictionResult)}
}

func (f *fakeJobStore) SetJobState(ctx context.Context, id string, state models.JobState, jobErr string) error {
	f.states = append(f.states, state)
	f.errs = append(f.errs, jobErr)
	return nil
}

func (f *fakeJobStore) SetJobResults(ctx context.Context, id string, results []models.PredictionResult) error {
	f.states = append(f.states, models.JobStateDone)
	f.results[id] = results
	return nil
}

type scriptedBackend struct{ content string }

func (s scriptedBackend) Name() string      { return "stub" }
func (s scriptedBackend) ModelName() string { return "stub-1" }

func (s scriptedBackend) BatchInvoke(ctx context.Context, prompts []string) []llm.Result {
	out := make([]llm.Result, len(prompts))
	for i := range prompts {
		out[i] = llm.Result{Content: s.content}
	}
	return out
}

type scriptedResolver struct {
	backend llm.ChatBackend
	err     error
}

func (r scriptedResolver) Resolve(ctx context.Context, id string) (llm.ChatBackend, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.backend, nil
}

func payloadTask(t *testing.T, payload tasks.CategorizationJobPayload) *asynq.Task {
	t.Helper()
	task, err := tasks.NewCategorizationTask(payload)
	require.NoError(t, err)
	return task
}

func TestHandleCategorizationJob_Success(t *testing.T) {
	jobs := newFakeJobStore()
	svc := services.NewCategorizationService(
		scriptedResolver{backend: scriptedBackend{content: `{"category":"Technical Support","resolution":"Resolved - Bug Fix","certainty":"High","reasoning":"ok"}`}},
		prompt.NewBuilder(),
		nil,
	)
	deps := Deps{Service: svc, Jobs: jobs, Timeout: time.Minute}

	task := payloadTask(t, tasks.CategorizationJobPayload{
		JobID: "job-1",
		Model: "openai",
		Cases: []models.CaseRecord{
			{"Title": "t", "Description": "d"},
		},
		Categories:  []models.TaxonomyEntry{{Name: "Technical Support"}},
		Resolutions: []models.TaxonomyEntry{{Name: "Resolved - Bug Fix"}},
	})

	require.NoError(t, deps.handleCategorizationJob(context.Background(), task))

	assert.Equal(t, []models.JobState{models.JobStateRunning, models.JobStateDone}, jobs.states)
	require.Len(t, jobs.results["job-1"], 1)
	assert.Equal(t, "Technical Support", jobs.results["job-1"][0].PredictedCategory)
}

func TestHandleCategorizationJob_UnsupportedModelSkipsRetry(t *testing.T) {
	jobs := newFakeJobStore()
	svc := services.NewCategorizationService(
		scriptedResolver{err: fmt.Errorf("model id 'nope': %w", models.ErrUnsupportedModel)},
		prompt.NewBuilder(),
		nil,
	)
	deps := Deps{Service: svc, Jobs: jobs}

	task := payloadTask(t, tasks.CategorizationJobPayload{
		JobID: "job-2",
		Model: "nope",
		Cases: []models.CaseRecord{{"Title": "t", "Description": "d"}},
	})

	err := deps.handleCategorizationJob(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry, "configuration mistakes must not be retried")
	assert.Contains(t, jobs.states, models.JobStateFailed)
}

func TestHandleCategorizationJob_MalformedPayload(t *testing.T) {
	deps := Deps{Jobs: newFakeJobStore()}
	task := asynq.NewTask(tasks.TypeCategorizationJob, []byte("{broken"))

	err := deps.handleCategorizationJob(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
