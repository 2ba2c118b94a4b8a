// Package worker executes queued categorization jobs.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"triage/internal/models"
	"triage/internal/services"
	"triage/internal/tasks"
)

// JobStore is the slice of the store the worker needs.
type JobStore interface {
	SetJobState(ctx context.Context, id string, state models.JobState, jobErr string) error
	SetJobResults(ctx context.Context, id string, results []models.PredictionResult) error
}

// Deps bundles the handler dependencies.
type Deps struct {
	Service *services.CategorizationService
	Jobs    JobStore
	Timeout time.Duration
}

// RegisterHandlers attaches the job handlers to the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps Deps) {
	mux.HandleFunc(tasks.TypeCategorizationJob, deps.handleCategorizationJob)
}

func (d Deps) handleCategorizationJob(ctx context.Context, t *asynq.Task) error {
	var payload tasks.CategorizationJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid categorization task payload: %v: %w", err, asynq.SkipRetry)
	}
	logger := log.WithFields(log.Fields{"job_id": payload.JobID, "model": payload.Model})

	if err := d.Jobs.SetJobState(ctx, payload.JobID, models.JobStateRunning, ""); err != nil {
		logger.Errorf("Failed to mark job running: %v", err)
	}

	runCtx := ctx
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	results, err := d.Service.CategorizeCases(runCtx, services.CategorizeParams{
		Cases:       payload.Cases,
		Categories:  payload.Categories,
		Resolutions: payload.Resolutions,
		Model:       payload.Model,
	})
	if err != nil {
		logger.Errorf("Job failed: %v", err)
		if storeErr := d.Jobs.SetJobState(ctx, payload.JobID, models.JobStateFailed, err.Error()); storeErr != nil {
			logger.Errorf("Failed to mark job failed: %v", storeErr)
		}
		if errors.Is(err, models.ErrUnsupportedModel) {
			// A bad model id stays bad; retrying wastes queue slots.
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if err := d.Jobs.SetJobResults(ctx, payload.JobID, results); err != nil {
		logger.Errorf("Failed to store job results: %v", err)
		return err
	}
	logger.Infof("Job finished with %d result(s)", len(results))
	return nil
}
