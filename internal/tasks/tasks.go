// Package tasks defines the Asynq task types and payloads.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"triage/internal/models"
)

const (
	// TypeCategorizationJob runs one queued categorization batch.
	TypeCategorizationJob = "categorization:run"
)

// CategorizationJobPayload carries everything the worker needs to run
// a job, including the taxonomy snapshot taken at enqueue time.
type CategorizationJobPayload struct {
	JobID       string                 `json:"job_id"`
	Model       string                 `json:"model"`
	Cases       []models.CaseRecord    `json:"cases"`
	Categories  []models.TaxonomyEntry `json:"categories"`
	Resolutions []models.TaxonomyEntry `json:"resolutions"`
}

// NewCategorizationTask builds the Asynq task for a payload.
func NewCategorizationTask(payload CategorizationJobPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode categorization task payload: %w", err)
	}
	return asynq.NewTask(TypeCategorizationJob, data), nil
}
