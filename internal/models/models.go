package models

import (
	"time"
)

// TaxonomyEntry is one allowed label: a category or a resolution type.
// Entries are unique by name by convention only; the store does not
// enforce it (duplicate names become ambiguous labels for the model).
type TaxonomyEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CaseRecord is one raw support case as uploaded by the caller.
// No shape is guaranteed; the normalizer decides what is usable.
type CaseRecord map[string]any

// Prediction is the structured answer extracted from one model output.
type Prediction struct {
	Category   string `json:"category"`
	Resolution string `json:"resolution"`
	Certainty  string `json:"certainty"`
	Reasoning  string `json:"reasoning"`
}

// PredictionResult is the per-case outcome returned to the caller.
// Exactly one exists per input record. Error is empty on success.
type PredictionResult struct {
	OriginalCase        CaseRecord `json:"originalCase"`
	PredictedCategory   string     `json:"predictedCategory"`
	PredictedResolution string     `json:"predictedResolution"`
	PredictedCertainty  string     `json:"predictedCertainty"`
	PredictedReasoning  string     `json:"predictedReasoning"`
	Error               string     `json:"error,omitempty"`
}

// CategorizationRun is one recorded pipeline execution.
type CategorizationRun struct {
	ID         string        `json:"id"`
	Model      string        `json:"model"`
	CaseCount  int           `json:"case_count"`
	ErrorCount int           `json:"error_count"`
	Duration   time.Duration `json:"duration"`
	CreatedAt  time.Time     `json:"created_at"`
}

// JobState is the lifecycle state of an async categorization job.
type JobState string

const (
	JobStateQueued  JobState = "queued"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// Job is an async categorization request tracked in the store.
type Job struct {
	ID        string             `json:"id"`
	Model     string             `json:"model"`
	State     JobState           `json:"state"`
	CaseCount int                `json:"case_count"`
	Results   []PredictionResult `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
