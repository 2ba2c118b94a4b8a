// Package services holds the categorization pipeline and its
// supporting services.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"triage/internal/llm"
	"triage/internal/models"
	"triage/internal/prompt"
	"triage/pkg/caserecord"
)

// Placeholder prediction values for cases that could not be trusted.
const (
	errorLabel          = "Error"
	errorBatchReasoning = "Error during processing."
)

// ModelResolver maps a logical model id to a chat backend.
type ModelResolver interface {
	Resolve(ctx context.Context, id string) (llm.ChatBackend, error)
}

// RunRecorder persists one pipeline execution for history. Recording
// is best effort; failures are logged, never surfaced to the caller.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.CategorizationRun) error
}

// CategorizationService is the top-level pipeline: normalize all
// records, build the batch, invoke the backend, reconcile outputs.
// Every input record ends in exactly one PredictionResult, in input
// order, no matter where a failure occurred. The fault policy is
// per-item: one record's failure never discards its siblings.
type CategorizationService struct {
	resolver ModelResolver
	builder  *prompt.Builder
	history  RunRecorder
}

func NewCategorizationService(resolver ModelResolver, builder *prompt.Builder, history RunRecorder) *CategorizationService {
	return &CategorizationService{
		resolver: resolver,
		builder:  builder,
		history:  history,
	}
}

// CategorizeParams is one categorization request. Categories and
// Resolutions are the taxonomy snapshot used for the whole batch; the
// caller decides whether they come from the request body or the store.
type CategorizeParams struct {
	Cases       []models.CaseRecord
	Categories  []models.TaxonomyEntry
	Resolutions []models.TaxonomyEntry
	Model       string
}

type pendingCase struct {
	index      int
	normalized caserecord.NormalizedCase
}

// CategorizeCases runs the pipeline. The returned slice always has
// len(params.Cases) entries aligned with the input order. The only
// request-level failure is an unsupported or misconfigured model id,
// which aborts before any backend call.
func (s *CategorizationService) CategorizeCases(ctx context.Context, params CategorizeParams) ([]models.PredictionResult, error) {
	runID := uuid.NewString()
	started := time.Now()
	logger := log.WithFields(log.Fields{"run_id": runID, "model": params.Model, "cases": len(params.Cases)})

	results := make([]models.PredictionResult, len(params.Cases))
	filled := make([]bool, len(params.Cases))

	// Step 1: normalize every record; failures short-circuit to error
	// results without touching the backend.
	required := s.builder.RequiredFields()
	var pending []pendingCase
	for i, raw := range params.Cases {
		nc, err := caserecord.Normalize(raw, required)
		if err != nil {
			logger.Warnf("Record %d failed normalization: %v", i, err)
			results[i] = normalizationErrorResult(raw, err)
			filled[i] = true
			continue
		}
		pending = append(pending, pendingCase{index: i, normalized: nc})
	}

	// Nothing left to predict; skip the backend entirely.
	if len(pending) == 0 {
		s.recordRun(ctx, runID, params, results, started)
		return results, nil
	}

	// Step 2: resolve the backend once for the whole batch. Failure is
	// a caller configuration mistake, so it aborts the request instead
	// of producing per-case errors.
	backend, err := s.resolver.Resolve(ctx, params.Model)
	if err != nil {
		return nil, err
	}

	// Step 3: one prompt per pending case, all against the same
	// taxonomy snapshot.
	prompts := make([]string, 0, len(pending))
	invocable := make([]pendingCase, 0, len(pending))
	for _, pc := range pending {
		text, err := s.builder.Build(pc.normalized, params.Categories, params.Resolutions)
		if err != nil {
			logger.Errorf("Record %d failed prompt rendering: %v", pc.index, err)
			results[pc.index] = processingErrorResult(pc.normalized.Merged(), err)
			filled[pc.index] = true
			continue
		}
		prompts = append(prompts, text)
		invocable = append(invocable, pc)
	}

	// Step 4: single batch invocation; the backend guarantees one
	// output per prompt in order.
	outputs := backend.BatchInvoke(ctx, prompts)

	// Step 5: parse each output; malformed output downgrades that one
	// case, never the batch.
	for i, pc := range invocable {
		merged := pc.normalized.Merged()
		if i >= len(outputs) {
			// A backend violating the 1:1 contract must still leave
			// every case accounted for.
			logger.Errorf("Backend %s returned %d outputs for %d prompts", backend.Name(), len(outputs), len(prompts))
			results[pc.index] = processingErrorResult(merged, errors.New("backend returned no output for this case"))
			filled[pc.index] = true
			continue
		}
		out := outputs[i]
		if out.Err != nil {
			logger.Warnf("Record %d failed at the provider: %v", pc.index, out.Err)
			results[pc.index] = processingErrorResult(merged, out.Err)
			filled[pc.index] = true
			continue
		}

		pred, err := ParsePrediction(out.Content)
		if err != nil {
			logger.Warnf("Record %d returned malformed output: %v", pc.index, err)
			results[pc.index] = processingErrorResult(merged, err)
			filled[pc.index] = true
			continue
		}

		results[pc.index] = models.PredictionResult{
			OriginalCase:        merged,
			PredictedCategory:   pred.Category,
			PredictedResolution: pred.Resolution,
			PredictedCertainty:  pred.Certainty,
			PredictedReasoning:  pred.Reasoning,
		}
		filled[pc.index] = true
	}

	for i := range filled {
		if !filled[i] {
			// Unreachable if the bookkeeping above is right.
			results[i] = processingErrorResult(params.Cases[i], errors.New("case was not processed"))
		}
	}

	s.recordRun(ctx, runID, params, results, started)
	logger.Infof("Categorization run finished in %s", time.Since(started).Round(time.Millisecond))
	return results, nil
}

func (s *CategorizationService) recordRun(ctx context.Context, runID string, params CategorizeParams, results []models.PredictionResult, started time.Time) {
	if s.history == nil {
		return
	}
	errCount := 0
	for _, r := range results {
		if r.Error != "" {
			errCount++
		}
	}
	run := &models.CategorizationRun{
		ID:         runID,
		Model:      params.Model,
		CaseCount:  len(results),
		ErrorCount: errCount,
		Duration:   time.Since(started),
		CreatedAt:  started.UTC(),
	}
	if err := s.history.RecordRun(ctx, run); err != nil {
		log.Errorf("Failed to record categorization run %s: %v", runID, err)
	}
}

func normalizationErrorResult(raw models.CaseRecord, err error) models.PredictionResult {
	return models.PredictionResult{
		OriginalCase:        raw,
		PredictedCategory:   errorLabel,
		PredictedResolution: errorLabel,
		PredictedCertainty:  errorLabel,
		PredictedReasoning:  err.Error(),
		Error:               err.Error(),
	}
}

func processingErrorResult(original models.CaseRecord, err error) models.PredictionResult {
	return models.PredictionResult{
		OriginalCase:        original,
		PredictedCategory:   errorLabel,
		PredictedResolution: errorLabel,
		PredictedCertainty:  errorLabel,
		PredictedReasoning:  errorBatchReasoning,
		Error:               err.Error(),
	}
}
