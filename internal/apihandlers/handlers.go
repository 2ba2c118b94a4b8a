package apihandlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"triage/internal/app"
	"triage/internal/models"
	"triage/internal/services"
	"triage/internal/tasks"
)

// TaskEnqueuer is the slice of the asynq client the handlers use.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type APIHandler struct {
	App      *app.App
	Enqueuer TaskEnqueuer
}

func NewAPIHandler(appInstance *app.App) *APIHandler {
	return &APIHandler{App: appInstance, Enqueuer: appInstance.JobClient}
}

// CategorizationRequest is the categorize-cases body. The taxonomy
// lists are optional; when absent the current store snapshot is used.
type CategorizationRequest struct {
	Cases                []models.CaseRecord    `json:"cases"`
	AvailableCategories  []models.TaxonomyEntry `json:"availableCategories"`
	AvailableResolutions []models.TaxonomyEntry `json:"availableResolutions"`
	SelectedModel        string                 `json:"selectedModel"`
}

func (h *APIHandler) GetCategoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.Taxonomy.Categories())
}

func (h *APIHandler) UpdateCategoriesHandler(c *gin.Context) {
	var entries []models.TaxonomyEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	h.App.Taxonomy.SetCategories(entries)
	if err := h.App.CategoriesFile.Save(entries); err != nil {
		// The in-memory replace already happened; report the
		// persistence failure instead of pretending it stuck.
		Internal(c, fmt.Sprintf("Failed to persist categories: %v", err))
		return
	}
	c.JSON(http.StatusOK, h.App.Taxonomy.Categories())
}

func (h *APIHandler) GetResolutionsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.App.Taxonomy.Resolutions())
}

func (h *APIHandler) UpdateResolutionsHandler(c *gin.Context) {
	var entries []models.TaxonomyEntry
	if err := c.ShouldBindJSON(&entries); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	h.App.Taxonomy.SetResolutions(entries)
	if err := h.App.ResolutionsFile.Save(entries); err != nil {
		Internal(c, fmt.Sprintf("Failed to persist resolutions: %v", err))
		return
	}
	c.JSON(http.StatusOK, h.App.Taxonomy.Resolutions())
}

// CategorizeCasesHandler runs the pipeline synchronously and returns
// one PredictionResult per input case, in input order.
func (h *APIHandler) CategorizeCasesHandler(c *gin.Context) {
	params, ok := h.bindCategorizeParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.App.RequestTimeout())
	defer cancel()

	results, err := h.App.CategorizationService.CategorizeCases(ctx, params)
	if err != nil {
		if errors.Is(err, models.ErrUnsupportedModel) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("Categorization failed: %v", err))
		return
	}
	c.JSON(http.StatusOK, results)
}

// CreateJobHandler queues the same work for the background worker and
// returns immediately with a job id.
func (h *APIHandler) CreateJobHandler(c *gin.Context) {
	params, ok := h.bindCategorizeParams(c)
	if !ok {
		return
	}

	// Reject an unknown model before queueing; the caller gets the
	// configuration error now instead of a failed job later.
	if _, err := h.App.Registry.Resolve(c.Request.Context(), params.Model); err != nil {
		if errors.Is(err, models.ErrUnsupportedModel) {
			BadRequest(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("Failed to resolve model: %v", err))
		return
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:        uuid.NewString(),
		Model:     params.Model,
		State:     models.JobStateQueued,
		CaseCount: len(params.Cases),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.App.Store.CreateJob(c.Request.Context(), job); err != nil {
		Internal(c, fmt.Sprintf("Failed to create job: %v", err))
		return
	}

	task, err := tasks.NewCategorizationTask(tasks.CategorizationJobPayload{
		JobID:       job.ID,
		Model:       params.Model,
		Cases:       params.Cases,
		Categories:  params.Categories,
		Resolutions: params.Resolutions,
	})
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to build job task: %v", err))
		return
	}
	if _, err := h.Enqueuer.Enqueue(task); err != nil {
		log.Errorf("Failed to enqueue job %s: %v", job.ID, err)
		Internal(c, fmt.Sprintf("Failed to enqueue job: %v", err))
		return
	}

	c.JSON(http.StatusAccepted, job)
}

func (h *APIHandler) GetJobHandler(c *gin.Context) {
	job, err := h.App.Store.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			NotFound(c, err.Error())
			return
		}
		Internal(c, fmt.Sprintf("Failed to fetch job: %v", err))
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *APIHandler) ListRunsHandler(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			BadRequest(c, "Invalid limit parameter: "+raw)
			return
		}
		limit = parsed
	}

	runs, err := h.App.Store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		Internal(c, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	c.JSON(http.StatusOK, runs)
}

// bindCategorizeParams parses the request body and fills in store
// snapshots and the default model where the body leaves them out.
func (h *APIHandler) bindCategorizeParams(c *gin.Context) (services.CategorizeParams, bool) {
	var req CategorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return services.CategorizeParams{}, false
	}
	if len(req.Cases) == 0 {
		BadRequest(c, "Request must include at least one case")
		return services.CategorizeParams{}, false
	}

	params := services.CategorizeParams{
		Cases:       req.Cases,
		Categories:  req.AvailableCategories,
		Resolutions: req.AvailableResolutions,
		Model:       req.SelectedModel,
	}
	if len(params.Categories) == 0 {
		params.Categories = h.App.Taxonomy.Categories()
	}
	if len(params.Resolutions) == 0 {
		params.Resolutions = h.App.Taxonomy.Resolutions()
	}
	if params.Model == "" {
		params.Model = h.App.Config.Categorization.DefaultModel
	}
	return params, true
}
