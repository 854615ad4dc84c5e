package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tonearm/labelcore/internal/models"
)

// dispatch starts a distribution job for a content item
// POST /api/v1/distributions
func (r *Router) dispatch(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	item, err := r.catalog.GetContentItemByID(ctx, req.ContentItemID)
	if err != nil {
		handleRepositoryError(c, err, "item", "get")
		return
	}

	configs, err := r.catalog.ListPlatformConfigs(ctx, item.ID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to load platform configs",
		})
		return
	}

	job, err := r.orch.Dispatch(ctx, *item, configs, req.TargetPlatforms)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTarget) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to dispatch",
		})
		return
	}

	c.JSON(http.StatusAccepted, job)
}

// listJobs returns all distribution jobs, newest first
// GET /api/v1/distributions
func (r *Router) listJobs(c *gin.Context) {
	jobs := r.orch.ListJobs()

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// getJob retrieves a distribution job by ID
// GET /api/v1/distributions/:id
func (r *Router) getJob(c *gin.Context) {
	id, ok := parseUUID(c, "id", "job")
	if !ok {
		return
	}

	job, err := r.orch.GetJob(id)
	if err != nil {
		handleRepositoryError(c, err, "job", "get")
		return
	}

	c.JSON(http.StatusOK, job)
}

// cancelJob cancels a processing job; pending platforms get failed results
// POST /api/v1/distributions/:id/cancel
func (r *Router) cancelJob(c *gin.Context) {
	id, ok := parseUUID(c, "id", "job")
	if !ok {
		return
	}

	job, err := r.orch.Cancel(id)
	if err != nil {
		if errors.Is(err, models.ErrJobCompleted) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job already completed",
			})
			return
		}
		handleRepositoryError(c, err, "job", "cancel")
		return
	}

	c.JSON(http.StatusOK, job)
}

// resultRequest is the payload for recording an out-of-band platform result,
// e.g. a delayed confirmation arriving via webhook relay.
type resultRequest struct {
	PlatformKey string             `binding:"required"                                        json:"platform_key"`
	Status      string             `binding:"required,oneof=success failed"                   json:"status"`
	ExternalRef string             `json:"external_ref"`
	ErrorClass  string             `binding:"omitempty,oneof=timeout rejected transient cancelled" json:"error_class"`
	ErrorDetail string             `json:"error_detail"`
	Metrics     map[string]float64 `json:"metrics"`
}

// recordResult records a platform result on a job
// POST /api/v1/distributions/:id/results
func (r *Router) recordResult(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "job")
	if !ok {
		return
	}

	var req resultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	result := models.DistributionResult{
		PlatformKey: req.PlatformKey,
		Status:      models.ResultStatus(req.Status),
		ExternalRef: req.ExternalRef,
		ErrorClass:  models.ErrorClass(req.ErrorClass),
		ErrorDetail: req.ErrorDetail,
		Metrics:     req.Metrics,
		RecordedAt:  time.Now().UTC(),
	}

	job, err := r.orch.RecordResult(ctx, id, result)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDuplicateResult):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Result already recorded for this platform",
			})
		case errors.Is(err, models.ErrJobCompleted):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Job already completed",
			})
		case errors.Is(err, models.ErrInvalidTarget):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Platform is not a target of this job",
			})
		default:
			handleRepositoryError(c, err, "job", "update")
		}
		return
	}

	c.JSON(http.StatusOK, job)
}
