package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonearm/labelcore/internal/models"
)

// listRules returns optimization rules in evaluation order
// GET /api/v1/rules?platform=spotify&enabled_only=true
func (r *Router) listRules(c *gin.Context) {
	ctx := c.Request.Context()

	platformKey := c.Query("platform")
	enabledOnly := c.Query("enabled_only") == "true"

	ruleSet, err := r.rulesRepo.List(ctx, platformKey, enabledOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list rules",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rules": ruleSet,
		"count": len(ruleSet),
	})
}

// createRule creates a new optimization rule
// POST /api/v1/rules
func (r *Router) createRule(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.OptimizationRuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	rule, err := r.rulesRepo.Create(ctx, &req)
	if err != nil {
		handleRepositoryError(c, err, "rule", "create")
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// getRule retrieves an optimization rule by ID
// GET /api/v1/rules/:id
func (r *Router) getRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "rule")
	if !ok {
		return
	}

	rule, err := r.rulesRepo.GetByID(ctx, id)
	if err != nil {
		handleRepositoryError(c, err, "rule", "get")
		return
	}

	c.JSON(http.StatusOK, rule)
}

// updateRule updates an optimization rule
// PUT /api/v1/rules/:id
func (r *Router) updateRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "rule")
	if !ok {
		return
	}

	var req models.OptimizationRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	rule, err := r.rulesRepo.Update(ctx, id, &req)
	if err != nil {
		if errors.Is(err, models.ErrNoFieldsToUpdate) {
			handleValidationError(c, err)
			return
		}
		handleRepositoryError(c, err, "rule", "update")
		return
	}

	c.JSON(http.StatusOK, rule)
}

// deleteRule deletes an optimization rule
// DELETE /api/v1/rules/:id
func (r *Router) deleteRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "rule")
	if !ok {
		return
	}

	if err := r.rulesRepo.Delete(ctx, id); err != nil {
		handleRepositoryError(c, err, "rule", "delete")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Rule deleted successfully",
	})
}
