package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonearm/labelcore/internal/models"
)

// listAlertRules returns alert rules
// GET /api/v1/alert-rules?enabled_only=true
func (r *Router) listAlertRules(c *gin.Context) {
	ctx := c.Request.Context()

	enabledOnly := c.Query("enabled_only") == "true"

	ruleSet, err := r.alertsRepo.ListRules(ctx, enabledOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list alert rules",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rules": ruleSet,
		"count": len(ruleSet),
	})
}

// createAlertRule creates a new alert rule
// POST /api/v1/alert-rules
func (r *Router) createAlertRule(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.AlertRuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	rule, err := r.alertsRepo.CreateRule(ctx, &req)
	if err != nil {
		handleRepositoryError(c, err, "alert rule", "create")
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// getAlertRule retrieves an alert rule by ID
// GET /api/v1/alert-rules/:id
func (r *Router) getAlertRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "alert rule")
	if !ok {
		return
	}

	rule, err := r.alertsRepo.GetRuleByID(ctx, id)
	if err != nil {
		handleRepositoryError(c, err, "alert rule", "get")
		return
	}

	c.JSON(http.StatusOK, rule)
}

// updateAlertRule updates an alert rule
// PUT /api/v1/alert-rules/:id
func (r *Router) updateAlertRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "alert rule")
	if !ok {
		return
	}

	var req models.AlertRuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	rule, err := r.alertsRepo.UpdateRule(ctx, id, &req)
	if err != nil {
		handleRepositoryError(c, err, "alert rule", "update")
		return
	}

	c.JSON(http.StatusOK, rule)
}

// deleteAlertRule deletes an alert rule
// DELETE /api/v1/alert-rules/:id
func (r *Router) deleteAlertRule(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "alert rule")
	if !ok {
		return
	}

	if err := r.alertsRepo.DeleteRule(ctx, id); err != nil {
		handleRepositoryError(c, err, "alert rule", "delete")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Alert rule deleted successfully",
	})
}

// listAlerts returns fired alerts with optional filters
// GET /api/v1/alerts?platform=spotify&severity=high&unacknowledged=true
func (r *Router) listAlerts(c *gin.Context) {
	ctx := c.Request.Context()

	var filter models.AlertFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	alerts, err := r.alertsRepo.ListAlerts(ctx, &filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// acknowledgeAlert marks an alert as acknowledged. Acknowledging twice is a
// no-op and returns the alert unchanged.
// POST /api/v1/alerts/:id/acknowledge
func (r *Router) acknowledgeAlert(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "alert")
	if !ok {
		return
	}

	alert, err := r.alertsRepo.Acknowledge(ctx, id)
	if err != nil {
		handleRepositoryError(c, err, "alert", "acknowledge")
		return
	}

	if r.telemetry != nil {
		r.telemetry.RecordAcknowledge()
	}

	c.JSON(http.StatusOK, alert)
}
