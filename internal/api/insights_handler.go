package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/projector"
	"github.com/tonearm/labelcore/internal/rules"
	"github.com/tonearm/labelcore/internal/search"
)

// getOptimizations evaluates the rule set against an item's platforms
// without persisting anything
// GET /api/v1/items/:id/optimizations?platform=spotify
func (r *Router) getOptimizations(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	optimizations, warnings, err := r.evaluateItem(ctx, id, c.Query("platform"))
	if err != nil {
		handleRepositoryError(c, err, "item", "evaluate")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"optimizations": optimizations,
		"warnings":      warnings,
		"count":         len(optimizations),
	})
}

// getProjections projects revenue for an item over one or all periods
// GET /api/v1/items/:id/projections?period=month
func (r *Router) getProjections(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	optimizations, _, err := r.evaluateItem(ctx, id, c.Query("platform"))
	if err != nil {
		handleRepositoryError(c, err, "item", "evaluate")
		return
	}

	if periodParam := c.Query("period"); periodParam != "" {
		period := models.ProjectionPeriod(periodParam)
		if !period.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown projection period: " + periodParam,
			})
			return
		}
		c.JSON(http.StatusOK, projector.Project(optimizations, period))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projections": projector.ProjectAll(optimizations),
	})
}

// evaluateItem runs a pure rule evaluation for every enabled platform config
// of the item, optionally restricted to one platform.
func (r *Router) evaluateItem(ctx context.Context, itemID uuid.UUID, platformFilter string) ([]models.PlatformOptimization, []models.RuleEvaluationWarning, error) {
	item, err := r.catalog.GetContentItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	configs, err := r.catalog.ListPlatformConfigs(ctx, itemID, true)
	if err != nil {
		return nil, nil, err
	}

	optimizations := []models.PlatformOptimization{}
	warnings := []models.RuleEvaluationWarning{}

	for i := range configs {
		cfg := configs[i]
		if platformFilter != "" && cfg.PlatformKey != platformFilter {
			continue
		}

		profile, err := r.catalog.GetPlatformProfile(ctx, cfg.PlatformKey)
		if err != nil {
			r.logger.Warn("no profile for platform, skipping evaluation",
				logger.String("platform", cfg.PlatformKey),
				logger.Error(err))
			continue
		}

		ruleSet, err := r.rulesRepo.List(ctx, cfg.PlatformKey, true)
		if err != nil {
			return nil, nil, err
		}

		m, err := r.feed.Load(ctx, cfg.PlatformKey, collectTimeframes(ruleSet))
		if err != nil {
			return nil, nil, err
		}

		in := rules.Input{Item: *item, Config: cfg, Profile: *profile, Metrics: m}
		opt, ruleWarnings := r.engine.Evaluate(in, ruleSet)
		optimizations = append(optimizations, *opt)
		warnings = append(warnings, ruleWarnings...)
	}

	return optimizations, warnings, nil
}

func collectTimeframes(ruleSet []models.OptimizationRule) []string {
	seen := map[string]bool{}
	var frames []string
	for i := range ruleSet {
		for _, cond := range ruleSet[i].Conditions {
			if cond.Timeframe != "" && !seen[cond.Timeframe] {
				seen[cond.Timeframe] = true
				frames = append(frames, cond.Timeframe)
			}
		}
	}
	return frames
}

// listHistory returns audit trail entries from Postgres
// GET /api/v1/history?platform_key=spotify&status=failed
func (r *Router) listHistory(c *gin.Context) {
	ctx := c.Request.Context()

	var filter models.DistributionHistoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	history, err := r.historyRepo.List(ctx, &filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"count":   len(history),
	})
}

// searchHistory runs a free-text query over the indexed audit trail
// GET /api/v1/history/search?q=midnight+tapes&platform_key=bandcamp
func (r *Router) searchHistory(c *gin.Context) {
	ctx := c.Request.Context()

	if r.indexer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Search is not configured",
		})
		return
	}

	var query search.Query
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid query parameters",
			"details": err.Error(),
		})
		return
	}

	hits, err := r.indexer.Search(ctx, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to search history",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hits":  hits,
		"count": len(hits),
	})
}
