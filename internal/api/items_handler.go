package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tonearm/labelcore/internal/models"
)

// listItems returns all content items
// GET /api/v1/items
func (r *Router) listItems(c *gin.Context) {
	ctx := c.Request.Context()

	items, err := r.catalog.ListContentItems(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"count": len(items),
	})
}

// createItem creates a new content item
// POST /api/v1/items
func (r *Router) createItem(c *gin.Context) {
	ctx := c.Request.Context()

	var req models.ContentItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	item, err := r.catalog.CreateContentItem(ctx, &req)
	if err != nil {
		handleRepositoryError(c, err, "item", "create")
		return
	}

	c.JSON(http.StatusCreated, item)
}

// getItem retrieves a content item by ID
// GET /api/v1/items/:id
func (r *Router) getItem(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	item, err := r.catalog.GetContentItemByID(ctx, id)
	if err != nil {
		handleRepositoryError(c, err, "item", "get")
		return
	}

	c.JSON(http.StatusOK, item)
}

// updateItem updates a content item
// PUT /api/v1/items/:id
func (r *Router) updateItem(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	var req models.ContentItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		handleValidationError(c, err)
		return
	}

	item, err := r.catalog.UpdateContentItem(ctx, id, &req)
	if err != nil {
		handleRepositoryError(c, err, "item", "update")
		return
	}

	c.JSON(http.StatusOK, item)
}

// deleteItem deletes a content item
// DELETE /api/v1/items/:id
func (r *Router) deleteItem(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	if err := r.catalog.DeleteContentItem(ctx, id); err != nil {
		handleRepositoryError(c, err, "item", "delete")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item deleted successfully",
	})
}

// listItemPlatforms returns an item's platform configs
// GET /api/v1/items/:id/platforms?enabled_only=true
func (r *Router) listItemPlatforms(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	enabledOnly := c.Query("enabled_only") == "true"

	configs, err := r.catalog.ListPlatformConfigs(ctx, id, enabledOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list platform configs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platforms": configs,
		"count":     len(configs),
	})
}

// upsertItemPlatform creates or replaces an item's platform config
// PUT /api/v1/items/:id/platforms
func (r *Router) upsertItemPlatform(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := parseUUID(c, "id", "item")
	if !ok {
		return
	}

	var req models.PlatformConfigUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	cfg, err := r.catalog.UpsertPlatformConfig(ctx, id, &req)
	if err != nil {
		handleRepositoryError(c, err, "platform config", "upsert")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// listPlatformProfiles returns all platform profiles
// GET /api/v1/platforms
func (r *Router) listPlatformProfiles(c *gin.Context) {
	ctx := c.Request.Context()

	profiles, err := r.catalog.ListPlatformProfiles(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list platform profiles",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"platforms": profiles,
		"count":     len(profiles),
	})
}

// upsertPlatformProfile creates or replaces a platform profile
// PUT /api/v1/platforms/:key
func (r *Router) upsertPlatformProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var profile models.PlatformProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}
	profile.Key = c.Param("key")

	if err := r.catalog.UpsertPlatformProfile(ctx, &profile); err != nil {
		handleRepositoryError(c, err, "platform profile", "upsert")
		return
	}

	c.JSON(http.StatusOK, profile)
}
