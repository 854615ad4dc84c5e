// Package api exposes the HTTP surface: catalog CRUD, distribution jobs,
// optimization rules, alerts, and the audit trail.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/tonearm/labelcore/internal/config"
	"github.com/tonearm/labelcore/internal/database"
	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/metricsfeed"
	"github.com/tonearm/labelcore/internal/orchestrator"
	"github.com/tonearm/labelcore/internal/rules"
	"github.com/tonearm/labelcore/internal/search"
	"github.com/tonearm/labelcore/internal/telemetry"
)

// Default timeout and health constants.
const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"
)

// Router holds the API dependencies
type Router struct {
	catalog     *database.Repository
	rulesRepo   *database.RulesRepository
	alertsRepo  *database.AlertsRepository
	historyRepo *database.HistoryRepository
	orch        *orchestrator.Orchestrator
	engine      *rules.Engine
	feed        *metricsfeed.Feed
	indexer     *search.Indexer
	telemetry   *telemetry.Provider
	redisClient redis.UniversalClient
	cfg         *config.Config
	logger      logger.Logger
}

// Deps bundles the router's dependencies. The indexer and telemetry provider
// are optional; their endpoints degrade gracefully when absent.
type Deps struct {
	Catalog     *database.Repository
	Rules       *database.RulesRepository
	Alerts      *database.AlertsRepository
	History     *database.HistoryRepository
	Orch        *orchestrator.Orchestrator
	Engine      *rules.Engine
	Feed        *metricsfeed.Feed
	Indexer     *search.Indexer
	Telemetry   *telemetry.Provider
	RedisClient redis.UniversalClient
	Config      *config.Config
	Logger      logger.Logger
}

// NewRouter creates a new API router
func NewRouter(deps Deps) *Router {
	return &Router{
		catalog:     deps.Catalog,
		rulesRepo:   deps.Rules,
		alertsRepo:  deps.Alerts,
		historyRepo: deps.History,
		orch:        deps.Orch,
		engine:      deps.Engine,
		feed:        deps.Feed,
		indexer:     deps.Indexer,
		telemetry:   deps.Telemetry,
		redisClient: deps.RedisClient,
		cfg:         deps.Config,
		logger:      deps.Logger,
	}
}

// SetupRoutes builds the gin engine with middleware and all service routes.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(r.logger))
	router.Use(corsMiddleware())

	// Health and metrics are public, no versioning
	router.GET("/health", r.healthCheck)
	if r.telemetry != nil {
		router.GET("/metrics", gin.WrapH(r.telemetry.Handler()))
	}

	v1 := router.Group("/api/v1")

	// Catalog
	items := v1.Group("/items")
	items.GET("", r.listItems)
	items.POST("", r.createItem)
	items.GET("/:id", r.getItem)
	items.PUT("/:id", r.updateItem)
	items.DELETE("/:id", r.deleteItem)
	items.GET("/:id/platforms", r.listItemPlatforms)
	items.PUT("/:id/platforms", r.upsertItemPlatform)
	items.GET("/:id/optimizations", r.getOptimizations)
	items.GET("/:id/projections", r.getProjections)

	// Platform profiles
	platforms := v1.Group("/platforms")
	platforms.GET("", r.listPlatformProfiles)
	platforms.PUT("/:key", r.upsertPlatformProfile)

	// Distribution jobs
	distributions := v1.Group("/distributions")
	distributions.POST("", r.dispatch)
	distributions.GET("", r.listJobs)
	distributions.GET("/:id", r.getJob)
	distributions.POST("/:id/cancel", r.cancelJob)
	distributions.POST("/:id/results", r.recordResult)

	// Optimization rules
	ruleRoutes := v1.Group("/rules")
	ruleRoutes.GET("", r.listRules)
	ruleRoutes.POST("", r.createRule)
	ruleRoutes.GET("/:id", r.getRule)
	ruleRoutes.PUT("/:id", r.updateRule)
	ruleRoutes.DELETE("/:id", r.deleteRule)

	// Alert rules and fired alerts
	alertRules := v1.Group("/alert-rules")
	alertRules.GET("", r.listAlertRules)
	alertRules.POST("", r.createAlertRule)
	alertRules.GET("/:id", r.getAlertRule)
	alertRules.PUT("/:id", r.updateAlertRule)
	alertRules.DELETE("/:id", r.deleteAlertRule)

	alertRoutes := v1.Group("/alerts")
	alertRoutes.GET("", r.listAlerts)
	alertRoutes.POST("/:id/acknowledge", r.acknowledgeAlert)

	// Audit trail
	history := v1.Group("/history")
	history.GET("", r.listHistory)
	history.GET("/search", r.searchHistory)

	return router
}

// healthCheck returns the service health status
func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "labelcore",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbConnected := true
	if err := r.catalog.Ping(ctx); err != nil {
		dbConnected = false
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected := false
	if r.redisClient != nil {
		redisConnected = r.redisClient.Ping(ctx).Err() == nil
	}
	health["redis"] = gin.H{"connected": redisConnected}
	if !redisConnected && health["status"] == healthStatusHealthy {
		health["status"] = healthStatusDegraded
	}

	c.JSON(200, health)
}
