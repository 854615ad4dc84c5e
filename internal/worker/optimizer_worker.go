// Package worker provides background workers for the labelcore service.
// optimizer_worker.go implements the metric polling and rule evaluation loop.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tonearm/labelcore/internal/adapter"
	"github.com/tonearm/labelcore/internal/alerts"
	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
	"github.com/tonearm/labelcore/internal/telemetry"
)

const (
	defaultPollInterval = 5 * time.Minute
	defaultFetchTimeout = 15 * time.Second
)

// defaultWindows maps condition timeframes to snapshot intervals. A window
// snapshot is the baseline the change operator diffs against.
var defaultWindows = map[string]time.Duration{
	"daily":  24 * time.Hour,
	"weekly": 7 * 24 * time.Hour,
}

// Catalog is the slice of the database repository the worker reads.
type Catalog interface {
	ListContentItems(ctx context.Context) ([]models.ContentItem, error)
	ListPlatformConfigs(ctx context.Context, itemID uuid.UUID, enabledOnly bool) ([]models.PlatformConfig, error)
	GetPlatformProfile(ctx context.Context, key string) (*models.PlatformProfile, error)
}

// RuleSource lists enabled optimization rules in evaluation order.
type RuleSource interface {
	List(ctx context.Context, platformKey string, enabledOnly bool) ([]models.OptimizationRule, error)
}

// AlertStore lists alert rules and persists fired alerts.
type AlertStore interface {
	ListRules(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error)
	CreateAlert(ctx context.Context, alert *models.Alert) error
}

// MetricFeed caches platform metrics between polls.
type MetricFeed interface {
	Store(ctx context.Context, platformKey string, values map[string]float64) error
	SnapshotWindow(ctx context.Context, platformKey, timeframe string) error
	Load(ctx context.Context, platformKey string, timeframes []string) (rules.Metrics, error)
}

// OptimizerWorker polls platform metrics into the feed, evaluates alert
// rules, and applies optimization rules to the catalog.
type OptimizerWorker struct {
	registry  *adapter.Registry
	feed      MetricFeed
	catalog   Catalog
	ruleStore RuleSource
	alerts    AlertStore
	engine    *rules.Engine
	evaluator *alerts.Evaluator
	telemetry *telemetry.Provider
	logger    logger.Logger
	tracer    trace.Tracer

	pollInterval time.Duration
	fetchTimeout time.Duration
	windows      map[string]time.Duration
	lastSnapshot map[string]time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// OptimizerWorkerConfig holds configuration options
type OptimizerWorkerConfig struct {
	PollInterval time.Duration
	FetchTimeout time.Duration
	Windows      map[string]time.Duration
}

// DefaultOptimizerWorkerConfig returns sensible defaults
func DefaultOptimizerWorkerConfig() OptimizerWorkerConfig {
	return OptimizerWorkerConfig{
		PollInterval: defaultPollInterval,
		FetchTimeout: defaultFetchTimeout,
		Windows:      defaultWindows,
	}
}

// NewOptimizerWorker creates a new optimizer worker
func NewOptimizerWorker(
	registry *adapter.Registry,
	feed MetricFeed,
	catalog Catalog,
	ruleStore RuleSource,
	alertStore AlertStore,
	engine *rules.Engine,
	cfg OptimizerWorkerConfig,
	tel *telemetry.Provider,
	log logger.Logger,
) *OptimizerWorker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	if len(cfg.Windows) == 0 {
		cfg.Windows = defaultWindows
	}

	return &OptimizerWorker{
		registry:     registry,
		feed:         feed,
		catalog:      catalog,
		ruleStore:    ruleStore,
		alerts:       alertStore,
		engine:       engine,
		evaluator:    alerts.NewEvaluator(),
		telemetry:    tel,
		logger:       log,
		tracer:       otel.Tracer("optimizer-worker"),
		pollInterval: cfg.PollInterval,
		fetchTimeout: cfg.FetchTimeout,
		windows:      cfg.Windows,
		lastSnapshot: map[string]time.Time{},
		stopChan:     make(chan struct{}),
	}
}

// Start begins the polling loop
func (w *OptimizerWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("optimizer worker started",
		logger.Duration("poll_interval", w.pollInterval))
}

// Stop gracefully stops the worker
func (w *OptimizerWorker) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("optimizer worker stopped")
}

// IsRunning returns whether the worker is currently running
func (w *OptimizerWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

func (w *OptimizerWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Process immediately on start
	w.processOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.processOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *OptimizerWorker) processOnce(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "optimizer.poll")
	defer span.End()

	w.refreshFeed(ctx)
	w.checkAlerts(ctx)
	w.applyRules(ctx)
}

// refreshFeed pulls every registered platform's metrics into the feed, then
// rolls any window snapshots that are due.
func (w *OptimizerWorker) refreshFeed(ctx context.Context) {
	for _, key := range w.registry.Keys() {
		ad, err := w.registry.Get(key)
		if err != nil {
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
		start := time.Now()
		values, err := ad.FetchMetrics(fetchCtx, key)
		cancel()
		if w.telemetry != nil {
			w.telemetry.RecordFeedRefresh(key, time.Since(start), err)
		}
		if err != nil {
			w.logger.Warn("metric fetch failed",
				logger.String("platform", key),
				logger.Error(err))
			continue
		}

		if err := w.feed.Store(ctx, key, values); err != nil {
			w.logger.Error("feed store failed",
				logger.String("platform", key),
				logger.Error(err))
			continue
		}

		w.rollWindows(ctx, key)
	}
}

func (w *OptimizerWorker) rollWindows(ctx context.Context, platformKey string) {
	now := time.Now()
	for timeframe, interval := range w.windows {
		snapKey := platformKey + ":" + timeframe
		if last, ok := w.lastSnapshot[snapKey]; ok && now.Sub(last) < interval {
			continue
		}
		if err := w.feed.SnapshotWindow(ctx, platformKey, timeframe); err != nil {
			w.logger.Warn("window snapshot failed",
				logger.String("platform", platformKey),
				logger.String("timeframe", timeframe),
				logger.Error(err))
			continue
		}
		w.lastSnapshot[snapKey] = now
	}
}

func (w *OptimizerWorker) checkAlerts(ctx context.Context) {
	ruleSet, err := w.alerts.ListRules(ctx, true)
	if err != nil {
		w.logger.Error("failed to list alert rules", logger.Error(err))
		return
	}
	if len(ruleSet) == 0 {
		return
	}

	timeframes := alertTimeframes(ruleSet)
	for _, key := range w.registry.Keys() {
		m, err := w.feed.Load(ctx, key, timeframes)
		if err != nil {
			w.logger.Error("feed load failed",
				logger.String("platform", key),
				logger.Error(err))
			continue
		}

		fired, warnings := w.evaluator.Check(ruleSet, key, m)
		for _, warning := range warnings {
			w.logger.Warn("alert rule skipped",
				logger.String("platform", key),
				logger.String("rule", warning.RuleName),
				logger.String("reason", warning.Reason))
		}

		for i := range fired {
			if err := w.alerts.CreateAlert(ctx, &fired[i]); err != nil {
				w.logger.Error("failed to persist alert",
					logger.String("platform", key),
					logger.Error(err))
				continue
			}
			if w.telemetry != nil {
				w.telemetry.RecordAlert(key, fired[i].Severity)
			}
			w.logger.Info("alert fired",
				logger.String("platform", key),
				logger.String("rule", fired[i].RuleName),
				logger.String("metric", fired[i].Metric),
				logger.String("severity", string(fired[i].Severity)))
		}
	}
}

// applyRules walks the catalog and runs the rule engine against every
// enabled platform config that has a registered adapter.
func (w *OptimizerWorker) applyRules(ctx context.Context) {
	items, err := w.catalog.ListContentItems(ctx)
	if err != nil {
		w.logger.Error("failed to list content items", logger.Error(err))
		return
	}

	for i := range items {
		w.applyRulesForItem(ctx, &items[i])
	}
}

func (w *OptimizerWorker) applyRulesForItem(ctx context.Context, item *models.ContentItem) {
	configs, err := w.catalog.ListPlatformConfigs(ctx, item.ID, true)
	if err != nil {
		w.logger.Error("failed to list platform configs",
			logger.String("item_id", item.ID.String()),
			logger.Error(err))
		return
	}

	for i := range configs {
		cfg := configs[i]

		if _, err := w.registry.Get(cfg.PlatformKey); err != nil {
			continue
		}

		ruleSet, err := w.ruleStore.List(ctx, cfg.PlatformKey, true)
		if err != nil {
			w.logger.Error("failed to list rules",
				logger.String("platform", cfg.PlatformKey),
				logger.Error(err))
			return
		}
		if len(ruleSet) == 0 {
			continue
		}

		profile, err := w.catalog.GetPlatformProfile(ctx, cfg.PlatformKey)
		if err != nil {
			w.logger.Warn("no profile for platform",
				logger.String("platform", cfg.PlatformKey),
				logger.Error(err))
			continue
		}

		m, err := w.feed.Load(ctx, cfg.PlatformKey, ruleTimeframes(ruleSet))
		if err != nil {
			w.logger.Error("feed load failed",
				logger.String("platform", cfg.PlatformKey),
				logger.Error(err))
			continue
		}

		evalCtx, span := w.tracer.Start(ctx, "optimizer.apply",
			trace.WithAttributes(
				attribute.String("item_id", item.ID.String()),
				attribute.String("platform", cfg.PlatformKey),
			))

		in := rules.Input{Item: *item, Config: cfg, Profile: *profile, Metrics: m}
		applied, warnings, err := w.engine.ApplyRules(evalCtx, in, ruleSet)
		span.End()

		if w.telemetry != nil {
			w.telemetry.RecordEvaluation(applied, len(warnings))
		}
		if err != nil {
			w.logger.Error("rule application failed",
				logger.String("item_id", item.ID.String()),
				logger.String("platform", cfg.PlatformKey),
				logger.Error(err))
			continue
		}

		for _, warning := range warnings {
			w.logger.Warn("rule skipped",
				logger.String("platform", cfg.PlatformKey),
				logger.String("rule", warning.RuleName),
				logger.String("reason", warning.Reason))
		}
		for _, action := range applied {
			w.logger.Info("rule applied",
				logger.String("item_id", item.ID.String()),
				logger.String("platform", cfg.PlatformKey),
				logger.String("rule", action.RuleName),
				logger.String("action", string(action.Kind)))
		}
	}
}

// ruleTimeframes collects the distinct timeframes the change conditions
// reference so the feed loads only the windows in use.
func ruleTimeframes(ruleSet []models.OptimizationRule) []string {
	seen := map[string]bool{}
	var frames []string
	for i := range ruleSet {
		for _, c := range ruleSet[i].Conditions {
			if c.Timeframe != "" && !seen[c.Timeframe] {
				seen[c.Timeframe] = true
				frames = append(frames, c.Timeframe)
			}
		}
	}
	return frames
}

func alertTimeframes(ruleSet []models.AlertRule) []string {
	seen := map[string]bool{}
	var frames []string
	for i := range ruleSet {
		for _, c := range ruleSet[i].Conditions {
			if c.Timeframe != "" && !seen[c.Timeframe] {
				seen[c.Timeframe] = true
				frames = append(frames, c.Timeframe)
			}
		}
	}
	return frames
}
