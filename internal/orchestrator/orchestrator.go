// Package orchestrator fans content items out to destination platforms,
// tracks per-platform results, and derives job status and progress.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tonearm/labelcore/internal/adapter"
	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/retry"
)

const (
	defaultPublishTimeout = 30 * time.Second
)

// HistorySink records each platform result into the audit trail. Failures
// are logged and never block result recording.
type HistorySink interface {
	RecordResult(ctx context.Context, entry *models.DistributionHistory) error
}

// UpdatePublisher pushes job updates to external consumers (e.g. a Redis
// channel the dashboard subscribes to).
type UpdatePublisher interface {
	PublishJobUpdate(ctx context.Context, job *models.DistributionJob, result *models.DistributionResult) error
}

// Telemetry counts dispatch outcomes. Implemented by the prometheus
// collectors; a no-op suffices in tests.
type Telemetry interface {
	JobDispatched(platformCount int)
	ResultRecorded(platformKey string, status models.ResultStatus)
	JobCompleted(duration time.Duration)
}

// Config holds orchestrator tuning knobs.
type Config struct {
	// FanOutLimit bounds concurrent adapter calls per job. Zero means one
	// goroutine per target, which is fine at tens of platforms.
	FanOutLimit int
	// PublishTimeout bounds each adapter publish call.
	PublishTimeout time.Duration
	// Retry configures per-platform retry on transient failures.
	Retry retry.Config
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		FanOutLimit:    0,
		PublishTimeout: defaultPublishTimeout,
		Retry:          retry.DefaultConfig(),
	}
}

// Orchestrator coordinates dispatch fan-out. All job mutations funnel
// through the JobStore; the orchestrator never writes platform configs.
type Orchestrator struct {
	store    *JobStore
	registry *adapter.Registry
	history  HistorySink
	updates  UpdatePublisher
	tele     Telemetry
	logger   logger.Logger
	tracer   trace.Tracer
	cfg      Config

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc

	wg sync.WaitGroup
}

// New creates an orchestrator. history, updates and tele may be nil.
func New(store *JobStore, registry *adapter.Registry, history HistorySink, updates UpdatePublisher, tele Telemetry, log logger.Logger, cfg Config) *Orchestrator {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return &Orchestrator{
		store:    store,
		registry: registry,
		history:  history,
		updates:  updates,
		tele:     tele,
		logger:   log,
		tracer:   otel.Tracer("distribution-orchestrator"),
		cfg:      cfg,
		cancels:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Dispatch validates the target set, snapshots the item, creates the job and
// kicks off the parallel fan-out. It returns as soon as the fan-out is
// started; callers observe progress via GetJob or Subscribe. Adapter
// failures surface as failed per-platform results, never as errors here.
func (o *Orchestrator) Dispatch(ctx context.Context, item models.ContentItem, configs []models.PlatformConfig, targets []string) (*models.DistributionJob, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: empty target set", models.ErrInvalidTarget)
	}

	configByKey := make(map[string]models.PlatformConfig, len(configs))
	for i := range configs {
		configByKey[configs[i].PlatformKey] = configs[i]
	}

	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if _, dup := seen[target]; dup {
			return nil, fmt.Errorf("%w: duplicate platform %s", models.ErrInvalidTarget, target)
		}
		seen[target] = struct{}{}

		cfg, ok := configByKey[target]
		if !ok {
			return nil, fmt.Errorf("%w: no platform config for %s", models.ErrInvalidTarget, target)
		}
		if !cfg.Enabled {
			return nil, fmt.Errorf("%w: platform %s is disabled", models.ErrInvalidTarget, target)
		}
	}

	snapshot := item.Clone()
	job := o.store.Create(item.ID, targets)

	// The fan-out runs on a context detached from the caller's: dispatch
	// returning must not tear down in-flight adapter calls. Cancel reaches
	// it through the stored cancel func.
	fanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()

	if o.tele != nil {
		o.tele.JobDispatched(len(targets))
	}
	o.logger.Info("dispatching distribution job",
		logger.String("job_id", job.ID.String()),
		logger.String("item_id", item.ID.String()),
		logger.Strings("targets", targets),
	)

	sem := make(chan struct{}, fanOutSlots(o.cfg.FanOutLimit, len(targets)))
	for _, target := range targets {
		cfg := configByKey[target]
		o.wg.Add(1)
		go func(platformKey string, cfg models.PlatformConfig) {
			defer o.wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			o.dispatchOne(fanCtx, job.ID, &snapshot, &cfg, platformKey)
		}(target, cfg)
	}

	return job, nil
}

// dispatchOne publishes to a single platform and records the outcome. A
// sibling's failure or slowness never delays this platform's result.
func (o *Orchestrator) dispatchOne(ctx context.Context, jobID uuid.UUID, item *models.ContentItem, cfg *models.PlatformConfig, platformKey string) {
	ctx, span := o.tracer.Start(ctx, "distribution.publish",
		trace.WithAttributes(
			attribute.String("job_id", jobID.String()),
			attribute.String("item_id", item.ID.String()),
			attribute.String("platform", platformKey),
		))
	defer span.End()

	result := models.DistributionResult{
		PlatformKey: platformKey,
		RecordedAt:  time.Now().UTC(),
	}

	platformAdapter, err := o.registry.Get(platformKey)
	if err != nil {
		result.Status = models.ResultStatusFailed
		result.ErrorClass = models.ErrorClassRejected
		result.ErrorDetail = err.Error()
		o.record(ctx, jobID, item, result)
		return
	}

	var externalRef string
	publishErr := retry.Do(ctx, o.cfg.Retry, func() error {
		callCtx, cancel := context.WithTimeout(ctx, o.cfg.PublishTimeout)
		defer cancel()

		ref, pubErr := platformAdapter.Publish(callCtx, item, cfg)
		if pubErr != nil {
			return pubErr
		}
		externalRef = ref
		return nil
	})

	if publishErr != nil {
		result.Status = models.ResultStatusFailed
		result.ErrorClass = adapter.Classify(publishErr)
		result.ErrorDetail = publishErr.Error()
	} else {
		result.Status = models.ResultStatusSuccess
		result.ExternalRef = externalRef
	}
	result.RecordedAt = time.Now().UTC()

	o.record(ctx, jobID, item, result)
}

// record funnels a completed adapter call into the store and side sinks.
// Duplicate or post-cancellation results are expected races and only logged.
func (o *Orchestrator) record(ctx context.Context, jobID uuid.UUID, item *models.ContentItem, result models.DistributionResult) {
	job, err := o.store.RecordResult(jobID, result)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateResult) || errors.Is(err, models.ErrJobCompleted) {
			o.logger.Debug("late result dropped",
				logger.String("job_id", jobID.String()),
				logger.String("platform", result.PlatformKey),
				logger.Error(err),
			)
			return
		}
		o.logger.Error("failed to record result",
			logger.String("job_id", jobID.String()),
			logger.String("platform", result.PlatformKey),
			logger.Error(err),
		)
		return
	}

	o.afterRecord(ctx, job, item, &result)
}

func (o *Orchestrator) afterRecord(ctx context.Context, job *models.DistributionJob, item *models.ContentItem, result *models.DistributionResult) {
	if o.tele != nil {
		o.tele.ResultRecorded(result.PlatformKey, result.Status)
		if job.IsTerminal() && job.StartedAt != nil && job.CompletedAt != nil {
			o.tele.JobCompleted(job.CompletedAt.Sub(*job.StartedAt))
		}
	}

	if o.history != nil {
		entry := &models.DistributionHistory{
			JobID:       job.ID,
			ItemID:      item.ID,
			ItemTitle:   item.Title,
			ItemType:    string(item.Type),
			Genre:       item.Genre,
			Tags:        item.Tags,
			PlatformKey: result.PlatformKey,
			Status:      string(result.Status),
			ExternalRef: result.ExternalRef,
			ErrorClass:  string(result.ErrorClass),
			RecordedAt:  result.RecordedAt,
		}
		if err := o.history.RecordResult(ctx, entry); err != nil {
			// History is best effort; the in-memory job stays authoritative.
			o.logger.Warn("failed to record distribution history",
				logger.String("job_id", job.ID.String()),
				logger.String("platform", result.PlatformKey),
				logger.Error(err),
			)
		}
	}

	if o.updates != nil {
		if err := o.updates.PublishJobUpdate(ctx, job, result); err != nil {
			o.logger.Warn("failed to publish job update",
				logger.String("job_id", job.ID.String()),
				logger.Error(err),
			)
		}
	}

	if job.IsTerminal() {
		o.releaseCancel(job.ID)
		o.logger.Info("distribution job completed",
			logger.String("job_id", job.ID.String()),
			logger.Int("progress", job.Progress),
			logger.Int("results", job.ResultCount()),
		)
	}
}

// RecordResult lets out-of-band callers (e.g. webhook callbacks from
// asynchronous platforms) write a result directly. Write-once semantics
// apply: a second result for the same platform fails with
// ErrDuplicateResult.
func (o *Orchestrator) RecordResult(ctx context.Context, jobID uuid.UUID, result models.DistributionResult) (*models.DistributionJob, error) {
	job, err := o.store.RecordResult(jobID, result)
	if err != nil {
		return nil, err
	}
	o.afterRecord(ctx, job, &models.ContentItem{ID: job.ContentItemID}, &result)
	return job, nil
}

// GetJob returns a snapshot of a job.
func (o *Orchestrator) GetJob(jobID uuid.UUID) (*models.DistributionJob, error) {
	return o.store.Get(jobID)
}

// ListJobs returns snapshots of all jobs, newest first.
func (o *Orchestrator) ListJobs() []*models.DistributionJob {
	return o.store.List()
}

// Subscribe registers a callback invoked on every recorded result.
func (o *Orchestrator) Subscribe(jobID uuid.UUID, callback func(*models.DistributionJob)) (func(), error) {
	return o.store.Subscribe(jobID, callback)
}

// Cancel finalizes a processing job. Platforms without a result are failed
// as cancelled; adapters already in flight get a best-effort context cancel
// but are never force-terminated.
func (o *Orchestrator) Cancel(jobID uuid.UUID) (*models.DistributionJob, error) {
	job, err := o.store.Cancel(jobID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	cancel := o.cancels[jobID]
	delete(o.cancels, jobID)
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	o.logger.Info("distribution job cancelled",
		logger.String("job_id", jobID.String()),
		logger.Int("results", job.ResultCount()),
	)
	return job, nil
}

// Wait blocks until all in-flight fan-outs finish. Used for graceful
// shutdown and tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) releaseCancel(jobID uuid.UUID) {
	o.mu.Lock()
	if cancel, ok := o.cancels[jobID]; ok {
		delete(o.cancels, jobID)
		// Job is terminal: every target has a result, so nothing is in
		// flight and the detached context can be released.
		defer cancel()
	}
	o.mu.Unlock()
}

func fanOutSlots(limit, targets int) int {
	if limit <= 0 || limit > targets {
		return targets
	}
	return limit
}
