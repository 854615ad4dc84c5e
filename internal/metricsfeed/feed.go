// Package metricsfeed caches platform metric snapshots in Redis and fans job
// updates out to external subscribers over pub/sub.
package metricsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/rules"
)

const (
	// JobUpdatesChannel is the pub/sub channel carrying job update messages.
	JobUpdatesChannel = "distribution:updates"

	keyPrefixCurrent = "metrics:current:"
	keyPrefixWindow  = "metrics:window:"

	currentTTL = 24 * time.Hour
	windowTTL  = 30 * 24 * time.Hour
)

// Feed is the Redis-backed metric cache. The refresh interval is owned by
// the caller (the poll worker); the feed only stores and loads snapshots.
type Feed struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewFeed creates a metrics feed
func NewFeed(client redis.UniversalClient, log logger.Logger) *Feed {
	return &Feed{
		client: client,
		logger: log,
	}
}

// Store writes a platform's current metric values.
func (f *Feed) Store(ctx context.Context, platformKey string, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	key := keyPrefixCurrent + platformKey
	fields := make(map[string]string, len(values))
	for name, value := range values {
		fields[name] = strconv.FormatFloat(value, 'f', -1, 64)
	}

	pipe := f.client.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, currentTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		f.logger.Warn("failed to store metrics",
			logger.String("platform", platformKey),
			logger.Error(err),
		)
		return fmt.Errorf("store metrics: %w", err)
	}
	return nil
}

// SnapshotWindow copies the platform's current metrics into a timeframe
// window key. Callers take a snapshot at the start of each window so the
// change operator has a baseline to diff against.
func (f *Feed) SnapshotWindow(ctx context.Context, platformKey, timeframe string) error {
	current, err := f.client.HGetAll(ctx, keyPrefixCurrent+platformKey).Result()
	if err != nil {
		return fmt.Errorf("read current metrics: %w", err)
	}
	if len(current) == 0 {
		return nil
	}

	key := windowKey(platformKey, timeframe)
	pipe := f.client.Pipeline()
	pipe.HSet(ctx, key, current)
	pipe.Expire(ctx, key, windowTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot window: %w", err)
	}
	return nil
}

// Load reads a platform's metric snapshot, including the history windows for
// the given timeframes.
func (f *Feed) Load(ctx context.Context, platformKey string, timeframes []string) (rules.Metrics, error) {
	m := rules.Metrics{
		Values:  map[string]float64{},
		History: map[string]map[string]float64{},
	}

	current, err := f.client.HGetAll(ctx, keyPrefixCurrent+platformKey).Result()
	if err != nil {
		return m, fmt.Errorf("load current metrics: %w", err)
	}
	for name, raw := range current {
		value, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			f.logger.Warn("dropping unparseable metric",
				logger.String("platform", platformKey),
				logger.String("metric", name),
				logger.Error(parseErr),
			)
			continue
		}
		m.Values[name] = value
	}

	for _, timeframe := range timeframes {
		window, windowErr := f.client.HGetAll(ctx, windowKey(platformKey, timeframe)).Result()
		if windowErr != nil {
			return m, fmt.Errorf("load %s window: %w", timeframe, windowErr)
		}
		if len(window) == 0 {
			continue
		}
		m.History[timeframe] = make(map[string]float64, len(window))
		for name, raw := range window {
			if value, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
				m.History[timeframe][name] = value
			}
		}
	}

	return m, nil
}

// jobUpdateMessage is the wire format on the updates channel.
type jobUpdateMessage struct {
	JobID       string    `json:"job_id"`
	ItemID      string    `json:"item_id"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	PlatformKey string    `json:"platform_key"`
	Result      string    `json:"result"`
	ExternalRef string    `json:"external_ref,omitempty"`
	ErrorClass  string    `json:"error_class,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// PublishJobUpdate pushes one recorded result to the updates channel so
// dashboards can follow jobs without polling.
func (f *Feed) PublishJobUpdate(ctx context.Context, job *models.DistributionJob, result *models.DistributionResult) error {
	message := jobUpdateMessage{
		JobID:       job.ID.String(),
		ItemID:      job.ContentItemID.String(),
		Status:      string(job.Status),
		Progress:    job.Progress,
		PlatformKey: result.PlatformKey,
		Result:      string(result.Status),
		ExternalRef: result.ExternalRef,
		ErrorClass:  string(result.ErrorClass),
		PublishedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal job update: %w", err)
	}

	if err := f.client.Publish(ctx, JobUpdatesChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish job update: %w", err)
	}
	return nil
}

func windowKey(platformKey, timeframe string) string {
	return keyPrefixWindow + timeframe + ":" + platformKey
}
