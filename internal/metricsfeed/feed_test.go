package metricsfeed_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/logger"
	"github.com/tonearm/labelcore/internal/metricsfeed"
	"github.com/tonearm/labelcore/internal/models"
)

func newTestFeed(t *testing.T) (*metricsfeed.Feed, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return metricsfeed.NewFeed(client, logger.NewNopLogger()), mr, client
}

func TestStoreLoadRoundTrip(t *testing.T) {
	t.Helper()

	feed, _, _ := newTestFeed(t)
	ctx := context.Background()

	err := feed.Store(ctx, "spotify", map[string]float64{
		"revenue": 412.5,
		"streams": 12000,
		"rating":  4.5,
	})
	require.NoError(t, err)

	m, err := feed.Load(ctx, "spotify", nil)
	require.NoError(t, err)
	assert.Equal(t, 412.5, m.Values["revenue"])
	assert.Equal(t, 12000.0, m.Values["streams"])
	assert.Equal(t, 4.5, m.Values["rating"])
	assert.Empty(t, m.History)
}

func TestStoreEmptyIsNoOp(t *testing.T) {
	t.Helper()

	feed, mr, _ := newTestFeed(t)
	require.NoError(t, feed.Store(context.Background(), "spotify", nil))
	assert.Empty(t, mr.Keys())
}

func TestSnapshotWindowProvidesChangeBaseline(t *testing.T) {
	t.Helper()

	feed, _, _ := newTestFeed(t)
	ctx := context.Background()

	require.NoError(t, feed.Store(ctx, "spotify", map[string]float64{"streams": 10000}))
	require.NoError(t, feed.SnapshotWindow(ctx, "spotify", "weekly"))

	// The current value moves on; the window keeps the baseline.
	require.NoError(t, feed.Store(ctx, "spotify", map[string]float64{"streams": 12000}))

	m, err := feed.Load(ctx, "spotify", []string{"weekly", "daily"})
	require.NoError(t, err)
	assert.Equal(t, 12000.0, m.Values["streams"])
	require.Contains(t, m.History, "weekly")
	assert.Equal(t, 10000.0, m.History["weekly"]["streams"])
	// No daily snapshot was taken, so no daily window appears.
	assert.NotContains(t, m.History, "daily")

	change, ok := m.ChangePercent("streams", "weekly")
	require.True(t, ok)
	assert.InDelta(t, 20.0, change, 0.001)
}

func TestSnapshotWindowWithoutCurrentMetrics(t *testing.T) {
	t.Helper()

	feed, mr, _ := newTestFeed(t)
	require.NoError(t, feed.SnapshotWindow(context.Background(), "spotify", "weekly"))
	assert.Empty(t, mr.Keys())
}

func TestLoadSkipsUnparseableValues(t *testing.T) {
	t.Helper()

	feed, mr, _ := newTestFeed(t)
	mr.HSet("metrics:current:spotify", "revenue", "412.5", "broken", "not-a-number")

	m, err := feed.Load(context.Background(), "spotify", nil)
	require.NoError(t, err)
	assert.Equal(t, 412.5, m.Values["revenue"])
	assert.NotContains(t, m.Values, "broken")
}

func TestPublishJobUpdate(t *testing.T) {
	t.Helper()

	feed, _, client := newTestFeed(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, metricsfeed.JobUpdatesChannel)
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	job := &models.DistributionJob{
		ID:            uuid.New(),
		ContentItemID: uuid.New(),
		Status:        models.JobStatusProcessing,
		Progress:      50,
	}
	result := &models.DistributionResult{
		PlatformKey: "spotify",
		Status:      models.ResultStatusSuccess,
		ExternalRef: "https://spotify.example/track/9",
	}

	require.NoError(t, feed.PublishJobUpdate(ctx, job, result))

	select {
	case msg := <-sub.Channel():
		var payload struct {
			JobID       string `json:"job_id"`
			Status      string `json:"status"`
			Progress    int    `json:"progress"`
			PlatformKey string `json:"platform_key"`
			Result      string `json:"result"`
			ExternalRef string `json:"external_ref"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
		assert.Equal(t, job.ID.String(), payload.JobID)
		assert.Equal(t, "processing", payload.Status)
		assert.Equal(t, 50, payload.Progress)
		assert.Equal(t, "spotify", payload.PlatformKey)
		assert.Equal(t, "success", payload.Result)
		assert.Equal(t, "https://spotify.example/track/9", payload.ExternalRef)
	case <-time.After(2 * time.Second):
		t.Fatal("no job update received")
	}
}
