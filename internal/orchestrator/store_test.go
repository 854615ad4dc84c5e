package orchestrator_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/labelcore/internal/models"
	"github.com/tonearm/labelcore/internal/orchestrator"
)

func successResult(platform string) models.DistributionResult {
	return models.DistributionResult{
		PlatformKey: platform,
		Status:      models.ResultStatusSuccess,
		ExternalRef: "https://" + platform + ".example/release/1",
	}
}

func TestCreateReturnsSnapshot(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify", "bandcamp"})

	assert.Equal(t, models.JobStatusProcessing, job.Status)
	assert.Equal(t, 0, job.Progress)
	require.NotNil(t, job.StartedAt)

	// Mutating the snapshot must not leak into the store.
	job.TargetPlatforms[0] = "mutated"
	stored, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify", "bandcamp"}, stored.TargetPlatforms)
}

func TestRecordResultProgressAndCompletion(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify", "bandcamp", "youtube"})

	after, err := store.RecordResult(job.ID, successResult("spotify"))
	require.NoError(t, err)
	assert.Equal(t, 33, after.Progress)
	assert.Equal(t, models.JobStatusProcessing, after.Status)
	assert.Nil(t, after.CompletedAt)

	after, err = store.RecordResult(job.ID, successResult("bandcamp"))
	require.NoError(t, err)
	assert.Equal(t, 67, after.Progress)

	after, err = store.RecordResult(job.ID, models.DistributionResult{
		PlatformKey: "youtube",
		Status:      models.ResultStatusFailed,
		ErrorClass:  models.ErrorClassRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, 100, after.Progress)
	assert.Equal(t, models.JobStatusCompleted, after.Status)
	require.NotNil(t, after.CompletedAt)
}

func TestRecordResultWriteOnce(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify", "bandcamp"})

	first, err := store.RecordResult(job.ID, successResult("spotify"))
	require.NoError(t, err)

	// The second write must fail and leave the first result untouched.
	_, err = store.RecordResult(job.ID, models.DistributionResult{
		PlatformKey: "spotify",
		Status:      models.ResultStatusFailed,
	})
	require.ErrorIs(t, err, models.ErrDuplicateResult)

	stored, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Results["spotify"], stored.Results["spotify"])
}

func TestRecordResultRejectsNonTarget(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify"})

	_, err := store.RecordResult(job.ID, successResult("bandcamp"))
	assert.ErrorIs(t, err, models.ErrInvalidTarget)
}

func TestRecordResultOnCompletedJob(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify"})

	_, err := store.RecordResult(job.ID, successResult("spotify"))
	require.NoError(t, err)

	_, err = store.RecordResult(job.ID, successResult("spotify"))
	assert.ErrorIs(t, err, models.ErrJobCompleted)
}

func TestRecordResultUnknownJob(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	_, err := store.RecordResult(uuid.New(), successResult("spotify"))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCancelFillsMissingResults(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify", "bandcamp"})

	_, err := store.RecordResult(job.ID, successResult("spotify"))
	require.NoError(t, err)

	cancelled, err := store.Cancel(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, cancelled.Status)
	assert.Equal(t, 100, cancelled.Progress)

	// The recorded result survives; only the gap is filled.
	assert.Equal(t, models.ResultStatusSuccess, cancelled.Results["spotify"].Status)
	filled := cancelled.Results["bandcamp"]
	assert.Equal(t, models.ResultStatusFailed, filled.Status)
	assert.Equal(t, models.ErrorClassCancelled, filled.ErrorClass)

	// A completed job cannot be cancelled again.
	_, err = store.Cancel(job.ID)
	assert.ErrorIs(t, err, models.ErrJobCompleted)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	job := store.Create(uuid.New(), []string{"spotify", "bandcamp"})

	var seen []int
	unsubscribe, err := store.Subscribe(job.ID, func(j *models.DistributionJob) {
		seen = append(seen, j.Progress)
	})
	require.NoError(t, err)

	_, err = store.RecordResult(job.ID, successResult("spotify"))
	require.NoError(t, err)

	unsubscribe()

	_, err = store.RecordResult(job.ID, successResult("bandcamp"))
	require.NoError(t, err)

	// Only the update delivered before unsubscribe is observed.
	assert.Equal(t, []int{50}, seen)
}

func TestListNewestFirst(t *testing.T) {
	t.Helper()

	store := orchestrator.NewJobStore()
	store.Create(uuid.New(), []string{"spotify"})
	store.Create(uuid.New(), []string{"bandcamp"})

	jobs := store.List()
	require.Len(t, jobs, 2)
	assert.False(t, jobs[0].CreatedAt.Before(jobs[1].CreatedAt))
}
