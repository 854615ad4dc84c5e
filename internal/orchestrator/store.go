package orchestrator

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tonearm/labelcore/internal/models"
)

// JobStore is the in-memory home of live distribution jobs. The result map
// is the only concurrently-written structure in the core; every write goes
// through the store's lock with write-once-per-platform semantics.
type JobStore struct {
	mu          sync.RWMutex
	jobs        map[uuid.UUID]*models.DistributionJob
	subscribers map[uuid.UUID]map[int]func(*models.DistributionJob)
	nextSubID   int
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:        make(map[uuid.UUID]*models.DistributionJob),
		subscribers: make(map[uuid.UUID]map[int]func(*models.DistributionJob)),
	}
}

// Create registers a new job in processing state with a snapshot of its
// target platforms.
func (s *JobStore) Create(itemID uuid.UUID, targets []string) *models.DistributionJob {
	now := time.Now().UTC()
	started := now
	job := &models.DistributionJob{
		ID:              uuid.New(),
		ContentItemID:   itemID,
		TargetPlatforms: append([]string(nil), targets...),
		Status:          models.JobStatusProcessing,
		Results:         make(map[string]models.DistributionResult),
		Progress:        0,
		CreatedAt:       now,
		StartedAt:       &started,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.Clone()
}

// Get returns a snapshot of a job.
func (s *JobStore) Get(jobID uuid.UUID) (*models.DistributionJob, error) {
	s.mu.RLock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.RUnlock()
		return nil, models.ErrNotFound
	}
	snapshot := job.Clone()
	s.mu.RUnlock()
	return snapshot, nil
}

// List returns snapshots of all jobs, newest first.
func (s *JobStore) List() []*models.DistributionJob {
	s.mu.RLock()
	out := make([]*models.DistributionJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// RecordResult writes one platform's result exactly once and recomputes
// progress. The second write for a platform fails with ErrDuplicateResult
// and leaves the first untouched. When every target has a result the job
// transitions to completed. The returned snapshot reflects the new state.
func (s *JobStore) RecordResult(jobID uuid.UUID, result models.DistributionResult) (*models.DistributionJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrNotFound
	}
	if job.IsTerminal() {
		s.mu.Unlock()
		return nil, models.ErrJobCompleted
	}
	if !slices.Contains(job.TargetPlatforms, result.PlatformKey) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is not a target of job %s", models.ErrInvalidTarget, result.PlatformKey, jobID)
	}
	if _, exists := job.Results[result.PlatformKey]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", models.ErrDuplicateResult, result.PlatformKey)
	}

	if result.RecordedAt.IsZero() {
		result.RecordedAt = time.Now().UTC()
	}
	job.Results[result.PlatformKey] = result
	job.Progress = job.ComputeProgress()
	if len(job.Results) == len(job.TargetPlatforms) {
		job.Status = models.JobStatusCompleted
		completed := time.Now().UTC()
		job.CompletedAt = &completed
	}

	snapshot := job.Clone()
	subs := s.snapshotSubscribers(jobID)
	s.mu.Unlock()

	for _, notify := range subs {
		notify(snapshot.Clone())
	}
	return snapshot, nil
}

// Cancel finalizes a processing job: every target without a recorded result
// gets a failed result classified as cancelled, and the job completes.
func (s *JobStore) Cancel(jobID uuid.UUID) (*models.DistributionJob, error) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrNotFound
	}
	if job.Status != models.JobStatusProcessing {
		s.mu.Unlock()
		return nil, models.ErrJobCompleted
	}

	now := time.Now().UTC()
	for _, platform := range job.TargetPlatforms {
		if _, exists := job.Results[platform]; exists {
			continue
		}
		job.Results[platform] = models.DistributionResult{
			PlatformKey: platform,
			Status:      models.ResultStatusFailed,
			ErrorClass:  models.ErrorClassCancelled,
			ErrorDetail: "job cancelled before dispatch completed",
			RecordedAt:  now,
		}
	}
	job.Progress = job.ComputeProgress()
	job.Status = models.JobStatusCompleted
	job.CompletedAt = &now

	snapshot := job.Clone()
	subs := s.snapshotSubscribers(jobID)
	s.mu.Unlock()

	for _, notify := range subs {
		notify(snapshot.Clone())
	}
	return snapshot, nil
}

// Subscribe registers a callback invoked with a fresh snapshot on every
// recorded result for the job. The returned function removes the
// subscription.
func (s *JobStore) Subscribe(jobID uuid.UUID, callback func(*models.DistributionJob)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return nil, models.ErrNotFound
	}

	if s.subscribers[jobID] == nil {
		s.subscribers[jobID] = make(map[int]func(*models.DistributionJob))
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[jobID][id] = callback

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers[jobID], id)
	}, nil
}

func (s *JobStore) snapshotSubscribers(jobID uuid.UUID) []func(*models.DistributionJob) {
	subs := make([]func(*models.DistributionJob), 0, len(s.subscribers[jobID]))
	for _, cb := range s.subscribers[jobID] {
		subs = append(subs, cb)
	}
	return subs
}
