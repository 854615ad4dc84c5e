package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a distribution job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
)

// ResultStatus represents the outcome of a single platform dispatch
type ResultStatus string

const (
	ResultStatusPending ResultStatus = "pending"
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
)

// ErrorClass categorizes a failed platform dispatch
type ErrorClass string

const (
	ErrorClassTimeout   ErrorClass = "timeout"
	ErrorClassRejected  ErrorClass = "rejected"
	ErrorClassTransient ErrorClass = "transient"
	ErrorClassCancelled ErrorClass = "cancelled"
)

// DistributionResult is the write-once outcome of dispatching one item to
// one platform. A result never changes once recorded.
type DistributionResult struct {
	PlatformKey string             `json:"platform_key"`
	Status      ResultStatus       `json:"status"`
	ExternalRef string             `json:"external_ref,omitempty"`
	ErrorClass  ErrorClass         `json:"error_class,omitempty"`
	ErrorDetail string             `json:"error_detail,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	RecordedAt  time.Time          `json:"recorded_at"`
}

// DistributionJob is one fan-out attempt of a content item to a set of
// platforms. The job holds a weak reference to the item (by ID) plus a
// dispatch-time snapshot of the fields adapters need. The result map grows
// monotonically and the job is terminal once every target has a result.
type DistributionJob struct {
	ID              uuid.UUID                     `json:"id"`
	ContentItemID   uuid.UUID                     `json:"content_item_id"`
	TargetPlatforms []string                      `json:"target_platforms"`
	Status          JobStatus                     `json:"status"`
	Results         map[string]DistributionResult `json:"results"`
	Progress        int                           `json:"progress"`
	CreatedAt       time.Time                     `json:"created_at"`
	StartedAt       *time.Time                    `json:"started_at,omitempty"`
	CompletedAt     *time.Time                    `json:"completed_at,omitempty"`
}

// ResultCount returns the number of recorded platform results.
func (j *DistributionJob) ResultCount() int {
	return len(j.Results)
}

// ComputeProgress returns the rounded completion percentage for the job.
func (j *DistributionJob) ComputeProgress() int {
	if len(j.TargetPlatforms) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(len(j.Results)) / float64(len(j.TargetPlatforms))))
}

// IsTerminal reports whether the job accepts no further results.
func (j *DistributionJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted
}

// Clone returns a deep copy safe to hand to callers while the orchestrator
// keeps mutating the original.
func (j *DistributionJob) Clone() *DistributionJob {
	out := *j
	out.TargetPlatforms = append([]string(nil), j.TargetPlatforms...)
	out.Results = make(map[string]DistributionResult, len(j.Results))
	for k, v := range j.Results {
		if v.Metrics != nil {
			m := make(map[string]float64, len(v.Metrics))
			for mk, mv := range v.Metrics {
				m[mk] = mv
			}
			v.Metrics = m
		}
		out.Results[k] = v
	}
	return &out
}

// DispatchRequest represents the request payload for dispatching a content item
type DispatchRequest struct {
	ContentItemID   uuid.UUID `binding:"required"       json:"content_item_id"`
	TargetPlatforms []string  `binding:"required,min=1" json:"target_platforms"`
}
