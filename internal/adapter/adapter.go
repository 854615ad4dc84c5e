// Package adapter defines the integration boundary between the distribution
// core and the destination platforms. One implementation exists per real
// platform; the core only sees this interface.
package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonearm/labelcore/internal/models"
)

// ErrUnknownPlatform is returned when no adapter is registered for a platform key.
var ErrUnknownPlatform = errors.New("no adapter registered for platform")

// PlatformAdapter performs the actual publish and metric-fetch calls against
// one destination platform.
type PlatformAdapter interface {
	// Publish pushes a snapshotted content item with its platform config to
	// the destination and returns the external reference (URL or ID).
	Publish(ctx context.Context, item *models.ContentItem, cfg *models.PlatformConfig) (string, error)

	// FetchMetrics returns the platform's current metric name -> value map.
	FetchMetrics(ctx context.Context, platformKey string) (map[string]float64, error)
}

// Error wraps a platform failure with the classification the orchestrator
// records on the failed result. Adapter errors are always captured as data,
// never propagated past the orchestrator boundary.
type Error struct {
	PlatformKey string
	Class       models.ErrorClass
	Err         error
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform %s: %s: %v", e.PlatformKey, e.Class, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with a platform key and classification.
func NewError(platformKey string, class models.ErrorClass, err error) *Error {
	return &Error{PlatformKey: platformKey, Class: class, Err: err}
}

// Classify maps an adapter error to its result classification. Unclassified
// errors count as transient so a retry pass can pick them up.
func Classify(err error) models.ErrorClass {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorClassTimeout
	}
	if errors.Is(err, context.Canceled) {
		return models.ErrorClassCancelled
	}
	return models.ErrorClassTransient
}
