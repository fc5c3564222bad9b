// Package monitor drives the fixed-cadence sampling loop: collect a sample,
// feed the detector, decide on alerts and hand them to the notifier.
package monitor

import (
	"context"
	"errors"

	"sentineldb/internal/alerting"
	"sentineldb/internal/models"
)

// MetricsSource produces one sample per call. Collect must be safe to call
// again after a failure; reconnecting is the source's job.
type MetricsSource interface {
	Collect(ctx context.Context) (*models.Sample, error)
	Close() error
}

// Notifier delivers a message on every configured channel and reports the
// per-channel outcome instead of returning an error.
type Notifier interface {
	Send(ctx context.Context, message string) []alerting.Result
}

// Recorder keeps an external record of samples and alerts. It is never read
// back into the detector.
type Recorder interface {
	RecordSample(ctx context.Context, sample *models.Sample) error
	RecordAlert(ctx context.Context, decision models.AlertDecision) error
}

// IsRecoverable reports whether err, or any error it wraps, marks itself as
// recoverable with a Recoverable() bool method.
func IsRecoverable(err error) bool {
	var r interface{ Recoverable() bool }
	return errors.As(err, &r) && r.Recoverable()
}
