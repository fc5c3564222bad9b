// Package alerting delivers alert messages over console, Slack and Twilio SMS.
package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sentineldb/internal/metrics"
)

// Channel is one delivery route for alert messages.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, message string) error
}

// DeliveryError reports a failed delivery on a single channel.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver alert via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Recoverable() bool { return true }

// Result is the outcome of one delivery attempt. Err is nil on success and a
// *DeliveryError otherwise.
type Result struct {
	Channel string
	Err     error
}

// Dispatcher sends each message to every channel. A failure on one channel
// does not affect the others and is never returned to the caller.
type Dispatcher struct {
	channels []Channel
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{channels: channels, logger: logger.Named("alerting")}
}

func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

func (d *Dispatcher) Send(ctx context.Context, message string) []Result {
	results := make([]Result, 0, len(d.channels))
	for _, ch := range d.channels {
		results = append(results, d.deliver(ctx, ch, message))
	}
	return results
}

func (d *Dispatcher) deliver(ctx context.Context, ch Channel, message string) (res Result) {
	res.Channel = ch.Name()
	defer func() {
		if r := recover(); r != nil {
			res.Err = &DeliveryError{Channel: res.Channel, Err: fmt.Errorf("panic: %v", r)}
		}
		status := "success"
		if res.Err != nil {
			status = "failure"
			d.logger.Error("failed to send alert", zap.String("channel", res.Channel), zap.Error(res.Err))
		} else {
			d.logger.Info("alert sent", zap.String("channel", res.Channel))
		}
		metrics.NotificationsTotal.WithLabelValues(res.Channel, status).Inc()
	}()

	if err := ch.Deliver(ctx, message); err != nil {
		res.Err = &DeliveryError{Channel: res.Channel, Err: err}
	}
	return res
}
