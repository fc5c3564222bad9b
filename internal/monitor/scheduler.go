package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sentineldb/internal/analytics"
	"sentineldb/internal/metrics"
	"sentineldb/internal/models"
)

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

var (
	ErrInvalidSetup   = errors.New("invalid scheduler setup")
	ErrAlreadyStarted = errors.New("scheduler already started")
	errNoSample       = errors.New("metrics source returned no sample")
)

type Option func(*Scheduler)

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler runs one tick at a time on the goroutine that called Run. The
// detector is only ever mutated from that goroutine, so samples enter the
// window in collection order.
type Scheduler struct {
	source   MetricsSource
	detector *analytics.Detector
	engine   *analytics.DecisionEngine
	notifier Notifier
	recorder Recorder
	interval time.Duration
	logger   *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu     sync.RWMutex
	state  State
	status models.MonitorStatus
}

func NewScheduler(
	interval time.Duration,
	source MetricsSource,
	detector *analytics.Detector,
	engine *analytics.DecisionEngine,
	notifier Notifier,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		source:   source,
		detector: detector,
		engine:   engine,
		notifier: notifier,
		interval: interval,
		logger:   zap.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	return s
}

// Run blocks until ctx is cancelled or setup fails. Cancellation is observed
// between ticks only; a tick in progress always runs to completion. The
// metrics source is closed before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.state = StateRunning
	s.mu.Unlock()

	if err := s.validate(); err != nil {
		s.stop()
		return err
	}
	defer s.stop()
	s.logger.Info("monitor started", zap.Duration("interval", s.interval))

	tickCtx := context.WithoutCancel(ctx)
	for ctx.Err() == nil {
		elapsed := s.runTick(tickCtx)
		if err := s.sleep(ctx, SleepDuration(s.interval, elapsed)); err != nil {
			break
		}
	}
	s.logger.Info("shutting down monitor")
	return nil
}

// SleepDuration is the wait before the next tick. It is never negative: a
// tick that overran the interval is followed immediately by the next one.
func SleepDuration(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	return interval - elapsed
}

func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Scheduler) Status() models.MonitorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.State = s.state.String()
	if status.Ticks > 0 {
		status.AnomalyRate = float64(status.Anomalies) / float64(status.Ticks)
	}
	return status
}

func (s *Scheduler) validate() error {
	switch {
	case s.source == nil:
		return fmt.Errorf("%w: metrics source is nil", ErrInvalidSetup)
	case s.detector == nil:
		return fmt.Errorf("%w: detector is nil", ErrInvalidSetup)
	case s.engine == nil:
		return fmt.Errorf("%w: decision engine is nil", ErrInvalidSetup)
	case s.notifier == nil:
		return fmt.Errorf("%w: notifier is nil", ErrInvalidSetup)
	case s.interval <= 0:
		return fmt.Errorf("%w: check interval must be positive, got %s", ErrInvalidSetup, s.interval)
	}
	return nil
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Scheduler) stop() {
	s.setState(StateStopped)
	if s.source == nil {
		return
	}
	if err := s.source.Close(); err != nil {
		s.logger.Error("failed to release metrics source", zap.Error(err))
	}
}

// runTick executes one tick and returns how long it took. Errors and panics
// are contained here so that one bad tick never ends the loop.
func (s *Scheduler) runTick(ctx context.Context) (elapsed time.Duration) {
	start := s.now()
	outcome := "ok"

	defer func() {
		if r := recover(); r != nil {
			outcome = "failed"
			s.logger.Error("error in monitoring loop", zap.Any("panic", r), zap.Stack("stack"))
			s.countFailure(false)
		}
		elapsed = s.now().Sub(start)
		metrics.TicksTotal.WithLabelValues(outcome).Inc()
		metrics.TickDuration.Observe(elapsed.Seconds())
	}()

	if err := s.tick(ctx); err != nil {
		if IsRecoverable(err) {
			outcome = "collection_failed"
			s.logger.Warn("failed to collect metrics, retrying in next interval", zap.Error(err))
		} else {
			outcome = "failed"
			s.logger.Error("error in monitoring loop", zap.Error(err))
		}
		s.countFailure(outcome == "collection_failed")
	}
	return
}

func (s *Scheduler) tick(ctx context.Context) error {
	sample, err := s.source.Collect(ctx)
	if err != nil {
		return err
	}
	if sample == nil {
		return errNoSample
	}

	s.logger.Info("metrics collected",
		zap.Float64("connections", sample.ActiveConnections),
		zap.Float64("cpu", sample.CPULoad),
		zap.Int("long_queries", len(sample.LongRunningQueries)),
	)
	metrics.ActiveConnections.Set(sample.ActiveConnections)
	metrics.CPULoad.Set(sample.CPULoad)
	metrics.LongRunningQueries.Set(float64(len(sample.LongRunningQueries)))

	s.detector.AddMetric(sample.ActiveConnections)
	detection := s.detector.Check()
	if detection.Evaluated {
		s.logger.Debug("z-score evaluated",
			zap.Float64("current", detection.Current),
			zap.Float64("mean", detection.Mean),
			zap.Float64("std_dev", detection.StdDev),
			zap.Float64("z_score", detection.ZScore),
		)
		metrics.ZScore.Set(detection.ZScore)
	}
	if detection.IsAnomaly {
		metrics.AnomaliesDetected.Inc()
	}

	decisions := s.engine.Evaluate(sample, detection.IsAnomaly)
	s.record(ctx, sample)

	for _, decision := range decisions {
		metrics.AlertsTotal.WithLabelValues(decision.Kind.String()).Inc()
		s.notify(ctx, decision)
	}

	s.mu.Lock()
	s.status.Ticks++
	tickAt := sample.Timestamp
	s.status.LastTickAt = &tickAt
	s.status.LastSample = sample
	s.status.AlertsRaised += int64(len(decisions))
	if detection.IsAnomaly {
		s.status.Anomalies++
		s.status.LastAnomalyTime = &tickAt
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) notify(ctx context.Context, decision models.AlertDecision) {
	results := s.notifier.Send(ctx, decision.Message)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("alert not delivered on every channel",
			zap.String("alert_id", decision.ID),
			zap.Int("failed", failed),
			zap.Int("channels", len(results)),
		)
	}

	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordAlert(ctx, decision); err != nil {
		s.logger.Warn("failed to record alert", zap.String("alert_id", decision.ID), zap.Error(err))
	}
}

func (s *Scheduler) record(ctx context.Context, sample *models.Sample) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordSample(ctx, sample); err != nil {
		s.logger.Warn("failed to record sample", zap.Error(err))
	}
}

func (s *Scheduler) countFailure(collection bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if collection {
		s.status.CollectionFailures++
	} else {
		s.status.TickFailures++
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
