package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentineldb/internal/alerting"
	"sentineldb/internal/analytics"
	"sentineldb/internal/cache"
	"sentineldb/internal/collector"
	"sentineldb/internal/monitor"
	"sentineldb/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the monitoring loop and the status API",
	RunE:  runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := collector.NewSQLSource(cfg.Database, cfg.Monitor.LongQueryThresholdMs, logger)
	if err != nil {
		return err
	}

	channels := alerting.ChannelsFromConfig(cfg.Alerting, os.Stdout, logger)
	dispatcher := alerting.NewDispatcher(logger, channels...)

	detector := analytics.NewDetector(cfg.Monitor.WindowSize, cfg.Monitor.AnomalyZThreshold)
	engine := analytics.NewDecisionEngine(cfg.Monitor.CPUCriticalThreshold, logger)

	opts := []monitor.Option{monitor.WithLogger(logger)}

	// Журнал опционален: без Redis монитор работает как раньше
	var journal server.Journal
	if cfg.Redis.Enabled() {
		rj, err := cache.NewRedisJournal(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("journal disabled, redis unavailable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rj.Close()
			journal = rj
			opts = append(opts, monitor.WithRecorder(rj))
		}
	}

	scheduler := monitor.NewScheduler(cfg.Monitor.CheckInterval(), source, detector, engine, dispatcher, opts...)

	logger.Info("starting database monitor",
		zap.String("version", version),
		zap.String("driver", cfg.Database.Driver),
		zap.Duration("interval", cfg.Monitor.CheckInterval()),
		zap.Int("window_size", cfg.Monitor.WindowSize),
		zap.Float64("z_threshold", cfg.Monitor.AnomalyZThreshold),
		zap.Strings("channels", dispatcher.Channels()),
	)

	httpDone := make(chan error, 1)
	if cfg.HTTP.Addr != "" {
		srv := server.New(scheduler, detector, journal, version, logger)
		go func() { httpDone <- srv.Run(ctx, cfg.HTTP.Addr) }()
	} else {
		close(httpDone)
	}

	if err := scheduler.Run(ctx); err != nil {
		return fmt.Errorf("monitor failed: %w", err)
	}

	// the scheduler only returns nil once ctx is done, so the server is
	// already shutting down
	if err := <-httpDone; err != nil {
		logger.Error("status API failed", zap.Error(err))
	}
	logger.Info("monitor stopped")
	return nil
}
