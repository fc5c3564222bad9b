package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sentineldb/internal/collector"
)

var (
	stressDuration time.Duration
	stressThreads  int
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Load the database with slow queries to trigger alerts",
	Long: `Opens one connection per worker and keeps issuing a slow query until the
duration elapses. Meant to be run against a test database while the monitor
is watching it: the connection spike should raise a statistical anomaly and
the slow queries show up as long-running.`,
	RunE: runStress,
}

func init() {
	stressCmd.Flags().DurationVarP(&stressDuration, "duration", "d", 30*time.Second, "how long to keep the load up")
	stressCmd.Flags().IntVarP(&stressThreads, "threads", "t", 20, "number of concurrent connections")
}

func runStress(cmd *cobra.Command, args []string) error {
	if stressThreads <= 0 {
		return fmt.Errorf("threads must be positive, got %d", stressThreads)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.Named("stress")

	source, err := collector.NewSQLSource(cfg.Database, 0, logger)
	if err != nil {
		return err
	}
	query := source.Dialect().SleepQuery

	logger.Info("starting load",
		zap.Int("threads", stressThreads),
		zap.Duration("duration", stressDuration),
		zap.String("query", query),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), stressDuration)
	defer cancel()

	var connected, queries, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < stressThreads; i++ {
		worker := i
		g.Go(func() error {
			db, err := source.Connect(gctx)
			if err != nil {
				// a refused connection is part of the load
				logger.Debug("worker could not connect", zap.Int("worker", worker), zap.Error(err))
				return nil
			}
			defer db.Close()
			connected.Add(1)

			for gctx.Err() == nil {
				if _, err := db.ExecContext(gctx, query); err != nil && gctx.Err() == nil {
					failed.Add(1)
				} else if err == nil {
					queries.Add(1)
				}
				select {
				case <-gctx.Done():
				case <-time.After(500 * time.Millisecond):
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("load complete, check the monitor for alerts",
		zap.Int64("connected", connected.Load()),
		zap.Int64("slow_queries", queries.Load()),
		zap.Int64("failed_queries", failed.Load()),
	)
	return nil
}
