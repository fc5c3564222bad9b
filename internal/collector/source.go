// Package collector samples health indicators from the monitored database.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	"go.uber.org/zap"

	"sentineldb/internal/config"
	"sentineldb/internal/models"
)

// CollectionError is a recoverable failure to produce a sample: the
// database was unreachable or a monitoring query failed.
type CollectionError struct {
	Op  string
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collect metrics (%s): %v", e.Op, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

func (e *CollectionError) Recoverable() bool { return true }

// SQLSource samples a SQL Server or PostgreSQL instance. The connection is
// opened lazily and dropped after a failed query so the next Collect
// reconnects.
type SQLSource struct {
	dialect        Dialect
	longQueryMs    int64
	connectTimeout time.Duration
	logger         *zap.Logger
	open           func(ctx context.Context) (*sqlx.DB, error)
	now            func() time.Time

	mu sync.Mutex
	db *sqlx.DB
}

func NewSQLSource(cfg config.Database, longQueryThresholdMs int, logger *zap.Logger) (*SQLSource, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	s := newSQLSource(dialect, int64(longQueryThresholdMs), cfg.ConnectTimeout(), logger)
	s.open = func(ctx context.Context) (*sqlx.DB, error) {
		db, err := sqlx.ConnectContext(ctx, dialect.DriverName, dsn)
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(2)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(5 * time.Minute)
		return db, nil
	}
	return s, nil
}

func newSQLSource(dialect Dialect, longQueryMs int64, connectTimeout time.Duration, logger *zap.Logger) *SQLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &SQLSource{
		dialect:        dialect,
		longQueryMs:    longQueryMs,
		connectTimeout: connectTimeout,
		logger:         logger.Named("collector"),
		now:            time.Now,
	}
}

func (s *SQLSource) Dialect() Dialect { return s.dialect }

// Collect gathers active connections, CPU load and long-running queries.
// A CPU query failure is tolerated and reported as zero load.
func (s *SQLSource) Collect(ctx context.Context) (*models.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn(ctx)
	if err != nil {
		return nil, &CollectionError{Op: "connect", Err: err}
	}

	sample := &models.Sample{
		Timestamp:          s.now(),
		LongRunningQueries: []models.LongRunningQuery{},
	}

	var connections int64
	if err := db.GetContext(ctx, &connections, s.dialect.ActiveConnectionsQuery); err != nil {
		s.reset()
		return nil, &CollectionError{Op: "active connections", Err: err}
	}
	sample.ActiveConnections = float64(connections)

	if s.dialect.CPUIdleQuery != "" {
		var idle sql.NullInt64
		err := db.GetContext(ctx, &idle, s.dialect.CPUIdleQuery)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			s.logger.Warn("failed to fetch CPU load", zap.Error(err))
		case idle.Valid:
			sample.CPULoad = float64(100 - idle.Int64)
		}
	}

	if err := db.SelectContext(ctx, &sample.LongRunningQueries, s.dialect.LongRunningQuery, s.longQueryMs); err != nil {
		s.reset()
		return nil, &CollectionError{Op: "long-running queries", Err: err}
	}

	return sample, nil
}

// Ping verifies the database is reachable.
func (s *SQLSource) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		s.reset()
		return err
	}
	return nil
}

// Version returns the server version banner.
func (s *SQLSource) Version(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.conn(ctx)
	if err != nil {
		return "", err
	}
	var version string
	if err := db.GetContext(ctx, &version, s.dialect.VersionQuery); err != nil {
		return "", err
	}
	return version, nil
}

// Connect opens a new, independent connection pool. The caller owns it.
func (s *SQLSource) Connect(ctx context.Context) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	return s.open(ctx)
}

func (s *SQLSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("database connection closed")
	return err
}

func (s *SQLSource) conn(ctx context.Context) (*sqlx.DB, error) {
	if s.db != nil {
		return s.db, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("connected to the database", zap.String("driver", s.dialect.Name))
	return db, nil
}

func (s *SQLSource) reset() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.logger.Debug("error closing failed connection", zap.Error(err))
	}
	s.db = nil
}
