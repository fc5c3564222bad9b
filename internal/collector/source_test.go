package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentineldb/internal/config"
	"sentineldb/internal/models"
)

var longQueryColumns = []string{"session_id", "status", "command", "total_elapsed_time", "cpu_time"}

type mockConn struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

// newTestSource returns a source whose successive connections are the given
// number of fresh sqlmock databases.
func newTestSource(t *testing.T, dialect Dialect, conns int) (*SQLSource, []mockConn) {
	t.Helper()

	mocks := make([]mockConn, conns)
	for i := range mocks {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		mocks[i] = mockConn{db: sqlx.NewDb(db, dialect.DriverName), mock: mock}
	}

	src := newSQLSource(dialect, 5000, time.Second, nil)
	src.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	opened := 0
	src.open = func(ctx context.Context) (*sqlx.DB, error) {
		if opened >= len(mocks) {
			return nil, errors.New("connection refused")
		}
		db := mocks[opened].db
		opened++
		return db, nil
	}
	return src, mocks
}

func TestCollectSQLServer(t *testing.T) {
	src, conns := newTestSource(t, SQLServer, 1)
	mock := conns[0].mock

	mock.ExpectQuery(SQLServer.ActiveConnectionsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	mock.ExpectQuery(SQLServer.CPUIdleQuery).
		WillReturnRows(sqlmock.NewRows([]string{"SystemIdle"}).AddRow(7))
	mock.ExpectQuery(SQLServer.LongRunningQuery).
		WithArgs(int64(5000)).
		WillReturnRows(sqlmock.NewRows(longQueryColumns).
			AddRow(int64(53), "running", "SELECT", int64(6100), int64(5900)))

	sample, err := src.Collect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 42.0, sample.ActiveConnections)
	assert.Equal(t, 93.0, sample.CPULoad)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), sample.Timestamp)
	assert.Equal(t, []models.LongRunningQuery{
		{SessionID: 53, Status: "running", Command: "SELECT", ElapsedMs: 6100, CPUTimeMs: 5900},
	}, sample.LongRunningQueries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectToleratesCPUFailure(t *testing.T) {
	src, conns := newTestSource(t, SQLServer, 1)
	mock := conns[0].mock

	mock.ExpectQuery(SQLServer.ActiveConnectionsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))
	mock.ExpectQuery(SQLServer.CPUIdleQuery).
		WillReturnError(errors.New("permission denied on sys.dm_os_ring_buffers"))
	mock.ExpectQuery(SQLServer.LongRunningQuery).
		WithArgs(int64(5000)).
		WillReturnRows(sqlmock.NewRows(longQueryColumns))

	sample, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, sample.CPULoad)
	assert.Empty(t, sample.LongRunningQueries)
	assert.NotNil(t, sample.LongRunningQueries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectPostgresSkipsCPU(t *testing.T) {
	src, conns := newTestSource(t, Postgres, 1)
	mock := conns[0].mock

	mock.ExpectQuery(Postgres.ActiveConnectionsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(Postgres.LongRunningQuery).
		WithArgs(int64(5000)).
		WillReturnRows(sqlmock.NewRows(longQueryColumns))

	sample, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5.0, sample.ActiveConnections)
	assert.Equal(t, 0.0, sample.CPULoad)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollectQueryFailureReconnects(t *testing.T) {
	src, conns := newTestSource(t, SQLServer, 2)

	first := conns[0].mock
	first.ExpectQuery(SQLServer.ActiveConnectionsQuery).
		WillReturnError(errors.New("connection reset by peer"))
	first.ExpectClose()

	_, err := src.Collect(context.Background())
	require.Error(t, err)

	var collErr *CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Equal(t, "active connections", collErr.Op)
	assert.True(t, collErr.Recoverable())
	assert.NoError(t, first.ExpectationsWereMet())

	second := conns[1].mock
	second.ExpectQuery(SQLServer.ActiveConnectionsQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	second.ExpectQuery(SQLServer.CPUIdleQuery).
		WillReturnRows(sqlmock.NewRows([]string{"SystemIdle"}))
	second.ExpectQuery(SQLServer.LongRunningQuery).
		WithArgs(int64(5000)).
		WillReturnRows(sqlmock.NewRows(longQueryColumns))

	sample, err := src.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11.0, sample.ActiveConnections)
	assert.NoError(t, second.ExpectationsWereMet())
}

func TestCollectConnectFailure(t *testing.T) {
	src, _ := newTestSource(t, SQLServer, 0)

	_, err := src.Collect(context.Background())

	var collErr *CollectionError
	require.ErrorAs(t, err, &collErr)
	assert.Equal(t, "connect", collErr.Op)

	// still recoverable on the next call
	_, err = src.Collect(context.Background())
	assert.ErrorAs(t, err, &collErr)
}

func TestVersionAndClose(t *testing.T) {
	src, conns := newTestSource(t, Postgres, 1)
	mock := conns[0].mock

	mock.ExpectQuery(Postgres.VersionQuery).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("PostgreSQL 16.2"))
	mock.ExpectClose()

	version, err := src.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 16.2", version)

	require.NoError(t, src.Close())
	require.NoError(t, src.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Database
		want string
	}{
		{
			name: "explicit dsn",
			cfg:  config.Database{Driver: "postgres", DSN: "postgres://x@y/z"},
			want: "postgres://x@y/z",
		},
		{
			name: "sqlserver",
			cfg: config.Database{
				Driver: "sqlserver", Host: "db", Port: 1433, Name: "master",
				User: "sa", Password: "p@ss", ConnectTimeoutSeconds: 5,
			},
			want: "sqlserver://sa:p%40ss@db:1433?connection+timeout=5&database=master",
		},
		{
			name: "postgres default port",
			cfg: config.Database{
				Driver: "postgres", Host: "db", Name: "app",
				User: "monitor", Password: "secret", SSLMode: "disable", ConnectTimeoutSeconds: 3,
			},
			want: "postgres://monitor:secret@db/app?connect_timeout=3&sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSQLSourceRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLSource(config.Database{Driver: "oracle", Host: "db"}, 5000, nil)
	assert.Error(t, err)
}
