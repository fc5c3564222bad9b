package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentineldb/internal/config"
	"sentineldb/internal/models"
)

func newTestJournal(t *testing.T, maxRecent int) (*RedisJournal, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	j, err := NewRedisJournal(context.Background(), config.Redis{
		Addr:             mr.Addr(),
		SampleTTLSeconds: 60,
		MaxRecent:        maxRecent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j, mr
}

func TestJournalSamplesNewestFirst(t *testing.T) {
	j, _ := newTestJournal(t, 3)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, j.RecordSample(ctx, &models.Sample{
			Timestamp:         base.Add(time.Duration(i) * time.Second),
			ActiveConnections: float64(10 + i),
		}))
	}

	samples, err := j.RecentSamples(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	assert.Equal(t, 14.0, samples[0].ActiveConnections)
	assert.Equal(t, 12.0, samples[2].ActiveConnections)
}

func TestJournalAlerts(t *testing.T) {
	j, _ := newTestJournal(t, 10)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, j.RecordAlert(ctx, models.AlertDecision{
			ID:      fmt.Sprintf("alert-%d", i),
			Kind:    models.AlertCriticalResourceLoad,
			Message: "Critical CPU Load: 95%",
		}))
	}

	alerts, err := j.RecentAlerts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alert-1", alerts[0].ID)
	assert.Equal(t, models.AlertCriticalResourceLoad, alerts[0].Kind)
}

func TestJournalSkipsExpiredEntries(t *testing.T) {
	j, mr := newTestJournal(t, 10)
	ctx := context.Background()

	require.NoError(t, j.RecordSample(ctx, &models.Sample{Timestamp: time.Unix(1, 0), ActiveConnections: 1}))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, j.RecordSample(ctx, &models.Sample{Timestamp: time.Unix(2, 0), ActiveConnections: 2}))

	samples, err := j.RecentSamples(ctx, 10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 2.0, samples[0].ActiveConnections)
}

func TestNewRedisJournalUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisJournal(context.Background(), config.Redis{Addr: addr})
	assert.Error(t, err)
}
