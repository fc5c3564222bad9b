package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sentineldb/internal/models"
)

func TestDecisionEngine(t *testing.T) {
	tests := []struct {
		name      string
		sample    models.Sample
		anomalous bool
		want      []models.AlertKind
	}{
		{
			name:   "quiet tick",
			sample: models.Sample{ActiveConnections: 12, CPULoad: 40},
		},
		{
			name:   "critical cpu only",
			sample: models.Sample{ActiveConnections: 12, CPULoad: 95},
			want:   []models.AlertKind{models.AlertCriticalResourceLoad},
		},
		{
			name:   "cpu at threshold does not fire",
			sample: models.Sample{CPULoad: 90},
		},
		{
			name:      "anomaly only",
			sample:    models.Sample{ActiveConnections: 300, CPULoad: 20},
			anomalous: true,
			want:      []models.AlertKind{models.AlertStatisticalAnomaly},
		},
		{
			name:      "both fire independently",
			sample:    models.Sample{ActiveConnections: 300, CPULoad: 97},
			anomalous: true,
			want:      []models.AlertKind{models.AlertStatisticalAnomaly, models.AlertCriticalResourceLoad},
		},
		{
			name: "long queries alone are informational",
			sample: models.Sample{
				ActiveConnections:  12,
				CPULoad:            30,
				LongRunningQueries: []models.LongRunningQuery{{SessionID: 51}},
			},
		},
	}

	engine := NewDecisionEngine(90, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions := engine.Evaluate(&tt.sample, tt.anomalous)

			var kinds []models.AlertKind
			for _, d := range decisions {
				kinds = append(kinds, d.Kind)
				assert.NotEmpty(t, d.ID)
				assert.NotEmpty(t, d.Message)
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}

func TestDecisionEngineMessages(t *testing.T) {
	engine := NewDecisionEngine(90, nil)
	sample := &models.Sample{
		ActiveConnections:  250,
		CPULoad:            95,
		LongRunningQueries: []models.LongRunningQuery{{SessionID: 1}, {SessionID: 2}},
	}

	decisions := engine.Evaluate(sample, true)
	require.Len(t, decisions, 2)
	assert.Equal(t,
		"Unusual spike in active connections detected! Current: 250. CPU Load: 95%. Active Long Queries: 2",
		decisions[0].Message)
	assert.Equal(t, "Critical CPU Load: 95%", decisions[1].Message)
}

func TestDecisionEngineLogsLongQueries(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	engine := NewDecisionEngine(90, zap.New(core))

	sample := &models.Sample{LongRunningQueries: []models.LongRunningQuery{{SessionID: 7}}}
	assert.Empty(t, engine.Evaluate(sample, false))

	entries := logs.FilterMessage("long-running queries detected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].ContextMap()["count"])
}

func TestDecisionEngineCustomThreshold(t *testing.T) {
	engine := NewDecisionEngine(75, nil)
	decisions := engine.Evaluate(&models.Sample{CPULoad: 80.5}, false)
	require.Len(t, decisions, 1)
	assert.Equal(t, "Critical CPU Load: 80.50%", decisions[0].Message)
}
