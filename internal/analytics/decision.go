package analytics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sentineldb/internal/models"
)

const DefaultCPUCriticalThreshold = 90.0

// DecisionEngine turns a sample and the detector verdict into alerts. Each
// rule is evaluated on its own; one tick can raise several alerts.
type DecisionEngine struct {
	cpuCritical float64
	logger      *zap.Logger
	now         func() time.Time
}

func NewDecisionEngine(cpuCritical float64, logger *zap.Logger) *DecisionEngine {
	if cpuCritical <= 0 {
		cpuCritical = DefaultCPUCriticalThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionEngine{
		cpuCritical: cpuCritical,
		logger:      logger.Named("decision"),
		now:         time.Now,
	}
}

func (e *DecisionEngine) Evaluate(sample *models.Sample, anomalous bool) []models.AlertDecision {
	var decisions []models.AlertDecision
	longQueries := len(sample.LongRunningQueries)

	if anomalous {
		msg := fmt.Sprintf(
			"Unusual spike in active connections detected! Current: %s. CPU Load: %s%%. Active Long Queries: %d",
			formatNumber(sample.ActiveConnections), formatNumber(sample.CPULoad), longQueries,
		)
		e.logger.Warn("anomaly detected", zap.String("message", msg))
		decisions = append(decisions, e.newDecision(models.AlertStatisticalAnomaly, msg))
	}

	if sample.CPULoad > e.cpuCritical {
		decisions = append(decisions, e.newDecision(
			models.AlertCriticalResourceLoad,
			fmt.Sprintf("Critical CPU Load: %s%%", formatNumber(sample.CPULoad)),
		))
	}

	// informational only; long queries alert through the other two rules
	if longQueries > 0 {
		e.logger.Warn("long-running queries detected", zap.Int("count", longQueries))
	}

	return decisions
}

func (e *DecisionEngine) newDecision(kind models.AlertKind, msg string) models.AlertDecision {
	return models.AlertDecision{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   msg,
		CreatedAt: e.now(),
	}
}

// formatNumber drops the fractional part of whole numbers so counts read as
// "42" rather than "42.00".
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
