package analytics

import (
	"math"
	"sync"

	"github.com/montanaflynn/stats"

	"sentineldb/internal/models"
)

// MinSamples is the minimum window fill before the z-score test runs.
const MinSamples = 10

const (
	DefaultWindowSize      = 60
	DefaultZScoreThreshold = 2.0
)

// Detector flags the most recent value in its window as anomalous when it
// lies more than threshold population standard deviations from the mean of
// the values that preceded it.
//
// The newest value is excluded from its own baseline but joins the baseline
// of every later check, so a sustained plateau is gradually absorbed and
// stops triggering once it dominates the window.
type Detector struct {
	window          *RollingWindow
	zScoreThreshold float64
	mu              sync.RWMutex
}

func NewDetector(windowSize int, zScoreThreshold float64) *Detector {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if zScoreThreshold <= 0 {
		zScoreThreshold = DefaultZScoreThreshold
	}
	return &Detector{
		window:          NewRollingWindow(windowSize),
		zScoreThreshold: zScoreThreshold,
	}
}

func (d *Detector) AddMetric(value float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window.Push(value)
}

// IsAnomaly reports whether the most recently added value is anomalous.
func (d *Detector) IsAnomaly() bool {
	return d.Check().IsAnomaly
}

// Check runs the z-score test and returns the intermediate statistics along
// with the verdict.
func (d *Detector) Check() models.Detection {
	d.mu.RLock()
	values := d.window.Snapshot()
	d.mu.RUnlock()

	return zScoreTest(values, d.zScoreThreshold)
}

func (d *Detector) Stats() models.DetectorStats {
	d.mu.RLock()
	size, values := d.window.Cap(), d.window.Snapshot()
	d.mu.RUnlock()

	return models.DetectorStats{
		WindowSize:      size,
		WindowFill:      len(values),
		ZScoreThreshold: d.zScoreThreshold,
		Detection:       zScoreTest(values, d.zScoreThreshold),
	}
}

func zScoreTest(values []float64, threshold float64) models.Detection {
	if len(values) < MinSamples {
		return models.Detection{}
	}

	current := values[len(values)-1]
	baseline := values[:len(values)-1]
	result := models.Detection{Current: current, BaselineSize: len(baseline)}

	mean, err := stats.Mean(baseline)
	if err != nil {
		return result
	}
	stdDev, err := stats.StandardDeviationPopulation(baseline)
	if err != nil {
		return result
	}
	result.Mean = mean
	result.StdDev = stdDev

	// a constant baseline has no spread to measure against; summing equal
	// non-integer values can leave a rounding residue in stdDev
	if stdDev == 0 || constant(baseline) {
		result.StdDev = 0
		return result
	}

	result.ZScore = (current - mean) / stdDev
	result.Evaluated = true
	result.IsAnomaly = math.Abs(result.ZScore) > threshold
	return result
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
