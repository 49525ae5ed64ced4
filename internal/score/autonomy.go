package score

import "ethoscope/internal/session"

// AutonomyResult carries the combined score and its sub-metrics.
type AutonomyResult struct {
	Score      float64            `json:"score"`
	SubMetrics map[string]float64 `json:"subMetrics"`
}

// Autonomy computes the weighted autonomy score. Each sub-metric
// starts at 100 and is decremented by the fixed penalty for every
// detection of a pattern type that names it; the combined score is the
// fixed weighted sum of the clamped sub-metrics.
func Autonomy(snap session.Snapshot, w Weights) AutonomyResult {
	metrics := map[string]float64{
		MetricTransparency:  100,
		MetricVoluntariness: 100,
		MetricCapacity:      100,
		MetricUnderstanding: 100,
		MetricResistance:    100,
	}
	for _, ev := range snap.DarkPatterns {
		for metric, penalty := range w.AutonomyPenalties[ev.Type] {
			metrics[metric] -= penalty
		}
	}
	for metric, v := range metrics {
		metrics[metric] = clamp(v)
	}
	aw := w.AutonomyWeights
	combined := metrics[MetricTransparency]*aw.InformationTransparency +
		metrics[MetricVoluntariness]*aw.Voluntariness +
		metrics[MetricCapacity]*aw.Capacity +
		metrics[MetricUnderstanding]*aw.Understanding +
		metrics[MetricResistance]*aw.CoercionResistance
	return AutonomyResult{Score: clamp(combined), SubMetrics: metrics}
}
