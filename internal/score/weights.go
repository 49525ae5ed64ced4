// Package score folds the session record's event log into the four
// aggregate scores: coercion index, consent quality, debt trap, and
// autonomy. Every fold is pure and order-independent, recomputed from
// the log on demand — there is no cached state that could drift.
package score

import "ethoscope/internal/session"

// Weights holds every scoring constant. The numbers are illustrative
// calibration values, not load-bearing; hosts can supply their own.
type Weights struct {
	// Severity -> coercion contribution for autonomy violations.
	SeverityWeights map[session.Severity]float64

	// Manipulation deltas per dark-pattern severity (used for the
	// integrity component of the coercion index).
	ManipulationDeltas map[session.Severity]float64

	// Coercion trap bonuses.
	ActiveTrapWeight         float64 // per active cognitive-trap category
	TimePressurePlusDefault  float64
	ScarcityPlusTimePressure float64

	// Autonomy sub-metric weights; must sum to 1.
	AutonomyWeights AutonomyWeights

	// Per-pattern autonomy penalties: pattern type -> sub-metric -> points.
	AutonomyPenalties map[string]map[string]float64
}

// AutonomyWeights are the fixed combination weights for the five
// autonomy sub-metrics.
type AutonomyWeights struct {
	InformationTransparency float64
	Voluntariness           float64
	Capacity                float64
	Understanding           float64
	CoercionResistance      float64
}

// Sub-metric names used in AutonomyPenalties and reports.
const (
	MetricTransparency  = "informationTransparency"
	MetricVoluntariness = "voluntariness"
	MetricCapacity      = "capacity"
	MetricUnderstanding = "understanding"
	MetricResistance    = "coercionResistance"
)

// DefaultWeights returns the canonical constant set.
func DefaultWeights() Weights {
	return Weights{
		SeverityWeights: map[session.Severity]float64{
			session.SeverityLow:        5,
			session.SeverityMedium:     10,
			session.SeverityMediumHigh: 15,
			session.SeverityHigh:       20,
			session.SeverityCritical:   20,
		},
		ManipulationDeltas: map[session.Severity]float64{
			session.SeverityLow:      5,
			session.SeverityMedium:   10,
			session.SeverityHigh:     15,
			session.SeverityCritical: 20,
		},
		ActiveTrapWeight:         5,
		TimePressurePlusDefault:  10,
		ScarcityPlusTimePressure: 15,
		AutonomyWeights: AutonomyWeights{
			InformationTransparency: 0.25,
			Voluntariness:           0.30,
			Capacity:                0.15,
			Understanding:           0.25,
			CoercionResistance:      0.05,
		},
		AutonomyPenalties: map[string]map[string]float64{
			"false_urgency":             {MetricVoluntariness: 20, MetricResistance: 15},
			"artificial_scarcity":       {MetricVoluntariness: 15, MetricResistance: 10},
			"hidden_costs":              {MetricTransparency: 20, MetricUnderstanding: 15},
			"fee_obfuscation":           {MetricTransparency: 25, MetricUnderstanding: 20},
			"drip_pricing":              {MetricTransparency: 15, MetricUnderstanding: 10},
			"forced_continuity":         {MetricVoluntariness: 15, MetricCapacity: 10},
			"pre_checked_default":       {MetricVoluntariness: 10, MetricCapacity: 10},
			"social_proof_manipulation": {MetricUnderstanding: 10, MetricResistance: 5},
			"emotional_appeal":          {MetricVoluntariness: 15, MetricCapacity: 15},
			"confirmshaming":            {MetricVoluntariness: 10, MetricResistance: 5},
		},
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
