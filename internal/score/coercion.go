package score

import (
	"ethoscope/internal/detect"
	"ethoscope/internal/session"
)

// Manipulation recomputes the severity-weighted manipulation score from
// the dark-pattern log. The detector keeps a running copy for cheap
// reads; this fold is the source of truth.
func Manipulation(snap session.Snapshot, w Weights) float64 {
	var total float64
	for _, ev := range snap.DarkPatterns {
		total += w.ManipulationDeltas[ev.Severity]
	}
	return total
}

// CoercionIndex estimates applied psychological pressure on [0,100]:
// severity-weighted autonomy violations, plus half the integrity
// deficit (100 minus the clamped inverse of the manipulation score),
// plus per-trap and compound-trap bonuses.
func CoercionIndex(snap session.Snapshot, catalog *detect.Catalog, w Weights) float64 {
	var total float64
	for _, v := range snap.Autonomy {
		total += w.SeverityWeights[v.Severity]
	}

	integrity := clamp(100 - Manipulation(snap, w))
	total += 0.5 * (100 - integrity)

	traps := activeTraps(snap, catalog)
	total += w.ActiveTrapWeight * float64(len(traps))

	if traps[detect.TrapTimePressure] && traps[detect.TrapDefaultBias] {
		total += w.TimePressurePlusDefault
	}
	if traps[detect.TrapScarcity] && traps[detect.TrapTimePressure] {
		total += w.ScarcityPlusTimePressure
	}
	return clamp(total)
}

// activeTraps maps each detected pattern type to its trap category.
func activeTraps(snap session.Snapshot, catalog *detect.Catalog) map[string]bool {
	traps := make(map[string]bool)
	for patternType := range snap.PatternTypeCounts() {
		if trap := catalog.TrapFor(patternType); trap != "" {
			traps[trap] = true
		}
	}
	return traps
}
