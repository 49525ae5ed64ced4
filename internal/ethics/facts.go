package ethics

import (
	"ethoscope/internal/session"
)

// Pattern types the fact builder groups into fact counters. Kept in
// sync with the detector catalog by the engine test.
var (
	timePressureTypes  = []string{"false_urgency", "emotional_appeal"}
	disclosureObscured = []string{"hidden_costs", "fee_obfuscation", "drip_pricing"}
	defaultBiasTypes   = []string{"pre_checked_default", "forced_continuity"}
)

// Facts flattens a session snapshot into the environment the check
// predicates evaluate against.
func Facts(snap session.Snapshot) map[string]any {
	counts := snap.PatternTypeCounts()
	sum := func(types []string) int {
		n := 0
		for _, t := range types {
			n += counts[t]
		}
		return n
	}

	// Disclosure rides on the consent flag. The deception check only
	// consults it once a commitment decision exists; until then the
	// borrower has not acted on anything.
	aprDisclosed := snap.Consent.DisclosureProvided

	return map[string]any{
		"amount":         snap.Loan.Amount,
		"total_cost":     snap.Loan.TotalCost,
		"apr":            snap.Loan.APR,
		"rollover_count": snap.Loan.RolloverCount,
		"fees_accrued":   snap.Loan.FeesAccrued,
		"principal_owed": snap.Loan.PrincipalOwed,

		"capacity_confirmed":     snap.Consent.CapacityConfirmed,
		"disclosure_provided":    snap.Consent.DisclosureProvided,
		"comprehension_verified": snap.Consent.ComprehensionVerified,
		"voluntariness_affirmed": snap.Consent.VoluntarinessAffirmed,
		"authorization_given":    snap.Consent.AuthorizationGiven,

		"time_pressure_events":    sum(timePressureTypes),
		"emotional_appeal_events": counts["emotional_appeal"],
		"scarcity_events":         counts["artificial_scarcity"],
		"default_bias_events":     sum(defaultBiasTypes),
		"social_proof_events":     counts["social_proof_manipulation"],

		"disclosure_obscured":             sum(disclosureObscured) > 0,
		"apr_disclosed_before_commitment": aprDisclosed,

		"dark_pattern_events": len(snap.DarkPatterns),
		"decision_points":     len(snap.Decisions),
	}
}
