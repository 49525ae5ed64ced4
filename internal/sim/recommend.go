package sim

// recommendations maps score bands and findings to the fixed advice
// catalog included in every report.
func recommendations(rep Report) []string {
	var out []string
	if rep.DebtTrap.Score >= 70 {
		out = append(out, "Debt-trap risk is critical: cap rollovers and require principal paydown before any renewal.")
	} else if rep.DebtTrap.Score >= 50 {
		out = append(out, "Debt-trap risk is high: surface the cumulative fee total next to every renewal prompt.")
	}
	if rep.Scores.ConsentQualityScore < 100 {
		out = append(out, "Consent is incomplete: every unsatisfied pillar must be affirmatively resolved before commitment.")
	}
	if rep.Scores.CoercionIndex >= 50 {
		out = append(out, "Coercion pressure is elevated: remove countdowns, scarcity claims, and pre-selected commitments from the flow.")
	}
	if rep.Autonomy.Score < 60 {
		out = append(out, "Autonomy is degraded: restate all costs in plain totals and re-verify comprehension before proceeding.")
	}
	for _, v := range rep.Ethics.KantianViolations {
		if v.RuleID == "systemic_harm" {
			out = append(out, "Rollover count indicates structural harm: offer an installment off-ramp instead of renewal.")
			break
		}
	}
	if len(out) == 0 {
		out = append(out, "No corrective action indicated: the recorded flow respected consent and autonomy.")
	}
	return out
}
