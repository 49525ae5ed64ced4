package score

import (
	"math/rand"
	"testing"

	"ethoscope/internal/detect"
	"ethoscope/internal/session"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(detect.DefaultCatalog(), DefaultWeights())
}

func TestConsentQuality_PillarScoring(t *testing.T) {
	flags := session.ConsentFlags{
		CapacityConfirmed:     true,
		DisclosureProvided:    true,
		ComprehensionVerified: false,
		VoluntarinessAffirmed: true,
		AuthorizationGiven:    true,
	}
	res := ConsentQuality(flags)
	if res.ComplianceRate != 80 {
		t.Fatalf("complianceRate = %v, want 80", res.ComplianceRate)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("want exactly 1 violation, got %d", len(res.Violations))
	}
	if res.Violations[0].RuleID != "consent.comprehension" {
		t.Fatalf("violation ruleId = %q, want consent.comprehension", res.Violations[0].RuleID)
	}
	if res.Violations[0].Rationale == "" {
		t.Fatal("violation missing educational rationale")
	}
}

func TestConsentQuality_AllAndNone(t *testing.T) {
	all := session.ConsentFlags{
		CapacityConfirmed: true, DisclosureProvided: true,
		ComprehensionVerified: true, VoluntarinessAffirmed: true,
		AuthorizationGiven: true,
	}
	if res := ConsentQuality(all); res.ComplianceRate != 100 || len(res.Violations) != 0 {
		t.Fatalf("all pillars: rate=%v violations=%d", res.ComplianceRate, len(res.Violations))
	}
	if res := ConsentQuality(session.ConsentFlags{}); res.ComplianceRate != 0 || len(res.Violations) != 5 {
		t.Fatalf("no pillars: rate=%v violations=%d", res.ComplianceRate, len(res.Violations))
	}
}

func TestDebtTrap_CriticalThresholds(t *testing.T) {
	loan := session.LoanTerms{
		Amount:        300,
		FeesAccrued:   1000, // ratio 3.33 -> +40
		RolloverCount: 6,    // -> +30
		PrincipalOwed: 300,  // ratio 1.0 -> +20
	}
	res := DebtTrap(loan)
	if res.Score < 70 {
		t.Fatalf("score = %v, want >= 70", res.Score)
	}
	if res.Score != 90 {
		t.Fatalf("score = %v, want 90 (40+30+20)", res.Score)
	}
	if res.Label != RiskCritical {
		t.Fatalf("label = %q, want critical", res.Label)
	}
}

func TestDebtTrap_Bands(t *testing.T) {
	tests := []struct {
		name  string
		loan  session.LoanTerms
		score float64
		label string
	}{
		{"fresh loan", session.LoanTerms{Amount: 300, PrincipalOwed: 300}, 20, RiskLow},
		{"mild rollover", session.LoanTerms{Amount: 300, FeesAccrued: 200, RolloverCount: 2, PrincipalOwed: 300}, 40, RiskMedium},
		{"usurious apr", session.LoanTerms{Amount: 300, APR: 600, PrincipalOwed: 100}, 10, RiskLow},
		{"everything maxed", session.LoanTerms{Amount: 100, FeesAccrued: 400, RolloverCount: 9, PrincipalOwed: 100, APR: 650}, 100, RiskCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := DebtTrap(tc.loan)
			if res.Score != tc.score || res.Label != tc.label {
				t.Fatalf("got score=%v label=%q, want score=%v label=%q (factors %v)",
					res.Score, res.Label, tc.score, tc.label, res.Factors)
			}
		})
	}
}

func TestAutonomy_PenaltiesApply(t *testing.T) {
	eng := newEngine(t)
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "fee_obfuscation", Severity: session.SeverityCritical})
	res := eng.AutonomyDetail(rec.Snapshot())
	if res.SubMetrics[MetricTransparency] != 75 {
		t.Fatalf("transparency = %v, want 75 (fee_obfuscation -25)", res.SubMetrics[MetricTransparency])
	}
	if res.SubMetrics[MetricUnderstanding] != 80 {
		t.Fatalf("understanding = %v, want 80 (fee_obfuscation -20)", res.SubMetrics[MetricUnderstanding])
	}
	if res.Score >= 100 {
		t.Fatalf("combined score = %v, want < 100", res.Score)
	}
}

func TestCoercion_CompoundBonuses(t *testing.T) {
	eng := newEngine(t)
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "false_urgency", Severity: session.SeverityHigh})
	base := CoercionIndex(rec.Snapshot(), detect.DefaultCatalog(), DefaultWeights())

	rec.AddDarkPattern(session.DarkPatternEvent{Type: "artificial_scarcity", Severity: session.SeverityHigh})
	withScarcity := CoercionIndex(rec.Snapshot(), detect.DefaultCatalog(), DefaultWeights())

	// Second trap adds its own severity delta, a trap-count increment,
	// and the scarcity+time-pressure compound bonus.
	if withScarcity <= base {
		t.Fatalf("coercion did not grow: base=%v with=%v", base, withScarcity)
	}
	_ = eng
}

func TestCoercion_TrapCategoryCountedOnce(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "false_urgency", Severity: session.SeverityHigh})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "emotional_appeal", Severity: session.SeverityHigh})
	got := CoercionIndex(rec.Snapshot(), detect.DefaultCatalog(), DefaultWeights())

	// Two pattern types sharing the time-pressure trap: each adds its
	// manipulation delta (0.5 * 30), but the trap increment applies to
	// the category once and no compound bonus fires.
	if got != 20 {
		t.Fatalf("coercion = %v, want 20 (15 integrity deficit + one 5-point trap)", got)
	}
}

// Score boundedness: any finite, arbitrarily ordered event sequence
// keeps all four scores inside [0,100] at every step.
func TestScores_BoundedUnderRandomEvents(t *testing.T) {
	eng := newEngine(t)
	catalog := detect.DefaultCatalog()
	types := catalog.Types()
	severities := []session.Severity{
		session.SeverityLow, session.SeverityMedium,
		session.SeverityMediumHigh, session.SeverityHigh, session.SeverityCritical,
	}
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 25; trial++ {
		rec := session.NewRecord("fuzz", session.LoanTerms{
			Amount:        float64(rng.Intn(1000) + 1),
			APR:           float64(rng.Intn(900)),
			PrincipalOwed: float64(rng.Intn(1000)),
		})
		steps := rng.Intn(120)
		for i := 0; i < steps; i++ {
			switch rng.Intn(4) {
			case 0:
				rec.AddDarkPattern(session.DarkPatternEvent{
					Type:     types[rng.Intn(len(types))],
					Severity: severities[rng.Intn(len(severities))],
				})
			case 1:
				rec.AddAutonomyViolation(session.AutonomyViolation{
					Type:     "test",
					Severity: severities[rng.Intn(len(severities))],
				})
			case 2:
				rec.Loan.Rollover(float64(rng.Intn(200)))
			case 3:
				rec.AddDecisionPoint("commit", nil)
			}
			s := eng.Compute(rec.Snapshot())
			for name, v := range map[string]float64{
				"coercion": s.CoercionIndex,
				"consent":  s.ConsentQualityScore,
				"debtTrap": s.DebtTrapScore,
				"autonomy": s.AutonomyScore,
			} {
				if v < 0 || v > 100 {
					t.Fatalf("trial %d step %d: %s = %v out of [0,100]", trial, i, name, v)
				}
			}
		}
	}
}

// Pure folds: computing twice over the same snapshot yields identical
// scores (no hidden accumulation).
func TestCompute_Idempotent(t *testing.T) {
	eng := newEngine(t)
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300, FeesAccrued: 500, RolloverCount: 4, PrincipalOwed: 300})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "hidden_costs", Severity: session.SeverityCritical})
	snap := rec.Snapshot()
	if a, b := eng.Compute(snap), eng.Compute(snap); a != b {
		t.Fatalf("recompute drifted: %+v vs %+v", a, b)
	}
}
