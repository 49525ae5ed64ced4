package ethics

import (
	"testing"

	"ethoscope/internal/detect"
	"ethoscope/internal/session"
)

func fullConsent() session.ConsentFlags {
	return session.ConsentFlags{
		CapacityConfirmed: true, DisclosureProvided: true,
		ComprehensionVerified: true, VoluntarinessAffirmed: true,
		AuthorizationGiven: true,
	}
}

func fired(a Analysis, ruleID string) bool {
	for _, v := range a.KantianViolations {
		if v.RuleID == ruleID {
			return true
		}
	}
	return false
}

func TestDefaultEngine_CatalogCompiles(t *testing.T) {
	e := DefaultEngine()
	if len(e.Checks()) < 4 {
		t.Fatalf("catalog unexpectedly small: %d checks", len(e.Checks()))
	}
	for _, c := range e.Checks() {
		if c.Principle == "" || c.Rationale == "" {
			t.Errorf("check %q missing principle or rationale", c.ID)
		}
	}
}

func TestFacts_PatternTypesKnownToCatalog(t *testing.T) {
	catalog := detect.DefaultCatalog()
	known := make(map[string]bool)
	for _, name := range catalog.Types() {
		known[name] = true
	}
	var all []string
	all = append(all, timePressureTypes...)
	all = append(all, disclosureObscured...)
	all = append(all, defaultBiasTypes...)
	for _, name := range all {
		if !known[name] {
			t.Errorf("fact builder references pattern type %q not in the detector catalog", name)
		}
	}
}

func TestAnalyze_CleanSessionFiresNothing(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300, APR: 36})
	rec.Consent = fullConsent()
	a := DefaultEngine().Analyze(rec.Snapshot())
	if len(a.KantianViolations) != 0 {
		t.Fatalf("clean session fired %d checks: %+v", len(a.KantianViolations), a.KantianViolations)
	}
	if a.ConsentStatus != "valid" {
		t.Fatalf("consent status = %q, want valid", a.ConsentStatus)
	}
}

func TestAnalyze_DeceptionOnCommitWithoutDisclosure(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.AddDecisionPoint("accept_terms", nil)
	a := DefaultEngine().Analyze(rec.Snapshot())
	if !fired(a, "deception") {
		t.Fatal("deception should fire when a commitment precedes any APR disclosure")
	}
	if a.ConsentStatus != "invalid" {
		t.Fatalf("consent status = %q, want invalid", a.ConsentStatus)
	}
}

func TestAnalyze_NoDeceptionBeforeCommitment(t *testing.T) {
	// Undisclosed APR is not yet deception while the borrower has
	// committed to nothing.
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	if a := DefaultEngine().Analyze(rec.Snapshot()); fired(a, "deception") {
		t.Fatal("deception fired with no commitment decision recorded")
	}
}

func TestAnalyze_NoDeceptionWhenDisclosedBeforeCommit(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300, APR: 391})
	rec.Consent = fullConsent()
	rec.AddDecisionPoint("accept_terms", nil)
	if a := DefaultEngine().Analyze(rec.Snapshot()); fired(a, "deception") {
		t.Fatal("deception fired although disclosure preceded the commitment")
	}
}

func TestAnalyze_CoercionOnTimePressure(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.Consent = fullConsent()
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "false_urgency", Severity: session.SeverityHigh})
	a := DefaultEngine().Analyze(rec.Snapshot())
	if !fired(a, "coercion") {
		t.Fatal("coercion should fire on a time-pressure event")
	}
}

func TestAnalyze_ChecksAreIndependent(t *testing.T) {
	// A maximally bad session fires every check in one evaluation.
	rec := session.NewRecord("s1", session.LoanTerms{
		Amount: 300, APR: 400,
	})
	rec.Loan.Rollover(250)
	rec.Loan.Rollover(250)
	rec.Loan.Rollover(250) // rollover_count 3, total_cost 1050 > 2*300
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "false_urgency", Severity: session.SeverityHigh})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "hidden_costs", Severity: session.SeverityCritical})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "pre_checked_default", Severity: session.SeverityMedium})

	e := DefaultEngine()
	a := e.Analyze(rec.Snapshot())
	for _, c := range e.Checks() {
		if !fired(a, c.ID) {
			t.Errorf("check %q did not fire in the worst-case session", c.ID)
		}
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300})
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "emotional_appeal", Severity: session.SeverityMedium})
	e := DefaultEngine()
	snap := rec.Snapshot()
	a, b := e.Analyze(snap), e.Analyze(snap)
	if len(a.KantianViolations) != len(b.KantianViolations) || a.ConsentStatus != b.ConsentStatus {
		t.Fatalf("analysis not idempotent: %+v vs %+v", a, b)
	}
}
