package phase

import (
	"errors"
	"testing"
	"time"

	"ethoscope/internal/detect"
	"ethoscope/internal/score"
	"ethoscope/internal/session"
)

// minuteClock advances one minute per call, so a handful of recorded
// events pushes the phase age well past the default five-minute gate.
func minuteClock() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func testOrchestrator(t *testing.T, criteria Criteria) (*Orchestrator, *session.Record) {
	t.Helper()
	rec := session.NewRecord("s1", session.LoanTerms{Amount: 300},
		session.WithClock(minuteClock()))
	scorer := score.NewEngine(detect.DefaultCatalog(), score.DefaultWeights())
	return New(rec, scorer, criteria), rec
}

func primeRecord(rec *session.Record, exposures, decisions int) {
	for i := 0; i < exposures; i++ {
		rec.AddDarkPattern(session.DarkPatternEvent{Type: "false_urgency", Severity: session.SeverityHigh})
	}
	for i := 0; i < decisions; i++ {
		rec.AddDecisionPoint("commit", nil)
	}
}

func TestEvaluate_BelowExposureThresholdNeverFires(t *testing.T) {
	o, rec := testOrchestrator(t, DefaultCriteria())
	primeRecord(rec, 4, 3) // one exposure short
	o.SetBehavioralReady(true)

	for i := 0; i < 5; i++ {
		if o.Evaluate() {
			t.Fatal("transition fired with exposures below threshold")
		}
	}
	if rec.Phase() != session.PhaseExploitative {
		t.Fatalf("phase = %s, want exploitative", rec.Phase())
	}

	// Raising exposure to the threshold fires on the next evaluation.
	rec.AddDarkPattern(session.DarkPatternEvent{Type: "hidden_costs", Severity: session.SeverityCritical})
	if !o.Evaluate() {
		t.Fatal("transition did not fire once all criteria were met")
	}
	if rec.Phase() != session.PhaseEthical {
		t.Fatalf("phase = %s, want ethical", rec.Phase())
	}
}

func TestEvaluate_RequiresPhaseAge(t *testing.T) {
	criteria := DefaultCriteria()
	criteria.MinPhaseAge = 1000 * time.Hour
	o, rec := testOrchestrator(t, criteria)
	primeRecord(rec, 6, 4)
	o.SetBehavioralReady(true)
	if o.Evaluate() {
		t.Fatal("transition fired before the minimum phase age elapsed")
	}
}

func TestEvaluate_RequiresBehavioralReadiness(t *testing.T) {
	o, rec := testOrchestrator(t, DefaultCriteria())
	primeRecord(rec, 6, 4)
	if o.Evaluate() {
		t.Fatal("transition fired without the behavioral readiness flag")
	}
	o.SetBehavioralReady(true)
	if !o.Evaluate() {
		t.Fatal("transition did not fire after readiness flag was set")
	}
}

func TestEvaluate_AtMostOnce(t *testing.T) {
	o, rec := testOrchestrator(t, DefaultCriteria())
	primeRecord(rec, 6, 4)
	o.SetBehavioralReady(true)

	if !o.Evaluate() {
		t.Fatal("first evaluation should fire")
	}
	if o.Evaluate() {
		t.Fatal("boundary re-fired; transitions must be one-shot")
	}
	if rec.Phase() != session.PhaseEthical {
		t.Fatalf("phase = %s, want ethical", rec.Phase())
	}
}

func TestTransition_AppendsScoreSnapshot(t *testing.T) {
	o, rec := testOrchestrator(t, DefaultCriteria())
	primeRecord(rec, 5, 3)
	o.SetBehavioralReady(true)

	var got Transition
	o.OnTransition(func(tr Transition) { got = tr })
	if !o.Evaluate() {
		t.Fatal("transition did not fire")
	}
	if got.From != session.PhaseExploitative || got.To != session.PhaseEthical {
		t.Fatalf("callback transition = %+v", got)
	}

	snap := rec.Snapshot()
	last := snap.Decisions[len(snap.Decisions)-1]
	if last.DecisionType != "phase_transition" {
		t.Fatalf("last decision point = %q, want phase_transition", last.DecisionType)
	}
	for _, key := range []string{"coercionIndex", "consentQualityScore", "debtTrapScore", "autonomyScore"} {
		if _, ok := last.ContextSnapshot[key]; !ok {
			t.Errorf("transition snapshot missing %s", key)
		}
	}
}

func TestCompleteEthicalFlow(t *testing.T) {
	o, rec := testOrchestrator(t, DefaultCriteria())

	// Explicit completion is rejected outside the ethical phase.
	if err := o.CompleteEthicalFlow(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Fatalf("complete in exploitative: want ErrInvalidTransition, got %v", err)
	}

	primeRecord(rec, 5, 3)
	o.SetBehavioralReady(true)
	if !o.Evaluate() {
		t.Fatal("setup transition did not fire")
	}
	if err := o.CompleteEthicalFlow(); err != nil {
		t.Fatalf("CompleteEthicalFlow: %v", err)
	}
	if rec.Phase() != session.PhaseReflection {
		t.Fatalf("phase = %s, want reflection", rec.Phase())
	}
	// Reflection is terminal.
	if err := o.CompleteEthicalFlow(); !errors.Is(err, session.ErrInvalidTransition) {
		t.Fatalf("complete in reflection: want ErrInvalidTransition, got %v", err)
	}
}

func TestPolicyFor(t *testing.T) {
	if PolicyFor(session.PhaseExploitative) != InterventionSuppressed {
		t.Error("exploitative policy should suppress interventions")
	}
	if PolicyFor(session.PhaseEthical) != InterventionProactive {
		t.Error("ethical policy should be proactive")
	}
	if PolicyFor(session.PhaseReflection) != InterventionInformational {
		t.Error("reflection policy should be informational")
	}
}
