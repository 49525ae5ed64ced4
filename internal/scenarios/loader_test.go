package scenarios

import (
	"strings"
	"testing"

	"ethoscope/internal/phase"
	"ethoscope/internal/sim"
)

func TestList_IncludesEmbedded(t *testing.T) {
	names := List()
	want := map[string]bool{"payday_pressure": false, "clean_ethical": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Errorf("List() missing %q, got %v", n, names)
		}
	}
}

func TestLoad_UnknownName(t *testing.T) {
	if _, err := Load("no_such_scenario"); err == nil {
		t.Fatal("Load accepted an unknown scenario name")
	}
}

func TestLoad_ParsesLoanAndSteps(t *testing.T) {
	s, err := Load("payday_pressure")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Loan.Amount != 300 || s.Loan.TermDays != 14 || s.Loan.APR != 391 {
		t.Errorf("loan not parsed: %+v", s.Loan)
	}
	if len(s.Steps) == 0 {
		t.Fatal("no steps parsed")
	}
	if s.Steps[0].Type != sim.ActionStimulus {
		t.Errorf("first step type = %q, want stimulus", s.Steps[0].Type)
	}
	if got := strField(s.Steps[0].Payload, "textContent"); !strings.Contains(strings.ToLower(got), "hurry") {
		t.Errorf("first step payload not parsed: %v", s.Steps[0].Payload)
	}
}

// Replaying the embedded scenarios against a real engine keeps the
// scripts and the expectations in them honest.
func TestRun_EmbeddedScenariosMeetExpectations(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			criteria := phase.DefaultCriteria()
			criteria.PollInterval = 0
			criteria.MinPhaseAge = 0
			engine := sim.NewEngine(sim.WithCriteria(criteria))
			rep, err := Run(engine, s)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if err := Check(s, rep); err != nil {
				t.Error(err)
			}
			if engine.Len() != 0 {
				t.Errorf("Run left %d sessions behind", engine.Len())
			}
		})
	}
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
