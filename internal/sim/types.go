package sim

import (
	"ethoscope/internal/ethics"
	"ethoscope/internal/phase"
	"ethoscope/internal/score"
	"ethoscope/internal/session"
)

// LoanInputs seeds a new session's loan terms.
type LoanInputs struct {
	Amount       float64 `json:"amount" yaml:"amount"`
	TermDays     int     `json:"termDays" yaml:"termDays"`
	Jurisdiction string  `json:"jurisdiction" yaml:"jurisdiction"`
	Fee          float64 `json:"fee" yaml:"fee"`
	APR          float64 `json:"apr" yaml:"apr"`
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID    string        `json:"sessionId"`
	InitialPhase session.Phase `json:"initialPhase"`
}

// Interaction types accepted by Interact.
const (
	ActionStimulus         = "stimulus"
	ActionDecision         = "decision"
	ActionConsent          = "consent"
	ActionRollover         = "rollover"
	ActionBehavioralSample = "behavioral_sample"
	ActionCompleteEthical  = "complete_ethical_flow"
)

// InteractResult is the per-call response: updated scores, anything
// newly recorded, and the transition if one fired during the call.
type InteractResult struct {
	Scores            score.Scores                  `json:"updatedScores"`
	ManipulationScore float64                       `json:"manipulationScore"`
	NewViolations     []session.AutonomyViolation   `json:"newViolations"`
	NewCompliance     []session.ComplianceViolation `json:"newComplianceViolations,omitempty"`
	Detections        []session.DarkPatternEvent    `json:"detections,omitempty"`
	PhaseTransition   *phase.Transition             `json:"phaseTransition,omitempty"`
	Phase             session.Phase                 `json:"phase"`
	Intervention      phase.InterventionPolicy      `json:"interventionPolicy"`
}

// Report is the comprehensive read-only view of a session.
type Report struct {
	Session           session.Snapshot         `json:"session"`
	Scores            score.Scores             `json:"scores"`
	ManipulationScore float64                  `json:"manipulationScore"`
	Consent           score.ConsentResult      `json:"consent"`
	DebtTrap          score.DebtTrapResult     `json:"debtTrap"`
	Autonomy          score.AutonomyResult     `json:"autonomy"`
	Ethics            ethics.Analysis          `json:"ethics"`
	Intervention      phase.InterventionPolicy `json:"interventionPolicy"`
	Recommendations   []string                 `json:"recommendations"`
}
