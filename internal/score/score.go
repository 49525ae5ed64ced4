package score

import (
	"ethoscope/internal/detect"
	"ethoscope/internal/session"
)

// Scores bundles the four independent views over the event log.
type Scores struct {
	CoercionIndex       float64 `json:"coercionIndex"`
	ConsentQualityScore float64 `json:"consentQualityScore"`
	DebtTrapScore       float64 `json:"debtTrapScore"`
	AutonomyScore       float64 `json:"autonomyScore"`
}

// Engine evaluates all four scores against a snapshot. It is stateless;
// the same snapshot always yields the same scores.
type Engine struct {
	catalog *detect.Catalog
	weights Weights
}

// NewEngine builds a scoring engine over the given pattern catalog
// (needed to resolve trap categories for compound coercion bonuses).
func NewEngine(catalog *detect.Catalog, w Weights) *Engine {
	return &Engine{catalog: catalog, weights: w}
}

// Compute folds the snapshot into all four scores.
func (e *Engine) Compute(snap session.Snapshot) Scores {
	return Scores{
		CoercionIndex:       CoercionIndex(snap, e.catalog, e.weights),
		ConsentQualityScore: ConsentQuality(snap.Consent).ComplianceRate,
		DebtTrapScore:       DebtTrap(snap.Loan).Score,
		AutonomyScore:       Autonomy(snap, e.weights).Score,
	}
}

// Consent exposes the detailed consent breakdown for reporting and for
// compliance-violation logging.
func (e *Engine) Consent(flags session.ConsentFlags) ConsentResult {
	return ConsentQuality(flags)
}

// DebtTrapDetail exposes the banded debt-trap breakdown.
func (e *Engine) DebtTrapDetail(loan session.LoanTerms) DebtTrapResult {
	return DebtTrap(loan)
}

// AutonomyDetail exposes the per-sub-metric autonomy breakdown.
func (e *Engine) AutonomyDetail(snap session.Snapshot) AutonomyResult {
	return Autonomy(snap, e.weights)
}

// ManipulationScore recomputes the manipulation accumulator from the log.
func (e *Engine) ManipulationScore(snap session.Snapshot) float64 {
	return Manipulation(snap, e.weights)
}
