// Package phase drives the three-stage state machine. The
// exploitative->ethical boundary is gated on readiness criteria
// evaluated both by a periodic poll and reactively after each
// interaction; the first satisfying evaluation wins and the boundary
// never re-fires. The ethical->reflection boundary is explicit only.
package phase

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"ethoscope/internal/logging"
	"ethoscope/internal/score"
	"ethoscope/internal/session"
)

// InterventionPolicy says how the hosting UI should treat nudges in
// the current phase.
type InterventionPolicy string

const (
	InterventionSuppressed    InterventionPolicy = "suppressed"
	InterventionProactive     InterventionPolicy = "proactive"
	InterventionInformational InterventionPolicy = "informational"
)

// PolicyFor returns the intervention policy for a phase.
func PolicyFor(p session.Phase) InterventionPolicy {
	switch p {
	case session.PhaseEthical:
		return InterventionProactive
	case session.PhaseReflection:
		return InterventionInformational
	default:
		return InterventionSuppressed
	}
}

// Criteria gates the exploitative->ethical transition.
type Criteria struct {
	MinExposures      int           // manipulation exposure count
	MinDecisionPoints int
	MinPhaseAge       time.Duration
	PollInterval      time.Duration
}

// DefaultCriteria returns the standard readiness gate.
func DefaultCriteria() Criteria {
	return Criteria{
		MinExposures:      5,
		MinDecisionPoints: 3,
		MinPhaseAge:       5 * time.Minute,
		PollInterval:      2 * time.Second,
	}
}

// readinessGate is the criteria as an expr predicate, compiled once.
// Equivalent to the typed check below; the expression form keeps the
// gate inspectable and overridable as data.
const readinessGate = `exposures >= min_exposures && decision_points >= min_decision_points && phase_age_seconds >= min_phase_age_seconds && behavioral_ready`

// Transition describes a fired phase boundary.
type Transition struct {
	From   session.Phase `json:"from"`
	To     session.Phase `json:"to"`
	Reason string        `json:"reason"`
	Scores score.Scores  `json:"scores"`
}

// Orchestrator owns the phase lifecycle for one session.
type Orchestrator struct {
	mu       sync.Mutex
	rec      *session.Record
	scorer   *score.Engine
	criteria Criteria
	gate     *vm.Program
	log      *slog.Logger

	// advanced latches the automatic boundary: at most one
	// exploitative->ethical transition per session.
	advanced        bool
	behavioralReady bool
	phaseEntered    time.Time

	onTransition func(Transition)
}

// New creates an orchestrator for the record.
func New(rec *session.Record, scorer *score.Engine, criteria Criteria) *Orchestrator {
	gate, err := expr.Compile(readinessGate, expr.AsBool())
	if err != nil {
		// The gate is a compile-time constant; failing here is a bug.
		panic(fmt.Sprintf("compile readiness gate: %v", err))
	}
	return &Orchestrator{
		rec:          rec,
		scorer:       scorer,
		criteria:     criteria,
		gate:         gate,
		log:          logging.New("phase"),
		phaseEntered: rec.StartedAt,
	}
}

// OnTransition registers a callback invoked after each fired boundary.
func (o *Orchestrator) OnTransition(fn func(Transition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTransition = fn
}

// SetBehavioralReady records the externally computed readiness flag.
func (o *Orchestrator) SetBehavioralReady(ready bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.behavioralReady = ready
}

// Advanced reports whether the automatic boundary has already fired;
// the hosting poller uses it to stop early.
func (o *Orchestrator) Advanced() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.advanced
}

// Evaluate runs one readiness check and fires the automatic boundary
// if all criteria hold. Returns true only when a transition fired.
// Idempotent: re-running with unchanged criteria is a no-op.
func (o *Orchestrator) Evaluate() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.advanced || o.rec.Phase() != session.PhaseExploitative {
		return false
	}
	snap := o.rec.Snapshot()
	env := map[string]any{
		"exposures":             len(snap.DarkPatterns),
		"decision_points":       len(snap.Decisions),
		"phase_age_seconds":     o.rec.Now().Sub(o.phaseEntered).Seconds(),
		"min_exposures":         o.criteria.MinExposures,
		"min_decision_points":   o.criteria.MinDecisionPoints,
		"min_phase_age_seconds": o.criteria.MinPhaseAge.Seconds(),
		"behavioral_ready":      o.behavioralReady,
	}
	ready, err := expr.Run(o.gate, env)
	if err != nil {
		o.log.Warn("readiness gate failed; skipping poll", "err", err)
		return false
	}
	if ready != true {
		return false
	}
	if err := o.transitionLocked(session.PhaseEthical, "readiness criteria satisfied"); err != nil {
		o.log.Warn("readiness transition rejected", "err", err)
		return false
	}
	o.advanced = true
	return true
}

// CompleteEthicalFlow fires the explicit ethical->reflection boundary.
func (o *Orchestrator) CompleteEthicalFlow() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.rec.Phase() != session.PhaseEthical {
		return fmt.Errorf("%w: complete_ethical_flow in phase %s",
			session.ErrInvalidTransition, o.rec.Phase())
	}
	return o.transitionLocked(session.PhaseReflection, "ethical flow completed by caller")
}

// transitionLocked performs the transition and its side effects:
// a phase_transition decision point snapshotting all four scores, and
// the registered callback. Caller holds o.mu.
func (o *Orchestrator) transitionLocked(next session.Phase, reason string) error {
	from := o.rec.Phase()
	if err := o.rec.TransitionPhase(next); err != nil {
		return err
	}
	o.phaseEntered = o.rec.Now()
	scores := o.scorer.Compute(o.rec.Snapshot())
	o.rec.AddDecisionPoint("phase_transition", map[string]any{
		"from":                from,
		"to":                  next,
		"reason":              reason,
		"coercionIndex":       scores.CoercionIndex,
		"consentQualityScore": scores.ConsentQualityScore,
		"debtTrapScore":       scores.DebtTrapScore,
		"autonomyScore":       scores.AutonomyScore,
	})
	o.log.Info("phase transition", "from", from, "to", next, "reason", reason)
	if o.onTransition != nil {
		o.onTransition(Transition{From: from, To: next, Reason: reason, Scores: scores})
	}
	return nil
}
