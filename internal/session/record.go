// Package session holds the append-only record for one simulation run:
// loan terms, consent flags, and every event recorded during the run.
// Mutation happens only through Append, the typed Add* methods, and
// TransitionPhase; recorded entries are never changed or removed.
package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a phase transition does not
// follow the forward-only order.
var ErrInvalidTransition = errors.New("invalid phase transition")

// ErrMalformedEvent is returned for events outside the known taxonomy.
// Malformed payload *fields* are never an error: unknown fields are
// preserved raw and ignored downstream.
var ErrMalformedEvent = errors.New("malformed event")

// Record is the session aggregate. Not safe for concurrent use; the
// hosting layer serializes access per session.
type Record struct {
	ID          string
	StartedAt   time.Time
	LastTouched time.Time

	phase   Phase
	Loan    LoanTerms
	Consent ConsentFlags

	interactions []InteractionEvent
	darkPatterns []DarkPatternEvent
	autonomy     []AutonomyViolation
	compliance   []ComplianceViolation
	decisions    []DecisionPoint
	samples      []BehavioralSample
	lastDecision time.Time
	clock        func() time.Time
}

// Option customizes a new Record.
type Option func(*Record)

// WithClock overrides the time source (tests).
func WithClock(clock func() time.Time) Option {
	return func(r *Record) { r.clock = clock }
}

// NewRecord creates a session record starting in the exploitative phase.
func NewRecord(id string, loan LoanTerms, opts ...Option) *Record {
	r := &Record{
		ID:    id,
		phase: PhaseExploitative,
		Loan:  loan,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Loan.PrincipalOwed == 0 {
		r.Loan.PrincipalOwed = r.Loan.Amount
	}
	if r.Loan.TotalCost == 0 {
		r.Loan.TotalCost = r.Loan.Amount + r.Loan.FeesAccrued
	}
	r.StartedAt = r.clock()
	r.LastTouched = r.StartedAt
	return r
}

// Phase returns the currently active phase.
func (r *Record) Phase() Phase { return r.phase }

// Touch updates the idle-age metadata. Called on every mutation; the
// external reaper compares LastTouched against its idle window.
func (r *Record) Touch() { r.LastTouched = r.clock() }

// Now returns the record's current time (test-overridable).
func (r *Record) Now() time.Time { return r.clock() }

// TransitionPhase advances the session phase. Only the immediately
// following phase is accepted; anything else fails with
// ErrInvalidTransition and leaves the phase unchanged.
func (r *Record) TransitionPhase(next Phase) error {
	want, ok := r.phase.Next()
	if !ok {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, r.phase)
	}
	if next != want {
		return fmt.Errorf("%w: %s -> %s (expected %s)", ErrInvalidTransition, r.phase, next, want)
	}
	r.phase = next
	r.Touch()
	return nil
}

// Append ingests a raw event of the given kind. The kind must belong to
// the taxonomy; the payload is interpreted permissively — recognized
// fields are lifted into the typed entry, everything else rides along
// in the raw map.
func (r *Record) Append(kind Kind, payload map[string]any) error {
	if !KnownKind(kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedEvent, kind)
	}
	now := r.clock()
	switch kind {
	case KindInteraction:
		r.interactions = append(r.interactions, InteractionEvent{
			Type:      str(payload, "type"),
			Phase:     r.phase,
			Timestamp: now,
			Raw:       payload,
		})
	case KindDarkPattern:
		r.AddDarkPattern(DarkPatternEvent{
			Type:       str(payload, "type"),
			Severity:   Severity(str(payload, "severity")),
			Rationale:  str(payload, "rationale"),
			RawContext: payload,
		})
		return nil
	case KindAutonomyViolation:
		r.AddAutonomyViolation(AutonomyViolation{
			Type:        str(payload, "type"),
			Description: str(payload, "description"),
			Severity:    Severity(str(payload, "severity")),
		})
		return nil
	case KindComplianceViolation:
		r.AddComplianceViolation(ComplianceViolation{
			RuleID:       str(payload, "ruleId"),
			Severity:     Severity(str(payload, "severity")),
			Jurisdiction: str(payload, "jurisdiction"),
		})
		return nil
	case KindDecisionPoint:
		r.AddDecisionPoint(str(payload, "decisionType"), payload)
		return nil
	case KindBehavioralSample:
		r.samples = append(r.samples, BehavioralSample{
			Kind:      str(payload, "kind"),
			LatencyMS: num(payload, "latencyMs"),
			Phase:     r.phase,
			Timestamp: now,
		})
	}
	r.Touch()
	return nil
}

// AddDarkPattern stamps and appends a detector finding.
func (r *Record) AddDarkPattern(ev DarkPatternEvent) {
	ev.Phase = r.phase
	ev.Timestamp = r.clock()
	r.darkPatterns = append(r.darkPatterns, ev)
	r.Touch()
}

// AddAutonomyViolation stamps and appends an ethics finding.
func (r *Record) AddAutonomyViolation(v AutonomyViolation) {
	v.Phase = r.phase
	v.Timestamp = r.clock()
	r.autonomy = append(r.autonomy, v)
	r.Touch()
}

// AddComplianceViolation stamps and appends a compliance finding.
func (r *Record) AddComplianceViolation(v ComplianceViolation) {
	v.Phase = r.phase
	v.Timestamp = r.clock()
	if v.Jurisdiction == "" {
		v.Jurisdiction = r.Loan.Jurisdiction
	}
	r.compliance = append(r.compliance, v)
	r.Touch()
}

// AddDecisionPoint appends a commitment-action snapshot, tracking the
// gap since the previous decision.
func (r *Record) AddDecisionPoint(decisionType string, snapshot map[string]any) {
	now := r.clock()
	var gap time.Duration
	if !r.lastDecision.IsZero() {
		gap = now.Sub(r.lastDecision)
	}
	r.lastDecision = now
	r.decisions = append(r.decisions, DecisionPoint{
		DecisionType:          decisionType,
		Phase:                 r.phase,
		Timestamp:             now,
		TimeSinceLastDecision: gap,
		ContextSnapshot:       snapshot,
	})
	r.Touch()
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func num(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
