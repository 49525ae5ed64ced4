package session

import "time"

// Snapshot is a point-in-time copy of the record used by the scoring
// and ethics engines and by reporting. Slices are copied so later
// appends cannot reach into a snapshot already handed out.
type Snapshot struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"startedAt"`
	LastTouched time.Time    `json:"lastTouched"`
	Phase       Phase        `json:"phase"`
	Loan        LoanTerms    `json:"loanTerms"`
	Consent     ConsentFlags `json:"consentFlags"`

	Interactions []InteractionEvent    `json:"interactionEvents"`
	DarkPatterns []DarkPatternEvent    `json:"darkPatternEvents"`
	Autonomy     []AutonomyViolation   `json:"autonomyViolations"`
	Compliance   []ComplianceViolation `json:"complianceViolations"`
	Decisions    []DecisionPoint       `json:"decisionPoints"`
	Samples      []BehavioralSample    `json:"behavioralSamples"`
}

// Snapshot copies the record's current state.
func (r *Record) Snapshot() Snapshot {
	return Snapshot{
		ID:           r.ID,
		StartedAt:    r.StartedAt,
		LastTouched:  r.LastTouched,
		Phase:        r.phase,
		Loan:         r.Loan,
		Consent:      r.Consent,
		Interactions: append([]InteractionEvent(nil), r.interactions...),
		DarkPatterns: append([]DarkPatternEvent(nil), r.darkPatterns...),
		Autonomy:     append([]AutonomyViolation(nil), r.autonomy...),
		Compliance:   append([]ComplianceViolation(nil), r.compliance...),
		Decisions:    append([]DecisionPoint(nil), r.decisions...),
		Samples:      append([]BehavioralSample(nil), r.samples...),
	}
}

// PatternTypeCounts folds the dark-pattern log into per-type counts.
func (s Snapshot) PatternTypeCounts() map[string]int {
	counts := make(map[string]int, len(s.DarkPatterns))
	for _, ev := range s.DarkPatterns {
		counts[ev.Type]++
	}
	return counts
}

// HasPattern reports whether at least one detection of the given type
// was recorded.
func (s Snapshot) HasPattern(patternType string) bool {
	for _, ev := range s.DarkPatterns {
		if ev.Type == patternType {
			return true
		}
	}
	return false
}
