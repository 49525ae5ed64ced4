package session

import "time"

// Phase is one of the three sequential simulation stages. Transitions are
// strictly forward: Exploitative -> Ethical -> Reflection (terminal).
type Phase string

const (
	PhaseExploitative Phase = "exploitative"
	PhaseEthical      Phase = "ethical"
	PhaseReflection   Phase = "reflection"
)

// Next returns the phase that follows p. ok is false when p is terminal
// or unknown.
func (p Phase) Next() (next Phase, ok bool) {
	switch p {
	case PhaseExploitative:
		return PhaseEthical, true
	case PhaseEthical:
		return PhaseReflection, true
	default:
		return "", false
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhaseExploitative, PhaseEthical, PhaseReflection:
		return true
	}
	return false
}

// Severity grades a recorded violation or detection.
type Severity string

const (
	SeverityLow        Severity = "low"
	SeverityMedium     Severity = "medium"
	SeverityMediumHigh Severity = "medium_high"
	SeverityHigh       Severity = "high"
	SeverityCritical   Severity = "critical"
)

// Kind identifies which append-only collection an event belongs to.
type Kind string

const (
	KindInteraction         Kind = "interaction"
	KindDarkPattern         Kind = "dark_pattern"
	KindAutonomyViolation   Kind = "autonomy_violation"
	KindComplianceViolation Kind = "compliance_violation"
	KindDecisionPoint       Kind = "decision_point"
	KindBehavioralSample    Kind = "behavioral_sample"
)

// KnownKind reports whether k belongs to the event taxonomy.
func KnownKind(k Kind) bool {
	switch k {
	case KindInteraction, KindDarkPattern, KindAutonomyViolation,
		KindComplianceViolation, KindDecisionPoint, KindBehavioralSample:
		return true
	}
	return false
}

// LoanTerms holds the simulated loan state for one session. All money
// values are illustrative; no real-world precision requirements apply.
type LoanTerms struct {
	Amount        float64 `json:"amount"`
	TermDays      int     `json:"termDays"`
	Jurisdiction  string  `json:"jurisdiction"`
	Fee           float64 `json:"fee"`
	APR           float64 `json:"apr"`
	TotalCost     float64 `json:"totalCost"`
	RolloverCount int     `json:"rolloverCount"`
	FeesAccrued   float64 `json:"feesAccrued"`
	// PrincipalOwed tracks how much of the original principal is still
	// outstanding; starts equal to Amount.
	PrincipalOwed float64 `json:"principalOwed"`
}

// Rollover records one renewal: the fee stacks and the total cost is
// recomputed as amount + cumulative fees.
func (lt *LoanTerms) Rollover(fee float64) {
	lt.RolloverCount++
	lt.FeesAccrued += fee
	lt.TotalCost = lt.Amount + lt.FeesAccrued
}

// ConsentFlags are the five binary pillars of informed consent.
type ConsentFlags struct {
	CapacityConfirmed     bool `json:"capacityConfirmed"`
	DisclosureProvided    bool `json:"disclosureProvided"`
	ComprehensionVerified bool `json:"comprehensionVerified"`
	VoluntarinessAffirmed bool `json:"voluntarinessAffirmed"`
	AuthorizationGiven    bool `json:"authorizationGiven"`
}

// InteractionEvent is one raw UI/interaction event as supplied by the
// hosting layer. Unrecognized payload fields are preserved in Raw but
// ignored by downstream consumers.
type InteractionEvent struct {
	Type      string         `json:"type"`
	Phase     Phase          `json:"phase"`
	Timestamp time.Time      `json:"timestamp"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// DarkPatternEvent is an accepted detection from the pattern detector.
type DarkPatternEvent struct {
	Type       string         `json:"type"`
	Severity   Severity       `json:"severity"`
	Phase      Phase          `json:"phase"`
	Timestamp  time.Time      `json:"timestamp"`
	Rationale  string         `json:"rationale"`
	RawContext map[string]any `json:"rawContext,omitempty"`
	// Unexpected marks detections that fired while the ethical phase was
	// active; their presence indicates a simulation defect, not a tactic.
	Unexpected bool `json:"unexpected,omitempty"`
}

// AutonomyViolation is a qualitative ethics finding tied to a Kantian
// principle.
type AutonomyViolation struct {
	Type                 string    `json:"type"`
	Description          string    `json:"description"`
	Severity             Severity  `json:"severity"`
	KantianPrinciple     string    `json:"kantianPrinciple"`
	Phase                Phase     `json:"phase"`
	CoercionContribution float64   `json:"coercionContribution"`
	Timestamp            time.Time `json:"timestamp"`
	HiddenFromUser       bool      `json:"hiddenFromUser"`
}

// ComplianceViolation records an unsatisfied consent pillar or other
// regulatory finding.
type ComplianceViolation struct {
	RuleID          string    `json:"ruleId"`
	Severity        Severity  `json:"severity"`
	Jurisdiction    string    `json:"jurisdiction"`
	PenaltyEstimate float64   `json:"penaltyEstimate"`
	Phase           Phase     `json:"phase"`
	Timestamp       time.Time `json:"timestamp"`
	Rationale       string    `json:"rationale"`
}

// DecisionPoint is a sampled snapshot of pressure indicators at the
// moment of a user commitment action.
type DecisionPoint struct {
	DecisionType          string         `json:"decisionType"`
	Phase                 Phase          `json:"phase"`
	Timestamp             time.Time      `json:"timestamp"`
	TimeSinceLastDecision time.Duration  `json:"timeSinceLastDecision"`
	ContextSnapshot       map[string]any `json:"contextSnapshot,omitempty"`
}

// BehavioralSample is one observation from the behavioral sampler
// (hesitation, hover latency, re-reads).
type BehavioralSample struct {
	Kind      string    `json:"kind"`
	LatencyMS float64   `json:"latencyMs"`
	Phase     Phase     `json:"phase"`
	Timestamp time.Time `json:"timestamp"`
}
