// Package sim is the orchestration facade: it owns the session
// registry and routes every interaction through detector, scoring,
// ethics, and phase orchestration in that order. Sessions share no
// state; each live session serializes its own mutations.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ethoscope/internal/detect"
	"ethoscope/internal/ethics"
	"ethoscope/internal/logging"
	"ethoscope/internal/phase"
	"ethoscope/internal/score"
	"ethoscope/internal/session"
	"ethoscope/internal/store"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Engine hosts all live sessions.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*liveSession

	catalog  *detect.Catalog
	weights  score.Weights
	scorer   *score.Engine
	ethics   *ethics.Engine
	criteria phase.Criteria
	archive  store.Store
	clock    func() time.Time
	log      *slog.Logger
}

type liveSession struct {
	mu     sync.Mutex
	rec    *session.Record
	det    *detect.Detector
	orch   *phase.Orchestrator
	cancel context.CancelFunc

	// Dedup latches: each ethics rule and consent pillar is recorded
	// at most once per session (the audit trail is append-only, and a
	// standing condition must not flood it on every call).
	recordedRules   map[string]bool
	recordedPillars map[string]bool

	lastTransition *phase.Transition
}

// lastTouched reads the record's idle-age stamp under the session
// lock; Touch writes it during Interact.
func (ls *liveSession) lastTouched() time.Time {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.rec.LastTouched
}

// Option customizes an Engine.
type Option func(*Engine)

// WithCriteria overrides the phase readiness criteria.
func WithCriteria(c phase.Criteria) Option {
	return func(e *Engine) { e.criteria = c }
}

// WithArchive stores each session's final report on cleanup.
func WithArchive(st store.Store) Option {
	return func(e *Engine) { e.archive = st }
}

// WithClock overrides the time source for all new sessions (tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// WithCatalog overrides the dark-pattern catalog.
func WithCatalog(c *detect.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// NewEngine builds an engine with the embedded catalogs and default
// weights.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		sessions: make(map[string]*liveSession),
		catalog:  detect.DefaultCatalog(),
		weights:  score.DefaultWeights(),
		ethics:   ethics.DefaultEngine(),
		criteria: phase.DefaultCriteria(),
		log:      logging.New("sim"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.scorer = score.NewEngine(e.catalog, e.weights)
	return e
}

// Start creates a new session record and begins readiness polling.
func (e *Engine) Start(inputs LoanInputs) (StartResult, error) {
	if inputs.Amount <= 0 {
		return StartResult{}, fmt.Errorf("%w: loan amount must be positive", session.ErrMalformedEvent)
	}
	id := uuid.NewString()
	var recOpts []session.Option
	if e.clock != nil {
		recOpts = append(recOpts, session.WithClock(e.clock))
	}
	rec := session.NewRecord(id, session.LoanTerms{
		Amount:       inputs.Amount,
		TermDays:     inputs.TermDays,
		Jurisdiction: inputs.Jurisdiction,
		Fee:          inputs.Fee,
		APR:          inputs.APR,
	}, recOpts...)

	ls := &liveSession{
		rec:             rec,
		det:             detect.New(e.catalog),
		recordedRules:   make(map[string]bool),
		recordedPillars: make(map[string]bool),
	}
	ls.orch = phase.New(rec, e.scorer, e.criteria)
	ls.orch.OnTransition(func(tr phase.Transition) {
		cp := tr
		ls.lastTransition = &cp
	})

	ctx, cancel := context.WithCancel(context.Background())
	ls.cancel = cancel
	if e.criteria.PollInterval > 0 {
		go e.poll(ctx, ls)
	}

	e.mu.Lock()
	e.sessions[id] = ls
	e.mu.Unlock()

	e.log.Info("session started", "session", id, "amount", inputs.Amount, "apr", inputs.APR)
	return StartResult{SessionID: id, InitialPhase: rec.Phase()}, nil
}

// poll is the periodic readiness check. Evaluation is serialized with
// Interact through the session lock; the loop exits when the automatic
// boundary fires or the session is cancelled.
func (e *Engine) poll(ctx context.Context, ls *liveSession) {
	ticker := time.NewTicker(e.criteria.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ls.mu.Lock()
			fired := ls.orch.Evaluate()
			done := ls.orch.Advanced()
			ls.mu.Unlock()
			if fired || done {
				return
			}
		}
	}
}

func (e *Engine) get(id string) (*liveSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ls, nil
}

// Interact is the sole mutation entry point. Routing order is fixed:
// pattern detector, scoring engine, ethics rule engine, phase
// orchestrator. Detector or rule failures degrade to "no additional
// violations this call"; the response always carries whatever scores
// could still be computed.
func (e *Engine) Interact(id, interactionType string, payload map[string]any) (InteractResult, error) {
	ls, err := e.get(id)
	if err != nil {
		return InteractResult{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.lastTransition = nil

	var detections []session.DarkPatternEvent

	switch interactionType {
	case ActionStimulus:
		detections = e.runDetector(ls, payload)
	case ActionDecision:
		dt := strField(payload, "decisionType")
		if dt == "" {
			dt = "commit"
		}
		ls.rec.AddDecisionPoint(dt, payload)
	case ActionConsent:
		applyConsent(&ls.rec.Consent, payload)
		ls.rec.Touch()
	case ActionRollover:
		fee := numField(payload, "fee")
		if fee <= 0 {
			fee = ls.rec.Loan.Fee
		}
		ls.rec.Loan.Rollover(fee)
		ls.rec.Touch()
	case ActionBehavioralSample:
		if err := ls.rec.Append(session.KindBehavioralSample, payload); err != nil {
			return InteractResult{}, err
		}
		e.updateReadiness(ls, payload)
	case ActionCompleteEthical:
		if err := ls.orch.CompleteEthicalFlow(); err != nil {
			return InteractResult{}, err
		}
	default:
		return InteractResult{}, fmt.Errorf("%w: unknown interaction type %q",
			session.ErrMalformedEvent, interactionType)
	}

	// Scoring, ethics, and the reactive readiness check run on every
	// accepted interaction.
	newCompliance := e.recordConsentViolations(ls)
	newViolations := e.recordEthicsViolations(ls)
	ls.orch.Evaluate()

	snap := ls.rec.Snapshot()
	res := InteractResult{
		Scores:            e.scorer.Compute(snap),
		ManipulationScore: ls.det.ManipulationScore(),
		NewViolations:     newViolations,
		NewCompliance:     newCompliance,
		Detections:        detections,
		PhaseTransition:   ls.lastTransition,
		Phase:             snap.Phase,
		Intervention:      phase.PolicyFor(snap.Phase),
	}
	return res, nil
}

// runDetector classifies one stimulus, recovering detector panics at
// this boundary so a catalog defect cannot take the session down.
func (e *Engine) runDetector(ls *liveSession, payload map[string]any) (events []session.DarkPatternEvent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("detector panicked; treating as no detections",
				"session", ls.rec.ID, "panic", r)
			events = nil
		}
	}()
	stim := detect.Stimulus{
		ElementRole: strField(payload, "elementRole"),
		TextContent: strField(payload, "textContent"),
	}
	if md, ok := payload["metadata"].(map[string]any); ok {
		stim.Metadata = md
	}
	if err := ls.rec.Append(session.KindInteraction, payload); err != nil {
		e.log.Warn("interaction rejected", "session", ls.rec.ID, "err", err)
	}
	for _, det := range ls.det.Detect(ls.rec.Phase(), stim) {
		ev := det.Event(stim)
		ls.rec.AddDarkPattern(ev)
		events = append(events, ev)
	}
	return events
}

// recordConsentViolations appends a compliance violation for each
// unsatisfied pillar not yet recorded this session.
func (e *Engine) recordConsentViolations(ls *liveSession) []session.ComplianceViolation {
	var added []session.ComplianceViolation
	res := e.scorer.Consent(ls.rec.Consent)
	for _, v := range res.Violations {
		if ls.recordedPillars[v.RuleID] {
			continue
		}
		ls.recordedPillars[v.RuleID] = true
		ls.rec.AddComplianceViolation(v)
		snap := ls.rec.Snapshot()
		added = append(added, snap.Compliance[len(snap.Compliance)-1])
	}
	return added
}

// recordEthicsViolations runs the Kantian analysis and appends one
// autonomy violation per newly fired rule. Rule-engine panics are
// recovered here and degrade to no new violations.
func (e *Engine) recordEthicsViolations(ls *liveSession) (added []session.AutonomyViolation) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("ethics engine panicked; no additional violations this call",
				"session", ls.rec.ID, "panic", r)
			added = nil
		}
	}()
	analysis := e.ethics.Analyze(ls.rec.Snapshot())
	for _, v := range analysis.KantianViolations {
		if ls.recordedRules[v.RuleID] {
			continue
		}
		ls.recordedRules[v.RuleID] = true
		ls.rec.AddAutonomyViolation(session.AutonomyViolation{
			Type:                 v.RuleID,
			Description:          v.Rationale,
			Severity:             v.Severity,
			KantianPrinciple:     v.Principle,
			CoercionContribution: v.CoercionContribution,
		})
		snap := ls.rec.Snapshot()
		added = append(added, snap.Autonomy[len(snap.Autonomy)-1])
	}
	return added
}

// updateReadiness derives the behavioral readiness flag: an explicit
// "ready" field wins; otherwise three or more samples mark the
// borrower as observed long enough.
func (e *Engine) updateReadiness(ls *liveSession, payload map[string]any) {
	if ready, ok := payload["ready"].(bool); ok {
		ls.orch.SetBehavioralReady(ready)
		return
	}
	if len(ls.rec.Snapshot().Samples) >= 3 {
		ls.orch.SetBehavioralReady(true)
	}
}

// Report assembles the full read-only view. Calling it repeatedly
// without intervening interactions returns identical output.
func (e *Engine) Report(id string) (Report, error) {
	ls, err := e.get(id)
	if err != nil {
		return Report{}, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()

	snap := ls.rec.Snapshot()
	scores := e.scorer.Compute(snap)
	debt := e.scorer.DebtTrapDetail(snap.Loan)
	rep := Report{
		Session:           snap,
		Scores:            scores,
		ManipulationScore: ls.det.ManipulationScore(),
		Consent:           e.scorer.Consent(snap.Consent),
		DebtTrap:          debt,
		Autonomy:          e.scorer.AutonomyDetail(snap),
		Ethics:            e.ethics.Analyze(snap),
		Intervention:      phase.PolicyFor(snap.Phase),
	}
	rep.Recommendations = recommendations(rep)
	return rep, nil
}

// Cleanup cancels the session's poller, archives the final report when
// an archive store is configured, and discards the record.
func (e *Engine) Cleanup(id string) error {
	rep, err := e.Report(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	ls := e.sessions[id]
	delete(e.sessions, id)
	e.mu.Unlock()
	if ls != nil && ls.cancel != nil {
		ls.cancel()
	}
	if e.archive != nil {
		if _, err := store.ArchiveReport(e.archive, id, rep); err != nil {
			e.log.Warn("archive report failed", "session", id, "err", err)
		}
	}
	e.log.Info("session discarded", "session", id)
	return nil
}

// EvictIdle discards sessions whose last mutation is older than the
// window. Returns the number evicted. The engine exposes this for the
// hosting layer's reaper; it never evicts on its own.
func (e *Engine) EvictIdle(window time.Duration) int {
	now := time.Now()
	if e.clock != nil {
		now = e.clock()
	}
	e.mu.Lock()
	var stale []string
	for id, ls := range e.sessions {
		if now.Sub(ls.lastTouched()) > window {
			stale = append(stale, id)
		}
	}
	e.mu.Unlock()
	for _, id := range stale {
		if err := e.Cleanup(id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			e.log.Warn("evict failed", "session", id, "err", err)
		}
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func applyConsent(flags *session.ConsentFlags, payload map[string]any) {
	set := func(key string, dst *bool) {
		if v, ok := payload[key].(bool); ok {
			*dst = v
		}
	}
	set("capacityConfirmed", &flags.CapacityConfirmed)
	set("disclosureProvided", &flags.DisclosureProvided)
	set("comprehensionVerified", &flags.ComprehensionVerified)
	set("voluntarinessAffirmed", &flags.VoluntarinessAffirmed)
	set("authorizationGiven", &flags.AuthorizationGiven)
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
