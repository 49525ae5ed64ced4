// Package ethics evaluates the fixed catalog of Kantian checks against
// a session snapshot. Checks are data: kantian.yaml pairs each
// predicate (an expr expression over the fact environment) with the
// violation template it emits. Evaluation is idempotent and
// side-effect-free; the caller decides which firings to record.
package ethics

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"ethoscope/internal/logging"
	"ethoscope/internal/session"
)

//go:embed kantian.yaml
var kantianYAML []byte

// Check is one catalog entry with its compiled predicate.
type Check struct {
	ID                   string           `yaml:"id"`
	Principle            string           `yaml:"principle"`
	Severity             session.Severity `yaml:"severity"`
	CoercionContribution float64          `yaml:"coercion_contribution"`
	When                 string           `yaml:"when"`
	Rationale            string           `yaml:"rationale"`

	program *vm.Program
}

type catalogFile struct {
	Checks []*Check `yaml:"checks"`
}

// Violation is one qualitative finding from a fired check.
type Violation struct {
	RuleID               string           `json:"ruleId"`
	Principle            string           `json:"principle"`
	Severity             session.Severity `json:"severity"`
	CoercionContribution float64          `json:"coercionContribution"`
	Rationale            string           `json:"rationale"`
}

// Analysis is the engine's verdict for one snapshot.
type Analysis struct {
	ConsentStatus     string      `json:"consentStatus"`
	KantianViolations []Violation `json:"kantianViolations"`
}

// Engine holds the compiled check catalog.
type Engine struct {
	checks []*Check
	log    *slog.Logger
}

// NewEngine compiles a catalog from YAML.
func NewEngine(data []byte) (*Engine, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse kantian catalog: %w", err)
	}
	if len(file.Checks) == 0 {
		return nil, fmt.Errorf("kantian catalog: no checks")
	}
	for _, c := range file.Checks {
		if c.ID == "" || c.When == "" {
			return nil, fmt.Errorf("kantian catalog: check missing id or predicate: %+v", c)
		}
		prog, err := expr.Compile(c.When, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("check %q: compile %q: %w", c.ID, c.When, err)
		}
		c.program = prog
	}
	return &Engine{checks: file.Checks, log: logging.New("ethics")}, nil
}

// DefaultEngine compiles the embedded catalog. Panics on a broken
// embed; the catalog test keeps that from shipping.
func DefaultEngine() *Engine {
	e, err := NewEngine(kantianYAML)
	if err != nil {
		panic(fmt.Sprintf("load embedded kantian.yaml: %v", err))
	}
	return e
}

// Checks exposes the catalog (read-only) for reporting.
func (e *Engine) Checks() []*Check { return e.checks }

// Analyze runs every check against the snapshot. All checks are
// evaluated independently; a predicate error disables that check for
// the call (logged) rather than aborting the analysis.
func (e *Engine) Analyze(snap session.Snapshot) Analysis {
	env := Facts(snap)
	analysis := Analysis{ConsentStatus: consentStatus(snap.Consent)}
	for _, c := range e.checks {
		fired, err := expr.Run(c.program, env)
		if err != nil {
			e.log.Warn("check predicate failed; skipping for this call",
				"check", c.ID, "err", err)
			continue
		}
		if fired != true {
			continue
		}
		analysis.KantianViolations = append(analysis.KantianViolations, Violation{
			RuleID:               c.ID,
			Principle:            c.Principle,
			Severity:             c.Severity,
			CoercionContribution: c.CoercionContribution,
			Rationale:            c.Rationale,
		})
	}
	return analysis
}

func consentStatus(flags session.ConsentFlags) string {
	satisfied := 0
	for _, ok := range []bool{
		flags.CapacityConfirmed, flags.DisclosureProvided,
		flags.ComprehensionVerified, flags.VoluntarinessAffirmed,
		flags.AuthorizationGiven,
	} {
		if ok {
			satisfied++
		}
	}
	switch {
	case satisfied == 5:
		return "valid"
	case satisfied >= 3:
		return "partial"
	default:
		return "invalid"
	}
}
