// Package scenarios embeds scripted sessions used by the replay
// command and by integration tests: each scenario is a loan setup plus
// an ordered list of interactions with expectations on the outcome.
package scenarios

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ethoscope/internal/sim"
)

//go:embed *.yaml
var scenarioFS embed.FS

// Step is one scripted interaction.
type Step struct {
	Type    string         `yaml:"type"`
	Payload map[string]any `yaml:"payload"`
}

// Expectations are coarse outcome bounds checked after a replay.
type Expectations struct {
	MinDarkPatterns  int     `yaml:"min_dark_patterns"`
	MinCoercionIndex float64 `yaml:"min_coercion_index"`
	MaxCoercionIndex float64 `yaml:"max_coercion_index"`
	DebtTrapLabel    string  `yaml:"debt_trap_label"`
}

// Scenario is one embedded script.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Loan        sim.LoanInputs `yaml:"loan"`
	Steps       []Step         `yaml:"steps"`
	Expect      Expectations   `yaml:"expect"`
}

// Load reads a scenario by name from the embedded YAML files.
func Load(name string) (*Scenario, error) {
	data, err := scenarioFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("scenario %q not found (available: %s): %w",
			name, strings.Join(List(), ", "), err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %q: %w", name, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", name)
	}
	return &s, nil
}

// List returns the names of all embedded scenarios, sorted.
func List() []string {
	entries, _ := scenarioFS.ReadDir(".")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Run replays the scenario against the engine and returns the final
// report. The session is cleaned up afterwards regardless of outcome.
func Run(engine *sim.Engine, s *Scenario) (sim.Report, error) {
	started, err := engine.Start(s.Loan)
	if err != nil {
		return sim.Report{}, fmt.Errorf("start scenario %q: %w", s.Name, err)
	}
	defer engine.Cleanup(started.SessionID)

	for i, step := range s.Steps {
		if _, err := engine.Interact(started.SessionID, step.Type, step.Payload); err != nil {
			return sim.Report{}, fmt.Errorf("scenario %q step %d (%s): %w", s.Name, i, step.Type, err)
		}
	}
	return engine.Report(started.SessionID)
}

// Check verifies the report against the scenario's expectations.
func Check(s *Scenario, rep sim.Report) error {
	if got := len(rep.Session.DarkPatterns); got < s.Expect.MinDarkPatterns {
		return fmt.Errorf("scenario %q: %d dark patterns, want >= %d", s.Name, got, s.Expect.MinDarkPatterns)
	}
	if rep.Scores.CoercionIndex < s.Expect.MinCoercionIndex {
		return fmt.Errorf("scenario %q: coercion %v, want >= %v", s.Name, rep.Scores.CoercionIndex, s.Expect.MinCoercionIndex)
	}
	if s.Expect.MaxCoercionIndex > 0 && rep.Scores.CoercionIndex > s.Expect.MaxCoercionIndex {
		return fmt.Errorf("scenario %q: coercion %v, want <= %v", s.Name, rep.Scores.CoercionIndex, s.Expect.MaxCoercionIndex)
	}
	if s.Expect.DebtTrapLabel != "" && rep.DebtTrap.Label != s.Expect.DebtTrapLabel {
		return fmt.Errorf("scenario %q: debt-trap label %q, want %q", s.Name, rep.DebtTrap.Label, s.Expect.DebtTrapLabel)
	}
	return nil
}
