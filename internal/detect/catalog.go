// Package detect classifies structured UI stimuli against a data-driven
// dark-pattern catalog: per-type regex indicator lists with a shared
// confidence threshold. The catalog lives in patterns.yaml and can be
// extended without code changes.
package detect

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"ethoscope/internal/session"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Trap categories some pattern types belong to; the coercion index
// awards compound bonuses when certain traps are active together.
const (
	TrapTimePressure = "time_pressure"
	TrapDefaultBias  = "default_bias"
	TrapScarcity     = "scarcity"
)

// PatternDef is one catalog entry.
type PatternDef struct {
	Severity   session.Severity `yaml:"severity"`
	ScoreDelta float64          `yaml:"score_delta"`
	Trap       string           `yaml:"trap"`
	Indicators []string         `yaml:"indicators"`

	compiled []*regexp.Regexp
}

// Catalog is the full indicator table plus the detection threshold.
type Catalog struct {
	Threshold float64                `yaml:"threshold"`
	Patterns  map[string]*PatternDef `yaml:"patterns"`
}

// LoadCatalog parses and compiles a catalog from YAML.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse pattern catalog: %w", err)
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		return nil, fmt.Errorf("pattern catalog: threshold %v out of (0,1]", c.Threshold)
	}
	for name, def := range c.Patterns {
		if def == nil || len(def.Indicators) == 0 {
			return nil, fmt.Errorf("pattern %q: no indicators", name)
		}
		for _, ind := range def.Indicators {
			re, err := regexp.Compile(`(?i)` + ind)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: indicator %q: %w", name, ind, err)
			}
			def.compiled = append(def.compiled, re)
		}
	}
	return &c, nil
}

// DefaultCatalog loads the embedded catalog. Panics on a broken embed;
// the catalog test keeps that from shipping.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(patternsYAML)
	if err != nil {
		panic(fmt.Sprintf("load embedded patterns.yaml: %v", err))
	}
	return c
}

// Types returns the catalog's pattern type names, sorted.
func (c *Catalog) Types() []string {
	names := make([]string, 0, len(c.Patterns))
	for name := range c.Patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
