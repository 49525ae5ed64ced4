package detect

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ethoscope/internal/logging"
	"ethoscope/internal/session"
)

// Stimulus is a structured interaction event supplied by the hosting
// layer. The detector never sees rendered markup; classification runs
// over these fields only.
type Stimulus struct {
	ElementRole string         `json:"elementRole"`
	TextContent string         `json:"textContent"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// searchText flattens the stimulus into one lowercase haystack. The
// element role is included so structural indicators (checkbox:checked)
// can match without a dedicated field per indicator kind.
func (s Stimulus) searchText() string {
	var b strings.Builder
	b.WriteString(s.ElementRole)
	b.WriteString(" ")
	b.WriteString(s.TextContent)
	for _, k := range sortedKeys(s.Metadata) {
		fmt.Fprintf(&b, " %s:%v", k, s.Metadata[k])
	}
	return strings.ToLower(b.String())
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Detection is one accepted classification.
type Detection struct {
	Type       string
	Severity   session.Severity
	Confidence float64
	Rationale  string
	Matched    []string
	// Unexpected is set when the detection fired during the ethical
	// phase, where these tactics should not occur.
	Unexpected bool
}

// Detector runs the catalog against stimuli for one session and keeps
// the running severity-weighted manipulation score (a separate
// accumulator, not the coercion index).
type Detector struct {
	catalog      *Catalog
	log          *slog.Logger
	manipulation float64
}

// New creates a detector over the given catalog.
func New(catalog *Catalog) *Detector {
	return &Detector{catalog: catalog, log: logging.New("detect")}
}

// ManipulationScore returns the accumulated severity-weighted score.
func (d *Detector) ManipulationScore() float64 { return d.manipulation }

// Detect classifies one stimulus under the given phase. In the
// reflection phase detection is disabled and nil is returned. In the
// ethical phase detections still run but are flagged Unexpected and
// logged as simulation defects.
func (d *Detector) Detect(phase session.Phase, stim Stimulus) []Detection {
	if phase == session.PhaseReflection {
		return nil
	}
	text := stim.searchText()
	var out []Detection
	for _, name := range d.catalog.Types() {
		def := d.catalog.Patterns[name]
		var matched []string
		for i, re := range def.compiled {
			if re.MatchString(text) {
				matched = append(matched, def.Indicators[i])
			}
		}
		if len(matched) == 0 {
			continue
		}
		confidence := float64(len(matched)) / float64(len(def.Indicators))
		if confidence < d.catalog.Threshold {
			continue
		}
		det := Detection{
			Type:       name,
			Severity:   def.Severity,
			Confidence: confidence,
			Matched:    matched,
			Rationale: fmt.Sprintf("matched %d/%d indicators for %s: %s",
				len(matched), len(def.Indicators), name, strings.Join(matched, "; ")),
			Unexpected: phase == session.PhaseEthical,
		}
		d.manipulation += def.ScoreDelta
		if det.Unexpected {
			d.log.Warn("dark pattern detected in ethical phase; should not occur",
				"pattern", name, "confidence", confidence)
		}
		out = append(out, det)
	}
	return out
}

// Event converts a detection into a record entry.
func (det Detection) Event(stim Stimulus) session.DarkPatternEvent {
	raw := map[string]any{
		"elementRole": stim.ElementRole,
		"textContent": stim.TextContent,
		"confidence":  det.Confidence,
	}
	for k, v := range stim.Metadata {
		raw[k] = v
	}
	return session.DarkPatternEvent{
		Type:       det.Type,
		Severity:   det.Severity,
		Rationale:  det.Rationale,
		RawContext: raw,
		Unexpected: det.Unexpected,
	}
}

// TrapFor returns the trap category for a pattern type, or "".
func (c *Catalog) TrapFor(patternType string) string {
	if def, ok := c.Patterns[patternType]; ok {
		return def.Trap
	}
	return ""
}
