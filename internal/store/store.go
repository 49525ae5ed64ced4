// Package store archives final session reports. Live session state is
// ephemeral and never touches the store; archival happens once, when a
// session is cleaned up with archiving enabled.
package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultDBPath is the default relative path for the SQLite DB.
// Open() creates the parent dir (e.g. .ethoscope).
const DefaultDBPath = ".ethoscope/ethoscope.db"

// ArchivedReport is one completed session's final state.
type ArchivedReport struct {
	ID        int64
	SessionID string
	CreatedAt string // RFC3339 UTC
	Phase     string

	CoercionIndex       float64
	ConsentQualityScore float64
	DebtTrapScore       float64
	AutonomyScore       float64
	RiskLabel           string

	// ReportJSON is the full report, serialized; the scalar columns
	// above exist for listing without deserializing.
	ReportJSON string
}

// Store is the archive facade. CLI and engine use only this interface;
// the implementation is SQLite or in-memory.
type Store interface {
	SaveReport(rep *ArchivedReport) (id int64, err error)
	GetReport(id int64) (*ArchivedReport, error)
	GetReportBySession(sessionID string) (*ArchivedReport, error)
	ListReports() ([]*ArchivedReport, error)
	Close() error
}

// reportShape is the subset of the engine's report the archive lifts
// into scalar columns. Kept structural to avoid an import cycle with
// the sim package.
type reportShape struct {
	Session struct {
		Phase string `json:"phase"`
	} `json:"session"`
	Scores struct {
		CoercionIndex       float64 `json:"coercionIndex"`
		ConsentQualityScore float64 `json:"consentQualityScore"`
		DebtTrapScore       float64 `json:"debtTrapScore"`
		AutonomyScore       float64 `json:"autonomyScore"`
	} `json:"scores"`
	DebtTrap struct {
		Label string `json:"label"`
	} `json:"debtTrap"`
}

// ArchiveReport serializes a report and saves it.
func ArchiveReport(st Store, sessionID string, report any) (int64, error) {
	blob, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	var shape reportShape
	if err := json.Unmarshal(blob, &shape); err != nil {
		return 0, fmt.Errorf("lift report columns: %w", err)
	}
	return st.SaveReport(&ArchivedReport{
		SessionID:           sessionID,
		CreatedAt:           nowUTC(),
		Phase:               shape.Session.Phase,
		CoercionIndex:       shape.Scores.CoercionIndex,
		ConsentQualityScore: shape.Scores.ConsentQualityScore,
		DebtTrapScore:       shape.Scores.DebtTrapScore,
		AutonomyScore:       shape.Scores.AutonomyScore,
		RiskLabel:           shape.DebtTrap.Label,
		ReportJSON:          string(blob),
	})
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
