package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_meta (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	phase TEXT NOT NULL,
	coercion_index REAL NOT NULL,
	consent_quality REAL NOT NULL,
	debt_trap REAL NOT NULL,
	autonomy REAL NOT NULL,
	risk_label TEXT NOT NULL,
	report_json TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_session ON reports(session_id);
`

// SqlStore implements Store with SQLite.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and applies the schema.
// Creates the parent directory (e.g. .ethoscope) if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	var version int
	err = db.QueryRow(`SELECT version FROM schema_meta LIMIT 1`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.Exec(`INSERT INTO schema_meta (version) VALUES (?)`, schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("init schema version: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	case version > schemaVersion:
		db.Close()
		return nil, fmt.Errorf("db schema version %d newer than supported %d", version, schemaVersion)
	}
	return &SqlStore{db: db}, nil
}

func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) SaveReport(rep *ArchivedReport) (int64, error) {
	if rep == nil {
		return 0, errors.New("report is nil")
	}
	createdAt := rep.CreatedAt
	if createdAt == "" {
		createdAt = nowUTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO reports (session_id, created_at, phase, coercion_index,
			consent_quality, debt_trap, autonomy, risk_label, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			created_at = excluded.created_at,
			phase = excluded.phase,
			coercion_index = excluded.coercion_index,
			consent_quality = excluded.consent_quality,
			debt_trap = excluded.debt_trap,
			autonomy = excluded.autonomy,
			risk_label = excluded.risk_label,
			report_json = excluded.report_json`,
		rep.SessionID, createdAt, rep.Phase, rep.CoercionIndex,
		rep.ConsentQualityScore, rep.DebtTrapScore, rep.AutonomyScore,
		rep.RiskLabel, rep.ReportJSON)
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save report id: %w", err)
	}
	return id, nil
}

const reportColumns = `id, session_id, created_at, phase, coercion_index,
	consent_quality, debt_trap, autonomy, risk_label, report_json`

func scanReport(row interface{ Scan(...any) error }) (*ArchivedReport, error) {
	var rep ArchivedReport
	err := row.Scan(&rep.ID, &rep.SessionID, &rep.CreatedAt, &rep.Phase,
		&rep.CoercionIndex, &rep.ConsentQualityScore, &rep.DebtTrapScore,
		&rep.AutonomyScore, &rep.RiskLabel, &rep.ReportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	return &rep, nil
}

func (s *SqlStore) GetReport(id int64) (*ArchivedReport, error) {
	return scanReport(s.db.QueryRow(
		`SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
}

func (s *SqlStore) GetReportBySession(sessionID string) (*ArchivedReport, error) {
	return scanReport(s.db.QueryRow(
		`SELECT `+reportColumns+` FROM reports WHERE session_id = ?`, sessionID))
}

func (s *SqlStore) ListReports() ([]*ArchivedReport, error) {
	rows, err := s.db.Query(`SELECT ` + reportColumns + ` FROM reports ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()
	var out []*ArchivedReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
