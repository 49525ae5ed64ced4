package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ethoscope/internal/store"
)

var reportFlags struct {
	dbPath    string
	sessionID string
	id        int64
	full      bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List or fetch archived session reports",
	Long: `Report reads the SQLite archive written on session cleanup. With no
selector it lists all archived reports; --session or --id fetches one,
and --full prints the complete report JSON.`,
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.dbPath, "db", store.DefaultDBPath, "Archive DB path")
	f.StringVar(&reportFlags.sessionID, "session", "", "Fetch the report for one session ID")
	f.Int64Var(&reportFlags.id, "id", 0, "Fetch one report by archive row ID")
	f.BoolVar(&reportFlags.full, "full", false, "Print the full report JSON")
}

func runReport(_ *cobra.Command, _ []string) error {
	st, err := store.Open(reportFlags.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	switch {
	case reportFlags.sessionID != "":
		rep, err := st.GetReportBySession(reportFlags.sessionID)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("no archived report for session %q", reportFlags.sessionID)
		}
		return printReport(rep)
	case reportFlags.id != 0:
		rep, err := st.GetReport(reportFlags.id)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("no archived report with id %d", reportFlags.id)
		}
		return printReport(rep)
	default:
		reps, err := st.ListReports()
		if err != nil {
			return err
		}
		if len(reps) == 0 {
			fmt.Println("No archived reports.")
			return nil
		}
		for _, rep := range reps {
			fmt.Printf("#%-4d %s  %s  phase=%s coercion=%.0f consent=%.0f debt=%.0f(%s) autonomy=%.0f\n",
				rep.ID, rep.CreatedAt, rep.SessionID, rep.Phase,
				rep.CoercionIndex, rep.ConsentQualityScore,
				rep.DebtTrapScore, rep.RiskLabel, rep.AutonomyScore)
		}
		return nil
	}
}

func printReport(rep *store.ArchivedReport) error {
	if reportFlags.full {
		var pretty json.RawMessage = []byte(rep.ReportJSON)
		blob, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	fmt.Printf("Session:   %s\n", rep.SessionID)
	fmt.Printf("Archived:  %s\n", rep.CreatedAt)
	fmt.Printf("Phase:     %s\n", rep.Phase)
	fmt.Printf("Coercion:  %.1f\n", rep.CoercionIndex)
	fmt.Printf("Consent:   %.1f\n", rep.ConsentQualityScore)
	fmt.Printf("Debt trap: %.1f (%s)\n", rep.DebtTrapScore, rep.RiskLabel)
	fmt.Printf("Autonomy:  %.1f\n", rep.AutonomyScore)
	fmt.Fprintln(os.Stdout, "Use --full for the complete report JSON.")
	return nil
}
