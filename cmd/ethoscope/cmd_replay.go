package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ethoscope/internal/logging"
	"ethoscope/internal/phase"
	"ethoscope/internal/scenarios"
	"ethoscope/internal/sim"
	"ethoscope/internal/store"
)

var replayFlags struct {
	output    string
	archiveDB string
	check     bool
	logLevel  string
}

var replayCmd = &cobra.Command{
	Use:   "replay <scenario>",
	Short: "Run an embedded scenario and print its final report",
	Long: `Replay runs a scripted scenario through a fresh engine with phase
age gating disabled, prints the final report as JSON, and optionally
checks the scenario's expected outcome bounds.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	f := replayCmd.Flags()
	f.StringVarP(&replayFlags.output, "output", "o", "", "Write report JSON to file instead of stdout")
	f.StringVar(&replayFlags.archiveDB, "archive-db", "", "Also archive the report to this SQLite DB")
	f.BoolVar(&replayFlags.check, "check", true, "Verify the scenario's expected outcome bounds")
	f.StringVar(&replayFlags.logLevel, "log-level", "warn", "Log level during replay")
}

func runReplay(_ *cobra.Command, args []string) error {
	logging.Init(logging.ParseLevel(replayFlags.logLevel), "text")

	s, err := scenarios.Load(args[0])
	if err != nil {
		return err
	}

	// Scripted runs finish in milliseconds; age gating and polling
	// only make sense for live sessions.
	criteria := phase.DefaultCriteria()
	criteria.MinPhaseAge = 0
	criteria.PollInterval = 0

	opts := []sim.Option{sim.WithCriteria(criteria)}
	if replayFlags.archiveDB != "" {
		st, err := store.Open(replayFlags.archiveDB)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, sim.WithArchive(st))
	}
	engine := sim.NewEngine(opts...)

	rep, err := scenarios.Run(engine, s)
	if err != nil {
		return err
	}

	blob, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if replayFlags.output != "" {
		if err := os.WriteFile(replayFlags.output, append(blob, '\n'), 0644); err != nil {
			return err
		}
		fmt.Printf("Report: %s\n", replayFlags.output)
	} else {
		fmt.Println(string(blob))
	}

	if replayFlags.check {
		if err := scenarios.Check(s, rep); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Scenario %q met its expected outcome bounds.\n", s.Name)
	}
	return nil
}
