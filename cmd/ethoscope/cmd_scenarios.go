package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ethoscope/internal/scenarios"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the embedded scenarios",
	RunE: func(_ *cobra.Command, _ []string) error {
		for _, name := range scenarios.List() {
			s, err := scenarios.Load(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %d steps  %s\n", name, len(s.Steps), firstLine(s.Description))
		}
		return nil
	},
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
