package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var failOnCycle bool

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Report circular prerequisite dependencies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := container.LinkService.AuditCycles(cmd.Context())
		if err != nil {
			return fmt.Errorf("detecting cycles: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := printJSON(out, report); err != nil {
				return err
			}
		} else if len(report.Cycles) == 0 {
			fmt.Fprintln(out, "No circular dependencies.")
		} else {
			fmt.Fprintf(out, "%d circular dependencies:\n", len(report.Cycles))
			for _, cycle := range report.Cycles {
				fmt.Fprintf(out, "  %s\n", strings.Join(cycle, " -> "))
			}
		}

		if failOnCycle && len(report.Cycles) > 0 {
			return fmt.Errorf("found %d circular dependencies", len(report.Cycles))
		}
		return nil
	},
}

func init() {
	cyclesCmd.Flags().BoolVar(&failOnCycle, "fail", false, "exit non-zero when a cycle exists")
}
