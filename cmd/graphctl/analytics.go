package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Summarize stored links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		analytics, err := container.LinkService.GetAnalytics(cmd.Context())
		if err != nil {
			return fmt.Errorf("computing analytics: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, analytics)
		}

		fmt.Fprintf(out, "Total links:      %d\n", analytics.TotalLinks)
		fmt.Fprintf(out, "Automatic/manual: %d/%d\n", analytics.AutomaticLinks, analytics.ManualLinks)
		fmt.Fprintf(out, "Average strength: %.2f\n", analytics.AverageStrength)

		types := make([]string, 0, len(analytics.LinksByType))
		for t := range analytics.LinksByType {
			types = append(types, string(t))
		}
		sort.Strings(types)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\nTYPE\tLINKS")
		for _, t := range types {
			fmt.Fprintf(w, "%s\t%d\n", t, analytics.LinksByType[entities.RelationshipType(t)])
		}
		fmt.Fprintln(w, "\nCONTENT\tCONNECTIONS")
		for _, c := range analytics.MostConnected {
			fmt.Fprintf(w, "%s\t%d\n", c.ContentID, c.Connections)
		}
		return w.Flush()
	},
}
