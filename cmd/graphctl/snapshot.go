package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/ports"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/application/services"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/infrastructure/export"
)

var (
	exportDir    string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSONL snapshot of every link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportStdout {
			links, err := container.LinkService.AllLinks(cmd.Context())
			if err != nil {
				return err
			}
			return export.EncodeJSONL(cmd.OutOrStdout(), links)
		}

		var exporter ports.SnapshotExporter = container.Exporter
		if exportDir != "" {
			exporter = export.NewFileExporter(exportDir, "")
		}
		location, count, err := container.LinkService.ExportSnapshot(cmd.Context(), exporter)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{"location": location, "links": count})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d links to %s\n", count, location)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Load links from a JSONL snapshot",
	Long: `Load links from a JSONL snapshot as one batch. Reverse halves of
bidirectional pairs are recreated by the store, so only the first half of
each pair is read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening snapshot: %w", err)
		}
		defer f.Close()

		links, err := export.DecodeJSONL(f)
		if err != nil {
			return err
		}
		result, err := container.LinkService.CreateLinksBatch(cmd.Context(), importOperations(links))
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d links, skipped %d\n", len(result.Created), len(result.Failed))
		for _, failure := range result.Failed {
			fmt.Fprintf(cmd.OutOrStdout(), "  entry %d: %s\n", failure.Index+1, failure.Error)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "write to this directory instead of the configured exporter")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "write JSONL to standard output")
}

// importOperations drops the second half of every bidirectional pair
func importOperations(links []entities.ContentLink) []services.LinkOperation {
	seen := make(map[string]bool, len(links))
	ops := make([]services.LinkOperation, 0, len(links))
	for _, l := range links {
		seen[l.ID] = true
		if l.PairID != "" && seen[l.PairID] {
			continue
		}
		strength := l.Strength
		ops = append(ops, services.LinkOperation{
			SourceID:    l.SourceID,
			TargetID:    l.TargetID,
			Type:        l.Type,
			Strength:    &strength,
			Description: l.Metadata.Description,
			CreatedBy:   l.Metadata.CreatedBy,
			Automatic:   l.Metadata.Automatic,
		})
	}
	return ops
}
