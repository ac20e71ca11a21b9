package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/core/entities"
	"github.com/moatasim-KT/interactive-knowledge-system-sub006/domain/layout"
)

var (
	modulesFile  string
	layoutType   string
	layoutWidth  float64
	layoutHeight float64
	layoutSeed   int64
)

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Compute node positions for a module set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		modules, err := readModules(modulesFile)
		if err != nil {
			return err
		}

		graph, err := container.GraphService.BuildContentGraph(cmd.Context(), modules)
		if err != nil {
			return fmt.Errorf("building graph: %w", err)
		}
		nodes, err := container.GraphService.ApplyLayout(cmd.Context(), graph, layout.Config{
			Type:   layout.Type(layoutType),
			Width:  layoutWidth,
			Height: layoutHeight,
			Seed:   layoutSeed,
		})
		if err != nil {
			return fmt.Errorf("applying layout: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, nodes)
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NODE\tX\tY")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%.1f\t%.1f\n", n.ID, n.Position.X, n.Position.Y)
		}
		return w.Flush()
	},
}

func init() {
	layoutCmd.Flags().StringVarP(&modulesFile, "modules", "m", "", "JSON file with the module array")
	layoutCmd.Flags().StringVarP(&layoutType, "type", "t", string(layout.TypeForceDirected),
		"force-directed, hierarchical, circular, grid or tree")
	layoutCmd.Flags().Float64Var(&layoutWidth, "width", 800, "canvas width")
	layoutCmd.Flags().Float64Var(&layoutHeight, "height", 600, "canvas height")
	layoutCmd.Flags().Int64Var(&layoutSeed, "seed", 0, "seed for force-directed starting positions")
	_ = layoutCmd.MarkFlagRequired("modules")
}

// readModules accepts a bare module array or an object with a modules field
func readModules(path string) ([]entities.ContentModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading modules: %w", err)
	}
	var modules []entities.ContentModule
	if err := json.Unmarshal(data, &modules); err == nil {
		return modules, nil
	}
	var wrapped struct {
		Modules []entities.ContentModule `json:"modules"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parsing modules in %s: %w", path, err)
	}
	return wrapped.Modules, nil
}
