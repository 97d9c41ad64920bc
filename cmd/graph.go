package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/flowgraph"
)

var (
	graphSource sourceFlags
	graphVerify bool
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build the acyclic journey flow graph as Sankey JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		journeys, err := loadJourneys(cmd.Context(), &graphSource)
		if err != nil {
			return err
		}

		g := flowgraph.Build(journeys)
		stats := g.Stats()
		zap.L().Info("graph built",
			zap.Int("nodes", stats.TotalNodes),
			zap.Int("edges", stats.TotalEdges),
			zap.Int("rejected", stats.RejectedEdges),
		)

		if graphVerify {
			if err := flowgraph.Verify(g); err != nil {
				return eris.Wrap(err, "graph verify")
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	},
}

func init() {
	addSourceFlags(graphCmd, &graphSource)
	graphCmd.Flags().BoolVar(&graphVerify, "verify", false, "fail if the graph has a cycle, self-loop, duplicate or dangling edge")
	rootCmd.AddCommand(graphCmd)
}
