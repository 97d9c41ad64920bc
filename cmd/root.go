package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "attribution-cli",
	Short:        "Multi-touch attribution and customer journey flow graphs",
	Long:         "Allocates conversion credit across marketing channels under five attribution models and builds acyclic Sankey flow graphs from customer journeys.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
