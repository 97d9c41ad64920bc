package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/attribution-cli/internal/attribution"
)

var (
	compareSource sourceFlags
	compareModels string
	compareFormat string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare channel credit across attribution models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		models, err := parseModels(compareModels)
		if err != nil {
			return err
		}

		journeys, err := loadJourneys(cmd.Context(), &compareSource)
		if err != nil {
			return err
		}

		cmp, err := attribution.Compare(cmd.Context(), journeys, models...)
		if err != nil {
			return eris.Wrap(err, "compare")
		}
		return render(cmd.OutOrStdout(), compareFormat, cmp, func() { formatComparison(cmd.OutOrStdout(), cmp) })
	},
}

// parseModels parses a comma-separated model list. Empty means all models.
func parseModels(list string) ([]attribution.Model, error) {
	var models []attribution.Model
	for _, name := range strings.Split(list, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m, err := attribution.ParseModel(name)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

func init() {
	addSourceFlags(compareCmd, &compareSource)
	compareCmd.Flags().StringVar(&compareModels, "models", "", "comma-separated models to compare (default all)")
	compareCmd.Flags().StringVar(&compareFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(compareCmd)
}
