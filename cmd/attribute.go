package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/model"
)

var (
	attributeSource  sourceFlags
	attributeModel   string
	attributeRevenue bool
	attributeFormat  string
)

var attributeCmd = &cobra.Command{
	Use:   "attribute",
	Short: "Allocate conversion credit across channels",
	Long:  "Allocates one unit of credit per converting journey (or its revenue with --revenue) across the journey's channels under the chosen model.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		m := cfg.DefaultModel()
		if attributeModel != "" {
			parsed, err := attribution.ParseModel(attributeModel)
			if err != nil {
				return err
			}
			m = parsed
		}

		journeys, err := loadJourneys(cmd.Context(), &attributeSource)
		if err != nil {
			return err
		}

		allocate := attribution.Allocate
		if attributeRevenue {
			allocate = attribution.AllocateRevenue
		}
		credits, err := allocate(journeys, m)
		if err != nil {
			return eris.Wrap(err, "attribute")
		}

		report := creditReport{
			Model:   m,
			Revenue: attributeRevenue,
			Summary: model.Summarize(journeys),
			Total:   credits.Total(),
			Credits: credits.Ranked(),
			Shares:  shares(credits),
		}
		return render(cmd.OutOrStdout(), attributeFormat, report, func() { formatCredits(cmd.OutOrStdout(), report) })
	},
}

func shares(credits attribution.CreditMap) map[string]float64 {
	out := make(map[string]float64, len(credits))
	for ch := range credits {
		out[ch] = credits.Share(ch)
	}
	return out
}

func init() {
	addSourceFlags(attributeCmd, &attributeSource)
	attributeCmd.Flags().StringVar(&attributeModel, "model", "", "attribution model (default from config)")
	attributeCmd.Flags().BoolVar(&attributeRevenue, "revenue", false, "weight each journey by its revenue")
	attributeCmd.Flags().StringVar(&attributeFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(attributeCmd)
}
