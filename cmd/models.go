package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/attribution-cli/internal/attribution"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List attribution models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		def := cfg.DefaultModel()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tLABEL\tDEFAULT")
		_, _ = fmt.Fprintln(w, "----\t-----\t-------")
		for _, m := range attribution.Models() {
			mark := ""
			if m == def {
				mark = "*"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m, m.Label(), mark)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
