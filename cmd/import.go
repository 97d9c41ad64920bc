package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importInput  string
	importBatch  string
	importFormat string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a journey export into a stored batch",
	Long:  "Reads a journey export and replaces the named batch with its journeys.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		journeys, err := readExport(ctx, importInput, importFormat)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.SaveBatch(ctx, importBatch, journeys)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.Int("journeys", n),
			zap.String("batch", importBatch),
			zap.String("input", importInput),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d journeys into batch %q.\n", n, importBatch)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInput, "input", "", "journey export path or URL (required)")
	importCmd.Flags().StringVar(&importBatch, "batch", "", "batch name (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "export format (csv, tsv, json, yaml, xlsx, zip); detected from the extension when empty")
	_ = importCmd.MarkFlagRequired("input")
	_ = importCmd.MarkFlagRequired("batch")
	rootCmd.AddCommand(importCmd)
}
