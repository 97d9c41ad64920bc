package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Manage stored journey batches",
}

// -- batches list --

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored batches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		batches, err := st.ListBatches(ctx)
		if err != nil {
			return eris.Wrap(err, "batches list")
		}
		if len(batches) == 0 {
			fmt.Fprintln(os.Stderr, "No batches found.")
			return nil
		}

		formatBatches(cmd.OutOrStdout(), batches)
		return nil
	},
}

// -- batches delete --

var batchesDeleteCmd = &cobra.Command{
	Use:   "delete <batch>",
	Short: "Delete a stored batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		n, err := st.DeleteBatch(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "batches delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted batch %q (%d journeys).\n", args[0], n)
		return nil
	},
}

func init() {
	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesDeleteCmd)
	rootCmd.AddCommand(batchesCmd)
}
