package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/server"
)

var (
	servePort    int
	serveNoStore bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attribution HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		mode := "serve"
		if serveNoStore {
			mode = "cli"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		opts := []server.Option{
			server.WithLogger(zap.L()),
			server.WithDefaultModel(cfg.DefaultModel()),
		}
		if !serveNoStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			opts = append(opts, server.WithStore(st))
		}

		return server.New(cfg.Server, opts...).ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "serve without the batch store endpoints")
	rootCmd.AddCommand(serveCmd)
}
