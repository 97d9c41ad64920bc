package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/fetcher"
	"github.com/sells-group/attribution-cli/internal/ingest"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/resilience"
	"github.com/sells-group/attribution-cli/internal/store"
)

// sourceFlags selects where a command reads its journeys from. Exactly one of
// input, batch or sample is allowed.
type sourceFlags struct {
	input       string
	inputFormat string
	batch       string
	sample      bool
}

func addSourceFlags(cmd *cobra.Command, sf *sourceFlags) {
	cmd.Flags().StringVar(&sf.input, "input", "", "journey export: path, file://, http(s):// or ftp:// URL")
	cmd.Flags().StringVar(&sf.inputFormat, "input-format", "", "export format (csv, tsv, json, yaml, xlsx, zip); detected from the extension when empty")
	cmd.Flags().StringVar(&sf.batch, "batch", "", "stored batch name")
	cmd.Flags().BoolVar(&sf.sample, "sample", false, "use the built-in sample journeys")
}

func loadJourneys(ctx context.Context, sf *sourceFlags) ([]model.Journey, error) {
	set := 0
	for _, on := range []bool{sf.input != "", sf.batch != "", sf.sample} {
		if on {
			set++
		}
	}
	if set != 1 {
		return nil, eris.New("exactly one of --input, --batch or --sample is required")
	}

	switch {
	case sf.sample:
		return model.SampleJourneys()
	case sf.batch != "":
		return loadBatch(ctx, sf.batch)
	default:
		return readExport(ctx, sf.input, sf.inputFormat)
	}
}

func loadBatch(ctx context.Context, batch string) ([]model.Journey, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}

	journeys, err := st.ListJourneys(ctx, store.JourneyFilter{Batch: batch})
	if err != nil {
		return nil, eris.Wrapf(err, "load batch %s", batch)
	}
	return journeys, nil
}

// readExport opens source through the fetcher and decodes it.
func readExport(ctx context.Context, source, format string) ([]model.Journey, error) {
	f, err := resolveFormat(source, format)
	if err != nil {
		return nil, err
	}

	opener := fetcher.NewOpener(fetcher.Options{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    cfg.Fetch.Timeout(),
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
		Burst:      cfg.Fetch.Burst,
		Breaker: resilience.BreakerConfig{
			Failures: cfg.Fetch.BreakerFailures,
			Cooldown: time.Duration(cfg.Fetch.BreakerCooldownSecs) * time.Second,
		},
	})
	rc, err := opener.Open(ctx, source)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", source)
	}
	defer rc.Close() //nolint:errcheck

	journeys, err := ingest.Decode(ctx, rc, ingest.Options{
		Format:        f,
		StepSeparator: cfg.Ingest.StepSeparator,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "decode %s", source)
	}

	zap.L().Debug("journeys loaded",
		zap.String("source", source),
		zap.String("format", string(f)),
		zap.Int("journeys", len(journeys)),
	)
	return journeys, nil
}

func resolveFormat(source, format string) (ingest.Format, error) {
	if format != "" {
		return ingest.ParseFormat(format)
	}
	return ingest.DetectFormat(fetcher.Name(source))
}
