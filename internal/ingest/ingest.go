package ingest

import (
	"context"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// DefaultStepSeparator splits the steps column of wide tabular exports.
const DefaultStepSeparator = ">"

// ErrDuplicateID is returned when a journey id repeats in a format that holds
// one journey per record.
var ErrDuplicateID = eris.New("ingest: duplicate journey id")

// Options configures Decode.
type Options struct {
	// Format of the input. Required; see DetectFormat.
	Format Format
	// StepSeparator splits the steps cell of wide CSV/XLSX rows.
	StepSeparator string
}

// Decode reads every journey from r. Channel names are normalized, blank
// steps dropped, and journeys without an id get "row-N" by position.
func Decode(ctx context.Context, r io.Reader, opts Options) ([]model.Journey, error) {
	if opts.StepSeparator == "" {
		opts.StepSeparator = DefaultStepSeparator
	}

	switch opts.Format {
	case FormatCSV:
		return decodeCSV(ctx, r, ',', opts)
	case FormatTSV:
		return decodeCSV(ctx, r, '\t', opts)
	case FormatJSON:
		return decodeJSON(ctx, r)
	case FormatYAML:
		return decodeYAML(r)
	case FormatXLSX:
		return decodeXLSX(r, opts)
	case FormatZIP:
		return decodeZIP(ctx, r, opts)
	default:
		return nil, eris.Wrapf(ErrUnknownFormat, "ingest: decode %q", opts.Format)
	}
}

// finish normalizes record-per-journey input, fills missing ids and rejects
// duplicates.
func finish(journeys []model.Journey) ([]model.Journey, error) {
	seen := make(map[string]int, len(journeys))
	out := make([]model.Journey, len(journeys))
	for i, j := range journeys {
		j = j.Normalized()
		if j.ID == "" {
			j.ID = rowID(i + 1)
		}
		if prev, ok := seen[j.ID]; ok {
			return nil, eris.Wrapf(ErrDuplicateID, "ingest: id %q on records %d and %d", j.ID, prev, i+1)
		}
		seen[j.ID] = i + 1
		out[i] = j
	}
	return out, nil
}

func rowID(n int) string {
	return "row-" + strconv.Itoa(n)
}
