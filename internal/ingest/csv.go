package ingest

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// streamCSV reads records on a goroutine and sends them on the returned
// channel. Both channels are closed when reading stops; at most one error is
// sent.
func streamCSV(ctx context.Context, r io.Reader, comma rune) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		reader.Comma = comma
		reader.Comment = '#'
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true
		reader.ReuseRecord = false

		for {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "ingest: read csv row")
				return
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: csv cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

func decodeCSV(ctx context.Context, r io.Reader, comma rune, opts Options) ([]model.Journey, error) {
	rowCh, errCh := streamCSV(ctx, r, comma)

	var t *table
	line := 0
	for row := range rowCh {
		line++
		if t == nil {
			var err error
			if t, err = newTable(row, opts.StepSeparator); err != nil {
				drain(rowCh)
				return nil, err
			}
			continue
		}
		if err := t.add(row, line); err != nil {
			drain(rowCh)
			return nil, err
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if t == nil {
		return []model.Journey{}, nil
	}
	return t.journeys()
}

// drain discards remaining rows so the reader goroutine can exit.
func drain(ch <-chan []string) {
	for range ch {
	}
}
