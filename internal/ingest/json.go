package ingest

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// decodeJSONArray decodes a top-level JSON array one element at a time,
// sending each on the returned channel. Both channels are closed when
// processing completes.
func decodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "ingest: read json opening token")
			return
		}
		if delim, ok := tok.(json.Delim); !ok || delim != '[' {
			errCh <- eris.Errorf("ingest: expected json array, got %v", tok)
			return
		}

		for decoder.More() {
			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "ingest: decode json element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "ingest: json cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "ingest: read json closing token")
		}
	}()

	return outCh, errCh
}

func decodeJSON(ctx context.Context, r io.Reader) ([]model.Journey, error) {
	journeyCh, errCh := decodeJSONArray[model.Journey](ctx, r)

	journeys := []model.Journey{}
	for j := range journeyCh {
		journeys = append(journeys, j)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return finish(journeys)
}
