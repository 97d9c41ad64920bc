package attribution

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/attribution-cli/internal/model"
)

// Comparison is the side-by-side credit allocation of one journey batch under
// several models.
type Comparison struct {
	Models   []Model     `json:"models"`
	Channels []string    `json:"channels"`
	Credits  []CreditMap `json:"credits"`
}

// Row returns the credit each model assigns to channel, in Models order.
func (c *Comparison) Row(channel string) []float64 {
	row := make([]float64, len(c.Models))
	for i, credits := range c.Credits {
		row[i] = credits[channel]
	}
	return row
}

// Compare allocates the batch under every requested model concurrently. With
// no models given, all supported models are compared. Any invalid model fails
// the whole comparison.
func Compare(ctx context.Context, journeys []model.Journey, models ...Model) (*Comparison, error) {
	if len(models) == 0 {
		models = Models()
	}
	for _, m := range models {
		if !m.Valid() {
			return nil, eris.Wrapf(ErrInvalidModel, "attribution: compare with model %d", uint8(m))
		}
	}

	credits := make([]CreditMap, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "attribution: compare cancelled")
			}
			cm, err := Allocate(journeys, m)
			if err != nil {
				return err
			}
			credits[i] = cm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, cm := range credits {
		for ch := range cm {
			seen[ch] = struct{}{}
		}
	}
	channels := make([]string, 0, len(seen))
	for ch := range seen {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	return &Comparison{
		Models:   append([]Model(nil), models...),
		Channels: channels,
		Credits:  credits,
	}, nil
}
