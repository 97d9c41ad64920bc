// Package store persists imported journey batches. Only inputs are stored;
// credit maps and graphs are always recomputed.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// ErrBatchNotFound is returned when a batch has no stored journeys.
var ErrBatchNotFound = eris.New("store: batch not found")

// ErrInvalidBatch is returned for blank batch names or empty imports.
var ErrInvalidBatch = eris.New("store: invalid batch")

// JourneyFilter specifies criteria for listing journeys. An empty Batch lists
// every batch. Limit <= 0 means no limit.
type JourneyFilter struct {
	Batch  string `json:"batch,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// BatchInfo summarizes one stored batch.
type BatchInfo struct {
	Name       string    `json:"name"`
	Journeys   int       `json:"journeys"`
	ImportedAt time.Time `json:"imported_at"`
}

// Store defines the persistence interface for journey batches.
type Store interface {
	// SaveBatch replaces the named batch with journeys and returns the number
	// stored. Journeys keep their slice order.
	SaveBatch(ctx context.Context, batch string, journeys []model.Journey) (int, error)
	// ListJourneys returns journeys in import order.
	ListJourneys(ctx context.Context, filter JourneyFilter) ([]model.Journey, error)
	ListBatches(ctx context.Context) ([]BatchInfo, error)
	// DeleteBatch removes a batch and returns how many journeys it held.
	DeleteBatch(ctx context.Context, batch string) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func checkBatch(batch string, journeys []model.Journey) (string, error) {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return "", eris.Wrap(ErrInvalidBatch, "store: batch name is required")
	}
	if len(journeys) == 0 {
		return "", eris.Wrapf(ErrInvalidBatch, "store: batch %q has no journeys", batch)
	}
	return batch, nil
}

func marshalSteps(steps []string) (string, error) {
	if steps == nil {
		steps = []string{}
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal steps")
	}
	return string(b), nil
}

func notFound(filter JourneyFilter, journeys []model.Journey) error {
	if filter.Batch != "" && filter.Offset == 0 && len(journeys) == 0 {
		return eris.Wrapf(ErrBatchNotFound, "store: batch %q", filter.Batch)
	}
	return nil
}
