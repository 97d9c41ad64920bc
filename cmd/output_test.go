package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/store"
)

func TestFormatCredits(t *testing.T) {
	credits := attribution.CreditMap{"Email": 1.5, "Google": 0.5}
	report := creditReport{
		Model:   attribution.PositionBased,
		Summary: model.JourneySummary{Journeys: 2, Skipped: 1, Channels: 2},
		Total:   credits.Total(),
		Credits: credits.Ranked(),
		Shares:  shares(credits),
	}

	var buf bytes.Buffer
	formatCredits(&buf, report)

	output := buf.String()
	assert.Contains(t, output, "Position-based (U-shaped)")
	assert.Contains(t, output, "Skipped: 1")
	assert.Contains(t, output, "Total conversions: 2.00")
	assert.Contains(t, output, "Email")
	assert.Contains(t, output, "1.5000")
	assert.Contains(t, output, "75.0%")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Email")), bytes.Index(buf.Bytes(), []byte("Google")))
}

func TestFormatComparison(t *testing.T) {
	journeys := []model.Journey{{ID: "1", Steps: []string{"Google", "Email"}}}
	cmp, err := attribution.Compare(context.Background(), journeys, attribution.FirstClick, attribution.LastClick)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatComparison(&buf, cmp)

	output := buf.String()
	assert.Contains(t, output, "FIRST_CLICK")
	assert.Contains(t, output, "LAST_CLICK")
	assert.Contains(t, output, "Email")
	assert.Contains(t, output, "1.0000")
}

func TestFormatBatches(t *testing.T) {
	batches := []store.BatchInfo{
		{Name: "q3", Journeys: 30, ImportedAt: time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	formatBatches(&buf, batches)

	output := buf.String()
	assert.Contains(t, output, "BATCH")
	assert.Contains(t, output, "q3")
	assert.Contains(t, output, "30")
	assert.Contains(t, output, "2026-09-01 12:30")
}

func TestParseModels(t *testing.T) {
	models, err := parseModels("")
	require.NoError(t, err)
	assert.Empty(t, models)

	models, err = parseModels("linear, Time Decay,,u-shaped")
	require.NoError(t, err)
	assert.Equal(t, []attribution.Model{attribution.Linear, attribution.TimeDecay, attribution.PositionBased}, models)

	_, err = parseModels("linear,markov")
	assert.ErrorIs(t, err, attribution.ErrInvalidModel)
}

func TestResolveFormat(t *testing.T) {
	f, err := resolveFormat("https://example.com/export.yaml?token=x", "")
	require.NoError(t, err)
	assert.Equal(t, "yaml", string(f))

	f, err = resolveFormat("https://example.com/export", "csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", string(f))
}
