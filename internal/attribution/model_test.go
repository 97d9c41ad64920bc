package attribution

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Model
	}{
		{"last_click", LastClick},
		{"Last Click", LastClick},
		{"LAST-CLICK", LastClick},
		{"last_touch", LastClick},
		{"first_click", FirstClick},
		{"First Click", FirstClick},
		{"linear", Linear},
		{" Linear ", Linear},
		{"time_decay", TimeDecay},
		{"Time Decay", TimeDecay},
		{"position_based", PositionBased},
		{"Position-based (U-shaped)", PositionBased},
		{"u-shaped", PositionBased},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseModel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModel_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "markov", "shapley", "lastclick", "invalid"} {
		got, err := ParseModel(input)
		require.Error(t, err, input)
		assert.True(t, errors.Is(err, ErrInvalidModel))
		assert.False(t, got.Valid())
	}
}

func TestModel_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, m := range Models() {
		assert.True(t, m.Valid())

		byName, err := ParseModel(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, byName)

		byLabel, err := ParseModel(m.Label())
		require.NoError(t, err)
		assert.Equal(t, m, byLabel)
	}
}

func TestModel_ZeroValue(t *testing.T) {
	t.Parallel()

	var m Model
	assert.False(t, m.Valid())
	assert.Equal(t, "invalid", m.String())
	assert.Equal(t, "Invalid", m.Label())
}

func TestModel_JSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Model Model `json:"model"`
	}

	data, err := json.Marshal(payload{Model: TimeDecay})
	require.NoError(t, err)
	assert.JSONEq(t, `{"model":"time_decay"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"model":"Position-based (U-shaped)"}`), &p))
	assert.Equal(t, PositionBased, p.Model)

	err = json.Unmarshal([]byte(`{"model":"markov"}`), &p)
	assert.True(t, errors.Is(err, ErrInvalidModel))

	_, err = json.Marshal(payload{})
	assert.Error(t, err)
}

func TestModels(t *testing.T) {
	t.Parallel()

	models := Models()
	require.Len(t, models, 5)
	assert.Equal(t, LastClick, models[0])
	assert.Equal(t, PositionBased, models[4])
}
