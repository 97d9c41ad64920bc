package attribution

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrInvalidModel is returned when an attribution model selector is not one of
// the supported models.
var ErrInvalidModel = eris.New("attribution: invalid model")

// Model selects the rule used to split one conversion's credit across the
// touchpoints of its journey. The zero value is not a valid model.
type Model uint8

const (
	LastClick Model = iota + 1
	FirstClick
	Linear
	TimeDecay
	PositionBased
)

var modelNames = map[Model]string{
	LastClick:     "last_click",
	FirstClick:    "first_click",
	Linear:        "linear",
	TimeDecay:     "time_decay",
	PositionBased: "position_based",
}

var modelLabels = map[Model]string{
	LastClick:     "Last Click",
	FirstClick:    "First Click",
	Linear:        "Linear",
	TimeDecay:     "Time Decay",
	PositionBased: "Position-based (U-shaped)",
}

// modelAliases maps normalized spellings to models. Keys are lowercase with
// spaces and hyphens folded to underscores.
var modelAliases = map[string]Model{
	"last_click":                LastClick,
	"last_touch":                LastClick,
	"first_click":               FirstClick,
	"first_touch":               FirstClick,
	"linear":                    Linear,
	"time_decay":                TimeDecay,
	"position_based":            PositionBased,
	"position_based_(u_shaped)": PositionBased,
	"u_shaped":                  PositionBased,
}

// Models returns every supported model in display order.
func Models() []Model {
	return []Model{LastClick, FirstClick, Linear, TimeDecay, PositionBased}
}

// Valid reports whether m is one of the supported models.
func (m Model) Valid() bool {
	_, ok := modelNames[m]
	return ok
}

// String returns the canonical snake_case name.
func (m Model) String() string {
	if name, ok := modelNames[m]; ok {
		return name
	}
	return "invalid"
}

// Label returns the human-readable dashboard label.
func (m Model) Label() string {
	if label, ok := modelLabels[m]; ok {
		return label
	}
	return "Invalid"
}

// ParseModel resolves a model name, dashboard label or alias.
// Matching is case-insensitive; spaces and hyphens are equivalent to underscores.
func ParseModel(s string) (Model, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if m, ok := modelAliases[key]; ok {
		return m, nil
	}
	return 0, eris.Wrapf(ErrInvalidModel, "attribution: parse model %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Model) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, eris.Wrapf(ErrInvalidModel, "attribution: marshal model %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Model) UnmarshalText(text []byte) error {
	parsed, err := ParseModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
