// Package attribution splits conversion credit across the marketing channels of
// customer journeys using deterministic rule-based models.
package attribution

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

const (
	// decayBase is the per-step weight multiplier for TimeDecay: each touch one
	// step further from the conversion counts half as much.
	decayBase = 0.5

	// U-shaped split for journeys of three or more touches.
	positionEndShare    = 0.4
	positionMiddleShare = 0.2
)

// Weight is the share of a single conversion credited to one touchpoint.
type Weight struct {
	Channel string  `json:"channel"`
	Weight  float64 `json:"weight"`
}

// Weights returns the credit split for one journey under model m, one entry
// per credited position. Repeated channels appear once per occurrence. The
// weights of a non-empty journey sum to 1; an empty journey yields nil.
func Weights(steps []string, m Model) ([]Weight, error) {
	n := len(steps)

	switch m {
	case LastClick:
		if n == 0 {
			return nil, nil
		}
		return []Weight{{Channel: steps[n-1], Weight: 1}}, nil

	case FirstClick:
		if n == 0 {
			return nil, nil
		}
		return []Weight{{Channel: steps[0], Weight: 1}}, nil

	case Linear:
		ws := positions(steps)
		for i := range ws {
			ws[i].Weight = 1 / float64(n)
		}
		return ws, nil

	case TimeDecay:
		ws := positions(steps)
		var total float64
		for i := range ws {
			ws[i].Weight = math.Pow(decayBase, float64(n-1-i))
			total += ws[i].Weight
		}
		for i := range ws {
			ws[i].Weight /= total
		}
		return ws, nil

	case PositionBased:
		ws := positions(steps)
		switch n {
		case 0:
		case 1:
			ws[0].Weight = 1
		case 2:
			ws[0].Weight = 0.5
			ws[1].Weight = 0.5
		default:
			ws[0].Weight = positionEndShare
			ws[n-1].Weight = positionEndShare
			mid := positionMiddleShare / float64(n-2)
			for i := 1; i < n-1; i++ {
				ws[i].Weight = mid
			}
		}
		return ws, nil

	default:
		return nil, eris.Wrapf(ErrInvalidModel, "attribution: weights for model %d", uint8(m))
	}
}

func positions(steps []string) []Weight {
	if len(steps) == 0 {
		return nil
	}
	ws := make([]Weight, len(steps))
	for i, s := range steps {
		ws[i].Channel = s
	}
	return ws
}

// Allocate distributes one unit of credit per non-empty journey across its
// channels under model m and returns the accumulated credit per channel.
// Journeys without steps are skipped. An invalid model fails before any
// journey is examined.
func Allocate(journeys []model.Journey, m Model) (CreditMap, error) {
	return allocate(journeys, m, func(model.Journey) float64 { return 1 })
}

// AllocateRevenue is Allocate with each journey's weights scaled by its
// conversion value, so the map total equals the summed journey values.
func AllocateRevenue(journeys []model.Journey, m Model) (CreditMap, error) {
	return allocate(journeys, m, model.Journey.Value)
}

func allocate(journeys []model.Journey, m Model, value func(model.Journey) float64) (CreditMap, error) {
	if !m.Valid() {
		return nil, eris.Wrapf(ErrInvalidModel, "attribution: allocate with model %d", uint8(m))
	}

	credits := make(CreditMap)
	for _, j := range journeys {
		if j.Empty() {
			continue
		}
		ws, err := Weights(j.Steps, m)
		if err != nil {
			return nil, err
		}
		v := value(j)
		for _, w := range ws {
			credits[w.Channel] += w.Weight * v
		}
	}
	return credits, nil
}
