package ingest

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/model"
)

// ErrMissingColumn is returned when a tabular export has neither a steps
// column (wide layout) nor a channel column (long layout).
var ErrMissingColumn = eris.New("ingest: missing column")

// Header names recognized in tabular exports. Matching is case-insensitive.
const (
	colID         = "id"
	colSteps      = "steps"
	colChannel    = "channel"
	colPosition   = "position"
	colConversion = "conversion_channel"
	colRevenue    = "revenue"
)

// table assembles journeys from header-first rows. Wide tables carry one
// journey per row with the path in a separator-joined steps column. Long
// tables carry one touch per row, grouped by id.
type table struct {
	cols map[string]int
	sep  string
	rows int

	wide []model.Journey

	order []string
	byID  map[string]*longJourney
}

type longJourney struct {
	journey model.Journey
	touches []touch
}

type touch struct {
	channel  string
	position int
}

func newTable(header []string, sep string) (*table, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}

	_, wide := cols[colSteps]
	_, long := cols[colChannel]
	switch {
	case wide:
	case long:
		if _, ok := cols[colID]; !ok {
			return nil, eris.Wrap(ErrMissingColumn, "ingest: long layout needs an id column")
		}
	default:
		return nil, eris.Wrapf(ErrMissingColumn, "ingest: need %q or %q column, got %v", colSteps, colChannel, header)
	}
	return &table{cols: cols, sep: sep, byID: make(map[string]*longJourney)}, nil
}

func (t *table) isWide() bool {
	_, ok := t.cols[colSteps]
	return ok
}

func (t *table) cell(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// add consumes one data row. line is the 1-based source line for errors.
func (t *table) add(row []string, line int) error {
	if blank(row) {
		return nil
	}
	t.rows++

	revenue, err := parseRevenue(t.cell(row, colRevenue), line)
	if err != nil {
		return err
	}

	if t.isWide() {
		t.wide = append(t.wide, model.Journey{
			ID:                t.cell(row, colID),
			Steps:             strings.Split(t.cell(row, colSteps), t.sep),
			ConversionChannel: t.cell(row, colConversion),
			Revenue:           revenue,
		})
		return nil
	}

	id := t.cell(row, colID)
	if id == "" {
		return eris.Errorf("ingest: line %d: empty id in long layout", line)
	}
	pos := t.rows
	if raw := t.cell(row, colPosition); raw != "" {
		pos, err = strconv.Atoi(raw)
		if err != nil {
			return eris.Wrapf(err, "ingest: line %d: position %q", line, raw)
		}
	}

	lj, ok := t.byID[id]
	if !ok {
		lj = &longJourney{journey: model.Journey{ID: id}}
		t.byID[id] = lj
		t.order = append(t.order, id)
	}
	lj.touches = append(lj.touches, touch{channel: t.cell(row, colChannel), position: pos})
	if c := t.cell(row, colConversion); c != "" {
		lj.journey.ConversionChannel = c
	}
	if revenue > 0 && lj.journey.Revenue == 0 {
		lj.journey.Revenue = revenue
	}
	return nil
}

func (t *table) journeys() ([]model.Journey, error) {
	if t.isWide() {
		return finish(t.wide)
	}

	out := make([]model.Journey, 0, len(t.order))
	for _, id := range t.order {
		lj := t.byID[id]
		sort.SliceStable(lj.touches, func(a, b int) bool {
			return lj.touches[a].position < lj.touches[b].position
		})
		j := lj.journey
		j.Steps = make([]string, len(lj.touches))
		for i, tc := range lj.touches {
			j.Steps[i] = tc.channel
		}
		out = append(out, j.Normalized())
	}
	return out, nil
}

func parseRevenue(raw string, line int) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "ingest: line %d: revenue %q", line, raw)
	}
	return v, nil
}
