package ingest

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/attribution-cli/internal/model"
)

// decodeXLSX reads the first sheet with the same wide or long columns as CSV.
func decodeXLSX(r io.Reader, opts Options) ([]model.Journey, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read xlsx")
	}
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}

	var t *table
	for i, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if t == nil {
			if blank(cells) {
				continue
			}
			if t, err = newTable(cells, opts.StepSeparator); err != nil {
				return nil, err
			}
			continue
		}
		if err := t.add(cells, i+1); err != nil {
			return nil, err
		}
	}
	if t == nil {
		return []model.Journey{}, nil
	}
	return t.journeys()
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
