package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/store"
)

// creditReport is the result of the attribute command.
type creditReport struct {
	Model   attribution.Model           `json:"model"`
	Revenue bool                        `json:"revenue"`
	Summary model.JourneySummary        `json:"summary"`
	Total   float64                     `json:"total"`
	Credits []attribution.ChannelCredit `json:"credits"`
	Shares  map[string]float64          `json:"shares"`
}

// render writes v as indented JSON or calls table for the tabular form.
func render(out io.Writer, format string, v any, table func()) error {
	switch strings.ToLower(format) {
	case "", "table":
		table()
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return eris.Errorf("unknown output format %q (want table or json)", format)
	}
}

func formatCredits(out io.Writer, r creditReport) {
	unit := "conversions"
	if r.Revenue {
		unit = "revenue"
	}
	_, _ = fmt.Fprintf(out, "Model: %s (%s)\n", r.Model.Label(), r.Model)
	_, _ = fmt.Fprintf(out, "Journeys: %d  Skipped: %d  Channels: %d  Total %s: %.2f\n\n",
		r.Summary.Journeys, r.Summary.Skipped, r.Summary.Channels, unit, r.Total)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHANNEL\tCREDIT\tSHARE")
	_, _ = fmt.Fprintln(w, "-------\t------\t-----")
	for _, c := range r.Credits {
		_, _ = fmt.Fprintf(w, "%s\t%.4f\t%.1f%%\n", c.Channel, c.Credit, r.Shares[c.Channel]*100)
	}
	_ = w.Flush()
}

func formatComparison(out io.Writer, cmp *attribution.Comparison) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"CHANNEL"}
	rule := []string{"-------"}
	for _, m := range cmp.Models {
		name := strings.ToUpper(m.String())
		header = append(header, name)
		rule = append(rule, strings.Repeat("-", len(name)))
	}
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))
	_, _ = fmt.Fprintln(w, strings.Join(rule, "\t"))

	for _, ch := range cmp.Channels {
		cells := []string{ch}
		for _, v := range cmp.Row(ch) {
			cells = append(cells, fmt.Sprintf("%.4f", v))
		}
		_, _ = fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

func formatBatches(out io.Writer, batches []store.BatchInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BATCH\tJOURNEYS\tIMPORTED")
	_, _ = fmt.Fprintln(w, "-----\t--------\t--------")
	for _, b := range batches {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", b.Name, b.Journeys, b.ImportedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}
