// Package report turns a preprocessed history into tables, trend statistics
// and charts.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/pkg/history"
)

// TotalSeries selects the per-revision aggregate instead of a language.
const TotalSeries = "all"

// Series is one line of the report.
type Series struct {
	Name   string     `json:"name" toon:"name"`
	Values []uint64   `json:"values" toon:"values"`
	Trend  TrendStats `json:"trend" toon:"trend"`
}

// SeriesReport holds date-aligned series for one field.
type SeriesReport struct {
	Field  history.Field `json:"field" toon:"field"`
	Dates  []string      `json:"dates" toon:"dates"`
	Series []Series      `json:"series" toon:"series"`
}

// Build produces a report for langs over h. An empty langs selects every
// known language. The history must already be preprocessed.
func Build(h *history.History, langs []string, field history.Field) (*SeriesReport, error) {
	if h.Len() == 0 {
		return nil, history.ErrEmptyHistory
	}
	if !h.Preprocessed() {
		return nil, fmt.Errorf("failed to build report: history is not preprocessed")
	}
	if len(langs) == 0 {
		langs = h.Languages()
	}

	dates := h.Dates()
	r := &SeriesReport{
		Field:  field,
		Dates:  make([]string, len(dates)),
		Series: make([]Series, 0, len(langs)),
	}
	for i, d := range dates {
		r.Dates[i] = d.Format("2006-01-02")
	}

	seen := make(map[string]bool, len(langs))
	for _, lang := range langs {
		if seen[lang] {
			continue
		}
		seen[lang] = true

		var values []uint64
		if lang == TotalSeries {
			values = h.Totals(field)
		} else {
			values = h.Series([]string{lang}, field)[0]
		}
		r.Series = append(r.Series, Series{
			Name:   lang,
			Values: values,
			Trend:  ComputeTrendStats(values),
		})
	}
	return r, nil
}

// Names returns the series names in report order.
func (r *SeriesReport) Names() []string {
	names := make([]string, len(r.Series))
	for i, s := range r.Series {
		names[i] = s.Name
	}
	return names
}

// Latest returns the series sorted by their last value, largest first.
func (r *SeriesReport) Latest() []Series {
	sorted := slices.Clone(r.Series)
	slices.SortStableFunc(sorted, func(a, b Series) int {
		switch {
		case a.Trend.Last > b.Trend.Last:
			return -1
		case a.Trend.Last < b.Trend.Last:
			return 1
		}
		return 0
	})
	return sorted
}

func (r *SeriesReport) RenderData() any {
	return r
}

func (r *SeriesReport) RenderText(w io.Writer, colored bool) error {
	return r.compose(colored).RenderText(w, colored)
}

func (r *SeriesReport) RenderMarkdown(w io.Writer) error {
	return r.compose(false).RenderMarkdown(w)
}

func (r *SeriesReport) compose(colored bool) *output.Report {
	return &output.Report{
		Title:    r.Field.Label(),
		Sections: []output.Renderable{r.valuesTable(), r.trendTable(colored)},
	}
}

func (r *SeriesReport) valuesTable() *output.Table {
	headers := append([]string{"Date"}, r.Names()...)
	rows := make([][]string, len(r.Dates))
	for i, d := range r.Dates {
		row := make([]string, 0, len(headers))
		row = append(row, d)
		for _, s := range r.Series {
			row = append(row, humanize.Comma(int64(s.Values[i])))
		}
		rows[i] = row
	}
	return output.NewTable("Series", headers, rows, nil, nil)
}

func (r *SeriesReport) trendTable(colored bool) *output.Table {
	p := message.NewPrinter(language.English)
	headers := []string{"Series", "First", "Last", "Peak", "Delta", "Slope/rev", "R²"}
	rows := make([][]string, 0, len(r.Series))
	for _, s := range r.Latest() {
		delta := signed(s.Trend.Delta)
		if colored {
			delta = output.DeltaColor(s.Trend.Delta, delta)
		}
		rows = append(rows, []string{
			s.Name,
			humanize.Comma(int64(s.Trend.First)),
			humanize.Comma(int64(s.Trend.Last)),
			humanize.Comma(int64(s.Trend.Peak)),
			delta,
			p.Sprintf("%.2f", s.Trend.Slope),
			p.Sprintf("%.3f", s.Trend.RSquared),
		})
	}
	return output.NewTable("Trend", headers, rows, nil, nil)
}

func signed(n int64) string {
	if n > 0 {
		return "+" + humanize.Comma(n)
	}
	return humanize.Comma(n)
}
