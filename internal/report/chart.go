package report

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth  = "100%"
	chartHeight = "600px"
	lineWidth   = 2
)

// Chart builds an interactive line chart with one line per series.
func Chart(r *SeriesReport, title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle(r),
			Left:     "center",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(true),
			Type: "scroll",
			Top:  "8%",
			Left: "center",
		}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "slider", Start: 0, End: 100},
			opts.DataZoom{Type: "inside"},
		),
		charts.WithXAxisOpts(opts.XAxis{Name: "Date"}),
		charts.WithYAxisOpts(opts.YAxis{Name: r.Field.Label()}),
		charts.WithGridOpts(opts.Grid{
			Top:          "18%",
			Bottom:       "15%",
			Left:         "5%",
			Right:        "5%",
			ContainLabel: opts.Bool(true),
		}),
	)
	line.SetXAxis(r.Dates)

	for _, s := range r.Series {
		data := make([]opts.LineData, len(s.Values))
		for i, v := range s.Values {
			data[i] = opts.LineData{Value: v}
		}

		c := SeriesColor(s.Name)
		line.AddSeries(s.Name, data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: c, Width: lineWidth}),
		)
	}
	return line
}

func subtitle(r *SeriesReport) string {
	if len(r.Dates) == 0 {
		return "No data"
	}
	return fmt.Sprintf("%s to %s, %d dates", r.Dates[0], r.Dates[len(r.Dates)-1], len(r.Dates))
}

// WriteChart renders the chart page as HTML to w.
func WriteChart(w io.Writer, r *SeriesReport, title string) error {
	if err := Chart(r, title).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteChartFile renders the chart page to path.
func WriteChartFile(path string, r *SeriesReport, title string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := WriteChart(f, r, title); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
