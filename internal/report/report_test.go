package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/locplot/internal/output"
	"github.com/panbanda/locplot/pkg/history"
)

func revision(t *testing.T, id, day string, counts ...history.LanguageCount) *history.Revision {
	t.Helper()
	when, err := time.Parse("2006-01-02", day)
	require.NoError(t, err)
	r := history.NewRevision(id, when)
	m := history.Measurement{Languages: counts}
	m.Aggregate = m.SumLanguages()
	r.Populate(m)
	return r
}

func sampleHistory(t *testing.T) *history.History {
	t.Helper()
	h := history.New(
		revision(t, "a", "2023-01-01", history.LanguageCount{Language: "Go", Files: 1, Code: 10}),
		revision(t, "b", "2023-01-03", history.LanguageCount{Language: "Python", Files: 2, Code: 1200}),
		revision(t, "c", "2023-01-05",
			history.LanguageCount{Language: "Go", Files: 2, Code: 15},
			history.LanguageCount{Language: "Python", Files: 2, Code: 1000},
		),
	)
	require.NoError(t, h.Preprocess(true))
	return h
}

func TestBuild(t *testing.T) {
	r, err := Build(sampleHistory(t), []string{"Go", "all", "Rust"}, history.FieldCode)
	require.NoError(t, err)

	assert.Equal(t, []string{"2023-01-01", "2023-01-03", "2023-01-05"}, r.Dates)
	assert.Equal(t, []string{"Go", "all", "Rust"}, r.Names())
	assert.Equal(t, []uint64{10, 10, 15}, r.Series[0].Values)
	assert.Equal(t, []uint64{10, 1200, 1015}, r.Series[1].Values)
	assert.Equal(t, []uint64{0, 0, 0}, r.Series[2].Values)
}

func TestBuildDefaultsToAllLanguages(t *testing.T) {
	r, err := Build(sampleHistory(t), nil, history.FieldFiles)
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "Python"}, r.Names())
	assert.Equal(t, []uint64{0, 2, 2}, r.Series[1].Values)
}

func TestBuildDeduplicates(t *testing.T) {
	r, err := Build(sampleHistory(t), []string{"Go", "Go", "all", "all"}, history.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "all"}, r.Names())
}

func TestBuildTotalsNameIsCaseSensitive(t *testing.T) {
	h := history.New(
		revision(t, "a", "2023-01-01",
			history.LanguageCount{Language: "ALL", Files: 1, Code: 4},
			history.LanguageCount{Language: "Go", Files: 1, Code: 6},
		),
	)
	require.NoError(t, h.Preprocess(true))

	r, err := Build(h, []string{"ALL", "all"}, history.FieldCode)
	require.NoError(t, err)
	assert.Equal(t, []string{"ALL", "all"}, r.Names())
	assert.Equal(t, []uint64{4}, r.Series[0].Values)
	assert.Equal(t, []uint64{10}, r.Series[1].Values)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(history.New(), nil, history.FieldCode)
	assert.ErrorIs(t, err, history.ErrEmptyHistory)

	raw := history.New(revision(t, "a", "2023-01-01", history.LanguageCount{Language: "Go", Code: 1}))
	_, err = Build(raw, nil, history.FieldCode)
	assert.Error(t, err)
}

func TestComputeTrendStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, TrendStats{}, ComputeTrendStats(nil))
	})

	t.Run("single_point", func(t *testing.T) {
		ts := ComputeTrendStats([]uint64{7})
		assert.Equal(t, uint64(7), ts.First)
		assert.Equal(t, uint64(7), ts.Peak)
		assert.Zero(t, ts.Slope)
	})

	t.Run("linear_growth", func(t *testing.T) {
		ts := ComputeTrendStats([]uint64{10, 20, 30, 40})
		assert.InDelta(t, 10.0, ts.Slope, 1e-9)
		assert.InDelta(t, 10.0, ts.Intercept, 1e-9)
		assert.InDelta(t, 1.0, ts.RSquared, 1e-9)
		assert.InDelta(t, 1.0, ts.Correlation, 1e-9)
		assert.Equal(t, int64(30), ts.Delta)
		assert.Equal(t, uint64(40), ts.Peak)
	})

	t.Run("shrinking", func(t *testing.T) {
		ts := ComputeTrendStats([]uint64{50, 80, 20})
		assert.Equal(t, int64(-30), ts.Delta)
		assert.Equal(t, uint64(80), ts.Peak)
		assert.Less(t, ts.Slope, 0.0)
	})

	t.Run("constant_is_finite", func(t *testing.T) {
		ts := ComputeTrendStats([]uint64{5, 5, 5})
		assert.Zero(t, ts.Slope)
		assert.Zero(t, ts.Correlation)
		assert.Zero(t, ts.RSquared)
	})
}

func TestLatestOrdersByLastValue(t *testing.T) {
	r, err := Build(sampleHistory(t), nil, history.FieldCode)
	require.NoError(t, err)

	latest := r.Latest()
	assert.Equal(t, "Python", latest[0].Name)
	assert.Equal(t, "Go", latest[1].Name)
	assert.Equal(t, []string{"Go", "Python"}, r.Names(), "report order is unchanged")
}

func TestSeriesReportRender(t *testing.T) {
	r, err := Build(sampleHistory(t), []string{"Go", "Python"}, history.FieldCode)
	require.NoError(t, err)

	var text bytes.Buffer
	require.NoError(t, r.RenderText(&text, false))
	assert.Contains(t, text.String(), "Lines of code")
	assert.Contains(t, text.String(), "2023-01-03")
	assert.Contains(t, text.String(), "1,200")
	assert.Contains(t, text.String(), "+1,000")

	var md bytes.Buffer
	require.NoError(t, r.RenderMarkdown(&md))
	assert.Contains(t, md.String(), "| Date | Go | Python |")
	assert.Contains(t, md.String(), "| 2023-01-05 | 15 | 1,000 |")
	assert.Contains(t, md.String(), "| Go | 10 | 15 | 15 | +5 |")

	var js bytes.Buffer
	require.NoError(t, output.NewWriterFormatter(&js, output.FormatJSON, false).Output(r))
	assert.Contains(t, js.String(), `"field": "code"`)
	assert.Contains(t, js.String(), `"r_squared"`)
}

func TestSeriesColor(t *testing.T) {
	assert.Equal(t, SeriesColor("Go"), SeriesColor("Go"))
	assert.Equal(t, totalColor, SeriesColor(TotalSeries))
	assert.Contains(t, palette, SeriesColor("Python"))
	assert.True(t, strings.HasPrefix(SeriesColor("Rust"), "#"))
}

func TestChart(t *testing.T) {
	r, err := Build(sampleHistory(t), []string{"Go", "all"}, history.FieldCode)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteChart(&buf, r, "example"))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "2023-01-05")
	assert.Contains(t, html, SeriesColor("Go"))
}

func TestWriteChartFile(t *testing.T) {
	r, err := Build(sampleHistory(t), nil, history.FieldCode)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, WriteChartFile(path, r, "example"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<html")
	assert.Contains(t, string(data), "Python")

	assert.Error(t, WriteChartFile(filepath.Join(t.TempDir(), "missing", "chart.html"), r, "example"))
}
