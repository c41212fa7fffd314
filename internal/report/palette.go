package report

import "github.com/cespare/xxhash/v2"

// palette is the qualitative colour set used for language lines.
var palette = []string{
	"#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc", "#2f4554",
	"#61a0a8", "#d48265", "#749f83", "#ca8622", "#bda29a",
	"#6e7074", "#546570", "#c4ccd3", "#0098d9", "#e01f54",
}

// totalColor is reserved for the aggregate series.
const totalColor = "#333333"

// SeriesColor returns a stable colour for a series name.
func SeriesColor(name string) string {
	if name == TotalSeries {
		return totalColor
	}
	return palette[xxhash.Sum64String(name)%uint64(len(palette))]
}
