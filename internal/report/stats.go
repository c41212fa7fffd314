package report

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TrendStats holds regression statistics computed over one series.
type TrendStats struct {
	First       uint64  `json:"first" toon:"first"`
	Last        uint64  `json:"last" toon:"last"`
	Peak        uint64  `json:"peak" toon:"peak"`
	Delta       int64   `json:"delta" toon:"delta"`
	Slope       float64 `json:"slope" toon:"slope"`         // change per revision
	Intercept   float64 `json:"intercept" toon:"intercept"` // fitted value at the first revision
	RSquared    float64 `json:"r_squared" toon:"r_squared"`
	Correlation float64 `json:"correlation" toon:"correlation"`
}

// ComputeTrendStats fits a line through values indexed by position.
// Regression fields are zero when fewer than 2 points are provided or the
// series is constant.
func ComputeTrendStats(values []uint64) TrendStats {
	n := len(values)
	if n == 0 {
		return TrendStats{}
	}

	ts := TrendStats{
		First: values[0],
		Last:  values[n-1],
		Delta: int64(values[n-1]) - int64(values[0]),
	}
	for _, v := range values {
		ts.Peak = max(ts.Peak, v)
	}
	if n < 2 {
		return ts
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, v := range values {
		xs[i] = float64(i)
		ys[i] = float64(v)
	}

	intercept, slope := stat.LinearRegression(xs, ys, nil, false)
	ts.Slope = finite(slope)
	ts.Intercept = finite(intercept)
	ts.RSquared = finite(stat.RSquared(xs, ys, nil, intercept, slope))
	ts.Correlation = finite(stat.Correlation(xs, ys, nil))
	return ts
}

// finite maps NaN and infinities to 0 so the stats stay encodable.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
