package indicator

import "math"

// ATR computes the Average True Range over three parallel high/low/close
// series.
//
// True range needs the prior close, so it exists from index 1. The seed is
// the simple mean of the first period true ranges, landing at index period;
// later indices fold Wilder's smoothing
//
//	atr = (prev*(period-1) + tr) / period
//
// Indices before period are undefined, and an input of period bars or fewer
// (or mismatched slice lengths) yields an entirely undefined series.
func ATR(high, low, close []float64, period int) Series {
	n := len(close)
	out := make(Series, n)
	if period <= 0 || n <= period || len(high) != n || len(low) != n {
		return out
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = trueRange(high[i], low[i], close[i-1])
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = Val(prev)

	p := float64(period)
	for i := period + 1; i < n; i++ {
		prev = (prev*(p-1) + tr[i]) / p
		out[i] = Val(prev)
	}
	return out
}

// trueRange is the largest of the bar's own range and the two gaps against
// the previous close.
func trueRange(high, low, prevClose float64) float64 {
	r := high - low
	if d := math.Abs(high - prevClose); d > r {
		r = d
	}
	if d := math.Abs(low - prevClose); d > r {
		r = d
	}
	return r
}
