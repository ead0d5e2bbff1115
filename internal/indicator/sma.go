package indicator

// SMA computes the Simple Moving Average of values over the given period
// using a rolling window sum. Indices before period-1 are undefined; an
// input shorter than period yields an entirely undefined series.
func SMA(values []float64, period int) Series {
	out := make(Series, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = Val(sum / float64(period))
		}
	}
	return out
}
