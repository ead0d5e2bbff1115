package indicator

// EMA computes the Exponential Moving Average of values over the given period.
//
// Two explicit phases keep the numeric semantics auditable: the seed is the
// SMA of the first period values, landing at index period-1, and every later
// index folds the recurrence
//
//	ema = (price - prev) * k + prev,  k = 2 / (period + 1)
//
// An input shorter than period yields an entirely undefined series; there is
// no recovery once the seed cannot be formed.
func EMA(values []float64, period int) Series {
	out := make(Series, len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	prev := emaSeed(values, period)
	out[period-1] = Val(prev)

	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = Val(prev)
	}
	return out
}

// emaSeed returns the SMA over the first period values, the conventional
// starting point for the EMA recurrence.
func emaSeed(values []float64, period int) float64 {
	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	return sum / float64(period)
}
