package indicator

// RSI computes the Relative Strength Index using Wilder's smoothing method.
//
// The seed averages are the simple means of gains and losses over the first
// period price changes, so the first defined value lands at index period.
// After the seed, both averages fold with weight (period-1)/period on the old
// value and 1/period on the new gain or loss. An input of period+1 values or
// fewer than that yields at most one defined value; anything up to period
// values yields none.
func RSI(values []float64, period int) Series {
	out := make(Series, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	// Seed phase: simple means over the first period changes.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = Val(rsiFromAverages(avgGain, avgLoss))

	// Smoothing phase.
	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = Val(rsiFromAverages(avgGain, avgLoss))
	}
	return out
}

// rsiFromAverages applies RSI = 100 - 100/(1+RS) with RS = avgGain/avgLoss.
//
// Convention: a zero average loss pins RSI to 100 rather than treating the
// ratio as unbounded. This holds even when avgGain is also zero (flat
// prices), which is debatable but must be preserved for compatibility with
// downstream threshold tuning.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
