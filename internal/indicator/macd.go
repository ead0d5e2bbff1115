package indicator

// MACDResult holds the three MACD series, all aligned to the input length.
type MACDResult struct {
	Line      Series
	Signal    Series
	Histogram Series
}

// MACD computes the Moving Average Convergence Divergence.
//
// The line is EMA(fast) - EMA(slow) wherever both are defined. The signal
// line is an EMA of signalPeriod applied to the contiguous defined suffix of
// the line and then left-padded back to the input length: its warm-up is
// relative to where the line first became defined, not to the start of the
// input. The histogram is line - signal wherever both sides are defined.
func MACD(values []float64, fast, slow, signalPeriod int) MACDResult {
	n := len(values)
	res := MACDResult{
		Line:      make(Series, n),
		Signal:    make(Series, n),
		Histogram: make(Series, n),
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := 0; i < n; i++ {
		if emaFast[i].Defined && emaSlow[i].Defined {
			res.Line[i] = Val(emaFast[i].V - emaSlow[i].V)
		}
	}

	start := res.Line.FirstDefined()
	if start < 0 {
		return res
	}

	suffix := make([]float64, 0, n-start)
	for _, v := range res.Line[start:] {
		suffix = append(suffix, v.V)
	}
	for i, v := range EMA(suffix, signalPeriod) {
		res.Signal[start+i] = v
	}

	for i := 0; i < n; i++ {
		if res.Line[i].Defined && res.Signal[i].Defined {
			res.Histogram[i] = Val(res.Line[i].V - res.Signal[i].V)
		}
	}
	return res
}
