package strategy

import (
	"fmt"
	"time"

	"signal-enginev1/internal/indicator"
	"signal-enginev1/internal/model"
)

// Analyzer evaluates the confluence rules over a time-ascending bar series.
// It is stateless and side-effect free; one Analyzer may be shared by any
// number of concurrent callers.
type Analyzer struct {
	params Params
}

// NewAnalyzer creates an analyzer with the given policy parameters.
func NewAnalyzer(params Params) *Analyzer {
	return &Analyzer{params: params}
}

// Params returns the policy parameters the analyzer was built with.
func (a *Analyzer) Params() Params { return a.params }

// Analyze produces exactly one signal for the given series. It always returns
// a well-formed signal: degenerate inputs (empty, short, still warming up)
// yield HOLD with an explanatory reasoning line, never an error or panic.
//
// Pair and timeframe context are left for the caller to stamp.
func (a *Analyzer) Analyze(bars []model.Bar) *Signal {
	p := a.params

	closes := model.Closes(bars)
	highs := model.Highs(bars)
	lows := model.Lows(bars)

	var price float64
	ts := time.Now().UTC()
	if len(bars) > 0 {
		price = closes[len(closes)-1]
		ts = bars[len(bars)-1].TS
	}

	macd := indicator.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	data := IndicatorData{
		EMAFast:    indicator.EMA(closes, p.EMAFastPeriod),
		EMASlow:    indicator.EMA(closes, p.EMASlowPeriod),
		MACDLine:   macd.Line,
		MACDSignal: macd.Signal,
		MACDHist:   macd.Histogram,
		RSI:        indicator.RSI(closes, p.RSIPeriod),
		ATR:        indicator.ATR(highs, lows, closes, p.ATRPeriod),
	}

	if len(bars) < p.MinBars() {
		return hold(ts, price, data, fmt.Sprintf(
			"Not enough data points for analysis (have %d, need %d)", len(bars), p.MinBars()))
	}

	emaFast := data.EMAFast.Last()
	emaSlow := data.EMASlow.Last()
	macdLine := data.MACDLine.Last()
	macdSig := data.MACDSignal.Last()
	rsi := data.RSI.Last()
	atr := data.ATR.Last()

	// The undefined check sits directly in front of the rules: a BUY/SELL
	// must never be derived from a warm-up placeholder, even after the bar
	// count guard has passed (the signal-line realignment can leave the last
	// index undefined).
	if price == 0 || !emaFast.Defined || !emaSlow.Defined || !macdLine.Defined ||
		!macdSig.Defined || !rsi.Defined || !atr.Defined {
		return hold(ts, price, data, "Indicators still calculating, waiting for more data")
	}

	// BUY requires every condition at once; there is no partial credit.
	if emaFast.V > emaSlow.V &&
		price > emaFast.V &&
		macdLine.V > macdSig.V && macdLine.V > 0 &&
		rsi.V > p.RSIBuyThreshold {
		entry := price
		stop := entry - atr.V*p.ATRStopMult
		target := entry + (entry-stop)*p.RiskReward
		return &Signal{
			ID:         signalID(DirectionBuy, ts),
			TS:         ts,
			Direction:  DirectionBuy,
			Price:      price,
			Entry:      &entry,
			StopLoss:   &stop,
			TakeProfit: &target,
			Reasoning: []string{
				fmt.Sprintf("EMA %d above EMA %d (uptrend)", p.EMAFastPeriod, p.EMASlowPeriod),
				fmt.Sprintf("Price above EMA %d (bullish price action)", p.EMAFastPeriod),
				"MACD above signal line in positive territory (bullish momentum)",
				fmt.Sprintf("RSI %.1f above %.0f (strong buying pressure)", rsi.V, p.RSIBuyThreshold),
			},
			Indicators: data,
		}
	}

	// SELL: the exact mirror, evaluated only when BUY did not fire.
	if emaFast.V < emaSlow.V &&
		price < emaFast.V &&
		macdLine.V < macdSig.V && macdLine.V < 0 &&
		rsi.V < p.RSISellThreshold {
		entry := price
		stop := entry + atr.V*p.ATRStopMult
		target := entry - (stop-entry)*p.RiskReward
		return &Signal{
			ID:         signalID(DirectionSell, ts),
			TS:         ts,
			Direction:  DirectionSell,
			Price:      price,
			Entry:      &entry,
			StopLoss:   &stop,
			TakeProfit: &target,
			Reasoning: []string{
				fmt.Sprintf("EMA %d below EMA %d (downtrend)", p.EMAFastPeriod, p.EMASlowPeriod),
				fmt.Sprintf("Price below EMA %d (bearish price action)", p.EMAFastPeriod),
				"MACD below signal line in negative territory (bearish momentum)",
				fmt.Sprintf("RSI %.1f below %.0f (strong selling pressure)", rsi.V, p.RSISellThreshold),
			},
			Indicators: data,
		}
	}

	return hold(ts, price, data, "No high-confluence signal conditions met")
}

// hold builds a HOLD signal with a single reasoning line. Entry, stop and
// target stay absent.
func hold(ts time.Time, price float64, data IndicatorData, reason string) *Signal {
	return &Signal{
		ID:         signalID(DirectionHold, ts),
		TS:         ts,
		Direction:  DirectionHold,
		Price:      price,
		Reasoning:  []string{reason},
		Indicators: data,
	}
}
