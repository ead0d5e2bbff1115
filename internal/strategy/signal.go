// Package strategy evaluates multi-indicator confluence rules over a price
// series and produces trading signals (BUY/SELL/HOLD) with entry, stop-loss
// and take-profit levels plus a human-readable rationale.
package strategy

import (
	"encoding/json"
	"strconv"
	"time"

	"signal-enginev1/internal/indicator"
)

// Direction is the trading action a signal recommends.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionHold Direction = "HOLD"
)

// Status tracks the lifecycle of a persisted signal. The analyzer never sets
// it; the scan service marks new signals ACTIVE and the outcome monitor
// resolves them to WIN or LOSS.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusWin    Status = "WIN"
	StatusLoss   Status = "LOSS"
)

// IndicatorData is the full indicator snapshot computed during analysis,
// carried on every signal for caller-side charting and audit. The series are
// index-aligned with the input bars; undefined warm-up positions serialize
// as JSON null.
type IndicatorData struct {
	EMAFast    indicator.Series `json:"ema_fast"`
	EMASlow    indicator.Series `json:"ema_slow"`
	MACDLine   indicator.Series `json:"macd_line"`
	MACDSignal indicator.Series `json:"macd_signal"`
	MACDHist   indicator.Series `json:"macd_hist"`
	RSI        indicator.Series `json:"rsi"`
	ATR        indicator.Series `json:"atr"`
}

// Signal is the analyzer's output: one immutable trading decision.
//
// Pair, Timeframe and Status are caller-stamped; the analyzer fills
// everything else. Entry, StopLoss and TakeProfit are present only when
// Direction is not HOLD.
type Signal struct {
	ID         string        `json:"id"` // "<DIRECTION>-<unix-ms>"
	Pair       string        `json:"pair,omitempty"`
	Timeframe  string        `json:"timeframe,omitempty"`
	TS         time.Time     `json:"ts"`
	Direction  Direction     `json:"direction"`
	Price      float64       `json:"price"` // latest close
	Entry      *float64      `json:"entry,omitempty"`
	StopLoss   *float64      `json:"stop_loss,omitempty"`
	TakeProfit *float64      `json:"take_profit,omitempty"`
	Reasoning  []string      `json:"reasoning"`
	Status     Status        `json:"status,omitempty"`
	Indicators IndicatorData `json:"indicators"`
}

// Key returns "pair:timeframe:id", unique across instruments even when two
// pairs fire at the same bar close.
func (s *Signal) Key() string {
	return s.Pair + ":" + s.Timeframe + ":" + s.ID
}

// JSON returns the JSON-encoded signal (ignoring errors for hot-path usage).
func (s *Signal) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}

// signalID builds the dedupe identifier from direction and bar close time.
func signalID(d Direction, ts time.Time) string {
	return string(d) + "-" + strconv.FormatInt(ts.UnixMilli(), 10)
}
