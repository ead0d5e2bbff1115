package strategy

import "fmt"

// Params holds the tunable policy constants behind the confluence rules.
// They are configuration, not code: strategy tuning must not require touching
// the decision logic. Start from DefaultParams and overlay.
type Params struct {
	EMAFastPeriod int `yaml:"ema_fast_period"`
	EMASlowPeriod int `yaml:"ema_slow_period"`

	MACDFast   int `yaml:"macd_fast"`
	MACDSlow   int `yaml:"macd_slow"`
	MACDSignal int `yaml:"macd_signal"`

	RSIPeriod        int     `yaml:"rsi_period"`
	RSIBuyThreshold  float64 `yaml:"rsi_buy_threshold"`
	RSISellThreshold float64 `yaml:"rsi_sell_threshold"`

	ATRPeriod int `yaml:"atr_period"`

	// ATRStopMult sizes the stop distance in ATR multiples; RiskReward sizes
	// the target as a multiple of that risk.
	ATRStopMult float64 `yaml:"atr_stop_mult"`
	RiskReward  float64 `yaml:"risk_reward"`
}

// DefaultParams returns the standard conservative configuration: 50/200 EMA
// trend filter, MACD(12,26,9), RSI-14 with 55/45 gates, 2x ATR-14 stops and
// a 1.5 risk-reward target.
func DefaultParams() Params {
	return Params{
		EMAFastPeriod:    50,
		EMASlowPeriod:    200,
		MACDFast:         12,
		MACDSlow:         26,
		MACDSignal:       9,
		RSIPeriod:        14,
		RSIBuyThreshold:  55,
		RSISellThreshold: 45,
		ATRPeriod:        14,
		ATRStopMult:      2.0,
		RiskReward:       1.5,
	}
}

// MinBars is the history required before any non-HOLD decision. The slow EMA
// warm-up dominates every other indicator's requirement.
func (p Params) MinBars() int {
	return p.EMASlowPeriod
}

// Validate rejects configurations that cannot produce meaningful signals.
func (p Params) Validate() error {
	for name, v := range map[string]int{
		"ema_fast_period": p.EMAFastPeriod,
		"ema_slow_period": p.EMASlowPeriod,
		"macd_fast":       p.MACDFast,
		"macd_slow":       p.MACDSlow,
		"macd_signal":     p.MACDSignal,
		"rsi_period":      p.RSIPeriod,
		"atr_period":      p.ATRPeriod,
	} {
		if v <= 0 {
			return fmt.Errorf("params: %s must be positive, got %d", name, v)
		}
	}
	if p.EMAFastPeriod >= p.EMASlowPeriod {
		return fmt.Errorf("params: ema_fast_period %d must be below ema_slow_period %d", p.EMAFastPeriod, p.EMASlowPeriod)
	}
	if p.MACDFast >= p.MACDSlow {
		return fmt.Errorf("params: macd_fast %d must be below macd_slow %d", p.MACDFast, p.MACDSlow)
	}
	if p.RSIBuyThreshold <= p.RSISellThreshold {
		return fmt.Errorf("params: rsi_buy_threshold %.1f must be above rsi_sell_threshold %.1f", p.RSIBuyThreshold, p.RSISellThreshold)
	}
	if p.ATRStopMult <= 0 || p.RiskReward <= 0 {
		return fmt.Errorf("params: atr_stop_mult and risk_reward must be positive")
	}
	return nil
}
