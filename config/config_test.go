package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"signal-enginev1/internal/strategy"
)

func TestParsePairs_TrimsAndDedupes(t *testing.T) {
	c := &Config{Pairs: " BTCUSDT, ETHUSDT ,,BTCUSDT"}
	got := c.ParsePairs()
	want := []string{"BTCUSDT", "ETHUSDT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParsePairs = %v, want %v", got, want)
	}
}

func TestStrategyParams_DefaultsWithoutFile(t *testing.T) {
	c := &Config{}
	params, err := c.StrategyParams()
	if err != nil {
		t.Fatal(err)
	}
	if params != strategy.DefaultParams() {
		t.Errorf("params = %+v, want defaults", params)
	}
}

func TestStrategyParams_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	content := "rsi_buy_threshold: 60\nrsi_sell_threshold: 40\natr_stop_mult: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &Config{StrategyFile: path}
	params, err := c.StrategyParams()
	if err != nil {
		t.Fatal(err)
	}
	if params.RSIBuyThreshold != 60 || params.RSISellThreshold != 40 || params.ATRStopMult != 3 {
		t.Errorf("overlay not applied: %+v", params)
	}
	// Untouched fields keep their defaults.
	if params.EMASlowPeriod != 200 || params.MACDFast != 12 {
		t.Errorf("defaults clobbered: %+v", params)
	}
}

func TestStrategyParams_InvalidFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	if err := os.WriteFile(path, []byte("ema_fast_period: 300\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := &Config{StrategyFile: path}
	if _, err := c.StrategyParams(); err == nil {
		t.Error("fast EMA above slow EMA should fail validation")
	}
}
