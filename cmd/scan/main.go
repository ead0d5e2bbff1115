// Command scan runs a single analysis for one pair and timeframe and prints
// the resulting signal as indented JSON. Useful for spot checks and strategy
// tuning without the full service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"signal-enginev1/config"
	"signal-enginev1/internal/logger"
	"signal-enginev1/internal/marketdata/binance"
	"signal-enginev1/internal/marketdata/smartapi"
	"signal-enginev1/internal/marketdata/synthetic"
	"signal-enginev1/internal/model"
	"signal-enginev1/internal/strategy"
)

func main() {
	var (
		pair         = flag.String("pair", "BTCUSDT", "trading pair to analyze")
		timeframe    = flag.String("timeframe", "1h", "bar timeframe")
		bars         = flag.Int("bars", 250, "number of bars to fetch")
		providerName = flag.String("provider", "binance", "market data provider: binance, smartapi or synthetic")
		strategyFile = flag.String("strategy", "", "optional YAML strategy parameter file")
		verbose      = flag.Bool("v", false, "include full indicator series in the output")
	)
	flag.Parse()

	log := logger.Init("scan", slog.LevelWarn)

	cfg := config.Load()
	cfg.Provider = *providerName
	if *strategyFile != "" {
		cfg.StrategyFile = *strategyFile
	}

	params, err := cfg.StrategyParams()
	if err != nil {
		fatal(log, "invalid strategy configuration", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		fatal(log, "provider setup failed", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	series, err := provider.Bars(ctx, *pair, *timeframe, *bars)
	if err != nil {
		fatal(log, "fetch failed", err)
	}

	sig := strategy.NewAnalyzer(params).Analyze(series)
	sig.Pair = *pair
	sig.Timeframe = *timeframe

	if !*verbose {
		sig.Indicators = strategy.IndicatorData{}
	}

	out, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		fatal(log, "encode failed", err)
	}
	fmt.Println(string(out))
}

func buildProvider(cfg *config.Config) (model.BarProvider, error) {
	switch cfg.Provider {
	case "smartapi":
		return smartapi.New(smartapi.Config{
			APIKey:     cfg.SmartAPIKey,
			ClientCode: cfg.SmartClientCode,
			Password:   cfg.SmartPassword,
			TOTPSecret: cfg.SmartTOTPSecret,
		})
	case "synthetic":
		return synthetic.New(0), nil
	case "binance":
		return binance.New(cfg.BinanceBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
