package model

import "context"

// ── Market Data Port ──
// BarProvider decouples the analysis pipeline from concrete data sources
// (Binance REST, SmartAPI, synthetic generator). Implementations must return
// bars ordered ascending by time; the pipeline treats that as a precondition
// and does not re-sort.

// BarProvider supplies OHLCV bars for an instrument and timeframe.
type BarProvider interface {
	// Bars returns up to limit most recent bars, oldest first.
	Bars(ctx context.Context, pair, timeframe string, limit int) ([]Bar, error)

	// Name identifies the provider in logs and metrics.
	Name() string
}
