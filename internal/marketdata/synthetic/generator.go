// Package synthetic generates deterministic random-walk OHLCV bars. It backs
// demo runs and serves as the fallback provider when a live market data fetch
// fails, so a scan cycle always has bars to analyze.
package synthetic

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"signal-enginev1/internal/model"
)

// Generator produces reproducible bar series. The same pair, timeframe and
// seed base always yield the same walk, which keeps demo output and fallback
// analysis stable across restarts.
type Generator struct {
	// SeedBase is XORed into the per-pair seed. Zero is a valid base.
	SeedBase int64

	// BasePrice is the starting price of every walk. Defaults to 100.
	BasePrice float64

	// Anchor fixes the timestamp of the newest bar. When zero, bars are
	// anchored to time.Now truncated to the timeframe.
	Anchor time.Time
}

// New returns a generator with the given seed base and default pricing.
func New(seedBase int64) *Generator {
	return &Generator{SeedBase: seedBase, BasePrice: 100}
}

// Name identifies the provider in logs and metrics.
func (g *Generator) Name() string { return "synthetic" }

// Bars generates limit bars ending at the anchor time, oldest first.
func (g *Generator) Bars(_ context.Context, pair, timeframe string, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("synthetic: limit must be positive, got %d", limit)
	}
	step, err := timeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	base := g.BasePrice
	if base <= 0 {
		base = 100
	}

	anchor := g.Anchor
	if anchor.IsZero() {
		anchor = time.Now().UTC().Truncate(step)
	}
	start := anchor.Add(-step * time.Duration(limit-1))

	rng := rand.New(rand.NewSource(seedFor(pair, timeframe) ^ g.SeedBase))

	bars := make([]model.Bar, 0, limit)
	price := base
	for i := 0; i < limit; i++ {
		// Drifted walk: small upward bias plus noise, multiplicative so
		// the series stays positive.
		change := 0.0004 + rng.NormFloat64()*0.006
		open := price
		close := open * (1 + change)
		high := math.Max(open, close) * (1 + rng.Float64()*0.003)
		low := math.Min(open, close) * (1 - rng.Float64()*0.003)
		volume := 1000 + rng.Float64()*9000

		bars = append(bars, model.Bar{
			TS:     start.Add(step * time.Duration(i)),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
		price = close
	}
	return bars, nil
}

// seedFor derives a stable seed from the pair and timeframe.
func seedFor(pair, timeframe string) int64 {
	h := fnv.New64a()
	h.Write([]byte(pair))
	h.Write([]byte{':'})
	h.Write([]byte(timeframe))
	return int64(h.Sum64())
}

// timeframeDuration parses timeframes like "1m", "4h", "1d" into durations.
func timeframeDuration(timeframe string) (time.Duration, error) {
	if len(timeframe) < 2 {
		return 0, fmt.Errorf("synthetic: invalid timeframe %q", timeframe)
	}
	unit := timeframe[len(timeframe)-1]
	n, err := strconv.Atoi(strings.TrimSuffix(timeframe, string(unit)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("synthetic: invalid timeframe %q", timeframe)
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("synthetic: invalid timeframe unit %q", string(unit))
	}
}
