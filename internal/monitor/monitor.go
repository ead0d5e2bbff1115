// Package monitor tracks ACTIVE signals against fresh bars and resolves them
// to WIN or LOSS when price touches the target or the stop.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"signal-enginev1/internal/model"
	"signal-enginev1/internal/strategy"
)

// Store is the slice of signal persistence the monitor needs.
type Store interface {
	Active(ctx context.Context) ([]*strategy.Signal, error)
	UpdateStatus(ctx context.Context, id, pair, timeframe string, status strategy.Status) error
}

// Monitor resolves open signals using the latest bar per pair and timeframe.
type Monitor struct {
	store    Store
	provider model.BarProvider
	logger   *slog.Logger

	// OnResolve is invoked after a signal is persisted as WIN or LOSS.
	// The pnl argument is the formatted percent move from entry to exit.
	OnResolve func(sig *strategy.Signal, pnlPct string)
}

// New creates a monitor.
func New(store Store, provider model.BarProvider, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{store: store, provider: provider, logger: logger}
}

// Resolve decides the outcome of one signal against one bar. Returns the new
// status, or the empty string when neither level was touched. When a bar
// spans both levels the stop wins, the conservative reading of an
// intrabar sequence that cannot be reconstructed from OHLC alone.
func Resolve(sig *strategy.Signal, bar model.Bar) strategy.Status {
	if sig.StopLoss == nil || sig.TakeProfit == nil {
		return ""
	}
	switch sig.Direction {
	case strategy.DirectionBuy:
		if bar.Low <= *sig.StopLoss {
			return strategy.StatusLoss
		}
		if bar.High >= *sig.TakeProfit {
			return strategy.StatusWin
		}
	case strategy.DirectionSell:
		if bar.High >= *sig.StopLoss {
			return strategy.StatusLoss
		}
		if bar.Low <= *sig.TakeProfit {
			return strategy.StatusWin
		}
	}
	return ""
}

// PnLPercent computes the percent move from entry to exit, signed from the
// signal's point of view. Decimal arithmetic avoids float drift in reported
// money math.
func PnLPercent(sig *strategy.Signal, exit float64) string {
	if sig.Entry == nil || *sig.Entry == 0 {
		return "0.00"
	}
	entry := decimal.NewFromFloat(*sig.Entry)
	move := decimal.NewFromFloat(exit).Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))
	if sig.Direction == strategy.DirectionSell {
		move = move.Neg()
	}
	return move.StringFixed(2)
}

// RunOnce fetches the newest bar for every pair/timeframe holding active
// signals and resolves what it can. Fetch failures skip that group and leave
// its signals active for the next pass.
func (m *Monitor) RunOnce(ctx context.Context) (resolved int, err error) {
	active, err := m.store.Active(ctx)
	if err != nil {
		return 0, fmt.Errorf("monitor: list active: %w", err)
	}
	if len(active) == 0 {
		return 0, nil
	}

	type group struct{ pair, timeframe string }
	latest := make(map[group]*model.Bar)

	for _, sig := range active {
		g := group{sig.Pair, sig.Timeframe}
		bar, ok := latest[g]
		if !ok {
			bars, ferr := m.provider.Bars(ctx, g.pair, g.timeframe, 1)
			if ferr != nil || len(bars) == 0 {
				m.logger.Warn("monitor fetch failed, keeping signals active",
					slog.String("pair", g.pair),
					slog.String("timeframe", g.timeframe),
					slog.Any("error", ferr))
				latest[g] = nil
				continue
			}
			bar = &bars[len(bars)-1]
			latest[g] = bar
		}
		if bar == nil {
			continue
		}
		// Never resolve a signal against the bar that produced it.
		if !bar.TS.After(sig.TS) {
			continue
		}

		status := Resolve(sig, *bar)
		if status == "" {
			continue
		}
		if uerr := m.store.UpdateStatus(ctx, sig.ID, sig.Pair, sig.Timeframe, status); uerr != nil {
			m.logger.Error("monitor: persist outcome failed",
				slog.String("signal", sig.Key()),
				slog.Any("error", uerr))
			continue
		}
		sig.Status = status

		exit := exitPrice(sig, status)
		pnl := PnLPercent(sig, exit)
		m.logger.Info("signal resolved",
			slog.String("signal", sig.Key()),
			slog.String("status", string(status)),
			slog.String("pnl_pct", pnl))
		if m.OnResolve != nil {
			m.OnResolve(sig, pnl)
		}
		resolved++
	}
	return resolved, nil
}

// Run resolves outcomes on a fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.RunOnce(ctx); err != nil {
				m.logger.Error("monitor pass failed", slog.Any("error", err))
			}
		}
	}
}

// exitPrice assumes fills at the touched level.
func exitPrice(sig *strategy.Signal, status strategy.Status) float64 {
	if status == strategy.StatusWin && sig.TakeProfit != nil {
		return *sig.TakeProfit
	}
	if sig.StopLoss != nil {
		return *sig.StopLoss
	}
	return 0
}
