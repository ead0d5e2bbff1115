// Package notification delivers alerts for emitted signals and resolved
// outcomes. Delivery is best effort: a failed notification is logged and
// never blocks the scan loop.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signal-enginev1/internal/strategy"
)

// Level classifies alert severity.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
)

// Alert is a provider-agnostic notification payload.
type Alert struct {
	Level   Level     `json:"level"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Pair    string    `json:"pair,omitempty"`
	TS      time.Time `json:"ts"`
}

// Notifier delivers alerts to a destination.
type Notifier interface {
	Send(ctx context.Context, alert Alert) error
	Name() string
}

// FromSignal builds the alert for a freshly emitted BUY or SELL signal.
func FromSignal(sig *strategy.Signal) Alert {
	msg := fmt.Sprintf("%s %s on %s", sig.Direction, sig.Pair, sig.Timeframe)
	if sig.Entry != nil && sig.StopLoss != nil && sig.TakeProfit != nil {
		msg = fmt.Sprintf("%s | entry %.4f stop %.4f target %.4f",
			msg, *sig.Entry, *sig.StopLoss, *sig.TakeProfit)
	}
	return Alert{
		Level:   LevelInfo,
		Title:   fmt.Sprintf("Signal: %s %s", sig.Direction, sig.Pair),
		Message: msg,
		Pair:    sig.Pair,
		TS:      sig.TS,
	}
}

// FromOutcome builds the alert for a resolved signal. Losses are warnings so
// downstream routing can treat them differently.
func FromOutcome(sig *strategy.Signal, pnlPct string) Alert {
	level := LevelInfo
	if sig.Status == strategy.StatusLoss {
		level = LevelWarning
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("Outcome: %s %s %s", sig.Status, sig.Direction, sig.Pair),
		Message: fmt.Sprintf("%s %s on %s resolved %s (pnl %s%%)", sig.Direction, sig.Pair, sig.Timeframe, sig.Status, pnlPct),
		Pair:    sig.Pair,
		TS:      time.Now().UTC(),
	}
}

// LogNotifier writes alerts to the structured log. Used when no webhook is
// configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(_ context.Context, alert Alert) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message),
		slog.String("pair", alert.Pair),
	)
	return nil
}
