// Package logger provides structured logging via log/slog with a JSON
// handler, service-level context and scan-trace propagation through
// context.Context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type ctxKey string

const scanIDKey ctxKey = "scan_id"

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded, and is
// installed as the slog default.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)

	return logger
}

// WithScanID stores a scan cycle ID in the context for downstream propagation.
func WithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// ScanID extracts the scan cycle ID from context. Returns "" if not set.
func ScanID(ctx context.Context) string {
	if v, ok := ctx.Value(scanIDKey).(string); ok {
		return v
	}
	return ""
}

// NewScanID builds a scan cycle ID from a label and start time.
// Format: "{label}-{unixNano}".
func NewScanID(label string, ts time.Time) string {
	return label + "-" + strconv.FormatInt(ts.UnixNano(), 10)
}

// WithScan returns slog attributes carrying the scan ID from context.
// Usage: slog.Info("msg", logger.WithScan(ctx)...)
func WithScan(ctx context.Context) []any {
	sid := ScanID(ctx)
	if sid == "" {
		return nil
	}
	return []any{slog.String("scan_id", sid)}
}
