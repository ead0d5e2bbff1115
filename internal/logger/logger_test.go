package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestScanID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	if sid := ScanID(ctx); sid != "" {
		t.Errorf("expected empty scan id, got %q", sid)
	}

	ctx = WithScanID(ctx, "scan-123")
	if sid := ScanID(ctx); sid != "scan-123" {
		t.Errorf("expected 'scan-123', got %q", sid)
	}
}

func TestNewScanID(t *testing.T) {
	ts := time.Date(2025, 6, 1, 10, 30, 0, 123456789, time.UTC)
	sid := NewScanID("scan", ts)

	if !strings.HasPrefix(sid, "scan-") {
		t.Errorf("expected scan id to start with 'scan-', got %s", sid)
	}
	if !strings.Contains(sid, "123456789") {
		t.Errorf("expected scan id to contain nanoseconds, got %s", sid)
	}
}

func TestWithScan(t *testing.T) {
	ctx := context.Background()

	if attrs := WithScan(ctx); attrs != nil {
		t.Errorf("expected nil attrs when no scan id, got %v", attrs)
	}

	ctx = WithScanID(ctx, "abc-123")
	if attrs := WithScan(ctx); len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with scan id set")
	}
}
