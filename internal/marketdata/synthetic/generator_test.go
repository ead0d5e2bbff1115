package synthetic

import (
	"context"
	"testing"
	"time"
)

func TestBars_Deterministic(t *testing.T) {
	g := New(42)
	g.Anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a, err := g.Bars(context.Background(), "BTCUSDT", "1h", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := g.Bars(context.Background(), "BTCUSDT", "1h", 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between identical runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestBars_SeedSeparation(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	g1 := New(42)
	g1.Anchor = anchor
	g2 := New(43)
	g2.Anchor = anchor

	a, _ := g1.Bars(context.Background(), "BTCUSDT", "1h", 20)
	b, _ := g2.Bars(context.Background(), "BTCUSDT", "1h", 20)

	same := true
	for i := range a {
		if a[i].Close != b[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different seed bases produced identical walks")
	}
}

func TestBars_PairSeparation(t *testing.T) {
	g := New(42)
	g.Anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	a, _ := g.Bars(context.Background(), "BTCUSDT", "1h", 20)
	b, _ := g.Bars(context.Background(), "ETHUSDT", "1h", 20)

	same := true
	for i := range a {
		if a[i].Close != b[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different pairs produced identical walks")
	}
}

func TestBars_ShapeInvariants(t *testing.T) {
	g := New(7)
	g.Anchor = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	bars, err := g.Bars(context.Background(), "SOLUSDT", "15m", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 100 {
		t.Fatalf("expected 100 bars, got %d", len(bars))
	}

	for i, bar := range bars {
		if bar.High < bar.Open || bar.High < bar.Close {
			t.Errorf("bar %d: high %.4f below open/close", i, bar.High)
		}
		if bar.Low > bar.Open || bar.Low > bar.Close {
			t.Errorf("bar %d: low %.4f above open/close", i, bar.Low)
		}
		if bar.Close <= 0 {
			t.Errorf("bar %d: non-positive close %.4f", i, bar.Close)
		}
		if i > 0 {
			if got, want := bar.TS.Sub(bars[i-1].TS), 15*time.Minute; got != want {
				t.Errorf("bar %d: spacing %v, want %v", i, got, want)
			}
			if bar.Open != bars[i-1].Close {
				t.Errorf("bar %d: open %.4f does not continue previous close %.4f", i, bar.Open, bars[i-1].Close)
			}
		}
	}

	if got := bars[len(bars)-1].TS; !got.Equal(g.Anchor) {
		t.Errorf("newest bar at %v, want anchor %v", got, g.Anchor)
	}
}

func TestBars_InvalidInput(t *testing.T) {
	g := New(1)

	if _, err := g.Bars(context.Background(), "BTCUSDT", "1h", 0); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := g.Bars(context.Background(), "BTCUSDT", "1w", 10); err == nil {
		t.Error("expected error for unsupported timeframe unit")
	}
	if _, err := g.Bars(context.Background(), "BTCUSDT", "h", 10); err == nil {
		t.Error("expected error for malformed timeframe")
	}
}

func TestTimeframeDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"5m", 5 * time.Minute},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := timeframeDuration(tc.in)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.in, got, tc.want)
		}
	}
}
