package sigengine

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"signal-enginev1/internal/model"
	"signal-enginev1/internal/strategy"
)

// trendingProvider returns a steady geometric uptrend, enough bars for every
// indicator to be defined and the confluence rules to fire a BUY.
type trendingProvider struct {
	name  string
	err   error
	calls int
}

func (p *trendingProvider) Name() string { return p.name }

func (p *trendingProvider) Bars(_ context.Context, pair, timeframe string, limit int) ([]model.Bar, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, limit)
	price := 100.0
	for i := range bars {
		next := price * 1.003
		bars[i] = model.Bar{
			TS:     start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   math.Max(price, next) * 1.001,
			Low:    math.Min(price, next) * 0.999,
			Close:  next,
			Volume: 1000,
		}
		price = next
	}
	return bars, nil
}

type fakeStore struct {
	saved    []*strategy.Signal
	inserted bool
	err      error
}

func (f *fakeStore) Save(_ context.Context, sig *strategy.Signal) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.saved = append(f.saved, sig)
	return f.inserted, nil
}

type fakeCache struct {
	seen      map[string]bool
	published []*strategy.Signal
	latest    []*strategy.Signal
}

func (f *fakeCache) MarkSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeCache) SetLatest(_ context.Context, sig *strategy.Signal) error {
	f.latest = append(f.latest, sig)
	return nil
}

func (f *fakeCache) Publish(_ context.Context, sig *strategy.Signal) error {
	f.published = append(f.published, sig)
	return nil
}

type fakeHub struct{ broadcasts []any }

func (f *fakeHub) Broadcast(v any) { f.broadcasts = append(f.broadcasts, v) }

type fakeNotifier struct{ notified []*strategy.Signal }

func (f *fakeNotifier) Notify(_ context.Context, sig *strategy.Signal) {
	f.notified = append(f.notified, sig)
}

func newService(provider, fallback model.BarProvider) (*Service, *fakeStore, *fakeCache, *fakeHub, *fakeNotifier) {
	store := &fakeStore{inserted: true}
	cache := &fakeCache{}
	hub := &fakeHub{}
	notifier := &fakeNotifier{}

	svc := New(Config{
		Pairs:      []string{"BTCUSDT"},
		Timeframes: []string{"1h"},
		Interval:   time.Minute,
		Lookback:   250,
	}, strategy.NewAnalyzer(strategy.DefaultParams()), provider, fallback, nil)
	svc.WithSinks(store, cache, hub, notifier, nil)
	return svc, store, cache, hub, notifier
}

func TestScanOne_EmitsBuyToAllSinks(t *testing.T) {
	svc, store, cache, hub, notifier := newService(&trendingProvider{name: "live"}, nil)

	emitted := svc.ScanOne(context.Background(), "BTCUSDT", "1h")
	if !emitted {
		t.Fatal("expected an emitted signal for a strong uptrend")
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 persisted signal, got %d", len(store.saved))
	}
	sig := store.saved[0]
	if sig.Direction != strategy.DirectionBuy {
		t.Errorf("expected BUY, got %s", sig.Direction)
	}
	if sig.Pair != "BTCUSDT" || sig.Timeframe != "1h" {
		t.Errorf("pair/timeframe not stamped: %q/%q", sig.Pair, sig.Timeframe)
	}
	if sig.Status != strategy.StatusActive {
		t.Errorf("expected ACTIVE status, got %s", sig.Status)
	}

	if len(cache.latest) != 1 || len(cache.published) != 1 {
		t.Errorf("cache fan-out incomplete: latest=%d published=%d", len(cache.latest), len(cache.published))
	}
	if len(hub.broadcasts) != 1 {
		t.Errorf("expected 1 broadcast, got %d", len(hub.broadcasts))
	}
	if len(notifier.notified) != 1 {
		t.Errorf("expected 1 notification, got %d", len(notifier.notified))
	}
}

func TestScanOne_DedupeSuppressesRepeat(t *testing.T) {
	svc, store, _, _, notifier := newService(&trendingProvider{name: "live"}, nil)
	ctx := context.Background()

	if !svc.ScanOne(ctx, "BTCUSDT", "1h") {
		t.Fatal("first scan should emit")
	}
	if svc.ScanOne(ctx, "BTCUSDT", "1h") {
		t.Error("second scan of the same bar should be deduplicated")
	}
	if len(store.saved) != 1 || len(notifier.notified) != 1 {
		t.Errorf("duplicate reached sinks: saved=%d notified=%d", len(store.saved), len(notifier.notified))
	}
}

func TestScanOne_HoldNotPersisted(t *testing.T) {
	// A short series holds on the bar-count guard.
	short := &limitedProvider{inner: &trendingProvider{name: "live"}, max: 30}
	svc, store, cache, hub, notifier := newService(short, nil)

	if svc.ScanOne(context.Background(), "BTCUSDT", "1h") {
		t.Error("hold must not count as emitted")
	}
	if len(store.saved) != 0 || len(cache.published) != 0 || len(hub.broadcasts) != 0 || len(notifier.notified) != 0 {
		t.Error("hold leaked into sinks")
	}
}

func TestScanOne_FallbackOnFetchFailure(t *testing.T) {
	live := &trendingProvider{name: "live", err: errors.New("exchange down")}
	fallback := &trendingProvider{name: "synthetic"}
	svc, store, _, _, _ := newService(live, fallback)

	if !svc.ScanOne(context.Background(), "BTCUSDT", "1h") {
		t.Fatal("expected fallback bars to produce a signal")
	}
	if fallback.calls != 1 {
		t.Errorf("expected exactly one fallback fetch, got %d", fallback.calls)
	}
	if len(store.saved) != 1 {
		t.Errorf("expected persisted signal from fallback, got %d", len(store.saved))
	}
}

func TestScanOne_NoFallbackNoSignal(t *testing.T) {
	live := &trendingProvider{name: "live", err: errors.New("exchange down")}
	svc, store, _, _, _ := newService(live, nil)

	if svc.ScanOne(context.Background(), "BTCUSDT", "1h") {
		t.Error("expected no signal without bars")
	}
	if len(store.saved) != 0 {
		t.Errorf("expected nothing persisted, got %d", len(store.saved))
	}
}

func TestScanOne_StoreConflictStopsFanOut(t *testing.T) {
	provider := &trendingProvider{name: "live"}
	svc, store, cache, hub, notifier := newService(provider, nil)
	store.inserted = false // row already present

	if svc.ScanOne(context.Background(), "BTCUSDT", "1h") {
		// Emission is still reported true: MarkSeen accepted the key.
		// The store conflict silences the observable fan-out only.
		t.Log("scan reported emission; verifying fan-out was silenced")
	}
	if len(cache.published) != 0 || len(hub.broadcasts) != 0 || len(notifier.notified) != 0 {
		t.Error("store conflict should stop fan-out")
	}
}

// limitedProvider truncates another provider's output.
type limitedProvider struct {
	inner model.BarProvider
	max   int
}

func (p *limitedProvider) Name() string { return p.inner.Name() }

func (p *limitedProvider) Bars(ctx context.Context, pair, timeframe string, limit int) ([]model.Bar, error) {
	if limit > p.max {
		limit = p.max
	}
	return p.inner.Bars(ctx, pair, timeframe, limit)
}
