// Package sigengine runs the scan loop: fetch bars for every configured pair
// and timeframe, analyze them for confluence, and fan actionable signals out
// to the store, the cache, the stream and notifications.
package sigengine

import (
	"context"
	"log/slog"
	"time"

	"signal-enginev1/internal/logger"
	"signal-enginev1/internal/model"
	"signal-enginev1/internal/strategy"
)

// SignalStore persists signals durably.
type SignalStore interface {
	Save(ctx context.Context, sig *strategy.Signal) (bool, error)
}

// SignalCache is the hot-path cache used for dedupe and fan-out.
type SignalCache interface {
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	SetLatest(ctx context.Context, sig *strategy.Signal) error
	Publish(ctx context.Context, sig *strategy.Signal) error
}

// Broadcaster pushes signals to connected stream clients.
type Broadcaster interface {
	Broadcast(v any)
}

// Notifier delivers human-facing alerts.
type Notifier interface {
	Notify(ctx context.Context, sig *strategy.Signal)
}

// Metrics is the slice of instrumentation the scan loop feeds. All methods
// must be safe with a nil receiver path handled by the caller.
type Metrics interface {
	ScanStarted()
	FetchObserved(provider string, d time.Duration, err error)
	SyntheticFallback()
	AnalyzeObserved(d time.Duration)
	SignalEmitted(direction strategy.Direction)
}

// Config controls the scan schedule.
type Config struct {
	Pairs      []string
	Timeframes []string
	Interval   time.Duration
	Lookback   int
	SeenTTL    time.Duration
}

// Service wires the analyzer to providers and sinks. Any sink may be nil;
// the loop skips what is not configured.
type Service struct {
	cfg      Config
	analyzer *strategy.Analyzer
	provider model.BarProvider
	fallback model.BarProvider

	store    SignalStore
	cache    SignalCache
	hub      Broadcaster
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger

	// AfterScan runs at the end of each cycle, used to chain the outcome
	// monitor onto the scan schedule.
	AfterScan func(ctx context.Context)
}

// New creates a service. provider is the live market data source; fallback
// (typically the synthetic generator) serves scans when the live fetch fails
// and may be nil to disable fallback.
func New(cfg Config, analyzer *strategy.Analyzer, provider, fallback model.BarProvider, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 300
	}
	if cfg.SeenTTL <= 0 {
		cfg.SeenTTL = 24 * time.Hour
	}
	return &Service{
		cfg:      cfg,
		analyzer: analyzer,
		provider: provider,
		fallback: fallback,
		logger:   log,
	}
}

// WithSinks attaches the optional output sinks.
func (s *Service) WithSinks(store SignalStore, cache SignalCache, hub Broadcaster, notifier Notifier, metrics Metrics) *Service {
	s.store = store
	s.cache = cache
	s.hub = hub
	s.notifier = notifier
	s.metrics = metrics
	return s
}

// Run executes scan cycles on the configured interval until ctx is
// cancelled. The first cycle runs immediately.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("scan loop starting",
		slog.Int("pairs", len(s.cfg.Pairs)),
		slog.Int("timeframes", len(s.cfg.Timeframes)),
		slog.Duration("interval", s.cfg.Interval))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.scanCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scan loop stopped")
			return
		case <-ticker.C:
			s.scanCycle(ctx)
		}
	}
}

func (s *Service) scanCycle(ctx context.Context) {
	start := time.Now()
	ctx = logger.WithScanID(ctx, logger.NewScanID("scan", start))
	if s.metrics != nil {
		s.metrics.ScanStarted()
	}

	emitted := 0
	for _, pair := range s.cfg.Pairs {
		for _, tf := range s.cfg.Timeframes {
			if ctx.Err() != nil {
				return
			}
			if s.ScanOne(ctx, pair, tf) {
				emitted++
			}
		}
	}

	s.logger.Info("scan cycle complete", append(logger.WithScan(ctx),
		slog.Int("emitted", emitted),
		slog.Duration("took", time.Since(start)))...)

	if s.AfterScan != nil {
		s.AfterScan(ctx)
	}
}

// ScanOne fetches, analyzes and emits for a single pair and timeframe.
// Returns true when a new actionable signal was emitted.
func (s *Service) ScanOne(ctx context.Context, pair, timeframe string) bool {
	bars, providerName := s.fetch(ctx, pair, timeframe)
	if bars == nil {
		return false
	}

	analyzeStart := time.Now()
	sig := s.analyzer.Analyze(bars)
	if s.metrics != nil {
		s.metrics.AnalyzeObserved(time.Since(analyzeStart))
	}

	sig.Pair = pair
	sig.Timeframe = timeframe
	if s.metrics != nil {
		s.metrics.SignalEmitted(sig.Direction)
	}

	if sig.Direction == strategy.DirectionHold {
		s.logger.Debug("hold", append(logger.WithScan(ctx),
			slog.String("pair", pair),
			slog.String("timeframe", timeframe),
			slog.String("reason", firstReason(sig)))...)
		return false
	}

	if s.cache != nil {
		fresh, err := s.cache.MarkSeen(ctx, sig.Key(), s.cfg.SeenTTL)
		if err != nil {
			s.logger.Warn("dedupe check failed, emitting anyway", append(logger.WithScan(ctx),
				slog.String("signal", sig.Key()),
				slog.Any("error", err))...)
		} else if !fresh {
			return false
		}
	}

	sig.Status = strategy.StatusActive
	s.emit(ctx, sig, providerName)
	return true
}

// fetch tries the live provider, then the synthetic fallback.
func (s *Service) fetch(ctx context.Context, pair, timeframe string) ([]model.Bar, string) {
	fetchStart := time.Now()
	bars, err := s.provider.Bars(ctx, pair, timeframe, s.cfg.Lookback)
	if s.metrics != nil {
		s.metrics.FetchObserved(s.provider.Name(), time.Since(fetchStart), err)
	}
	if err == nil && len(bars) > 0 {
		return bars, s.provider.Name()
	}

	s.logger.Warn("live fetch failed", append(logger.WithScan(ctx),
		slog.String("pair", pair),
		slog.String("timeframe", timeframe),
		slog.String("provider", s.provider.Name()),
		slog.Any("error", err))...)

	if s.fallback == nil {
		return nil, ""
	}
	if s.metrics != nil {
		s.metrics.SyntheticFallback()
	}
	bars, err = s.fallback.Bars(ctx, pair, timeframe, s.cfg.Lookback)
	if err != nil {
		s.logger.Error("fallback fetch failed", append(logger.WithScan(ctx),
			slog.String("pair", pair),
			slog.String("timeframe", timeframe),
			slog.Any("error", err))...)
		return nil, ""
	}
	return bars, s.fallback.Name()
}

// emit fans a fresh ACTIVE signal out to every configured sink. Sink
// failures are logged and do not stop the remaining fan-out; the durable
// store is written first so nothing observable precedes persistence.
func (s *Service) emit(ctx context.Context, sig *strategy.Signal, providerName string) {
	if s.store != nil {
		inserted, err := s.store.Save(ctx, sig)
		if err != nil {
			s.logger.Error("persist failed", append(logger.WithScan(ctx),
				slog.String("signal", sig.Key()),
				slog.Any("error", err))...)
		} else if !inserted {
			// Cache dedupe missed (e.g. Redis flush); the store is the
			// final arbiter.
			return
		}
	}

	s.logger.Info("signal emitted", append(logger.WithScan(ctx),
		slog.String("signal", sig.Key()),
		slog.String("direction", string(sig.Direction)),
		slog.String("provider", providerName))...)

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, sig); err != nil {
			s.logger.Warn("cache latest failed", append(logger.WithScan(ctx), slog.Any("error", err))...)
		}
		if err := s.cache.Publish(ctx, sig); err != nil {
			s.logger.Warn("publish failed", append(logger.WithScan(ctx), slog.Any("error", err))...)
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(sig)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, sig)
	}
}

func firstReason(sig *strategy.Signal) string {
	if len(sig.Reasoning) == 0 {
		return ""
	}
	return sig.Reasoning[0]
}
