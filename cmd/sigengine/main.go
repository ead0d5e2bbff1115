// Command sigengine is the long-running signal service: it scans configured
// pairs and timeframes on an interval, persists actionable signals, resolves
// outcomes, and serves the REST API, the WebSocket stream and Prometheus
// metrics.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signal-enginev1/config"
	"signal-enginev1/internal/gateway"
	"signal-enginev1/internal/logger"
	"signal-enginev1/internal/marketdata/binance"
	"signal-enginev1/internal/marketdata/smartapi"
	"signal-enginev1/internal/marketdata/synthetic"
	"signal-enginev1/internal/metrics"
	"signal-enginev1/internal/model"
	"signal-enginev1/internal/monitor"
	"signal-enginev1/internal/notification"
	"signal-enginev1/internal/sigengine"
	redisstore "signal-enginev1/internal/store/redis"
	"signal-enginev1/internal/store/sqlite"
	"signal-enginev1/internal/strategy"
)

func main() {
	cfg := config.Load()
	log := logger.Init("sigengine", slog.LevelInfo)

	params, err := cfg.StrategyParams()
	if err != nil {
		log.Error("invalid strategy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Error("provider setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		log.Error("sqlite setup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	var cache *redisstore.Cache
	if cfg.RedisAddr != "" {
		cache, err = redisstore.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			// Redis only accelerates dedupe and fan-out; run without it.
			log.Warn("redis unavailable, continuing without cache", slog.Any("error", err))
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	m := metrics.New()
	health := metrics.NewHealthStatus()
	if cache != nil {
		health.StartLivenessChecker(ctx, cache.Client(), store.DB(), 30*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 30*time.Second)
	}
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	hub := gateway.NewHub(log)
	hub.OnCountChange = func(n int) { m.WSClients.Set(float64(n)) }

	var latest gateway.LatestReader
	if cache != nil {
		latest = cache
	}
	apiSrv := gateway.NewServer(cfg.APIAddr, store, latest, hub, log)
	apiSrv.Start()

	var notifier notification.Notifier = &notification.LogNotifier{Logger: log}
	if cfg.WebhookURL != "" {
		notifier = notification.NewWebhook(cfg.WebhookURL)
	}

	fallback := synthetic.New(time.Now().UnixNano())
	svc := sigengine.New(sigengine.Config{
		Pairs:      cfg.ParsePairs(),
		Timeframes: cfg.ParseTimeframes(),
		Interval:   cfg.ScanInterval,
		Lookback:   cfg.Lookback,
	}, strategy.NewAnalyzer(params), provider, fallback, log)

	var cacheSink sigengine.SignalCache
	if cache != nil {
		cacheSink = cache
	}
	svc.WithSinks(store, cacheSink, hub, &signalNotifier{n: notifier, log: log}, &scanMetrics{m: m, health: health})

	mon := monitor.New(store, provider, log)
	mon.OnResolve = func(sig *strategy.Signal, pnl string) {
		m.OutcomesTotal.WithLabelValues(string(sig.Status)).Inc()
		alertCtx, alertCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := notifier.Send(alertCtx, notification.FromOutcome(sig, pnl)); err != nil {
			log.Warn("outcome notification failed", slog.Any("error", err))
		}
		alertCancel()
	}
	svc.AfterScan = func(ctx context.Context) {
		if _, err := mon.RunOnce(ctx); err != nil {
			log.Error("monitor pass failed", slog.Any("error", err))
		}
		if active, err := store.Active(ctx); err == nil {
			m.ActiveSignals.Set(float64(len(active)))
		}
	}

	go svc.Run(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
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
	default:
		return binance.New(cfg.BinanceBaseURL), nil
	}
}

// signalNotifier adapts a notification.Notifier to the scan loop, shielding
// it from delivery latency and failures.
type signalNotifier struct {
	n   notification.Notifier
	log *slog.Logger
}

func (s *signalNotifier) Notify(ctx context.Context, sig *strategy.Signal) {
	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.n.Send(sendCtx, notification.FromSignal(sig)); err != nil {
		s.log.Warn("signal notification failed",
			slog.String("notifier", s.n.Name()),
			slog.Any("error", err))
	}
}

// scanMetrics adapts the Prometheus registry to the scan loop's hooks.
type scanMetrics struct {
	m      *metrics.Metrics
	health *metrics.HealthStatus
}

func (s *scanMetrics) ScanStarted() {
	s.m.ScansTotal.Inc()
	s.health.SetLastScanAt(time.Now())
}

func (s *scanMetrics) FetchObserved(provider string, d time.Duration, err error) {
	s.m.FetchDur.Observe(d.Seconds())
	if err != nil {
		s.m.FetchErrors.WithLabelValues(provider).Inc()
	}
}

func (s *scanMetrics) SyntheticFallback() {
	s.m.SyntheticFallbacks.Inc()
}

func (s *scanMetrics) AnalyzeObserved(d time.Duration) {
	s.m.AnalyzeDur.Observe(d.Seconds())
}

func (s *scanMetrics) SignalEmitted(direction strategy.Direction) {
	s.m.SignalsTotal.WithLabelValues(string(direction)).Inc()
}
