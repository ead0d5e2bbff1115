package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"signal-enginev1/internal/strategy"
)

// SignalReader is the slice of signal persistence the API serves from.
type SignalReader interface {
	Recent(ctx context.Context, limit int) ([]*strategy.Signal, error)
	Active(ctx context.Context) ([]*strategy.Signal, error)
}

// LatestReader serves the cached newest signal per pair and timeframe.
// Optional; endpoints depending on it return 404 when absent.
type LatestReader interface {
	Latest(ctx context.Context, pair, timeframe string) ([]byte, error)
}

// Server is the public HTTP surface: REST signal queries and the WS stream.
type Server struct {
	store  SignalReader
	latest LatestReader
	hub    *Hub
	logger *slog.Logger
	srv    *http.Server
}

// NewServer builds the server and its routes.
func NewServer(addr string, store SignalReader, latest LatestReader, hub *Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, latest: latest, hub: hub, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/signals", s.handleSignals)
		r.Get("/signals/active", s.handleActive)
		r.Get("/signals/latest/{pair}/{timeframe}", s.handleLatest)
		r.Get("/health", s.handleHealth)
		r.Get("/stream", hub.HandleWS)
	})

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("api server error", slog.Any("error", err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1..500")
			return
		}
		limit = n
	}

	signals, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(signals),
		"signals": emptyIfNil(signals),
	})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	signals, err := s.store.Active(r.Context())
	if err != nil {
		s.logger.Error("active query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(signals),
		"signals": emptyIfNil(signals),
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeError(w, http.StatusNotFound, "latest cache not configured")
		return
	}
	pair := chi.URLParam(r, "pair")
	timeframe := chi.URLParam(r, "timeframe")

	data, err := s.latest.Latest(r.Context(), pair, timeframe)
	if err != nil {
		s.logger.Error("latest query failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no signal for "+pair+"/"+timeframe)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"ws_clients": s.hub.ClientCount(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func emptyIfNil(signals []*strategy.Signal) []*strategy.Signal {
	if signals == nil {
		return []*strategy.Signal{}
	}
	return signals
}
