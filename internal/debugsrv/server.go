// Package debugsrv serves a local HTTP surface for inspecting a running
// popup: Prometheus metrics, a health check and the live store snapshot.
package debugsrv

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jwulff/trustguard/internal/analytics"
	"github.com/jwulff/trustguard/internal/store"
)

// Poller reports whether the poll loop is running.
type Poller interface {
	Polling() bool
}

// Server is the debug HTTP server.
type Server struct {
	router   *chi.Mux
	logger   *zap.Logger
	live     *store.LiveSession
	poller   Poller
	gatherer prometheus.Gatherer
	srv      *http.Server
}

// New builds the router. Nothing listens until Serve.
func New(live *store.LiveSession, poller Poller, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger.With(zap.String("mod", "debugsrv")),
		live:     live,
		poller:   poller,
		gatherer: gatherer,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", s.health)
	r.Get("/debug/state", s.state)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

type healthResponse struct {
	Status          string `json:"status"`
	Connected       bool   `json:"connected"`
	MonitoringState string `json:"monitoringState"`
	Polling         bool   `json:"polling"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snap := s.live.Snapshot()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "ok",
		Connected:       snap.Connected,
		MonitoringState: string(snap.MonitoringState),
		Polling:         s.poller.Polling(),
	})
}

type stateResponse struct {
	store.LiveState
	Severity analytics.SeverityCounts `json:"severity"`
	Trend    analytics.TrendResult    `json:"trend"`
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	snap := s.live.Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		LiveState: snap,
		Severity:  analytics.CountSeverities(snap.ActiveAlerts),
		Trend:     analytics.Trend(snap.ScoreHistory),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.srv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.logger.Info("debug server listening", zap.String("addr", ln.Addr().String()))

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
