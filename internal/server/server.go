// Package server exposes health, metrics, recent alerts and the live alert
// feed over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"runner-scout/internal/alert"
	"runner-scout/internal/clock"
	"runner-scout/internal/domain"
	"runner-scout/internal/observability"
	"runner-scout/internal/scheduler"
)

// Default limits for /alerts/recent.
const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

// StatusSource reports scheduler state.
type StatusSource interface {
	Status() scheduler.Status
	Interval() time.Duration
}

// RecentAlerts lists the newest alerts.
type RecentAlerts interface {
	Recent(ctx context.Context, limit int) ([]*domain.Alert, error)
}

// SeenCounter reports the seen-state size.
type SeenCounter interface {
	Len() int
	LastReset() time.Time
}

// Options configures a Server.
type Options struct {
	Addr      string
	Scheduler StatusSource
	Alerts    RecentAlerts // optional
	Seen      SeenCounter  // optional
	Feed      http.Handler // optional websocket hub
	Clock     clock.Clock
	Logger    *zerolog.Logger
}

// Server is the status HTTP server.
type Server struct {
	http      *http.Server
	router    *mux.Router
	scheduler StatusSource
	alerts    RecentAlerts
	seen      SeenCounter
	clock     clock.Clock
	started   time.Time
	logger    zerolog.Logger
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}

	s := &Server{
		router:    mux.NewRouter(),
		scheduler: opts.Scheduler,
		alerts:    opts.Alerts,
		seen:      opts.Seen,
		clock:     clk,
		started:   clk.Now(),
		logger:    l.With().Str("component", "server").Logger(),
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/alerts/recent", s.handleRecent).Methods(http.MethodGet)
	if opts.Feed != nil {
		s.router.Handle("/ws", opts.Feed)
	}

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("status server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// HealthResponse is the JSON body of /health.
type HealthResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	CycleRunning  bool      `json:"cycle_running"`
	Cycles        int64     `json:"cycles"`
	Failures      int64     `json:"failures"`
	LastStarted   time.Time `json:"last_started,omitempty"`
	LastSuccess   time.Time `json:"last_success,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
	LastCycleID   int64     `json:"last_cycle_id,omitempty"`
	LastAlerts    int       `json:"last_alerts"`
	SeenSize      int       `json:"seen_size"`
	SeenLastReset time.Time `json:"seen_last_reset,omitempty"`
}

// handleHealth reports "ok" until no cycle has succeeded for three
// intervals after at least one cycle ran.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	now := s.clock.Now()
	resp := HealthResponse{Status: "ok", Uptime: now.Sub(s.started).Round(time.Second).String()}

	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.CycleRunning = st.Running
		resp.Cycles = st.Cycles
		resp.Failures = st.Failures
		resp.LastStarted = st.LastStarted
		resp.LastSuccess = st.LastSuccess
		resp.LastError = st.LastError
		if st.LastReport != nil {
			resp.LastCycleID = st.LastReport.CycleID
			resp.LastAlerts = st.LastReport.Alerts
		}

		stale := 3 * s.scheduler.Interval()
		since := st.LastSuccess
		if since.IsZero() {
			since = s.started
		}
		if st.Cycles > 0 && now.Sub(since) > stale {
			resp.Status = "degraded"
		}
	}
	if s.seen != nil {
		resp.SeenSize = s.seen.Len()
		resp.SeenLastReset = s.seen.LastReset()
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeJSON(w, http.StatusOK, []alert.Payload{})
		return
	}

	limit := DefaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	alerts, err := s.alerts.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list recent alerts")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list alerts"})
		return
	}

	out := make([]alert.Payload, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alert.NewPayload(*a))
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
