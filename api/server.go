package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rustyeddy/feedrouter/broadcast"
	"github.com/rustyeddy/feedrouter/router"
)

// Core is the routing surface the HTTP layer exposes.
type Core interface {
	Status() router.Snapshot
	ForceFailover(reason string) bool
}

type Options struct {
	Addr    string
	Core    Core
	Hub     *broadcast.Hub
	Version string

	// Gatherer backs /metrics. Nil means the default prometheus registry.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// Server is the operational HTTP surface: health, status, manual failover,
// metrics and the live sample stream.
type Server struct {
	srv       *http.Server
	core      Core
	hub       *broadcast.Hub
	version   string
	startedAt time.Time
	log       *slog.Logger
}

func NewServer(opts Options) *Server {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		core:      opts.Core,
		hub:       opts.Hub,
		version:   opts.Version,
		startedAt: time.Now(),
		log:       opts.Logger.With("component", "api"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus)
	r.Post("/failover", s.handleFailover)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/stream", s.handleStream)

	s.srv = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("api server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type providerStatus struct {
	Healthy             bool       `json:"healthy"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	MessagesReceived    uint64     `json:"messages_received"`
}

type statusResponse struct {
	State               string         `json:"state"`
	LastTransitionAt    *time.Time     `json:"last_transition_at,omitempty"`
	Reason              string         `json:"reason,omitempty"`
	Primary             providerStatus `json:"primary"`
	Fallback            providerStatus `json:"fallback"`
	FallbackActivations int            `json:"fallback_activations"`
	LastFallbackAt      *time.Time     `json:"last_fallback_at,omitempty"`
	FallbackDurationSec float64        `json:"fallback_duration_sec"`
	UptimePercent       float64        `json:"uptime_percent"`
	Version             string         `json:"version"`
	ServiceUptimeSec    float64        `json:"service_uptime_sec"`
}

type failoverRequest struct {
	Reason string `json:"reason"`
}

type failoverResponse struct {
	Changed bool   `json:"changed"`
	State   string `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.core.Status()

	resp := statusResponse{
		State:               snap.State.String(),
		LastTransitionAt:    timePtr(snap.LastTransitionAt),
		Reason:              snap.Reason,
		Primary:             toProviderStatus(snap.Primary),
		Fallback:            toProviderStatus(snap.Fallback),
		FallbackActivations: snap.FallbackActivations,
		LastFallbackAt:      timePtr(snap.LastFallbackAt),
		FallbackDurationSec: snap.FallbackDuration.Seconds(),
		UptimePercent:       snap.UptimePercent,
		Version:             s.version,
		ServiceUptimeSec:    time.Since(s.startedAt).Seconds(),
	}
	s.sendJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFailover(w http.ResponseWriter, r *http.Request) {
	var req failoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.sendError(w, http.StatusBadRequest, "invalid_body", "Body must be JSON with an optional reason field")
		return
	}

	changed := s.core.ForceFailover(req.Reason)
	s.log.Info("manual failover requested", "reason", req.Reason, "changed", changed)

	s.sendJSON(w, http.StatusOK, failoverResponse{
		Changed: changed,
		State:   s.core.Status().State.String(),
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("json encode failed", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: code, Message: message})
}

func toProviderStatus(p router.ProviderStatus) providerStatus {
	return providerStatus{
		Healthy:             p.Healthy,
		LastMessageAt:       timePtr(p.LastMessageAt),
		ConsecutiveFailures: p.ConsecutiveFailures,
		LastError:           p.LastError,
		MessagesReceived:    p.MessagesReceived,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
