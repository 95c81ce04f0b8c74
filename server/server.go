// Package server exposes the agent loop over HTTP: a Server-Sent Events
// chat endpoint, a WebSocket variant of the same event stream, plus health
// and Prometheus metrics endpoints. The server validates transport-level
// request bodies and hands already-structured history to the loop.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yoyo-67/ai-agent-mvp/agent"
	"github.com/yoyo-67/ai-agent-mvp/logging"
	"github.com/yoyo-67/ai-agent-mvp/model"
)

// Options configures a Server instance.
type Options struct {
	// DefaultModel is used when a request does not name a model.
	DefaultModel string
	// MetricsEnabled exposes Prometheus metrics at /metrics.
	MetricsEnabled bool
	// ProviderConfigured reports whether the provider has credentials.
	ProviderConfigured bool
	// Logger receives request-level diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Server wires the agent loop to HTTP transports.
type Server struct {
	loop               *agent.Loop
	info               model.Info
	defaultModel       string
	metricsEnabled     bool
	providerConfigured bool
	logger             logging.Logger
	mux                *http.ServeMux
}

// New constructs a Server for the given loop and provider info.
func New(loop *agent.Loop, info model.Info, optFns ...func(o *Options)) *Server {
	opts := Options{
		DefaultModel:       info.Name,
		MetricsEnabled:     true,
		ProviderConfigured: true,
		Logger:             logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{
		loop:               loop,
		info:               info,
		defaultModel:       opts.DefaultModel,
		metricsEnabled:     opts.MetricsEnabled,
		providerConfigured: opts.ProviderConfigured,
		logger:             opts.Logger,
		mux:                http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	if s.metricsEnabled {
		s.mux.Handle("GET /metrics", promhttp.Handler())
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// handleHealth reports liveness and the configured provider.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":              "ok",
		"provider":            s.info.Provider,
		"model":               s.info.Name,
		"provider_configured": s.providerConfigured,
	})
}

// httpError writes a JSON error body with the given status.
func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
