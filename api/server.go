// Package api exposes the portfolio chat backend over HTTP: SSE chat
// streaming, per-session history, and health probes.
package api

import (
	"errors"
	"net/http"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// ServerConfig contains everything needed to assemble the HTTP server.
type ServerConfig struct {
	Logger             log.Logger
	Engine             answerer          // Required
	History            historyStore      // Required
	HealthChecks       map[string]Pinger // Per-service probes; nil Pinger = configured, not probed
	CORSOrigins        []string
	TrustProxy         bool    // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateLimitPerSecond float64 // Token refill rate per IP (0 = default 1.0)
	RateLimitBurst     int     // Burst size per IP (0 = default 10)
	MaxQuestionLength  int     // Longest accepted question (0 = default 2000)
	IsDev              bool    // Disables HSTS
}

// Server is the portfolio chat HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer assembles all routes and the middleware stack.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.History == nil {
		return nil, errors.New("history store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	maxQuestion := cfg.MaxQuestionLength
	if maxQuestion <= 0 {
		maxQuestion = 2000
	}

	ch := &chatHandler{
		engine:            cfg.Engine,
		maxQuestionLength: maxQuestion,
		trustProxy:        cfg.TrustProxy,
		logger:            logger,
	}
	hh := &historyHandler{store: cfg.History, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.ask)
	mux.HandleFunc("GET /api/chat/history/{session_id}", hh.get)
	mux.HandleFunc("DELETE /api/chat/history/{session_id}", hh.delete)

	perSecond := cfg.RateLimitPerSecond
	if perSecond <= 0 {
		perSecond = 1.0
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(perSecond, burst)

	// Middleware stack, outermost first:
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID precedes Logging so request_id appears in log attributes;
	// CORS precedes RateLimit so preflight responses carry CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes sit on a top-level mux outside the middleware stack so
	// orchestrator probes are never rate limited.
	health := &healthHandler{checks: cfg.HealthChecks, logger: logger}
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health.get)
	topMux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "AI Portfolio Backend API",
			"version": "1.0.0",
		}, logger)
	})
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
