package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
)

// healthCheckTimeout bounds each dependency probe so a hung dependency
// cannot hang the probe endpoint.
const healthCheckTimeout = 3 * time.Second

// Pinger probes one dependency. Both the database pool and the embedding
// client expose a compatible Ping method.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to the Pinger interface, for dependencies
// whose probe is not literally called Ping (the vector store is probed
// with a count query).
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type healthHandler struct {
	// checks maps a service name to its probe. A nil Pinger reports the
	// service as configured without probing (used for the LLM, whose API
	// offers no cheap liveness call).
	checks map[string]Pinger
	logger log.Logger
}

// get handles GET /health: 200 with every dependency healthy, 503 with
// status "degraded" when any probe fails. The body always lists
// per-service status.
func (h *healthHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	healthy := true

	for name, pinger := range h.checks {
		if pinger == nil {
			services[name] = "configured"
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			h.logger.Warn("health probe failed", "service", name, "error", err)
			services[name] = "unavailable"
			healthy = false
			continue
		}
		services[name] = "connected"
	}

	status := "healthy"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}, h.logger)
}
