// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wrsmith108/love-rank-pulse-sub001/pkg/metrics"
)

// HealthDependencies defines the interface for health probes.
type HealthDependencies interface {
	CacheHealthy(ctx context.Context) bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	deps HealthDependencies
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// HandleHealth handles GET /healthz requests. With ?format=json it returns
// a liveness document including the cache state; otherwise it serves the
// Prometheus registry, which is what scrapers point at.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"cacheHealthy": h.deps.CacheHealthy(r.Context()),
		})
		return
	}
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
