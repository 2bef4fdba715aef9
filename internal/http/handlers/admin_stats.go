package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpmiddleware "github.com/wolfman30/tablebook/internal/http/middleware"
	"github.com/wolfman30/tablebook/internal/observability/metrics"
	"github.com/wolfman30/tablebook/pkg/logging"
)

// CacheInvalidator drops cached restaurant data.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// SessionCounter reports open live booking sessions.
type SessionCounter interface {
	ActiveSessions() int
}

// AdminStatsHandler serves the operator endpoints.
type AdminStatsHandler struct {
	gatherer prometheus.Gatherer
	sessions SessionCounter
	cache    CacheInvalidator
	logger   *logging.Logger
	now      func() time.Time
}

// NewAdminStatsHandler creates the handler. sessions and cache may be nil.
func NewAdminStatsHandler(gatherer prometheus.Gatherer, sessions SessionCounter, cache CacheInvalidator, logger *logging.Logger) *AdminStatsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &AdminStatsHandler{
		gatherer: gatherer,
		sessions: sessions,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// StatsResponse is the operator overview.
type StatsResponse struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	LiveSessions int           `json:"live_sessions"`
	Booking      metrics.Stats `json:"booking"`
}

// GetStats returns submission outcomes, availability sources and upstream latency.
// GET /admin/stats
func (h *AdminStatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		GeneratedAt: h.now().UTC(),
		Booking:     metrics.Snapshot(h.gatherer),
	}
	if h.sessions != nil {
		resp.LiveSessions = h.sessions.ActiveSessions()
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateCache drops the cached restaurant profile, time slots and special dates.
// POST /admin/cache/invalidate
func (h *AdminStatsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "cache not configured"})
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "cache invalidation failed"})
		return
	}
	operator, _ := httpmiddleware.OperatorFromContext(r.Context())
	h.logger.Info("restaurant cache invalidated", "operator", operator)
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
