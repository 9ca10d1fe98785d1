// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadash/internal/app/system/chartcache"
	"github.com/dalemusser/stratadash/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadash/internal/app/system/tasks"
	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// MongoPinger pings the primary of client.
func MongoPinger(client *mongo.Client) Pinger {
	return PingerFunc(func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	})
}

// JobReporter reports background job history.
type JobReporter interface {
	Status() []tasks.Status
}

// Handler provides health check endpoints.
type Handler struct {
	db     Pinger
	cache  *chartcache.Cache
	jobs   JobReporter
	logger *zap.Logger
}

// NewHandler creates a new health check Handler. db may be nil when the
// snapshot store is in memory; cache and jobs may be nil when unused.
func NewHandler(db Pinger, cache *chartcache.Cache, jobs JobReporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{db: db, cache: cache, jobs: jobs, logger: logger}
}

// CacheStatus reports chart cache activity.
type CacheStatus struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
	Cache    *CacheStatus      `json:"chart_cache,omitempty"`
	Jobs     []tasks.Status    `json:"jobs,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready, /readyz and /livez directly on the root
// router for Kubernetes probes.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) ping(r *http.Request) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()
	return h.db.Ping(ctx)
}

// Check performs a full health check including database connectivity.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:   "ok",
		Services: make(map[string]string),
	}

	switch err := h.ping(r); {
	case h.db == nil:
		resp.Services["snapshots"] = "memory"
	case err != nil:
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
	default:
		resp.Services["mongodb"] = "ok"
	}

	if h.cache != nil {
		s := h.cache.Stats()
		resp.Cache = &CacheStatus{Entries: s.Entries, Hits: s.Hits, Misses: s.Misses}
	}
	if h.jobs != nil {
		resp.Jobs = h.jobs.Status()
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready checks if the service is ready to accept requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.OK(w, map[string]string{"status": "ready"})
}

// Live checks if the service is alive.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, map[string]string{"status": "alive"})
}
