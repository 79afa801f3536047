package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/tripsniper/internal/api/response"
	"github.com/wonny/tripsniper/internal/domain/offer"
	"github.com/wonny/tripsniper/internal/infra/database/postgres"
)

// PoolHealthChecker reports connection pool health (PostgreSQL only).
type PoolHealthChecker interface {
	Health(ctx context.Context) *postgres.HealthStatus
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	store     offer.Repository
	pool      PoolHealthChecker // nil for sqlite / memory stores
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store offer.Repository, pool PoolHealthChecker, version string) *HealthHandler {
	return &HealthHandler{
		store:     store,
		pool:      pool,
		startTime: time.Now(),
		version:   version,
	}
}

// SimpleHealthResponse represents a simple health check response
type SimpleHealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents a readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// DetailedHealthResponse represents detailed health information
type DetailedHealthResponse struct {
	Status        string                     `json:"status"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Timestamp     time.Time                  `json:"timestamp"`
	Components    map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health status of a component
type ComponentHealth struct {
	Status       string                 `json:"status"`
	ResponseTime string                 `json:"response_time"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Message      string                 `json:"message,omitempty"`
}

// Health returns simple liveness check
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, SimpleHealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// Ready returns readiness check with dependency checks
// GET /health/ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Checks:    map[string]string{"store": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.pingStore(r.Context()); err != nil {
		resp.Status = "not_ready"
		resp.Checks["store"] = "error"
		resp.Message = "Store connection failed"
		statusCode = http.StatusServiceUnavailable
	}

	response.JSON(w, r, statusCode, resp)
}

// Detailed returns detailed system health information
// GET /api/v1/health/detailed
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]ComponentHealth)
	overallStatus := "healthy"

	if h.pool != nil {
		dbHealth := h.pool.Health(r.Context())
		component := ComponentHealth{
			Status:       dbHealth.Status,
			ResponseTime: dbHealth.ResponseTime,
			Details: map[string]interface{}{
				"active_conns": dbHealth.ActiveConns,
				"idle_conns":   dbHealth.IdleConns,
				"total_conns":  dbHealth.TotalConns,
				"max_conns":    dbHealth.MaxConns,
			},
			Message: dbHealth.Error,
		}
		components["database"] = component
		overallStatus = dbHealth.Status
	} else {
		start := time.Now()
		component := ComponentHealth{Status: "healthy"}
		if err := h.pingStore(r.Context()); err != nil {
			component.Status = "unhealthy"
			component.Message = err.Error()
			overallStatus = "unhealthy"
		}
		component.ResponseTime = time.Since(start).String()
		components["store"] = component
	}

	response.Success(w, r, DetailedHealthResponse{
		Status:        overallStatus,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now(),
		Components:    components,
	})
}

func (h *HealthHandler) pingStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return h.store.Ping(ctx)
}
