package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Health states reported by Pool.Health
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// healthPingTimeout bounds the ping behind /health/ready and /api/v1/health/detailed.
const healthPingTimeout = 3 * time.Second

// HealthStatus is the store section of the detailed health response.
type HealthStatus struct {
	Status       string    `json:"status"`
	ResponseTime string    `json:"response_time"`
	ActiveConns  int32     `json:"active_conns"`
	IdleConns    int32     `json:"idle_conns"`
	TotalConns   int32     `json:"total_conns"`
	MaxConns     int32     `json:"max_conns"`
	CheckedAt    time.Time `json:"checked_at"`
	Error        string    `json:"error,omitempty"`
}

// Health pings the database and reports pool usage. A pipeline run holds
// one connection for its whole transaction, so a pool with at most one
// spare connection is reported as degraded.
func (p *Pool) Health(ctx context.Context) *HealthStatus {
	start := time.Now()
	status := &HealthStatus{CheckedAt: start}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := p.Ping(pingCtx)
	status.ResponseTime = time.Since(start).String()

	if err != nil {
		status.Status = StatusUnhealthy
		status.Error = fmt.Sprintf("ping failed: %v", err)
		return status
	}

	stats := p.Stat()
	status.ActiveConns = stats.AcquiredConns()
	status.IdleConns = stats.IdleConns()
	status.TotalConns = stats.TotalConns()
	status.MaxConns = stats.MaxConns()
	status.Status, status.Error = poolState(stats)
	return status
}

func poolState(stats *pgxpool.Stat) (string, string) {
	if spare := stats.MaxConns() - stats.AcquiredConns(); stats.MaxConns() > 1 && spare <= 1 {
		return StatusDegraded, fmt.Sprintf("%d of %d connections in use", stats.AcquiredConns(), stats.MaxConns())
	}
	return StatusHealthy, ""
}

// IsHealthy reports whether Health returns StatusHealthy.
func (p *Pool) IsHealthy(ctx context.Context) bool {
	return p.Health(ctx).Status == StatusHealthy
}
