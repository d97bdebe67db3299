package database

import (
	"context"
	"log/slog"
	"time"
)

// Health is the database section of GET /health.
type Health struct {
	Status   string        `json:"status"`
	Latency  time.Duration `json:"latency"`
	Error    string        `json:"error,omitempty"`
	Open     int           `json:"open_connections"`
	InUse    int           `json:"in_use"`
	Idle     int           `json:"idle"`
	Waits    int64         `json:"wait_count"`
	WaitTime time.Duration `json:"wait_duration"`
}

// Healthy reports whether the last ping succeeded.
func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// Health pings the database and snapshots pool usage. Workflow units hold
// a connection for the whole user-locked transaction, so pool waits are
// the first symptom of lock contention.
func (db *DB) Health(ctx context.Context) Health {
	stats := db.Stats()
	h := Health{
		Open:     stats.OpenConnections,
		InUse:    stats.InUse,
		Idle:     stats.Idle,
		Waits:    stats.WaitCount,
		WaitTime: stats.WaitDuration,
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := db.PingContext(pingCtx)
	h.Latency = time.Since(start)

	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		slog.Error("Database health check failed", "error", err)
		return h
	}
	h.Status = "healthy"

	if stats.MaxOpenConnections > 0 && stats.InUse > stats.MaxOpenConnections*9/10 {
		slog.Warn("Connection pool nearly exhausted",
			"in_use", stats.InUse, "max_open", stats.MaxOpenConnections)
	}
	if stats.WaitCount > 0 && stats.WaitDuration > time.Second {
		slog.Warn("Requests are waiting for database connections",
			"wait_count", stats.WaitCount, "wait_duration", stats.WaitDuration)
	}
	return h
}
