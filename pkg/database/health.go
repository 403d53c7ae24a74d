package database

import (
	"context"
	stdsql "database/sql"
	"time"
)

// Pool is the part of *sql.DB that Health needs.
type Pool interface {
	PingContext(ctx context.Context) error
	Stats() stdsql.DBStats
}

// HealthStatus is the result of one database probe.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	LatencyMS int64     `json:"latency_ms"`
	Pool      PoolStats `json:"pool"`
}

// PoolStats is a subset of sql.DBStats.
type PoolStats struct {
	Open    int `json:"open"`
	InUse   int `json:"in_use"`
	Idle    int `json:"idle"`
	MaxOpen int `json:"max_open"`
}

// Health pings the database and reports latency and pool usage. The
// returned status is never nil.
func Health(ctx context.Context, pool Pool) (*HealthStatus, error) {
	start := time.Now()
	err := pool.PingContext(ctx)

	stats := pool.Stats()
	status := &HealthStatus{
		Healthy:   err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
		Pool: PoolStats{
			Open:    stats.OpenConnections,
			InUse:   stats.InUse,
			Idle:    stats.Idle,
			MaxOpen: stats.MaxOpenConnections,
		},
	}
	return status, err
}
