// Package store is the Postgres access layer. The monthly metrics feeding
// the in-memory snapshot load from partner.partner_metrics; the client
// funnel and application funnel queries run against the live tables on
// every request since they are keyed by partner or filter.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/manaskarra/pdash/api/dataset"
	"github.com/manaskarra/pdash/api/metrics"
	"github.com/manaskarra/pdash/internal/derive"
)

// Store wraps the pgx pool with the queries the API needs.
type Store struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// New creates a Store over an existing pool.
func New(pool *pgxpool.Pool, log *slog.Logger) *Store {
	return &Store{pool: pool, log: log}
}

// Pool exposes the underlying pool, mainly for tests.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// LoadMonthlyMetrics reads every partner-month row. This is the dataset
// loader: the snapshot manager calls it on startup and on every refresh
// tick.
func (s *Store) LoadMonthlyMetrics(ctx context.Context) (_ []dataset.MonthlyMetric, err error) {
	start := time.Now()
	defer func() { metrics.RecordPostgresQuery(time.Since(start), err) }()

	rows, err := s.pool.Query(ctx, `
		SELECT
			partner_id,
			month,
			first_name,
			last_name,
			username,
			partner_country,
			partner_region,
			partner_tier,
			is_app_dev,
			joined_date,
			total_earnings,
			company_revenue,
			total_deposits,
			volume_usd,
			active_clients,
			new_active_clients
		FROM partner.partner_metrics
		ORDER BY partner_id, month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner metrics: %w", err)
	}
	defer rows.Close()

	var metrics []dataset.MonthlyMetric
	for rows.Next() {
		var (
			m      dataset.MonthlyMetric
			tier   string
			joined *time.Time
		)
		err := rows.Scan(
			&m.PartnerID,
			&m.Month,
			&m.FirstName,
			&m.LastName,
			&m.Username,
			&m.Country,
			&m.Region,
			&tier,
			&m.IsAppDev,
			&joined,
			&m.TotalEarnings,
			&m.CompanyRevenue,
			&m.TotalDeposits,
			&m.VolumeUSD,
			&m.ActiveClients,
			&m.NewActiveClients,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner metrics row: %w", err)
		}
		m.Tier = derive.ParseTier(tier)
		if joined != nil {
			m.JoinedDate = *joined
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partner metrics: %w", err)
	}

	s.log.Debug("loaded monthly metrics", "rows", len(metrics))
	return metrics, nil
}

// PoolStatus is a point-in-time view of the connection pool.
type PoolStatus struct {
	TotalConnections    int32 `json:"total_connections"`
	IdleConnections     int32 `json:"idle_connections"`
	AcquiredConnections int32 `json:"acquired_connections"`
	MaxConnections      int32 `json:"max_connections"`
	PoolInitialized     bool  `json:"pool_initialized"`
}

// HealthStatus is the database health-check response.
type HealthStatus struct {
	Status         string     `json:"status"`
	ResponseTimeMs *float64   `json:"response_time_ms"`
	ServerTime     *string    `json:"server_time"`
	PoolStatus     PoolStatus `json:"pool_status"`
	Error          string     `json:"error,omitempty"`
}

// HealthCheck pings the database with a trivial query and reports the
// round-trip time plus pool statistics. It never returns an error; a
// failed check comes back with status "unhealthy".
func (s *Store) HealthCheck(ctx context.Context) HealthStatus {
	stat := s.pool.Stat()
	poolStatus := PoolStatus{
		TotalConnections:    stat.TotalConns(),
		IdleConnections:     stat.IdleConns(),
		AcquiredConnections: stat.AcquiredConns(),
		MaxConnections:      stat.MaxConns(),
		PoolInitialized:     true,
	}

	start := time.Now()
	var (
		one        int
		serverTime time.Time
	)
	err := s.pool.QueryRow(ctx, `SELECT 1, NOW()`).Scan(&one, &serverTime)
	if err != nil {
		s.log.Error("database health check failed", "error", err)
		return HealthStatus{
			Status:     "unhealthy",
			Error:      err.Error(),
			PoolStatus: poolStatus,
		}
	}

	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	elapsed = float64(int(elapsed*100)) / 100
	ts := serverTime.Format(time.RFC3339)
	return HealthStatus{
		Status:         "healthy",
		ResponseTimeMs: &elapsed,
		ServerTime:     &ts,
		PoolStatus:     poolStatus,
	}
}
