package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// StatsRepository computes dashboard counters.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository constructs a repository.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// DashboardStats counts users, files and the access log entries since the
// given time in a single round trip.
func (r *StatsRepository) DashboardStats(ctx context.Context, since time.Time) (stats *model.DashboardStats, err error) {
	ctx, span := startSpan(ctx, "stats.dashboard")
	defer func() { err = finish(span, err) }()

	var s model.DashboardStats
	row := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM ftp_users),
			(SELECT count(*) FROM ftp_users WHERE is_active AND status = 'active'),
			(SELECT count(*) FROM user_files),
			(SELECT COALESCE(sum(file_size_mb), 0) FROM user_files),
			(SELECT count(*) FROM access_logs WHERE timestamp >= $1),
			(SELECT count(*) FROM access_logs WHERE timestamp >= $1 AND NOT success)
	`, since.UTC())
	if err := row.Scan(&s.TotalUsers, &s.ActiveUsers, &s.TotalFiles, &s.TotalStorageMB, &s.RecentActions, &s.FailedActions); err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	return &s, nil
}
