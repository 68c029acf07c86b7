package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

// MaxAccessLogs caps how many entries RecentAccess returns.
const MaxAccessLogs = 100

// AccessLogRepository appends to and reads access_logs.
type AccessLogRepository struct {
	pool *pgxpool.Pool
}

// NewAccessLogRepository constructs a repository.
func NewAccessLogRepository(pool *pgxpool.Pool) *AccessLogRepository {
	return &AccessLogRepository{pool: pool}
}

// RecordAccess appends one entry. Empty optional fields are stored as NULL.
func (r *AccessLogRepository) RecordAccess(ctx context.Context, entry model.AccessLog) (err error) {
	ctx, span := startSpan(ctx, "access_logs.record", attribute.String("action", string(entry.Action)))
	defer func() { err = finish(span, err) }()

	_, err = r.pool.Exec(ctx, `
		INSERT INTO access_logs (ftp_user_id, action, file_path, client_ip, user_agent, success, error_message, timestamp)
		VALUES ($1,$2::log_action,$3,$4,$5,$6,$7,COALESCE($8, now()))
	`, nullable(entry.AccountID), string(entry.Action), nullable(entry.FilePath), nullable(entry.ClientIP),
		nullable(entry.UserAgent), entry.Success, nullable(entry.ErrorMessage), nullableTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

// RecordUpload logs a successful upload for a newly tracked file.
func (r *AccessLogRepository) RecordUpload(ctx context.Context, accountID, path string) error {
	return r.RecordAccess(ctx, model.AccessLog{
		AccountID: accountID,
		Action:    model.ActionUpload,
		FilePath:  path,
		Success:   true,
	})
}

// RecentAccess returns the newest entries with their username. The limit is
// clamped to MaxAccessLogs.
func (r *AccessLogRepository) RecentAccess(ctx context.Context, limit int) (logs []model.AccessLog, err error) {
	ctx, span := startSpan(ctx, "access_logs.recent")
	defer func() { err = finish(span, err) }()

	if limit <= 0 || limit > MaxAccessLogs {
		limit = MaxAccessLogs
	}
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, COALESCE(l.ftp_user_id, ''), COALESCE(u.username, ''), l.action::text,
			COALESCE(l.file_path, ''), COALESCE(l.client_ip, ''), COALESCE(l.user_agent, ''),
			l.success, COALESCE(l.error_message, ''), l.timestamp
		FROM access_logs l LEFT JOIN ftp_users u ON u.id = l.ftp_user_id
		ORDER BY l.timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select access logs: %w", err)
	}
	logs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.AccessLog, error) {
		var (
			l      model.AccessLog
			action string
		)
		err := row.Scan(&l.ID, &l.AccountID, &l.Username, &action, &l.FilePath, &l.ClientIP,
			&l.UserAgent, &l.Success, &l.ErrorMessage, &l.Timestamp)
		l.Action = model.LogAction(action)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("select access logs: %w", err)
	}
	return logs, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
