package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dharsanguruparan/ftpledger/internal/model"
)

const serverColumns = `id, server_name, is_running, port, current_connections, max_connections,
	start_time, last_restart, updated_at`

// ServerStatusRepository manages the server_status record seeded by the
// initial migration.
type ServerStatusRepository struct {
	pool *pgxpool.Pool
}

// NewServerStatusRepository constructs a repository.
func NewServerStatusRepository(pool *pgxpool.Pool) *ServerStatusRepository {
	return &ServerStatusRepository{pool: pool}
}

// ServerStatus returns the server record.
func (r *ServerStatusRepository) ServerStatus(ctx context.Context) (status *model.ServerStatus, err error) {
	ctx, span := startSpan(ctx, "server_status.get")
	defer func() { err = finish(span, err) }()

	row := r.pool.QueryRow(ctx, `SELECT `+serverColumns+` FROM server_status ORDER BY server_name LIMIT 1`)
	return scanServer(row)
}

// ApplyServerAction starts, stops or restarts the server record.
func (r *ServerStatusRepository) ApplyServerAction(ctx context.Context, action model.ServerAction) (status *model.ServerStatus, err error) {
	ctx, span := startSpan(ctx, "server_status.apply", attribute.String("action", string(action)))
	defer func() { err = finish(span, err) }()

	var set string
	switch action {
	case model.ServerStart:
		set = `is_running=true, start_time=now()`
	case model.ServerStop:
		set = `is_running=false, current_connections=0`
	case model.ServerRestart:
		set = `is_running=true, current_connections=0, start_time=now(), last_restart=now()`
	default:
		return nil, model.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE server_status SET `+set+`, updated_at=now()
		WHERE id = (SELECT id FROM server_status ORDER BY server_name LIMIT 1)
		RETURNING `+serverColumns)
	return scanServer(row)
}

func scanServer(row pgx.Row) (*model.ServerStatus, error) {
	var s model.ServerStatus
	err := row.Scan(&s.ID, &s.ServerName, &s.IsRunning, &s.Port, &s.CurrentConnections, &s.MaxConnections,
		&s.StartTime, &s.LastRestart, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("select server status: %w", err)
	}
	return &s, nil
}
