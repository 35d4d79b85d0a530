package sweep

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// Trigger names what started a sweep pass
type Trigger string

// Sweep triggers
const (
	TriggerInterval Trigger = "interval"
	TriggerOnline   Trigger = "online"
	TriggerManual   Trigger = "manual"
)

// Log records one sweep pass in the sweep_logs table
type Log struct {
	ID          string     `json:"id"`
	TriggerKind Trigger    `json:"trigger_kind"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Pushed      int        `json:"pushed"`
	Failed      int        `json:"failed"`
	Skipped     int        `json:"skipped"`
	Error       string     `json:"error,omitempty"`
}

// LogRepository persists sweep pass records
type LogRepository interface {
	StartLog(ctx context.Context, trigger Trigger) (*Log, error)
	CompleteLog(ctx context.Context, log *Log) error
	RecentLogs(ctx context.Context, limit int) ([]*Log, error)
}

// SQLLogRepository implements LogRepository on SQLite
type SQLLogRepository struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLLogRepository creates a new sweep log repository
func NewSQLLogRepository(db *sql.DB, logger *loggy.Logger) *SQLLogRepository {
	return &SQLLogRepository{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// StartLog inserts a new in-progress sweep log
func (r *SQLLogRepository) StartLog(ctx context.Context, trigger Trigger) (*Log, error) {
	log := &Log{
		ID:          ulid.SweepID(),
		TriggerKind: trigger,
		StartedAt:   time.Now(),
	}

	query, args, err := r.builder.
		Insert("sweep_logs").
		Columns("id", "trigger_kind", "started_at", "pushed", "failed", "skipped").
		Values(log.ID, log.TriggerKind, log.StartedAt, 0, 0, 0).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building insert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("inserting sweep log: %w", err)
	}

	return log, nil
}

// CompleteLog finalizes a sweep log with its counters
func (r *SQLLogRepository) CompleteLog(ctx context.Context, log *Log) error {
	now := time.Now()
	log.FinishedAt = &now

	query, args, err := r.builder.
		Update("sweep_logs").
		Set("finished_at", log.FinishedAt).
		Set("pushed", log.Pushed).
		Set("failed", log.Failed).
		Set("skipped", log.Skipped).
		Set("error", log.Error).
		Where(sq.Eq{"id": log.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating sweep log: %w", err)
	}

	return nil
}

// RecentLogs returns the most recent sweep passes, newest first
func (r *SQLLogRepository) RecentLogs(ctx context.Context, limit int) ([]*Log, error) {
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.builder.
		Select("id", "trigger_kind", "started_at", "finished_at", "pushed", "failed", "skipped", "error").
		From("sweep_logs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sweep logs: %w", err)
	}
	defer rows.Close()

	var logs []*Log
	for rows.Next() {
		var log Log
		var finishedAt sql.NullTime
		var errMsg sql.NullString

		if err := rows.Scan(
			&log.ID, &log.TriggerKind, &log.StartedAt, &finishedAt,
			&log.Pushed, &log.Failed, &log.Skipped, &errMsg,
		); err != nil {
			return nil, fmt.Errorf("scanning sweep log: %w", err)
		}

		if finishedAt.Valid {
			log.FinishedAt = &finishedAt.Time
		}
		log.Error = errMsg.String
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return logs, nil
}
