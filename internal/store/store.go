package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/verdantlabs/verdant/internal/loggy"
)

// recordColumns is the shared column set of every entity table
var recordColumns = []string{
	"id",
	"payload",
	"natural_key",
	"parent_id",
	"sync_status",
	"local_changes",
	"idempotency_key",
	"deleted",
	"created_at",
	"updated_at",
}

// Store defines the local persistence operations used by the sync engine.
// No network access, no business logic.
type Store interface {
	Get(ctx context.Context, table Table, id string) (*Record, error)
	List(ctx context.Context, table Table) ([]*Record, error)
	Put(ctx context.Context, table Table, rec *Record) error
	Delete(ctx context.Context, table Table, id string) error

	ListByParent(ctx context.Context, table Table, parentID string) ([]*Record, error)
	ListPending(ctx context.Context, table Table) ([]*Record, error)
	FindByNaturalKey(ctx context.Context, table Table, key string) ([]*Record, error)
	CountByStatus(ctx context.Context, table Table, status SyncStatus) (int, error)

	// Swap deletes the temporary record and inserts the confirmed one in a
	// single transaction, preserving the at-most-one-record invariant.
	Swap(ctx context.Context, table Table, tempID string, confirmed *Record) error

	// DeleteDuplicates removes every record sharing the natural key except
	// the one identified by keepID. Returns the number of records removed.
	DeleteDuplicates(ctx context.Context, table Table, naturalKey, keepID string) (int, error)
}

// SQLStore implements Store on SQLite
type SQLStore struct {
	db      *sql.DB
	logger  *loggy.Logger
	builder sq.StatementBuilderType
}

// NewSQLStore creates a new SQLite-backed store
func NewSQLStore(db *sql.DB, logger *loggy.Logger) *SQLStore {
	return &SQLStore{
		db:      db,
		logger:  logger,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Get retrieves a record by id
func (s *SQLStore) Get(ctx context.Context, table Table, id string) (*Record, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query, args, err := s.builder.
		Select(recordColumns...).
		From(string(table)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning record: %v", ErrStoreUnavailable, err)
	}

	return rec, nil
}

// List returns all records in a table ordered by creation time
func (s *SQLStore) List(ctx context.Context, table Table) ([]*Record, error) {
	return s.listWhere(ctx, table, nil)
}

// ListByParent returns all records with the given parent id, e.g.
// responses by assessment or members by organization
func (s *SQLStore) ListByParent(ctx context.Context, table Table, parentID string) ([]*Record, error) {
	return s.listWhere(ctx, table, sq.Eq{"parent_id": parentID})
}

// ListPending returns all records awaiting remote confirmation
func (s *SQLStore) ListPending(ctx context.Context, table Table) ([]*Record, error) {
	return s.listWhere(ctx, table, sq.Eq{"sync_status": SyncStatusPending})
}

// FindByNaturalKey returns all records sharing a natural key. More than
// one result means duplicate entities have accumulated.
func (s *SQLStore) FindByNaturalKey(ctx context.Context, table Table, key string) ([]*Record, error) {
	if key == "" {
		return nil, nil
	}
	return s.listWhere(ctx, table, sq.Eq{"natural_key": key})
}

func (s *SQLStore) listWhere(ctx context.Context, table Table, pred any) ([]*Record, error) {
	if !table.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	q := s.builder.
		Select(recordColumns...).
		From(string(table)).
		OrderBy("created_at ASC")
	if pred != nil {
		q = q.Where(pred)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", ErrStoreUnavailable, table, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecordFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning record: %v", ErrStoreUnavailable, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %v", ErrStoreUnavailable, err)
	}

	return records, nil
}

// CountByStatus counts records in a given sync state
func (s *SQLStore) CountByStatus(ctx context.Context, table Table, status SyncStatus) (int, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query, args, err := s.builder.
		Select("COUNT(*)").
		From(string(table)).
		Where(sq.Eq{"sync_status": status}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building count query: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting %s: %v", ErrStoreUnavailable, table, err)
	}

	return count, nil
}

// Put upserts a record by id and bumps its updated_at timestamp
func (s *SQLStore) Put(ctx context.Context, table Table, rec *Record) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	query, args, err := s.builder.
		Insert(string(table)).
		Columns(recordColumns...).
		Values(
			rec.ID,
			rec.Payload,
			rec.NaturalKey,
			rec.ParentID,
			rec.SyncStatus,
			rec.LocalChanges,
			rec.IdempotencyKey,
			rec.Deleted,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			natural_key = excluded.natural_key,
			parent_id = excluded.parent_id,
			sync_status = excluded.sync_status,
			local_changes = excluded.local_changes,
			idempotency_key = excluded.idempotency_key,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: upserting into %s: %v", ErrStoreUnavailable, table, err)
	}

	return nil
}

// Delete removes a record by id. Deleting an absent record is not an error.
func (s *SQLStore) Delete(ctx context.Context, table Table, id string) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query, args, err := s.builder.
		Delete(string(table)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: deleting from %s: %v", ErrStoreUnavailable, table, err)
	}

	return nil
}

// Swap deletes the temporary record and inserts the confirmed record in
// one transaction. A failure rolls back both halves, so the table never
// holds zero or two copies of the entity.
func (s *SQLStore) Swap(ctx context.Context, table Table, tempID string, confirmed *Record) error {
	if !table.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	now := time.Now()
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = now
	}
	confirmed.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", ErrStoreUnavailable, err)
	}

	delQuery, delArgs, err := s.builder.
		Delete(string(table)).
		Where(sq.Eq{"id": tempID}).
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("building delete query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: deleting temporary record: %v", ErrStoreUnavailable, err)
	}

	insQuery, insArgs, err := s.builder.
		Insert(string(table)).
		Columns(recordColumns...).
		Values(
			confirmed.ID,
			confirmed.Payload,
			confirmed.NaturalKey,
			confirmed.ParentID,
			confirmed.SyncStatus,
			confirmed.LocalChanges,
			confirmed.IdempotencyKey,
			confirmed.Deleted,
			confirmed.CreatedAt,
			confirmed.UpdatedAt,
		).
		Suffix(`ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			natural_key = excluded.natural_key,
			parent_id = excluded.parent_id,
			sync_status = excluded.sync_status,
			local_changes = excluded.local_changes,
			idempotency_key = excluded.idempotency_key,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`).
		ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("building insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: inserting confirmed record: %v", ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing swap: %v", ErrStoreUnavailable, err)
	}

	s.logger.Debug("Swapped temporary record", "table", table, "temp_id", tempID, "id", confirmed.ID)
	return nil
}

// DeleteDuplicates removes every record sharing the natural key except keepID
func (s *SQLStore) DeleteDuplicates(ctx context.Context, table Table, naturalKey, keepID string) (int, error) {
	if !table.Valid() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if naturalKey == "" {
		return 0, nil
	}

	query, args, err := s.builder.
		Delete(string(table)).
		Where(sq.Eq{"natural_key": naturalKey}).
		Where(sq.NotEq{"id": keepID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("building delete query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting duplicates from %s: %v", ErrStoreUnavailable, table, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if affected > 0 {
		s.logger.Info("Removed duplicate records", "table", table, "natural_key", naturalKey, "count", affected)
	}

	return int(affected), nil
}

// scanRecord scans a record from a single row
func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	var naturalKey, parentID, idempotencyKey sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.Payload,
		&naturalKey,
		&parentID,
		&rec.SyncStatus,
		&rec.LocalChanges,
		&idempotencyKey,
		&rec.Deleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.NaturalKey = naturalKey.String
	rec.ParentID = parentID.String
	rec.IdempotencyKey = idempotencyKey.String
	return &rec, nil
}

// scanRecordFromRows scans a record from a rows iterator
func scanRecordFromRows(rows *sql.Rows) (*Record, error) {
	var rec Record
	var naturalKey, parentID, idempotencyKey sql.NullString

	err := rows.Scan(
		&rec.ID,
		&rec.Payload,
		&naturalKey,
		&parentID,
		&rec.SyncStatus,
		&rec.LocalChanges,
		&idempotencyKey,
		&rec.Deleted,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.NaturalKey = naturalKey.String
	rec.ParentID = parentID.String
	rec.IdempotencyKey = idempotencyKey.String
	return &rec, nil
}
