// Package pgstore implements store.Store on a PostgreSQL table. The version
// token is a counter column bumped by every conditional update, so the
// compare-and-swap happens inside a single UPDATE statement.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/yuku/respool/internal/sqlc"
	"github.com/yuku/respool/internal/store"
)

// uniqueViolation is the SQLSTATE raised on primary key collisions.
const uniqueViolation = "23505"

// Store is a store.Store backed by the resource_records table. The table
// must exist; see respool.Setup.
type Store struct {
	q *sqlc.Queries
}

var _ store.Store = (*Store)(nil)

// New returns a Store that runs its queries on db, typically a *pgxpool.Pool.
func New(db sqlc.DBTX) *Store {
	return &Store{q: sqlc.New(db)}
}

// Insert stores r. A zero CreatedAt is set to the current time.
func (s *Store) Insert(ctx context.Context, r store.Record) (store.Record, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	row, err := s.q.InsertRecord(ctx, sqlc.InsertRecordParams{
		GroupKey:  r.GroupKey,
		ID:        r.ID,
		Status:    string(r.Status),
		CreatedAt: pgtype.Timestamptz{Time: r.CreatedAt, Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return store.Record{}, store.ErrAlreadyExists
		}
		return store.Record{}, fmt.Errorf("failed to insert record %s: %w", r.ID, err)
	}
	return row.ToRecord()
}

func (s *Store) Get(ctx context.Context, group, id string) (store.Record, error) {
	row, err := s.q.GetRecord(ctx, sqlc.GetRecordParams{GroupKey: group, ID: id})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return row.ToRecord()
}

func (s *Store) List(ctx context.Context, group string, status *store.Status) ([]store.Record, error) {
	var (
		rows []sqlc.ResourceRecord
		err  error
	)
	if status == nil {
		rows, err = s.q.ListRecords(ctx, group)
	} else {
		rows, err = s.q.ListRecordsByStatus(ctx, sqlc.ListRecordsByStatusParams{
			GroupKey: group,
			Status:   string(*status),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return sqlc.ToRecords(rows)
}

func (s *Store) ConditionalUpdate(ctx context.Context, r store.Record, expected uint64) (store.Record, error) {
	row, err := s.q.UpdateRecordIfVersion(ctx, sqlc.UpdateRecordIfVersionParams{
		GroupKey: r.GroupKey,
		ID:       r.ID,
		Status:   string(r.Status),
		Version:  int64(expected),
	})
	if err == nil {
		return row.ToRecord()
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return store.Record{}, fmt.Errorf("failed to update record %s: %w", r.ID, err)
	}

	// No row matched: either the record is gone or its version moved on.
	if _, err := s.Get(ctx, r.GroupKey, r.ID); err != nil {
		return store.Record{}, err
	}
	return store.Record{}, store.ErrVersionConflict
}

func (s *Store) Delete(ctx context.Context, group, id string) error {
	if _, err := s.q.DeleteRecord(ctx, sqlc.DeleteRecordParams{GroupKey: group, ID: id}); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}
