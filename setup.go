package respool

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuku/respool/internal/sqlc"
)

// setupLockID is the advisory lock taken while creating the schema. Any
// value works as long as every process uses the same one.
const setupLockID int64 = 0x7265_7370_6f6f_6c // "respool"

// setup creates the resource_records table if it does not exist. The
// advisory lock serializes concurrent callers.
func setup(ctx context.Context, pool *pgxpool.Pool) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		q := sqlc.New(tx)

		if err := q.AcquireAdvisoryLock(ctx, setupLockID); err != nil {
			return fmt.Errorf("failed to acquire advisory lock: %w", err)
		}

		ok, err := q.CheckResourceTableExists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check if resource table exists: %w", err)
		}
		if ok {
			return nil // Table already exists, no need to set up
		}
		if err := q.CreateTable(ctx); err != nil {
			return fmt.Errorf("failed to create resource table: %w", err)
		}
		return nil
	})
}

// Cleanup drops the resource_records table and every record in it.
func Cleanup(ctx context.Context, pool *pgxpool.Pool) error {
	if err := sqlc.New(pool).DropResourceTable(ctx); err != nil {
		return fmt.Errorf("failed to drop resource table: %w", err)
	}
	return nil
}
