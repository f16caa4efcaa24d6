package statedb

import (
	"context"
	"fmt"

	"github.com/yuku/respool/internal/sqlc"
)

// Setup initializes the resource_records table for tests. Unlike
// respool.Setup it takes no advisory lock, so callers must not run it
// concurrently.
func Setup(ctx context.Context, db sqlc.DBTX) error {
	q := sqlc.New(db)

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
}
