package statedb_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"github.com/yuku/respool/internal"
	"github.com/yuku/respool/internal/sqlc"
	"github.com/yuku/respool/internal/statedb"
)

func TestSetup(t *testing.T) {
	defaultConn := internal.MustGetConnectionWithCleanup(t)

	ctx := context.Background()
	dbname := fmt.Sprintf("respool_test_%d", rand.IntN(1000000)) // Randomize database name to avoid conflicts

	// Create separate database to avoid dropping the table affecting other tests.
	_, err := defaultConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", dbname))
	require.NoError(t, err, "failed to create setup_test database")
	t.Cleanup(func() {
		_, _ = defaultConn.Exec(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbname))
	})

	// Connect to the new database directly
	config := defaultConn.Config().Copy()
	config.Database = dbname
	conn, err := pgx.ConnectConfig(ctx, config)
	require.NoError(t, err, "failed to connect to test database")
	t.Cleanup(func() { _ = conn.Close(ctx) })

	// Given
	q := sqlc.New(conn)
	exists, err := q.CheckResourceTableExists(ctx)
	require.NoError(t, err, "failed to check if resource table exists")
	require.False(t, exists, "a fresh database should not have the resource table")

	// When
	require.NoError(t, statedb.Setup(ctx, conn))

	// Then
	exists, err = q.CheckResourceTableExists(ctx)
	require.NoError(t, err, "failed to check if resource table exists after setup")
	require.True(t, exists, "resource table should exist after setup")

	// Setup is a no-op the second time
	require.NoError(t, statedb.Setup(ctx, conn))
}
