package pgstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuku/respool/internal"
	"github.com/yuku/respool/internal/sqlc"
	"github.com/yuku/respool/internal/store"
	"github.com/yuku/respool/internal/store/pgstore"
	"github.com/yuku/respool/internal/store/storetest"
)

func TestStore(t *testing.T) {
	dbPool := internal.MustGetPoolWithCleanup(t)

	storetest.Run(t, func(t *testing.T) store.Store {
		return pgstore.New(dbPool)
	})
}

func TestStore_VersionColumn(t *testing.T) {
	ctx := context.Background()
	dbPool := internal.MustGetPoolWithCleanup(t)
	s := pgstore.New(dbPool)
	group := storetest.NewGroup(t)
	t.Cleanup(func() { _, _ = sqlc.New(dbPool).DeleteGroup(ctx, group) })

	// Given
	inserted, err := s.Insert(ctx, storetest.NewRecord(group))
	require.NoError(t, err)
	require.EqualValues(t, 1, inserted.Version, "new rows start at version 1")

	// When
	inserted.Status = store.StatusInUse
	updated, err := s.ConditionalUpdate(ctx, inserted, inserted.Version)

	// Then
	require.NoError(t, err)
	require.EqualValues(t, 2, updated.Version, "each update bumps the version by one")
	row, err := sqlc.New(dbPool).GetRecord(ctx, sqlc.GetRecordParams{GroupKey: group, ID: inserted.ID})
	require.NoError(t, err)
	require.Equal(t, "InUse", row.Status)
}
