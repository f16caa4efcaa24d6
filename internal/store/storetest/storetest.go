// Package storetest holds the behavioural tests every store.Store backend
// must pass.
package storetest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/respool/internal/store"
)

// NewGroup returns a group key unique to the running test so backends that
// share state between tests do not interfere.
func NewGroup(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(t.Name())
	return name + "_" + uuid.NewString()[:8]
}

// NewRecord returns an available record in group with a random id.
func NewRecord(group string) store.Record {
	return store.Record{
		GroupKey:  group,
		ID:        uuid.NewString(),
		Status:    store.StatusAvailable,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// Run runs the contract suite against the store returned by factory.
func Run(t *testing.T, factory func(t *testing.T) store.Store) {
	t.Run("insert then get", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		// Given
		r := NewRecord(group)

		// When
		inserted, err := s.Insert(ctx, r)
		require.NoError(t, err, "Insert should not return an error")

		// Then
		got, err := s.Get(ctx, group, r.ID)
		require.NoError(t, err, "Get should find the inserted record")
		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, group, got.GroupKey)
		assert.Equal(t, store.StatusAvailable, got.Status)
		assert.Equal(t, inserted.Version, got.Version, "Get should report the version returned by Insert")
		assert.WithinDuration(t, r.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("insert fills in zero creation time", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		// Given
		r := NewRecord(group)
		r.CreatedAt = time.Time{}

		// When
		inserted, err := s.Insert(ctx, r)
		require.NoError(t, err, "Insert should accept a record without creation time")

		// Then
		assert.WithinDuration(t, time.Now(), inserted.CreatedAt, time.Minute)
		got, err := s.Get(ctx, group, r.ID)
		require.NoError(t, err)
		assert.WithinDuration(t, inserted.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("insert rejects duplicate id", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		r := NewRecord(NewGroup(t))

		_, err := s.Insert(ctx, r)
		require.NoError(t, err)

		_, err = s.Insert(ctx, r)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("get missing record", func(t *testing.T) {
		s := factory(t)

		_, err := s.Get(context.Background(), NewGroup(t), uuid.NewString())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list filters by group and status", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)
		other := NewGroup(t)

		// Given
		available := NewRecord(group)
		inUse := NewRecord(group)
		inUse.Status = store.StatusInUse
		foreign := NewRecord(other)
		for _, r := range []store.Record{available, inUse, foreign} {
			_, err := s.Insert(ctx, r)
			require.NoError(t, err)
		}

		// When
		all, err := s.List(ctx, group, nil)
		require.NoError(t, err)
		status := store.StatusAvailable
		onlyAvailable, err := s.List(ctx, group, &status)
		require.NoError(t, err)

		// Then
		assert.ElementsMatch(t, []string{available.ID, inUse.ID}, ids(all))
		assert.Equal(t, []string{available.ID}, ids(onlyAvailable))
	})

	t.Run("list empty group", func(t *testing.T) {
		s := factory(t)

		records, err := s.List(context.Background(), NewGroup(t), nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("conditional update", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		// Given
		inserted, err := s.Insert(ctx, NewRecord(group))
		require.NoError(t, err)

		// When updating with the current version
		next := inserted
		next.Status = store.StatusInUse
		updated, err := s.ConditionalUpdate(ctx, next, inserted.Version)

		// Then
		require.NoError(t, err, "update with the current version should succeed")
		assert.NotEqual(t, inserted.Version, updated.Version, "version should change on every write")
		got, err := s.Get(ctx, group, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, store.StatusInUse, got.Status)
		assert.Equal(t, updated.Version, got.Version)

		// When updating with the stale version
		stale := inserted
		stale.Status = store.StatusProvisioning
		_, err = s.ConditionalUpdate(ctx, stale, inserted.Version)

		// Then
		require.ErrorIs(t, err, store.ErrVersionConflict)
		got, err = s.Get(ctx, group, inserted.ID)
		require.NoError(t, err)
		assert.Equal(t, store.StatusInUse, got.Status, "a rejected update must not be applied")
	})

	t.Run("conditional update of missing record", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		inserted, err := s.Insert(ctx, NewRecord(group))
		require.NoError(t, err)
		require.NoError(t, s.Delete(ctx, group, inserted.ID))

		inserted.Status = store.StatusInUse
		_, err = s.ConditionalUpdate(ctx, inserted, inserted.Version)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		inserted, err := s.Insert(ctx, NewRecord(group))
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, group, inserted.ID))
		require.NoError(t, s.Delete(ctx, group, inserted.ID), "second delete should be a no-op")
		require.NoError(t, s.Delete(ctx, group, uuid.NewString()), "deleting an unknown id should be a no-op")

		_, err = s.Get(ctx, group, inserted.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent conditional updates have one winner", func(t *testing.T) {
		ctx := context.Background()
		s := factory(t)
		group := NewGroup(t)

		inserted, err := s.Insert(ctx, NewRecord(group))
		require.NoError(t, err)

		const n = 10
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		wg.Add(n)
		for range n {
			go func() {
				defer wg.Done()
				next := inserted
				next.Status = store.StatusInUse
				_, err := s.ConditionalUpdate(ctx, next, inserted.Version)
				switch {
				case err == nil:
					wins.Add(1)
				case assert.ErrorIs(t, err, store.ErrVersionConflict):
					conflicts.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, wins.Load(), "exactly one update should succeed")
		assert.EqualValues(t, n-1, conflicts.Load(), "all other updates should conflict")
	})
}

func ids(records []store.Record) []string {
	result := make([]string, 0, len(records))
	for _, r := range records {
		result = append(result, r.ID)
	}
	return result
}
