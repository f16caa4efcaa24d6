package respool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuku/respool"
)

// faultyStore wraps a Store and injects failures.
type faultyStore struct {
	respool.Store

	// conflicts is the number of upcoming conditional updates to reject
	// with ErrVersionConflict; negative rejects all of them.
	conflicts atomic.Int32

	getErr error

	mu        sync.Mutex
	insertErr error
}

func (s *faultyStore) setInsertErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertErr = err
}

func (s *faultyStore) Get(ctx context.Context, group, id string) (respool.Record, error) {
	if s.getErr != nil {
		return respool.Record{}, s.getErr
	}
	return s.Store.Get(ctx, group, id)
}

func (s *faultyStore) Insert(ctx context.Context, r respool.Record) (respool.Record, error) {
	s.mu.Lock()
	err := s.insertErr
	s.mu.Unlock()
	if err != nil {
		return respool.Record{}, err
	}
	return s.Store.Insert(ctx, r)
}

func (s *faultyStore) ConditionalUpdate(ctx context.Context, r respool.Record, expected uint64) (respool.Record, error) {
	if n := s.conflicts.Load(); n < 0 || (n > 0 && s.conflicts.CompareAndSwap(n, n-1)) {
		return respool.Record{}, respool.ErrVersionConflict
	}
	return s.Store.ConditionalUpdate(ctx, r, expected)
}

func newPool(t *testing.T, s respool.Store, conf respool.Config) *respool.Pool {
	t.Helper()
	if conf.GroupKey == "" {
		conf.GroupKey = "test_" + uuid.NewString()[:8]
	}
	pool, err := respool.New(context.Background(), s, conf)
	require.NoError(t, err, "New should not return an error")
	t.Cleanup(pool.Close)
	return pool
}

func addResources(t *testing.T, pool *respool.Pool, n int) []*respool.Record {
	t.Helper()
	records := make([]*respool.Record, 0, n)
	for range n {
		r, err := pool.AddResource(context.Background(), respool.Record{})
		require.NoError(t, err, "AddResource should not return an error")
		records = append(records, r)
	}
	return records
}

func TestNew(t *testing.T) {
	t.Run("rejects nil store", func(t *testing.T) {
		_, err := respool.New(context.Background(), nil, respool.Config{})
		require.Error(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := respool.New(context.Background(), respool.NewMemoryStore(), respool.Config{Buffer: -1})
		require.Error(t, err)
	})

	t.Run("default config", func(t *testing.T) {
		conf := respool.DefaultConfig()
		conf.RefillMode = respool.RefillDisabled
		pool, err := respool.New(context.Background(), respool.NewMemoryStore(), conf)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		assert.Equal(t, respool.DefaultGroupKey, pool.GroupKey())
		assert.Equal(t, 10, pool.MinimumAvailable())
		assert.Equal(t, 2, pool.Buffer())
	})

	t.Run("keeps zero threshold and buffer", func(t *testing.T) {
		pool, err := respool.New(context.Background(), respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		assert.Equal(t, respool.DefaultGroupKey, pool.GroupKey())
		assert.Zero(t, pool.MinimumAvailable())
		assert.Zero(t, pool.Buffer())
	})
}

func TestPool_AddResource(t *testing.T) {
	ctx := context.Background()

	t.Run("new resource is available", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		// When
		added, err := pool.AddResource(ctx, respool.Record{})
		require.NoError(t, err)

		// Then
		got, err := pool.GetResource(ctx, added.ID)
		require.NoError(t, err)
		require.NotNil(t, got, "added resource should be found")
		assert.Equal(t, respool.StatusAvailable, got.Status)
		assert.NotEmpty(t, got.ID, "an id should be generated")
		assert.False(t, got.CreatedAt.IsZero(), "creation time should be set")
	})

	t.Run("forces the group key", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		added, err := pool.AddResource(ctx, respool.Record{GroupKey: "somewhere-else", ID: "fixed"})
		require.NoError(t, err)

		assert.Equal(t, pool.GroupKey(), added.GroupKey)
		assert.Equal(t, "fixed", added.ID)
	})

	t.Run("rejects duplicate id", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		_, err := pool.AddResource(ctx, respool.Record{ID: "dup"})
		require.NoError(t, err)
		_, err = pool.AddResource(ctx, respool.Record{ID: "dup"})
		require.ErrorIs(t, err, respool.ErrAlreadyExists)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		_, err := pool.AddResource(ctx, respool.Record{Status: "Broken"})
		require.Error(t, err)
	})
}

func TestPool_GetResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns nil for missing resource", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		got, err := pool.GetResource(ctx, "missing")
		require.NoError(t, err, "a missing resource is not an error")
		assert.Nil(t, got)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		boom := errors.New("store unavailable")
		pool := newPool(t, &faultyStore{Store: respool.NewMemoryStore(), getErr: boom}, respool.Config{RefillMode: respool.RefillDisabled})

		_, err := pool.GetResource(ctx, "any")
		require.ErrorIs(t, err, boom)
	})
}

func TestPool_DeleteResource(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

	t.Run("missing resource", func(t *testing.T) {
		require.NoError(t, pool.DeleteResource(ctx, "non-existent-id"))
	})

	t.Run("existing resource", func(t *testing.T) {
		added := addResources(t, pool, 1)[0]

		require.NoError(t, pool.DeleteResource(ctx, added.ID))

		got, err := pool.GetResource(ctx, added.ID)
		require.NoError(t, err)
		assert.Nil(t, got, "deleted resource should not be found")
	})
}

func TestPool_List(t *testing.T) {
	ctx := context.Background()
	pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

	// Given
	records := addResources(t, pool, 3)
	_, err := pool.TryAcquire(ctx, records[0].ID)
	require.NoError(t, err)

	// When
	all, err := pool.ListAll(ctx)
	require.NoError(t, err)
	available, err := pool.ListAvailable(ctx)
	require.NoError(t, err)
	stats, err := pool.Stats(ctx)
	require.NoError(t, err)

	// Then
	assert.Len(t, all, 3)
	assert.Len(t, available, 2)
	for _, r := range available {
		assert.NotEqual(t, records[0].ID, r.ID, "acquired resource should not be listed as available")
	}
	assert.Equal(t, respool.Stats{Total: 3, Available: 2, InUse: 1}, stats)
}

func TestPool_TryAcquire(t *testing.T) {
	ctx := context.Background()

	t.Run("acquires an available resource once", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})
		added := addResources(t, pool, 1)[0]

		// When
		first, err := pool.TryAcquire(ctx, added.ID)
		require.NoError(t, err)

		// Then
		require.NotNil(t, first, "first acquisition should succeed")
		assert.Equal(t, respool.StatusInUse, first.Status)
		assert.NotEqual(t, added.Version, first.Version)

		// When acquiring the same resource again
		second, err := pool.TryAcquire(ctx, added.ID)

		// Then
		require.NoError(t, err)
		assert.Nil(t, second, "a resource in use cannot be acquired again")
	})

	t.Run("missing resource", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})

		got, err := pool.TryAcquire(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("provisioning resource", func(t *testing.T) {
		pool := newPool(t, respool.NewMemoryStore(), respool.Config{RefillMode: respool.RefillDisabled})
		added, err := pool.AddResource(ctx, respool.Record{Status: respool.StatusProvisioning})
		require.NoError(t, err)

		got, err := pool.TryAcquire(ctx, added.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("lost race is not an error", func(t *testing.T) {
		s := &faultyStore{Store: respool.NewMemoryStore()}
		s.conflicts.Store(1)
		pool := newPool(t, s, respool.Config{RefillMode: respool.RefillDisabled})
		added := addResources(t, pool, 1)[0]

		got, err := pool.TryAcquire(ctx, added.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = pool.TryAcquire(ctx, added.ID)
		require.NoError(t, err)
		assert.NotNil(t, got, "the resource is still available after a lost race")
	})

	t.Run("propagates store errors", func(t *testing.T) {
		boom := errors.New("store unavailable")
		pool := newPool(t, &faultyStore{Store: respool.NewMemoryStore(), getErr: boom}, respool.Config{RefillMode: respool.RefillDisabled})

		_, err := pool.TryAcquire(ctx, "any")
		require.ErrorIs(t, err, boom)
	})
}

// TestPool_TryAcquire_Concurrent checks that of many concurrent acquirers of
// one resource, across pool instances sharing a store, exactly one wins.
func TestPool_TryAcquire_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := respool.NewMemoryStore()
	conf := respool.Config{GroupKey: "shared", RefillMode: respool.RefillDisabled}

	const n = 20
	pools := make([]*respool.Pool, 4)
	for i := range pools {
		pools[i] = newPool(t, s, conf)
	}
	added := addResources(t, pools[0], 1)[0]

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func(pool *respool.Pool) {
			defer wg.Done()
			got, err := pool.TryAcquire(ctx, added.ID)
			if !assert.NoError(t, err) {
				return
			}
			if got != nil {
				wins.Add(1)
			} else {
				losses.Add(1)
			}
		}(pools[i%len(pools)])
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load(), "exactly one caller should acquire the resource")
	assert.EqualValues(t, n-1, losses.Load())
}
