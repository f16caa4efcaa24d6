package respool

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/yuku/respool/internal/store"
	"github.com/yuku/respool/internal/store/memstore"
	"github.com/yuku/respool/internal/store/natsstore"
	"github.com/yuku/respool/internal/store/pgstore"
)

// Record is one allocatable handle in a pool.
type Record = store.Record

// Status is the lifecycle state of a record.
type Status = store.Status

// Store is the contract a backing store must fulfil. Any store offering
// version-checked conditional writes can implement it.
type Store = store.Store

const (
	StatusAvailable    = store.StatusAvailable
	StatusInUse        = store.StatusInUse
	StatusProvisioning = store.StatusProvisioning
)

// NewMemoryStore returns a Store that lives in the current process. It is
// only shared between pools created from the same value.
func NewMemoryStore() Store {
	return memstore.New()
}

// NewPostgresStore returns a Store backed by the resource_records table.
// Run Setup once before using it.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return pgstore.New(pool)
}

// NewNATSStore returns a Store backed by a JetStream key-value bucket,
// creating the bucket when needed.
func NewNATSStore(ctx context.Context, js jetstream.JetStream, bucket string) (Store, error) {
	s, err := natsstore.New(ctx, js, bucket)
	if err != nil {
		return nil, err
	}
	return s, nil
}
