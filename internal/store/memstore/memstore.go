// Package memstore is an in-process store.Store used by tests and by the
// memory backend of the command line tool.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/yuku/respool/internal/store"
)

type key struct {
	group string
	id    string
}

// Store keeps records in a map. Versions come from a single counter so a
// token is never reused, even across delete and re-insert of the same id.
type Store struct {
	mu      sync.Mutex
	records map[key]store.Record
	version uint64
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{records: make(map[key]store.Record)}
}

func (s *Store) nextVersion() uint64 {
	s.version++
	return s.version
}

func (s *Store) Insert(ctx context.Context, r store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{r.GroupKey, r.ID}
	if _, exists := s.records[k]; exists {
		return store.Record{}, store.ErrAlreadyExists
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Version = s.nextVersion()
	s.records[k] = r
	return r, nil
}

func (s *Store) Get(ctx context.Context, group, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[key{group, id}]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) List(ctx context.Context, group string, status *store.Status) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var result []store.Record
	for k, r := range s.records {
		if k.group != group {
			continue
		}
		if status != nil && r.Status != *status {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (s *Store) ConditionalUpdate(ctx context.Context, r store.Record, expected uint64) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{r.GroupKey, r.ID}
	current, ok := s.records[k]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	if current.Version != expected {
		return store.Record{}, store.ErrVersionConflict
	}
	r.CreatedAt = current.CreatedAt
	r.Version = s.nextVersion()
	s.records[k] = r
	return r, nil
}

func (s *Store) Delete(ctx context.Context, group, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key{group, id})
	return nil
}

// Len returns the number of records across all groups.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
