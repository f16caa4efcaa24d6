// Package natsstore implements store.Store on a NATS JetStream key-value
// bucket. Each record is one key, "<group>.<id>", and the version token is
// the key's revision, so conditional updates map onto KeyValue.Update.
package natsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/yuku/respool/internal/store"
)

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "respool"

type document struct {
	GroupKey  string    `json:"group_key"`
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	nc *nats.Conn // nil when the connection is owned by the caller
	kv jetstream.KeyValue
}

var _ store.Store = (*Store)(nil)

// New opens bucket on js, creating it when it does not exist.
func New(ctx context.Context, js jetstream.JetStream, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  bucket,
		History: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}
	return &Store{kv: kv}, nil
}

// Connect dials natsURL and opens bucket. The connection is closed by Close.
func Connect(ctx context.Context, natsURL, bucket string) (*Store, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s, err := New(ctx, js, bucket)
	if err != nil {
		nc.Close()

		return nil, err
	}
	s.nc = nc
	return s, nil
}

// Close closes the connection opened by Connect.
func (s *Store) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}

	return nil
}

func recordKey(group, id string) string {
	return group + "." + id
}

func encode(r store.Record) ([]byte, error) {
	return json.Marshal(document{
		GroupKey:  r.GroupKey,
		ID:        r.ID,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	})
}

func decode(entry jetstream.KeyValueEntry) (store.Record, error) {
	var doc document
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return store.Record{}, fmt.Errorf("failed to decode key %s: %w", entry.Key(), err)
	}
	status, err := store.ParseStatus(doc.Status)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to decode key %s: %w", entry.Key(), err)
	}
	return store.Record{
		GroupKey:  doc.GroupKey,
		ID:        doc.ID,
		Status:    status,
		Version:   entry.Revision(),
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (s *Store) Insert(ctx context.Context, r store.Record) (store.Record, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	data, err := encode(r)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to encode record %s: %w", r.ID, err)
	}

	rev, err := s.kv.Create(ctx, recordKey(r.GroupKey, r.ID), data)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return store.Record{}, store.ErrAlreadyExists
		}
		return store.Record{}, fmt.Errorf("failed to create key for record %s: %w", r.ID, err)
	}
	r.Version = rev
	return r, nil
}

func (s *Store) Get(ctx context.Context, group, id string) (store.Record, error) {
	entry, err := s.kv.Get(ctx, recordKey(group, id))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	return decode(entry)
}

func (s *Store) List(ctx context.Context, group string, status *store.Status) ([]store.Record, error) {
	lister, err := s.kv.ListKeysFiltered(ctx, group+".>")
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = lister.Stop() }()

	var result []store.Record
	for key := range lister.Keys() {
		entry, err := s.kv.Get(ctx, key)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue // deleted after it was listed
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get key %s: %w", key, err)
		}
		r, err := decode(entry)
		if err != nil {
			return nil, err
		}
		// Dotted group names can match a longer group's filter.
		if r.GroupKey != group {
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
	data, err := encode(r)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to encode record %s: %w", r.ID, err)
	}

	rev, err := s.kv.Update(ctx, recordKey(r.GroupKey, r.ID), data, expected)
	if err == nil {
		r.Version = rev
		return r, nil
	}
	if !isWrongRevision(err) {
		return store.Record{}, fmt.Errorf("failed to update record %s: %w", r.ID, err)
	}

	// A deleted key also has a newer revision (its tombstone).
	if _, err := s.Get(ctx, r.GroupKey, r.ID); err != nil {
		return store.Record{}, err
	}
	return store.Record{}, store.ErrVersionConflict
}

func isWrongRevision(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}

func (s *Store) Delete(ctx context.Context, group, id string) error {
	err := s.kv.Delete(ctx, recordKey(group, id))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}

	return nil
}
