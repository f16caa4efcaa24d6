// Package store defines the narrow contract the pool needs from a backing
// store: insert, point lookup, filtered listing, version-checked update and
// idempotent delete.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned by Insert when the id is already taken.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrVersionConflict is returned by ConditionalUpdate when the stored
	// version differs from the expected one.
	ErrVersionConflict = errors.New("version conflict")
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusInUse     Status = "InUse"

	// StatusProvisioning is reserved for asynchronous provisioning and is
	// never produced by the pool.
	StatusProvisioning Status = "Provisioning"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusInUse, StatusProvisioning:
		return true
	}
	return false
}

// ParseStatus converts a stored status string to a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// Record is one allocatable handle in a pool.
type Record struct {
	GroupKey string
	ID       string
	Status   Status

	// Version is the opaque token assigned by the store on every write.
	Version uint64

	CreatedAt time.Time
}

// Store is implemented by every backing store. Implementations must make
// ConditionalUpdate atomic with respect to concurrent writers in any
// process: it is the only synchronization point of the pool.
type Store interface {
	// Insert stores a new record and returns it with its first version.
	Insert(ctx context.Context, r Record) (Record, error)

	// Get returns the record identified by group and id.
	Get(ctx context.Context, group, id string) (Record, error)

	// List returns the records of group in no particular order. When status
	// is non-nil only records in that status are returned.
	List(ctx context.Context, group string, status *Status) ([]Record, error)

	// ConditionalUpdate replaces the stored record if its version equals
	// expected and returns the record with its new version.
	ConditionalUpdate(ctx context.Context, r Record, expected uint64) (Record, error)

	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, group, id string) error
}
