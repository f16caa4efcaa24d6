package respool

import (
	"errors"

	"github.com/yuku/respool/internal/store"
)

var (
	// ErrNotFound reports a missing record. Pool methods absorb it; it is
	// exported for Store implementations.
	ErrNotFound = store.ErrNotFound

	// ErrAlreadyExists is returned by AddResource when the id is taken.
	ErrAlreadyExists = store.ErrAlreadyExists

	// ErrVersionConflict is returned by Store implementations when a
	// conditional update loses. TryAcquire reports it as "not acquired".
	ErrVersionConflict = store.ErrVersionConflict

	// ErrPoolExhausted is returned by AllocateRandom when no record is
	// available.
	ErrPoolExhausted = errors.New("no available resources to allocate")

	// ErrContentionTimeout is returned by AllocateRandom when every attempt
	// lost its race to another caller.
	ErrContentionTimeout = errors.New("gave up allocating under contention")

	// ErrManagerClosed is returned by Manager methods after Close.
	ErrManagerClosed = errors.New("manager is closed")
)
