// Package signal carries low-water notifications between processes over
// PostgreSQL LISTEN/NOTIFY. Publishers NOTIFY on a single channel with the
// group key as payload; a ListenHandler wakes the refiller registered for
// that group.
package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgxlisten"
)

// errEmptyPayload is reported to the listener for a NOTIFY that names no group.
var errEmptyPayload = errors.New("low-water notification without group")

// Waker is woken when its group runs low. Signal must not block.
type Waker interface {
	Signal()
}

// ListenHandler routes low-water notifications to the refillers of the
// groups open in this process. Notifications for other groups are dropped.
type ListenHandler struct {
	mu      sync.RWMutex
	wakers  map[string]Waker
	dropped int
}

var _ pgxlisten.Handler = (*ListenHandler)(nil)

// HandleNotification implements the pgxlisten.Handler interface.
func (h *ListenHandler) HandleNotification(_ context.Context, notification *pgconn.Notification, _ *pgx.Conn) error {
	group := notification.Payload
	if group == "" {
		return errEmptyPayload
	}

	h.mu.RLock()
	w, ok := h.wakers[group]
	h.mu.RUnlock()
	if !ok {
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		return nil
	}

	w.Signal()
	return nil
}

// Register routes notifications about group to w. A group can have only one
// Waker.
func (h *ListenHandler) Register(group string, w Waker) error {
	if w == nil {
		return fmt.Errorf("waker for group %s cannot be nil", group)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.wakers == nil {
		h.wakers = make(map[string]Waker)
	}
	if _, exists := h.wakers[group]; exists {
		return fmt.Errorf("group %s is already open", group)
	}
	h.wakers[group] = w
	return nil
}

// Unregister stops routing notifications about group. It reports whether a
// Waker was registered.
func (h *ListenHandler) Unregister(group string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.wakers[group]; !exists {
		return false
	}
	delete(h.wakers, group)
	return true
}

// Dropped returns how many notifications named a group with no Waker.
func (h *ListenHandler) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}
