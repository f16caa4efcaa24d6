package respool

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuku/respool/internal/signal"
	"github.com/yuku/respool/internal/sqlc"
	"github.com/yuku/respool/internal/store/pgstore"
)

// Setup creates a new Manager and initializes the resource_records table in
// the database. It is safe to call from several processes at once.
func Setup(ctx context.Context, pool *pgxpool.Pool) (*Manager, error) {
	manager := &Manager{pool: pool, handler: &signal.ListenHandler{}}
	if err := setup(ctx, pool); err != nil {
		return nil, fmt.Errorf("failed to setup respool: %w", err)
	}
	return manager, nil
}

// Manager opens PostgreSQL-backed pools and relays low-water notifications
// between processes.
// It does not close the underlying database connection pool as it is expected
// to be managed by the caller.
type Manager struct {
	// pool is the underlying database connection pool.
	// It is expected to be managed by the caller.
	pool *pgxpool.Pool

	// handler routes NOTIFY payloads to the refillers of open pools.
	handler *signal.ListenHandler

	// pools holds the Pool instances opened by this manager.
	pools []*Pool

	// closed indicates whether the manager is closed.
	closed bool

	// mu protects pools and closed.
	mu sync.RWMutex
}

// Open returns a Pool for conf.GroupKey stored in PostgreSQL. In background
// refill mode every successful acquisition also NOTIFYs other processes, and
// the pool's Refiller answers notifications received by Listen.
// Only one open pool per group is allowed on a manager.
func (m *Manager) Open(ctx context.Context, conf Config) (*Pool, error) {
	if m.Closed() {
		return nil, ErrManagerClosed
	}

	group := conf.GroupKey
	if group == "" {
		group = DefaultGroupKey
	}
	if conf.RefillMode == RefillBackground && conf.Signaler == nil {
		conf.Signaler = signal.NewPublisher(m.pool, group)
	}

	p, err := New(ctx, pgstore.New(m.pool), conf)
	if err != nil {
		return nil, err
	}

	if err := m.handler.Register(p.GroupKey(), p.Refiller()); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to open pool %s: %w", p.GroupKey(), err)
	}
	p.onClose = func() { m.remove(p) }

	m.mu.Lock()
	m.pools = append(m.pools, p)
	m.mu.Unlock()

	return p, nil
}

func (m *Manager) remove(p *Pool) {
	m.handler.Unregister(p.GroupKey())

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = slices.DeleteFunc(m.pools, func(other *Pool) bool {
		return other == p
	})
}

// Listen receives low-water notifications from every process sharing the
// database and forwards them to the refillers of the pools opened by m.
// It blocks until ctx is done.
func (m *Manager) Listen(ctx context.Context) error {
	if m.Closed() {
		return ErrManagerClosed
	}

	listener := signal.NewListener(func(ctx context.Context) (*pgx.Conn, error) {
		return pgx.ConnectConfig(ctx, m.pool.Config().ConnConfig.Copy())
	}, m.handler)
	return listener.Listen(ctx)
}

// Close closes every pool opened by m.
// It does not close the underlying database connection pool as it is expected
// to be managed by the caller.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	pools := m.pools
	m.pools = nil
	m.mu.Unlock()

	// Pool.Close calls back into remove, so the lock must not be held here.
	for _, p := range pools {
		p.Close()
	}
}

// Closed returns if the manager is closed.
func (m *Manager) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// ListGroups returns the group keys that start with prefix, ordered by name.
// An empty prefix lists every group that has at least one record.
//
// Example usage:
//
//	// List all groups
//	all, err := manager.ListGroups(ctx, "")
//
//	// List groups with a specific prefix
//	testGroups, err := manager.ListGroups(ctx, "test_")
func (m *Manager) ListGroups(ctx context.Context, prefix string) ([]string, error) {
	if m.Closed() {
		return nil, ErrManagerClosed
	}

	groups, err := sqlc.New(m.pool).ListGroups(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// DeleteGroup closes the pool opened for group, if any, and deletes all of
// the group's records. It returns an error if the group has no records.
func (m *Manager) DeleteGroup(ctx context.Context, group string) error {
	if m.Closed() {
		return ErrManagerClosed
	}
	if group == "" {
		return fmt.Errorf("group cannot be empty")
	}

	m.mu.RLock()
	idx := slices.IndexFunc(m.pools, func(p *Pool) bool { return p.GroupKey() == group })
	var open *Pool
	if idx >= 0 {
		open = m.pools[idx]
	}
	m.mu.RUnlock()
	if open != nil {
		open.Close()
	}

	affected, err := sqlc.New(m.pool).DeleteGroup(ctx, group)
	if err != nil {
		return fmt.Errorf("failed to delete group %s: %w", group, err)
	}
	if affected == 0 {
		return fmt.Errorf("group %s does not exist", group)
	}
	return nil
}

// Cleanup closes m and drops the resource_records table.
func (m *Manager) Cleanup(ctx context.Context) error {
	if !m.Closed() {
		m.Close()
	}
	return Cleanup(ctx, m.pool)
}
