package respool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yuku/respool/internal/store"
	"go.uber.org/zap"
)

// Pool hands out records of one group to concurrent callers. Exclusive
// ownership of an acquired record is guaranteed by the store's conditional
// update alone, so any number of Pool values in any number of processes can
// share the same group.
type Pool struct {
	repo     *repository
	conf     Config
	log      *zap.Logger
	refiller *Refiller

	// stop cancels the refiller goroutine started by New.
	stop      context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	// onClose lets a Manager forget the pool.
	onClose func()
}

// New returns a Pool over s. Unless conf.NoStartRefiller is set or refills
// are disabled, a Refiller runs in the background until ctx is done or the
// pool is closed.
func New(ctx context.Context, s Store, conf Config) (*Pool, error) {
	if s == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	conf = conf.withDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pool configuration: %w", err)
	}

	p := &Pool{
		repo: &repository{store: s, group: conf.GroupKey},
		conf: conf,
		log:  conf.Logger.With(zap.String("group", conf.GroupKey)),
	}
	p.refiller = newRefiller(p)

	if conf.RefillMode == RefillBackground && !conf.NoStartRefiller {
		ctx, cancel := context.WithCancel(ctx)
		p.stop = cancel
		p.done = make(chan struct{})
		go func() {
			defer close(p.done)
			_ = p.refiller.Run(ctx)
		}()
	}
	return p, nil
}

// Close stops the background Refiller. It does not touch the store.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		if p.stop != nil {
			p.stop()
			<-p.done
		}
		if p.onClose != nil {
			p.onClose()
		}
	})
}

// GroupKey returns the key shared by every record of the pool.
func (p *Pool) GroupKey() string {
	return p.conf.GroupKey
}

// MinimumAvailable returns the number of available records a refill
// restores.
func (p *Pool) MinimumAvailable() int {
	return p.conf.MinimumAvailable
}

// Buffer returns the number of extra records a refill creates.
func (p *Pool) Buffer() int {
	return p.conf.Buffer
}

// Refiller returns the pool's in-process Refiller.
func (p *Pool) Refiller() *Refiller {
	return p.refiller
}

// AddResource inserts r into the pool. The group key is always replaced by
// the pool's; an empty ID, Status or CreatedAt is filled in with a random
// UUID, StatusAvailable and the current time.
func (p *Pool) AddResource(ctx context.Context, r Record) (*Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	if !r.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", r.Status)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	inserted, err := p.repo.insert(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to add resource %s: %w", r.ID, err)
	}
	return &inserted, nil
}

// DeleteResource removes the record. Deleting a missing record succeeds.
func (p *Pool) DeleteResource(ctx context.Context, id string) error {
	if err := p.repo.delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete resource %s: %w", id, err)
	}
	return nil
}

// GetResource returns the record, or nil if it does not exist.
func (p *Pool) GetResource(ctx context.Context, id string) (*Record, error) {
	r, err := p.repo.get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	return &r, nil
}

// ListAll returns every record of the pool in no particular order.
func (p *Pool) ListAll(ctx context.Context) ([]Record, error) {
	records, err := p.repo.listAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return records, nil
}

// ListAvailable returns the available records in no particular order. The
// result may already be stale: another caller can acquire a listed record
// at any time.
func (p *Pool) ListAvailable(ctx context.Context) ([]Record, error) {
	records, err := p.repo.listByStatus(ctx, StatusAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to list available resources: %w", err)
	}
	return records, nil
}

// Stats counts the records of a pool per status.
type Stats struct {
	Total        int
	Available    int
	InUse        int
	Provisioning int
}

// Stats counts the pool's records from a single listing.
func (p *Pool) Stats(ctx context.Context) (Stats, error) {
	records, err := p.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case StatusAvailable:
			stats.Available++
		case StatusInUse:
			stats.InUse++
		case StatusProvisioning:
			stats.Provisioning++
		}
	}
	return stats, nil
}

// TryAcquire moves the record from Available to InUse. It returns the
// updated record when the caller now owns it, and nil when the record does
// not exist, is not available, or another caller won the race for it. Of
// any number of concurrent calls for the same record at most one succeeds.
//
// A successful acquisition also triggers a refill check according to the
// pool's RefillMode.
func (p *Pool) TryAcquire(ctx context.Context, id string) (*Record, error) {
	r, err := p.repo.get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			acquireTotal.WithLabelValues(p.conf.GroupKey, resultNotFound).Inc()
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resource %s: %w", id, err)
	}
	if r.Status != StatusAvailable {
		acquireTotal.WithLabelValues(p.conf.GroupKey, resultNotAvailable).Inc()
		return nil, nil
	}

	expected := r.Version
	r.Status = StatusInUse
	acquired, err := p.repo.conditionalUpdate(ctx, r, expected)
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) || errors.Is(err, store.ErrNotFound) {
			acquireTotal.WithLabelValues(p.conf.GroupKey, resultLostRace).Inc()
			p.log.Debug("lost race for resource", zap.String("id", id))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to acquire resource %s: %w", id, err)
	}

	acquireTotal.WithLabelValues(p.conf.GroupKey, resultAcquired).Inc()
	p.log.Debug("acquired resource", zap.String("id", id))
	p.afterAcquire(ctx)
	return &acquired, nil
}

func (p *Pool) afterAcquire(ctx context.Context) {
	switch p.conf.RefillMode {
	case RefillInline:
		// The record already belongs to the caller, so a failed refill
		// must not turn the acquisition into an error.
		if _, err := p.RefillPool(ctx); err != nil {
			p.log.Warn("refill after acquisition failed", zap.Error(err))
		}
	case RefillBackground:
		p.refiller.Signal()
		if p.conf.Signaler != nil {
			if err := p.conf.Signaler.Signal(ctx); err != nil {
				p.log.Warn("failed to signal low water", zap.Error(err))
			}
		}
	}
}
