package respool

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Signaler wakes a refiller, possibly in another process.
type Signaler interface {
	Signal(ctx context.Context) error
}

// RefillPool tops the pool up when fewer than MinimumAvailable records are
// available: it creates the deficit plus Buffer new records and returns how
// many it created. The available count is recomputed from a listing every
// time. Concurrent refills in different processes may each create records;
// the pool has no upper bound.
func (p *Pool) RefillPool(ctx context.Context) (int, error) {
	available, err := p.repo.listByStatus(ctx, StatusAvailable)
	if err != nil {
		return 0, fmt.Errorf("failed to list available resources: %w", err)
	}
	availableRecords.WithLabelValues(p.conf.GroupKey).Set(float64(len(available)))

	deficit := p.conf.MinimumAvailable - len(available)
	if deficit <= 0 {
		return 0, nil
	}

	count := deficit + p.conf.Buffer
	created := 0
	for range count {
		if _, err := p.AddResource(ctx, Record{}); err != nil {
			refillCreatedTotal.WithLabelValues(p.conf.GroupKey).Add(float64(created))
			return created, fmt.Errorf("failed to refill pool: %w", err)
		}
		created++
	}
	refillCreatedTotal.WithLabelValues(p.conf.GroupKey).Add(float64(created))

	p.log.Info("refilled pool",
		zap.Int("available", len(available)),
		zap.Int("created", created),
	)
	return created, nil
}

// Refiller replenishes a pool outside the acquisition path. Signals are
// coalesced: any number of Signal calls made while a refill is running
// cause at most one more refill.
type Refiller struct {
	pool     *Pool
	signal   chan struct{}
	interval time.Duration
}

var _ Signaler = refillerSignaler{}

func newRefiller(p *Pool) *Refiller {
	return &Refiller{
		pool:     p,
		signal:   make(chan struct{}, 1),
		interval: p.conf.RefillInterval,
	}
}

// Signal asks for a refill check. It never blocks.
func (r *Refiller) Signal() {
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Signaler adapts r to the Signaler interface.
func (r *Refiller) Signaler() Signaler {
	return refillerSignaler{r}
}

type refillerSignaler struct{ r *Refiller }

func (s refillerSignaler) Signal(context.Context) error {
	s.r.Signal()
	return nil
}

// Run checks the pool on every signal, and every RefillInterval when
// polling is enabled, until ctx is done. Refill failures are logged and
// retried on the next signal or tick.
func (r *Refiller) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.signal:
		case <-tick:
		}

		if _, err := r.pool.RefillPool(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.pool.log.Warn("background refill failed", zap.Error(err))
		}
	}
}
