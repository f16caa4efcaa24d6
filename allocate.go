package respool

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// errLostRace marks an attempt whose candidate was taken by someone else.
var errLostRace = errors.New("lost race for candidate")

// AllocateRandom acquires a uniformly random available record. When the
// candidate is taken by a concurrent caller it backs off and retries with a
// fresh listing, up to MaxAllocateAttempts candidates. It fails with
// ErrPoolExhausted when nothing is available and with ErrContentionTimeout
// when every attempt lost its race.
func (p *Pool) AllocateRandom(ctx context.Context) (*Record, error) {
	attempts := 0
	operation := func() (*Record, error) {
		attempts++

		available, err := p.repo.listByStatus(ctx, StatusAvailable)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to list available resources: %w", err))
		}
		if len(available) == 0 {
			return nil, backoff.Permanent(ErrPoolExhausted)
		}

		candidate := available[rand.IntN(len(available))]
		r, err := p.TryAcquire(ctx, candidate.ID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if r == nil {
			return nil, errLostRace
		}
		return r, nil
	}

	r, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(p.conf.MaxAllocateAttempts)),
		backoff.WithMaxElapsedTime(0),
	)
	allocateAttempts.WithLabelValues(p.conf.GroupKey).Observe(float64(attempts))
	if err != nil {
		if errors.Is(err, errLostRace) {
			p.log.Warn("allocation gave up under contention", zap.Int("attempt", attempts))
			return nil, fmt.Errorf("%w after %d attempts", ErrContentionTimeout, attempts)
		}
		return nil, err
	}
	return r, nil
}

func (p *Pool) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.conf.InitialBackoff
	b.MaxInterval = p.conf.MaxBackoff
	return b
}

// AllocateRandomN runs n AllocateRandom calls concurrently. It returns the
// records that were allocated, all distinct, together with the failures
// joined into one error. A zero n allocates nothing.
func (p *Pool) AllocateRandomN(ctx context.Context, n int) ([]*Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("count cannot be negative: given %d", n)
	}
	if n == 0 {
		return nil, nil
	}

	var (
		mu      sync.Mutex
		records = make([]*Record, 0, n)
		errs    []error
		wg      sync.WaitGroup
	)

	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			r, err := p.AllocateRandom(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			records = append(records, r)
		}()
	}
	wg.Wait()

	return records, errors.Join(errs...)
}
