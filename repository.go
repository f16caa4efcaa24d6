package respool

import (
	"context"

	"github.com/yuku/respool/internal/store"
)

// repository scopes every store call to one group.
type repository struct {
	store store.Store
	group string
}

func (r *repository) listAll(ctx context.Context) ([]Record, error) {
	return r.store.List(ctx, r.group, nil)
}

func (r *repository) listByStatus(ctx context.Context, status Status) ([]Record, error) {
	return r.store.List(ctx, r.group, &status)
}

func (r *repository) get(ctx context.Context, id string) (Record, error) {
	return r.store.Get(ctx, r.group, id)
}

func (r *repository) insert(ctx context.Context, rec Record) (Record, error) {
	rec.GroupKey = r.group
	return r.store.Insert(ctx, rec)
}

func (r *repository) conditionalUpdate(ctx context.Context, rec Record, expected uint64) (Record, error) {
	rec.GroupKey = r.group
	return r.store.ConditionalUpdate(ctx, rec, expected)
}

func (r *repository) delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.group, id)
}
