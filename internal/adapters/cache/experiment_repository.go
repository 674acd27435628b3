// Package cache decorates the experiment registry with a bounded, expiring
// read cache. Allocation looks an experiment up on every call, so hot
// experiments are served from memory.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/ports"
)

const (
	DefaultSize = 256
	DefaultTTL  = 30 * time.Second
)

// ExperimentRepository caches positive lookups by id and by name. Writes
// through this repository purge the cache; writes from other processes are
// visible once entries expire.
type ExperimentRepository struct {
	inner ports.ExperimentRepository
	lru   *expirable.LRU[string, *domain.Experiment]
}

func NewExperimentRepository(inner ports.ExperimentRepository, size int, ttl time.Duration) *ExperimentRepository {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ExperimentRepository{
		inner: inner,
		lru:   expirable.NewLRU[string, *domain.Experiment](size, nil, ttl),
	}
}

func idKey(id string) string     { return "id:" + id }
func nameKey(name string) string { return "name:" + name }

func (r *ExperimentRepository) Create(ctx context.Context, experiment *domain.Experiment) error {
	defer r.lru.Purge()
	return r.inner.Create(ctx, experiment)
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	return r.get(idKey(id), func() (*domain.Experiment, error) {
		return r.inner.GetByID(ctx, id)
	})
}

func (r *ExperimentRepository) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	return r.get(nameKey(name), func() (*domain.Experiment, error) {
		return r.inner.GetByName(ctx, name)
	})
}

func (r *ExperimentRepository) get(key string, load func() (*domain.Experiment, error)) (*domain.Experiment, error) {
	if e, ok := r.lru.Get(key); ok {
		return clone(e), nil
	}

	e, err := load()
	if err != nil || e == nil {
		return e, err
	}
	r.lru.Add(idKey(e.ID), clone(e))
	r.lru.Add(nameKey(e.Name), clone(e))
	return e, nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]*domain.Experiment, error) {
	return r.inner.List(ctx)
}

func (r *ExperimentRepository) Update(ctx context.Context, experiment *domain.Experiment) error {
	defer r.lru.Purge()
	return r.inner.Update(ctx, experiment)
}

func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id string, from domain.Status, update domain.StatusUpdate) error {
	defer r.lru.Purge()
	return r.inner.UpdateStatus(ctx, id, from, update)
}

// Invalidate drops every cached entry.
func (r *ExperimentRepository) Invalidate() {
	r.lru.Purge()
}

// Len reports the number of cached entries.
func (r *ExperimentRepository) Len() int {
	return r.lru.Len()
}

func clone(e *domain.Experiment) *domain.Experiment {
	c := *e
	c.Variants = append([]domain.Variant(nil), e.Variants...)
	return &c
}
