// Package memory provides in-process implementations of the storage ports.
// They back the "memory" store mode and the engine tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

type ExperimentRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Experiment
	names map[string]string
}

func NewExperimentRepository() *ExperimentRepository {
	return &ExperimentRepository{
		byID:  make(map[string]*domain.Experiment),
		names: make(map[string]string),
	}
}

func (r *ExperimentRepository) Create(_ context.Context, experiment *domain.Experiment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[experiment.Name]; ok {
		return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
	}
	r.byID[experiment.ID] = cloneExperiment(experiment)
	r.names[experiment.Name] = experiment.ID
	return nil
}

func (r *ExperimentRepository) GetByID(_ context.Context, id string) (*domain.Experiment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.byID[id]; ok {
		return cloneExperiment(e), nil
	}
	return nil, nil
}

func (r *ExperimentRepository) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	r.mu.RLock()
	id, ok := r.names[name]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *ExperimentRepository) List(_ context.Context) ([]*domain.Experiment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Experiment, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, cloneExperiment(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *ExperimentRepository) Update(_ context.Context, experiment *domain.Experiment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[experiment.ID]
	if !ok {
		return errors.Wrapf(domain.ErrExperimentNotFound, "%s", experiment.ID)
	}
	if current.Status != domain.StatusDraft {
		return domain.StatusChanged(experiment.ID, domain.StatusDraft, current.Status)
	}
	if id, taken := r.names[experiment.Name]; taken && id != experiment.ID {
		return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
	}

	delete(r.names, current.Name)
	updated := cloneExperiment(current)
	updated.Name = experiment.Name
	updated.Description = experiment.Description
	updated.Metric = experiment.Metric
	updated.Variants = append([]domain.Variant(nil), experiment.Variants...)
	updated.TrafficPercentage = experiment.TrafficPercentage
	updated.UpdatedAt = experiment.UpdatedAt

	r.byID[experiment.ID] = updated
	r.names[updated.Name] = experiment.ID
	return nil
}

func (r *ExperimentRepository) UpdateStatus(_ context.Context, id string, from domain.Status, update domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return errors.Wrapf(domain.ErrExperimentNotFound, "%s", id)
	}
	if current.Status != from {
		return domain.StatusChanged(id, from, current.Status)
	}
	updated := cloneExperiment(current)
	updated.Status = update.Status
	updated.StartDate = update.StartDate
	updated.EndDate = update.EndDate
	updated.WinnerVariant = update.WinnerVariant
	updated.UpdatedAt = update.UpdatedAt
	r.byID[id] = updated
	return nil
}

func cloneExperiment(e *domain.Experiment) *domain.Experiment {
	c := *e
	c.Variants = append([]domain.Variant(nil), e.Variants...)
	return &c
}
