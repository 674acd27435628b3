package experiment

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

// Create validates def and stores it as a draft experiment.
func (e *Engine) Create(ctx context.Context, def domain.ExperimentDefinition) (*domain.Experiment, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	exp := domain.NewExperiment(e.newID(), def, e.clock.Now())
	if err := e.experiments.Create(ctx, exp); err != nil {
		return nil, err
	}

	e.log(ctx).InfoContext(ctx, "experiment created", "experiment", exp.Name, "id", exp.ID)
	return exp, nil
}

// Update replaces the definition of a draft experiment.
func (e *Engine) Update(ctx context.Context, id string, def domain.ExperimentDefinition) (*domain.Experiment, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	exp, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := exp.Redefine(def, e.clock.Now()); err != nil {
		return nil, err
	}
	if err := e.experiments.Update(ctx, exp); err != nil {
		return nil, err
	}

	e.log(ctx).InfoContext(ctx, "experiment updated", "experiment", exp.Name, "id", exp.ID)
	return exp, nil
}

func (e *Engine) Start(ctx context.Context, id string) (*domain.Experiment, error) {
	return e.transition(ctx, id, func(exp *domain.Experiment) (domain.StatusUpdate, error) {
		return exp.Start(e.clock.Now())
	})
}

func (e *Engine) Pause(ctx context.Context, id string) (*domain.Experiment, error) {
	return e.transition(ctx, id, func(exp *domain.Experiment) (domain.StatusUpdate, error) {
		return exp.Pause(e.clock.Now())
	})
}

// Stop completes the experiment. winner, when set, must be a declared variant.
func (e *Engine) Stop(ctx context.Context, id string, winner *string) (*domain.Experiment, error) {
	return e.transition(ctx, id, func(exp *domain.Experiment) (domain.StatusUpdate, error) {
		return exp.Stop(e.clock.Now(), winner)
	})
}

func (e *Engine) transition(ctx context.Context, id string, apply func(*domain.Experiment) (domain.StatusUpdate, error)) (*domain.Experiment, error) {
	exp, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := exp.Status
	update, err := apply(exp)
	if err != nil {
		return nil, err
	}
	if err := e.experiments.UpdateStatus(ctx, exp.ID, from, update); err != nil {
		return nil, err
	}

	e.log(ctx).InfoContext(ctx, "experiment status changed",
		"experiment", exp.Name, "from", from, "to", exp.Status)
	return exp, nil
}

// Get returns the experiment with the given id or an error matching
// domain.ErrNotFound.
func (e *Engine) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	exp, err := e.experiments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, errors.Wrapf(domain.ErrExperimentNotFound, "id %s", id)
	}
	return exp, nil
}

func (e *Engine) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	exp, err := e.experiments.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, errors.Wrapf(domain.ErrExperimentNotFound, "name %q", name)
	}
	return exp, nil
}

func (e *Engine) List(ctx context.Context) ([]*domain.Experiment, error) {
	return e.experiments.List(ctx)
}
