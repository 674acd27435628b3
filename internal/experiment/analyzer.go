package experiment

import (
	"context"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

// Analyze computes per-variant results of the experiment with the given id.
func (e *Engine) Analyze(ctx context.Context, experimentID string) (*domain.Analysis, error) {
	exp, err := e.Get(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	return e.analyze(ctx, exp)
}

func (e *Engine) AnalyzeByName(ctx context.Context, name string) (*domain.Analysis, error) {
	exp, err := e.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.analyze(ctx, exp)
}

func (e *Engine) analyze(ctx context.Context, exp *domain.Experiment) (*domain.Analysis, error) {
	assignments, err := e.assignments.ListByExperiment(ctx, exp.ID)
	if err != nil {
		return nil, err
	}
	analysis := domain.Analyze(exp, assignments, e.clock.Now())
	return &analysis, nil
}
