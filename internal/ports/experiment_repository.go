package ports

import (
	"context"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

// ExperimentRepository is the experiment registry. Lookups return
// (nil, nil) when nothing matches.
type ExperimentRepository interface {
	Create(ctx context.Context, experiment *domain.Experiment) error
	GetByID(ctx context.Context, id string) (*domain.Experiment, error)
	GetByName(ctx context.Context, name string) (*domain.Experiment, error)
	List(ctx context.Context) ([]*domain.Experiment, error)
	// Update rewrites the definition of a draft experiment. It fails with
	// domain.ErrInvalidStateTransition once the experiment left draft.
	Update(ctx context.Context, experiment *domain.Experiment) error
	// UpdateStatus applies update only while the stored status is still
	// from. Otherwise it fails with domain.ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, id string, from domain.Status, update domain.StatusUpdate) error
}
