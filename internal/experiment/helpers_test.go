package experiment_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emiliopalmerini/splitr/internal/adapters/clock"
	"github.com/emiliopalmerini/splitr/internal/adapters/memory"
	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/experiment"
	"github.com/emiliopalmerini/splitr/internal/logging"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine      *experiment.Engine
	experiments *memory.ExperimentRepository
	assignments *memory.AssignmentRepository
	clock       *clock.Fixed
}

func newFixture(t *testing.T, opts ...experiment.Option) *fixture {
	t.Helper()
	f := &fixture{
		experiments: memory.NewExperimentRepository(),
		assignments: memory.NewAssignmentRepository(),
		clock:       clock.NewFixed(epoch),
	}
	ids := 0
	base := []experiment.Option{
		experiment.WithClock(f.clock),
		experiment.WithRandom(clock.NewRandom(7)),
		experiment.WithLogger(logging.Discard()),
		experiment.WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("exp-%d", ids)
		}),
	}
	f.engine = experiment.NewEngine(f.experiments, f.assignments, append(base, opts...)...)
	return f
}

func definition(name string, traffic int, variants ...domain.Variant) domain.ExperimentDefinition {
	if len(variants) == 0 {
		variants = []domain.Variant{{ID: "control", Weight: 50}, {ID: "b", Weight: 50}}
	}
	return domain.ExperimentDefinition{Name: name, Variants: variants, TrafficPercentage: traffic}
}

// running creates and starts an experiment.
func (f *fixture) running(t *testing.T, def domain.ExperimentDefinition) *domain.Experiment {
	t.Helper()
	ctx := context.Background()
	exp, err := f.engine.Create(ctx, def)
	require.NoError(t, err)
	exp, err = f.engine.Start(ctx, exp.ID)
	require.NoError(t, err)
	return exp
}

func (f *fixture) rows(t *testing.T, experimentID string) []domain.Assignment {
	t.Helper()
	rows, err := f.assignments.ListByExperiment(context.Background(), experimentID)
	require.NoError(t, err)
	return rows
}

// fixedDraw returns the same value for every draw.
type fixedDraw float64

func (d fixedDraw) Float64() float64 { return float64(d) }
