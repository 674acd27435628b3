// Package experiment is the A/B testing engine: sticky variant allocation,
// conversion recording, significance analysis and the experiment lifecycle.
// The engine keeps no state of its own; uniqueness of assignments is
// enforced by the assignment store.
package experiment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/emiliopalmerini/splitr/internal/adapters/clock"
	"github.com/emiliopalmerini/splitr/internal/adapters/otel"
	"github.com/emiliopalmerini/splitr/internal/logging"
	"github.com/emiliopalmerini/splitr/internal/ports"
)

type Engine struct {
	experiments ports.ExperimentRepository
	assignments ports.AssignmentRepository
	clock       ports.Clock
	rng         ports.RandomSource
	metrics     ports.MetricsRecorder
	logger      *slog.Logger
	newID       func() string
}

type Option func(*Engine)

func WithClock(c ports.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRandom injects the source of allocation draws.
func WithRandom(r ports.RandomSource) Option {
	return func(e *Engine) { e.rng = r }
}

func WithMetrics(m ports.MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger pins a logger. Without it the logger is taken from the
// request context.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(experiments ports.ExperimentRepository, assignments ports.AssignmentRepository, opts ...Option) *Engine {
	e := &Engine{
		experiments: experiments,
		assignments: assignments,
		clock:       clock.System{},
		rng:         clock.NewRandom(0),
		metrics:     otel.NewNoOpExporter(),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return logging.FromContext(ctx)
}
