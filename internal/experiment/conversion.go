package experiment

import (
	"context"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

// RecordConversion marks the subject's assignment as converted with an
// optional value, overwriting any earlier conversion. Unknown experiments,
// completed experiments and subjects without an assignment are ignored.
func (e *Engine) RecordConversion(ctx context.Context, experimentName string, subject domain.Subject, value *float64) error {
	logger := e.log(ctx).With("experiment", experimentName, "subject", subject.String())

	exp, err := e.experiments.GetByName(ctx, experimentName)
	if err != nil {
		return err
	}
	if exp == nil {
		logger.DebugContext(ctx, "conversion ignored: unknown experiment")
		return nil
	}
	if exp.Status == domain.StatusCompleted {
		logger.DebugContext(ctx, "conversion ignored: experiment completed")
		return nil
	}
	if !subject.Persisted {
		logger.DebugContext(ctx, "conversion ignored: subject not persisted")
		return nil
	}

	assignment, err := e.assignments.Find(ctx, exp.ID, subject)
	if err != nil {
		return err
	}
	if assignment == nil {
		logger.DebugContext(ctx, "conversion ignored: subject not assigned")
		return nil
	}

	ok, err := e.assignments.UpdateConversion(ctx, exp.ID, subject, domain.Conversion{
		ConvertedAt: e.clock.Now(),
		Value:       value,
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	e.metrics.RecordConversion(ctx, experimentName, assignment.VariantID, value)
	return nil
}
