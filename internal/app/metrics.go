package app

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/ports"
)

// recorders fans every engine event out to each configured backend.
type recorders []ports.MetricsRecorder

func (rs recorders) RecordAllocation(ctx context.Context, experiment, variantID, reason string) {
	for _, r := range rs {
		r.RecordAllocation(ctx, experiment, variantID, reason)
	}
}

func (rs recorders) RecordConversion(ctx context.Context, experiment, variantID string, value *float64) {
	for _, r := range rs {
		r.RecordConversion(ctx, experiment, variantID, value)
	}
}

func (rs recorders) Close(ctx context.Context) error {
	var err error
	for _, r := range rs {
		err = errors.CombineErrors(err, r.Close(ctx))
	}
	return err
}
