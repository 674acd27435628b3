package ports

import "context"

// MetricsRecorder exports engine events to an external observability system.
type MetricsRecorder interface {
	// RecordAllocation counts one allocation decision.
	RecordAllocation(ctx context.Context, experiment, variantID, reason string)
	// RecordConversion counts one conversion and its optional value.
	RecordConversion(ctx context.Context, experiment, variantID string, value *float64)
	// Close shuts down the recorder and flushes any pending metrics.
	Close(ctx context.Context) error
}
