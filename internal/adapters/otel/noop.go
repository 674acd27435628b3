package otel

import "context"

// NoOpExporter is a metrics recorder that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordAllocation(context.Context, string, string, string) {}

func (e *NoOpExporter) RecordConversion(context.Context, string, string, *float64) {}

func (e *NoOpExporter) Close(context.Context) error {
	return nil
}
