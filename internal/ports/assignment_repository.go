package ports

import (
	"context"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

// AssignmentRepository stores at most one assignment per experiment and subject.
type AssignmentRepository interface {
	// Find returns (nil, nil) when the subject has no assignment.
	Find(ctx context.Context, experimentID string, subject domain.Subject) (*domain.Assignment, error)

	// InsertIfAbsent stores the assignment unless one already exists for the
	// same experiment and subject, and returns the row that is stored.
	// Concurrent calls for the same subject all observe the same row.
	InsertIfAbsent(ctx context.Context, assignment *domain.Assignment) (*domain.Assignment, error)

	// UpdateConversion overwrites the conversion fields. It reports whether
	// an assignment existed.
	UpdateConversion(ctx context.Context, experimentID string, subject domain.Subject, conversion domain.Conversion) (bool, error)

	ListByExperiment(ctx context.Context, experimentID string) ([]domain.Assignment, error)
}
