package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

type assignmentKey struct {
	experimentID string
	kind         domain.SubjectKind
	key          string
}

func keyOf(experimentID string, subject domain.Subject) assignmentKey {
	return assignmentKey{experimentID: experimentID, kind: subject.Kind, key: subject.Key}
}

type AssignmentRepository struct {
	mu   sync.RWMutex
	rows map[assignmentKey]domain.Assignment
}

func NewAssignmentRepository() *AssignmentRepository {
	return &AssignmentRepository{rows: make(map[assignmentKey]domain.Assignment)}
}

func (r *AssignmentRepository) Find(_ context.Context, experimentID string, subject domain.Subject) (*domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.rows[keyOf(experimentID, subject)]; ok {
		return &a, nil
	}
	return nil, nil
}

func (r *AssignmentRepository) InsertIfAbsent(_ context.Context, assignment *domain.Assignment) (*domain.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(assignment.ExperimentID, assignment.Subject)
	if existing, ok := r.rows[k]; ok {
		return &existing, nil
	}

	stored := domain.Assignment{
		ExperimentID: assignment.ExperimentID,
		Subject:      assignment.Subject,
		VariantID:    assignment.VariantID,
		AssignedAt:   assignment.AssignedAt,
	}
	stored.Subject.Persisted = true
	r.rows[k] = stored
	return &stored, nil
}

func (r *AssignmentRepository) UpdateConversion(_ context.Context, experimentID string, subject domain.Subject, conversion domain.Conversion) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(experimentID, subject)
	a, ok := r.rows[k]
	if !ok {
		return false, nil
	}
	convertedAt := conversion.ConvertedAt
	a.Converted = true
	a.ConvertedAt = &convertedAt
	a.ConversionValue = nil
	if conversion.Value != nil {
		v := *conversion.Value
		a.ConversionValue = &v
	}
	r.rows[k] = a
	return true, nil
}

func (r *AssignmentRepository) ListByExperiment(_ context.Context, experimentID string) ([]domain.Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Assignment
	for k, a := range r.rows {
		if k.experimentID == experimentID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.Before(out[j].AssignedAt)
		}
		return out[i].Subject.Key < out[j].Subject.Key
	})
	return out, nil
}
