package postgres

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

const tableAssignments = "assignments"

var assignmentColumns = []string{
	"experiment_id::text", "subject_kind", "subject_key", "variant_id",
	"assigned_at", "converted", "converted_at", "conversion_value",
}

type AssignmentRepository struct {
	db DBTX
}

func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func subjectEq(experimentID string, subject domain.Subject) squirrel.Eq {
	return squirrel.Eq{
		"experiment_id": experimentID,
		"subject_key":   subject.Key,
		"subject_kind":  string(subject.Kind),
	}
}

func (r *AssignmentRepository) Find(ctx context.Context, experimentID string, subject domain.Subject) (*domain.Assignment, error) {
	query, args, err := queryBuilder().
		Select(assignmentColumns...).
		From(tableAssignments).
		Where(subjectEq(experimentID, subject)).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build select")
	}

	a, err := scanAssignment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "failed to find assignment")
	}
	return a, nil
}

func (r *AssignmentRepository) InsertIfAbsent(ctx context.Context, assignment *domain.Assignment) (*domain.Assignment, error) {
	query, args, err := queryBuilder().
		Insert(tableAssignments).
		Columns("experiment_id", "subject_kind", "subject_key", "variant_id", "assigned_at").
		Values(
			assignment.ExperimentID,
			string(assignment.Subject.Kind),
			assignment.Subject.Key,
			assignment.VariantID,
			assignment.AssignedAt,
		).
		Suffix("ON CONFLICT (experiment_id, subject_kind, subject_key) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build insert")
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return nil, storeError(err, "failed to insert assignment")
	}

	stored, err := r.Find(ctx, assignment.ExperimentID, assignment.Subject)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, storeError(errors.New("assignment missing after insert"), "failed to insert assignment")
	}
	return stored, nil
}

func (r *AssignmentRepository) UpdateConversion(ctx context.Context, experimentID string, subject domain.Subject, conversion domain.Conversion) (bool, error) {
	query, args, err := queryBuilder().
		Update(tableAssignments).
		Set("converted", true).
		Set("converted_at", conversion.ConvertedAt).
		Set("conversion_value", conversion.Value).
		Where(subjectEq(experimentID, subject)).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "failed to build update")
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, storeError(err, "failed to record conversion")
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AssignmentRepository) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Assignment, error) {
	query, args, err := queryBuilder().
		Select(assignmentColumns...).
		From(tableAssignments).
		Where(squirrel.Eq{"experiment_id": experimentID}).
		OrderBy("assigned_at", "subject_key").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build select")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "failed to list assignments")
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, storeError(err, "failed to scan assignment")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "failed to list assignments")
	}
	return out, nil
}

func scanAssignment(row pgx.Row) (*domain.Assignment, error) {
	var (
		a    domain.Assignment
		kind string
	)

	if err := row.Scan(
		&a.ExperimentID,
		&kind,
		&a.Subject.Key,
		&a.VariantID,
		&a.AssignedAt,
		&a.Converted,
		&a.ConvertedAt,
		&a.ConversionValue,
	); err != nil {
		return nil, err
	}

	a.Subject.Kind = domain.SubjectKind(kind)
	a.Subject.Persisted = true
	a.AssignedAt = a.AssignedAt.UTC()
	return &a, nil
}
