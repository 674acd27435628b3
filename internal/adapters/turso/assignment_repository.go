package turso

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/util"
)

const assignmentColumns = `experiment_id, subject_kind, subject_key, variant_id,
	assigned_at, converted, converted_at, conversion_value`

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) Find(ctx context.Context, experimentID string, subject domain.Subject) (*domain.Assignment, error) {
	a, err := WithRetry(ctx, func() (*domain.Assignment, error) {
		return scanAssignment(r.db.QueryRowContext(ctx, `
			SELECT `+assignmentColumns+`
			FROM assignments
			WHERE experiment_id = ? AND subject_kind = ? AND subject_key = ?`,
			experimentID, string(subject.Kind), subject.Key,
		))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "failed to find assignment")
	}
	return a, nil
}

// InsertIfAbsent relies on the primary key to keep the first writer's row.
// The row is re-read afterwards so every caller returns the stored variant.
func (r *AssignmentRepository) InsertIfAbsent(ctx context.Context, assignment *domain.Assignment) (*domain.Assignment, error) {
	_, err := WithRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			INSERT INTO assignments (experiment_id, subject_kind, subject_key, variant_id, assigned_at, converted)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (experiment_id, subject_kind, subject_key) DO NOTHING`,
			assignment.ExperimentID,
			string(assignment.Subject.Kind),
			assignment.Subject.Key,
			assignment.VariantID,
			util.FormatTime(assignment.AssignedAt),
			util.BoolToInt64(assignment.Converted),
		)
	})
	if err != nil {
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
	res, err := WithRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			UPDATE assignments
			SET converted = 1, converted_at = ?, conversion_value = ?
			WHERE experiment_id = ? AND subject_kind = ? AND subject_key = ?`,
			util.FormatTime(conversion.ConvertedAt),
			util.NullFloat64(conversion.Value),
			experimentID, string(subject.Kind), subject.Key,
		)
	})
	if err != nil {
		return false, storeError(err, "failed to record conversion")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func (r *AssignmentRepository) ListByExperiment(ctx context.Context, experimentID string) ([]domain.Assignment, error) {
	assignments, err := WithRetry(ctx, func() ([]domain.Assignment, error) {
		rows, err := r.db.QueryContext(ctx, `
			SELECT `+assignmentColumns+`
			FROM assignments
			WHERE experiment_id = ?
			ORDER BY assigned_at, subject_key`, experimentID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []domain.Assignment
		for rows.Next() {
			a, err := scanAssignment(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, *a)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, storeError(err, "failed to list assignments")
	}
	return assignments, nil
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var (
		a                domain.Assignment
		kind, assignedAt string
		converted        int64
		convertedAt      sql.NullString
		conversionValue  sql.NullFloat64
	)

	if err := row.Scan(
		&a.ExperimentID,
		&kind,
		&a.Subject.Key,
		&a.VariantID,
		&assignedAt,
		&converted,
		&convertedAt,
		&conversionValue,
	); err != nil {
		return nil, err
	}

	a.Subject.Kind = domain.SubjectKind(kind)
	a.Subject.Persisted = true
	a.AssignedAt = util.ParseTime(assignedAt)
	a.Converted = converted == 1
	a.ConvertedAt = util.NullTimeToPtr(convertedAt)
	a.ConversionValue = util.NullFloat64ToPtr(conversionValue)

	return &a, nil
}
