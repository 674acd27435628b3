package postgres

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

const tableExperiments = "experiments"

var experimentColumns = []string{
	"id::text", "name", "description", "metric", "variants", "traffic_percentage",
	"status", "start_date", "end_date", "winner_variant", "created_at", "updated_at",
}

type ExperimentRepository struct {
	db DBTX
}

func NewExperimentRepository(db DBTX) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return errors.Wrap(err, "failed to encode variants")
	}

	query, args, err := queryBuilder().
		Insert(tableExperiments).
		Columns("id", "name", "description", "metric", "variants", "traffic_percentage",
			"status", "start_date", "end_date", "winner_variant", "created_at", "updated_at").
		Values(
			experiment.ID,
			experiment.Name,
			experiment.Description,
			experiment.Metric,
			variants,
			experiment.TrafficPercentage,
			string(experiment.Status),
			experiment.StartDate,
			experiment.EndDate,
			experiment.WinnerVariant,
			experiment.CreatedAt,
			experiment.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build insert")
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
		}
		return storeError(err, "failed to create experiment")
	}
	return nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

func (r *ExperimentRepository) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	return r.getOne(ctx, squirrel.Eq{"name": name})
}

func (r *ExperimentRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Experiment, error) {
	query, args, err := queryBuilder().
		Select(experimentColumns...).
		From(tableExperiments).
		Where(where).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build select")
	}

	exp, err := scanExperiment(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "failed to get experiment")
	}
	return exp, nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]*domain.Experiment, error) {
	query, args, err := queryBuilder().
		Select(experimentColumns...).
		From(tableExperiments).
		OrderBy("created_at DESC", "name").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build select")
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError(err, "failed to list experiments")
	}
	defer rows.Close()

	var out []*domain.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, storeError(err, "failed to scan experiment")
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err, "failed to list experiments")
	}
	return out, nil
}

func (r *ExperimentRepository) Update(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return errors.Wrap(err, "failed to encode variants")
	}

	query, args, err := queryBuilder().
		Update(tableExperiments).
		Set("name", experiment.Name).
		Set("description", experiment.Description).
		Set("metric", experiment.Metric).
		Set("variants", variants).
		Set("traffic_percentage", experiment.TrafficPercentage).
		Set("updated_at", experiment.UpdatedAt).
		Where(squirrel.Eq{"id": experiment.ID, "status": string(domain.StatusDraft)}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build update")
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
		}
		return storeError(err, "failed to update experiment")
	}
	if tag.RowsAffected() == 0 {
		return r.guardFailure(ctx, experiment.ID, domain.StatusDraft)
	}
	return nil
}

func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id string, from domain.Status, update domain.StatusUpdate) error {
	query, args, err := queryBuilder().
		Update(tableExperiments).
		Set("status", string(update.Status)).
		Set("start_date", update.StartDate).
		Set("end_date", update.EndDate).
		Set("winner_variant", update.WinnerVariant).
		Set("updated_at", update.UpdatedAt).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build update")
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return storeError(err, "failed to update experiment status")
	}
	if tag.RowsAffected() == 0 {
		return r.guardFailure(ctx, id, from)
	}
	return nil
}

// guardFailure explains a status-guarded write that touched no row.
func (r *ExperimentRepository) guardFailure(ctx context.Context, id string, expected domain.Status) error {
	query, args, err := queryBuilder().
		Select("status").
		From(tableExperiments).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "failed to build select")
	}

	var status string
	if err := r.db.QueryRow(ctx, query, args...).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(domain.ErrExperimentNotFound, "%s", id)
		}
		return storeError(err, "failed to read experiment status")
	}
	return domain.StatusChanged(id, expected, domain.Status(status))
}

func scanExperiment(row pgx.Row) (*domain.Experiment, error) {
	var (
		exp      domain.Experiment
		variants []byte
		status   string
	)

	if err := row.Scan(
		&exp.ID,
		&exp.Name,
		&exp.Description,
		&exp.Metric,
		&variants,
		&exp.TrafficPercentage,
		&status,
		&exp.StartDate,
		&exp.EndDate,
		&exp.WinnerVariant,
		&exp.CreatedAt,
		&exp.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(variants, &exp.Variants); err != nil {
		return nil, errors.Wrapf(err, "failed to decode variants of experiment %s", exp.ID)
	}
	exp.Status = domain.Status(status)
	exp.CreatedAt = exp.CreatedAt.UTC()
	exp.UpdatedAt = exp.UpdatedAt.UTC()

	return &exp, nil
}
