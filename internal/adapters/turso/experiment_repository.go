package turso

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/util"
)

const experimentColumns = `id, name, description, metric, variants, traffic_percentage,
	status, start_date, end_date, winner_variant, created_at, updated_at`

type ExperimentRepository struct {
	db *sql.DB
}

func NewExperimentRepository(db *sql.DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

func (r *ExperimentRepository) Create(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return errors.Wrap(err, "failed to encode variants")
	}

	_, err = WithRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			INSERT INTO experiments (`+experimentColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			experiment.ID,
			experiment.Name,
			util.NullStringPtr(experiment.Description),
			util.NullStringPtr(experiment.Metric),
			string(variants),
			experiment.TrafficPercentage,
			string(experiment.Status),
			util.NullTime(experiment.StartDate),
			util.NullTime(experiment.EndDate),
			util.NullStringPtr(experiment.WinnerVariant),
			util.FormatTime(experiment.CreatedAt),
			util.FormatTime(experiment.UpdatedAt),
		)
	})
	if isUniqueViolation(err) {
		return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
	}
	if err != nil {
		return storeError(err, "failed to create experiment")
	}
	return nil
}

func (r *ExperimentRepository) GetByID(ctx context.Context, id string) (*domain.Experiment, error) {
	return r.getOne(ctx, `SELECT `+experimentColumns+` FROM experiments WHERE id = ?`, id)
}

func (r *ExperimentRepository) GetByName(ctx context.Context, name string) (*domain.Experiment, error) {
	return r.getOne(ctx, `SELECT `+experimentColumns+` FROM experiments WHERE name = ?`, name)
}

func (r *ExperimentRepository) getOne(ctx context.Context, query string, arg string) (*domain.Experiment, error) {
	exp, err := WithRetry(ctx, func() (*domain.Experiment, error) {
		return scanExperiment(r.db.QueryRowContext(ctx, query, arg))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError(err, "failed to get experiment")
	}
	return exp, nil
}

func (r *ExperimentRepository) List(ctx context.Context) ([]*domain.Experiment, error) {
	experiments, err := WithRetry(ctx, func() ([]*domain.Experiment, error) {
		rows, err := r.db.QueryContext(ctx, `SELECT `+experimentColumns+` FROM experiments ORDER BY created_at DESC, name`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []*domain.Experiment
		for rows.Next() {
			exp, err := scanExperiment(rows)
			if err != nil {
				return nil, err
			}
			out = append(out, exp)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, storeError(err, "failed to list experiments")
	}
	return experiments, nil
}

func (r *ExperimentRepository) Update(ctx context.Context, experiment *domain.Experiment) error {
	variants, err := json.Marshal(experiment.Variants)
	if err != nil {
		return errors.Wrap(err, "failed to encode variants")
	}

	res, err := WithRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			UPDATE experiments
			SET name = ?, description = ?, metric = ?, variants = ?, traffic_percentage = ?, updated_at = ?
			WHERE id = ? AND status = 'draft'`,
			experiment.Name,
			util.NullStringPtr(experiment.Description),
			util.NullStringPtr(experiment.Metric),
			string(variants),
			experiment.TrafficPercentage,
			util.FormatTime(experiment.UpdatedAt),
			experiment.ID,
		)
	})
	if isUniqueViolation(err) {
		return errors.Wrapf(domain.ErrDuplicateName, "%q", experiment.Name)
	}
	if err != nil {
		return storeError(err, "failed to update experiment")
	}
	return r.expectOneRow(ctx, res, experiment.ID, domain.StatusDraft)
}

func (r *ExperimentRepository) UpdateStatus(ctx context.Context, id string, from domain.Status, update domain.StatusUpdate) error {
	res, err := WithRetry(ctx, func() (sql.Result, error) {
		return r.db.ExecContext(ctx, `
			UPDATE experiments
			SET status = ?, start_date = ?, end_date = ?, winner_variant = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(update.Status),
			util.NullTime(update.StartDate),
			util.NullTime(update.EndDate),
			util.NullStringPtr(update.WinnerVariant),
			util.FormatTime(update.UpdatedAt),
			id,
			string(from),
		)
	})
	if err != nil {
		return storeError(err, "failed to update experiment status")
	}
	return r.expectOneRow(ctx, res, id, from)
}

// expectOneRow tells a missing experiment apart from one whose status moved
// away from expected when a guarded write touched no row.
func (r *ExperimentRepository) expectOneRow(ctx context.Context, res sql.Result, id string, expected domain.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeError(err, "failed to read affected rows")
	}
	if n > 0 {
		return nil
	}

	status, err := WithRetry(ctx, func() (string, error) {
		var s string
		err := r.db.QueryRowContext(ctx, `SELECT status FROM experiments WHERE id = ?`, id).Scan(&s)
		return s, err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Wrapf(domain.ErrExperimentNotFound, "%s", id)
	}
	if err != nil {
		return storeError(err, "failed to read experiment status")
	}
	return domain.StatusChanged(id, expected, domain.Status(status))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row rowScanner) (*domain.Experiment, error) {
	var (
		exp                                    domain.Experiment
		description, metric, winner            sql.NullString
		startDate, endDate                     sql.NullString
		variants, status, createdAt, updatedAt string
	)

	if err := row.Scan(
		&exp.ID,
		&exp.Name,
		&description,
		&metric,
		&variants,
		&exp.TrafficPercentage,
		&status,
		&startDate,
		&endDate,
		&winner,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(variants), &exp.Variants); err != nil {
		return nil, errors.Wrapf(err, "failed to decode variants of experiment %s", exp.ID)
	}

	exp.Description = util.NullStringToPtr(description)
	exp.Metric = util.NullStringToPtr(metric)
	exp.WinnerVariant = util.NullStringToPtr(winner)
	exp.Status = domain.Status(status)
	exp.StartDate = util.NullTimeToPtr(startDate)
	exp.EndDate = util.NullTimeToPtr(endDate)
	exp.CreatedAt = util.ParseTime(createdAt)
	exp.UpdatedAt = util.ParseTime(updatedAt)

	return &exp, nil
}
