package experiment

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

type Reason string

const (
	ReasonExisting           Reason = "existing"
	ReasonAssigned           Reason = "assigned"
	ReasonNotFound           Reason = "not_found"
	ReasonNotRunning         Reason = "not_running"
	ReasonNotAdmitted        Reason = "not_admitted"
	ReasonStoreUnavailable   Reason = "store_unavailable"
	ReasonUnpersistedSubject Reason = "unpersisted_subject"
	ReasonInvalidRequest     Reason = "invalid_request"
)

// Allocation is the variant a subject should see. Assigned is true when the
// subject is enrolled, i.e. an assignment row exists for it.
type Allocation struct {
	VariantID string `json:"variant"`
	Reason    Reason `json:"reason"`
	Assigned  bool   `json:"assigned"`
}

// Allocate returns the sticky variant for subject. It never fails: every
// problem degrades to the control variant and is reported through Reason.
func (e *Engine) Allocate(ctx context.Context, experimentName string, subject domain.Subject) Allocation {
	exp, err := e.experiments.GetByName(ctx, experimentName)
	if err != nil {
		return e.degrade(ctx, experimentName, err)
	}
	if exp == nil {
		return e.fallback(ctx, experimentName, ReasonNotFound)
	}
	if !subject.Persisted {
		return e.fallback(ctx, experimentName, ReasonUnpersistedSubject)
	}

	existing, err := e.assignments.Find(ctx, exp.ID, subject)
	if err != nil {
		return e.degrade(ctx, experimentName, err)
	}
	if existing != nil {
		return e.result(ctx, experimentName, Allocation{VariantID: existing.VariantID, Reason: ReasonExisting, Assigned: true})
	}

	if !exp.IsRunning() {
		return e.fallback(ctx, experimentName, ReasonNotRunning)
	}
	if !domain.Admit(exp.TrafficPercentage, e.rng.Float64()) {
		return e.fallback(ctx, experimentName, ReasonNotAdmitted)
	}

	proposed := domain.PickVariant(exp.Variants, e.rng.Float64())
	stored, err := e.assignments.InsertIfAbsent(ctx, &domain.Assignment{
		ExperimentID: exp.ID,
		Subject:      subject,
		VariantID:    proposed,
		AssignedAt:   e.clock.Now(),
	})
	if err != nil {
		return e.degrade(ctx, experimentName, err)
	}

	reason := ReasonAssigned
	if stored.VariantID != proposed {
		// Lost the race against a concurrent allocation of the same subject.
		reason = ReasonExisting
	}
	e.log(ctx).DebugContext(ctx, "subject assigned",
		"experiment", experimentName, "subject", subject.String(), "variant", stored.VariantID)
	return e.result(ctx, experimentName, Allocation{VariantID: stored.VariantID, Reason: reason, Assigned: true})
}

func (e *Engine) fallback(ctx context.Context, experimentName string, reason Reason) Allocation {
	return e.result(ctx, experimentName, Allocation{VariantID: domain.ControlVariantID, Reason: reason})
}

func (e *Engine) degrade(ctx context.Context, experimentName string, err error) Allocation {
	e.log(ctx).WarnContext(ctx, "allocation degraded to control",
		"experiment", experimentName, "error", err)
	return e.fallback(ctx, experimentName, ReasonStoreUnavailable)
}

func (e *Engine) result(ctx context.Context, experimentName string, a Allocation) Allocation {
	e.metrics.RecordAllocation(ctx, experimentName, a.VariantID, string(a.Reason))
	return a
}

// Assign enrolls subject in variantID without the traffic gate or weights.
// An existing assignment is kept and its variant returned.
func (e *Engine) Assign(ctx context.Context, experimentName string, subject domain.Subject, variantID string) (string, error) {
	exp, err := e.GetByName(ctx, experimentName)
	if err != nil {
		return "", err
	}
	if exp.Status == domain.StatusCompleted {
		return "", domain.InvalidTransition("assign subjects to", exp.Status)
	}
	if !exp.HasVariant(variantID) {
		return "", domain.UnknownVariant(variantID)
	}
	if !subject.Persisted {
		return "", errors.Wrap(domain.ErrValidation, "subject is not persisted")
	}

	stored, err := e.assignments.InsertIfAbsent(ctx, &domain.Assignment{
		ExperimentID: exp.ID,
		Subject:      subject,
		VariantID:    variantID,
		AssignedAt:   e.clock.Now(),
	})
	if err != nil {
		return "", err
	}

	e.log(ctx).InfoContext(ctx, "subject assigned manually",
		"experiment", experimentName, "subject", subject.String(), "variant", stored.VariantID)
	return stored.VariantID, nil
}
