package domain

import "github.com/cockroachdb/errors"

// Base errors. Callers match them with errors.Is; specific errors wrap them.
var (
	// ErrNotFound is returned when an experiment name or id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidStateTransition is returned when a lifecycle operation is
	// attempted from an incompatible status.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrValidation is returned for malformed experiment definitions.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable marks failures of the persistence layer.
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrExperimentNotFound = errors.Wrap(ErrNotFound, "experiment not found")
	ErrNoVariants         = errors.Wrap(ErrValidation, "experiment must declare at least one variant")
	ErrZeroWeightSum      = errors.Wrap(ErrValidation, "sum of variant weights must be positive")
	ErrDuplicateName      = errors.Wrap(ErrValidation, "experiment name already exists")
)

// StoreUnavailable marks err as a persistence failure while keeping its message and cause.
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrStoreUnavailable)
}

// UnknownVariant reports a variant id that the experiment does not declare.
func UnknownVariant(variantID string) error {
	return errors.Wrapf(ErrValidation, "unknown variant %q", variantID)
}

// InvalidTransition reports a lifecycle operation that the current status does not allow.
func InvalidTransition(op string, from Status) error {
	return errors.Wrapf(ErrInvalidStateTransition, "cannot %s experiment in status %q", op, from)
}

// StatusChanged reports a write that found the experiment in another status
// than the one it was read in.
func StatusChanged(id string, expected, actual Status) error {
	return errors.Wrapf(ErrInvalidStateTransition, "experiment %s is %q, expected %q", id, actual, expected)
}
