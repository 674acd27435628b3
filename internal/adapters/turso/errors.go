package turso

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/emiliopalmerini/splitr/internal/domain"
)

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// storeError wraps a driver failure and marks it as a store outage.
func storeError(err error, msg string) error {
	return domain.StoreUnavailable(errors.Wrap(err, msg))
}
