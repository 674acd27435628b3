package domain

import (
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks the struct constraints of a definition and the
// cross-field invariants the tags cannot express.
func (d ExperimentDefinition) Validate() error {
	if len(d.Variants) == 0 {
		return ErrNoVariants
	}

	if err := getValidator().Struct(d); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fe.Namespace()+" failed '"+fe.Tag()+"'")
			}
			return errors.Wrap(ErrValidation, strings.Join(msgs, "; "))
		}
		return errors.Wrap(ErrValidation, err.Error())
	}

	seen := make(map[string]struct{}, len(d.Variants))
	total := 0
	for _, v := range d.Variants {
		if _, dup := seen[v.ID]; dup {
			return errors.Wrapf(ErrValidation, "duplicate variant %q", v.ID)
		}
		seen[v.ID] = struct{}{}
		total += v.Weight
	}
	if total <= 0 {
		return ErrZeroWeightSum
	}

	return nil
}
