package cli

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/splitr/internal/domain"
	"github.com/emiliopalmerini/splitr/internal/experiment"
)

// parseVariant parses "id:weight". A bare id gets weight 1.
func parseVariant(s string) (domain.Variant, error) {
	id, weight, found := strings.Cut(s, ":")
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Variant{}, errors.Wrapf(domain.ErrValidation, "invalid variant %q: empty id", s)
	}
	if !found {
		return domain.Variant{ID: id, Weight: 1}, nil
	}
	w, err := strconv.Atoi(strings.TrimSpace(weight))
	if err != nil {
		return domain.Variant{}, errors.Wrapf(domain.ErrValidation, "invalid variant %q: weight must be an integer", s)
	}
	return domain.Variant{ID: id, Weight: w}, nil
}

// loadDefinition reads a YAML experiment definition. Unknown keys are rejected.
func loadDefinition(path string) (domain.ExperimentDefinition, error) {
	var def domain.ExperimentDefinition

	f, err := os.Open(path)
	if err != nil {
		return def, errors.Wrap(err, "failed to open definition")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return def, errors.Wrapf(domain.ErrValidation, "invalid definition %s: %v", path, err)
	}
	return def, nil
}

// lookup resolves ref as an experiment id, then as a name.
func lookup(ctx context.Context, engine *experiment.Engine, ref string) (*domain.Experiment, error) {
	exp, err := engine.Get(ctx, ref)
	if err == nil {
		return exp, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return engine.GetByName(ctx, ref)
}

// subjectFrom builds the subject a CLI argument refers to.
func subjectFrom(key string, anonymous bool) domain.Subject {
	if anonymous {
		return domain.SessionSubject(key)
	}
	return domain.UserSubject(key)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
