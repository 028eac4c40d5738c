package formdef

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDefinition marks a malformed form definition.
var ErrInvalidDefinition = errors.New("formdef: invalid form definition")

// Validate checks the structural rules every definition must satisfy before
// it is compiled. All problems are reported together.
func (f FormDefinition) Validate() error {
	var errs []error
	if strings.TrimSpace(f.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if f.Fields == nil {
		errs = append(errs, errors.New("fields are required"))
	}

	names := make(map[string]int, len(f.Fields))
	ids := make(map[string]int, len(f.Fields))
	for idx, field := range f.Fields {
		if field.ID != "" {
			if prev, ok := ids[field.ID]; ok {
				errs = append(errs, fmt.Errorf("fields[%d]: id %q already used by fields[%d]", idx, field.ID, prev))
			} else {
				ids[field.ID] = idx
			}
		}
		if field.Type.IsLayout() {
			continue
		}
		name := strings.TrimSpace(field.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("fields[%d]: name is required", idx))
			continue
		}
		if prev, ok := names[name]; ok {
			errs = append(errs, fmt.Errorf("fields[%d]: name %q already used by fields[%d]", idx, name, prev))
			continue
		}
		names[name] = idx
	}

	for idx, step := range f.Steps {
		for _, ref := range step.Fields {
			if _, ok := ids[ref]; !ok && ref != "" {
				errs = append(errs, fmt.Errorf("steps[%d]: unknown field id %q", idx, ref))
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidDefinition, errors.Join(errs...))
}
