package compiler

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// applyRules merges the catalog rules referenced by field into prop. A rule's
// raw jsonSchema goes in first, then its typed parameters, then its message.
// The field's customMessage has the last word.
func applyRules(form formdef.FormDefinition, field formdef.FieldSpec, prop *schema.Property) error {
	for _, rule := range form.FieldRules(field) {
		if err := applyRule(rule, prop); err != nil {
			return fmt.Errorf("%w: field %q rule %q: %w", formdef.ErrInvalidDefinition, field.Name, rule.ID, err)
		}
	}
	if field.Validation != nil && field.Validation.CustomMessage != "" {
		if err := prop.Set(ExtValidationMessage, field.Validation.CustomMessage); err != nil {
			return err
		}
	}
	return nil
}

func applyRule(rule formdef.ValidationRule, prop *schema.Property) error {
	keys := make([]string, 0, len(rule.JSONSchema))
	for key := range rule.JSONSchema {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := prop.Set(key, rule.JSONSchema[key]); err != nil {
			return err
		}
	}

	var keyword, param string
	switch rule.Type {
	case formdef.RuleMinLength:
		keyword, param = "minLength", "value"
	case formdef.RuleMaxLength:
		keyword, param = "maxLength", "value"
	case formdef.RulePattern:
		keyword, param = "pattern", "pattern"
	case formdef.RuleMinValue:
		keyword, param = "minimum", "value"
	case formdef.RuleMaxValue:
		keyword, param = "maximum", "value"
	}
	if keyword != "" {
		if value, ok := rule.Parameters[param]; ok && value != nil {
			if err := prop.Set(keyword, value); err != nil {
				return err
			}
		}
	}

	if rule.Message != "" {
		return prop.Set(ExtValidationMessage, rule.Message)
	}
	return nil
}
