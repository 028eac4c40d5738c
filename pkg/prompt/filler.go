// Package prompt fills a form interactively in the terminal, validating each
// answer against the field's compiled schema before moving on.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/validation"
	"github.com/goliatone/go-formschema/pkg/visibility"
)

// SkipOption is offered first on optional single-choice fields.
const SkipOption = "(skip)"

// Filler walks a form's fields and collects a submission payload.
type Filler struct {
	driver       PromptDriver
	validator    *validation.Validator
	compilerOpts []compiler.Option
	maxAttempts  int
	logger       *zap.Logger
}

// New builds a Filler using the survey driver unless one is supplied.
func New(opts ...Option) *Filler {
	f := &Filler{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.driver == nil {
		f.driver = NewSurveyDriver(nil)
	}
	if f.validator == nil {
		f.validator = validation.New(nil, validation.WithCompilerOptions(f.compilerOpts...))
	}
	f.logger = f.logger.With(zap.String("component", "Filler"))
	return f
}

// Fill asks one question per data field and returns the accepted answers
// keyed by field name. Optional fields left blank are omitted.
func (f *Filler) Fill(ctx context.Context, form formdef.FormDefinition) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("prompt: context is required")
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	values := make(map[string]any)
	skipped := make(map[string]bool)
	for _, field := range compiler.New(f.compilerOpts...).Fields(form) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logic, err := visibility.Parse(field.Conditional)
		if err != nil {
			return nil, fmt.Errorf("prompt: field %q: %w", field.Name, err)
		}
		state := visibility.Evaluate(logic, field.Required, visibility.Context{Values: values})
		if !state.Visible {
			skipped[field.Name] = true
			f.logger.Debug("field hidden by conditions", zap.String("field", field.Name))
			continue
		}
		field.Required = state.Required

		if field.Type == formdef.FieldHidden {
			if field.DefaultValue != nil {
				values[field.Name] = field.DefaultValue
			}
			continue
		}

		value, present, err := f.askField(ctx, field, form.ValidationRules)
		if err != nil {
			return nil, err
		}
		if present {
			values[field.Name] = value
		}
		f.logger.Debug("field answered", zap.String("field", field.Name), zap.Bool("present", present))
	}

	res := f.validator.Validate(withoutFields(form, skipped), values)
	if !res.Valid {
		return values, fmt.Errorf("%w: %s", ErrInvalidSubmission, strings.Join(res.Codes(), ", "))
	}
	return values, nil
}

// withoutFields drops the named fields so conditionally hidden questions do
// not fail the final check.
func withoutFields(form formdef.FormDefinition, names map[string]bool) formdef.FormDefinition {
	if len(names) == 0 {
		return form
	}
	kept := make([]formdef.FieldSpec, 0, len(form.Fields))
	dropped := map[string]bool{}
	for _, field := range form.Fields {
		if names[field.Name] && !field.Type.IsLayout() {
			dropped[field.ID] = true
			continue
		}
		kept = append(kept, field)
	}
	form.Fields = kept

	steps := make([]formdef.StepSpec, len(form.Steps))
	for i, step := range form.Steps {
		step.Fields = slices.DeleteFunc(slices.Clone(step.Fields), func(id string) bool { return dropped[id] })
		steps[i] = step
	}
	form.Steps = steps
	return form
}

func (f *Filler) askField(ctx context.Context, field formdef.FieldSpec, rules []formdef.ValidationRule) (any, bool, error) {
	attempts := 0
	for {
		value, present, err := f.answer(ctx, field, rules)
		if err != nil {
			var perr parseError
			if !errors.As(err, &perr) {
				return nil, false, err
			}
			attempts++
			_ = f.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", label(field), err))
		} else if msg := f.check(field, value, present, rules); msg == "" {
			return value, present, nil
		} else {
			attempts++
			_ = f.driver.Info(ctx, fmt.Sprintf("Invalid %s: %s", label(field), msg))
		}
		if f.maxAttempts > 0 && attempts >= f.maxAttempts {
			return nil, false, fmt.Errorf("%w: %s", ErrTooManyAttempts, field.Name)
		}
	}
}

// check returns the first validation message for the answer, or "" when
// the answer is acceptable.
func (f *Filler) check(field formdef.FieldSpec, value any, present bool, rules []formdef.ValidationRule) string {
	if !present {
		value = nil
	}
	res := f.validator.ValidateField(field, value, rules...)
	if res.Valid {
		return ""
	}
	if len(res.Errors) == 0 {
		return res.Message
	}
	return res.Errors[0].Message
}

// hook adapts check to the driver's inline validator so the terminal can
// re-ask without returning.
func (f *Filler) hook(field formdef.FieldSpec, rules []formdef.ValidationRule) func(string) error {
	return func(raw string) error {
		value, present, err := parseText(field, raw)
		if err != nil {
			return err
		}
		if msg := f.check(field, value, present, rules); msg != "" {
			return errors.New(msg)
		}
		return nil
	}
}

func (f *Filler) answer(ctx context.Context, field formdef.FieldSpec, rules []formdef.ValidationRule) (any, bool, error) {
	msg, help := label(field), field.HelpText

	switch field.Type {
	case formdef.FieldCheckbox:
		def, _ := field.DefaultValue.(bool)
		ok, err := f.driver.Confirm(ctx, ConfirmConfig{Message: msg, Default: def, Help: help})
		return ok, err == nil, err

	case formdef.FieldSelect, formdef.FieldRadio:
		values, labels := optionLists(field)
		if !field.Required {
			values = append([]string{""}, values...)
			labels = append([]string{SkipOption}, labels...)
		}
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      msg,
			Options:      labels,
			DefaultIndex: indexOf(values, defaultString(field)),
			Help:         help,
		})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(values) {
			return nil, false, parseError{msg: "selection out of range"}
		}
		if values[idx] == "" && !field.Required {
			return nil, false, nil
		}
		return values[idx], true, nil

	case formdef.FieldMultiselect:
		values, labels := optionLists(field)
		indices, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:  msg,
			Options:  labels,
			Defaults: defaultIndices(values, field.DefaultValue),
			Help:     help,
		})
		if err != nil {
			return nil, false, err
		}
		if len(indices) == 0 && !field.Required {
			return nil, false, nil
		}
		picked := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx < 0 || idx >= len(values) {
				return nil, false, parseError{msg: "selection out of range"}
			}
			picked = append(picked, values[idx])
		}
		return picked, true, nil

	case formdef.FieldTextarea:
		raw, err := f.driver.TextArea(ctx, TextAreaConfig{Message: msg, Default: defaultString(field), Help: help})
		if err != nil {
			return nil, false, err
		}
		return parseText(field, raw)

	case formdef.FieldPassword:
		raw, err := f.driver.Password(ctx, InputConfig{Message: msg, Help: help, Validator: f.hook(field, rules)})
		if err != nil {
			return nil, false, err
		}
		return parseText(field, raw)

	default:
		raw, err := f.driver.Input(ctx, InputConfig{
			Message:   msg,
			Default:   defaultString(field),
			Help:      help,
			Validator: f.hook(field, rules),
		})
		if err != nil {
			return nil, false, err
		}
		return parseText(field, raw)
	}
}

type parseError struct{ msg string }

func (e parseError) Error() string { return e.msg }

// parseText converts a typed answer into the value the schema expects.
// Blank answers are reported as absent.
func parseText(field formdef.FieldSpec, raw string) (any, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false, nil
	}
	switch field.Type {
	case formdef.FieldNumber, formdef.FieldRange:
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, false, parseError{msg: fmt.Sprintf("%q is not a number", trimmed)}
		}
		return n, true, nil
	case formdef.FieldTextarea, formdef.FieldPassword:
		return raw, true, nil
	default:
		return trimmed, true, nil
	}
}

func label(field formdef.FieldSpec) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func optionLists(field formdef.FieldSpec) (values, labels []string) {
	for _, opt := range field.Options {
		values = append(values, opt.Value)
		l := opt.Label
		if l == "" {
			l = opt.Value
		}
		labels = append(labels, l)
	}
	return values, labels
}

func defaultString(field formdef.FieldSpec) string {
	if field.DefaultValue == nil {
		return ""
	}
	return fmt.Sprint(field.DefaultValue)
}

func defaultIndices(values []string, def any) []int {
	list, ok := def.([]any)
	if !ok {
		return nil
	}
	var out []int
	for _, v := range list {
		if idx := indexOf(values, fmt.Sprint(v)); idx >= 0 {
			out = append(out, idx)
		}
	}
	return out
}
