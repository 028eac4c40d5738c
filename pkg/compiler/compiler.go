// Package compiler turns form definitions into draft-07 JSON Schema documents.
package compiler

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/schema"
)

const (
	titleSuffix = " Form Data"

	// TelPattern is the accepted shape of a phone number.
	TelPattern = `^[+]?[0-9\s\-\(\)]+$`

	ExtFieldType         = "x-field-type"
	ExtValidationMessage = "x-validation-message"
	ExtConditional       = "x-conditional"
)

// Compiler compiles forms with a fixed set of options. The zero value is
// ready to use.
type Compiler struct {
	opts Options
}

func New(fns ...Option) Compiler {
	return Compiler{opts: NewOptions(fns...)}
}

func (c Compiler) Options() Options {
	return c.opts
}

// Compile is shorthand for New(fns...).Compile(form).
func Compile(form formdef.FormDefinition, fns ...Option) (*schema.Document, error) {
	return New(fns...).Compile(form)
}

// Compile builds the submission schema for form. Output is deterministic:
// compiling the same definition twice encodes to identical bytes.
func (c Compiler) Compile(form formdef.FormDefinition) (*schema.Document, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}

	doc := schema.NewDocument(form.Title + titleSuffix)
	if c.opts.DeclareDraft {
		doc.Schema = schema.Draft07
	}

	for _, field := range c.Fields(form) {
		prop, err := c.property(form, field)
		if err != nil {
			return nil, err
		}
		if field.Required {
			doc.Required = append(doc.Required, field.Name)
		}
		doc.Properties.Set(field.Name, prop)
	}

	if err := doc.Check(); err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return doc, nil
}

// Fields returns the fields that become schema properties, in property
// order. Layout fields are never included.
func (c Compiler) Fields(form formdef.FormDefinition) []formdef.FieldSpec {
	var candidates []formdef.FieldSpec
	switch {
	case len(form.Steps) == 0:
		candidates = form.Fields
	case c.opts.StepOrder:
		candidates = fieldsInStepOrder(form)
	default:
		candidates = fieldsReferencedBySteps(form)
	}

	out := make([]formdef.FieldSpec, 0, len(candidates))
	for _, field := range candidates {
		if field.Type.IsLayout() {
			continue
		}
		out = append(out, field)
	}
	return out
}

func fieldsReferencedBySteps(form formdef.FormDefinition) []formdef.FieldSpec {
	referenced := map[string]struct{}{}
	for _, step := range form.Steps {
		for _, id := range step.Fields {
			referenced[id] = struct{}{}
		}
	}
	var out []formdef.FieldSpec
	for _, field := range form.Fields {
		if _, ok := referenced[field.ID]; ok {
			out = append(out, field)
		}
	}
	return out
}

func fieldsInStepOrder(form formdef.FormDefinition) []formdef.FieldSpec {
	steps := append([]formdef.StepSpec(nil), form.Steps...)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})

	seen := map[string]struct{}{}
	var out []formdef.FieldSpec
	for _, step := range steps {
		for _, id := range step.Fields {
			if _, dup := seen[id]; dup {
				continue
			}
			field, ok := form.FieldByID(id)
			if !ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, field)
		}
	}
	return out
}

func (c Compiler) property(form formdef.FormDefinition, field formdef.FieldSpec) (*schema.Property, error) {
	prop := PropertyFor(field)
	if c.opts.FieldTypeAnnotation {
		if err := prop.Set(ExtFieldType, string(field.Type)); err != nil {
			return nil, err
		}
	}
	if err := applyRules(form, field, prop); err != nil {
		return nil, err
	}
	if len(field.Conditional) > 0 {
		if err := prop.Set(ExtConditional, field.Conditional); err != nil {
			return nil, err
		}
	}
	return prop, nil
}

// PropertyFor maps a single field to its schema fragment using only the
// field itself. Unknown types fall back to a plain string.
func PropertyFor(field formdef.FieldSpec) *schema.Property {
	prop := &schema.Property{
		Type:        "string",
		Title:       field.Label,
		Description: field.HelpText,
		Default:     field.DefaultValue,
	}

	switch field.Type {
	case formdef.FieldEmail:
		prop.Format = "email"
	case formdef.FieldURL:
		prop.Format = "uri"
	case formdef.FieldTel:
		prop.Format = "tel"
	case formdef.FieldNumber, formdef.FieldRange:
		prop.Type = "number"
	case formdef.FieldDate:
		prop.Format = "date"
	case formdef.FieldDatetime, formdef.FieldDatetimeLocal:
		prop.Format = "date-time"
	case formdef.FieldTime:
		prop.Format = "time"
	case formdef.FieldCheckbox:
		prop.Type = "boolean"
	case formdef.FieldSelect, formdef.FieldRadio:
		prop.Enum = enumOf(field)
	case formdef.FieldMultiselect:
		prop.Type = "array"
		prop.Items = &schema.Property{Type: "string", Enum: enumOf(field)}
	case formdef.FieldFile, formdef.FieldImage:
		prop.Format = "binary"
	}
	return prop
}

func enumOf(field formdef.FieldSpec) []any {
	values := field.OptionValues()
	if len(values) == 0 {
		return nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
