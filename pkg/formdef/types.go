package formdef

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FieldType enumerates the input kinds a designer can place on a form.
type FieldType string

const (
	FieldText          FieldType = "text"
	FieldEmail         FieldType = "email"
	FieldPassword      FieldType = "password"
	FieldNumber        FieldType = "number"
	FieldTel           FieldType = "tel"
	FieldURL           FieldType = "url"
	FieldTextarea      FieldType = "textarea"
	FieldSelect        FieldType = "select"
	FieldMultiselect   FieldType = "multiselect"
	FieldRadio         FieldType = "radio"
	FieldCheckbox      FieldType = "checkbox"
	FieldDate          FieldType = "date"
	FieldDatetime      FieldType = "datetime"
	FieldDatetimeLocal FieldType = "datetime-local"
	FieldTime          FieldType = "time"
	FieldFile          FieldType = "file"
	FieldImage         FieldType = "image"
	FieldRange         FieldType = "range"
	FieldHidden        FieldType = "hidden"
	FieldSectionHeader FieldType = "section_header"
	FieldDivider       FieldType = "divider"
)

// IsLayout reports whether the type only affects presentation and never
// contributes a property to the compiled schema.
func (t FieldType) IsLayout() bool {
	return t == FieldSectionHeader || t == FieldDivider
}

// HasOptions reports whether the type draws its allowed values from Options.
func (t FieldType) HasOptions() bool {
	switch t {
	case FieldSelect, FieldRadio, FieldMultiselect:
		return true
	}
	return false
}

// RuleType identifies a reusable validation rule.
type RuleType string

const (
	RuleRequired  RuleType = "required"
	RuleMinLength RuleType = "min_length"
	RuleMaxLength RuleType = "max_length"
	RulePattern   RuleType = "pattern"
	RuleEmail     RuleType = "email"
	RuleURL       RuleType = "url"
	RuleNumeric   RuleType = "numeric"
	RuleMinValue  RuleType = "min_value"
	RuleMaxValue  RuleType = "max_value"
	RuleCustom    RuleType = "custom"
)

// FormDefinition is the designer-authored description of a dynamic form.
type FormDefinition struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title"`
	Description     string           `json:"description,omitempty"`
	Fields          []FieldSpec      `json:"fields"`
	Steps           []StepSpec       `json:"steps,omitempty"`
	ValidationRules []ValidationRule `json:"validationRules,omitempty"`
	Metadata        *Metadata        `json:"metadata,omitempty"`
}

// Metadata tracks bookkeeping timestamps for stored definitions.
type Metadata struct {
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	Version   int       `json:"version,omitempty"`
}

// FieldSpec describes one input element.
type FieldSpec struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Label        string           `json:"label"`
	Type         FieldType        `json:"type"`
	Required     bool             `json:"required,omitempty"`
	Placeholder  string           `json:"placeholder,omitempty"`
	HelpText     string           `json:"helpText,omitempty"`
	DefaultValue any              `json:"defaultValue,omitempty"`
	Options      []Option         `json:"options,omitempty"`
	Validation   *FieldValidation `json:"validation,omitempty"`
	Conditional  map[string]any   `json:"conditional,omitempty"`
}

// DisplayName returns the label used in messages, falling back to the name.
func (f FieldSpec) DisplayName() string {
	if label := strings.TrimSpace(f.Label); label != "" {
		return label
	}
	return f.Name
}

// OptionValues returns the option values in declaration order.
func (f FieldSpec) OptionValues() []string {
	if len(f.Options) == 0 {
		return nil
	}
	out := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		out = append(out, opt.Value)
	}
	return out
}

// Option is one allowed value of a select, radio or multiselect field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// UnmarshalJSON accepts either {"value","label"} objects or bare strings.
func (o *Option) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		o.Value = bare
		o.Label = bare
		return nil
	}
	var raw struct {
		Value any    `json:"value"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("formdef: option must be a string or an object: %w", err)
	}
	switch v := raw.Value.(type) {
	case nil:
		o.Value = ""
	case string:
		o.Value = v
	default:
		o.Value = fmt.Sprint(v)
	}
	o.Label = raw.Label
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

// FieldValidation links a field to catalog rules and an optional message override.
type FieldValidation struct {
	Rules         []string `json:"rules,omitempty"`
	CustomMessage string   `json:"customMessage,omitempty"`
}

// StepSpec groups fields into one page of a multi-step form.
type StepSpec struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Order  int      `json:"order,omitempty"`
	Fields []string `json:"fields"`
}

// ValidationRule is a named, reusable constraint referenced by fields.
type ValidationRule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Type       RuleType       `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Message    string         `json:"message,omitempty"`
	JSONSchema map[string]any `json:"jsonSchema,omitempty"`
}

// Matches reports whether the rule produces failures under the given engine keyword.
func (r ValidationRule) Matches(keyword string) bool {
	switch r.Type {
	case RuleRequired:
		return keyword == "required"
	case RuleMinLength:
		return keyword == "minLength"
	case RuleMaxLength:
		return keyword == "maxLength"
	case RulePattern:
		return keyword == "pattern"
	case RuleEmail, RuleURL:
		return keyword == "format"
	case RuleNumeric:
		return keyword == "type" || keyword == "pattern"
	case RuleMinValue:
		return keyword == "minimum"
	case RuleMaxValue:
		return keyword == "maximum"
	}
	return false
}

// FieldByName returns the first non-layout field with the given name.
func (f FormDefinition) FieldByName(name string) (FieldSpec, bool) {
	for _, field := range f.Fields {
		if field.Name == name && !field.Type.IsLayout() {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// FieldByID returns the field with the given id.
func (f FormDefinition) FieldByID(id string) (FieldSpec, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// Rule looks up a catalog rule by id.
func (f FormDefinition) Rule(id string) (ValidationRule, bool) {
	for _, rule := range f.ValidationRules {
		if rule.ID == id {
			return rule, true
		}
	}
	return ValidationRule{}, false
}

// FieldRules resolves the catalog rules referenced by field, skipping unknown ids.
func (f FormDefinition) FieldRules(field FieldSpec) []ValidationRule {
	if field.Validation == nil || len(field.Validation.Rules) == 0 {
		return nil
	}
	var out []ValidationRule
	for _, id := range field.Validation.Rules {
		if rule, ok := f.Rule(id); ok {
			out = append(out, rule)
		}
	}
	return out
}
