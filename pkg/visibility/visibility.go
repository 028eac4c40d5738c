// Package visibility evaluates a field's conditional logic against the
// answers collected so far.
package visibility

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// Rule compares one field's current value with Value. Logic joins the rule
// to the result of the rules before it and defaults to AND.
type Rule struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
	Logic    string   `json:"logic,omitempty"`
}

// Logic is the conditional block a designer attaches to a field.
type Logic struct {
	Show     []Rule `json:"show,omitempty"`
	Hide     []Rule `json:"hide,omitempty"`
	Required []Rule `json:"required,omitempty"`
	Readonly []Rule `json:"readonly,omitempty"`
}

// IsZero reports whether no rule is set.
func (l Logic) IsZero() bool {
	return len(l.Show) == 0 && len(l.Hide) == 0 && len(l.Required) == 0 && len(l.Readonly) == 0
}

// Context provides the inputs rules read. Values holds the answers keyed by
// field name; Extras lets callers inject anything else under "extras.".
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// State is the outcome of evaluating a Logic block.
type State struct {
	Visible  bool
	Required bool
	Readonly bool
}

// Parse decodes a free-form conditional object. A nil map yields an empty
// Logic.
func Parse(raw map[string]any) (Logic, error) {
	var logic Logic
	if len(raw) == 0 {
		return logic, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return logic, fmt.Errorf("visibility: encode conditional: %w", err)
	}
	if err := json.Unmarshal(data, &logic); err != nil {
		return logic, fmt.Errorf("visibility: decode conditional: %w", err)
	}
	for _, group := range [][]Rule{logic.Show, logic.Hide, logic.Required, logic.Readonly} {
		for i, rule := range group {
			if err := rule.check(); err != nil {
				return Logic{}, fmt.Errorf("visibility: rule %d: %w", i, err)
			}
		}
	}
	return logic, nil
}

func (r Rule) check() error {
	if strings.TrimSpace(r.Field) == "" {
		return fmt.Errorf("field is required")
	}
	switch r.Operator {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan,
		OpContains, OpNotContains, OpIsEmpty, OpIsNotEmpty:
	default:
		return fmt.Errorf("unsupported operator %q", r.Operator)
	}
	switch strings.ToUpper(r.Logic) {
	case "", "AND", "OR":
	default:
		return fmt.Errorf("unsupported logic %q", r.Logic)
	}
	return nil
}

// Evaluate applies logic to ctx. required seeds State.Required so static
// requirements survive. A field is visible unless its show rules fail or
// its hide rules hold.
func Evaluate(logic Logic, required bool, ctx Context) State {
	state := State{Visible: true, Required: required}
	if len(logic.Show) > 0 && !Match(logic.Show, ctx) {
		state.Visible = false
	}
	if len(logic.Hide) > 0 && Match(logic.Hide, ctx) {
		state.Visible = false
	}
	if len(logic.Required) > 0 && Match(logic.Required, ctx) {
		state.Required = true
	}
	if len(logic.Readonly) > 0 && Match(logic.Readonly, ctx) {
		state.Readonly = true
	}
	return state
}

// Match folds rules left to right. An empty list matches.
func Match(rules []Rule, ctx Context) bool {
	if len(rules) == 0 {
		return true
	}
	result := rules[0].Eval(ctx)
	for _, rule := range rules[1:] {
		if strings.EqualFold(rule.Logic, "OR") {
			result = result || rule.Eval(ctx)
		} else {
			result = result && rule.Eval(ctx)
		}
	}
	return result
}

// Eval reports whether the rule holds for ctx.
func (r Rule) Eval(ctx Context) bool {
	current, _ := lookup(ctx, r.Field)
	switch r.Operator {
	case OpEquals:
		return looseEqual(current, r.Value)
	case OpNotEquals:
		return !looseEqual(current, r.Value)
	case OpGreaterThan, OpLessThan:
		left, lok := coerceNumber(current)
		right, rok := coerceNumber(r.Value)
		if !lok || !rok {
			return false
		}
		if r.Operator == OpGreaterThan {
			return left > right
		}
		return left < right
	case OpContains:
		return contains(current, r.Value)
	case OpNotContains:
		return !contains(current, r.Value)
	case OpIsEmpty:
		return !truthy(current)
	case OpIsNotEmpty:
		return truthy(current)
	}
	return false
}
