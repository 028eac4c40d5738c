// Package validation applies compiled form schemas to submitted payloads and
// reports violations in terms of the form's fields.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/schema"
)

// tempTitle titles the throwaway form built by ValidateField.
const tempTitle = "Temp Schema"

// Validator compiles forms on demand and validates payloads against them.
// It is safe for concurrent use.
type Validator struct {
	engine   *Engine
	compiler compiler.Compiler
	cache    *matcherCache
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Validator)

// WithCompilerOptions sets the options used to compile forms.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(v *Validator) {
		v.compiler = compiler.New(opts...)
	}
}

// WithoutCache disables matcher memoization.
func WithoutCache() Option {
	return func(v *Validator) {
		v.cache = nil
	}
}

// WithClock overrides the time source used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// New returns a Validator bound to engine. A nil engine gets the default
// configuration.
func New(engine *Engine, opts ...Option) *Validator {
	if engine == nil {
		engine = NewEngine()
	}
	v := &Validator{
		engine:   engine,
		compiler: compiler.New(),
		cache:    newMatcherCache(),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate checks data against the schema compiled from form. It never
// fails: malformed forms or payloads produce a root schema_error result.
func (v *Validator) Validate(form formdef.FormDefinition, data map[string]any) Result {
	m, err := v.matcher(form)
	if err != nil {
		v.logger.Warn("form schema could not be compiled", zap.String("form", form.ID), zap.Error(err))
		return schemaErrorResult(v.now(), err, data)
	}

	payload, err := normalizePayload(data)
	if err != nil {
		return schemaErrorResult(v.now(), err, data)
	}

	verr := m.schema.Validate(payload)
	if verr == nil {
		return validResult(v.now())
	}

	var ve *jsonschema.ValidationError
	if !errors.As(verr, &ve) {
		return schemaErrorResult(v.now(), verr, data)
	}
	return invalidResult(v.now(), v.fieldErrors(form, m.doc, ve, payload))
}

// ValidateField validates a single value against a throwaway form holding
// only field. Rules referenced by the field are resolved from rules.
func (v *Validator) ValidateField(field formdef.FieldSpec, value any, rules ...formdef.ValidationRule) Result {
	form := formdef.FormDefinition{
		Title:           tempTitle,
		Fields:          []formdef.FieldSpec{field},
		ValidationRules: rules,
	}
	data := map[string]any{}
	if value != nil {
		data[field.Name] = value
	}
	return v.Validate(form, data)
}

// Schema returns the compiled document for form, served from the cache
// when possible.
func (v *Validator) Schema(form formdef.FormDefinition) (*schema.Document, error) {
	m, err := v.matcher(form)
	if err != nil {
		return nil, err
	}
	return m.doc, nil
}

// ClearCache drops every memoized matcher.
func (v *Validator) ClearCache() {
	if v.cache != nil {
		v.cache.clear()
	}
}

// CacheLen reports the number of memoized matchers.
func (v *Validator) CacheLen() int {
	if v.cache == nil {
		return 0
	}
	return v.cache.len()
}

func (v *Validator) matcher(form formdef.FormDefinition) (*matcher, error) {
	key := form.Fingerprint()
	if v.cache != nil && key != "" {
		if m, ok := v.cache.get(key); ok {
			return m, nil
		}
	}

	doc, err := v.compiler.Compile(form)
	if err != nil {
		return nil, err
	}
	sch, err := v.engine.Compile(doc)
	if err != nil {
		return nil, err
	}
	m := &matcher{doc: doc, schema: sch}
	if v.cache != nil && key != "" {
		v.cache.put(key, m)
		v.logger.Debug("cached form matcher", zap.String("fingerprint", key))
	}
	return m, nil
}

func (v *Validator) fieldErrors(form formdef.FormDefinition, doc *schema.Document, verr *jsonschema.ValidationError, payload any) []FieldError {
	order := make(map[string]int, doc.Properties.Len())
	for i, key := range doc.Properties.Keys() {
		order[key] = i
	}

	type ranked struct {
		rank int
		err  FieldError
	}
	var out []ranked
	add := func(path []string, ek jsonschema.ErrorKind, value any) {
		field := strings.Join(path, "/")
		if field == "" {
			field = RootField
		}
		name := field
		rank := -1
		if len(path) > 0 {
			name = path[0]
			rank = len(order)
			if idx, ok := order[name]; ok {
				rank = idx
			}
		}
		label := field
		if spec, ok := form.FieldByName(name); ok && len(path) > 0 {
			label = spec.DisplayName()
		}
		out = append(out, ranked{rank: rank, err: FieldError{
			Field:   field,
			Code:    keywordOf(ek),
			Message: messageFor(form, name, label, ek, v.engine.Printer()),
			Value:   value,
		}})
	}

	for _, leaf := range leaves(verr) {
		loc := leaf.InstanceLocation
		switch k := leaf.ErrorKind.(type) {
		case *kind.Required:
			for _, missing := range k.Missing {
				add(childPath(loc, missing), k, nil)
			}
		case *kind.AdditionalProperties:
			// reported against the enclosing object; the message names the key
			for _, extra := range k.Properties {
				add(loc, &kind.AdditionalProperties{Properties: []string{extra}}, lookup(payload, childPath(loc, extra)))
			}
		default:
			add(loc, leaf.ErrorKind, lookup(payload, loc))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].rank < out[j].rank
	})
	errs := make([]FieldError, len(out))
	for i, r := range out {
		errs[i] = r.err
	}
	return errs
}

// leaves flattens the engine's error tree to the violations that carry no
// further causes.
func leaves(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if err == nil {
		return nil
	}
	if len(err.Causes) == 0 {
		switch err.ErrorKind.(type) {
		case *kind.Schema, *kind.Group:
			return nil
		}
		return []*jsonschema.ValidationError{err}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func childPath(parent []string, name string) []string {
	out := make([]string, 0, len(parent)+1)
	out = append(out, parent...)
	return append(out, name)
}

// lookup walks payload along path, returning nil when a segment is missing.
func lookup(payload any, path []string) any {
	current := payload
	for _, seg := range path {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil
			}
			current = node[idx]
		default:
			return nil
		}
	}
	return current
}

func normalizePayload(data map[string]any) (any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	out, err := roundTrip(data)
	if err != nil {
		return nil, fmt.Errorf("validation: payload is not valid JSON: %w", err)
	}
	return out, nil
}
