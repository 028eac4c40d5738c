package validation

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/schema"
)

const (
	resourceURL   = "urn:formschema:submission"
	annotationURL = "urn:formschema:annotations"
)

var telPattern = regexp.MustCompile(compiler.TelPattern)

// the zone offset is optional; a bare wall-clock time is accepted
var timePattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?(?:[zZ]|[+-](\d{2})(?::?(\d{2}))?)?$`)

// Engine is the validation-engine configuration shared by every Validator:
// the draft, custom formats and annotation keywords. It is built once and
// never mutated afterwards, so it is safe to share between goroutines.
type Engine struct {
	draft   *jsonschema.Draft
	formats []*jsonschema.Format
	vocab   *jsonschema.Vocabulary
	printer *message.Printer
}

type EngineOption func(*Engine)

// WithDraft overrides the default draft-07 dialect.
func WithDraft(draft *jsonschema.Draft) EngineOption {
	return func(e *Engine) {
		if draft != nil {
			e.draft = draft
		}
	}
}

// WithFormat registers an additional string format.
func WithFormat(name string, fn func(string) error) EngineOption {
	return func(e *Engine) {
		if name == "" || fn == nil {
			return
		}
		e.formats = append(e.formats, stringFormat(name, fn))
	}
}

// WithPrinter sets the printer used to localize engine messages.
func WithPrinter(p *message.Printer) EngineOption {
	return func(e *Engine) {
		if p != nil {
			e.printer = p
		}
	}
}

// NewEngine builds the engine configuration. It panics only if the built-in
// annotation meta-schema fails to compile, which is a programming error.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		draft: jsonschema.Draft7,
		formats: []*jsonschema.Format{
			stringFormat("tel", validateTel),
			stringFormat("time", validateTime),
		},
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	vocab, err := annotationVocabulary()
	if err != nil {
		panic(fmt.Sprintf("validation: annotation vocabulary: %v", err))
	}
	e.vocab = vocab
	return e
}

// Printer returns the printer used for engine messages.
func (e *Engine) Printer() *message.Printer {
	return e.printer
}

// Compile turns a compiled form schema into an executable matcher. Each call
// uses a fresh engine compiler seeded with this configuration.
func (e *Engine) Compile(doc *schema.Document) (*jsonschema.Schema, error) {
	raw, err := doc.Raw()
	if err != nil {
		return nil, fmt.Errorf("validation: encode schema: %w", err)
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation: decode schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	c.DefaultDraft(e.draft)
	c.AssertFormat()
	for _, f := range e.formats {
		c.RegisterFormat(f)
	}
	c.RegisterVocabulary(e.vocab)
	c.AssertVocabs()

	if err := c.AddResource(resourceURL, value); err != nil {
		return nil, fmt.Errorf("validation: add schema: %w", err)
	}
	sch, err := c.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("validation: compile schema: %w", err)
	}
	return sch, nil
}

func stringFormat(name string, fn func(string) error) *jsonschema.Format {
	return &jsonschema.Format{
		Name: name,
		Validate: func(v any) error {
			s, ok := v.(string)
			if !ok {
				return nil
			}
			return fn(s)
		},
	}
}

func validateTel(s string) error {
	if !telPattern.MatchString(s) {
		return errors.New("invalid phone number")
	}
	return nil
}

func validateTime(s string) error {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return errors.New("invalid time")
	}
	limits := []struct {
		part string
		max  int
	}{{m[1], 23}, {m[2], 59}, {m[3], 60}, {m[5], 23}, {m[6], 59}}
	for _, l := range limits {
		if l.part == "" {
			continue
		}
		n, err := strconv.Atoi(l.part)
		if err != nil || n > l.max {
			return fmt.Errorf("invalid time %q", s)
		}
	}
	return nil
}

// annotationVocabulary accepts the x- keywords the compiler emits. They only
// carry metadata for clients; their values are type-checked and otherwise
// ignored during validation.
func annotationVocabulary() (*jsonschema.Vocabulary, error) {
	meta, err := jsonschema.UnmarshalJSON(strings.NewReader(`{
		"properties": {
			"x-field-type": { "type": "string" },
			"x-validation-message": { "type": "string" },
			"x-conditional": { "type": "object" }
		}
	}`))
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(annotationURL, meta); err != nil {
		return nil, err
	}
	sch, err := c.Compile(annotationURL)
	if err != nil {
		return nil, err
	}

	return &jsonschema.Vocabulary{
		URL:    annotationURL,
		Schema: sch,
		Compile: func(_ *jsonschema.CompilerContext, _ map[string]any) (jsonschema.SchemaExt, error) {
			return nil, nil
		},
	}, nil
}
