package openapi

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/schema"
	"github.com/goliatone/go-formschema/pkg/validation"
)

const (
	Version = "3.0.3"

	DefaultServerURL    = "/api"
	DefaultAPIVersion   = "1.0.0"
	serverDescription   = "API server"
	jsonMediaType       = "application/json"
	yamlMediaType       = "application/x-yaml"
	componentsSchemaRef = "#/components/schemas/"

	SchemaFormData           = "FormData"
	SchemaValidationSuccess  = "ValidationSuccess"
	SchemaValidationError    = "ValidationError"
	SchemaFieldError         = "FieldError"
	SchemaSubmissionResponse = "SubmissionResponse"

	TagValidation = "Form Validation"
	TagSubmission = "Form Submission"
	TagOpenAPI    = "OpenAPI"
)

// SubmissionStatuses lists the lifecycle states a stored submission can be in.
var SubmissionStatuses = []string{"submitted", "processing", "completed", "failed"}

// Options configures document generation.
type Options struct {
	ServerURL  string
	APIVersion string
	Compiler   []compiler.Option
}

type Option func(*Options)

func WithServerURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.ServerURL = url
		}
	}
}

// WithAPIVersion overrides info.version.
func WithAPIVersion(version string) Option {
	return func(o *Options) {
		if version != "" {
			o.APIVersion = version
		}
	}
}

func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(o *Options) {
		o.Compiler = append(o.Compiler, opts...)
	}
}

func NewOptions(fns ...Option) Options {
	opts := Options{ServerURL: DefaultServerURL, APIVersion: DefaultAPIVersion}
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	return opts
}

// Generate builds the OpenAPI document describing the validate, submit and
// _openapi endpoints of form.
func Generate(form formdef.FormDefinition, fns ...Option) (*openapi3.T, error) {
	opts := NewOptions(fns...)

	compiled, err := compiler.Compile(form, opts.Compiler...)
	if err != nil {
		return nil, fmt.Errorf("openapi: compile form: %w", err)
	}
	formData, err := FromDocument(compiled)
	if err != nil {
		return nil, err
	}
	formData.Description = "Input schema for " + form.Title

	description := form.Description
	if description == "" {
		description = "Validation API for " + form.Title
	}

	base := "/forms/" + PathID(form)
	pascal := PascalCase(form.Title)

	doc := &openapi3.T{
		OpenAPI: Version,
		Info: &openapi3.Info{
			Title:       form.Title + " API",
			Description: description,
			Version:     opts.APIVersion,
		},
		Servers: openapi3.Servers{
			{URL: opts.ServerURL, Description: serverDescription},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath(base+"/validate", &openapi3.PathItem{
				Post: validateOperation(form.Title, pascal),
			}),
			openapi3.WithPath(base+"/submit", &openapi3.PathItem{
				Post: submitOperation(form.Title, pascal),
			}),
			openapi3.WithPath(base+"/_openapi", &openapi3.PathItem{
				Get: specOperation(form.Title, pascal),
			}),
		),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				SchemaFormData:           &openapi3.SchemaRef{Value: formData},
				SchemaValidationSuccess:  &openapi3.SchemaRef{Value: validationSuccessSchema()},
				SchemaValidationError:    &openapi3.SchemaRef{Value: validationErrorSchema()},
				SchemaFieldError:         &openapi3.SchemaRef{Value: fieldErrorSchema()},
				SchemaSubmissionResponse: &openapi3.SchemaRef{Value: submissionResponseSchema()},
			},
		},
	}
	return doc, nil
}

// PathID is the path segment that identifies form in generated routes.
func PathID(form formdef.FormDefinition) string {
	if form.ID != "" {
		return form.ID
	}
	return formdef.Slug(form.Title)
}

// PascalCase joins the words of s with each word title-cased, so
// "job application form" becomes "JobApplicationForm".
func PascalCase(s string) string {
	caser := cases.Title(language.Und)
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(componentsSchemaRef+name, nil)
}

func jsonResponse(description, schemaName string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription(description).
			WithJSONSchemaRef(ref(schemaName)),
	}
}

func formDataBody() *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(ref(SchemaFormData)),
	}
}

func validateOperation(title, pascal string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = "Validate " + title + " form data"
	op.Description = "Validates form data against the schema for " + title
	op.OperationID = "validate" + pascal
	op.Tags = []string{TagValidation}
	op.RequestBody = formDataBody()
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, jsonResponse(validation.MessageValid, SchemaValidationSuccess)),
		openapi3.WithStatus(400, jsonResponse(validation.MessageInvalid, SchemaValidationError)),
	)
	return op
}

func submitOperation(title, pascal string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = "Submit " + title + " form"
	op.Description = "Submits and processes form data for " + title
	op.OperationID = "submit" + pascal
	op.Tags = []string{TagSubmission}
	op.RequestBody = formDataBody()
	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(201, jsonResponse("Form submitted successfully", SchemaSubmissionResponse)),
		openapi3.WithStatus(400, jsonResponse("Invalid form data", SchemaValidationError)),
	)
	return op
}

func specOperation(title, pascal string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = "Get OpenAPI specification for " + title
	op.Description = "Returns the OpenAPI specification for this form"
	op.OperationID = "getOpenAPISpec" + pascal
	op.Tags = []string{TagOpenAPI}

	jsonSpec := openapi3.NewObjectSchema()
	jsonSpec.Description = "OpenAPI 3.0 specification"
	yamlSpec := openapi3.NewStringSchema()
	yamlSpec.Description = "OpenAPI 3.0 specification in YAML format"

	content := openapi3.NewContent()
	content[jsonMediaType] = openapi3.NewMediaType().WithSchema(jsonSpec)
	content[yamlMediaType] = openapi3.NewMediaType().WithSchema(yamlSpec)

	op.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, &openapi3.ResponseRef{
			Value: openapi3.NewResponse().
				WithDescription("OpenAPI specification").
				WithContent(content),
		}),
	)
	return op
}

func closedObject(title string, required ...string) *openapi3.Schema {
	s := openapi3.NewObjectSchema().WithoutAdditionalProperties()
	s.Title = title
	s.Required = required
	return s
}

func timestampSchema() *openapi3.Schema {
	return openapi3.NewDateTimeSchema()
}

func validationSuccessSchema() *openapi3.Schema {
	message := openapi3.NewStringSchema()
	message.Example = validation.MessageValid

	return closedObject("Validation Success Response", "valid").
		WithProperty("valid", openapi3.NewBoolSchema().WithEnum(true)).
		WithProperty("message", message).
		WithProperty("timestamp", timestampSchema())
}

func validationErrorSchema() *openapi3.Schema {
	message := openapi3.NewStringSchema()
	message.Example = validation.MessageInvalid

	errs := openapi3.NewArraySchema()
	errs.Items = ref(SchemaFieldError)

	return closedObject("Validation Error Response", "valid", "errors").
		WithProperty("valid", openapi3.NewBoolSchema().WithEnum(false)).
		WithProperty("message", message).
		WithPropertyRef("errors", &openapi3.SchemaRef{Value: errs}).
		WithProperty("timestamp", timestampSchema())
}

// errorCodes are the FieldError.code values the validator emits.
var errorCodes = []any{
	validation.CodeRequired,
	validation.CodeType,
	validation.CodeMinLength,
	validation.CodeMaxLength,
	validation.CodePattern,
	validation.CodeFormat,
	validation.CodeMinimum,
	validation.CodeMaximum,
	validation.CodeEnum,
	"additionalProperties",
	validation.CodeSchemaError,
}

func fieldErrorSchema() *openapi3.Schema {
	field := openapi3.NewStringSchema()
	field.Description = "Field name that failed validation"
	field.Example = "email"

	code := openapi3.NewStringSchema().WithEnum(errorCodes...)
	code.Description = "Validation error code"
	code.Example = validation.CodeRequired

	message := openapi3.NewStringSchema()
	message.Description = "Human-readable error message"
	message.Example = "Email is required"

	value := &openapi3.Schema{Description: "The invalid value that was provided"}

	return closedObject("Field Validation Error", "field", "code", "message").
		WithProperty("field", field).
		WithProperty("code", code).
		WithProperty("message", message).
		WithProperty("value", value)
}

func submissionResponseSchema() *openapi3.Schema {
	id := openapi3.NewStringSchema()
	id.Description = "Unique submission ID"

	submittedAt := timestampSchema()
	submittedAt.Description = "Submission timestamp"

	statuses := make([]any, len(SubmissionStatuses))
	for i, s := range SubmissionStatuses {
		statuses[i] = s
	}
	status := openapi3.NewStringSchema().WithEnum(statuses...)
	status.Description = "Current submission status"
	status.Example = SubmissionStatuses[0]

	return closedObject("Form Submission Response", "id", "submittedAt", "status").
		WithProperty("id", id).
		WithProperty("submittedAt", submittedAt).
		WithProperty("status", status)
}

// FromDocument converts a compiled submission schema into its OpenAPI
// equivalent. x- annotations survive as schema extensions; draft-07
// keywords OpenAPI 3.0 has no slot for are dropped.
func FromDocument(doc *schema.Document) (*openapi3.Schema, error) {
	if doc == nil {
		return nil, fmt.Errorf("openapi: schema document is nil")
	}
	out := openapi3.NewObjectSchema()
	out.Title = doc.Title
	out.Description = doc.Description
	if !doc.AdditionalProperties {
		out.WithoutAdditionalProperties()
	}
	if len(doc.Required) > 0 {
		out.Required = append([]string(nil), doc.Required...)
	}
	if doc.Properties == nil {
		return out, nil
	}
	for _, name := range doc.Properties.Keys() {
		prop, _ := doc.Properties.Get(name)
		converted, err := FromProperty(prop)
		if err != nil {
			return nil, fmt.Errorf("openapi: property %q: %w", name, err)
		}
		out.WithProperty(name, converted)
	}
	return out, nil
}

// FromProperty converts one compiled field schema.
func FromProperty(p *schema.Property) (*openapi3.Schema, error) {
	if p == nil {
		return nil, fmt.Errorf("property is nil")
	}
	out := &openapi3.Schema{
		Title:       p.Title,
		Description: p.Description,
		Format:      p.Format,
		Pattern:     p.Pattern,
		Default:     p.Default,
		Min:         p.Minimum,
		Max:         p.Maximum,
	}
	if p.Type != "" {
		out.Type = &openapi3.Types{p.Type}
	}
	if len(p.Enum) > 0 {
		out.Enum = append([]any(nil), p.Enum...)
	}
	if p.MinLength != nil {
		out.MinLength = uint64(max(*p.MinLength, 0))
	}
	if p.MaxLength != nil {
		n := uint64(max(*p.MaxLength, 0))
		out.MaxLength = &n
	}
	if p.Items != nil {
		items, err := FromProperty(p.Items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		out.Items = &openapi3.SchemaRef{Value: items}
	}
	if err := applyExtensions(out, p.Extensions); err != nil {
		return nil, err
	}
	return out, nil
}

func applyExtensions(out *openapi3.Schema, ext map[string]any) error {
	keys := make([]string, 0, len(ext))
	for k := range ext {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := ext[key]
		switch {
		case strings.HasPrefix(key, "x-"):
			if out.Extensions == nil {
				out.Extensions = make(map[string]any)
			}
			out.Extensions[key] = value
		case key == "minItems":
			n, err := count(key, value)
			if err != nil {
				return err
			}
			out.MinItems = n
		case key == "maxItems":
			n, err := count(key, value)
			if err != nil {
				return err
			}
			out.MaxItems = &n
		case key == "uniqueItems":
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("uniqueItems must be a boolean")
			}
			out.UniqueItems = b
		case key == "multipleOf":
			f, ok := number(value)
			if !ok {
				return fmt.Errorf("multipleOf must be a number")
			}
			out.MultipleOf = &f
		}
	}
	return nil
}

func count(key string, value any) (uint64, error) {
	f, ok := number(value)
	if !ok || f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return uint64(f), nil
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
