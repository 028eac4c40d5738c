package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/openapi"
	"github.com/goliatone/go-formschema/pkg/validation"
)

type compileInput struct {
	Form                formInput `json:"form"                            jsonschema:"Form definition to compile"`
	StepOrder           bool      `json:"step_order,omitempty"            jsonschema:"Order properties by the form's steps instead of field order"`
	FieldTypeAnnotation bool      `json:"field_type_annotation,omitempty" jsonschema:"Annotate each property with x-field-type"`
}

type compileOutput struct {
	Title      string         `json:"title"`
	Properties []string       `json:"properties"`
	Required   []string       `json:"required"`
	Schema     map[string]any `json:"schema"`
}

func (t *Tools) handleCompile(ctx context.Context, _ *mcp.CallToolRequest, input compileInput) (*mcp.CallToolResult, compileOutput, error) {
	form, err := input.Form.resolve(ctx, t.opts.Loader)
	if err != nil {
		return errResult(err), compileOutput{}, nil
	}

	opts := append([]compiler.Option{}, t.opts.CompilerOptions...)
	if input.StepOrder {
		opts = append(opts, compiler.WithStepOrder())
	}
	if input.FieldTypeAnnotation {
		opts = append(opts, compiler.WithFieldTypeAnnotation())
	}

	doc, err := compiler.Compile(form, opts...)
	if err != nil {
		return errResult(err), compileOutput{}, nil
	}
	raw, err := doc.Raw()
	if err != nil {
		return errResult(err), compileOutput{}, nil
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return errResult(err), compileOutput{}, nil
	}

	t.logger.Debug("compiled form", zap.String("form", form.ID), zap.Int("properties", doc.Properties.Len()))
	return nil, compileOutput{
		Title:      doc.Title,
		Properties: append([]string{}, doc.Properties.Keys()...),
		Required:   append([]string{}, doc.Required...),
		Schema:     body,
	}, nil
}

type validateInput struct {
	Form formInput      `json:"form" jsonschema:"Form definition the submission targets"`
	Data map[string]any `json:"data" jsonschema:"Submission payload keyed by field name"`
}

type validateOutput struct {
	Valid     bool                    `json:"valid"`
	Message   string                  `json:"message"`
	Timestamp string                  `json:"timestamp"`
	Errors    []validation.FieldError `json:"errors"`
}

func (t *Tools) handleValidate(ctx context.Context, _ *mcp.CallToolRequest, input validateInput) (*mcp.CallToolResult, validateOutput, error) {
	form, err := input.Form.resolve(ctx, t.opts.Loader)
	if err != nil {
		return errResult(err), validateOutput{}, nil
	}

	res := t.opts.Validator.Validate(form, input.Data)
	out := validateOutput{
		Valid:     res.Valid,
		Message:   res.Message,
		Timestamp: res.Timestamp,
		Errors:    append([]validation.FieldError{}, res.Errors...),
	}
	t.logger.Debug("validated submission",
		zap.String("form", form.ID),
		zap.Bool("valid", res.Valid),
		zap.Int("errors", len(res.Errors)),
	)
	return nil, out, nil
}

type openAPIInput struct {
	Form       formInput `json:"form"                 jsonschema:"Form definition to describe"`
	Format     string    `json:"format,omitempty"     jsonschema:"Output format: json (default) or yaml"`
	ServerURL  string    `json:"server_url,omitempty" jsonschema:"Server URL for the servers block (default /api)"`
	APIVersion string    `json:"api_version,omitempty" jsonschema:"info.version of the generated document (default 1.0.0)"`
}

type openAPIOutput struct {
	Format   string   `json:"format"`
	Paths    []string `json:"paths"`
	Document string   `json:"document"`
}

func (t *Tools) handleGenerateOpenAPI(ctx context.Context, _ *mcp.CallToolRequest, input openAPIInput) (*mcp.CallToolResult, openAPIOutput, error) {
	format := strings.ToLower(strings.TrimSpace(input.Format))
	switch format {
	case "":
		format = "json"
	case "json", "yaml":
	case "yml":
		format = "yaml"
	default:
		return errResult(fmt.Errorf("unsupported format %q: use json or yaml", input.Format)), openAPIOutput{}, nil
	}

	form, err := input.Form.resolve(ctx, t.opts.Loader)
	if err != nil {
		return errResult(err), openAPIOutput{}, nil
	}

	doc, err := openapi.Generate(form,
		openapi.WithServerURL(input.ServerURL),
		openapi.WithAPIVersion(input.APIVersion),
		openapi.WithCompilerOptions(t.opts.CompilerOptions...),
	)
	if err != nil {
		return errResult(err), openAPIOutput{}, nil
	}
	if err := openapi.Check(ctx, doc); err != nil {
		return errResult(err), openAPIOutput{}, nil
	}

	var raw []byte
	if format == "yaml" {
		raw, err = openapi.MarshalYAML(doc)
	} else {
		raw, err = openapi.MarshalJSON(doc)
	}
	if err != nil {
		return errResult(err), openAPIOutput{}, nil
	}

	return nil, openAPIOutput{
		Format:   format,
		Paths:    append([]string{}, doc.Paths.InMatchingOrder()...),
		Document: string(raw),
	}, nil
}
