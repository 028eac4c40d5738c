// Package mcpserver exposes form compilation, submission validation and
// OpenAPI generation as MCP tools over stdio.
package mcpserver

import (
	"context"
	"regexp"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/loader"
	"github.com/goliatone/go-formschema/pkg/validation"
)

const (
	serverName = "formschema"

	serverInstructions = `formschema MCP server: compiles form definitions into draft-07 JSON Schema, validates submissions against them and generates OpenAPI 3.0 documents.

Every tool takes the form definition through the "form" argument, either inline (content, JSON or YAML) or as a file path. URL forms are fetched only when the server was started with FORMSCHEMA_ALLOW_HTTP=true.`
)

type Options struct {
	Version         string
	Loader          *loader.Loader
	Validator       *validation.Validator
	CompilerOptions []compiler.Option
	Logger          *zap.Logger
}

type Option func(*Options)

func WithVersion(v string) Option {
	return func(o *Options) { o.Version = v }
}

func WithLoader(l *loader.Loader) Option {
	return func(o *Options) { o.Loader = l }
}

func WithValidator(v *validation.Validator) Option {
	return func(o *Options) { o.Validator = v }
}

func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(o *Options) { o.CompilerOptions = append(o.CompilerOptions, opts...) }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// Tools carries the collaborators shared by the tool handlers.
type Tools struct {
	opts   Options
	logger *zap.Logger
}

func NewTools(fns ...Option) *Tools {
	opts := Options{Version: "dev"}
	for _, fn := range fns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Loader == nil {
		opts.Loader = loader.New()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New(nil,
			validation.WithCompilerOptions(opts.CompilerOptions...),
			validation.WithLogger(opts.Logger),
		)
	}
	return &Tools{opts: opts, logger: opts.Logger.With(zap.String("component", "MCPServer"))}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(fns ...Option) *mcp.Server {
	tools := NewTools(fns...)
	server := mcp.NewServer(
		&mcp.Implementation{Name: serverName, Version: tools.opts.Version},
		&mcp.ServerOptions{Instructions: serverInstructions},
	)
	tools.Register(server)
	return server
}

// Run serves over stdio until the client disconnects or ctx is cancelled.
func Run(ctx context.Context, fns ...Option) error {
	return NewServer(fns...).Run(ctx, &mcp.StdioTransport{})
}

func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "compile_form",
		Description: "Compile a form definition into the draft-07 JSON Schema its submissions must satisfy. Layout fields (section headers, dividers) are skipped. Set step_order to order properties by the form's steps.",
	}, t.handleCompile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_submission",
		Description: "Validate a submission payload against a form definition. Returns valid, a summary message, a timestamp and one error per violation with the field path, error code and a human readable message.",
	}, t.handleValidate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_openapi",
		Description: "Generate the OpenAPI 3.0.3 document for a form's validate, submit and _openapi endpoints. format is json (default) or yaml.",
	}, t.handleGenerateOpenAPI)
}

var pathPattern = regexp.MustCompile(`(?:/(?:home|tmp|var|Users|etc|opt|usr|private|root|mnt|srv|run)[a-zA-Z0-9._/-]*)`)

// sanitizeError strips absolute paths before errors reach the client.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return pathPattern.ReplaceAllString(err.Error(), "<path>")
}

func errResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: sanitizeError(err)}},
	}
}
