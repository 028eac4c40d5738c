package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/internal/config"
	"github.com/goliatone/go-formschema/internal/logging"
	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/loader"
	"github.com/goliatone/go-formschema/pkg/validation"
)

var version = "dev"

// errFailed marks a command that already reported its failure and only
// needs a non-zero exit.
var errFailed = errors.New("failed")

type command struct {
	summary string
	run     func(ctx context.Context, env *app, args []string) error
}

var commands = map[string]command{
	"compile":  {"compile a form definition into JSON Schema", runCompile},
	"validate": {"validate a submission against a form", runValidate},
	"openapi":  {"generate the OpenAPI document for a form", runOpenAPI},
	"lint":     {"check form definitions for problems", runLint},
	"fill":     {"fill a form interactively and print the payload", runFill},
	"serve":    {"run the HTTP API", runServe},
	"mcp":      {"run the MCP server over stdio", runMCP},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, errFailed) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "formschema: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errFailed
	}
	name := args[0]
	if name == "-h" || name == "--help" || name == "help" {
		usage(stdout)
		return nil
	}
	if name == "version" {
		_, err := fmt.Fprintln(stdout, version)
		return err
	}
	cmd, ok := commands[name]
	if !ok {
		usage(stderr)
		return fmt.Errorf("unknown command %q", name)
	}

	env := &app{name: name, stdin: os.Stdin, stdout: stdout, stderr: stderr}
	return cmd.run(ctx, env, args[1:])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\nCommands:\n", filepath.Base(os.Args[0]))
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-9s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> -h' for command flags.\n", filepath.Base(os.Args[0]))
}

// app is the per-invocation state shared by commands.
type app struct {
	name   string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   string

	cfg    config.Config
	logger *zap.Logger
}

// flags returns a FlagSet carrying the flags every command accepts.
func (e *app) flags() *flag.FlagSet {
	fs := flag.NewFlagSet(e.name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.configPath, "config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML config file")
	fs.StringVar(&e.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return fs
}

// setup loads config and builds the logger once flags are parsed.
func (e *app) setup() error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, e.stderr)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.logger = logger
	return nil
}

func (e *app) close() {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func (e *app) compilerOptions() []compiler.Option {
	var opts []compiler.Option
	if e.cfg.Compiler.StepOrder {
		opts = append(opts, compiler.WithStepOrder())
	}
	if e.cfg.Compiler.FieldTypeAnnotation {
		opts = append(opts, compiler.WithFieldTypeAnnotation())
	}
	return opts
}

func (e *app) loader() *loader.Loader {
	var opts []loader.Option
	if e.cfg.Loader.AllowHTTP {
		opts = append(opts, loader.WithHTTPFallback(e.cfg.Loader.HTTPTimeout))
	}
	return loader.New(opts...)
}

func (e *app) validator() *validation.Validator {
	opts := []validation.Option{
		validation.WithCompilerOptions(e.compilerOptions()...),
		validation.WithLogger(logging.Component(e.logger, "Validator")),
	}
	if !e.cfg.Validation.CacheEnabled {
		opts = append(opts, validation.WithoutCache())
	}
	return validation.New(nil, opts...)
}
