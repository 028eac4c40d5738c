package main

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/internal/logging"
	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/openapi"
	"github.com/goliatone/go-formschema/pkg/prompt"
)

func runCompile(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	formRef := fs.String("form", "", "form definition path or URL")
	output := fs.String("o", "", "output file (stdout if empty)")
	stepOrder := fs.Bool("step-order", false, "order properties by the form's steps")
	annotate := fs.Bool("annotate", false, "add x-field-type to every property")
	draft := fs.Bool("draft", false, "declare $schema draft-07")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	form, err := env.loadForm(ctx, *formRef)
	if err != nil {
		return err
	}

	opts := env.compilerOptions()
	if *stepOrder {
		opts = append(opts, compiler.WithStepOrder())
	}
	if *annotate {
		opts = append(opts, compiler.WithFieldTypeAnnotation())
	}
	if *draft {
		opts = append(opts, compiler.WithDraftDeclaration())
	}

	doc, err := compiler.Compile(form, opts...)
	if err != nil {
		return err
	}
	raw, err := doc.Raw()
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return err
	}
	env.logger.Debug("compiled form", zap.String("form", form.ID), zap.Int("properties", doc.Properties.Len()))
	return env.emit(*output, pretty.Bytes())
}

func runValidate(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	formRef := fs.String("form", "", "form definition path or URL")
	dataPath := fs.String("data", "", "submission payload (JSON file, - for stdin)")
	output := fs.String("o", "", "output file (stdout if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	form, err := env.loadForm(ctx, *formRef)
	if err != nil {
		return err
	}
	payload, err := env.readPayload(*dataPath)
	if err != nil {
		return err
	}

	res := env.validator().Validate(form, payload)
	if err := env.emitJSON(*output, res); err != nil {
		return err
	}
	if !res.Valid {
		return errFailed
	}
	return nil
}

func runOpenAPI(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	formRef := fs.String("form", "", "form definition path or URL")
	output := fs.String("o", "", "output file (stdout if empty)")
	format := fs.String("format", "json", "output format: json or yaml")
	serverURL := fs.String("server", openapi.DefaultServerURL, "server URL")
	apiVersion := fs.String("api-version", openapi.DefaultAPIVersion, "info.version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	form, err := env.loadForm(ctx, *formRef)
	if err != nil {
		return err
	}
	doc, err := openapi.Generate(form,
		openapi.WithServerURL(*serverURL),
		openapi.WithAPIVersion(*apiVersion),
		openapi.WithCompilerOptions(env.compilerOptions()...),
	)
	if err != nil {
		return err
	}
	if err := openapi.Check(ctx, doc); err != nil {
		return err
	}

	var raw []byte
	switch strings.ToLower(*format) {
	case "json":
		raw, err = openapi.MarshalJSON(doc)
	case "yaml", "yml":
		raw, err = openapi.MarshalYAML(doc)
	default:
		return fmt.Errorf("unsupported format %q", *format)
	}
	if err != nil {
		return err
	}
	return env.emit(*output, raw)
}

func runFill(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	formRef := fs.String("form", "", "form definition path or URL")
	output := fs.String("o", "", "output file (stdout if empty)")
	attempts := fs.Int("attempts", 0, "give up on a field after this many invalid answers (0 = never)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	form, err := env.loadForm(ctx, *formRef)
	if err != nil {
		return err
	}

	filler := prompt.New(
		prompt.WithPromptDriver(prompt.NewSurveyDriver(env.stderr)),
		prompt.WithValidator(env.validator()),
		prompt.WithCompilerOptions(env.compilerOptions()...),
		prompt.WithMaxAttempts(*attempts),
		prompt.WithLogger(logging.Component(env.logger, "Filler")),
	)
	values, err := filler.Fill(ctx, form)
	if err != nil {
		return err
	}
	return env.emitJSON(*output, values)
}

type violation struct {
	file    string
	message string
}

func runLint(ctx context.Context, env *app, args []string) error {
	fs := env.flags()
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: formschema lint [flags] <paths...>\n\nCheck form definitions for unknown rule references, unused rules and schemas that do not compile.\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := env.setup(); err != nil {
		return err
	}
	defer env.close()

	paths := fs.Args()
	if len(paths) == 0 {
		fs.Usage()
		return errFailed
	}

	var violations []violation
	for _, path := range paths {
		for _, msg := range env.lintForm(ctx, path) {
			violations = append(violations, violation{file: path, message: msg})
		}
	}
	if len(violations) == 0 {
		return nil
	}

	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].file == violations[j].file {
			return violations[i].message < violations[j].message
		}
		return violations[i].file < violations[j].file
	})
	for _, v := range violations {
		fmt.Fprintf(env.stderr, "%s: %s\n", v.file, v.message)
	}
	return errFailed
}

func (e *app) lintForm(ctx context.Context, path string) []string {
	form, err := e.loadForm(ctx, path)
	if err != nil {
		return []string{err.Error()}
	}
	out := lintRules(form)
	if _, err := compiler.Compile(form, e.compilerOptions()...); err != nil {
		out = append(out, "compile: "+err.Error())
		return out
	}
	doc, err := openapi.Generate(form, openapi.WithCompilerOptions(e.compilerOptions()...))
	if err == nil {
		err = openapi.Check(ctx, doc)
	}
	if err != nil {
		out = append(out, "openapi: "+err.Error())
	}
	return out
}

// lintRules reports rule references that resolve to nothing and catalog
// rules no field uses.
func lintRules(form formdef.FormDefinition) []string {
	defined := make(map[string]bool, len(form.ValidationRules))
	for _, rule := range form.ValidationRules {
		defined[rule.ID] = false
	}

	var out []string
	for _, field := range form.Fields {
		if field.Validation == nil {
			continue
		}
		for _, id := range field.Validation.Rules {
			if _, ok := defined[id]; !ok {
				out = append(out, fmt.Sprintf("field %q references unknown rule %q", field.Name, id))
				continue
			}
			defined[id] = true
		}
		if field.Type.IsLayout() && len(field.Validation.Rules) > 0 {
			out = append(out, fmt.Sprintf("layout field %q carries validation rules", field.ID))
		}
	}
	for _, rule := range form.ValidationRules {
		if !defined[rule.ID] {
			out = append(out, fmt.Sprintf("rule %q is never referenced", rule.ID))
		}
	}
	return out
}
