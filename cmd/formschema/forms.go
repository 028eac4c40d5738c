package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/loader"
)

// loadForm resolves a path or http(s) URL into a validated form definition.
func (e *app) loadForm(ctx context.Context, ref string) (formdef.FormDefinition, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return formdef.FormDefinition{}, errors.New("-form is required")
	}

	var src loader.Source
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		var err error
		if src, err = loader.SourceFromURL(ref); err != nil {
			return formdef.FormDefinition{}, err
		}
	} else {
		src = loader.SourceFromFile(ref)
	}

	form, err := e.loader().Load(ctx, src)
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	if err := form.Validate(); err != nil {
		return formdef.FormDefinition{}, err
	}
	return form, nil
}

// readPayload reads a JSON object from path, or stdin when path is "-".
func (e *app) readPayload(path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return nil, errors.New("-data is required")
	case "-":
		data, err = io.ReadAll(e.stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	var payload map[string]any
	if len(strings.TrimSpace(string(data))) == 0 {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

// emit writes data to path, or stdout when path is empty.
func (e *app) emit(path string, data []byte) error {
	if path == "" {
		if _, err := e.stdout.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			_, err := io.WriteString(e.stdout, "\n")
			return err
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err := fmt.Fprintf(e.stderr, "written to %s\n", path)
	return err
}

func (e *app) emitJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return e.emit(path, data)
}
