package openapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

var ErrNilDocument = errors.New("openapi: document is nil")

// MarshalJSON renders doc as indented JSON without HTML escaping.
func MarshalJSON(doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("openapi: encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalYAML renders doc as YAML.
func MarshalYAML(doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("openapi: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("openapi: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// Check round-trips doc through kin's loader, so component references are
// resolved, and validates the result against the OpenAPI 3.0 rules.
func Check(ctx context.Context, doc *openapi3.T) error {
	raw, err := MarshalJSON(doc)
	if err != nil {
		return err
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loaded, err := loader.LoadFromData(raw)
	if err != nil {
		return fmt.Errorf("openapi: load generated document: %w", err)
	}
	if err := loaded.Validate(ctx); err != nil {
		return fmt.Errorf("openapi: invalid document: %w", err)
	}
	return nil
}

// Load parses a previously rendered document, JSON or YAML.
func Load(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	return doc, nil
}
