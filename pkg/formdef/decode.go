package formdef

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names an on-disk encoding of a form definition.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath guesses the encoding from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Decode parses a form definition in the given format. YAML documents are
// converted to their JSON equivalent first so both encodings share one set
// of field tags.
func Decode(data []byte, format Format) (FormDefinition, error) {
	var form FormDefinition
	if len(bytes.TrimSpace(data)) == 0 {
		return form, fmt.Errorf("%w: empty document", ErrInvalidDefinition)
	}

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return form, fmt.Errorf("formdef: decode yaml: %w", err)
		}
		data = converted
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&form); err != nil {
		return form, fmt.Errorf("formdef: decode json: %w", err)
	}
	return form, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	normalized, err := normalizeYAML(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(normalized)
}

func normalizeYAML(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[key] = norm
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			name, ok := key.(string)
			if !ok {
				name = fmt.Sprint(key)
			}
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[name] = norm
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			norm, err := normalizeYAML(item)
			if err != nil {
				return nil, err
			}
			out[i] = norm
		}
		return out, nil
	default:
		return v, nil
	}
}
