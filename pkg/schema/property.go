package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Property is the schema fragment for a single form field.
type Property struct {
	Type        string
	Title       string
	Description string
	Format      string
	Pattern     string
	Enum        []any
	Items       *Property
	Default     any
	MinLength   *int
	MaxLength   *int
	Minimum     *float64
	Maximum     *float64

	// Extensions holds every other keyword, including x- annotations.
	Extensions map[string]any
}

// Set assigns a keyword by its JSON name. Known keywords are coerced into
// their typed slot; anything else lands in Extensions.
func (p *Property) Set(key string, value any) error {
	switch key {
	case "type":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("schema: %s must be a string", key)
		}
		p.Type = s
	case "title", "description", "format", "pattern":
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("schema: %s must be a string", key)
		}
		switch key {
		case "title":
			p.Title = s
		case "description":
			p.Description = s
		case "format":
			p.Format = s
		default:
			p.Pattern = s
		}
	case "enum":
		values, ok := value.([]any)
		if !ok {
			return fmt.Errorf("schema: enum must be an array")
		}
		p.Enum = append([]any(nil), values...)
	case "default":
		p.Default = value
	case "minLength", "maxLength":
		n, err := toInt(value)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", key, err)
		}
		if key == "minLength" {
			p.MinLength = &n
		} else {
			p.MaxLength = &n
		}
	case "minimum", "maximum":
		f, err := toFloat(value)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", key, err)
		}
		if key == "minimum" {
			p.Minimum = &f
		} else {
			p.Maximum = &f
		}
	case "items":
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("schema: items: %w", err)
		}
		var items Property
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("schema: items: %w", err)
		}
		p.Items = &items
	default:
		if p.Extensions == nil {
			p.Extensions = map[string]any{}
		}
		p.Extensions[key] = value
	}
	return nil
}

// MarshalJSON writes known keywords in a fixed order followed by extensions
// sorted by name.
func (p Property) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("schema: %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
		buf.Write(raw)
		return nil
	}

	type entry struct {
		key   string
		value any
		set   bool
	}
	entries := []entry{
		{"type", p.Type, p.Type != ""},
		{"title", p.Title, p.Title != ""},
		{"description", p.Description, p.Description != ""},
		{"format", p.Format, p.Format != ""},
		{"pattern", p.Pattern, p.Pattern != ""},
		{"enum", p.Enum, len(p.Enum) > 0},
		{"items", p.Items, p.Items != nil},
		{"default", p.Default, p.Default != nil},
		{"minLength", p.MinLength, p.MinLength != nil},
		{"maxLength", p.MaxLength, p.MaxLength != nil},
		{"minimum", p.Minimum, p.Minimum != nil},
		{"maximum", p.Maximum, p.Maximum != nil},
	}
	for _, e := range entries {
		if !e.set {
			continue
		}
		if err := write(e.key, e.value); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(p.Extensions))
	for key := range p.Extensions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := write(key, p.Extensions[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Property) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*p = Property{}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := p.Set(key, raw[key]); err != nil {
			return err
		}
	}
	return nil
}

func toInt(value any) (int, error) {
	f, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected a non-negative integer, got %v", value)
	}
	return int(f), nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case json.Number:
		return v.Float64()
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, fmt.Errorf("expected a number, got %T", value)
}
