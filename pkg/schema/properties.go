package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Properties is an insertion-ordered property map. Encoding preserves the
// order in which names were first set so repeated compilations produce
// identical bytes.
type Properties struct {
	keys   []string
	values map[string]*Property
}

// NewProperties returns an empty ordered map.
func NewProperties() *Properties {
	return &Properties{values: map[string]*Property{}}
}

// Set stores prop under name. Re-setting an existing name replaces the value
// but keeps its original position.
func (p *Properties) Set(name string, prop *Property) {
	if p.values == nil {
		p.values = map[string]*Property{}
	}
	if _, ok := p.values[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.values[name] = prop
}

func (p *Properties) Get(name string) (*Property, bool) {
	if p == nil {
		return nil, false
	}
	prop, ok := p.values[name]
	return prop, ok
}

// Keys returns the property names in order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if p != nil {
		for i, key := range p.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(p.values[key])
			if err != nil {
				return nil, fmt.Errorf("schema: property %q: %w", key, err)
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Properties) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("schema: properties must be an object")
	}
	p.keys = nil
	p.values = map[string]*Property{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: unexpected property key %v", tok)
		}
		var prop Property
		if err := dec.Decode(&prop); err != nil {
			return fmt.Errorf("schema: property %q: %w", key, err)
		}
		p.Set(key, &prop)
	}
	_, err = dec.Token()
	return err
}
