package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Draft07 is the meta-schema URI compiled documents conform to.
const Draft07 = "http://json-schema.org/draft-07/schema#"

// Document is the object schema describing a valid submission payload.
type Document struct {
	Schema               string      `json:"$schema,omitempty"`
	Type                 string      `json:"type"`
	Title                string      `json:"title"`
	Description          string      `json:"description,omitempty"`
	Properties           *Properties `json:"properties"`
	Required             []string    `json:"required"`
	AdditionalProperties bool        `json:"additionalProperties"`
}

// NewDocument returns an empty object schema with the given title.
func NewDocument(title string) *Document {
	return &Document{
		Type:       "object",
		Title:      title,
		Properties: NewProperties(),
		Required:   []string{},
	}
}

// Check verifies that every required name is backed by a property.
func (d *Document) Check() error {
	if d == nil {
		return errors.New("schema: document is nil")
	}
	var errs []error
	for _, name := range d.Required {
		if _, ok := d.Properties.Get(name); !ok {
			errs = append(errs, fmt.Errorf("schema: required property %q is not defined", name))
		}
	}
	return errors.Join(errs...)
}

// Raw returns the JSON encoding of the document.
func (d *Document) Raw() ([]byte, error) {
	if d == nil {
		return nil, errors.New("schema: document is nil")
	}
	return json.Marshal(d)
}

// IsRequired reports whether name appears in the required list.
func (d *Document) IsRequired(name string) bool {
	if d == nil {
		return false
	}
	for _, req := range d.Required {
		if req == name {
			return true
		}
	}
	return false
}
