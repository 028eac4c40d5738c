package mcpserver

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/loader"
)

// formInput is the ways a form definition can reach a tool. Exactly one of
// File, URL or Content must be set.
type formInput struct {
	File    string `json:"file,omitempty"    jsonschema:"Path to a form definition on disk (.json, .yaml or .yml)"`
	URL     string `json:"url,omitempty"     jsonschema:"URL to fetch the form definition from"`
	Content string `json:"content,omitempty" jsonschema:"Inline form definition (JSON or YAML)"`
}

func (in formInput) resolve(ctx context.Context, l *loader.Loader) (formdef.FormDefinition, error) {
	set := 0
	for _, v := range []string{in.File, in.URL, in.Content} {
		if strings.TrimSpace(v) != "" {
			set++
		}
	}
	if set != 1 {
		return formdef.FormDefinition{}, errors.New("exactly one of form.file, form.url or form.content must be set")
	}

	var (
		form formdef.FormDefinition
		err  error
	)
	switch {
	case in.Content != "":
		form, err = loader.Parse([]byte(in.Content), "")
	case in.File != "":
		form, err = l.Load(ctx, loader.SourceFromFile(in.File))
	default:
		var src loader.Source
		if src, err = loader.SourceFromURL(in.URL); err == nil {
			form, err = l.Load(ctx, src)
		}
	}
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	if err := form.Validate(); err != nil {
		return formdef.FormDefinition{}, err
	}
	return form, nil
}
