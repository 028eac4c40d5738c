package formdef

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy
)

// Sanitize returns a copy of the definition with markup removed from every
// human-facing string. Names, ids and values are left untouched.
func Sanitize(form FormDefinition) FormDefinition {
	out := form
	out.Title = sanitizeText(form.Title)
	out.Description = sanitizeText(form.Description)

	if form.Fields != nil {
		out.Fields = make([]FieldSpec, len(form.Fields))
		for i, field := range form.Fields {
			field.Label = sanitizeText(field.Label)
			field.HelpText = sanitizeText(field.HelpText)
			field.Placeholder = sanitizeText(field.Placeholder)
			if field.Options != nil {
				opts := make([]Option, len(field.Options))
				for j, opt := range field.Options {
					opts[j] = Option{Value: opt.Value, Label: sanitizeText(opt.Label)}
				}
				field.Options = opts
			}
			out.Fields[i] = field
		}
	}

	if form.Steps != nil {
		out.Steps = make([]StepSpec, len(form.Steps))
		for i, step := range form.Steps {
			step.Title = sanitizeText(step.Title)
			step.Fields = append([]string(nil), step.Fields...)
			out.Steps[i] = step
		}
	}
	return out
}

func sanitizeText(raw string) string {
	if raw == "" || !strings.ContainsAny(raw, "<>&") {
		return raw
	}
	// decode every entity layer first so encoded markup reaches the policy
	decoded := raw
	for range maxEntityLayers {
		next := html.UnescapeString(decoded)
		if next == decoded {
			break
		}
		decoded = next
	}
	cleaned := textSanitizer().Sanitize(decoded)
	return strings.TrimSpace(plainTextEntities.Replace(cleaned))
}

const maxEntityLayers = 4

// plainTextEntities undoes only the escaping the strict policy applies to
// ordinary text. Angle brackets stay encoded.
var plainTextEntities = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`, "&quot;", `"`)

func textSanitizer() *bluemonday.Policy {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return textPolicy
}
