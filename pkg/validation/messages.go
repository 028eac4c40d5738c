package validation

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/message"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

// messageFor renders the human message for a violation. Designer-provided
// messages win: the field's customMessage first, then the message of a
// referenced rule matching the keyword, then the built-in table.
func messageFor(form formdef.FormDefinition, fieldName, label string, ek jsonschema.ErrorKind, p *message.Printer) string {
	code := keywordOf(ek)
	if field, ok := form.FieldByName(fieldName); ok {
		if field.Validation != nil && field.Validation.CustomMessage != "" {
			return field.Validation.CustomMessage
		}
		for _, rule := range form.FieldRules(field) {
			if rule.Message != "" && rule.Matches(code) {
				return rule.Message
			}
		}
	}
	return defaultMessage(label, ek, p)
}

func defaultMessage(label string, ek jsonschema.ErrorKind, p *message.Printer) string {
	switch k := ek.(type) {
	case *kind.Required:
		return label + " is required"
	case *kind.Type:
		return fmt.Sprintf("%s must be of type %s", label, strings.Join(k.Want, ", "))
	case *kind.Format:
		return fmt.Sprintf("%s must be a valid %s", label, k.Want)
	case *kind.MinLength:
		return fmt.Sprintf("%s must be at least %d characters long", label, k.Want)
	case *kind.MaxLength:
		return fmt.Sprintf("%s must not exceed %d characters", label, k.Want)
	case *kind.Minimum:
		return fmt.Sprintf("%s must be at least %s", label, ratString(k.Want))
	case *kind.Maximum:
		return fmt.Sprintf("%s must not exceed %s", label, ratString(k.Want))
	case *kind.Pattern:
		return label + " format is invalid"
	case *kind.Enum:
		values := make([]string, len(k.Want))
		for i, v := range k.Want {
			values[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s must be one of: %s", label, strings.Join(values, ", "))
	}
	if ek != nil && p != nil {
		if msg := strings.TrimSpace(ek.LocalizedString(p)); msg != "" {
			return msg
		}
	}
	return label + " is invalid"
}

// keywordOf returns the schema keyword that produced the error kind.
func keywordOf(ek jsonschema.ErrorKind) string {
	if ek == nil {
		return ""
	}
	path := ek.KeywordPath()
	if len(path) == 0 {
		return ""
	}
	return path[0]
}

func ratString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.Num().String()
	}
	f, _ := r.Float64()
	return strconv.FormatFloat(f, 'f', -1, 64)
}
