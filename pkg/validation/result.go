package validation

import "time"

// Error codes reported in FieldError.Code besides the engine keywords.
const (
	CodeSchemaError = "schema_error"
	CodeRequired    = "required"
	CodeType        = "type"
	CodeFormat      = "format"
	CodeEnum        = "enum"
	CodeMinLength   = "minLength"
	CodeMaxLength   = "maxLength"
	CodeMinimum     = "minimum"
	CodeMaximum     = "maximum"
	CodePattern     = "pattern"

	// RootField names document-level failures.
	RootField = "root"

	MessageValid       = "Validation successful"
	MessageInvalid     = "Validation failed"
	MessageSchemaError = "Schema validation error"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Result is the outcome of validating one payload against one form.
type Result struct {
	Valid     bool         `json:"valid"`
	Errors    []FieldError `json:"errors"`
	Timestamp string       `json:"timestamp"`
	Message   string       `json:"message"`
}

// FieldError describes one violation in terms of the form's fields.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ErrorsFor returns the errors reported for a field path.
func (r Result) ErrorsFor(field string) []FieldError {
	var out []FieldError
	for _, e := range r.Errors {
		if e.Field == field {
			out = append(out, e)
		}
	}
	return out
}

// Codes lists the error codes in order, handy for assertions and logs.
func (r Result) Codes() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Code)
	}
	return out
}

func stamp(now time.Time) string {
	return now.UTC().Format(timestampLayout)
}

func validResult(now time.Time) Result {
	return Result{Valid: true, Errors: []FieldError{}, Timestamp: stamp(now), Message: MessageValid}
}

func invalidResult(now time.Time, errs []FieldError) Result {
	return Result{Valid: false, Errors: errs, Timestamp: stamp(now), Message: MessageInvalid}
}

func schemaErrorResult(now time.Time, err error, payload any) Result {
	return Result{
		Valid: false,
		Errors: []FieldError{{
			Field:   RootField,
			Code:    CodeSchemaError,
			Message: MessageSchemaError + ": " + err.Error(),
			Value:   payload,
		}},
		Timestamp: stamp(now),
		Message:   MessageSchemaError,
	}
}
