package validation

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/testsupport"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

func newTestValidator(opts ...Option) *Validator {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(NewEngine(), opts...)
}

func emailForm() formdef.FormDefinition {
	return formdef.FormDefinition{
		Title: "Test Form",
		Fields: []formdef.FieldSpec{
			{ID: "1", Name: "email", Type: formdef.FieldEmail, Label: "Email Address", Required: true},
		},
	}
}

func jobForm(t *testing.T) formdef.FormDefinition {
	t.Helper()
	return testsupport.MustLoadForm(t, filepath.Join("testdata", "job_application.json"))
}

func validJobPayload() map[string]any {
	return map[string]any{
		"fullName":  "Ada Lovelace",
		"email":     "ada@example.com",
		"phone":     "+44 (20) 7946-0018",
		"years":     12,
		"role":      "eng",
		"languages": []string{"en", "fr"},
		"startDate": "2024-06-01",
		"remote":    true,
		"portfolio": "https://ada.example.com",
		"resume":    "JVBERi0xLjQK",
	}
}

var ignoreValue = cmpopts.IgnoreFields(FieldError{}, "Value")

func TestValidate_Success(t *testing.T) {
	v := newTestValidator()
	got := v.Validate(emailForm(), map[string]any{"email": "test@example.com"})

	want := Result{Valid: true, Errors: []FieldError{}, Timestamp: "2024-05-01T12:30:00.000Z", Message: MessageValid}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}

	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"errors":[]`) {
		t.Fatalf("expected empty errors array in %s", raw)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), map[string]any{})

	want := []FieldError{{Field: "email", Code: CodeRequired, Message: "Email Address is required"}}
	if got.Valid {
		t.Fatalf("expected invalid result")
	}
	if got.Message != MessageInvalid {
		t.Fatalf("unexpected message %q", got.Message)
	}
	if diff := cmp.Diff(want, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_InvalidFormat(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), map[string]any{"email": "not-an-email"})

	want := []FieldError{{Field: "email", Code: CodeFormat, Message: "Email Address must be a valid email", Value: "not-an-email"}}
	if diff := cmp.Diff(want, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_NilPayloadTreatedAsEmpty(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), nil)
	if diff := cmp.Diff([]string{CodeRequired}, got.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_SelectEnum(t *testing.T) {
	form := formdef.FormDefinition{
		Title: "Country",
		Fields: []formdef.FieldSpec{
			{ID: "1", Name: "country", Label: "Country", Type: formdef.FieldSelect, Options: []formdef.Option{{Value: "us"}, {Value: "ca"}}},
		},
	}
	got := newTestValidator().Validate(form, map[string]any{"country": "invalid"})

	want := []FieldError{{Field: "country", Code: CodeEnum, Message: "Country must be one of: us, ca", Value: "invalid"}}
	if diff := cmp.Diff(want, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MultiselectEnum(t *testing.T) {
	form := formdef.FormDefinition{
		Title: "Profile",
		Fields: []formdef.FieldSpec{
			{ID: "1", Name: "languages", Label: "Languages", Type: formdef.FieldMultiselect, Options: []formdef.Option{{Value: "en"}, {Value: "es"}, {Value: "fr"}}},
		},
	}
	got := newTestValidator().Validate(form, map[string]any{"languages": []any{"en", "xx"}})

	want := []FieldError{{Field: "languages/1", Code: CodeEnum, Message: "Languages must be one of: en, es, fr", Value: "xx"}}
	if diff := cmp.Diff(want, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_JobApplicationAccepted(t *testing.T) {
	got := newTestValidator().Validate(jobForm(t), validJobPayload())
	if !got.Valid {
		t.Fatalf("expected payload to be valid: %#v", got.Errors)
	}
}

func TestValidate_MessageTable(t *testing.T) {
	cases := []struct {
		name  string
		patch map[string]any
		want  FieldError
	}{
		{
			name:  "type",
			patch: map[string]any{"remote": "yes"},
			want:  FieldError{Field: "remote", Code: CodeType, Message: "Remote must be of type boolean"},
		},
		{
			name:  "tel format",
			patch: map[string]any{"phone": "call me"},
			want:  FieldError{Field: "phone", Code: CodeFormat, Message: "Phone must be a valid tel"},
		},
		{
			name:  "date format",
			patch: map[string]any{"startDate": "next week"},
			want:  FieldError{Field: "startDate", Code: CodeFormat, Message: "Start Date must be a valid date"},
		},
		{
			name:  "minimum without rule message",
			patch: map[string]any{"years": -1},
			want:  FieldError{Field: "years", Code: CodeMinimum, Message: "Years of Experience must be at least 0"},
		},
		{
			name:  "maximum with rule message",
			patch: map[string]any{"years": 51},
			want:  FieldError{Field: "years", Code: CodeMaximum, Message: "Be honest"},
		},
		{
			name:  "minLength with rule message",
			patch: map[string]any{"fullName": "A"},
			want:  FieldError{Field: "fullName", Code: CodeMinLength, Message: "Name is too short"},
		},
		{
			name:  "custom message wins",
			patch: map[string]any{"portfolio": "not a url"},
			want:  FieldError{Field: "portfolio", Code: CodeFormat, Message: "Portfolio must be a link"},
		},
	}

	v := newTestValidator()
	form := jobForm(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := validJobPayload()
			for k, val := range tc.patch {
				payload[k] = val
			}
			got := v.Validate(form, payload)
			if diff := cmp.Diff([]FieldError{tc.want}, got.Errors, ignoreValue); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_LengthAndPatternRules(t *testing.T) {
	form := formdef.FormDefinition{
		Title: "Codes",
		Fields: []formdef.FieldSpec{
			{ID: "1", Name: "code", Label: "Code", Type: formdef.FieldText, Validation: &formdef.FieldValidation{Rules: []string{"max", "upper"}}},
			{ID: "2", Name: "ratio", Label: "Ratio", Type: formdef.FieldRange, Validation: &formdef.FieldValidation{Rules: []string{"ratio"}}},
		},
		ValidationRules: []formdef.ValidationRule{
			{ID: "max", Type: formdef.RuleMaxLength, Parameters: map[string]any{"value": 4}},
			{ID: "upper", Type: formdef.RulePattern, Parameters: map[string]any{"pattern": "^[A-Z]+$"}},
			{ID: "ratio", Type: formdef.RuleMaxValue, Parameters: map[string]any{"value": 0.75}},
		},
	}
	v := newTestValidator()

	got := v.Validate(form, map[string]any{"code": "TOOLONG"})
	if diff := cmp.Diff([]FieldError{{Field: "code", Code: CodeMaxLength, Message: "Code must not exceed 4 characters"}}, got.Errors, ignoreValue); diff != "" {
		t.Fatalf("maxLength mismatch (-want +got):\n%s", diff)
	}

	got = v.Validate(form, map[string]any{"code": "ab"})
	if diff := cmp.Diff([]FieldError{{Field: "code", Code: CodePattern, Message: "Code format is invalid"}}, got.Errors, ignoreValue); diff != "" {
		t.Fatalf("pattern mismatch (-want +got):\n%s", diff)
	}

	got = v.Validate(form, map[string]any{"ratio": 0.9})
	if diff := cmp.Diff([]FieldError{{Field: "ratio", Code: CodeMaximum, Message: "Ratio must not exceed 0.75"}}, got.Errors, ignoreValue); diff != "" {
		t.Fatalf("maximum mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_AdditionalProperties(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), map[string]any{"email": "a@b.co", "extra": 1})
	if len(got.Errors) != 1 {
		t.Fatalf("expected one error, got %#v", got.Errors)
	}
	e := got.Errors[0]
	if e.Field != RootField || e.Code != "additionalProperties" {
		t.Fatalf("unexpected error %#v", e)
	}
	if !strings.Contains(e.Message, "extra") {
		t.Fatalf("expected engine message to name the property, got %q", e.Message)
	}
	if e.Value == nil {
		t.Fatalf("expected the extra value to be reported")
	}
}

func TestValidate_AdditionalPropertiesOnePerKey(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), map[string]any{"email": "a@b.co", "x": true, "y": "z"})
	if len(got.Errors) != 2 {
		t.Fatalf("expected one error per extra key, got %#v", got.Errors)
	}
	var messages []string
	for _, e := range got.Errors {
		if e.Field != RootField || e.Code != "additionalProperties" {
			t.Fatalf("unexpected error %#v", e)
		}
		messages = append(messages, e.Message)
	}
	joined := strings.Join(messages, " | ")
	if !strings.Contains(joined, "'x'") || !strings.Contains(joined, "'y'") {
		t.Fatalf("messages must name each key, got %q", joined)
	}
}

func TestValidate_ErrorsFollowPropertyOrder(t *testing.T) {
	payload := validJobPayload()
	delete(payload, "role")
	delete(payload, "fullName")
	payload["remote"] = "no"
	payload["email"] = "nope"

	got := newTestValidator().Validate(jobForm(t), payload)
	fields := make([]string, 0, len(got.Errors))
	for _, e := range got.Errors {
		fields = append(fields, e.Field)
	}
	if diff := cmp.Diff([]string{"fullName", "email", "role", "remote"}, fields); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MalformedForm(t *testing.T) {
	form := formdef.FormDefinition{Fields: []formdef.FieldSpec{{ID: "1", Name: "a"}}}
	data := map[string]any{"a": "x"}
	got := newTestValidator().Validate(form, data)

	if got.Valid || len(got.Errors) != 1 {
		t.Fatalf("expected a single schema error, got %#v", got)
	}
	e := got.Errors[0]
	if e.Field != RootField || e.Code != CodeSchemaError {
		t.Fatalf("unexpected error %#v", e)
	}
	if !strings.HasPrefix(e.Message, "Schema validation error: ") {
		t.Fatalf("unexpected message %q", e.Message)
	}
	if got.Message != MessageSchemaError {
		t.Fatalf("unexpected result message %q", got.Message)
	}
}

func TestValidate_UnencodablePayload(t *testing.T) {
	got := newTestValidator().Validate(emailForm(), map[string]any{"email": make(chan int)})
	if got.Valid || got.Errors[0].Code != CodeSchemaError {
		t.Fatalf("expected schema error, got %#v", got)
	}
}

func TestValidateField(t *testing.T) {
	field := formdef.FieldSpec{ID: "1", Name: "age", Label: "Age", Type: formdef.FieldNumber, Required: true, Validation: &formdef.FieldValidation{Rules: []string{"adult"}}}
	rules := []formdef.ValidationRule{{ID: "adult", Type: formdef.RuleMinValue, Parameters: map[string]any{"value": 18}, Message: "Must be an adult"}}
	v := newTestValidator()

	if got := v.ValidateField(field, 30, rules...); !got.Valid {
		t.Fatalf("expected valid, got %#v", got.Errors)
	}
	got := v.ValidateField(field, 12, rules...)
	if diff := cmp.Diff([]FieldError{{Field: "age", Code: CodeMinimum, Message: "Must be an adult", Value: json.Number("12")}}, got.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	got = v.ValidateField(field, nil, rules...)
	if diff := cmp.Diff([]string{CodeRequired}, got.Codes()); diff != "" {
		t.Fatalf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_CachesByFingerprint(t *testing.T) {
	v := newTestValidator()
	form := emailForm()

	v.Validate(form, map[string]any{"email": "a@b.co"})
	v.Validate(form, map[string]any{"email": "c@d.co"})
	if v.CacheLen() != 1 {
		t.Fatalf("expected one cached matcher, got %d", v.CacheLen())
	}

	form.Fields[0].Label = "Mail"
	v.Validate(form, map[string]any{})
	if v.CacheLen() != 2 {
		t.Fatalf("expected a second matcher after the form changed, got %d", v.CacheLen())
	}

	v.ClearCache()
	if v.CacheLen() != 0 {
		t.Fatalf("expected empty cache")
	}

	uncached := newTestValidator(WithoutCache())
	uncached.Validate(form, map[string]any{})
	if uncached.CacheLen() != 0 {
		t.Fatalf("expected cache to stay disabled")
	}
}

func TestValidate_ConcurrentCallers(t *testing.T) {
	v := newTestValidator()
	form := jobForm(t)

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := validJobPayload()
			if i%2 == 1 {
				payload["role"] = "sales"
			}
			got := v.Validate(form, payload)
			if got.Valid != (i%2 == 0) {
				errs <- fmt.Sprintf("call %d: valid=%v errors=%v", i, got.Valid, got.Errors)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Fatal(msg)
	}
}

func TestValidate_ExampleValuesAlwaysPass(t *testing.T) {
	examples := map[formdef.FieldType]any{
		formdef.FieldText:          "text",
		formdef.FieldEmail:         "user@example.com",
		formdef.FieldPassword:      "s3cret",
		formdef.FieldNumber:        42,
		formdef.FieldTel:           "+1 555 0100",
		formdef.FieldURL:           "https://example.com",
		formdef.FieldTextarea:      "lines",
		formdef.FieldSelect:        "a",
		formdef.FieldMultiselect:   []string{"a", "b"},
		formdef.FieldRadio:         "b",
		formdef.FieldCheckbox:      true,
		formdef.FieldDate:          "2024-01-31",
		formdef.FieldDatetime:      "2024-01-31T10:00:00Z",
		formdef.FieldTime:          "10:00:00Z",
		formdef.FieldFile:          "ZmlsZQ==",
		formdef.FieldImage:         "aW1n",
		formdef.FieldRange:         7.5,
		formdef.FieldHidden:        "token",
		formdef.FieldDatetimeLocal: "2024-01-31T10:00:00+02:00",
	}

	form := formdef.FormDefinition{Title: "Everything", Fields: []formdef.FieldSpec{}}
	payload := map[string]any{}
	i := 0
	for fieldType, value := range examples {
		i++
		name := fmt.Sprintf("f%d", i)
		form.Fields = append(form.Fields, formdef.FieldSpec{
			ID: name, Name: name, Label: string(fieldType), Type: fieldType, Required: true,
			Options: []formdef.Option{{Value: "a"}, {Value: "b"}},
		})
		payload[name] = value
	}
	form.Fields = append(form.Fields, formdef.FieldSpec{ID: "h", Type: formdef.FieldSectionHeader, Label: "Section"})

	got := newTestValidator(WithCompilerOptions(compiler.WithFieldTypeAnnotation())).Validate(form, payload)
	if !got.Valid {
		t.Fatalf("expected example payload to pass: %#v", got.Errors)
	}
}

func TestValidate_TimeFormatOffsetOptional(t *testing.T) {
	form := formdef.FormDefinition{
		Title:  "Shift",
		Fields: []formdef.FieldSpec{{ID: "1", Name: "start", Type: formdef.FieldTime, Label: "Start"}},
	}
	v := newTestValidator()

	for _, value := range []string{"14:30:00", "14:30:00.250", "14:30:00Z", "14:30:00+02:00", "23:59:60-0530"} {
		if got := v.Validate(form, map[string]any{"start": value}); !got.Valid {
			t.Fatalf("expected %q to be a valid time: %#v", value, got.Errors)
		}
	}

	for _, value := range []string{"25:00:00", "14:60:00", "14:30", "14:30:00+24:00", "2pm"} {
		got := v.Validate(form, map[string]any{"start": value})
		if got.Valid {
			t.Fatalf("expected %q to be rejected", value)
		}
		if diff := cmp.Diff([]string{CodeFormat}, got.Codes()); diff != "" {
			t.Fatalf("%q codes mismatch (-want +got):\n%s", value, diff)
		}
	}
}
