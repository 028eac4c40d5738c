package formdef

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleForm() FormDefinition {
	return FormDefinition{
		ID:    "contact",
		Title: "Contact",
		Fields: []FieldSpec{
			{ID: "1", Name: "email", Label: "Email Address", Type: FieldEmail, Required: true},
			{ID: "2", Name: "", Label: "Details", Type: FieldSectionHeader},
			{ID: "3", Name: "country", Label: "Country", Type: FieldSelect, Options: []Option{{Value: "us", Label: "United States"}, {Value: "ca", Label: "Canada"}}},
		},
	}
}

func TestValidate_AcceptsWellFormedDefinition(t *testing.T) {
	if err := sampleForm().Validate(); err != nil {
		t.Fatalf("expected definition to be valid: %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	form := FormDefinition{
		Fields: []FieldSpec{
			{ID: "1", Name: "email", Type: FieldEmail},
			{ID: "1", Name: "email", Type: FieldText},
			{ID: "3", Name: "  ", Type: FieldText},
		},
		Steps: []StepSpec{{ID: "s1", Fields: []string{"1", "missing"}}},
	}

	err := form.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{
		"title is required",
		`id "1" already used`,
		`name "email" already used`,
		"fields[2]: name is required",
		`unknown field id "missing"`,
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %q", want, msg)
		}
	}
}

func TestValidate_NilFields(t *testing.T) {
	err := FormDefinition{Title: "Empty"}.Validate()
	if err == nil || !strings.Contains(err.Error(), "fields are required") {
		t.Fatalf("expected missing fields error, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	form := sampleForm()
	first := form.Fingerprint()
	if !strings.HasPrefix(first, "sha256:") {
		t.Fatalf("expected content hash, got %q", first)
	}
	if again := form.Fingerprint(); again != first {
		t.Fatalf("fingerprint not stable: %q != %q", first, again)
	}

	changed := sampleForm()
	changed.Fields[0].Label = "E-mail"
	if changed.Fingerprint() == first {
		t.Fatalf("expected fingerprint to change with content")
	}

	stamped := sampleForm()
	stamped.Metadata = &Metadata{UpdatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	if got, want := stamped.Fingerprint(), "contact@2024-05-01T10:00:00Z"; got != want {
		t.Fatalf("fingerprint = %q, want %q", got, want)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Contact Us!":             "contact-us",
		"  Job Application Form ": "job-application-form",
		"Café Résumé 2024":        "cafe-resume-2024",
		"---":                     "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitize_StripsMarkup(t *testing.T) {
	form := sampleForm()
	form.Title = `Contact <script>alert(1)</script>Us`
	form.Fields[0].Label = `<b>Email</b> & phone`
	form.Fields[2].Options[0].Label = `<i>US</i>`

	clean := Sanitize(form)
	if clean.Title != "Contact Us" {
		t.Fatalf("unexpected title %q", clean.Title)
	}
	if clean.Fields[0].Label != "Email & phone" {
		t.Fatalf("unexpected label %q", clean.Fields[0].Label)
	}
	if clean.Fields[2].Options[0].Label != "US" {
		t.Fatalf("unexpected option label %q", clean.Fields[2].Options[0].Label)
	}
	if form.Fields[0].Label != `<b>Email</b> & phone` {
		t.Fatalf("sanitize mutated its input")
	}
}

func TestSanitize_EntityEncodedMarkup(t *testing.T) {
	cases := map[string]string{
		"&lt;script&gt;alert(1)&lt;/script&gt;":                   "",
		"&lt;b&gt;Bold&lt;/b&gt; text":                            "Bold text",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;Hi": "Hi",
		"Tom &amp; Jerry&#39;s":                                   "Tom & Jerry's",
		`Say &quot;hi&quot;`:                                      `Say "hi"`,
	}
	for in, want := range cases {
		form := sampleForm()
		form.Title = in
		form.Fields[0].Label = in
		clean := Sanitize(form)
		if clean.Title != want || clean.Fields[0].Label != want {
			t.Fatalf("Sanitize(%q) = %q / %q, want %q", in, clean.Title, clean.Fields[0].Label, want)
		}
		if strings.Contains(clean.Title, "<") {
			t.Fatalf("markup survived: %q", clean.Title)
		}
	}
}

func TestDecode_JSONAndYAMLAgree(t *testing.T) {
	jsonDoc := []byte(`{
  "title": "Signup",
  "fields": [
    {"id": "1", "name": "plan", "label": "Plan", "type": "radio", "options": ["free", {"value": "pro", "label": "Pro"}]},
    {"id": "2", "name": "seats", "label": "Seats", "type": "number", "validation": {"rules": ["r1"]}}
  ],
  "validationRules": [{"id": "r1", "type": "min_value", "parameters": {"value": 1}, "message": "At least one seat"}]
}`)
	yamlDoc := []byte(`
title: Signup
fields:
  - id: "1"
    name: plan
    label: Plan
    type: radio
    options:
      - free
      - value: pro
        label: Pro
  - id: "2"
    name: seats
    label: Seats
    type: number
    validation:
      rules: [r1]
validationRules:
  - id: r1
    type: min_value
    parameters:
      value: 1
    message: At least one seat
`)

	fromJSON, err := Decode(jsonDoc, FormatJSON)
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	fromYAML, err := Decode(yamlDoc, FormatYAML)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if diff := cmp.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("json/yaml mismatch (-json +yaml):\n%s", diff)
	}

	want := []Option{{Value: "free", Label: "free"}, {Value: "pro", Label: "Pro"}}
	if diff := cmp.Diff(want, fromJSON.Fields[0].Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	rules := fromJSON.FieldRules(fromJSON.Fields[1])
	if len(rules) != 1 || !rules[0].Matches("minimum") {
		t.Fatalf("expected min_value rule to match minimum: %#v", rules)
	}
}

func TestDecode_Empty(t *testing.T) {
	if _, err := Decode([]byte("  "), FormatJSON); !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected ErrInvalidDefinition, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	if FormatFromPath("forms/a.YML") != FormatYAML {
		t.Fatalf("expected yaml format")
	}
	if FormatFromPath("forms/a.json") != FormatJSON {
		t.Fatalf("expected json format")
	}
}
