package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formschema/pkg/validation"
)

const contactYAML = `id: contact
title: Contact
fields:
  - id: "1"
    name: email
    type: email
    label: Email
    required: true
  - id: "2"
    name: message
    type: textarea
    label: Message
    validation:
      rules: [r-min5]
validationRules:
  - id: r-min5
    type: min_length
    parameters:
      value: 5
`

func jobApplicationPath() string {
	return filepath.Join("..", "compiler", "testdata", "job_application.json")
}

func fixedTools() *Tools {
	clock := func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return NewTools(WithValidator(validation.New(nil, validation.WithClock(clock))))
}

func TestCompile_FromFile(t *testing.T) {
	tools := fixedTools()
	res, out, err := tools.handleCompile(context.Background(), nil, compileInput{
		Form: formInput{File: jobApplicationPath()},
	})
	require.NoError(t, err)
	require.Nil(t, res)

	assert.Equal(t, "Job Application", out.Title)
	assert.Contains(t, out.Properties, "fullName")
	assert.Contains(t, out.Required, "email")
	assert.Equal(t, "object", out.Schema["type"])
	assert.Equal(t, false, out.Schema["additionalProperties"])
}

func TestCompile_FieldTypeAnnotation(t *testing.T) {
	tools := fixedTools()
	_, out, err := tools.handleCompile(context.Background(), nil, compileInput{
		Form:                formInput{Content: contactYAML},
		FieldTypeAnnotation: true,
	})
	require.NoError(t, err)

	props, ok := out.Schema["properties"].(map[string]any)
	require.True(t, ok)
	email, ok := props["email"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "email", email["x-field-type"])
}

func TestCompile_InputErrors(t *testing.T) {
	tools := fixedTools()
	cases := map[string]formInput{
		"none":     {},
		"two":      {File: jobApplicationPath(), Content: contactYAML},
		"missing":  {File: filepath.Join(t.TempDir(), "nope.json")},
		"garbage":  {Content: "{not: [valid"},
		"bad url":  {URL: "ftp://example.com/form.json"},
		"no title": {Content: `{"fields": []}`},
		"http off": {URL: "https://example.com/form.json"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			res, _, err := tools.handleCompile(context.Background(), nil, compileInput{Form: in})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.True(t, res.IsError)
		})
	}
}

func TestValidate_ReportsFieldErrors(t *testing.T) {
	tools := fixedTools()
	res, out, err := tools.handleValidate(context.Background(), nil, validateInput{
		Form: formInput{Content: contactYAML},
		Data: map[string]any{"email": "not-an-email", "message": "hi"},
	})
	require.NoError(t, err)
	require.Nil(t, res)

	assert.False(t, out.Valid)
	assert.Equal(t, validation.MessageInvalid, out.Message)
	assert.Equal(t, "2026-01-02T03:04:05.000Z", out.Timestamp)

	codes := map[string]string{}
	for _, fe := range out.Errors {
		codes[fe.Field] = fe.Code
	}
	assert.Equal(t, validation.CodeFormat, codes["email"])
	assert.Equal(t, validation.CodeMinLength, codes["message"])
}

func TestValidate_Valid(t *testing.T) {
	tools := fixedTools()
	_, out, err := tools.handleValidate(context.Background(), nil, validateInput{
		Form: formInput{Content: contactYAML},
		Data: map[string]any{"email": "ada@example.com"},
	})
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.NotNil(t, out.Errors)
	assert.Empty(t, out.Errors)
}

func TestGenerateOpenAPI_Formats(t *testing.T) {
	tools := fixedTools()

	_, jsonOut, err := tools.handleGenerateOpenAPI(context.Background(), nil, openAPIInput{
		Form: formInput{File: jobApplicationPath()},
	})
	require.NoError(t, err)
	assert.Equal(t, "json", jsonOut.Format)
	assert.Contains(t, jsonOut.Document, `"openapi": "3.0.3"`)
	assert.Contains(t, jsonOut.Paths, "/forms/job-application/validate")

	_, yamlOut, err := tools.handleGenerateOpenAPI(context.Background(), nil, openAPIInput{
		Form:      formInput{File: jobApplicationPath()},
		Format:    "YML",
		ServerURL: "https://forms.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "yaml", yamlOut.Format)
	assert.True(t, strings.HasPrefix(yamlOut.Document, "openapi: 3.0.3"))
	assert.Contains(t, yamlOut.Document, "https://forms.example.com")

	res, _, err := tools.handleGenerateOpenAPI(context.Background(), nil, openAPIInput{
		Form:   formInput{File: jobApplicationPath()},
		Format: "xml",
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsError)
}

func TestSanitizeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "form.json")
	_, err := os.ReadFile(path)
	require.Error(t, err)

	msg := sanitizeError(err)
	assert.NotContains(t, msg, dir)
	assert.Contains(t, msg, "<path>")
	assert.Empty(t, sanitizeError(nil))
}

func TestErrResult(t *testing.T) {
	res := errResult(os.ErrNotExist)
	require.True(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, os.ErrNotExist.Error(), text.Text)
}
