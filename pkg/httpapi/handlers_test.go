package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/store"
	"github.com/goliatone/go-formschema/pkg/validation"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

const contactBody = `{
  "id": "contact",
  "title": "Contact",
  "fields": [
    {"id": "1", "name": "email", "type": "email", "label": "Email", "required": true},
    {"id": "2", "name": "age", "type": "number", "label": "Age"}
  ]
}`

type fixture struct {
	handler http.Handler
	store   *store.MemoryStore
	logs    *observer.ObservedLogs
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	clock := func() time.Time { return fixedNow }
	st := store.NewMemoryStore(store.WithClock(clock), store.WithIDGenerator(func() string { return "sub-1" }))

	h := NewHandler(
		WithStore(st),
		WithValidator(validation.New(nil, validation.WithClock(clock))),
		WithLogger(logger),
		WithClock(clock),
	)
	return fixture{handler: h, store: st, logs: logs}
}

func (f fixture) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f fixture) seed(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/forms", contactBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	got := decode[healthResponse](t, rec)
	assert.Equal(t, healthResponse{Status: "OK", Timestamp: "2024-05-01T12:30:00.000Z", Service: DefaultServiceName}, got)
}

func TestForms_CRUD(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/forms", contactBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "already exists")

	rec = f.do(t, http.MethodGet, "/api/forms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[formsResponse](t, rec).Data, 1)

	rec = f.do(t, http.MethodGet, "/api/forms/contact", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Contact", decode[formdef.FormDefinition](t, rec).Title)

	rec = f.do(t, http.MethodGet, "/api/forms/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	updated := strings.Replace(contactBody, `"title": "Contact"`, `"title": "Contact <b>us</b>"`, 1)
	rec = f.do(t, http.MethodPut, "/api/forms/contact", updated)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Contact us", decode[formdef.FormDefinition](t, rec).Title)

	rec = f.do(t, http.MethodPut, "/api/forms/other", contactBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/forms/contact", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/forms/contact", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateForm_Invalid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/forms", `{"title":"Dupes","fields":[{"name":"a","type":"text"},{"name":"a","type":"text"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/forms", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateForm_DerivesIDFromTitle(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/forms", `{"title":"Job Application","fields":[{"name":"email","type":"email"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/forms/job-application", rec.Header().Get("Location"))
}

func TestValidate(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/forms/contact/validate", `{"email":"user@example.com","age":30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok := decode[validation.Result](t, rec)
	assert.True(t, ok.Valid)
	assert.Equal(t, "Validation successful", ok.Message)
	assert.Equal(t, "2024-05-01T12:30:00.000Z", ok.Timestamp)

	rec = f.do(t, http.MethodPost, "/api/forms/contact/validate", `{"email":"nope","age":"old"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	bad := decode[validation.Result](t, rec)
	assert.False(t, bad.Valid)
	assert.Equal(t, []string{"format", "type"}, bad.Codes())

	rec = f.do(t, http.MethodPost, "/api/forms/contact/validate", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"required"}, decode[validation.Result](t, rec).Codes())

	rec = f.do(t, http.MethodPost, "/api/forms/contact/validate", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/forms/missing/validate", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rec := f.do(t, http.MethodPost, "/api/forms/contact/submit", `{"age":30}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	subs, err := f.store.ListSubmissions(context.Background(), "contact")
	require.NoError(t, err)
	assert.Empty(t, subs)

	rec = f.do(t, http.MethodPost, "/api/forms/contact/submit", `{"email":"user@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, SubmissionResponse{ID: "sub-1", SubmittedAt: "2024-05-01T12:30:00.000Z", Status: "submitted"},
		decode[SubmissionResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/api/forms/contact/submissions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[submissionsResponse](t, rec)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "user@example.com", list.Data[0].Data["email"])
}

func TestFormSchema(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rec := f.do(t, http.MethodGet, "/api/forms/contact/schema", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/schema+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"type":"object","title":"Contact Form Data","properties":{"email":{"type":"string","title":"Email","format":"email"},"age":{"type":"number","title":"Age"}},"required":["email"],"additionalProperties":false}`,
		rec.Body.String())
}

func TestFormOpenAPI_Negotiation(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rec := f.do(t, http.MethodGet, "/api/forms/contact/_openapi", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	for _, accept := range []string{"application/x-yaml", "text/yaml, */*"} {
		rec = f.do(t, http.MethodGet, "/api/forms/contact/_openapi", "", "Accept", accept)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/x-yaml", rec.Header().Get("Content-Type"))
		var y map[string]any
		require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &y))
		assert.Equal(t, "3.0.3", y["openapi"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPatch, "/api/forms", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(WithStore(f.store), WithMaxBodyBytes(8))
	req := httptest.NewRequest(http.MethodPost, "/api/forms", bytes.NewBufferString(contactBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAccessLog(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodGet, "/api/health", "")

	entries := f.logs.FilterLoggerName("access").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, `"GET /api/health HTTP/1.1" 200`)
}

func TestRegisterRoutes(t *testing.T) {
	mux := http.NewServeMux()
	patterns, err := RegisterRoutes(mux, WithBasePath("/v1/"))
	require.NoError(t, err)
	assert.Contains(t, patterns, "POST /v1/forms/{id}/submit")
	assert.Contains(t, patterns, "GET /v1/health")

	_, err = RegisterRoutes(nil)
	assert.Error(t, err)
}

func TestMountPath(t *testing.T) {
	cases := []struct{ base, route, want string }{
		{"", "/forms", "/forms"},
		{"/", "forms", "/forms"},
		{"api", "/forms", "/api/forms"},
		{"/api/", "/forms", "/api/forms"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, mountPath(tc.base, tc.route))
	}
}
