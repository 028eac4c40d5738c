package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/formdef"
	"github.com/goliatone/go-formschema/pkg/openapi"
	"github.com/goliatone/go-formschema/pkg/store"
	"github.com/goliatone/go-formschema/pkg/validation"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Server holds the collaborators behind the HTTP handlers.
type Server struct {
	opts   Options
	logger *zap.Logger
}

func NewServer(fns ...OptionFn) *Server {
	opts := NewOptions(fns...)
	return &Server{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "HTTPServer")),
	}
}

// NewHandler is shorthand for NewServer(fns...).Handler().
func NewHandler(fns ...OptionFn) http.Handler {
	return NewServer(fns...).Handler()
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// SubmissionResponse is returned when a submission is accepted.
type SubmissionResponse struct {
	ID          string `json:"id"`
	SubmittedAt string `json:"submittedAt"`
	Status      string `json:"status"`
}

type formsResponse struct {
	Data []formdef.FormDefinition `json:"data"`
}

type submissionsResponse struct {
	Data []store.Submission `json:"data"`
}

func (s *Server) stamp() string {
	return s.opts.Now().UTC().Format(timestampLayout)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = http.StatusText(code)
	}
	if werr := writeJSON(w, code, errorResponse{Error: msg}); werr != nil {
		s.logger.Warn("failed to write error response", zap.Error(werr))
	}
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	if err := writeJSON(w, status, v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: s.stamp(),
		Service:   s.opts.ServiceName,
	})
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	forms, err := s.opts.Store.ListForms(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if forms == nil {
		forms = []formdef.FormDefinition{}
	}
	s.respond(w, http.StatusOK, formsResponse{Data: forms})
}

// readForm decodes and sanitises a form definition from the request body.
func (s *Server) readForm(r *http.Request) (formdef.FormDefinition, error) {
	body, err := readBody(r, s.opts.MaxBodyBytes)
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	form, err := formdef.Decode(body, formdef.FormatJSON)
	if err != nil {
		return formdef.FormDefinition{}, badRequest(err)
	}
	return formdef.Sanitize(form), nil
}

func (s *Server) createForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.readForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if form.ID == "" {
		form.ID = formdef.Slug(form.Title)
	}
	created, err := s.opts.Store.CreateForm(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", mountPath(s.opts.BasePath, "/forms/"+created.ID))
	s.respond(w, http.StatusCreated, created)
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	form, err := s.opts.Store.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, form)
}

func (s *Server) updateForm(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	form, err := s.readForm(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if form.ID != "" && form.ID != id {
		s.fail(w, r, badRequest(fmt.Errorf("body id %q does not match path id %q", form.ID, id)))
		return
	}
	form.ID = id
	updated, err := s.opts.Store.UpdateForm(r.Context(), form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, updated)
}

func (s *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := s.opts.Store.DeleteForm(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) formSchema(w http.ResponseWriter, r *http.Request) {
	form, err := s.opts.Store.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.opts.Validator.Schema(form)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	raw, err := doc.Raw()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, "application/schema+json", raw)
}

// wantsYAML reports whether the Accept header asks for YAML.
func wantsYAML(r *http.Request) bool {
	accept := strings.ToLower(r.Header.Get("Accept"))
	return strings.Contains(accept, "application/x-yaml") || strings.Contains(accept, "text/yaml")
}

func (s *Server) formOpenAPI(w http.ResponseWriter, r *http.Request) {
	form, err := s.opts.Store.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := openapi.Generate(form,
		openapi.WithServerURL(s.opts.BasePath),
		openapi.WithCompilerOptions(s.opts.CompilerOptions...),
	)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if wantsYAML(r) {
		raw, err := openapi.MarshalYAML(doc)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, contentTypeYAML, raw)
		return
	}
	raw, err := openapi.MarshalJSON(doc)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, contentTypeJSON, raw)
}

// check loads the form named in the path and validates the request body
// against it.
func (s *Server) check(r *http.Request) (formdef.FormDefinition, map[string]any, validation.Result, error) {
	form, err := s.opts.Store.GetForm(r.Context(), r.PathValue("id"))
	if err != nil {
		return form, nil, validation.Result{}, err
	}
	body, err := readBody(r, s.opts.MaxBodyBytes)
	if err != nil {
		return form, nil, validation.Result{}, err
	}
	data, err := decodeObject(body)
	if err != nil {
		return form, nil, validation.Result{}, err
	}
	return form, data, s.opts.Validator.Validate(form, data), nil
}

func resultStatus(res validation.Result, ok int) int {
	if res.Valid {
		return ok
	}
	return http.StatusBadRequest
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	_, _, res, err := s.check(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, resultStatus(res, http.StatusOK), res)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	form, data, res, err := s.check(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !res.Valid {
		s.respond(w, http.StatusBadRequest, res)
		return
	}

	sub, err := s.opts.Store.SaveSubmission(r.Context(), store.Submission{
		FormID:      form.ID,
		Data:        data,
		SubmittedAt: s.opts.Now().UTC(),
		Status:      store.StatusSubmitted,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("submission accepted", zap.String("form_id", form.ID), zap.String("submission_id", sub.ID))
	s.respond(w, http.StatusCreated, SubmissionResponse{
		ID:          sub.ID,
		SubmittedAt: sub.SubmittedAt.UTC().Format(timestampLayout),
		Status:      sub.Status,
	})
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.opts.Store.ListSubmissions(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	s.respond(w, http.StatusOK, submissionsResponse{Data: subs})
}
