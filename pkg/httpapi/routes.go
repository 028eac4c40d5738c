// Package httpapi serves form definitions, their compiled schemas and OpenAPI
// documents, and validates or stores submissions over HTTP.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"
)

// Mux is the minimal interface required to register handlers. Patterns use
// the method and wildcard syntax of *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// Route describes one registered endpoint.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

// Routes lists every endpoint mounted under opts.BasePath.
func (s *Server) Routes() []Route {
	base := s.opts.BasePath
	return []Route{
		{http.MethodGet, mountPath(base, "/health"), s.health},
		{http.MethodGet, mountPath(base, "/forms"), s.listForms},
		{http.MethodPost, mountPath(base, "/forms"), s.createForm},
		{http.MethodGet, mountPath(base, "/forms/{id}"), s.getForm},
		{http.MethodPut, mountPath(base, "/forms/{id}"), s.updateForm},
		{http.MethodDelete, mountPath(base, "/forms/{id}"), s.deleteForm},
		{http.MethodGet, mountPath(base, "/forms/{id}/schema"), s.formSchema},
		{http.MethodGet, mountPath(base, "/forms/{id}/_openapi"), s.formOpenAPI},
		{http.MethodPost, mountPath(base, "/forms/{id}/validate"), s.validate},
		{http.MethodPost, mountPath(base, "/forms/{id}/submit"), s.submit},
		{http.MethodGet, mountPath(base, "/forms/{id}/submissions"), s.listSubmissions},
	}
}

// RegisterRoutes mounts every endpoint on mux and returns the patterns used.
func RegisterRoutes(mux Mux, fns ...OptionFn) ([]string, error) {
	return NewServer(fns...).RegisterRoutes(mux)
}

func (s *Server) RegisterRoutes(mux Mux) ([]string, error) {
	if mux == nil {
		return nil, fmt.Errorf("httpapi: missing mux")
	}
	routes := s.Routes()
	patterns := make([]string, 0, len(routes))
	for _, route := range routes {
		mux.Handle(route.Pattern(), route.Handler)
		patterns = append(patterns, route.Pattern())
	}
	return patterns, nil
}

// Handler returns a ServeMux with every route mounted, wrapped in the access
// log.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	_, _ = s.RegisterRoutes(mux)
	return AccessLog(s.opts.Logger.Named("access"), mux)
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimRight(basePath, "/")
	return basePath + routePath
}
