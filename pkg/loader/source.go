package loader

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

// SourceKind names where a form definition is read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies one form definition.
type Source interface {
	Kind() SourceKind
	Location() string
}

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile points at a definition on the local disk.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS names a file inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }
func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL validates raw and returns an HTTP(S) source.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("loader: empty URL source")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return nil, fmt.Errorf("loader: invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("loader: unsupported URL scheme %q", u.Scheme)
	}
	return urlSource{raw: raw}, nil
}

// FormatOf picks the decoder for src from its extension. URL query strings
// are ignored.
func FormatOf(src Source) formdef.Format {
	loc := src.Location()
	if src.Kind() == SourceKindURL {
		if u, err := url.Parse(loc); err == nil {
			loc = path.Base(u.Path)
		}
	}
	return formdef.FormatFromPath(loc)
}
