// Package loader reads form definitions from disk, an fs.FS or HTTP.
// Remote loading stays off unless a client or the fallback is configured.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-formschema/pkg/formdef"
)

var ErrHTTPDisabled = errors.New("loader: http support disabled")

// Options collects the loader knobs.
type Options struct {
	// FileSystem backs SourceKindFS; nil disables it.
	FileSystem fs.FS

	HTTPClient *http.Client

	// AllowHTTPFallback enables URL sources with a default client when no
	// HTTPClient is supplied.
	AllowHTTPFallback bool

	RequestTimeout time.Duration
}

type Option func(*Options)

func WithFileSystem(files fs.FS) Option {
	return func(opts *Options) {
		opts.FileSystem = files
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables URL sources using a default client bounded by
// timeout.
func WithHTTPFallback(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

func NewOptions(fns ...Option) Options {
	cfg := Options{}
	for _, fn := range fns {
		if fn != nil {
			fn(&cfg)
		}
	}
	return cfg
}

// Loader resolves sources into form definitions.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

func New(fns ...Option) *Loader {
	options := NewOptions(fns...)
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:      options.FileSystem,
		http:    httpClient,
		timeout: timeout,
	}
}

// Read returns the raw bytes behind src.
func (l *Loader) Read(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("loader: source is nil")
	}

	var (
		data []byte
		err  error
	)
	switch src.Kind() {
	case SourceKindFile:
		data, err = loadFile(ctx, src.Location())
	case SourceKindFS:
		data, err = loadFromFS(ctx, l.fs, src.Location())
	case SourceKindURL:
		if l.http == nil {
			return nil, ErrHTTPDisabled
		}
		data, err = loadHTTP(ctx, l.http, src.Location(), l.timeout)
	default:
		err = fmt.Errorf("loader: unsupported source kind %q", src.Kind())
	}
	if err != nil {
		return nil, fmt.Errorf("loader: read %s %s: %w", src.Kind(), src.Location(), err)
	}
	return data, nil
}

// Load reads and decodes the definition behind src.
func (l *Loader) Load(ctx context.Context, src Source) (formdef.FormDefinition, error) {
	data, err := l.Read(ctx, src)
	if err != nil {
		return formdef.FormDefinition{}, err
	}
	form, err := formdef.Decode(data, FormatOf(src))
	if err != nil {
		return formdef.FormDefinition{}, fmt.Errorf("loader: decode %s: %w", src.Location(), err)
	}
	return form, nil
}

// Parse decodes inline content, trying JSON first when format is empty and
// falling back to YAML.
func Parse(content []byte, format formdef.Format) (formdef.FormDefinition, error) {
	if format != "" {
		return formdef.Decode(content, format)
	}
	form, err := formdef.Decode(content, formdef.FormatJSON)
	if err == nil {
		return form, nil
	}
	if yamlForm, yerr := formdef.Decode(content, formdef.FormatYAML); yerr == nil {
		return yamlForm, nil
	}
	return formdef.FormDefinition{}, err
}
