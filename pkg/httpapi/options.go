package httpapi

import (
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/store"
	"github.com/goliatone/go-formschema/pkg/validation"
)

const (
	DefaultBasePath    = "/api"
	DefaultServiceName = "form-validation-api"

	// DefaultMaxBodyBytes bounds request bodies.
	DefaultMaxBodyBytes = 1 << 20
)

type Options struct {
	BasePath     string
	ServiceName  string
	MaxBodyBytes int64

	Store           store.Store
	Validator       *validation.Validator
	CompilerOptions []compiler.Option
	Logger          *zap.Logger
	Now             func() time.Time
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		BasePath:     DefaultBasePath,
		ServiceName:  DefaultServiceName,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Now:          time.Now,
	}
}

// NewOptions applies fns over the defaults and fills in any collaborator
// left nil: an in-memory store, a default validator and a no-op logger.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemoryStore()
	}
	if opts.Validator == nil {
		opts.Validator = validation.New(nil,
			validation.WithCompilerOptions(opts.CompilerOptions...),
			validation.WithLogger(opts.Logger),
		)
	}
	return opts
}

func WithBasePath(path string) OptionFn {
	return func(o *Options) {
		o.BasePath = path
	}
}

func WithServiceName(name string) OptionFn {
	return func(o *Options) {
		o.ServiceName = name
	}
}

func WithMaxBodyBytes(n int64) OptionFn {
	return func(o *Options) {
		o.MaxBodyBytes = n
	}
}

func WithStore(s store.Store) OptionFn {
	return func(o *Options) {
		o.Store = s
	}
}

func WithValidator(v *validation.Validator) OptionFn {
	return func(o *Options) {
		o.Validator = v
	}
}

// WithCompilerOptions applies to generated OpenAPI documents and to the
// default validator.
func WithCompilerOptions(opts ...compiler.Option) OptionFn {
	return func(o *Options) {
		o.CompilerOptions = append(o.CompilerOptions, opts...)
	}
}

func WithLogger(logger *zap.Logger) OptionFn {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithClock(now func() time.Time) OptionFn {
	return func(o *Options) {
		o.Now = now
	}
}
