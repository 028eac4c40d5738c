package prompt

import (
	"go.uber.org/zap"

	"github.com/goliatone/go-formschema/pkg/compiler"
	"github.com/goliatone/go-formschema/pkg/validation"
)

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the driver used to ask questions.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

func WithValidator(v *validation.Validator) Option {
	return func(f *Filler) {
		if v != nil {
			f.validator = v
		}
	}
}

// WithCompilerOptions controls which fields are asked and in what order.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(f *Filler) {
		f.compilerOpts = append(f.compilerOpts, opts...)
	}
}

// WithMaxAttempts bounds how many invalid answers a field may receive.
// Zero keeps asking until the answer is valid.
func WithMaxAttempts(n int) Option {
	return func(f *Filler) {
		if n >= 0 {
			f.maxAttempts = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}
