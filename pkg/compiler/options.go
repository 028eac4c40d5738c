package compiler

// Options tunes how a form definition is compiled.
type Options struct {
	// StepOrder lays properties out in step order (steps sorted by Order,
	// then the ids listed by each step) instead of the order of the fields
	// array. Only applies when the form has steps.
	StepOrder bool
	// FieldTypeAnnotation emits x-field-type with the designer field type.
	FieldTypeAnnotation bool
	// DeclareDraft sets $schema to the draft-07 meta-schema URI.
	DeclareDraft bool
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{}
}

func NewOptions(fns ...Option) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	return opts
}

func WithStepOrder() Option {
	return func(o *Options) {
		o.StepOrder = true
	}
}

func WithFieldTypeAnnotation() Option {
	return func(o *Options) {
		o.FieldTypeAnnotation = true
	}
}

func WithDraftDeclaration() Option {
	return func(o *Options) {
		o.DeclareDraft = true
	}
}
