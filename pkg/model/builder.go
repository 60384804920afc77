package model

import (
	"log/slog"

	internalmodel "github.com/goliatone/go-formwizard/internal/model"
	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Builder converts form schemas into forms.
type Builder interface {
	Build(src formschema.Form) (*Form, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*internalmodel.Options)

// WithLabeler overrides the label generated for fields without one.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *internalmodel.Options) {
		opts.Labeler = labeler
	}
}

// WithCompiler overrides how rule expressions become predicates.
func WithCompiler(compile func(string) (visibility.Predicate, error)) BuilderOption {
	return func(opts *internalmodel.Options) {
		opts.Compiler = compile
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(opts *internalmodel.Options) {
		opts.Logger = logger
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := internalmodel.Options{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return internalmodel.New(cfg)
}

// DefaultLabeler turns a field name into a sentence case label.
func DefaultLabeler(name string) string {
	return internalmodel.DefaultLabeler(name)
}
