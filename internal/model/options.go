package model

import (
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Options configures the Builder. The public adapter in pkg/model constructs
// them and passes them into New.
type Options struct {
	Labeler  func(string) string
	Compiler func(string) (visibility.Predicate, error)
	Logger   *slog.Logger
}
