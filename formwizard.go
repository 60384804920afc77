// Package formwizard is the top-level entry point of the module. It re-exports
// the orchestrator so hosts can load schemas, open wizard sessions and render
// them without importing the individual packages.
package formwizard

import (
	"context"
	"io/fs"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/vanilla"
)

// RenderOptions describes per-request data such as hidden fields or
// server-side errors.
type RenderOptions = render.RenderOptions

// HiddenField is a name/value pair rendered as a hidden input.
type HiddenField = render.HiddenField

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// LoadSchemas parses every schema document in fsys.
func LoadSchemas(ctx context.Context, fsys fs.FS) (*formschema.Store, error) {
	return formschema.LoadFSContext(ctx, fsys)
}

// RenderForm opens a throwaway session for formID prefilled with values and
// renders its first step with the named renderer. It is the simplest entry
// point for callers that just want markup.
func RenderForm(ctx context.Context, formID string, values map[string]string, rendererName string, options ...orchestrator.Option) ([]byte, error) {
	gen := orchestrator.New(options...)
	s, err := gen.Open(ctx, formID, values)
	if err != nil {
		return nil, err
	}
	defer gen.Close(s.ID())

	res, err := gen.Render(ctx, orchestrator.Request{Session: s, Renderer: rendererName})
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// WithThemeSelector passes a go-theme selector through to the orchestrator so
// theme and variant choices are resolved ahead of rendering.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) orchestrator.Option {
	return orchestrator.WithThemeSelector(selector, name, variant)
}

// EmbeddedTemplates exposes the built-in HTML renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the stylesheet and browser runtime of the HTML renderer.
//
// Typical mount:
//
//	mux.Handle("/static/formwizard/",
//	  http.StripPrefix("/static/formwizard/",
//	    http.FileServerFS(formwizard.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
