package vanilla

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formwizard/pkg/render"
	rendertemplate "github.com/goliatone/go-formwizard/pkg/render/template"
	gotemplate "github.com/goliatone/go-formwizard/pkg/render/template/gotemplate"
	"github.com/goliatone/go-formwizard/pkg/renderers/vanilla/components"
)

const (
	formTemplate        = "templates/form.html"
	defaultAssetPrefix  = "/static/formwizard/"
	stylesheetAssetKey  = "stylesheet"
	sessionPlaceholder  = "{session}"
	inputBaseClass      = "form-control"
	stepIndicatorClass  = "step"
	controlButtonsClass = "btn"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	policy           *bluemonday.Policy
	assetPrefix      string
	eventsURL        string
	chrome           map[string]string
	overrides        map[string]string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithRegistry replaces the component registry.
func WithRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithPolicy sets the policy help text is sanitized with.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithAssetPrefix sets the URL prefix the stylesheet and runtime script are
// served under.
func WithAssetPrefix(prefix string) Option {
	return func(cfg *config) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			cfg.assetPrefix = strings.TrimSuffix(prefix, "/") + "/"
		}
	}
}

// WithEventsURL enables the browser runtime. The pattern may contain
// `{session}`, replaced by the view's session id.
func WithEventsURL(pattern string) Option {
	return func(cfg *config) {
		cfg.eventsURL = strings.TrimSpace(pattern)
	}
}

// WithChromeClasses overrides chrome classes by slot (form, header,
// indicators, tab, fieldset, field, actions, errors).
func WithChromeClasses(classes map[string]string) Option {
	return func(cfg *config) {
		for slot, class := range classes {
			cfg.chrome[slot] = class
		}
	}
}

// WithComponentOverrides renders the named fields with a specific component.
func WithComponentOverrides(overrides map[string]string) Option {
	return func(cfg *config) {
		for field, component := range overrides {
			cfg.overrides[field] = component
		}
	}
}

// Renderer renders wizard views as server-side HTML. Hidden elements carry
// `display:none` and marker classes are emitted on their elements so the
// markup reflects the session state without client code.
type Renderer struct {
	templates   rendertemplate.TemplateRenderer
	registry    *components.Registry
	policy      *bluemonday.Policy
	assetPrefix string
	eventsURL   string
	chrome      map[string]string
	overrides   map[string]string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{
		templateFS:  TemplatesFS(),
		assetPrefix: defaultAssetPrefix,
		chrome:      defaultChrome(),
		overrides:   make(map[string]string),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}
	if cfg.policy == nil {
		cfg.policy = bluemonday.UGCPolicy()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates:   renderer,
		registry:    cfg.registry,
		policy:      cfg.policy,
		assetPrefix: cfg.assetPrefix,
		eventsURL:   cfg.eventsURL,
		chrome:      cfg.chrome,
		overrides:   cfg.overrides,
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(_ context.Context, view render.View, opts render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, errors.New("vanilla renderer: template renderer is nil")
	}
	view = view.Apply(opts)

	var partials map[string]string
	payload := map[string]any{
		"chrome":     r.chrome,
		"stylesheet": r.assetPrefix + StylesheetName,
	}
	if opts.Theme != nil {
		partials = opts.Theme.Partials
		payload["theme_vars"] = inlineVars(opts.Theme.CSSVars)
		if opts.Theme.AssetURL != nil {
			if href := opts.Theme.AssetURL(stylesheetAssetKey); href != "" {
				payload["stylesheet"] = href
			}
		}
	}
	if r.eventsURL != "" && view.SessionID != "" {
		payload["events"] = strings.ReplaceAll(r.eventsURL, sessionPlaceholder, view.SessionID)
		payload["script"] = r.assetPrefix + RuntimeScriptName
	}

	form, err := r.formPayload(view, partials)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: %w", err)
	}
	payload["form"] = form

	result, err := r.templates.RenderTemplate(formTemplate, payload)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}
