package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	theme "github.com/goliatone/go-theme"
	"github.com/google/uuid"

	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/tui"
	"github.com/goliatone/go-formwizard/pkg/renderers/vanilla"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/schemas"
)

const defaultRendererName = "vanilla"

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("orchestrator: session not found")

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithSchemas loads form schemas from fsys instead of the embedded registry
// forms.
func WithSchemas(fsys fs.FS) Option {
	return func(o *Orchestrator) {
		o.schemaFS = fsys
	}
}

// WithStore injects an already loaded schema store.
func WithStore(store *formschema.Store) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithModelBuilder injects a custom form builder.
func WithModelBuilder(builder model.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = builder
	}
}

// WithRegistry injects a renderer registry.
func WithRegistry(registry *render.Registry) Option {
	return func(o *Orchestrator) {
		o.registry = registry
	}
}

// WithDefaultRenderer overrides the renderer used when a request neither
// names one nor negotiates one.
func WithDefaultRenderer(name string) Option {
	return func(o *Orchestrator) {
		o.defaultRenderer = name
	}
}

// WithSchemaTransformer registers a Transformer that mutates forms after
// they are built.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithThemeSelector resolves name/variant through selector for every render
// that does not carry its own theme config.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(o *Orchestrator) {
		o.themeSelector = selector
		o.themeName = name
		o.themeVariant = variant
	}
}

// WithSessionOptions are applied to every session the orchestrator opens,
// before the per-call options.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *Orchestrator) {
		o.sessionOptions = append(o.sessionOptions, opts...)
	}
}

// WithLogger sets the orchestrator logger. Sessions inherit it.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator coordinates schemas, sessions and renderers. Without options
// it serves the embedded registry forms through the vanilla, tui and json
// renderers.
type Orchestrator struct {
	schemaFS        fs.FS
	store           *formschema.Store
	builder         model.Builder
	registry        *render.Registry
	defaultRenderer string
	transformer     Transformer
	themeSelector   theme.ThemeSelector
	themeName       string
	themeVariant    string
	sessionOptions  []session.Option
	logger          *slog.Logger
	initialiseErr   error

	mu       sync.RWMutex
	forms    map[string]*model.Form
	sessions map[string]*session.Session
}

// New constructs an Orchestrator applying any provided options. Failures to
// load the defaults are reported by every later call.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultRenderer: defaultRendererName,
		logger:          slog.Default(),
		forms:           make(map[string]*model.Form),
		sessions:        make(map[string]*session.Session),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.store == nil {
		fsys := o.schemaFS
		if fsys == nil {
			fsys = schemas.Registry()
		}
		store, err := formschema.LoadFS(fsys)
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: load schemas: %w", err)
			return
		}
		o.store = store
	}
	if o.builder == nil {
		o.builder = model.NewBuilder(model.WithLogger(o.logger))
	}
	if o.registry == nil {
		o.registry = render.NewRegistry()
		renderer, err := vanilla.New()
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: default renderer: %w", err)
			return
		}
		o.registry.MustRegister(renderer)
		text, err := tui.New(tui.WithLogger(o.logger))
		if err != nil {
			o.initialiseErr = fmt.Errorf("orchestrator: text renderer: %w", err)
			return
		}
		o.registry.MustRegister(text)
		o.registry.MustRegister(render.JSONRenderer{})
	}
	if o.defaultRenderer == "" {
		o.defaultRenderer = defaultRendererName
	}
}

// FormIDs lists the forms available from the schema store.
func (o *Orchestrator) FormIDs() []string {
	if o.store == nil {
		return nil
	}
	return o.store.IDs()
}

// Form builds form id, caching the result.
func (o *Orchestrator) Form(ctx context.Context, id string) (*model.Form, error) {
	if err := o.initialiseErr; err != nil {
		return nil, err
	}

	o.mu.RLock()
	form, ok := o.forms[id]
	o.mu.RUnlock()
	if ok {
		return form, nil
	}

	src, err := o.store.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}
	form, err = o.builder.Build(src)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: build form %q: %w", id, err)
	}
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, form); err != nil {
			return nil, fmt.Errorf("orchestrator: transform form %q: %w", id, err)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if cached, ok := o.forms[id]; ok {
		return cached, nil
	}
	o.forms[id] = form
	return form, nil
}

// Problem is a form that failed to build.
type Problem struct {
	FormID string
	Err    error
}

// Lint builds every form in the store and reports the failures sorted by
// form id.
func (o *Orchestrator) Lint(ctx context.Context) []Problem {
	if err := o.initialiseErr; err != nil {
		return []Problem{{Err: err}}
	}
	var problems []Problem
	for _, id := range o.store.IDs() {
		if _, err := o.Form(ctx, id); err != nil {
			problems = append(problems, Problem{FormID: id, Err: err})
		}
	}
	sort.Slice(problems, func(i, j int) bool { return problems[i].FormID < problems[j].FormID })
	return problems
}

// Open starts a session for form id with a fresh uuid, loads values into it
// and keeps it until Close.
func (o *Orchestrator) Open(ctx context.Context, formID string, values map[string]string, opts ...session.Option) (*session.Session, error) {
	form, err := o.Form(ctx, formID)
	if err != nil {
		return nil, err
	}

	all := []session.Option{session.WithID(uuid.NewString()), session.WithLogger(o.logger)}
	all = append(all, o.sessionOptions...)
	all = append(all, opts...)
	s, err := session.New(form, all...)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: open %q: %w", formID, err)
	}
	if err := s.Load(ctx, values); err != nil {
		return nil, fmt.Errorf("orchestrator: load %q: %w", formID, err)
	}

	o.mu.Lock()
	o.sessions[s.ID()] = s
	o.mu.Unlock()
	o.logger.Debug("session opened", "form", formID, "session", s.ID())
	return s, nil
}

// Session returns an open session.
func (o *Orchestrator) Session(id string) (*session.Session, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close forgets session id after waiting for its pending option loads.
func (o *Orchestrator) Close(id string) {
	o.mu.Lock()
	s, ok := o.sessions[id]
	delete(o.sessions, id)
	o.mu.Unlock()
	if ok {
		s.Wait()
	}
}

// Request describes one render of a session.
type Request struct {
	Session *session.Session
	// Renderer names the renderer to use. When empty the Accept header is
	// negotiated, then the default renderer is used.
	Renderer string
	Accept   string
	// RenderOptions carries per-request data such as a CSRF token or
	// server-side errors.
	RenderOptions render.RenderOptions
}

// Response is a rendered session.
type Response struct {
	Body        []byte
	ContentType string
	Renderer    string
}

// Render snapshots the session and renders it.
func (o *Orchestrator) Render(ctx context.Context, req Request) (Response, error) {
	if ctx == nil {
		return Response{}, errors.New("orchestrator: context is required")
	}
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if err := o.initialiseErr; err != nil {
		return Response{}, err
	}
	if req.Session == nil {
		return Response{}, errors.New("orchestrator: session is required")
	}

	renderer, err := o.rendererFor(req.Renderer, req.Accept)
	if err != nil {
		return Response{}, err
	}

	opts := req.RenderOptions
	if opts.Theme == nil && o.themeSelector != nil {
		cfg, err := render.ThemeConfig(o.themeSelector, o.themeName, o.themeVariant)
		if err != nil {
			return Response{}, fmt.Errorf("orchestrator: %w", err)
		}
		opts.Theme = cfg
	}

	body, err := renderer.Render(ctx, req.Session.Snapshot(), opts)
	if err != nil {
		return Response{}, fmt.Errorf("orchestrator: render output: %w", err)
	}
	return Response{Body: body, ContentType: renderer.ContentType(), Renderer: renderer.Name()}, nil
}

func (o *Orchestrator) rendererFor(name, accept string) (render.Renderer, error) {
	if o.registry == nil {
		return nil, errors.New("orchestrator: renderer registry is nil")
	}
	if name != "" {
		renderer, err := o.registry.Get(name)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: renderer %q: %w", name, err)
		}
		return renderer, nil
	}
	if accept != "" {
		if renderer, err := o.registry.Negotiate(accept); err == nil {
			return renderer, nil
		}
	}
	if renderer, err := o.registry.Get(o.defaultRenderer); err == nil {
		return renderer, nil
	}

	names := o.registry.List()
	if len(names) == 0 {
		return nil, errors.New("orchestrator: no renderers registered")
	}
	renderer, err := o.registry.Get(names[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: renderer %q: %w", names[0], err)
	}
	return renderer, nil
}
