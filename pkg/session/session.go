package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/pkg/chrono"
	"github.com/goliatone/go-formwizard/pkg/conditional"
	"github.com/goliatone/go-formwizard/pkg/constraints"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/options"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrUnknownField is returned for changes to a name the form does not declare.
var ErrUnknownField = errors.New("session: unknown field")

// Session is one user's pass through a form. It owns an in-memory surface
// and drives the rule engine, the wizard, date sequences, constraints and
// dependent selects against it. All methods are safe for concurrent use;
// dependent option results are applied under the same lock.
type Session struct {
	id      string
	form    *model.Form
	surface *surface.Memory
	engine  *conditional.Engine
	wizard  *wizard.Controller
	dates   *chrono.Validator
	checker *constraints.Checker
	logger  *slog.Logger

	bindings map[string][]*options.Binding
	hidden   []render.HiddenField

	mu         sync.Mutex
	formErrors []string
}

type config struct {
	id        string
	submitter wizard.Submitter
	logger    *slog.Logger
	clock     func() time.Time
	client    *http.Client
	baseURL   string
	fetcher   func(model.Dependent) options.Fetcher
	hidden    []render.HiddenField
	extras    map[string]any
}

// Option configures a Session.
type Option func(*config)

// WithID sets the session id reported in snapshots.
func WithID(id string) Option {
	return func(c *config) { c.id = id }
}

// WithSubmitter sets the collaborator called when the last step validates.
func WithSubmitter(submitter wizard.Submitter) Option {
	return func(c *config) { c.submitter = submitter }
}

// WithLogger sets the logger shared by every component of the session.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source for not-after-today checks.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.clock = now }
}

// WithHTTPClient sets the client used by the default option fetchers.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// WithBaseURL resolves relative dependent URLs, such as /api/units, against
// base.
func WithBaseURL(base string) Option {
	return func(c *config) { c.baseURL = base }
}

// WithFetcher replaces the HTTP fetchers built from dependent declarations.
func WithFetcher(fn func(model.Dependent) options.Fetcher) Option {
	return func(c *config) { c.fetcher = fn }
}

// WithHidden adds hidden fields carried in the submitted state and views.
func WithHidden(fields ...render.HiddenField) Option {
	return func(c *config) { c.hidden = append(c.hidden, fields...) }
}

// WithExtras exposes host values to rule expressions as `extras.<key>`.
func WithExtras(extras map[string]any) Option {
	return func(c *config) { c.extras = extras }
}

// New wires a session for form. Call Load before the first change.
func New(form *model.Form, opts ...Option) (*Session, error) {
	if form == nil {
		return nil, errors.New("session: form is required")
	}
	cfg := config{logger: slog.Default(), clock: time.Now, client: http.DefaultClient}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	logger := cfg.logger.With("form", form.ID)
	if cfg.id != "" {
		logger = logger.With("session", cfg.id)
	}

	mem := surface.NewMemory(form.ElementIDs()...)
	mem.Declare(wizard.PrevControl)
	mem.Declare(wizard.NextControl)

	s := &Session{
		id:       cfg.id,
		form:     form,
		surface:  mem,
		logger:   logger,
		hidden:   cfg.hidden,
		bindings: make(map[string][]*options.Binding),
		checker:  constraints.NewChecker(form, cfg.clock),
	}

	s.engine = conditional.New(mem,
		conditional.WithLogger(logger),
		conditional.WithFields(form.Fields...),
		conditional.WithExtras(cfg.extras),
	)
	for _, rule := range form.Rules {
		s.engine.Register(rule)
	}

	ctrl, err := wizard.New(mem, form.Steps,
		wizard.WithFormID(form.ID),
		wizard.WithSubmitter(cfg.submitter),
		wizard.WithMeta(s.meta),
		wizard.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("session: form %q: %w", form.ID, err)
	}
	s.wizard = ctrl
	s.dates = chrono.NewValidator(mem, form.Sequences, chrono.WithLogger(logger))

	for _, dep := range form.Dependents {
		var fetcher options.Fetcher
		if cfg.fetcher != nil {
			fetcher = cfg.fetcher(dep)
		} else {
			resolved, err := resolveURL(cfg.baseURL, dep.URL)
			if err != nil {
				return nil, fmt.Errorf("session: form %q dependent %s: %w", form.ID, dep.Child.Name(), err)
			}
			dep.URL = resolved
			fetcher = options.FetcherFor(dep, options.WithHTTPClient(cfg.client))
		}
		binding := options.NewBinding(dep.Parent, dep.Child, fetcher, mem,
			options.WithLogger(logger),
			options.WithLocker(&s.mu),
		)
		s.bindings[dep.Parent.Name()] = append(s.bindings[dep.Parent.Name()], binding)
	}

	for _, field := range form.Fields {
		mem.SetLabel(field.Ref.Container(), field.Label)
		if len(field.Choices) > 0 {
			choices := make([]surface.Option, 0, len(field.Choices))
			for _, choice := range field.Choices {
				choices = append(choices, surface.Option{Value: choice.Value, Label: choice.Label})
			}
			mem.SetOptions(field.Ref.Input(), choices)
		}
	}
	for _, group := range form.Groups {
		mem.SetLabel(group.Container(), form.GroupLabels[group.Name()])
	}
	return s, nil
}

func resolveURL(base, ref string) (string, error) {
	if base == "" || ref == "" {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	return b.ResolveReference(r).String(), nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Form returns the session's form.
func (s *Session) Form() *model.Form { return s.form }

// Surface exposes the session surface for renderers and tests.
func (s *Session) Surface() *surface.Memory { return s.surface }

// Load prefills values, applies every rule so edit forms open with the
// right sections, shows step 0, checks date sequences and starts loading
// dependent options for prefilled parents.
func (s *Session) Load(ctx context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make(map[string]string, len(s.form.Fields))
	for _, field := range s.form.Fields {
		if field.Default != "" {
			merged[field.Name] = field.Default
		}
	}
	for name, value := range values {
		if _, ok := s.form.Field(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		merged[name] = value
	}

	if err := s.engine.EvaluateAll(merged); err != nil {
		return fmt.Errorf("session: evaluate rules: %w", err)
	}
	s.wizard.Init()
	s.dates.CheckAll()

	for parent, bindings := range s.bindings {
		ref, _ := s.form.Ref(parent)
		value := s.surface.Value(ref.Input())
		if value == "" {
			continue
		}
		for _, binding := range bindings {
			binding.Refresh(context.WithoutCancel(ctx), value)
		}
	}
	s.logger.Debug("session loaded", "prefilled", len(values))
	return nil
}

// Change records a new value for the named field and reacts to it: rules
// triggered by the field, its input constraints, date sequences it belongs
// to and dependent selects it parents. A failed constraint flags the input
// and is returned as *constraints.Error; the value is kept.
func (s *Session) Change(ctx context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	field, ok := s.form.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	if err := s.engine.OnFieldChange(field.Ref, value); err != nil {
		return fmt.Errorf("session: change %s: %w", name, err)
	}

	switch {
	case s.dates.Watches(name):
		if v, violated := s.dates.OnFieldChange(field.Ref); violated {
			s.logger.Debug("date sequence violated", "sequence", v.Sequence, "earlier", v.Earlier.Name(), "later", v.Later.Name())
		}
	case s.dates.Locked():
		// A rule may have hidden and cleared the offending dates.
		s.dates.CheckAll()
	}

	for _, binding := range s.bindings[name] {
		binding.Refresh(context.WithoutCancel(ctx), value)
	}

	return s.checkConstraint(field, value)
}

func (s *Session) checkConstraint(field model.Field, value string) error {
	input, container := field.Ref.Input(), field.Ref.Container()
	err := s.checker.Check(field.Name, value)
	var cerr *constraints.Error
	switch {
	case err == nil:
		s.surface.RemoveClass(input, surface.ClassInvalid)
		s.surface.SetMessage(container, "")
		return nil
	case errors.As(err, &cerr):
		s.surface.AddClass(input, surface.ClassInvalid)
		s.surface.SetMessage(container, cerr.Message)
		return err
	default:
		return fmt.Errorf("session: constraints for %s: %w", field.Name, err)
	}
}

// Next validates the current step and advances or submits. Displayed
// fields of the step that break an input constraint block the step like
// empty required fields do, and both are flagged by the same call. A rejected submission flags the reported fields
// and shows the first step holding one of them.
func (s *Session) Next(ctx context.Context) (wizard.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.wizard.Current()
	var blocked []model.FieldRef
	for _, ref := range s.form.Steps[current].Fields {
		if !surface.Displayed(s.surface, ref.Containers()...) {
			continue
		}
		field, _ := s.form.Field(ref.Name())
		if err := s.checkConstraint(field, s.surface.Value(ref.Input())); err != nil {
			var cerr *constraints.Error
			if !errors.As(err, &cerr) {
				return wizard.TransitionBlocked, err
			}
			blocked = append(blocked, ref)
		}
	}
	if len(blocked) > 0 {
		// Flag empty required fields in the same pass; flagging resets the
		// invalid class, so constraint failures are marked again after it.
		s.wizard.FlagRequired(current)
		for _, ref := range blocked {
			s.surface.AddClass(ref.Input(), surface.ClassInvalid)
		}
		return wizard.TransitionBlocked, nil
	}

	transition, err := s.wizard.Next(ctx)
	if transition != wizard.TransitionSubmitted {
		return transition, err
	}
	if err == nil {
		s.formErrors = nil
		return transition, nil
	}

	var serr *submit.Error
	if errors.As(err, &serr) {
		s.applySubmitError(serr)
	}
	return transition, err
}

func (s *Session) applySubmitError(serr *submit.Error) {
	s.formErrors = serr.Form
	first := -1
	for name, messages := range serr.Fields {
		ref, ok := s.form.Ref(name)
		if !ok {
			continue
		}
		for _, input := range ref.Inputs() {
			s.surface.AddClass(input, surface.ClassInvalid)
		}
		if len(messages) > 0 {
			s.surface.SetMessage(ref.Container(), messages[0])
		}
		if idx := s.stepOf(name); idx >= 0 && (first < 0 || idx < first) {
			first = idx
		}
	}
	if first >= 0 {
		_ = s.wizard.Goto(first)
	}
}

func (s *Session) stepOf(name string) int {
	ref, _ := s.form.Ref(name)
	for _, step := range s.form.Steps {
		for _, field := range step.Fields {
			if field.Name() == name || (ref.IsGroup() && field.Group() == ref.Container()) {
				return step.Index
			}
		}
	}
	return -1
}

// Prev shows the previous step.
func (s *Session) Prev() (wizard.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wizard.Prev()
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() render.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := render.BuildView(s.form, s.surface)
	view.SessionID = s.id
	view.Current = s.wizard.Current()
	view.Locked = view.Locked || s.dates.Locked()
	view.Hidden = render.SortedHiddenFields(s.meta())
	view.Errors = append([]string(nil), s.formErrors...)
	return view
}

// Values returns the values of every displayed field, as they would be
// submitted.
func (s *Session) Values() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.form.Fields))
	for _, field := range s.form.Fields {
		if surface.Displayed(s.surface, field.Ref.Containers()...) {
			out[field.Name] = s.surface.Value(field.Ref.Input())
		}
	}
	return out
}

// State returns the wizard state.
func (s *Session) State() wizard.State {
	return s.wizard.State()
}

// Wait blocks until pending dependent option loads have been applied. It
// must not be called while holding a lock the session callbacks need.
func (s *Session) Wait() {
	for _, bindings := range s.bindings {
		for _, binding := range bindings {
			binding.Wait()
		}
	}
}

func (s *Session) meta() map[string]string {
	return render.MergeHiddenFields(nil, s.hidden...)
}
