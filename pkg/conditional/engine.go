package conditional

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Engine applies visibility rules to a surface. Rules run in declaration
// order, so a later rule targeting the same element wins.
type Engine struct {
	surface surface.Surface
	logger  *slog.Logger
	extras  map[string]any

	mu       sync.Mutex
	rules    []model.Rule
	fields   []model.Field
	byName   map[string]model.Field
	reported map[string]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFields tells the engine which fields exist so it can read their current
// values and resolve option labels for `labels.` lookups.
func WithFields(fields ...model.Field) Option {
	return func(e *Engine) {
		for _, field := range fields {
			if _, ok := e.byName[field.Name]; ok {
				continue
			}
			e.fields = append(e.fields, field)
			e.byName[field.Name] = field
		}
	}
}

// WithExtras exposes host values to predicates under the `extras.` prefix.
func WithExtras(extras map[string]any) Option {
	return func(e *Engine) {
		e.extras = extras
	}
}

// New returns an engine writing to s.
func New(s surface.Surface, opts ...Option) *Engine {
	e := &Engine{
		surface:  s,
		logger:   slog.Default(),
		byName:   make(map[string]model.Field),
		reported: make(map[string]bool),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Register appends rule to the ordered rule set.
func (e *Engine) Register(rule model.Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in declaration order.
func (e *Engine) Rules() []model.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Rule(nil), e.rules...)
}

// EvaluateAll writes values to the surface and applies every rule against
// them. It is meant for form load so that pre-filled edit forms start with
// the right sections shown.
func (e *Engine) EvaluateAll(values map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range values {
		if field, ok := e.byName[name]; ok {
			e.surface.SetValue(field.Ref.Input(), value)
		}
	}

	snapshot := e.snapshot(values)
	var cleared []string
	for _, rule := range e.rules {
		names, err := e.apply(rule, snapshot)
		if err != nil {
			return err
		}
		cleared = append(cleared, names...)
	}
	return e.cascade(snapshot, cleared, map[string]bool{})
}

// OnFieldChange stores value for field and re-applies the rules it triggers.
func (e *Engine) OnFieldChange(field model.FieldRef, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if input := field.Input(); input != "" {
		e.surface.SetValue(input, value)
	}

	snapshot := e.snapshot(nil)
	snapshot.Values[field.Name()] = value
	e.refreshLabel(snapshot, field.Name())

	return e.cascade(snapshot, []string{field.Name()}, map[string]bool{})
}

// cascade applies the rules triggered by each name in pending, then those
// triggered by the fields those rules cleared. A name runs its rules at most
// once per pass, so cyclic rules terminate.
func (e *Engine) cascade(ctx visibility.Context, pending []string, visited map[string]bool) error {
	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		if visited[name] {
			continue
		}
		visited[name] = true
		for _, rule := range e.rules {
			if !rule.TriggeredBy(name) {
				continue
			}
			cleared, err := e.apply(rule, ctx)
			if err != nil {
				return err
			}
			pending = append(pending, cleared...)
		}
	}
	return nil
}

// snapshot reads the current field values from the surface, overlaying
// overrides.
func (e *Engine) snapshot(overrides map[string]string) visibility.Context {
	ctx := visibility.Context{
		Values: make(map[string]any, len(e.fields)),
		Labels: make(map[string]string, len(e.fields)),
		Extras: e.extras,
	}
	for _, field := range e.fields {
		ctx.Values[field.Name] = e.surface.Value(field.Ref.Input())
	}
	for name, value := range overrides {
		ctx.Values[name] = value
	}
	for name := range ctx.Values {
		e.refreshLabel(ctx, name)
	}
	return ctx
}

func (e *Engine) refreshLabel(ctx visibility.Context, name string) {
	field, ok := e.byName[name]
	if !ok {
		return
	}
	value, _ := ctx.Values[name].(string)
	if value == "" {
		delete(ctx.Labels, name)
		return
	}
	for _, option := range e.surface.Options(field.Ref.Input()) {
		if option.Value == value {
			ctx.Labels[name] = option.Label
			return
		}
	}
	if label, ok := field.ChoiceLabel(value); ok {
		ctx.Labels[name] = label
		return
	}
	delete(ctx.Labels, name)
}

// apply runs rule against ctx and returns the names of the fields it
// cleared.
func (e *Engine) apply(rule model.Rule, ctx visibility.Context) ([]string, error) {
	if rule.Noop() || rule.Predicate == nil {
		e.reportNoop(rule)
		return nil, nil
	}

	ok, err := rule.Predicate.Eval(ctx)
	if err != nil {
		return nil, fmt.Errorf("conditional: rule %q: %w", rule.Name, err)
	}

	shown, hidden := rule.Show, rule.Otherwise
	if !ok {
		shown, hidden = hidden, shown
	}
	for _, target := range shown {
		e.show(target)
	}
	var cleared []string
	for _, target := range hidden {
		cleared = append(cleared, e.hide(target, rule.ClearOnHide, ctx)...)
	}
	return cleared, nil
}

func (e *Engine) show(target model.FieldRef) {
	if !e.surface.Has(target.Container()) {
		return
	}
	e.surface.SetVisible(target.Container(), true)
}

// hide hides target and, when clear is set, empties every input it covers
// and drops their markers. Cleared values are written back to ctx so later
// rules in the same pass see them; the names of fields that held a value are
// returned.
func (e *Engine) hide(target model.FieldRef, clear bool, ctx visibility.Context) []string {
	if !e.surface.Has(target.Container()) {
		return nil
	}
	e.surface.SetVisible(target.Container(), false)
	if !clear {
		return nil
	}

	refs := []model.FieldRef{target}
	if target.IsGroup() {
		refs = target.Members()
	}
	var cleared []string
	for _, ref := range refs {
		if ref.Input() == "" {
			continue
		}
		if e.surface.Value(ref.Input()) != "" {
			cleared = append(cleared, ref.Name())
		}
		e.surface.SetValue(ref.Input(), "")
		e.surface.RemoveClass(ref.Input(), surface.ClassInvalid)
		e.surface.RemoveClass(ref.Input(), surface.ClassRedBorder)
		if _, tracked := ctx.Values[ref.Name()]; tracked {
			ctx.Values[ref.Name()] = ""
			delete(ctx.Labels, ref.Name())
		}
	}
	return cleared
}

func (e *Engine) reportNoop(rule model.Rule) {
	if e.reported[rule.Name] {
		return
	}
	e.reported[rule.Name] = true
	e.logger.Debug("skipping visibility rule with unresolved references",
		"rule", rule.Name, "missing", rule.Missing)
}
