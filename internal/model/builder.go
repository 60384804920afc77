package model

import (
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/pkg/visibility"
	"github.com/goliatone/go-formwizard/pkg/visibility/expr"
)

const (
	inputPrefix     = "id_"
	containerPrefix = "div_id_"
	stepPrefix      = "tab-"
	indicatorPrefix = "step-"

	defaultDependentParam = "parent"
	defaultFormat         = "json"
)

var yesNoChoices = []Choice{{Value: "Y", Label: "Yes"}, {Value: "N", Label: "No"}}

// Builder converts form schemas into Form values.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	cache := expr.NewCache()
	opts := Options{
		Labeler: DefaultLabeler,
		Compiler: func(rule string) (visibility.Predicate, error) {
			return cache.Compile(rule)
		},
		Logger: slog.Default(),
	}
	if options.Labeler != nil {
		opts.Labeler = options.Labeler
	}
	if options.Compiler != nil {
		opts.Compiler = options.Compiler
	}
	if options.Logger != nil {
		opts.Logger = options.Logger
	}
	return &Builder{opts: opts}
}

// Build resolves every name in src into FieldRefs, compiles rule predicates
// and derives the required subset of each step. Structural problems (unknown
// step fields, sequences or dependents) fail the build; rules that reference
// unknown fields are kept as no-ops.
func (b *Builder) Build(src formschema.Form) (*Form, error) {
	if err := validateForm(src); err != nil {
		return nil, err
	}

	form := &Form{
		ID:          src.ID,
		Title:       src.Form.Title,
		Description: src.Form.Description,
		Endpoint:    src.Form.Endpoint,
		Method:      src.Form.Method,
		Attributes:  maps.Clone(src.Form.Attributes),
	}
	if form.Title == "" {
		form.Title = b.opts.Labeler(src.ID)
	}
	if form.Method == "" {
		form.Method = "POST"
	}

	groupOf, err := b.groupMembership(src)
	if err != nil {
		return nil, err
	}

	order, err := fieldOrder(src)
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		field, err := b.buildField(src.ID, name, src.Fields[name], groupOf[name])
		if err != nil {
			return nil, err
		}
		form.Fields = append(form.Fields, field)
	}

	form.Groups, form.GroupLabels = b.buildGroups(src, form.Fields)
	form.reindex()

	for idx, cfg := range src.Steps {
		form.Steps = append(form.Steps, b.buildStep(idx, cfg, form))
	}

	for idx, cfg := range src.Rules {
		rule, err := b.buildRule(idx, cfg, form)
		if err != nil {
			return nil, fmt.Errorf("model builder: form %q: %w", src.ID, err)
		}
		form.Rules = append(form.Rules, rule)
	}

	for idx, cfg := range src.DateSequences {
		seq, err := buildSequence(idx, cfg, form)
		if err != nil {
			return nil, fmt.Errorf("model builder: form %q: %w", src.ID, err)
		}
		form.Sequences = append(form.Sequences, seq)
	}

	for _, cfg := range src.Dependents {
		dep, err := buildDependent(cfg, form)
		if err != nil {
			return nil, fmt.Errorf("model builder: form %q: %w", src.ID, err)
		}
		form.Dependents = append(form.Dependents, dep)
	}

	return form, nil
}

// fieldOrder returns step fields in step order followed by unplaced fields
// sorted by name.
func fieldOrder(src formschema.Form) ([]string, error) {
	placed := make(map[string]string, len(src.Fields))
	var order []string
	for _, step := range src.Steps {
		for _, name := range step.Fields {
			if _, ok := src.Fields[name]; !ok {
				return nil, fmt.Errorf("model builder: form %q step %q references unknown field %q", src.ID, step.ID, name)
			}
			if other, dup := placed[name]; dup {
				return nil, fmt.Errorf("model builder: form %q field %q placed in steps %q and %q", src.ID, name, other, step.ID)
			}
			placed[name] = step.ID
			order = append(order, name)
		}
	}

	var rest []string
	for name := range src.Fields {
		if _, ok := placed[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...), nil
}

func (b *Builder) groupMembership(src formschema.Form) (map[string]string, error) {
	out := make(map[string]string)
	for name, group := range src.Groups {
		for _, member := range group.Fields {
			if _, ok := src.Fields[member]; !ok {
				return nil, fmt.Errorf("model builder: form %q group %q references unknown field %q", src.ID, name, member)
			}
			if other, dup := out[member]; dup && other != group.Container {
				return nil, fmt.Errorf("model builder: form %q field %q belongs to more than one group", src.ID, member)
			}
			out[member] = group.Container
		}
	}
	return out, nil
}

func (b *Builder) buildField(formID, name string, cfg formschema.FieldConfig, group string) (Field, error) {
	kind := Kind(strings.TrimSpace(cfg.Kind))
	if kind == "" {
		kind = KindText
	}
	if !kind.Valid() {
		return Field{}, fmt.Errorf("model builder: form %q field %q has unknown kind %q", formID, name, cfg.Kind)
	}

	input := cfg.Input
	if input == "" {
		input = inputPrefix + name
	}
	container := cfg.Container
	if container == "" {
		container = containerPrefix + name
	}
	ref := NewFieldRef(name, input, container)
	if group != "" {
		ref = ref.InGroup(group)
	}

	field := Field{
		Ref:         ref,
		Name:        name,
		Kind:        kind,
		Label:       cfg.Label,
		Help:        cfg.Help,
		Placeholder: cfg.Placeholder,
		Required:    cfg.Required != nil && *cfg.Required,
		Default:     cfg.Default,
		Metadata:    maps.Clone(cfg.Metadata),
	}
	if field.Label == "" {
		field.Label = b.opts.Labeler(name)
	}
	for _, choice := range cfg.Choices {
		label := choice.Label
		if label == "" {
			label = choice.Value
		}
		field.Choices = append(field.Choices, Choice{Value: choice.Value, Label: label})
	}
	if kind == KindYesNo && len(field.Choices) == 0 {
		field.Choices = append(field.Choices, yesNoChoices...)
	}
	for _, constraint := range cfg.Constraints {
		field.Constraints = append(field.Constraints, Constraint{
			Kind:    constraint.Kind,
			Value:   constraint.Value,
			Message: constraint.Message,
		})
	}
	return field, nil
}

func (b *Builder) buildGroups(src formschema.Form, fields []Field) ([]FieldRef, map[string]string) {
	byName := make(map[string]FieldRef, len(fields))
	for _, field := range fields {
		byName[field.Name] = field.Ref
	}

	names := make([]string, 0, len(src.Groups))
	for name := range src.Groups {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]FieldRef, 0, len(names))
	labels := make(map[string]string, len(names))
	for _, name := range names {
		cfg := src.Groups[name]
		labels[name] = cfg.Label
		if labels[name] == "" {
			labels[name] = b.opts.Labeler(name)
		}
		members := make([]FieldRef, 0, len(cfg.Fields))
		for _, member := range cfg.Fields {
			members = append(members, byName[member])
		}
		groups = append(groups, NewGroupRef(name, cfg.Container, members...))
	}
	return groups, labels
}

func (b *Builder) buildStep(idx int, cfg formschema.StepConfig, form *Form) Step {
	step := Step{
		Index:       idx,
		ID:          cfg.ID,
		Title:       cfg.Title,
		Description: cfg.Description,
		Container:   stepPrefix + cfg.ID,
		Indicator:   indicatorPrefix + cfg.ID,
	}
	if step.Title == "" {
		step.Title = b.opts.Labeler(cfg.ID)
	}
	for _, name := range cfg.Fields {
		field, _ := form.Field(name)
		step.Fields = append(step.Fields, field.Ref)
		if field.Required {
			step.Required = append(step.Required, field.Ref)
		}
	}
	return step
}

func (b *Builder) buildRule(idx int, cfg formschema.RuleConfig, form *Form) (Rule, error) {
	rule := Rule{
		Name:        strings.TrimSpace(cfg.Name),
		Expression:  strings.TrimSpace(cfg.When),
		ClearOnHide: !cfg.KeepValue,
	}
	if rule.Name == "" {
		rule.Name = fmt.Sprintf("rule-%d", idx)
	}

	predicate, err := b.opts.Compiler(rule.Expression)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %q: %w", rule.Name, err)
	}
	rule.Predicate = predicate

	triggers := cfg.Triggers
	if cfg.Trigger != "" {
		triggers = append([]string{cfg.Trigger}, triggers...)
	}
	if len(triggers) == 0 {
		if program, ok := predicate.(*expr.Program); ok {
			triggers = program.Identifiers()
		}
	}

	resolve := func(names []string) []FieldRef {
		refs := make([]FieldRef, 0, len(names))
		for _, name := range names {
			ref, ok := form.Ref(name)
			if !ok {
				rule.Missing = append(rule.Missing, name)
				continue
			}
			refs = append(refs, ref)
		}
		return refs
	}
	rule.Triggers = resolve(triggers)
	rule.Show = resolve(cfg.Show)
	rule.Otherwise = resolve(cfg.Otherwise)

	if len(rule.Missing) > 0 {
		b.opts.Logger.Debug("visibility rule has unresolved references",
			"form", form.ID, "rule", rule.Name, "missing", rule.Missing, "noop", rule.Noop())
	}
	return rule, nil
}

func buildSequence(idx int, cfg formschema.SequenceConfig, form *Form) (DateSequence, error) {
	seq := DateSequence{Name: cfg.Name, Layout: cfg.Layout}
	if seq.Name == "" {
		seq.Name = fmt.Sprintf("sequence-%d", idx)
	}
	if seq.Layout == "" {
		seq.Layout = DefaultDateLayout
	}
	if len(cfg.Fields) < 2 {
		return DateSequence{}, fmt.Errorf("date sequence %q needs at least two fields", seq.Name)
	}
	for _, name := range cfg.Fields {
		field, ok := form.Field(name)
		if !ok {
			return DateSequence{}, fmt.Errorf("date sequence %q references unknown field %q", seq.Name, name)
		}
		seq.Fields = append(seq.Fields, field.Ref)
	}
	return seq, nil
}

func buildDependent(cfg formschema.DependentConfig, form *Form) (Dependent, error) {
	parent, ok := form.Field(cfg.Parent)
	if !ok {
		return Dependent{}, fmt.Errorf("dependent references unknown parent %q", cfg.Parent)
	}
	child, ok := form.Field(cfg.Child)
	if !ok {
		return Dependent{}, fmt.Errorf("dependent references unknown child %q", cfg.Child)
	}

	url := cfg.URL
	if url == "" && cfg.URLAttribute != "" {
		url = form.Attributes[cfg.URLAttribute]
	}
	if url == "" {
		return Dependent{}, fmt.Errorf("dependent %q -> %q has no url", cfg.Parent, cfg.Child)
	}

	dep := Dependent{
		Parent:   parent.Ref,
		Child:    child.Ref,
		URL:      url,
		Param:    cfg.Param,
		Format:   strings.ToLower(cfg.Format),
		Results:  cfg.Results,
		ValueKey: cfg.ValueKey,
		LabelKey: cfg.LabelKey,
	}
	if dep.Param == "" {
		dep.Param = defaultDependentParam
	}
	if dep.Format == "" {
		dep.Format = defaultFormat
	}
	return dep, nil
}
