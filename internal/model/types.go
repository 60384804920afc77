package model

import (
	"slices"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Kind is the input widget a field renders as.
type Kind string

const (
	KindText     Kind = "text"
	KindTextArea Kind = "textarea"
	KindNumber   Kind = "number"
	KindDate     Kind = "date"
	KindSelect   Kind = "select"
	KindYesNo    Kind = "yesno"
	KindEmail    Kind = "email"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindTextArea, KindNumber, KindDate, KindSelect, KindYesNo, KindEmail:
		return true
	}
	return false
}

// Constraint kinds understood by pkg/constraints.
const (
	ConstraintPattern   = "pattern"
	ConstraintMin       = "min"
	ConstraintMax       = "max"
	ConstraintMinLength = "minLength"
	ConstraintMaxLength = "maxLength"
	ConstraintNotFuture = "notFuture"
)

// DefaultDateLayout is the dd/mm/yyyy layout used by the registry date pickers.
const DefaultDateLayout = "02/01/2006"

// Constraint is a native input constraint. Value holds the threshold or
// expression; Message overrides the default feedback text.
type Constraint struct {
	Kind    string `json:"kind"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// Choice is one option of a select field.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FieldRef is a resolved handle to a field or a group of fields. It carries
// the element ids the surface knows the field by.
type FieldRef struct {
	name      string
	input     string
	container string
	group     string
	members   []FieldRef
}

// NewFieldRef returns a handle for a single input wrapped in container.
func NewFieldRef(name, input, container string) FieldRef {
	return FieldRef{name: name, input: input, container: container}
}

// NewGroupRef returns a handle for a container wrapping several fields.
func NewGroupRef(name, container string, members ...FieldRef) FieldRef {
	return FieldRef{name: name, container: container, members: slices.Clone(members)}
}

// InGroup returns a copy of r nested inside the group container.
func (r FieldRef) InGroup(container string) FieldRef {
	r.group = container
	return r
}

func (r FieldRef) Name() string      { return r.name }
func (r FieldRef) Input() string     { return r.input }
func (r FieldRef) Container() string { return r.container }
func (r FieldRef) Group() string     { return r.group }
func (r FieldRef) IsGroup() bool     { return r.input == "" && len(r.members) > 0 }
func (r FieldRef) IsZero() bool      { return r.name == "" }

// Members returns the fields of a group ref.
func (r FieldRef) Members() []FieldRef { return slices.Clone(r.members) }

// Containers lists the element ids that must all be visible for the field to
// be displayed.
func (r FieldRef) Containers() []string {
	if r.group == "" {
		return []string{r.container}
	}
	return []string{r.container, r.group}
}

// Inputs lists the input ids the ref covers: its own input or every member
// input for a group.
func (r FieldRef) Inputs() []string {
	if r.input != "" {
		return []string{r.input}
	}
	out := make([]string, 0, len(r.members))
	for _, member := range r.members {
		out = append(out, member.Inputs()...)
	}
	return out
}

// Field is one input of a form.
type Field struct {
	Ref         FieldRef          `json:"-"`
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	Label       string            `json:"label,omitempty"`
	Help        string            `json:"help,omitempty"`
	Placeholder string            `json:"placeholder,omitempty"`
	Required    bool              `json:"required"`
	Default     string            `json:"default,omitempty"`
	Choices     []Choice          `json:"choices,omitempty"`
	Constraints []Constraint      `json:"constraints,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ChoiceLabel returns the label of the choice whose value is value.
func (f Field) ChoiceLabel(value string) (string, bool) {
	for _, choice := range f.Choices {
		if choice.Value == value {
			return choice.Label, true
		}
	}
	return "", false
}

// Step is one wizard tab. Required is the subset of Fields that must be
// non-empty to leave the step.
type Step struct {
	Index       int        `json:"index"`
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Container   string     `json:"container"`
	Indicator   string     `json:"indicator"`
	Fields      []FieldRef `json:"-"`
	Required    []FieldRef `json:"-"`
}

// Rule shows Show and hides Otherwise while Predicate holds, and the reverse
// while it does not. Missing records references that did not resolve.
type Rule struct {
	Name        string
	Expression  string
	Triggers    []FieldRef
	Predicate   visibility.Predicate
	Show        []FieldRef
	Otherwise   []FieldRef
	ClearOnHide bool
	Missing     []string
}

// Noop reports whether the rule lost its trigger or every target at build
// time.
func (r Rule) Noop() bool {
	return len(r.Triggers) == 0 || len(r.Show)+len(r.Otherwise) == 0
}

// TriggeredBy reports whether a change to name re-evaluates the rule.
func (r Rule) TriggeredBy(name string) bool {
	for _, trigger := range r.Triggers {
		if trigger.Name() == name {
			return true
		}
	}
	return false
}

// DateSequence lists date fields that must be strictly increasing.
type DateSequence struct {
	Name   string
	Layout string
	Fields []FieldRef
}

// Dependent binds a child select to options fetched for its parent value.
type Dependent struct {
	Parent   FieldRef
	Child    FieldRef
	URL      string
	Param    string
	Format   string
	Results  string
	ValueKey string
	LabelKey string
}

// Form is a built, immutable wizard form.
type Form struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Method      string            `json:"method"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Fields      []Field           `json:"fields"`
	Steps       []Step            `json:"steps"`
	Groups      []FieldRef        `json:"-"`
	GroupLabels map[string]string `json:"-"`
	Rules       []Rule            `json:"-"`
	Sequences   []DateSequence    `json:"-"`
	Dependents  []Dependent       `json:"-"`

	index map[string]int
	refs  map[string]FieldRef
}

// Field returns the field called name.
func (f *Form) Field(name string) (Field, bool) {
	if f == nil {
		return Field{}, false
	}
	idx, ok := f.index[name]
	if !ok {
		return Field{}, false
	}
	return f.Fields[idx], true
}

// Ref resolves a field or group name.
func (f *Form) Ref(name string) (FieldRef, bool) {
	if f == nil {
		return FieldRef{}, false
	}
	ref, ok := f.refs[name]
	return ref, ok
}

// FieldNames returns field names in form order.
func (f *Form) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		names = append(names, field.Name)
	}
	return names
}

// ElementIDs lists every surface element the form declares: step containers
// and indicators, groups, field containers and inputs.
func (f *Form) ElementIDs() []string {
	var ids []string
	for _, step := range f.Steps {
		ids = append(ids, step.Container, step.Indicator)
	}
	for _, group := range f.Groups {
		ids = append(ids, group.Container())
	}
	for _, field := range f.Fields {
		ids = append(ids, field.Ref.Container(), field.Ref.Input())
	}
	return ids
}

func (f *Form) reindex() {
	f.index = make(map[string]int, len(f.Fields))
	f.refs = make(map[string]FieldRef, len(f.Fields)+len(f.Groups))
	for idx, field := range f.Fields {
		f.index[field.Name] = idx
		f.refs[field.Name] = field.Ref
	}
	for _, group := range f.Groups {
		f.refs[group.Name()] = group
	}
}
