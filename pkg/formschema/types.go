package formschema

import (
	"errors"
	"fmt"
	"sort"
)

// ErrFormNotFound is returned by Store.Lookup for unknown form ids.
var ErrFormNotFound = errors.New("formschema: form not found")

// Store keeps the parsed forms. It is safe for concurrent readers when treated
// as immutable after construction.
type Store struct {
	forms map[string]Form
}

// Form is the declarative description of one wizard form.
type Form struct {
	ID            string
	Source        string
	Form          FormConfig
	Steps         []StepConfig
	Groups        map[string]GroupConfig
	Fields        map[string]FieldConfig
	Rules         []RuleConfig
	DateSequences []SequenceConfig
	Dependents    []DependentConfig
	OpenAPI       *OpenAPIConfig
}

// FormConfig holds the form level attributes. Attributes mirrors data-*
// attributes on the form element, for example unitsURL.
type FormConfig struct {
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	Endpoint    string            `json:"endpoint" yaml:"endpoint"`
	Method      string            `json:"method" yaml:"method"`
	Attributes  map[string]string `json:"attributes" yaml:"attributes"`
}

// StepConfig is one wizard tab and the fields it contains, in display order.
type StepConfig struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Fields      []string `json:"fields" yaml:"fields"`
}

// GroupConfig wraps several fields in one container that rules can target as
// a unit.
type GroupConfig struct {
	Container string   `json:"container" yaml:"container"`
	Label     string   `json:"label" yaml:"label"`
	Fields    []string `json:"fields" yaml:"fields"`
}

// FieldConfig describes a single input.
type FieldConfig struct {
	Kind        string             `json:"kind" yaml:"kind"`
	Label       string             `json:"label" yaml:"label"`
	Help        string             `json:"help" yaml:"help"`
	Placeholder string             `json:"placeholder" yaml:"placeholder"`
	Required    *bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Default     string             `json:"default" yaml:"default"`
	Choices     []ChoiceConfig     `json:"choices" yaml:"choices"`
	ChoiceSet   string             `json:"choiceSet" yaml:"choiceSet"`
	Input       string             `json:"input" yaml:"input"`
	Container   string             `json:"container" yaml:"container"`
	Constraints []ConstraintConfig `json:"constraints" yaml:"constraints"`
	Metadata    map[string]string  `json:"metadata" yaml:"metadata"`
}

// ChoiceConfig is one select option.
type ChoiceConfig struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// ConstraintConfig is a native input constraint such as pattern or min.
type ConstraintConfig struct {
	Kind    string `json:"kind" yaml:"kind"`
	Value   string `json:"value" yaml:"value"`
	Message string `json:"message" yaml:"message"`
}

// RuleConfig declares a visibility rule. Show lists targets displayed while
// When holds; Otherwise lists targets displayed while it does not.
type RuleConfig struct {
	Name      string   `json:"name" yaml:"name"`
	Trigger   string   `json:"trigger" yaml:"trigger"`
	Triggers  []string `json:"triggers" yaml:"triggers"`
	When      string   `json:"when" yaml:"when"`
	Show      []string `json:"show" yaml:"show"`
	Otherwise []string `json:"otherwise" yaml:"otherwise"`
	KeepValue bool     `json:"keepValue" yaml:"keepValue"`
}

// SequenceConfig lists date fields that must be strictly increasing.
type SequenceConfig struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
	Layout string   `json:"layout" yaml:"layout"`
}

// DependentConfig binds a child select to options fetched for its parent.
// URL may be empty when URLAttribute names a form attribute holding it.
type DependentConfig struct {
	Parent       string `json:"parent" yaml:"parent"`
	Child        string `json:"child" yaml:"child"`
	URL          string `json:"url" yaml:"url"`
	URLAttribute string `json:"urlAttribute" yaml:"urlAttribute"`
	Param        string `json:"param" yaml:"param"`
	Format       string `json:"format" yaml:"format"`
	Results      string `json:"results" yaml:"results"`
	ValueKey     string `json:"valueKey" yaml:"valueKey"`
	LabelKey     string `json:"labelKey" yaml:"labelKey"`
}

// OpenAPIConfig imports field definitions from an OpenAPI request body. The
// document path is resolved relative to the schema file.
type OpenAPIConfig struct {
	Document  string `json:"document" yaml:"document"`
	Operation string `json:"operation" yaml:"operation"`
}

// Form returns the form registered under id.
func (s *Store) Form(id string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	form, ok := s.forms[id]
	return form, ok
}

// Lookup is like Form but returns ErrFormNotFound for unknown ids.
func (s *Store) Lookup(id string) (Form, error) {
	form, ok := s.Form(id)
	if !ok {
		return Form{}, fmt.Errorf("%w: %q", ErrFormNotFound, id)
	}
	return form, nil
}

// IDs returns the registered form ids in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.forms))
	for id := range s.forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}
