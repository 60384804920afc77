package model

import internalmodel "github.com/goliatone/go-formwizard/internal/model"

type Kind = internalmodel.Kind

const (
	KindText     = internalmodel.KindText
	KindTextArea = internalmodel.KindTextArea
	KindNumber   = internalmodel.KindNumber
	KindDate     = internalmodel.KindDate
	KindSelect   = internalmodel.KindSelect
	KindYesNo    = internalmodel.KindYesNo
	KindEmail    = internalmodel.KindEmail
)

const (
	ConstraintPattern   = internalmodel.ConstraintPattern
	ConstraintMin       = internalmodel.ConstraintMin
	ConstraintMax       = internalmodel.ConstraintMax
	ConstraintMinLength = internalmodel.ConstraintMinLength
	ConstraintMaxLength = internalmodel.ConstraintMaxLength
	ConstraintNotFuture = internalmodel.ConstraintNotFuture

	DefaultDateLayout = internalmodel.DefaultDateLayout
)

type (
	Constraint   = internalmodel.Constraint
	Choice       = internalmodel.Choice
	FieldRef     = internalmodel.FieldRef
	Field        = internalmodel.Field
	Step         = internalmodel.Step
	Rule         = internalmodel.Rule
	DateSequence = internalmodel.DateSequence
	Dependent    = internalmodel.Dependent
	Form         = internalmodel.Form
)

// NewFieldRef returns a handle for a single input wrapped in container.
func NewFieldRef(name, input, container string) FieldRef {
	return internalmodel.NewFieldRef(name, input, container)
}

// NewGroupRef returns a handle for a container wrapping several fields.
func NewGroupRef(name, container string, members ...FieldRef) FieldRef {
	return internalmodel.NewGroupRef(name, container, members...)
}

// FormState is the serialised form handed to a submitter: the values of the
// displayed fields plus hidden/meta fields such as a CSRF token.
type FormState struct {
	FormID string            `json:"formId"`
	Values map[string]string `json:"values"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Ack is a successful submission response.
type Ack struct {
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
	Body     []byte `json:"-"`
}
