package render

import (
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

var markerClasses = []string{
	surface.ClassActive,
	surface.ClassFinish,
	surface.ClassInvalid,
	surface.ClassRedBorder,
	surface.ClassGrayText,
	surface.ClassError,
}

// Element is the rendered state of one surface element.
type Element struct {
	ID       string   `json:"id"`
	Visible  bool     `json:"visible"`
	Classes  []string `json:"classes,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
	Label    string   `json:"label,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// HasClass reports whether class is set on the element.
func (e Element) HasClass(class string) bool {
	for _, c := range e.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// FieldView is one field with its container and input state.
type FieldView struct {
	Name        string           `json:"name"`
	Kind        model.Kind       `json:"kind"`
	Label       string           `json:"label"`
	Help        string           `json:"help,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required"`
	Value       string           `json:"value"`
	Options     []surface.Option `json:"options,omitempty"`
	Container   Element          `json:"container"`
	Input       Element          `json:"input"`
	Errors      []string         `json:"errors,omitempty"`
}

// Section is a run of fields inside a step. Grouped runs carry the group
// container; ungrouped runs leave Group zero.
type Section struct {
	Group  *Element    `json:"group,omitempty"`
	Label  string      `json:"label,omitempty"`
	Fields []FieldView `json:"fields"`
}

// StepView is one wizard tab.
type StepView struct {
	Index     int       `json:"index"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Container Element   `json:"container"`
	Indicator Element   `json:"indicator"`
	Sections  []Section `json:"sections"`
}

// View is a point in time snapshot of a wizard session, independent of any
// output format.
type View struct {
	SessionID   string        `json:"sessionId,omitempty"`
	FormID      string        `json:"formId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Endpoint    string        `json:"endpoint"`
	Method      string        `json:"method"`
	Current     int           `json:"current"`
	Count       int           `json:"count"`
	Locked      bool          `json:"locked"`
	Steps       []StepView    `json:"steps"`
	Prev        Element       `json:"prev"`
	Next        Element       `json:"next"`
	Hidden      []HiddenField `json:"hidden,omitempty"`
	Errors      []string      `json:"errors,omitempty"`
}

// CurrentStep returns the visible step.
func (v View) CurrentStep() (StepView, bool) {
	if v.Current < 0 || v.Current >= len(v.Steps) {
		return StepView{}, false
	}
	return v.Steps[v.Current], true
}

// Field finds a field by name across every step.
func (v View) Field(name string) (FieldView, bool) {
	for _, step := range v.Steps {
		for _, section := range step.Sections {
			for _, field := range section.Fields {
				if field.Name == name {
					return field, true
				}
			}
		}
	}
	return FieldView{}, false
}

// BuildView reads the state of form's elements from s.
func BuildView(form *model.Form, s surface.Surface) View {
	view := View{
		FormID:      form.ID,
		Title:       form.Title,
		Description: form.Description,
		Endpoint:    form.Endpoint,
		Method:      form.Method,
		Count:       len(form.Steps),
		Prev:        ElementOf(s, wizard.PrevControl),
		Next:        ElementOf(s, wizard.NextControl),
	}

	groups := make(map[string]model.FieldRef, len(form.Groups))
	for _, group := range form.Groups {
		for _, member := range group.Members() {
			groups[member.Name()] = group
		}
	}

	for _, step := range form.Steps {
		sv := StepView{
			Index:     step.Index,
			ID:        step.ID,
			Title:     step.Title,
			Container: ElementOf(s, step.Container),
			Indicator: ElementOf(s, step.Indicator),
		}
		if sv.Container.Visible {
			view.Current = step.Index
		}

		for _, ref := range step.Fields {
			field, ok := form.Field(ref.Name())
			if !ok {
				continue
			}
			group, grouped := groups[ref.Name()]
			sv.Sections = appendField(sv.Sections, s, field, group, grouped)
		}
		view.Steps = append(view.Steps, sv)
	}
	view.Locked = view.Next.Disabled
	return view
}

func appendField(sections []Section, s surface.Surface, field model.Field, group model.FieldRef, grouped bool) []Section {
	fv := FieldView{
		Name:        field.Name,
		Kind:        field.Kind,
		Label:       field.Label,
		Help:        field.Help,
		Placeholder: field.Placeholder,
		Required:    field.Required,
		Value:       s.Value(field.Ref.Input()),
		Options:     s.Options(field.Ref.Input()),
		Container:   ElementOf(s, field.Ref.Container()),
		Input:       ElementOf(s, field.Ref.Input()),
	}
	if msg := fv.Container.Message; msg != "" {
		fv.Errors = append(fv.Errors, msg)
	}

	last := len(sections) - 1
	switch {
	case grouped && last >= 0 && sections[last].Group != nil && sections[last].Group.ID == group.Container():
		sections[last].Fields = append(sections[last].Fields, fv)
	case grouped:
		el := ElementOf(s, group.Container())
		sections = append(sections, Section{Group: &el, Label: el.Label, Fields: []FieldView{fv}})
	case last >= 0 && sections[last].Group == nil:
		sections[last].Fields = append(sections[last].Fields, fv)
	default:
		sections = append(sections, Section{Fields: []FieldView{fv}})
	}
	return sections
}

// ElementOf reads one element from s.
func ElementOf(s surface.Surface, id string) Element {
	el := Element{
		ID:       id,
		Visible:  s.Visible(id),
		Disabled: s.Disabled(id),
		Label:    s.Label(id),
		Message:  s.Message(id),
	}
	for _, class := range markerClasses {
		if s.HasClass(id, class) {
			el.Classes = append(el.Classes, class)
		}
	}
	return el
}

// Apply merges opts into the view: hidden fields, form errors and field
// errors.
func (v View) Apply(opts RenderOptions) View {
	if opts.Action != "" {
		v.Endpoint = opts.Action
	}
	if len(opts.Hidden) > 0 {
		merged := MergeHiddenFields(hiddenMap(v.Hidden), opts.Hidden...)
		v.Hidden = SortedHiddenFields(merged)
	}
	v.Errors = MergeFormErrors(v.Errors, opts.FormErrors...)
	if len(opts.Errors) == 0 {
		return v
	}

	steps := make([]StepView, len(v.Steps))
	for i, step := range v.Steps {
		sections := make([]Section, len(step.Sections))
		for j, section := range step.Sections {
			fields := make([]FieldView, len(section.Fields))
			for k, field := range section.Fields {
				if extra, ok := opts.Errors[field.Name]; ok {
					field.Errors = normalizeMessages(append(append([]string(nil), field.Errors...), extra...))
				}
				fields[k] = field
			}
			section.Fields = fields
			sections[j] = section
		}
		step.Sections = sections
		steps[i] = step
	}
	v.Steps = steps
	return v
}

func hiddenMap(fields []HiddenField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, field := range fields {
		out[field.Name] = field.Value
	}
	return out
}
