package vanilla

import (
	"bytes"
	"fmt"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/renderers/vanilla/components"
)

// The payload types extend the view with the resolved class attribute of
// each element and the pre-rendered control of each field.

type elementPayload struct {
	render.Element
	Class string `json:"class"`
}

type fieldPayload struct {
	render.FieldView
	Help      string         `json:"help,omitempty"`
	Container elementPayload `json:"container"`
	Input     elementPayload `json:"input"`
	HTML      string         `json:"html"`
}

type sectionPayload struct {
	Group  *elementPayload `json:"group,omitempty"`
	Label  string          `json:"label,omitempty"`
	Fields []fieldPayload  `json:"fields"`
}

type stepPayload struct {
	render.StepView
	Container elementPayload   `json:"container"`
	Indicator elementPayload   `json:"indicator"`
	Sections  []sectionPayload `json:"sections"`
}

type formPayload struct {
	render.View
	Steps []stepPayload  `json:"steps"`
	Prev  elementPayload `json:"prev"`
	Next  elementPayload `json:"next"`
}

func element(el render.Element, base string) elementPayload {
	return elementPayload{Element: el, Class: classList(base, el.Classes)}
}

func (r *Renderer) formPayload(view render.View, partials map[string]string) (formPayload, error) {
	out := formPayload{
		View: view,
		Prev: element(view.Prev, controlButtonsClass),
		Next: element(view.Next, controlButtonsClass),
	}
	for _, step := range view.Steps {
		sp := stepPayload{
			StepView:  step,
			Container: element(step.Container, r.chrome["tab"]),
			Indicator: element(step.Indicator, stepIndicatorClass),
		}
		for _, section := range step.Sections {
			sec := sectionPayload{Label: section.Label}
			if section.Group != nil {
				group := element(*section.Group, r.chrome["fieldset"])
				sec.Group = &group
			}
			for _, field := range section.Fields {
				fp, err := r.fieldPayload(field, partials)
				if err != nil {
					return formPayload{}, err
				}
				sec.Fields = append(sec.Fields, fp)
			}
			sp.Sections = append(sp.Sections, sec)
		}
		out.Steps = append(out.Steps, sp)
	}
	return out, nil
}

func (r *Renderer) fieldPayload(field render.FieldView, partials map[string]string) (fieldPayload, error) {
	fp := fieldPayload{
		FieldView: field,
		Help:      r.policy.Sanitize(field.Help),
		Container: element(field.Container, r.chrome["field"]),
		Input:     element(field.Input, inputBaseClass),
	}

	descriptor, ok := r.component(field)
	if !ok {
		return fieldPayload{}, fmt.Errorf("no component registered for field %q of kind %q", field.Name, field.Kind)
	}

	var buf bytes.Buffer
	err := descriptor.Renderer(&buf, field, components.ComponentData{
		Template: r.templates,
		Partials: partials,
		Config:   map[string]any{"class": fp.Input.Class},
	})
	if err != nil {
		return fieldPayload{}, fmt.Errorf("render component %q for field %q: %w", descriptor.Name, field.Name, err)
	}
	fp.HTML = buf.String()
	return fp, nil
}

func (r *Renderer) component(field render.FieldView) (components.Descriptor, bool) {
	if name, ok := r.overrides[field.Name]; ok {
		return r.registry.Descriptor(name)
	}
	return r.registry.ForKind(string(field.Kind))
}
