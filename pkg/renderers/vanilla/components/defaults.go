package components

import (
	"bytes"
	"fmt"
	"maps"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/render"
)

const templatePrefix = "templates/widgets/"

// DatePlaceholder hints the day/month/year layout dates are parsed with.
const DatePlaceholder = "dd/mm/yyyy"

// NewDefaultRegistry constructs a registry covering every field kind.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.html", map[string]any{"type": "text"}),
	})
	registry.MustRegister(NameNumber, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.html", map[string]any{"type": "number", "step": "any"}),
	})
	registry.MustRegister(NameEmail, Descriptor{
		Renderer: templateComponentRenderer("forms.input", templatePrefix+"input.html", map[string]any{"type": "email"}),
	})
	registry.MustRegister(NameDate, Descriptor{
		Renderer: templateComponentRenderer("forms.date", templatePrefix+"input.html", map[string]any{"type": "text", "date": true, "placeholder": DatePlaceholder}),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: templateComponentRenderer("forms.textarea", templatePrefix+"textarea.html", nil),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer("forms.select", templatePrefix+"select.html", nil),
	})

	for kind, name := range map[model.Kind]string{
		model.KindText:     NameInput,
		model.KindNumber:   NameNumber,
		model.KindEmail:    NameEmail,
		model.KindDate:     NameDate,
		model.KindTextArea: NameTextarea,
		model.KindSelect:   NameSelect,
		model.KindYesNo:    NameSelect,
	} {
		if err := registry.Bind(string(kind), name); err != nil {
			panic(err)
		}
	}
	return registry
}

func templateComponentRenderer(partialKey, templateName string, defaults map[string]any) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		resolvedTemplate := templateName
		if candidate := strings.TrimSpace(data.Partials[partialKey]); candidate != "" {
			resolvedTemplate = candidate
		}

		config := maps.Clone(defaults)
		if config == nil {
			config = make(map[string]any, len(data.Config))
		}
		for key, value := range data.Config {
			config[key] = value
		}

		payload := map[string]any{
			"field":  field,
			"config": config,
		}
		rendered, err := data.Template.RenderTemplate(resolvedTemplate, payload)
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", resolvedTemplate, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
