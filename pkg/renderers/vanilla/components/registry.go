package components

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/render"
	rendertemplate "github.com/goliatone/go-formwizard/pkg/render/template"
)

// Renderer writes the control of one field into buf. The surrounding
// container, label and messages are rendered by the form template.
type Renderer func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error

// ComponentData carries helpers and configuration for component renderers.
type ComponentData struct {
	Template rendertemplate.TemplateRenderer
	// Partials are theme overrides keyed by partial name, e.g. "forms.select".
	Partials map[string]string
	Config   map[string]any
}

// Descriptor is a named component renderer.
type Descriptor struct {
	Name     string
	Renderer Renderer
}

// Registry maps component names to renderers and field kinds to the
// component they render with. Unbound kinds render as plain inputs.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Descriptor
	kinds      map[string]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]Descriptor),
		kinds:      make(map[string]string),
	}
}

// Clone returns a copy that can be rebound without touching r.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry{
		components: maps.Clone(r.components),
		kinds:      maps.Clone(r.kinds),
	}
}

// Register stores renderer under name, replacing any previous entry.
func (r *Registry) Register(name string, descriptor Descriptor) error {
	if name = normalize(name); name == "" {
		return fmt.Errorf("components: component name is required")
	}
	if descriptor.Renderer == nil {
		return fmt.Errorf("components: renderer for %q is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	descriptor.Name = name
	r.components[name] = descriptor
	return nil
}

// MustRegister is Register for static setup.
func (r *Registry) MustRegister(name string, descriptor Descriptor) {
	if err := r.Register(name, descriptor); err != nil {
		panic(err)
	}
}

// Descriptor fetches a component by name.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descriptor, ok := r.components[normalize(name)]
	return descriptor, ok
}

// Bind renders fields of kind with the named component.
func (r *Registry) Bind(kind, name string) error {
	kind, name = normalize(kind), normalize(name)
	if kind == "" || name == "" {
		return fmt.Errorf("components: kind and component name are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.components[name]; !ok {
		return fmt.Errorf("components: component %q not registered", name)
	}
	r.kinds[kind] = name
	return nil
}

// ForKind returns the component bound to kind, falling back to the input
// component.
func (r *Registry) ForKind(kind string) (Descriptor, bool) {
	r.mu.RLock()
	name, ok := r.kinds[normalize(kind)]
	r.mu.RUnlock()
	if !ok {
		name = NameInput
	}
	return r.Descriptor(name)
}

// Names returns the registered component names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.components))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
