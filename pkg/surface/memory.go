package surface

import (
	"slices"
	"sort"
	"sync"
)

// Element is a point in time copy of one element held by Memory.
type Element struct {
	ID       string   `json:"id"`
	Visible  bool     `json:"visible"`
	Value    string   `json:"value,omitempty"`
	Label    string   `json:"label,omitempty"`
	Classes  []string `json:"classes,omitempty"`
	Disabled bool     `json:"disabled,omitempty"`
	Options  []Option `json:"options,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// HasClass reports whether the element carries class.
func (e Element) HasClass(class string) bool {
	return slices.Contains(e.Classes, class)
}

type element struct {
	visible  bool
	value    string
	label    string
	classes  []string
	disabled bool
	options  []Option
	message  string
}

// Memory is a goroutine safe Surface backed by a map. Elements start visible
// and enabled, matching freshly parsed markup.
type Memory struct {
	mu       sync.RWMutex
	elements map[string]*element
}

var _ Surface = (*Memory)(nil)

// NewMemory returns an empty surface. Any ids passed are declared up front.
func NewMemory(ids ...string) *Memory {
	m := &Memory{elements: make(map[string]*element, len(ids))}
	for _, id := range ids {
		m.Declare(id)
	}
	return m
}

// Declare registers id so Has reports it. Declaring an existing id is a no-op.
func (m *Memory) Declare(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(id)
}

func (m *Memory) ensure(id string) *element {
	if el, ok := m.elements[id]; ok {
		return el
	}
	el := &element{visible: true}
	m.elements[id] = el
	return el
}

func (m *Memory) read(id string, fn func(*element)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if el, ok := m.elements[id]; ok {
		fn(el)
	}
}

func (m *Memory) write(id string, fn func(*element)) {
	if id == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.ensure(id))
}

func (m *Memory) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.elements[id]
	return ok
}

func (m *Memory) SetVisible(id string, visible bool) {
	m.write(id, func(el *element) { el.visible = visible })
}

// Visible reports false for unknown ids.
func (m *Memory) Visible(id string) (visible bool) {
	m.read(id, func(el *element) { visible = el.visible })
	return visible
}

func (m *Memory) SetValue(id, value string) {
	m.write(id, func(el *element) { el.value = value })
}

func (m *Memory) Value(id string) (value string) {
	m.read(id, func(el *element) { value = el.value })
	return value
}

func (m *Memory) AddClass(id, class string) {
	m.write(id, func(el *element) {
		if !slices.Contains(el.classes, class) {
			el.classes = append(el.classes, class)
		}
	})
}

func (m *Memory) RemoveClass(id, class string) {
	m.write(id, func(el *element) {
		el.classes = slices.DeleteFunc(el.classes, func(c string) bool { return c == class })
	})
}

func (m *Memory) HasClass(id, class string) (ok bool) {
	m.read(id, func(el *element) { ok = slices.Contains(el.classes, class) })
	return ok
}

func (m *Memory) SetLabel(id, label string) {
	m.write(id, func(el *element) { el.label = label })
}

func (m *Memory) Label(id string) (label string) {
	m.read(id, func(el *element) { label = el.label })
	return label
}

func (m *Memory) SetDisabled(id string, disabled bool) {
	m.write(id, func(el *element) { el.disabled = disabled })
}

func (m *Memory) Disabled(id string) (disabled bool) {
	m.read(id, func(el *element) { disabled = el.disabled })
	return disabled
}

func (m *Memory) SetOptions(id string, options []Option) {
	m.write(id, func(el *element) { el.options = slices.Clone(options) })
}

func (m *Memory) Options(id string) (options []Option) {
	m.read(id, func(el *element) { options = slices.Clone(el.options) })
	return options
}

func (m *Memory) SetMessage(id, message string) {
	m.write(id, func(el *element) { el.message = message })
}

func (m *Memory) Message(id string) (message string) {
	m.read(id, func(el *element) { message = el.message })
	return message
}

// Element returns a copy of the element stored under id.
func (m *Memory) Element(id string) (Element, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	el, ok := m.elements[id]
	if !ok {
		return Element{}, false
	}
	return el.snapshot(id), true
}

// Elements returns copies of every element keyed by id.
func (m *Memory) Elements() map[string]Element {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Element, len(m.elements))
	for id, el := range m.elements {
		out[id] = el.snapshot(id)
	}
	return out
}

// IDs returns the declared ids in sorted order.
func (m *Memory) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.elements))
	for id := range m.elements {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (el *element) snapshot(id string) Element {
	return Element{
		ID:       id,
		Visible:  el.visible,
		Value:    el.value,
		Label:    el.label,
		Classes:  slices.Clone(el.classes),
		Disabled: el.disabled,
		Options:  slices.Clone(el.options),
		Message:  el.message,
	}
}
