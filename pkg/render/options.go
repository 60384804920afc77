package render

import theme "github.com/goliatone/go-theme"

// RenderOptions carry per-request data that is not part of the session state.
type RenderOptions struct {
	// Action overrides the form endpoint, for servers that proxy submissions.
	Action string
	// Hidden fields are emitted alongside the visible inputs, sorted by name.
	Hidden []HiddenField
	// Errors holds server-side messages keyed by field name. Entries are merged
	// into the matching FieldView.Errors.
	Errors map[string][]string
	// FormErrors are shown above the steps.
	FormErrors []string
	// Theme carries the selected go-theme tokens and asset resolver.
	Theme *theme.RendererConfig
}
