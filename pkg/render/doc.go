// Package render defines the output side of a wizard session: the View
// snapshot read from a surface, the Renderer contract implemented by the
// vanilla, tui and json renderers, hidden submission fields and the mapping of
// server error payloads onto field names.
package render
