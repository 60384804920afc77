// Package template holds the engine seam used by template based renderers.
// The pongo2 implementation lives in the gotemplate subpackage.
package template
