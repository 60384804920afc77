// Package surface abstracts the rendered form the wizard manipulates. The
// behaviour packages only ever talk to a Surface; Memory is the in-process
// implementation used by sessions, renderers and tests.
package surface
