// Package options loads the choices of dependent selects, such as the
// dialysis units of a health institution, and writes them to a surface.
//
// A Binding numbers each request and cancels the previous one, so when the
// parent changes quickly the options shown always belong to the parent's
// latest value. Fetch failures keep the previous options and mark the child
// container with surface.ClassError.
package options
