// Package conditional shows, hides and clears form sections based on sibling
// field values. Rules come from the form model; the engine evaluates them all
// on load and then only the rules keyed to a field when that field changes.
package conditional
