// Package orchestrator wires the schema store, model builder, sessions and
// renderers behind a single entry point. It keeps the live sessions of a
// process in memory and picks the renderer for a request by name or by
// content negotiation.
package orchestrator
