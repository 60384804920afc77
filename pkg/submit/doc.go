// Package submit sends a completed wizard to its backend. Rejections with a
// JSON error body come back as *Error with messages keyed by field name,
// ready to be flagged on the surface.
package submit
