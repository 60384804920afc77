// Package model defines the typed wizard form: fields addressed through
// FieldRef handles, ordered steps with their required subsets, compiled
// visibility rules, date sequences and dependent selects. Builders reside in
// internal/model but return the types re-exported here.
//
// Element ids follow the server rendered markup: a field `name` renders its
// input as `id_name` inside a `div_id_name` container, and step `x` renders
// as container `tab-x` with indicator `step-x`.
package model
