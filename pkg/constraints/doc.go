// Package constraints checks field values against their native input
// constraints: pattern, numeric bounds, length bounds, date format and the
// not-after-today rule used by the registry forms.
package constraints
