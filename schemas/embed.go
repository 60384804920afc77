// Package schemas bundles the default registry form schemas.
package schemas

import (
	"embed"
	"io/fs"
)

//go:embed registry/*.yaml
var registry embed.FS

//go:embed examples/*.yaml examples/*.json
var examples embed.FS

// Registry returns the renal registry forms: patient_register,
// patient_modality, patient_assess and patient_stop.
func Registry() fs.FS {
	sub, err := fs.Sub(registry, "registry")
	if err != nil {
		panic(err)
	}
	return sub
}

// Examples returns small demonstration forms, including one whose fields are
// imported from an OpenAPI document.
func Examples() fs.FS {
	sub, err := fs.Sub(examples, "examples")
	if err != nil {
		panic(err)
	}
	return sub
}
