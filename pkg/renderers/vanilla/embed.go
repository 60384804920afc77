package vanilla

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.html templates/widgets/*.html
var embeddedTemplates embed.FS

//go:embed assets/*
var embeddedAssets embed.FS

const (
	StylesheetName    = "formwizard.css"
	RuntimeScriptName = "formwizard.js"
)

// TemplatesFS exposes the embedded template bundle.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

// AssetsFS exposes the stylesheet and the browser runtime so servers can
// mount them under their asset prefix.
func AssetsFS() fs.FS {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		return embeddedAssets
	}
	return sub
}
