package render

import (
	"fmt"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// ThemeConfig resolves name/variant through selector into the renderer
// config: variant tokens override the manifest's, tokens are exposed as
// `--<token>` CSS variables and asset keys resolve against the prefix.
func ThemeConfig(selector theme.ThemeSelector, name, variant string) (*theme.RendererConfig, error) {
	if selector == nil {
		return nil, nil
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("render: select theme %q/%q: %w", name, variant, err)
	}
	if selection == nil || selection.Manifest == nil {
		return nil, nil
	}

	manifest := selection.Manifest
	cfg := &theme.RendererConfig{
		Theme:    selection.Theme,
		Variant:  selection.Variant,
		Tokens:   make(map[string]string, len(manifest.Tokens)),
		CSSVars:  make(map[string]string, len(manifest.Tokens)),
		Partials: make(map[string]string, len(manifest.Templates)),
	}
	files := make(map[string]string, len(manifest.Assets.Files))
	prefix := manifest.Assets.Prefix

	merge := func(tokens, templates, assets map[string]string) {
		for key, value := range tokens {
			cfg.Tokens[key] = value
		}
		for key, value := range templates {
			cfg.Partials[key] = value
		}
		for key, value := range assets {
			files[key] = value
		}
	}
	merge(manifest.Tokens, manifest.Templates, manifest.Assets.Files)
	if v, ok := manifest.Variants[selection.Variant]; ok {
		merge(v.Tokens, v.Templates, v.Assets.Files)
		if v.Assets.Prefix != "" {
			prefix = v.Assets.Prefix
		}
	}

	for key, value := range cfg.Tokens {
		cfg.CSSVars["--"+strings.TrimPrefix(key, "--")] = value
	}
	cfg.AssetURL = func(key string) string {
		file, ok := files[key]
		if !ok || file == "" {
			return ""
		}
		if strings.Contains(file, "://") || strings.HasPrefix(file, "/") {
			return file
		}
		return path.Join(prefix, file)
	}
	return cfg, nil
}
