package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	theme "github.com/goliatone/go-theme"
)

const defaultConfigPath = "formwizard.toml"

// Config is the formwizard.toml document. Command line flags override the
// top level keys.
type Config struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	Schemas   string `toml:"schemas"`
	Examples  bool   `toml:"examples"`
	Preset    string `toml:"preset"`

	Serve ServeConfig `toml:"serve"`
	Run   RunConfig   `toml:"run"`
	Theme ThemeConfig `toml:"theme"`
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr"`
	// BaseURL, when set, makes sessions fetch dependent options over HTTP
	// from that origin instead of reading the units catalog in process.
	BaseURL string `toml:"base_url"`
	// SubmitURL receives completed forms. Empty keeps submissions in
	// process and logs them.
	SubmitURL    string `toml:"submit_url"`
	UnitsCatalog string `toml:"units_catalog"`
	UnitsParam   string `toml:"units_param"`
	AssetPrefix  string `toml:"asset_prefix"`
}

// RunConfig configures the terminal runner.
type RunConfig struct {
	Form     string `toml:"form"`
	Endpoint string `toml:"endpoint"`
	Encoding string `toml:"encoding"`
}

// ThemeConfig declares a single go-theme manifest.
type ThemeConfig struct {
	Name       string                       `toml:"name"`
	Variant    string                       `toml:"variant"`
	Prefix     string                       `toml:"prefix"`
	Stylesheet string                       `toml:"stylesheet"`
	Tokens     map[string]string            `toml:"tokens"`
	Variants   map[string]map[string]string `toml:"variants"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Serve: ServeConfig{
			Addr:        ":8080",
			UnitsParam:  "hi_id",
			AssetPrefix: "/static/formwizard/",
		},
		Run: RunConfig{Form: "patient_modality", Encoding: "form"},
	}
}

// LoadConfig reads path over the defaults. A missing file is only an error
// when the path was given explicitly.
func LoadConfig(path string, explicit bool) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Manifest converts the theme table into a go-theme manifest. It returns nil
// when no theme is configured.
func (c ThemeConfig) Manifest() *theme.Manifest {
	if c.Name == "" {
		return nil
	}
	manifest := &theme.Manifest{
		Name:    c.Name,
		Version: "1.0.0",
		Tokens:  c.Tokens,
		Assets: theme.Assets{
			Prefix: c.Prefix,
			Files:  map[string]string{},
		},
		Variants: map[string]theme.Variant{},
	}
	if c.Stylesheet != "" {
		manifest.Assets.Files["stylesheet"] = c.Stylesheet
	}
	for name, tokens := range c.Variants {
		manifest.Variants[name] = theme.Variant{Tokens: tokens}
	}
	return manifest
}

// staticSelector serves the one configured manifest for every request.
type staticSelector struct {
	manifest *theme.Manifest
	variant  string
}

func (s staticSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name != "" && name != s.manifest.Name {
		return nil, fmt.Errorf("theme %q is not configured", name)
	}
	if variant == "" {
		variant = s.variant
	}
	return &theme.Selection{Theme: s.manifest.Name, Variant: variant, Manifest: s.manifest}, nil
}
