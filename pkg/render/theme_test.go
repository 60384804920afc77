package render_test

import (
	"errors"
	"testing"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formwizard/pkg/render"
)

type stubSelector struct {
	selection *theme.Selection
	err       error
	calls     [][2]string
}

func (s *stubSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.calls = append(s.calls, [2]string{name, variant})
	return s.selection, s.err
}

func TestThemeConfigMergesVariant(t *testing.T) {
	t.Parallel()

	manifest := &theme.Manifest{
		Name:    "registry",
		Version: "1.0.0",
		Tokens:  map[string]string{"brand": "#04aa6d", "muted": "#bbbbbb"},
		Assets: theme.Assets{
			Prefix: "/static/themes/registry",
			Files:  map[string]string{"stylesheet": "wizard.css"},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{"brand": "#02704a"},
				Assets: theme.Assets{Files: map[string]string{"logo": "logo-dark.svg"}},
			},
		},
	}
	selector := &stubSelector{selection: &theme.Selection{Theme: "registry", Variant: "dark", Manifest: manifest}}

	cfg, err := render.ThemeConfig(selector, "registry", "dark")
	if err != nil {
		t.Fatalf("ThemeConfig: %v", err)
	}
	if len(selector.calls) != 1 || selector.calls[0] != [2]string{"registry", "dark"} {
		t.Fatalf("selector calls = %v", selector.calls)
	}
	if cfg.Tokens["brand"] != "#02704a" || cfg.CSSVars["--brand"] != "#02704a" || cfg.CSSVars["--muted"] != "#bbbbbb" {
		t.Fatalf("tokens not merged: %+v / %+v", cfg.Tokens, cfg.CSSVars)
	}
	if got := cfg.AssetURL("stylesheet"); got != "/static/themes/registry/wizard.css" {
		t.Fatalf("stylesheet url = %q", got)
	}
	if got := cfg.AssetURL("logo"); got != "/static/themes/registry/logo-dark.svg" {
		t.Fatalf("logo url = %q", got)
	}
	if got := cfg.AssetURL("missing"); got != "" {
		t.Fatalf("missing asset url = %q", got)
	}
}

func TestThemeConfigErrors(t *testing.T) {
	t.Parallel()

	if cfg, err := render.ThemeConfig(nil, "x", ""); cfg != nil || err != nil {
		t.Fatalf("nil selector should yield no config, got %v %v", cfg, err)
	}
	boom := errors.New("unknown theme")
	if _, err := render.ThemeConfig(&stubSelector{err: boom}, "x", ""); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped selector error, got %v", err)
	}
}
