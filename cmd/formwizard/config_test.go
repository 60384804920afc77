package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadConfigMergesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "formwizard.toml")
	doc := `log_level = "debug"

[serve]
addr = "127.0.0.1:9000"

[theme]
name = "registry"
variant = "dark"
prefix = "/static/themes/registry"
stylesheet = "wizard.css"

[theme.tokens]
brand = "#04aa6d"

[theme.variants.dark]
brand = "#02704a"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Fatalf("log settings = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	want := ServeConfig{Addr: "127.0.0.1:9000", UnitsParam: "hi_id", AssetPrefix: "/static/formwizard/"}
	if diff := cmp.Diff(want, cfg.Serve); diff != "" {
		t.Fatalf("serve config mismatch (-want +got):\n%s", diff)
	}

	manifest := cfg.Theme.Manifest()
	if manifest == nil || manifest.Assets.Files["stylesheet"] != "wizard.css" || manifest.Variants["dark"].Tokens["brand"] != "#02704a" {
		t.Fatalf("unexpected manifest %+v", manifest)
	}
	selection, err := staticSelector{manifest: manifest, variant: "dark"}.Select("", "")
	if err != nil || selection.Variant != "dark" || selection.Theme != "registry" {
		t.Fatalf("selection = %+v, %v", selection, err)
	}
	if _, err := (staticSelector{manifest: manifest}).Select("other", ""); err == nil {
		t.Fatalf("expected unknown theme error")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	missing := filepath.Join(t.TempDir(), "absent.toml")
	cfg, err := LoadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit missing config should fall back to defaults: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if _, err := LoadConfig(missing, true); err == nil {
		t.Fatalf("explicit missing config should fail")
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "form", "patient_stop")
	if out := buf.String(); strings.Contains(out, "hidden") || !strings.Contains(out, `"form":"patient_stop"`) {
		t.Fatalf("unexpected log output %q", out)
	}

	if _, err := newLogger(&buf, "loud", "text"); err == nil {
		t.Fatalf("expected invalid level error")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatalf("expected invalid format error")
	}
}
