package gotemplate_test

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/render/template/gotemplate"
)

type patient struct {
	FirstName string   `json:"firstName"`
	Units     []string `json:"units"`
}

func newEngine(t *testing.T) *gotemplate.Engine {
	t.Helper()
	engine, err := gotemplate.New(
		gotemplate.WithFS(os.DirFS("testdata")),
		gotemplate.WithFilter("shout", func(input any, _ any) (any, error) {
			return strings.ToUpper(fmt.Sprint(input)) + "!", nil
		}),
		gotemplate.WithGlobalData(map[string]any{"site": "registry"}),
	)
	if err != nil {
		t.Fatalf("gotemplate.New: %v", err)
	}
	return engine
}

func TestRenderTemplateWritesToOutputs(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("RenderTemplate: %v", err)
	}
	want := "Hello ADA! from registry\n"
	if got != want || buf.String() != want {
		t.Fatalf("got %q (writer %q), want %q", got, buf.String(), want)
	}
}

func TestRenderStringUsesJSONNames(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	got, err := engine.RenderString(`{{ firstName }}:{% for u in units %}{{ u }}{% endfor %}`, patient{FirstName: "Ravi", Units: []string{"1", "2"}})
	if err != nil {
		t.Fatalf("RenderString: %v", err)
	}
	if got != "Ravi:12" {
		t.Fatalf("got %q", got)
	}
}

func TestMissingTemplateAndFS(t *testing.T) {
	t.Parallel()

	if _, err := newEngine(t).RenderTemplate("absent", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
	if _, err := gotemplate.New(); err == nil {
		t.Fatalf("expected error without templates")
	}
	if _, err := newEngine(t).RenderString("{{ 1 + }}", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
