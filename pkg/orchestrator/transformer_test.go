package orchestrator_test

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/schemas"
)

const preset = `{
  "modality": {
    "title": "Renal replacement",
    "steps": {"details": {"title": "Prescription"}},
    "fields": {
      "hd_unit": {"label": "Dialysis unit", "help": "Where sessions happen", "metadata": {"source": "preset"}}
    }
  }
}`

func TestJSONPresetTransformerPatchesForm(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"preset.json": {Data: []byte(preset)}}
	transformer, err := orchestrator.NewJSONPresetTransformerFromFS(fsys, "preset.json")
	if err != nil {
		t.Fatalf("load preset: %v", err)
	}

	o := orchestrator.New(
		orchestrator.WithSchemas(schemas.Examples()),
		orchestrator.WithSchemaTransformer(transformer),
	)
	form, err := o.Form(context.Background(), "modality")
	if err != nil {
		t.Fatalf("form: %v", err)
	}

	if form.Title != "Renal replacement" {
		t.Fatalf("title not patched: %q", form.Title)
	}
	if form.Steps[1].Title != "Prescription" {
		t.Fatalf("step title not patched: %q", form.Steps[1].Title)
	}
	field, ok := form.Field("hd_unit")
	if !ok {
		t.Fatalf("hd_unit missing")
	}
	if field.Label != "Dialysis unit" || field.Help != "Where sessions happen" || field.Metadata["source"] != "preset" {
		t.Fatalf("field not patched: %+v", field)
	}
}

func TestJSONPresetTransformerRejectsUnknownField(t *testing.T) {
	t.Parallel()

	transformer, err := orchestrator.NewJSONPresetTransformer([]byte(`{"modality": {"fields": {"ghost": {"label": "x"}}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	o := orchestrator.New(
		orchestrator.WithSchemas(schemas.Examples()),
		orchestrator.WithSchemaTransformer(transformer),
	)
	_, err = o.Form(context.Background(), "modality")
	if err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestJSONPresetTransformerValidation(t *testing.T) {
	t.Parallel()

	if _, err := orchestrator.NewJSONPresetTransformer([]byte("  ")); err == nil {
		t.Fatalf("expected empty document error")
	}
	if _, err := orchestrator.NewJSONPresetTransformer([]byte("{")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := orchestrator.NewJSONPresetTransformerFromFS(nil, "x.json"); err == nil {
		t.Fatalf("expected nil filesystem error")
	}
}

func TestChainStopsAtFirstError(t *testing.T) {
	t.Parallel()

	var calls []string
	chain := orchestrator.Chain(
		orchestrator.TransformerFunc(func(_ context.Context, form *model.Form) error {
			calls = append(calls, "first")
			form.Title = "changed"
			return nil
		}),
		nil,
		orchestrator.TransformerFunc(func(context.Context, *model.Form) error {
			calls = append(calls, "second")
			return context.Canceled
		}),
		orchestrator.TransformerFunc(func(context.Context, *model.Form) error {
			calls = append(calls, "third")
			return nil
		}),
	)

	form := &model.Form{}
	if err := chain.Transform(context.Background(), form); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if strings.Join(calls, ",") != "first,second" || form.Title != "changed" {
		t.Fatalf("unexpected chain behaviour: %v %q", calls, form.Title)
	}
}
