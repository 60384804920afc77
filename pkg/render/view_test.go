package render_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestBuildViewSectionsAndState(t *testing.T) {
	t.Parallel()

	form := testsupport.RegistryForm(t, "patient_register")
	mem := surface.NewMemory(form.ElementIDs()...)
	ctrl, err := wizard.New(mem, form.Steps)
	if err != nil {
		t.Fatalf("wizard.New: %v", err)
	}
	ctrl.Init()
	mem.SetVisible("current_krt_modality", false)
	mem.AddClass("id_pid", surface.ClassInvalid)
	mem.SetValue("id_name", "Anjali")
	mem.SetDisabled(wizard.NextControl, true)

	view := render.BuildView(form, mem)

	if view.FormID != "patient_register" || view.Count != 5 || view.Current != 0 {
		t.Fatalf("unexpected header: %+v", view)
	}
	if !view.Locked {
		t.Fatalf("disabled next control should lock the view")
	}
	if view.Next.Label != wizard.LabelNext || view.Prev.Visible {
		t.Fatalf("unexpected controls: prev=%+v next=%+v", view.Prev, view.Next)
	}

	pid, ok := view.Field("pid")
	if !ok || !pid.Input.HasClass(surface.ClassInvalid) || !pid.Required {
		t.Fatalf("pid view = %+v", pid)
	}
	if name, _ := view.Field("name"); name.Value != "Anjali" {
		t.Fatalf("name value = %q", name.Value)
	}

	krt := view.Steps[3]
	if len(krt.Sections) != 1 || krt.Sections[0].Group == nil {
		t.Fatalf("krt step should be a single grouped section, got %+v", krt.Sections)
	}
	if krt.Sections[0].Group.ID != "current_krt_modality" || krt.Sections[0].Group.Visible {
		t.Fatalf("group element = %+v", krt.Sections[0].Group)
	}
	if got := len(krt.Sections[0].Fields); got != 9 {
		t.Fatalf("group has %d fields, want 9", got)
	}

	step, ok := view.CurrentStep()
	if !ok || step.ID != "registration" || !step.Indicator.HasClass(surface.ClassActive) {
		t.Fatalf("current step = %+v", step)
	}
}

func TestViewApplyAndJSONRenderer(t *testing.T) {
	t.Parallel()

	form := testsupport.RegistryForm(t, "patient_stop")
	mem := surface.NewMemory(form.ElementIDs()...)
	view := render.BuildView(form, mem)

	out, err := render.JSONRenderer{}.Render(context.Background(), view, render.RenderOptions{
		Action:     "/proxy",
		Hidden:     []render.HiddenField{render.CSRFToken("", "t")},
		Errors:     map[string][]string{"stop_reason": {"Required"}},
		FormErrors: []string{"Fix the errors"},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	var decoded render.View
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Endpoint != "/proxy" || len(decoded.Hidden) != 1 || len(decoded.Errors) != 1 {
		t.Fatalf("options not applied: %+v", decoded)
	}
	field, ok := decoded.Field("stop_reason")
	if !ok || len(field.Errors) != 1 || field.Errors[0] != "Required" {
		t.Fatalf("field errors not applied: %+v", field)
	}
	if original, _ := view.Field("stop_reason"); len(original.Errors) != 0 {
		t.Fatalf("Apply must not mutate the source view")
	}
}

type namedRenderer struct {
	name, contentType string
}

func (r namedRenderer) Name() string        { return r.name }
func (r namedRenderer) ContentType() string { return r.contentType }
func (r namedRenderer) Render(context.Context, render.View, render.RenderOptions) ([]byte, error) {
	return []byte(r.name), nil
}

func TestRegistryNegotiate(t *testing.T) {
	t.Parallel()

	registry := render.NewRegistry()
	registry.MustRegister(namedRenderer{name: "html", contentType: "text/html; charset=utf-8"})
	registry.MustRegister(render.JSONRenderer{})

	if err := registry.Register(render.JSONRenderer{}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	for accept, want := range map[string]string{
		"application/json":                  "json",
		"text/html,application/xhtml+xml":   "html",
		"*/*":                               "html",
		"":                                  "html",
		"text/plain, application/json;q=.9": "json",
	} {
		renderer, err := registry.Negotiate(accept)
		if err != nil {
			t.Fatalf("Negotiate(%q): %v", accept, err)
		}
		if renderer.Name() != want {
			t.Fatalf("Negotiate(%q) = %s, want %s", accept, renderer.Name(), want)
		}
	}

	if _, err := registry.Get("pdf"); err == nil {
		t.Fatalf("expected missing renderer error")
	}
	if _, err := render.NewRegistry().Negotiate("text/html"); err == nil {
		t.Fatalf("expected error from empty registry")
	}
}
