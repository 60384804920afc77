package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	t.Parallel()

	names := []string{"pid", "dob", "krt_present-start_date", "unit"}
	payload := map[string][]string{
		"pid":                            {"Patient already registered", " "},
		"/body/dob":                      {"Date cannot be after today"},
		"data.krt_present-start_date[0]": {"Must follow the previous modality"},
		"$.values.unit":                  {"Unknown unit", "Unknown unit"},
		"__all__":                        {"Please correct the errors below"},
		"hospital":                       {"No such field"},
		"":                               {"  "},
	}

	mapped := render.MapErrorPayload(names, payload)

	wantFields := map[string][]string{
		"pid":                    {"Patient already registered"},
		"dob":                    {"Date cannot be after today"},
		"krt_present-start_date": {"Must follow the previous modality"},
		"unit":                   {"Unknown unit"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Please correct the errors below", "No such field"}
	if diff := cmp.Diff(wantForm, mapped.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayloadEmpty(t *testing.T) {
	t.Parallel()

	if mapped := render.MapErrorPayload([]string{"pid"}, nil); !mapped.Empty() {
		t.Fatalf("expected empty mapping, got %+v", mapped)
	}
}

func TestMergeFormErrors(t *testing.T) {
	t.Parallel()

	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	if diff := cmp.Diff([]string{"First", "Second", "third"}, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}
