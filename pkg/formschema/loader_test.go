package formschema_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/schemas"
	"github.com/google/go-cmp/cmp"
)

func TestLoadFS_Registry(t *testing.T) {
	t.Parallel()

	store, err := formschema.LoadFS(schemas.Registry())
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}

	want := []string{"patient_assess", "patient_modality", "patient_register", "patient_stop"}
	if diff := cmp.Diff(want, store.IDs()); diff != "" {
		t.Fatalf("form ids mismatch (-want +got):\n%s", diff)
	}

	form, ok := store.Form("patient_register")
	if !ok {
		t.Fatalf("patient_register not found")
	}
	if form.Form.Method != "POST" {
		t.Fatalf("method should be upper cased, got %q", form.Form.Method)
	}
	if got := len(form.Steps); got != 5 {
		t.Fatalf("expected 5 steps, got %d", got)
	}
	inKRT := form.Fields["in_krt_modality"]
	if len(inKRT.Choices) != 2 || inKRT.Choices[0].Value != "Y" {
		t.Fatalf("choice set not expanded: %#v", inKRT.Choices)
	}
	if form.Dependents[0].URLAttribute != "unitsURL" {
		t.Fatalf("dependent not parsed: %#v", form.Dependents)
	}

	stop, _ := store.Form("patient_stop")
	if stop.Groups["death"].Container != "dod" {
		t.Fatalf("group container mismatch: %#v", stop.Groups["death"])
	}
}

func TestLoadFS_OpenAPIImport(t *testing.T) {
	t.Parallel()

	store, err := formschema.LoadFS(schemas.Examples())
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	form, ok := store.Form("contact")
	if !ok {
		t.Fatalf("contact form not found")
	}

	if form.Form.Endpoint != "/patients/{id}/contact" {
		t.Fatalf("endpoint should come from the operation, got %q", form.Form.Endpoint)
	}

	mobile := form.Fields["mobile_number"]
	if mobile.Required == nil || !*mobile.Required {
		t.Fatalf("mobile_number should be required")
	}
	wantConstraints := []formschema.ConstraintConfig{
		{Kind: "pattern", Value: "^[0-9]{8}$"},
		{Kind: "maxLength", Value: "8"},
	}
	if diff := cmp.Diff(wantConstraints, mobile.Constraints); diff != "" {
		t.Fatalf("constraints mismatch (-want +got):\n%s", diff)
	}

	email := form.Fields["email"]
	if email.Label != "Email address" || email.Kind != "email" {
		t.Fatalf("schema override not merged: %#v", email)
	}
	if preferred := form.Fields["preferred"]; preferred.Kind != "select" || len(preferred.Choices) != 3 {
		t.Fatalf("enum should import as select: %#v", preferred)
	}
}

func TestLoadFS_DuplicateForm(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("forms:\n  stop:\n    form: {title: A}\n")},
		"b.yaml": {Data: []byte("forms:\n  stop:\n    form: {title: B}\n")},
	}
	if _, err := formschema.LoadFS(fsys); err == nil {
		t.Fatalf("expected duplicate form error")
	}
}

func TestLoadFS_UnknownChoiceSet(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("forms:\n  stop:\n    fields:\n      reason: {kind: select, choiceSet: missing}\n")},
	}
	if _, err := formschema.LoadFS(fsys); err == nil {
		t.Fatalf("expected unknown choice set error")
	}
}

func TestLoadFS_JSONDocument(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"stop.json": {Data: []byte(`{"forms":{"stop":{"steps":[{"fields":["reason"]}],"fields":{"reason":{"kind":"text","required":true}}}}}`)},
		"notes.txt": {Data: []byte("ignored")},
	}
	store, err := formschema.LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	form, ok := store.Form("stop")
	if !ok {
		t.Fatalf("stop form missing")
	}
	if form.Steps[0].ID != "step-0" {
		t.Fatalf("default step id mismatch: %q", form.Steps[0].ID)
	}
	if form.Form.Method != "POST" {
		t.Fatalf("default method mismatch: %q", form.Form.Method)
	}
}

func TestStoreLookupNotFound(t *testing.T) {
	t.Parallel()

	store, err := formschema.LoadFS(nil)
	if err != nil {
		t.Fatalf("LoadFS(nil): %v", err)
	}
	if !store.Empty() {
		t.Fatalf("expected empty store")
	}
	_, err = store.Lookup("patient_stop")
	if !errors.Is(err, formschema.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}
