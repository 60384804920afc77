package testsupport

import (
	"context"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-formwizard/pkg/formschema"
	pkgmodel "github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/schemas"
	"github.com/google/go-cmp/cmp"
)

// RegistryForm builds one of the embedded registry forms.
func RegistryForm(t testing.TB, id string) *pkgmodel.Form {
	t.Helper()
	return buildFrom(t, mustStore(t, schemas.Registry()), id)
}

// ExampleForm builds one of the embedded example forms.
func ExampleForm(t testing.TB, id string) *pkgmodel.Form {
	t.Helper()
	return buildFrom(t, mustStore(t, schemas.Examples()), id)
}

// FormFromYAML builds form id from an inline schema document.
func FormFromYAML(t testing.TB, id, doc string) *pkgmodel.Form {
	t.Helper()
	fsys := fstest.MapFS{"form.yaml": {Data: []byte(doc)}}
	return buildFrom(t, mustStore(t, fsys), id)
}

func mustStore(t testing.TB, fsys fs.FS) *formschema.Store {
	t.Helper()
	store, err := formschema.LoadFS(fsys)
	if err != nil {
		t.Fatalf("testsupport: load schemas: %v", err)
	}
	return store
}

func buildFrom(t testing.TB, store *formschema.Store, id string) *pkgmodel.Form {
	t.Helper()
	src, err := store.Lookup(id)
	if err != nil {
		t.Fatalf("testsupport: %v", err)
	}
	form, err := pkgmodel.NewBuilder().Build(src)
	if err != nil {
		t.Fatalf("testsupport: build %s: %v", id, err)
	}
	return form
}

// Submitter records every submitted form state.
type Submitter struct {
	mu    sync.Mutex
	calls []pkgmodel.FormState
	Ack   pkgmodel.Ack
	Err   error
}

// Submit implements wizard.Submitter.
func (s *Submitter) Submit(_ context.Context, state pkgmodel.FormState) (pkgmodel.Ack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, state)
	if s.Err != nil {
		return pkgmodel.Ack{}, s.Err
	}
	return s.Ack, nil
}

// Calls returns the recorded submissions.
func (s *Submitter) Calls() []pkgmodel.FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pkgmodel.FormState(nil), s.calls...)
}

// Clock returns a fixed time source.
func Clock(day string) func() time.Time {
	ts, err := time.Parse(time.DateOnly, day)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

// AssertEqual fails the test with a cmp diff when want and got differ.
func AssertEqual(t testing.TB, want, got any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}
