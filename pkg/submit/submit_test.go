package submit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
)

func TestSubmitJSONMergesHiddenFields(t *testing.T) {
	t.Parallel()

	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/patient/stop/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" {
			t.Errorf("custom header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Location", "/patients/7/")
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)

	s := submit.New(server.URL+"/patient/stop/", "post",
		submit.WithHTTPClient(server.Client()),
		submit.WithHidden(render.CSRFToken("", "tok")),
		submit.WithHeader("X-Requested-With", "XMLHttpRequest"),
	)
	ack, err := s.Submit(context.Background(), model.FormState{
		FormID: "patient_stop",
		Values: map[string]string{"stop_reason": "D", "dod": "01/02/2024"},
		Meta:   map[string]string{"next": "/patients/"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.Status != http.StatusCreated || ack.Location != "/patients/7/" {
		t.Fatalf("ack = %+v", ack)
	}
	want := map[string]string{
		"stop_reason":         "D",
		"dod":                 "01/02/2024",
		"next":                "/patients/",
		"csrfmiddlewaretoken": "tok",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitFormEncoded(t *testing.T) {
	t.Parallel()

	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		got = r.PostForm
	}))
	t.Cleanup(server.Close)

	s := submit.New(server.URL, "PUT", submit.WithHTTPClient(server.Client()), submit.WithEncoding(submit.EncodingForm))
	if _, err := s.Submit(context.Background(), model.FormState{Values: map[string]string{"modality": "2", "hd_unit": ""}}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Get("modality") != "2" || !got.Has("hd_unit") {
		t.Fatalf("form body = %v", got)
	}
}

func TestSubmitMapsFieldErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{
			"pid": [{"message": "Patient with this identifier already exists.", "code": "unique"}],
			"dob": "Date cannot be after today",
			"__all__": ["Please correct the errors below."]
		}`)
	}))
	t.Cleanup(server.Close)

	form := testsupport.FormFromYAML(t, "identity", `
forms:
  identity:
    form: {endpoint: "`+server.URL+`/patient/register/"}
    steps:
      - {id: patient, fields: [pid, dob]}
    fields:
      pid: {kind: text, required: true}
      dob: {kind: date}
`)
	s := submit.ForForm(form, submit.WithHTTPClient(server.Client()))

	_, err := s.Submit(context.Background(), model.FormState{FormID: form.ID})
	var serr *submit.Error
	if !errors.As(err, &serr) {
		t.Fatalf("expected *submit.Error, got %v", err)
	}
	if serr.Status != http.StatusBadRequest {
		t.Fatalf("status = %d", serr.Status)
	}
	wantFields := map[string][]string{
		"pid": {"Patient with this identifier already exists."},
		"dob": {"Date cannot be after today"},
	}
	if diff := cmp.Diff(wantFields, serr.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Please correct the errors below."}, serr.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(serr.Error(), "dob, pid") {
		t.Fatalf("error text = %q", serr.Error())
	}
}

func TestSubmitNonJSONFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>oops</html>", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	_, err := submit.New(server.URL, "", submit.WithHTTPClient(server.Client())).Submit(context.Background(), model.FormState{})
	var serr *submit.Error
	if !errors.As(err, &serr) || len(serr.Form) != 1 || serr.Form[0] != "Internal Server Error" {
		t.Fatalf("expected status text form error, got %v", err)
	}
}

func TestDecodeErrorsListShape(t *testing.T) {
	t.Parallel()

	got := submit.DecodeErrors([]byte(`{"message":"Validation failed","errors":[{"field":"unit","message":"Unknown unit"},{"path":"/body/dob","message":"Required"}]}`))
	want := map[string][]string{
		"__all__":   {"Validation failed"},
		"unit":      {"Unknown unit"},
		"/body/dob": {"Required"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("decoded errors mismatch (-want +got):\n%s", diff)
	}
	if submit.DecodeErrors([]byte("not json")) != nil {
		t.Fatalf("expected nil for non JSON body")
	}
}

func TestWriterSubmitter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ack, err := submit.Writer{Out: &buf}.Submit(context.Background(), model.FormState{FormID: "patient_assess", Values: map[string]string{"hd_initialaccess": "4"}})
	if err != nil || ack.Status != http.StatusOK {
		t.Fatalf("Submit = %+v, %v", ack, err)
	}
	if !strings.Contains(buf.String(), `"hd_initialaccess": "4"`) {
		t.Fatalf("output = %s", buf.String())
	}
}
