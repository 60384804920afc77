package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, mutate func(*Config)) *httptest.Server {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	a := &app{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	handler, err := a.newServer()
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, rawURL, accept string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return do(t, req)
}

func postEvent(t *testing.T, base, session string, values url.Values) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, base+"/sessions/"+session+"/events", strings.NewReader(values.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/plain")
	return do(t, req)
}

func do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, string(body)
}

func TestServeWalksModalityForm(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(cfg *Config) { cfg.Examples = true })

	res, body := get(t, srv.URL+"/forms/modality", "text/html")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("open status %d: %s", res.StatusCode, body)
	}
	session := res.Header.Get("X-Session")
	if session == "" {
		t.Fatalf("expected a session id header")
	}
	if !strings.Contains(body, `data-events="/sessions/`+session+`/events"`) {
		t.Fatalf("form does not point the runtime at the events route:\n%s", body)
	}
	if !strings.Contains(body, `href="/static/formwizard/formwizard.css"`) {
		t.Fatalf("form does not link the stylesheet")
	}

	_, body = postEvent(t, srv.URL, session, url.Values{"type": {"change"}, "name": {"modality"}, "value": {"HD"}})
	if !strings.Contains(body, "Modality*: Haemodialysis") {
		t.Fatalf("change not applied:\n%s", body)
	}

	_, body = postEvent(t, srv.URL, session, url.Values{"type": {"next"}})
	if !strings.Contains(body, "Step 2/2: Details") || !strings.Contains(body, "HD unit*:") {
		t.Fatalf("expected the details step with HD fields:\n%s", body)
	}
	if strings.Contains(body, "Exchanges/day") {
		t.Fatalf("PD fields should stay hidden:\n%s", body)
	}

	_, body = postEvent(t, srv.URL, session, url.Values{"type": {"prev"}})
	if !strings.Contains(body, "Step 1/2: Modality") {
		t.Fatalf("expected to be back on the first step:\n%s", body)
	}

	res, body = postEvent(t, srv.URL, session, url.Values{"type": {"jump"}})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown event status %d: %s", res.StatusCode, body)
	}
}

func TestServeLoadsDependentUnits(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	res, _ := get(t, srv.URL+"/forms/patient_register", "text/plain")
	session := res.Header.Get("X-Session")

	_, body := postEvent(t, srv.URL, session, url.Values{"type": {"change"}, "name": {"health_institution"}, "value": {"2"}})
	if !strings.Contains(body, "Health institution*: Victoria Hospital") {
		t.Fatalf("institution not shown:\n%s", body)
	}
	_, body = postEvent(t, srv.URL, session, url.Values{"type": {"change"}, "name": {"unit"}, "value": {"22"}})
	if !strings.Contains(body, "Unit: Victoria PD Clinic") {
		t.Fatalf("unit options not loaded from the catalog:\n%s", body)
	}
}

func TestServeErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(cfg *Config) { cfg.Examples = true })

	cases := []struct {
		name string
		path string
		want int
	}{
		{name: "unknown form", path: "/forms/missing", want: http.StatusNotFound},
		{name: "unknown prefill field", path: "/forms/modality?bogus=1", want: http.StatusBadRequest},
		{name: "unknown session", path: "/sessions/nope", want: http.StatusNotFound},
	}
	for _, tc := range cases {
		res, body := get(t, srv.URL+tc.path, "")
		if res.StatusCode != tc.want {
			t.Fatalf("%s: status %d, want %d (%s)", tc.name, res.StatusCode, tc.want, body)
		}
	}
}

func TestServeUnitsAssetsAndSubmissions(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	res, body := get(t, srv.URL+"/api/units?hi_id=3", "")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("units status %d", res.StatusCode)
	}
	var payload struct {
		Data []struct {
			Value string `json:"value"`
			Label string `json:"label"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode units: %v", err)
	}
	if len(payload.Data) != 1 || payload.Data[0].Value != "31" {
		t.Fatalf("unexpected units payload %+v", payload)
	}

	res, body = get(t, srv.URL+"/static/formwizard/formwizard.js", "")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, "data-events") {
		t.Fatalf("runtime script not served (%d)", res.StatusCode)
	}

	res, body = get(t, srv.URL+"/", "")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `href="/forms/patient_register"`) {
		t.Fatalf("index does not list forms:\n%s", body)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/submissions", strings.NewReader(`{"nic":"A1"}`))
	req.Header.Set("Content-Type", "application/json")
	res, body = do(t, req)
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Fatalf("submission sink status %d: %s", res.StatusCode, body)
	}
}
