package options_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/options"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/google/go-cmp/cmp"
)

var (
	parentRef = model.NewFieldRef("health_institution", "id_health_institution", "div_id_health_institution")
	childRef  = model.NewFieldRef("unit", "id_unit", "div_id_unit")
)

func TestHTTPFetcherJSON(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("hi_id"); got != "2" {
			t.Errorf("hi_id = %q, want 2", got)
		}
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q", accept)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"value":7,"label":"Renal unit A"},{"id":"8","name":"Renal unit B"},["9","Renal unit C"]]}`))
	}))
	t.Cleanup(server.Close)

	fetcher := options.NewHTTPFetcher(server.URL+"/api/units", options.WithParam("hi_id"), options.WithHTTPClient(server.Client()))
	got, err := fetcher.FetchOptions(context.Background(), "2")
	if err != nil {
		t.Fatalf("FetchOptions: %v", err)
	}
	want := []surface.Option{
		{Value: "7", Label: "Renal unit A"},
		{Value: "8", Label: "Renal unit B"},
		{Value: "9", Label: "Renal unit C"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPFetcherHTMLFragment(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<option value="">---------</option>
<option value="4">Jeetoo &amp; Co
  unit</option><option>Plain</option>`))
	}))
	t.Cleanup(server.Close)

	fetcher := options.FetcherFor(model.Dependent{URL: server.URL, Param: "hi_id", Format: "html"}, options.WithHTTPClient(server.Client()))
	got, err := fetcher.FetchOptions(context.Background(), "1")
	if err != nil {
		t.Fatalf("FetchOptions: %v", err)
	}
	want := []surface.Option{
		{Value: "", Label: "---------"},
		{Value: "4", Label: "Jeetoo & Co unit"},
		{Value: "Plain", Label: "Plain"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	fetcher := options.NewHTTPFetcher(server.URL, options.WithHTTPClient(server.Client()))
	if _, err := fetcher.FetchOptions(context.Background(), "1"); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestParseJSONResultsPath(t *testing.T) {
	t.Parallel()

	got, err := options.ParseJSON([]byte(`{"result":{"units":[{"code":"U1","title":"One"}]}}`), "result.units", "code", "title")
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if diff := cmp.Diff([]surface.Option{{Value: "U1", Label: "One"}}, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	if _, err := options.ParseJSON([]byte(`{"data":{"x":1}}`), "data", "", ""); err == nil {
		t.Fatalf("expected error for non array results")
	}
}

func TestBindingLastRequestWins(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan string, 2)
	fetcher := options.FetcherFunc(func(ctx context.Context, parent string) ([]surface.Option, error) {
		started <- parent
		if parent == "1" {
			// The slow request ignores cancellation and answers last.
			<-release
		}
		return []surface.Option{{Value: parent + "0", Label: "unit of " + parent}}, nil
	})

	mem := surface.NewMemory()
	binding := options.NewBinding(parentRef, childRef, fetcher, mem)

	binding.Refresh(context.Background(), "1")
	<-started
	binding.Refresh(context.Background(), "2")
	<-started

	// Let the second response land first, then release the stale one.
	waitForOptions(t, mem, "20")
	close(release)
	binding.Wait()

	if diff := cmp.Diff([]surface.Option{{Value: "20", Label: "unit of 2"}}, mem.Options("id_unit")); diff != "" {
		t.Fatalf("stale response overwrote options (-want +got):\n%s", diff)
	}
	if binding.Generation() != 2 {
		t.Fatalf("generation = %d, want 2", binding.Generation())
	}
}

func TestBindingLoadReportsStale(t *testing.T) {
	t.Parallel()

	var once sync.Once
	block := make(chan struct{})
	fetcher := options.FetcherFunc(func(ctx context.Context, parent string) ([]surface.Option, error) {
		if parent == "old" {
			once.Do(func() { close(block) })
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []surface.Option{{Value: "n", Label: "new"}}, nil
	})
	mem := surface.NewMemory()
	binding := options.NewBinding(parentRef, childRef, fetcher, mem)

	errs := make(chan error, 1)
	go func() { errs <- binding.Load(context.Background(), "old") }()
	<-block
	if err := binding.Load(context.Background(), "new"); err != nil {
		t.Fatalf("Load(new): %v", err)
	}
	if err := <-errs; !errors.Is(err, options.ErrStale) {
		t.Fatalf("Load(old) = %v, want ErrStale", err)
	}
	if mem.HasClass("div_id_unit", surface.ClassError) {
		t.Fatalf("a cancelled stale request must not flag the child")
	}
}

func TestBindingErrorKeepsPriorOptions(t *testing.T) {
	t.Parallel()

	fail := errors.New("network down")
	var hooked error
	fetcher := options.FetcherFunc(func(ctx context.Context, parent string) ([]surface.Option, error) {
		if parent == "bad" {
			return nil, fail
		}
		return []surface.Option{{Value: "1", Label: "One"}}, nil
	})
	mem := surface.NewMemory()
	binding := options.NewBinding(parentRef, childRef, fetcher, mem, options.OnError(func(err error) { hooked = err }))

	if err := binding.Load(context.Background(), "good"); err != nil {
		t.Fatalf("Load(good): %v", err)
	}
	err := binding.Load(context.Background(), "bad")
	if !errors.Is(err, fail) {
		t.Fatalf("Load(bad) = %v, want wrapped %v", err, fail)
	}
	if !errors.Is(hooked, fail) {
		t.Fatalf("error hook got %v", hooked)
	}
	if diff := cmp.Diff([]surface.Option{{Value: "1", Label: "One"}}, mem.Options("id_unit")); diff != "" {
		t.Fatalf("prior options lost (-want +got):\n%s", diff)
	}
	if !mem.HasClass("div_id_unit", surface.ClassError) || mem.Message("div_id_unit") != options.LoadFailedMessage {
		t.Fatalf("expected error marker on child container")
	}

	if err := binding.Load(context.Background(), "good"); err != nil {
		t.Fatalf("Load(good): %v", err)
	}
	if mem.HasClass("div_id_unit", surface.ClassError) || mem.Message("div_id_unit") != "" {
		t.Fatalf("success should clear the error marker")
	}
}

func TestBindingClearsStaleChildValue(t *testing.T) {
	t.Parallel()

	fetcher := options.FetcherFunc(func(ctx context.Context, parent string) ([]surface.Option, error) {
		return []surface.Option{{Value: parent + "-a", Label: "A"}}, nil
	})
	mem := surface.NewMemory()
	binding := options.NewBinding(parentRef, childRef, fetcher, mem)

	if err := binding.Load(context.Background(), "x"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	mem.SetValue("id_unit", "x-a")
	if err := binding.Load(context.Background(), "x"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := mem.Value("id_unit"); got != "x-a" {
		t.Fatalf("value still offered should be kept, got %q", got)
	}
	if err := binding.Load(context.Background(), "y"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := mem.Value("id_unit"); got != "" {
		t.Fatalf("value no longer offered should be cleared, got %q", got)
	}

	if err := binding.Load(context.Background(), ""); err != nil {
		t.Fatalf("Load(empty): %v", err)
	}
	if got := mem.Options("id_unit"); len(got) != 0 {
		t.Fatalf("empty parent should clear options, got %v", got)
	}
}

func TestBindingWaitAlongsideRefresh(t *testing.T) {
	t.Parallel()

	fetcher := options.FetcherFunc(func(ctx context.Context, parent string) ([]surface.Option, error) {
		return []surface.Option{{Value: parent + "0", Label: "unit of " + parent}}, nil
	})
	mem := surface.NewMemory()
	binding := options.NewBinding(parentRef, childRef, fetcher, mem)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				binding.Refresh(context.Background(), "1")
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				binding.Wait()
			}
		}()
	}
	wg.Wait()

	binding.Refresh(context.Background(), "9")
	binding.Wait()
	if diff := cmp.Diff([]surface.Option{{Value: "90", Label: "unit of 9"}}, mem.Options("id_unit")); diff != "" {
		t.Fatalf("options after Wait (-want +got):\n%s", diff)
	}
	if got := binding.Generation(); got != 8*25+1 {
		t.Fatalf("generation = %d, want %d", got, 8*25+1)
	}
}

func waitForOptions(t *testing.T, mem *surface.Memory, value string) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if opts := mem.Options("id_unit"); len(opts) == 1 && opts[0].Value == value {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("options for %q never applied", value)
}
