package units

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type optionsResponse struct {
	Data []Option `json:"data"`
}

// Handler builds a net/http handler with default options plus any overrides.
func Handler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions builds a net/http handler from a pre-constructed Options
// value. An unknown or empty parent yields an empty option list.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeGuardError(w, err)
				return
			}
		}

		catalog := opts.Catalog
		if catalog == nil {
			loaded, err := DefaultCatalog()
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			catalog = loaded
		}

		results := catalog.Lookup(r.URL.Query().Get(opts.ParentParam))
		if results == nil {
			results = []Option{}
		}

		if format(r, opts) == FormatHTML {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write([]byte(optionsHTML(results)))
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(true)
		_ = enc.Encode(optionsResponse{Data: results})
	})
}

func format(r *http.Request, opts Options) string {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(opts.FormatParam))) {
	case FormatHTML:
		return FormatHTML
	case FormatJSON:
		return FormatJSON
	}
	return opts.DefaultFormat
}

// optionsHTML renders the select body the browser swaps in, led by the
// empty choice.
func optionsHTML(options []Option) string {
	var b strings.Builder
	b.WriteString(`<option value="">---------</option>`)
	for _, option := range options {
		b.WriteString(`<option value="`)
		b.WriteString(html.EscapeString(option.Value))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(option.Label))
		b.WriteString(`</option>`)
	}
	return b.String()
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}
