package options

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Response formats understood by HTTPFetcher.
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

const maxResponseBytes = 1 << 20

// Fetcher loads the options of a child select for a parent value.
type Fetcher interface {
	FetchOptions(ctx context.Context, parentValue string) ([]surface.Option, error)
}

// FetcherFunc adapts a function into a Fetcher.
type FetcherFunc func(ctx context.Context, parentValue string) ([]surface.Option, error)

// FetchOptions delegates to the underlying function.
func (fn FetcherFunc) FetchOptions(ctx context.Context, parentValue string) ([]surface.Option, error) {
	return fn(ctx, parentValue)
}

// HTTPFetcher issues `GET <url>?<param>=<parent>` and decodes either a JSON
// document or an HTML fragment of <option> elements.
type HTTPFetcher struct {
	endpoint string
	param    string
	format   string
	results  string
	valueKey string
	labelKey string
	client   *http.Client
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithParam sets the query parameter carrying the parent value.
func WithParam(param string) FetcherOption {
	return func(f *HTTPFetcher) {
		if param != "" {
			f.param = param
		}
	}
}

// WithFormat selects FormatJSON or FormatHTML.
func WithFormat(format string) FetcherOption {
	return func(f *HTTPFetcher) {
		if format != "" {
			f.format = strings.ToLower(format)
		}
	}
}

// WithResultsPath sets the dotted path of the options array in a JSON body.
// An empty path accepts a top level array.
func WithResultsPath(path string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.results = path
	}
}

// WithKeys sets the JSON keys holding option values and labels.
func WithKeys(valueKey, labelKey string) FetcherOption {
	return func(f *HTTPFetcher) {
		if valueKey != "" {
			f.valueKey = valueKey
		}
		if labelKey != "" {
			f.labelKey = labelKey
		}
	}
}

// NewHTTPFetcher returns a fetcher for endpoint.
func NewHTTPFetcher(endpoint string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		endpoint: endpoint,
		param:    "parent",
		format:   FormatJSON,
		results:  "data",
		valueKey: "value",
		labelKey: "label",
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// FetcherFor builds an HTTPFetcher from a dependent declaration.
func FetcherFor(dep model.Dependent, opts ...FetcherOption) *HTTPFetcher {
	base := []FetcherOption{
		WithParam(dep.Param),
		WithFormat(dep.Format),
		WithKeys(dep.ValueKey, dep.LabelKey),
	}
	if dep.Results != "" {
		base = append(base, WithResultsPath(dep.Results))
	}
	return NewHTTPFetcher(dep.URL, append(base, opts...)...)
}

// FetchOptions implements Fetcher.
func (f *HTTPFetcher) FetchOptions(ctx context.Context, parentValue string) ([]surface.Option, error) {
	target, err := url.Parse(f.endpoint)
	if err != nil {
		return nil, fmt.Errorf("options: parse url %q: %w", f.endpoint, err)
	}
	query := target.Query()
	query.Set(f.param, parentValue)
	target.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("options: build request: %w", err)
	}
	if f.format == FormatHTML {
		req.Header.Set("Accept", "text/html")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("options: fetch %s: %w", target.Redacted(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("options: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("options: fetch %s: unexpected status %d", target.Redacted(), resp.StatusCode)
	}

	switch f.format {
	case FormatHTML:
		return ParseHTML(body)
	case FormatJSON:
		return ParseJSON(body, f.results, f.valueKey, f.labelKey)
	default:
		return nil, fmt.Errorf("options: unsupported format %q", f.format)
	}
}

// ParseJSON reads options from the array found at results. Items may be
// objects carrying valueKey/labelKey (falling back to id/name) or
// [value, label] pairs.
func ParseJSON(body []byte, results, valueKey, labelKey string) ([]surface.Option, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("options: decode json: %w", err)
	}

	node := doc
	if results != "" {
		for _, segment := range strings.Split(results, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("options: results path %q: %q is not an object", results, segment)
			}
			node = obj[segment]
		}
	}
	items, ok := node.([]any)
	if !ok {
		if node == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("options: results path %q is not an array", results)
	}

	out := make([]surface.Option, 0, len(items))
	for idx, item := range items {
		opt, err := optionFromJSON(item, valueKey, labelKey)
		if err != nil {
			return nil, fmt.Errorf("options: item %d: %w", idx, err)
		}
		out = append(out, opt)
	}
	return out, nil
}

func optionFromJSON(item any, valueKey, labelKey string) (surface.Option, error) {
	switch typed := item.(type) {
	case map[string]any:
		value, ok := firstKey(typed, valueKey, "value", "id")
		if !ok {
			return surface.Option{}, fmt.Errorf("missing %q", valueKey)
		}
		label, ok := firstKey(typed, labelKey, "label", "name")
		if !ok {
			label = value
		}
		return surface.Option{Value: value, Label: label}, nil
	case []any:
		if len(typed) != 2 {
			return surface.Option{}, errors.New("pair must have two entries")
		}
		return surface.Option{Value: fmt.Sprint(typed[0]), Label: fmt.Sprint(typed[1])}, nil
	case string, json.Number:
		text := fmt.Sprint(typed)
		return surface.Option{Value: text, Label: text}, nil
	default:
		return surface.Option{}, fmt.Errorf("unsupported item %T", item)
	}
}

func firstKey(obj map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if raw, ok := obj[key]; ok && raw != nil {
			return fmt.Sprint(raw), true
		}
	}
	return "", false
}

// ParseHTML reads the <option> elements of an HTML fragment. An option
// without a value attribute uses its text, as browsers do.
func ParseHTML(body []byte) ([]surface.Option, error) {
	var (
		out     []surface.Option
		current *surface.Option
		text    strings.Builder
		hasVal  bool
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Label = strings.Join(strings.Fields(text.String()), " ")
		if !hasVal {
			current.Value = current.Label
		}
		out = append(out, *current)
		current = nil
		text.Reset()
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("options: parse html: %w", err)
			}
			flush()
			return out, nil
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom != atom.Option {
				continue
			}
			flush()
			current = &surface.Option{}
			hasVal = false
			for _, attr := range tok.Attr {
				if attr.Key == "value" {
					current.Value = attr.Val
					hasVal = true
				}
			}
		case html.EndTagToken:
			if z.Token().DataAtom == atom.Option {
				flush()
			}
		case html.TextToken:
			if current != nil {
				text.Write(z.Text())
			}
		}
	}
}
