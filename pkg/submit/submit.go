package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/render"
)

// Body encodings.
const (
	EncodingJSON = "json"
	EncodingForm = "form"
)

const maxBodyBytes = 1 << 20

// Error is a rejected submission. Fields holds messages keyed by field name.
type Error struct {
	Status int
	Fields map[string][]string
	Form   []string
}

func (e *Error) Error() string {
	switch {
	case len(e.Fields) > 0:
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Sprintf("submit: status %d: invalid fields %s", e.Status, strings.Join(names, ", "))
	case len(e.Form) > 0:
		return fmt.Sprintf("submit: status %d: %s", e.Status, e.Form[0])
	default:
		return fmt.Sprintf("submit: status %d", e.Status)
	}
}

// HTTPSubmitter posts the form state to an endpoint.
type HTTPSubmitter struct {
	endpoint string
	method   string
	encoding string
	client   *http.Client
	hidden   []render.HiddenField
	headers  http.Header
	fields   []string
	logger   *slog.Logger
}

// Option configures an HTTPSubmitter.
type Option func(*HTTPSubmitter)

// WithHTTPClient overrides http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSubmitter) {
		if client != nil {
			s.client = client
		}
	}
}

// WithEncoding selects EncodingJSON (default) or EncodingForm.
func WithEncoding(encoding string) Option {
	return func(s *HTTPSubmitter) {
		if encoding != "" {
			s.encoding = strings.ToLower(encoding)
		}
	}
}

// WithHidden adds hidden fields, such as a CSRF token, to every submission.
func WithHidden(fields ...render.HiddenField) Option {
	return func(s *HTTPSubmitter) {
		s.hidden = append(s.hidden, fields...)
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) Option {
	return func(s *HTTPSubmitter) {
		s.headers.Set(key, value)
	}
}

// WithFieldNames lists the names server errors are matched against.
func WithFieldNames(names ...string) Option {
	return func(s *HTTPSubmitter) {
		s.fields = append(s.fields, names...)
	}
}

// WithLogger sets the submitter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *HTTPSubmitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a submitter for endpoint. An empty method means POST.
func New(endpoint, method string, opts ...Option) *HTTPSubmitter {
	s := &HTTPSubmitter{
		endpoint: endpoint,
		method:   strings.ToUpper(strings.TrimSpace(method)),
		encoding: EncodingJSON,
		client:   http.DefaultClient,
		headers:  make(http.Header),
		logger:   slog.Default(),
	}
	if s.method == "" {
		s.method = http.MethodPost
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ForForm returns a submitter for form's endpoint and method that maps
// server errors onto the form's field names.
func ForForm(form *model.Form, opts ...Option) *HTTPSubmitter {
	base := []Option{WithFieldNames(form.FieldNames()...)}
	for _, group := range form.Groups {
		base = append(base, WithFieldNames(group.Name()))
	}
	return New(form.Endpoint, form.Method, append(base, opts...)...)
}

// Payload merges the visible values with meta and configured hidden fields.
// Hidden fields win over values of the same name.
func (s *HTTPSubmitter) Payload(state model.FormState) map[string]string {
	out := make(map[string]string, len(state.Values)+len(state.Meta)+len(s.hidden))
	for key, value := range state.Values {
		out[key] = value
	}
	for key, value := range render.MergeHiddenFields(state.Meta, s.hidden...) {
		out[key] = value
	}
	return out
}

// Submit implements wizard.Submitter.
func (s *HTTPSubmitter) Submit(ctx context.Context, state model.FormState) (model.Ack, error) {
	payload := s.Payload(state)

	var (
		body        []byte
		contentType string
	)
	switch s.encoding {
	case EncodingForm:
		values := make(url.Values, len(payload))
		for key, value := range payload {
			values.Set(key, value)
		}
		body = []byte(values.Encode())
		contentType = "application/x-www-form-urlencoded"
	case EncodingJSON:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return model.Ack{}, fmt.Errorf("submit: encode payload: %w", err)
		}
		body = encoded
		contentType = "application/json"
	default:
		return model.Ack{}, fmt.Errorf("submit: unsupported encoding %q", s.encoding)
	}

	req, err := http.NewRequestWithContext(ctx, s.method, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.Ack{}, fmt.Errorf("submit: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Ack{}, fmt.Errorf("submit: %s %s: %w", s.method, s.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return model.Ack{}, fmt.Errorf("submit: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug("form submitted", "form", state.FormID, "status", resp.StatusCode)
		return model.Ack{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: respBody}, nil
	}

	mapped := render.MapErrorPayload(s.fields, DecodeErrors(respBody))
	if mapped.Empty() {
		mapped.Form = []string{http.StatusText(resp.StatusCode)}
	}
	s.logger.Warn("form rejected", "form", state.FormID, "status", resp.StatusCode, "fields", len(mapped.Fields))
	return model.Ack{}, &Error{Status: resp.StatusCode, Fields: mapped.Fields, Form: mapped.Form}
}

// DecodeErrors reads a JSON error body into messages keyed by path. It
// understands `{"field": ["msg"]}`, `{"field": "msg"}`, the
// `[{"message": "msg", "code": "..."}]` lists of form error dumps, a
// wrapping `errors` object, and `[{"field": "x", "message": "msg"}]` lists.
// A top level `message` or `detail` becomes a form level entry.
func DecodeErrors(body []byte) map[string][]string {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}
	out := make(map[string][]string)
	collect(out, doc, true)
	if len(out) == 0 {
		return nil
	}
	return out
}

func collect(out map[string][]string, node any, top bool) {
	switch typed := node.(type) {
	case map[string]any:
		for key, value := range typed {
			switch {
			case key == "errors" || key == "validation_errors" || key == "error":
				collect(out, value, false)
			case top && (key == "message" || key == "detail"):
				if text, ok := value.(string); ok {
					out["__all__"] = append(out["__all__"], text)
				}
			default:
				out[key] = append(out[key], messages(value)...)
			}
		}
	case []any:
		for _, item := range typed {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			field, _ := entry["field"].(string)
			if field == "" {
				field, _ = entry["path"].(string)
			}
			out[field] = append(out[field], messages(entry)...)
		}
	}
}

func messages(node any) []string {
	switch typed := node.(type) {
	case string:
		return []string{typed}
	case []any:
		var out []string
		for _, item := range typed {
			out = append(out, messages(item)...)
		}
		return out
	case map[string]any:
		if text, ok := typed["message"].(string); ok {
			return []string{text}
		}
	}
	return nil
}

// Writer is a submitter that writes the payload as indented JSON, used by
// the terminal runner when no endpoint is configured.
type Writer struct {
	Out io.Writer
}

// Submit implements wizard.Submitter.
func (w Writer) Submit(_ context.Context, state model.FormState) (model.Ack, error) {
	encoded, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return model.Ack{}, fmt.Errorf("submit: encode state: %w", err)
	}
	if _, err := w.Out.Write(append(encoded, '\n')); err != nil {
		return model.Ack{}, fmt.Errorf("submit: write state: %w", err)
	}
	return model.Ack{Status: http.StatusOK}, nil
}
