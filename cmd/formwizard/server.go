package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/goliatone/go-formwizard/pkg/constraints"
	"github.com/goliatone/go-formwizard/pkg/formschema"
	"github.com/goliatone/go-formwizard/pkg/orchestrator"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const maxEventBytes = 64 << 10

type server struct {
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
}

func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /forms/{form}", s.handleOpen)
	mux.HandleFunc("GET /sessions/{session}", s.handleShow)
	mux.HandleFunc("POST "+eventsPattern, s.handleEvent)
	mux.HandleFunc("DELETE /sessions/{session}", s.handleClose)
	mux.HandleFunc("POST /submissions", s.handleSubmission)
}

func (s *server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	b.WriteString("<!doctype html>\n<ul>\n")
	for _, id := range s.orch.FormIDs() {
		escaped := html.EscapeString(id)
		fmt.Fprintf(&b, "  <li><a href=\"/forms/%s\">%s</a></li>\n", escaped, escaped)
	}
	b.WriteString("</ul>\n")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

// handleOpen starts a session. Query parameters prefill field values, which
// is how edit forms come back with their sections already shown.
func (s *server) handleOpen(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]string, len(r.URL.Query()))
	for key, vals := range r.URL.Query() {
		if key == "renderer" {
			continue
		}
		if len(vals) > 0 {
			values[key] = vals[len(vals)-1]
		}
	}

	sess, err := s.orch.Open(r.Context(), r.PathValue("form"), values)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("X-Session", sess.ID())
	s.render(w, r, sess, render.RenderOptions{})
}

func (s *server) handleShow(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.PathValue("session"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, r, sess, render.RenderOptions{})
}

func (s *server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.orch.Close(r.PathValue("session"))
	w.WriteHeader(http.StatusNoContent)
}

// handleEvent applies one browser event (change, next or prev) and renders
// the resulting state.
func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.PathValue("session"))
	if err != nil {
		s.fail(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBytes)
	if err := parseEventForm(r); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch kind := r.FormValue("type"); kind {
	case "change":
		err = sess.Change(r.Context(), r.FormValue("name"), r.FormValue("value"))
		var cerr *constraints.Error
		if errors.As(err, &cerr) {
			err = nil
		}
		sess.Wait()
	case "next":
		var transition wizard.Transition
		transition, err = sess.Next(r.Context())
		if errors.Is(err, wizard.ErrNavigationLocked) {
			err = nil
		}
		if transition == wizard.TransitionSubmitted && err != nil {
			s.logger.Warn("submission rejected", "session", sess.ID(), "error", err)
			err = nil
		}
	case "prev":
		_, err = sess.Prev()
		if errors.Is(err, wizard.ErrNavigationLocked) {
			err = nil
		}
	default:
		http.Error(w, fmt.Sprintf("unknown event type %q", kind), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.render(w, r, sess, render.RenderOptions{})
}

func parseEventForm(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxEventBytes)
	}
	return r.ParseForm()
}

// handleSubmission is a sink for completed forms posted by sessions configured
// with a submit URL pointing back at this server.
func (s *server) handleSubmission(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	fields := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]any{"__all__": []string{"invalid JSON body"}}})
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for key := range r.PostForm {
			fields[key] = r.PostForm.Get(key)
		}
	}
	s.logger.Info("submission stored", "fields", len(fields))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *server) render(w http.ResponseWriter, r *http.Request, sess *session.Session, opts render.RenderOptions) {
	res, err := s.orch.Render(r.Context(), orchestrator.Request{
		Session:       sess,
		Renderer:      r.URL.Query().Get("renderer"),
		Accept:        r.Header.Get("Accept"),
		RenderOptions: opts,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	_, _ = w.Write(res.Body)
}

func (s *server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, formschema.ErrFormNotFound), errors.Is(err, orchestrator.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrUnknownField):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
