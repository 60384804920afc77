package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/constraints"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/session"
	"github.com/goliatone/go-formwizard/pkg/submit"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	noneOption     = "(none)"
	actionPrevious = "Previous"
	actionQuit     = "Quit"
	requiredMsg    = "This field is required."
)

// Renderer drives a wizard session from the terminal and renders views as
// plain text summaries.
type Renderer struct {
	driver PromptDriver
	theme  Theme
	logger *slog.Logger
	now    func() time.Time
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer backed by survey prompts unless a driver is
// supplied.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = newSurveyDriver()
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the format produced by Render.
func (r *Renderer) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Render writes the current step of view as text: the step heading, form
// errors and every displayed field with its value and messages.
func (r *Renderer) Render(ctx context.Context, view render.View, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	view = view.Apply(opts)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", view.Title)
	step, ok := view.CurrentStep()
	if !ok {
		return []byte(b.String()), nil
	}
	fmt.Fprintf(&b, "Step %d/%d: %s\n", view.Current+1, view.Count, step.Title)
	if view.Locked {
		fmt.Fprintf(&b, "%snavigation locked\n", r.theme.ErrorPrefix)
	}
	for _, msg := range view.Errors {
		fmt.Fprintf(&b, "%s%s\n", r.theme.ErrorPrefix, msg)
	}
	for _, section := range step.Sections {
		if section.Group != nil && !section.Group.Visible {
			continue
		}
		indent := ""
		if section.Group != nil && section.Label != "" {
			fmt.Fprintf(&b, "[%s]\n", section.Label)
			indent = "  "
		}
		for _, field := range section.Fields {
			if !field.Container.Visible {
				continue
			}
			marker := ""
			if field.Required {
				marker = "*"
			}
			fmt.Fprintf(&b, "%s%s%s: %s\n", indent, field.Label, marker, displayValue(field))
			for _, msg := range field.Errors {
				fmt.Fprintf(&b, "%s  %s%s\n", indent, r.theme.ErrorPrefix, msg)
			}
		}
	}
	return []byte(b.String()), nil
}

// Run prompts for every displayed field of the current step, then asks
// whether to move on. It returns once the form was submitted or the user
// quits, in which case the error is ErrAborted.
func (r *Renderer) Run(ctx context.Context, s *session.Session) (wizard.State, error) {
	if s == nil {
		return wizard.State{}, ErrNoSession
	}
	checker := constraints.NewChecker(s.Form(), r.now)

	for {
		if err := ctx.Err(); err != nil {
			return wizard.State{}, err
		}
		view := s.Snapshot()
		step, _ := view.CurrentStep()
		r.info(ctx, fmt.Sprintf("%s (%d/%d)", step.Title, view.Current+1, view.Count))
		for _, msg := range view.Errors {
			r.fail(ctx, msg)
		}

		if err := r.promptStep(ctx, s, view.Current, checker); err != nil {
			return wizard.State{}, err
		}

		done, err := r.advance(ctx, s)
		if err != nil {
			return wizard.State{}, err
		}
		if done {
			return s.State(), nil
		}
	}
}

func (r *Renderer) promptStep(ctx context.Context, s *session.Session, index int, checker *constraints.Checker) error {
	step := s.Form().Steps[index]
	for _, ref := range step.Fields {
		// Earlier answers may have shown or hidden this field.
		if !surface.Displayed(s.Surface(), ref.Containers()...) {
			continue
		}
		for {
			field, _ := s.Snapshot().Field(ref.Name())
			value, err := r.promptField(ctx, field, checker)
			if err != nil {
				return err
			}
			err = s.Change(ctx, field.Name, value)
			var cerr *constraints.Error
			if errors.As(err, &cerr) {
				r.fail(ctx, cerr.Message)
				continue
			}
			if err != nil {
				return err
			}
			s.Wait()
			break
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, field render.FieldView, checker *constraints.Checker) (string, error) {
	message := r.theme.PromptPrefix + field.Label
	validate := func(value string) error {
		if field.Required && strings.TrimSpace(value) == "" {
			return errors.New(requiredMsg)
		}
		return checker.Check(field.Name, value)
	}

	switch field.Kind {
	case model.KindSelect, model.KindYesNo:
		if len(field.Options) > 0 {
			return r.promptChoice(ctx, field, message)
		}
		for _, msg := range field.Errors {
			r.fail(ctx, msg)
		}
	case model.KindTextArea:
		for {
			value, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Default: field.Value, Help: field.Help})
			if err != nil {
				return "", err
			}
			if err := validate(value); err != nil {
				r.fail(ctx, err.Error())
				continue
			}
			return value, nil
		}
	}

	return r.driver.Input(ctx, InputConfig{
		Message:   message,
		Default:   field.Value,
		Help:      field.Help,
		Validator: validate,
	})
}

func (r *Renderer) promptChoice(ctx context.Context, field render.FieldView, message string) (string, error) {
	var values, labels []string
	if !field.Required {
		values = append(values, "")
		labels = append(labels, noneOption)
	}
	for _, option := range field.Options {
		values = append(values, option.Value)
		labels = append(labels, option.Label)
	}

	def := 0
	for idx, value := range values {
		if value == field.Value {
			def = idx
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: message, Options: labels, DefaultIndex: def, Help: field.Help})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(values) {
		return "", fmt.Errorf("tui: choice %d out of range for %s", idx, field.Name)
	}
	return values[idx], nil
}

// advance asks for the next action and applies it. It reports true once
// the form has been submitted.
func (r *Renderer) advance(ctx context.Context, s *session.Session) (bool, error) {
	view := s.Snapshot()
	next := view.Next.Label
	if next == "" {
		next = wizard.LabelNext
	}
	actions := []string{next}
	if view.Prev.Visible {
		actions = append(actions, actionPrevious)
	}
	actions = append(actions, actionQuit)

	idx, err := r.driver.Select(ctx, SelectConfig{Message: "Continue", Options: actions})
	if err != nil {
		return false, err
	}
	if idx < 0 || idx >= len(actions) {
		return false, fmt.Errorf("tui: action %d out of range", idx)
	}

	switch actions[idx] {
	case actionQuit:
		return false, ErrAborted
	case actionPrevious:
		if _, err := s.Prev(); errors.Is(err, wizard.ErrNavigationLocked) {
			r.fail(ctx, "Dates are out of order, fix them before leaving this step.")
		}
		return false, nil
	}

	if next == wizard.LabelSubmit {
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Submit the form?", Default: true})
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	transition, err := s.Next(ctx)
	var serr *submit.Error
	switch {
	case errors.Is(err, wizard.ErrNavigationLocked):
		r.fail(ctx, "Dates are out of order, fix them before leaving this step.")
		return false, nil
	case errors.As(err, &serr):
		r.logger.Warn("submission rejected", "status", serr.Status)
		r.fail(ctx, "The form was rejected, review the flagged fields.")
		for name, messages := range serr.Fields {
			r.fail(ctx, fmt.Sprintf("%s: %s", name, strings.Join(messages, " ")))
		}
		return false, nil
	case err != nil:
		return false, err
	}

	switch transition {
	case wizard.TransitionBlocked:
		r.fail(ctx, "Some fields are missing or invalid.")
		for _, name := range invalidFields(s.Snapshot()) {
			r.fail(ctx, "  "+name)
		}
		return false, nil
	case wizard.TransitionSubmitted:
		r.info(ctx, "Form submitted.")
		return true, nil
	}
	return false, nil
}

func invalidFields(view render.View) []string {
	step, ok := view.CurrentStep()
	if !ok {
		return nil
	}
	var out []string
	for _, section := range step.Sections {
		for _, field := range section.Fields {
			if field.Input.HasClass(surface.ClassInvalid) {
				out = append(out, field.Label)
			}
		}
	}
	return out
}

func displayValue(field render.FieldView) string {
	for _, option := range field.Options {
		if option.Value == field.Value && field.Value != "" {
			return option.Label
		}
	}
	return field.Value
}

func (r *Renderer) info(ctx context.Context, msg string) {
	if err := r.driver.Info(ctx, r.theme.InfoPrefix+msg); err != nil {
		r.logger.Debug("tui info failed", "error", err)
	}
}

func (r *Renderer) fail(ctx context.Context, msg string) {
	if err := r.driver.Info(ctx, r.theme.ErrorPrefix+msg); err != nil {
		r.logger.Debug("tui info failed", "error", err)
	}
}
