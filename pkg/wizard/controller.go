package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
)

// Element ids and labels of the navigation controls.
const (
	PrevControl = "prevBtn"
	NextControl = "nextBtn"

	LabelNext   = "Next"
	LabelSubmit = "Submit"
)

var (
	// ErrNoSteps is returned by New when the form has no steps.
	ErrNoSteps = errors.New("wizard: form has no steps")
	// ErrNavigationLocked is returned while a control is disabled, for example
	// by an out of order date sequence.
	ErrNavigationLocked = errors.New("wizard: navigation locked")
)

// Submitter sends the serialised form once the last step validates.
type Submitter interface {
	Submit(ctx context.Context, state model.FormState) (model.Ack, error)
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, state model.FormState) (model.Ack, error)

// Submit delegates to the underlying function.
func (fn SubmitterFunc) Submit(ctx context.Context, state model.FormState) (model.Ack, error) {
	return fn(ctx, state)
}

// Transition describes what a Next call did.
type Transition int

const (
	TransitionBlocked Transition = iota
	TransitionAdvanced
	TransitionSubmitted
	TransitionRetreated
)

func (t Transition) String() string {
	switch t {
	case TransitionBlocked:
		return "blocked"
	case TransitionAdvanced:
		return "advanced"
	case TransitionSubmitted:
		return "submitted"
	case TransitionRetreated:
		return "retreated"
	default:
		return fmt.Sprintf("Transition(%d)", int(t))
	}
}

// State is a point in time copy of the controller state.
type State struct {
	Current     int
	Count       int
	Finished    []bool
	Submissions int
	LastAck     model.Ack
}

// Controller owns wizard navigation over an ordered list of steps. Exactly
// one step container is visible outside a transition.
type Controller struct {
	surface   surface.Surface
	steps     []model.Step
	formID    string
	meta      func() map[string]string
	submitter Submitter
	logger    *slog.Logger

	mu          sync.Mutex
	current     int
	finished    []bool
	submissions int
	lastAck     model.Ack
}

// Option configures a Controller.
type Option func(*Controller)

// WithSubmitter sets the collaborator invoked past the last step.
func WithSubmitter(submitter Submitter) Option {
	return func(c *Controller) {
		c.submitter = submitter
	}
}

// WithFormID sets the form id carried in the submitted state.
func WithFormID(id string) Option {
	return func(c *Controller) {
		c.formID = id
	}
}

// WithMeta supplies hidden fields, such as a CSRF token, added to every
// submitted state.
func WithMeta(meta func() map[string]string) Option {
	return func(c *Controller) {
		c.meta = meta
	}
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a controller for steps. Call Init before navigating.
func New(s surface.Surface, steps []model.Step, opts ...Option) (*Controller, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	c := &Controller{
		surface:  s,
		steps:    append([]model.Step(nil), steps...),
		logger:   slog.Default(),
		finished: make([]bool, len(steps)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// Init shows step 0 and hides every other step.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = 0
	for idx, step := range c.steps {
		c.surface.SetVisible(step.Container, idx == 0)
	}
	c.showStep(0)
}

// Next validates the current step and, when valid, advances. Advancing past
// the last step resets to step 0 and submits. A submitter error is returned
// wrapped after the reset.
func (c *Controller) Next(ctx context.Context) (Transition, error) {
	c.mu.Lock()
	if c.surface.Disabled(NextControl) {
		c.mu.Unlock()
		return TransitionBlocked, ErrNavigationLocked
	}

	leaving := c.current
	if !c.validate(leaving) {
		c.mu.Unlock()
		c.logger.Debug("wizard step blocked", "form", c.formID, "step", c.steps[leaving].ID)
		return TransitionBlocked, nil
	}

	c.finished[leaving] = true
	c.surface.SetVisible(c.steps[leaving].Container, false)
	c.current++

	if c.current < len(c.steps) {
		c.showStep(c.current)
		c.mu.Unlock()
		return TransitionAdvanced, nil
	}

	c.current = 0
	state := c.collect()
	c.showStep(0)
	c.submissions++
	submitter := c.submitter
	c.mu.Unlock()

	if submitter == nil {
		c.logger.Warn("wizard submitted without a submitter", "form", c.formID)
		return TransitionSubmitted, nil
	}

	ack, err := submitter.Submit(ctx, state)
	if err != nil {
		return TransitionSubmitted, fmt.Errorf("wizard: submit form %q: %w", c.formID, err)
	}
	c.mu.Lock()
	c.lastAck = ack
	c.mu.Unlock()
	c.logger.Info("wizard submitted", "form", c.formID, "status", ack.Status)
	return TransitionSubmitted, nil
}

// Prev hides the current step and shows the previous one, wrapping from the
// first step to the last.
func (c *Controller) Prev() (Transition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.surface.Disabled(PrevControl) {
		return TransitionBlocked, ErrNavigationLocked
	}

	c.surface.SetVisible(c.steps[c.current].Container, false)
	c.current--
	if c.current < 0 {
		c.current = len(c.steps) - 1
	}
	c.showStep(c.current)
	return TransitionRetreated, nil
}

// Goto shows step index without validating the step being left. It is used
// to bring back the step holding a field rejected by the server.
func (c *Controller) Goto(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.steps) {
		return fmt.Errorf("wizard: step %d out of range [0,%d)", index, len(c.steps))
	}
	c.surface.SetVisible(c.steps[c.current].Container, false)
	c.current = index
	c.showStep(index)
	return nil
}

// ValidateStep flags empty required fields of step index with the invalid
// class and reports whether none were flagged. Required fields hidden by a
// rule are skipped.
func (c *Controller) ValidateStep(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.steps) {
		return false
	}
	return c.validate(index)
}

// FlagRequired marks the empty required fields of step index like
// ValidateStep does, without marking the step finished. It reports whether
// none were flagged.
func (c *Controller) FlagRequired(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.steps) {
		return false
	}
	return c.flagRequired(index)
}

func (c *Controller) validate(index int) bool {
	if !c.flagRequired(index) {
		return false
	}
	c.surface.AddClass(c.steps[index].Indicator, surface.ClassFinish)
	return true
}

func (c *Controller) flagRequired(index int) bool {
	valid := true
	for _, ref := range c.steps[index].Required {
		input := ref.Input()
		c.surface.RemoveClass(input, surface.ClassInvalid)
		if !surface.Displayed(c.surface, ref.Containers()...) {
			continue
		}
		if strings.TrimSpace(c.surface.Value(input)) == "" {
			c.surface.AddClass(input, surface.ClassInvalid)
			valid = false
		}
	}
	return valid
}

// showStep displays step n and updates the controls and indicators.
func (c *Controller) showStep(n int) {
	c.surface.SetVisible(c.steps[n].Container, true)
	c.surface.SetVisible(PrevControl, n != 0)
	c.surface.SetVisible(NextControl, true)
	if n == len(c.steps)-1 {
		c.surface.SetLabel(NextControl, LabelSubmit)
	} else {
		c.surface.SetLabel(NextControl, LabelNext)
	}
	for idx, step := range c.steps {
		if idx == n {
			c.surface.AddClass(step.Indicator, surface.ClassActive)
			continue
		}
		c.surface.RemoveClass(step.Indicator, surface.ClassActive)
	}
}

// collect serialises the displayed fields of every step.
func (c *Controller) collect() model.FormState {
	state := model.FormState{FormID: c.formID, Values: map[string]string{}}
	for _, step := range c.steps {
		for _, ref := range step.Fields {
			if !surface.Displayed(c.surface, ref.Containers()...) {
				continue
			}
			state.Values[ref.Name()] = c.surface.Value(ref.Input())
		}
	}
	if c.meta != nil {
		if meta := c.meta(); len(meta) > 0 {
			state.Meta = make(map[string]string, len(meta))
			for key, value := range meta {
				state.Meta[key] = value
			}
		}
	}
	return state
}

// Current returns the index of the visible step.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Count returns the number of steps.
func (c *Controller) Count() int { return len(c.steps) }

// Steps returns the controller steps.
func (c *Controller) Steps() []model.Step {
	return append([]model.Step(nil), c.steps...)
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Current:     c.current,
		Count:       len(c.steps),
		Finished:    append([]bool(nil), c.finished...),
		Submissions: c.submissions,
		LastAck:     c.lastAck,
	}
}
