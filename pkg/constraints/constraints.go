package constraints

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-formwizard/pkg/chrono"
	"github.com/goliatone/go-formwizard/pkg/model"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Error reports the first constraint a value failed.
type Error struct {
	Field   string
	Kind    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("constraints: %s: %s", e.Field, e.Message)
}

// Set is the compiled constraint list of one field.
type Set struct {
	field     string
	kind      model.Kind
	pattern   *regexp.Regexp
	min, max  *float64
	minLen    *int
	maxLen    *int
	notFuture bool
	messages  map[string]string
}

// Compile builds the constraint set for field. Malformed thresholds or
// patterns are reported as errors.
func Compile(field model.Field) (*Set, error) {
	set := &Set{field: field.Name, kind: field.Kind, messages: map[string]string{}}
	for _, c := range field.Constraints {
		if c.Message != "" {
			set.messages[c.Kind] = c.Message
		}
		switch c.Kind {
		case model.ConstraintPattern:
			re, err := regexp.Compile(c.Value)
			if err != nil {
				return nil, fmt.Errorf("constraints: field %q pattern: %w", field.Name, err)
			}
			set.pattern = re
		case model.ConstraintMin, model.ConstraintMax:
			n, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
			if err != nil {
				return nil, fmt.Errorf("constraints: field %q %s: %w", field.Name, c.Kind, err)
			}
			if c.Kind == model.ConstraintMin {
				set.min = &n
			} else {
				set.max = &n
			}
		case model.ConstraintMinLength, model.ConstraintMaxLength:
			n, err := strconv.Atoi(strings.TrimSpace(c.Value))
			if err != nil {
				return nil, fmt.Errorf("constraints: field %q %s: %w", field.Name, c.Kind, err)
			}
			if c.Kind == model.ConstraintMinLength {
				set.minLen = &n
			} else {
				set.maxLen = &n
			}
		case model.ConstraintNotFuture:
			set.notFuture = true
		default:
			return nil, fmt.Errorf("constraints: field %q has unknown constraint %q", field.Name, c.Kind)
		}
	}
	return set, nil
}

// Validate checks value against the set. Empty values always pass; required
// checks belong to the wizard.
func (s *Set) Validate(value string, now time.Time) error {
	value = strings.TrimSpace(value)
	if s == nil || value == "" {
		return nil
	}

	switch s.kind {
	case model.KindNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return s.fail("number", "Enter a number.")
		}
		if s.min != nil && n < *s.min {
			return s.fail(model.ConstraintMin, fmt.Sprintf("Ensure this value is greater than or equal to %s.", formatFloat(*s.min)))
		}
		if s.max != nil && n > *s.max {
			return s.fail(model.ConstraintMax, fmt.Sprintf("Ensure this value is less than or equal to %s.", formatFloat(*s.max)))
		}
	case model.KindDate:
		if _, _, err := chrono.Parse(model.DefaultDateLayout, value); err != nil {
			return s.fail("date", "Enter a valid date (dd/mm/yyyy).")
		}
		if s.notFuture {
			if err := chrono.NotAfter(model.DefaultDateLayout, value, now); err != nil {
				return s.fail(model.ConstraintNotFuture, "Date cannot be after today.")
			}
		}
	case model.KindEmail:
		if !emailPattern.MatchString(value) {
			return s.fail("email", "Enter a valid email address.")
		}
	}

	length := utf8.RuneCountInString(value)
	if s.minLen != nil && length < *s.minLen {
		return s.fail(model.ConstraintMinLength, fmt.Sprintf("Ensure this value has at least %d characters.", *s.minLen))
	}
	if s.maxLen != nil && length > *s.maxLen {
		return s.fail(model.ConstraintMaxLength, fmt.Sprintf("Ensure this value has at most %d characters.", *s.maxLen))
	}
	if s.pattern != nil && !s.pattern.MatchString(value) {
		return s.fail(model.ConstraintPattern, "Enter a valid value.")
	}
	return nil
}

func (s *Set) fail(kind, fallback string) error {
	message := fallback
	if custom, ok := s.messages[kind]; ok {
		message = custom
	}
	return &Error{Field: s.field, Kind: kind, Message: message}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Checker caches compiled sets for the fields of a form.
type Checker struct {
	now func() time.Time

	mu   sync.Mutex
	sets map[string]*Set
	form *model.Form
}

// NewChecker returns a checker for form. now defaults to time.Now.
func NewChecker(form *model.Form, now func() time.Time) *Checker {
	if now == nil {
		now = time.Now
	}
	return &Checker{form: form, now: now, sets: map[string]*Set{}}
}

// Check validates value for the named field. Unknown fields pass.
func (c *Checker) Check(name, value string) error {
	set, err := c.set(name)
	if err != nil || set == nil {
		return err
	}
	return set.Validate(value, c.now())
}

func (c *Checker) set(name string) (*Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.sets[name]; ok {
		return set, nil
	}
	field, ok := c.form.Field(name)
	if !ok {
		return nil, nil
	}
	set, err := Compile(field)
	if err != nil {
		return nil, err
	}
	c.sets[name] = set
	return set, nil
}
