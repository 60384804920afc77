package chrono

import (
	"log/slog"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// Validator watches date sequences and locks the navigation controls while
// any of them is out of order.
type Validator struct {
	surface   surface.Surface
	sequences []model.DateSequence
	controls  []string
	logger    *slog.Logger

	mu       sync.Mutex
	violated map[string]Violation
}

// Option configures a Validator.
type Option func(*Validator)

// WithControls overrides the control ids locked on violation.
func WithControls(ids ...string) Option {
	return func(v *Validator) {
		v.controls = append([]string(nil), ids...)
	}
}

// WithLogger sets the validator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewValidator returns a validator for sequences writing markers to s.
func NewValidator(s surface.Surface, sequences []model.DateSequence, opts ...Option) *Validator {
	v := &Validator{
		surface:   s,
		sequences: append([]model.DateSequence(nil), sequences...),
		controls:  []string{wizard.PrevControl, wizard.NextControl},
		logger:    slog.Default(),
		violated:  make(map[string]Violation),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Watches reports whether name belongs to any sequence.
func (v *Validator) Watches(name string) bool {
	for _, seq := range v.sequences {
		if contains(seq, name) {
			return true
		}
	}
	return false
}

// OnFieldChange re-checks every sequence containing changed. On violation the
// changed input gets the red border and the controls are greyed out and
// disabled; once every sequence is in order the markers are removed.
func (v *Validator) OnFieldChange(changed model.FieldRef) (Violation, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var (
		found Violation
		bad   bool
	)
	for _, seq := range v.sequences {
		if !contains(seq, changed.Name()) {
			continue
		}
		violation, ok := Check(seq, v.value)
		if ok {
			v.violated[seq.Name] = violation
			found, bad = violation, true
			continue
		}
		delete(v.violated, seq.Name)
		for _, ref := range seq.Fields {
			v.surface.RemoveClass(ref.Input(), surface.ClassRedBorder)
		}
	}

	if bad {
		v.surface.AddClass(changed.Input(), surface.ClassRedBorder)
		v.logger.Debug("date sequence out of order",
			"sequence", found.Sequence, "earlier", found.Earlier.Name(), "later", found.Later.Name())
	}
	v.syncControls()
	return found, bad
}

// CheckAll evaluates every sequence, used after loading pre-filled values
// and after rules cleared dates. Sequences back in order lose their markers.
func (v *Validator) CheckAll() bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, seq := range v.sequences {
		violation, ok := Check(seq, v.value)
		if !ok {
			delete(v.violated, seq.Name)
			for _, ref := range seq.Fields {
				v.surface.RemoveClass(ref.Input(), surface.ClassRedBorder)
			}
			continue
		}
		v.violated[seq.Name] = violation
		if !v.marked(seq) {
			v.surface.AddClass(violation.Later.Input(), surface.ClassRedBorder)
		}
	}
	v.syncControls()
	return len(v.violated) == 0
}

// Locked reports whether any sequence is currently violated.
func (v *Validator) Locked() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.violated) > 0
}

// Violations returns the current violations keyed by sequence name.
func (v *Validator) Violations() map[string]Violation {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]Violation, len(v.violated))
	for name, violation := range v.violated {
		out[name] = violation
	}
	return out
}

func (v *Validator) syncControls() {
	locked := len(v.violated) > 0
	for _, id := range v.controls {
		if locked {
			v.surface.AddClass(id, surface.ClassGrayText)
		} else {
			v.surface.RemoveClass(id, surface.ClassGrayText)
		}
		v.surface.SetDisabled(id, locked)
	}
}

func (v *Validator) marked(seq model.DateSequence) bool {
	for _, ref := range seq.Fields {
		if v.surface.HasClass(ref.Input(), surface.ClassRedBorder) {
			return true
		}
	}
	return false
}

func (v *Validator) value(ref model.FieldRef) string {
	return v.surface.Value(ref.Input())
}

func contains(seq model.DateSequence, name string) bool {
	for _, ref := range seq.Fields {
		if ref.Name() == name {
			return true
		}
	}
	return false
}
