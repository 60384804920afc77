package chrono

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formwizard/pkg/model"
)

// ErrFutureDate is returned by NotAfter for dates later than today.
var ErrFutureDate = errors.New("chrono: date cannot be after today")

// Parse reads raw with layout. Empty input reports ok=false without error.
func Parse(layout, raw string) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if layout == "" {
		layout = model.DefaultDateLayout
	}
	ts, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("chrono: parse %q with layout %q: %w", raw, layout, err)
	}
	return ts, true, nil
}

// NotAfter returns ErrFutureDate when raw parses to a calendar day after the
// day of now. Empty input passes.
func NotAfter(layout, raw string, now time.Time) error {
	ts, ok, err := Parse(layout, raw)
	if err != nil || !ok {
		return err
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if ts.After(today) {
		return ErrFutureDate
	}
	return nil
}

// Violation identifies the first out of order pair in a sequence.
type Violation struct {
	Sequence string
	Earlier  model.FieldRef
	Later    model.FieldRef
}

func (v Violation) Error() string {
	return fmt.Sprintf("chrono: %s must be before %s", v.Earlier.Name(), v.Later.Name())
}

// Check compares consecutive entries of seq and returns the first pair that
// is not strictly increasing. Empty or unparseable values never violate.
func Check(seq model.DateSequence, value func(model.FieldRef) string) (Violation, bool) {
	var (
		prev     time.Time
		prevRef  model.FieldRef
		havePrev bool
	)
	for idx, ref := range seq.Fields {
		ts, ok, err := Parse(seq.Layout, value(ref))
		if err != nil || !ok {
			// Only neighbours are compared, so a gap passes on both sides.
			havePrev = false
			continue
		}
		if havePrev && !prev.Before(ts) {
			return Violation{Sequence: seq.Name, Earlier: prevRef, Later: seq.Fields[idx]}, true
		}
		prev, prevRef, havePrev = ts, ref, true
	}
	return Violation{}, false
}
