package chrono_test

import (
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-formwizard/pkg/chrono"
	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/surface"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func TestCheckSequence(t *testing.T) {
	t.Parallel()

	form := testsupport.RegistryForm(t, "patient_register")
	seq := form.Sequences[0]

	cases := []struct {
		name   string
		values map[string]string
		bad    bool
		later  string
	}{
		{name: "all empty", values: nil},
		{name: "increasing", values: map[string]string{
			"krt_first-start_date":   "01/01/2019",
			"krt_2-start_date":       "15/06/2019",
			"krt_present-start_date": "02/02/2021",
		}},
		{name: "equal dates", bad: true, later: "krt_2-start_date", values: map[string]string{
			"krt_first-start_date": "01/01/2019",
			"krt_2-start_date":     "01/01/2019",
		}},
		{name: "day month order matters", bad: true, later: "krt_present-start_date", values: map[string]string{
			"krt_5-start_date":       "03/04/2020",
			"krt_present-start_date": "04/03/2020",
		}},
		{name: "gap passes on both sides", values: map[string]string{
			"krt_first-start_date": "01/01/2020",
			"krt_3-start_date":     "01/01/2018",
		}},
		{name: "unparseable passes", values: map[string]string{
			"krt_first-start_date": "2020-01-01",
			"krt_2-start_date":     "01/01/2019",
		}},
	}

	for _, tc := range cases {
		violation, bad := chrono.Check(seq, func(ref model.FieldRef) string { return tc.values[ref.Name()] })
		if bad != tc.bad {
			t.Fatalf("%s: violated = %v, want %v", tc.name, bad, tc.bad)
		}
		if bad && violation.Later.Name() != tc.later {
			t.Fatalf("%s: later = %q, want %q", tc.name, violation.Later.Name(), tc.later)
		}
	}
}

func TestValidatorLocksControls(t *testing.T) {
	t.Parallel()

	form := testsupport.RegistryForm(t, "patient_register")
	mem := surface.NewMemory(form.ElementIDs()...)
	v := chrono.NewValidator(mem, form.Sequences)

	first, _ := form.Ref("krt_first-start_date")
	second, _ := form.Ref("krt_2-start_date")

	mem.SetValue(first.Input(), "10/05/2020")
	mem.SetValue(second.Input(), "09/05/2020")
	if _, bad := v.OnFieldChange(second); !bad {
		t.Fatalf("expected violation")
	}
	if !mem.HasClass(second.Input(), surface.ClassRedBorder) {
		t.Fatalf("changed input should get the red border")
	}
	for _, id := range []string{wizard.PrevControl, wizard.NextControl} {
		if !mem.Disabled(id) || !mem.HasClass(id, surface.ClassGrayText) {
			t.Fatalf("%s should be greyed out and disabled", id)
		}
	}
	if !v.Locked() {
		t.Fatalf("validator should report locked")
	}

	mem.SetValue(second.Input(), "11/05/2020")
	if _, bad := v.OnFieldChange(second); bad {
		t.Fatalf("expected sequence to be valid again")
	}
	if mem.HasClass(second.Input(), surface.ClassRedBorder) || mem.Disabled(wizard.NextControl) || mem.HasClass(wizard.NextControl, surface.ClassGrayText) {
		t.Fatalf("markers should be removed once in order")
	}
}

func TestValidatorIgnoresUnrelatedFields(t *testing.T) {
	t.Parallel()

	form := testsupport.RegistryForm(t, "patient_register")
	mem := surface.NewMemory(form.ElementIDs()...)
	v := chrono.NewValidator(mem, form.Sequences)

	dob, _ := form.Ref("dob")
	if v.Watches("dob") {
		t.Fatalf("dob is not part of a sequence")
	}
	if _, bad := v.OnFieldChange(dob); bad {
		t.Fatalf("unrelated field cannot violate")
	}
	if !v.Watches("krt_present-start_date") {
		t.Fatalf("present start date should be watched")
	}
}

func TestNotAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	if err := chrono.NotAfter("", "10/03/2024", now); err != nil {
		t.Fatalf("today should pass: %v", err)
	}
	if err := chrono.NotAfter("", "11/03/2024", now); !errors.Is(err, chrono.ErrFutureDate) {
		t.Fatalf("tomorrow should fail, got %v", err)
	}
	if err := chrono.NotAfter("", "", now); err != nil {
		t.Fatalf("empty should pass: %v", err)
	}
	if err := chrono.NotAfter("", "31/02/2024", now); err == nil {
		t.Fatalf("invalid date should fail to parse")
	}
}
