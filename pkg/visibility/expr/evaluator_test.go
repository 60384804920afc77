package expr

import (
	"testing"

	"github.com/goliatone/go-formwizard/pkg/visibility"
	"github.com/google/go-cmp/cmp"
)

func TestProgramCodedValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		rule  string
		value any
		want  bool
	}{
		{name: "numeric equals string input", rule: "modality == 3", value: "3", want: true},
		{name: "numeric mismatch", rule: "modality == 3", value: "2", want: false},
		{name: "empty select is not zero", rule: "hd_initialaccess == 0", value: "", want: false},
		{name: "string code", rule: `stop_reason == "D"`, value: "D", want: true},
		{name: "bare word literal", rule: "stop_reason == D", value: "D", want: true},
		{name: "not equal", rule: `stop_reason != "D"`, value: "RKF", want: true},
		{name: "yes flag", rule: "in_krt_modality == true", value: "Y", want: true},
		{name: "no flag", rule: "in_krt_modality == true", value: "N", want: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			program, err := Compile(tc.rule)
			if err != nil {
				t.Fatalf("Compile(%q): %v", tc.rule, err)
			}
			field := program.Identifiers()[0]
			got, err := program.Eval(visibility.Context{Values: map[string]any{field: tc.value}})
			if err != nil {
				t.Fatalf("Eval returned error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("%s with %v: got %v, want %v", tc.rule, tc.value, got, tc.want)
			}
		})
	}
}

func TestProgramMembership(t *testing.T) {
	t.Parallel()

	in := MustCompile(`modality in [2, 3]`)
	notIn := MustCompile(`stop_reason not in ["D", 'LF']`)

	for value, want := range map[string]bool{"2": true, "3": true, "4": false, "": false} {
		got, err := in.Eval(visibility.Context{Values: map[string]any{"modality": value}})
		if err != nil {
			t.Fatalf("Eval returned error: %v", err)
		}
		if got != want {
			t.Fatalf("modality %q: got %v, want %v", value, got, want)
		}
	}

	for value, want := range map[string]bool{"D": false, "LF": false, "RKF": true} {
		got, err := notIn.Eval(visibility.Context{Values: map[string]any{"stop_reason": value}})
		if err != nil {
			t.Fatalf("Eval returned error: %v", err)
		}
		if got != want {
			t.Fatalf("stop_reason %q: got %v, want %v", value, got, want)
		}
	}
}

func TestProgramLabelsAndExtras(t *testing.T) {
	t.Parallel()

	program := MustCompile(`labels.krt_present-modality == "HD" && !extras.readonly`)
	ok, err := program.Eval(visibility.Context{
		Values: map[string]any{"krt_present-modality": "2"},
		Labels: map[string]string{"krt_present-modality": "HD"},
		Extras: map[string]any{"readonly": false},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected label comparison to hold")
	}

	if diff := cmp.Diff([]string{"krt_present-modality"}, program.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramCompoundCondition(t *testing.T) {
	t.Parallel()

	program := MustCompile(`(modality == 2 || modality == 3) and in_krt_modality == "Y"`)

	ok, err := program.Eval(visibility.Context{Values: map[string]any{"modality": "2", "in_krt_modality": "Y"}})
	if err != nil || !ok {
		t.Fatalf("expected true, got %v (err %v)", ok, err)
	}
	ok, err = program.Eval(visibility.Context{Values: map[string]any{"modality": "2", "in_krt_modality": "N"}})
	if err != nil || ok {
		t.Fatalf("expected false, got %v (err %v)", ok, err)
	}

	if diff := cmp.Diff([]string{"modality", "in_krt_modality"}, program.Identifiers()); diff != "" {
		t.Fatalf("identifiers mismatch (-want +got):\n%s", diff)
	}
}

func TestProgramDotLookup(t *testing.T) {
	t.Parallel()

	program := MustCompile(`krt_present.modality == "2"`)

	ok, err := program.Eval(visibility.Context{
		Values: map[string]any{"krt_present.modality": "2"},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for flattened dotted key")
	}

	ok, err = program.Eval(visibility.Context{
		Values: map[string]any{"krt_present": map[string]any{"modality": "2"}},
	})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for nested map lookup")
	}
}

func TestProgramNullLiteral(t *testing.T) {
	t.Parallel()

	ok, err := MustCompile("dod == null").Eval(visibility.Context{Values: map[string]any{}})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for missing == null")
	}

	ok, err = MustCompile("transplant_ready != null").Eval(visibility.Context{Values: map[string]any{"transplant_ready": false}})
	if err != nil {
		t.Fatalf("Eval returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected true for present != null")
	}
}

func TestCacheCompilesOnce(t *testing.T) {
	t.Parallel()

	cache := NewCache()
	first, err := cache.Compile(`in_krt_modality == "Y"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	second, err := cache.Compile(`  in_krt_modality == "Y" `)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached program for equal rules")
	}
	if _, err := cache.Compile("modality = 3"); err == nil {
		t.Fatalf("expected compile error")
	}
	if got := cache.Len(); got != 1 {
		t.Fatalf("cache holds %d programs, want 1", got)
	}
}

func TestEmptyRuleAlwaysHolds(t *testing.T) {
	t.Parallel()

	program, err := Compile("   ")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := program.Eval(visibility.Context{})
	if err != nil || !ok {
		t.Fatalf("expected empty rule to hold, got %v (err %v)", ok, err)
	}
}

func TestCompileErrors(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{
		"modality = 3",
		"a & b",
		`name == "open`,
		"(modality == 3",
		"modality in 2, 3",
		"modality in [2 3]",
		"== 3",
	} {
		if _, err := Compile(rule); err == nil {
			t.Fatalf("expected compile error for %q", rule)
		}
	}
}
