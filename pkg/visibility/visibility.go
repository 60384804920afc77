package visibility

import "fmt"

// Context is the value snapshot a predicate reads. Values holds the current
// field values keyed by field name, Labels the display label of the selected
// option for choice fields, and Extras anything the host wants to expose such
// as user roles or feature flags.
type Context struct {
	Values map[string]any
	Labels map[string]string
	Extras map[string]any
}

// Predicate decides whether the targets of a rule should be shown.
type Predicate interface {
	Eval(ctx Context) (bool, error)
}

// PredicateFunc adapts a function into a Predicate.
type PredicateFunc func(ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn PredicateFunc) Eval(ctx Context) (bool, error) {
	return fn(ctx)
}

// Equals returns a predicate that holds when field equals want.
func Equals(field, want string) Predicate {
	return PredicateFunc(func(ctx Context) (bool, error) {
		return stringValue(ctx.Values[field]) == want, nil
	})
}

// OneOf returns a predicate that holds when field equals any of wants.
func OneOf(field string, wants ...string) Predicate {
	set := make(map[string]struct{}, len(wants))
	for _, want := range wants {
		set[want] = struct{}{}
	}
	return PredicateFunc(func(ctx Context) (bool, error) {
		_, ok := set[stringValue(ctx.Values[field])]
		return ok, nil
	})
}

// Always is a predicate that always holds.
var Always Predicate = PredicateFunc(func(Context) (bool, error) { return true, nil })

func stringValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(v)
	}
}
