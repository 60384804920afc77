package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formwizard/pkg/visibility"
)

// Program is a compiled rule expression. It is safe for concurrent use.
//
// Grammar:
//   - truthiness: `transplant_ready`
//   - comparisons: `modality == 2`, `stop_reason != "D"`
//   - membership: `modality in [2, 3]`, `reason not in ["D", "LF"]`
//   - composition: `a == "Y" && (b || !c)`
//
// Identifiers read visibility.Context.Values (with dot-path traversal). The
// `labels.` prefix reads Context.Labels and `extras.` reads Context.Extras.
type Program struct {
	source string
	root   exprNode
}

// Compile parses rule once. An empty rule compiles to a program that always
// holds.
func Compile(rule string) (*Program, error) {
	trimmed := strings.TrimSpace(rule)
	program := &Program{source: trimmed}
	if trimmed == "" {
		return program, nil
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return program, nil
	}
	root, err := parseExpression(tokens)
	if err != nil {
		return nil, err
	}
	program.root = root
	return program, nil
}

// MustCompile is like Compile but panics on error. Intended for package level
// rule tables.
func MustCompile(rule string) *Program {
	program, err := Compile(rule)
	if err != nil {
		panic(err)
	}
	return program
}

// Source returns the trimmed expression text.
func (p *Program) Source() string {
	if p == nil {
		return ""
	}
	return p.source
}

// String implements fmt.Stringer.
func (p *Program) String() string { return p.Source() }

// Eval implements visibility.Predicate.
func (p *Program) Eval(ctx visibility.Context) (bool, error) {
	if p == nil || p.root == nil {
		return true, nil
	}
	return p.root.eval(ctx)
}

// Identifiers returns the value identifiers the program reads, in order of
// first appearance. Prefixed lookups are reported without their prefix.
func (p *Program) Identifiers() []string {
	if p == nil || p.root == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	p.root.walk(func(ident string) {
		lower := strings.ToLower(ident)
		switch {
		case strings.HasPrefix(lower, "extras."):
			return
		case strings.HasPrefix(lower, "labels."):
			ident = ident[len("labels."):]
		}
		if _, ok := seen[ident]; ok {
			return
		}
		seen[ident] = struct{}{}
		out = append(out, ident)
	})
	return out
}

// Cache compiles rule expressions once. Forms built by the same builder
// share it, so a rule repeated across forms is parsed a single time.
type Cache struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// NewCache returns an empty Cache.
func NewCache() *Cache { return &Cache{programs: map[string]*Program{}} }

// Compile returns the program for rule, compiling it on first use. Failed
// compilations are not cached.
func (c *Cache) Compile(rule string) (*Program, error) {
	key := strings.TrimSpace(rule)
	c.mu.RLock()
	program, ok := c.programs[key]
	c.mu.RUnlock()
	if ok {
		return program, nil
	}
	program, err := Compile(key)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.programs == nil {
		c.programs = map[string]*Program{}
	}
	if cached, ok := c.programs[key]; ok {
		program = cached
	} else {
		c.programs[key] = program
	}
	c.mu.Unlock()
	return program, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenNotIn
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
}

func isDelimiter(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '(', ')', '[', ']', ',', '!', '=', '&', '|':
		return true
	}
	return false
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i < len(input) {
		ch := input[i]
		switch ch {
		case ' ', '\t', '\n', '\r':
			i++
		case '(':
			i++
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
		case ')':
			i++
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
		case '[':
			i++
			tokens = append(tokens, token{kind: tokenLBracket, raw: "["})
		case ']':
			i++
			tokens = append(tokens, token{kind: tokenRBracket, raw: "]"})
		case ',':
			i++
			tokens = append(tokens, token{kind: tokenComma, raw: ","})
		case '!':
			i++
			if peek() == '=' {
				i++
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
		case '=':
			i++
			if peek() != '=' {
				return nil, errors.New("visibility/expr: unexpected '='; use '=='")
			}
			i++
			tokens = append(tokens, token{kind: tokenEq, raw: "=="})
		case '&':
			i++
			if peek() != '&' {
				return nil, errors.New("visibility/expr: unexpected '&'; use '&&'")
			}
			i++
			tokens = append(tokens, token{kind: tokenAnd, raw: "&&"})
		case '|':
			i++
			if peek() != '|' {
				return nil, errors.New("visibility/expr: unexpected '|'; use '||'")
			}
			i++
			tokens = append(tokens, token{kind: tokenOr, raw: "||"})
		case '"', '\'':
			value, end, err := readString(input, i)
			if err != nil {
				return nil, err
			}
			i = end
			tokens = append(tokens, token{kind: tokenString, raw: value})
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}

	return foldNotIn(tokens), nil
}

func readString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.ReplaceAll(body, `\'`, `'`)
			body = strings.ReplaceAll(body, `"`, `\"`)
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	case "in":
		return token{kind: tokenIn, raw: "in"}
	case "and":
		return token{kind: tokenAnd, raw: "&&"}
	case "or":
		return token{kind: tokenOr, raw: "||"}
	}
	if looksLikeNumber(raw) {
		return token{kind: tokenNumber, raw: raw}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

// foldNotIn merges the `not in` keyword pair into a single token.
func foldNotIn(tokens []token) []token {
	out := tokens[:0]
	for idx := 0; idx < len(tokens); idx++ {
		tok := tokens[idx]
		if tok.kind == tokenIdentifier && strings.EqualFold(tok.raw, "not") &&
			idx+1 < len(tokens) && tokens[idx+1].kind == tokenIn {
			out = append(out, token{kind: tokenNotIn, raw: "not in"})
			idx++
			continue
		}
		out = append(out, tok)
	}
	return out
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type exprNode interface {
	eval(ctx visibility.Context) (bool, error)
	walk(fn func(ident string))
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || ok {
		return ok, err
	}
	return n.right.eval(ctx)
}

func (n exprOr) walk(fn func(string)) { n.left.walk(fn); n.right.walk(fn) }

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.left.eval(ctx)
	if err != nil || !ok {
		return false, err
	}
	return n.right.eval(ctx)
}

func (n exprAnd) walk(fn func(string)) { n.left.walk(fn); n.right.walk(fn) }

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (n exprNot) walk(fn func(string)) { n.inner.walk(fn) }

type literalKind int

const (
	litString literalKind = iota
	litNumber
	litBool
	litNull
)

type literal struct {
	kind   literalKind
	raw    string
	number float64
}

// matches reports whether value equals the literal. Coded values arrive as
// strings from inputs, so numeric literals compare numerically when the value
// parses and never match when it does not (an empty select is not 0).
func (l literal) matches(value any) bool {
	switch l.kind {
	case litNull:
		return value == nil
	case litBool:
		got, ok := coerceBool(value)
		return ok && got == (l.raw == "true")
	case litNumber:
		got, ok := coerceNumber(value)
		return ok && got == l.number
	default:
		return coerceString(value) == l.raw
	}
}

type exprCompare struct {
	identifier string
	negate     bool
	literal    literal
}

func (n exprCompare) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	return n.literal.matches(value) != n.negate, nil
}

func (n exprCompare) walk(fn func(string)) { fn(n.identifier) }

type exprMember struct {
	identifier string
	negate     bool
	set        []literal
}

func (n exprMember) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.identifier)
	for _, lit := range n.set {
		if lit.matches(value) {
			return !n.negate, nil
		}
	}
	return n.negate, nil
}

func (n exprMember) walk(fn func(string)) { fn(n.identifier) }

type exprTruthy struct {
	identifier string
}

func (n exprTruthy) eval(ctx visibility.Context) (bool, error) {
	value, ok := lookup(ctx, n.identifier)
	if !ok {
		return false, nil
	}
	return truthy(value), nil
}

func (n exprTruthy) walk(fn func(string)) { fn(n.identifier) }

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenLParen) {
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident, ok := stream.consume(tokenIdentifier)
	if !ok {
		if stream.pos >= len(stream.tokens) {
			return nil, errors.New("visibility/expr: empty expression")
		}
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", stream.tokens[stream.pos].raw)
	}

	switch {
	case stream.match(tokenEq):
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, literal: lit}, nil
	case stream.match(tokenNeq):
		lit, err := stream.consumeLiteral()
		if err != nil {
			return nil, err
		}
		return exprCompare{identifier: ident.raw, negate: true, literal: lit}, nil
	case stream.match(tokenIn):
		set, err := stream.consumeList()
		if err != nil {
			return nil, err
		}
		return exprMember{identifier: ident.raw, set: set}, nil
	case stream.match(tokenNotIn):
		set, err := stream.consumeList()
		if err != nil {
			return nil, err
		}
		return exprMember{identifier: ident.raw, negate: true, set: set}, nil
	}

	return exprTruthy{identifier: ident.raw}, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}

func (s *tokenStream) consumeList() ([]literal, error) {
	if !s.match(tokenLBracket) {
		return nil, errors.New("visibility/expr: expected '[' after in")
	}
	var set []literal
	if s.match(tokenRBracket) {
		return set, nil
	}
	for {
		lit, err := s.consumeLiteral()
		if err != nil {
			return nil, err
		}
		set = append(set, lit)
		if s.match(tokenRBracket) {
			return set, nil
		}
		if !s.match(tokenComma) {
			return nil, errors.New("visibility/expr: expected ',' or ']' in list")
		}
	}
}

func (s *tokenStream) consumeLiteral() (literal, error) {
	if s.pos >= len(s.tokens) {
		return literal{}, errors.New("visibility/expr: missing literal")
	}
	tok := s.tokens[s.pos]
	s.pos++
	switch tok.kind {
	case tokenString:
		return literal{kind: litString, raw: tok.raw}, nil
	case tokenNumber:
		n, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return literal{}, fmt.Errorf("visibility/expr: invalid number literal %q", tok.raw)
		}
		return literal{kind: litNumber, raw: tok.raw, number: n}, nil
	case tokenBool:
		return literal{kind: litBool, raw: tok.raw}, nil
	case tokenNull:
		return literal{kind: litNull, raw: "null"}, nil
	case tokenIdentifier:
		// Bare words are string literals: `stop_reason == D`.
		return literal{kind: litString, raw: tok.raw}, nil
	default:
		return literal{}, fmt.Errorf("visibility/expr: expected literal, got %q", tok.raw)
	}
}

func lookup(ctx visibility.Context, key string) (any, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}
	lower := strings.ToLower(key)
	switch {
	case strings.HasPrefix(lower, "extras."):
		return lookupMap(ctx.Extras, key[len("extras."):])
	case strings.HasPrefix(lower, "labels."):
		label, ok := ctx.Labels[strings.TrimSpace(key[len("labels."):])]
		if !ok {
			return nil, false
		}
		return label, true
	}
	return lookupMap(ctx.Values, key)
}

func lookupMap(values map[string]any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if len(values) == 0 || path == "" {
		return nil, false
	}
	if v, ok := values[path]; ok {
		return v, true
	}

	var current any = values
	for _, part := range strings.Split(path, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, false
		}
		var next any
		var ok bool
		switch typed := current.(type) {
		case map[string]any:
			next, ok = typed[part]
		case map[string]string:
			next, ok = typed[part]
		}
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func coerceBool(value any) (bool, bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		switch strings.ToUpper(trimmed) {
		case "Y", "YES":
			return true, true
		case "N", "NO":
			return false, true
		}
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed, true
		}
		return trimmed != "", true
	default:
		return truthy(value), true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
