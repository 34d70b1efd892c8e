// Package expr compiles the boolean expressions used by conditional rules.
//
// An expression combines comparisons with &&, || and !, grouped by
// parentheses:
//
//	plan == "pro" && !trial
//	age >= 18 || guardian
//	password != confirm
//
// Operands are field paths (address.city, items.0.name), double quoted or
// backquoted strings, numbers, true, false and null. A bare field path holds
// when the field is set: non-nil, not false, not zero and not blank.
package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every compile error.
var ErrSyntax = errors.New("expr: syntax error")

// Lookup returns the current value of the field at path.
type Lookup func(path string) any

// Expr is a compiled expression. It is immutable and safe for concurrent use.
type Expr struct {
	src    string
	root   node
	fields []string
}

// Compile parses src.
func Compile(src string) (*Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	p := &parser{toks: toks, seen: make(map[string]bool)}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.peek(); ok {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, tok.text, tok.pos)
	}
	fields := make([]string, 0, len(p.seen))
	for field := range p.seen {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return &Expr{src: strings.TrimSpace(src), root: root, fields: fields}, nil
}

// MustCompile is Compile panicking on error.
func MustCompile(src string) *Expr {
	e, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return e
}

// Fields lists the field paths the expression reads, sorted.
func (e *Expr) Fields() []string {
	return append([]string(nil), e.fields...)
}

// Eval evaluates the expression reading fields through lookup. A nil lookup
// reads every field as nil.
func (e *Expr) Eval(lookup Lookup) bool {
	if lookup == nil {
		lookup = func(string) any { return nil }
	}
	return e.root.eval(lookup)
}

func (e *Expr) String() string { return e.src }

// EvalMap evaluates e against nested values keyed by field name, the shape
// of a group's value.
func (e *Expr) EvalMap(values map[string]any) bool {
	return e.Eval(func(path string) any {
		v, _ := Dig(values, path)
		return v
	})
}

// Dig follows a dotted path through nested maps and slices.
func Dig(values map[string]any, path string) (any, bool) {
	var cur any = values
	for _, seg := range strings.Split(path, ".") {
		switch typed := cur.(type) {
		case map[string]any:
			next, ok := typed[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(typed) {
				return nil, false
			}
			cur = typed[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
