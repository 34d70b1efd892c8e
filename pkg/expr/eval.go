package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type node interface {
	eval(Lookup) bool
}

type anyOf [2]node

func (n anyOf) eval(l Lookup) bool { return n[0].eval(l) || n[1].eval(l) }

type allOf [2]node

func (n allOf) eval(l Lookup) bool { return n[0].eval(l) && n[1].eval(l) }

type not struct{ inner node }

func (n not) eval(l Lookup) bool { return !n.inner.eval(l) }

// operand is a field reference or a literal; an operand with neither is null.
type operand struct {
	field string
	value any
}

func (o operand) resolve(l Lookup) any {
	if o.field != "" {
		return l(o.field)
	}
	return o.value
}

type set struct{ operand operand }

func (n set) eval(l Lookup) bool { return truthy(n.operand.resolve(l)) }

type compare struct {
	op          string
	left, right operand
}

func (n compare) eval(l Lookup) bool {
	a, b := n.left.resolve(l), n.right.resolve(l)
	switch n.op {
	case "==":
		return equal(a, b)
	case "!=":
		return !equal(a, b)
	}
	c, ok := order(a, b)
	if !ok {
		return false
	}
	switch n.op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

// equal compares loosely: null matches empty values, booleans compare by
// truthiness and numbers compare numerically, so "3" equals 3 and "true"
// equals true.
func equal(a, b any) bool {
	switch {
	case a == nil:
		return !truthy(b) && !isBool(b)
	case b == nil:
		return !truthy(a) && !isBool(a)
	case isBool(a) || isBool(b):
		return truthy(a) == truthy(b)
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func order(a, b any) (int, bool) {
	x, okA := number(a)
	y, okB := number(b)
	if okA && okB {
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	}
	s, okA := a.(string)
	t, okB := b.(string)
	if okA && okB {
		return strings.Compare(s, t), true
	}
	return 0, false
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func truthy(v any) bool {
	switch typed := v.(type) {
	case nil:
		return false
	case bool:
		return typed
	case string:
		s := strings.TrimSpace(typed)
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s != ""
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
