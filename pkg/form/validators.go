package form

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Error keys produced by the built-in validators.
const (
	KeyRequired     = "required"
	KeyRequiredTrue = "requiredTrue"
	KeyEmail        = "email"
	KeyMinLength    = "minlength"
	KeyMaxLength    = "maxlength"
	KeyPattern      = "pattern"
	KeyMin          = "min"
	KeyMax          = "max"
	KeyMismatch     = "mismatch"
)

var emailPattern = regexp.MustCompile(`^(?i)[a-z0-9.!#$%&'*+/=?^_{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

// Required fails on nil, empty strings and empty collections.
func Required(v View) Errors {
	if isEmpty(v.Value()) {
		return Errors{KeyRequired: true}
	}
	return nil
}

// RequiredTrue fails unless the value is the boolean true.
func RequiredTrue(v View) Errors {
	if b, ok := v.Value().(bool); ok && b {
		return nil
	}
	return Errors{KeyRequiredTrue: true}
}

// Email checks the value looks like an e-mail address.
func Email(v View) Errors {
	value := v.Value()
	if isEmpty(value) {
		return nil
	}
	s, ok := value.(string)
	if !ok || !emailPattern.MatchString(s) {
		return Errors{KeyEmail: true}
	}
	return nil
}

// MinLength requires strings and collections to hold at least n elements.
func MinLength(n int) Validator {
	return func(v View) Errors {
		value := v.Value()
		if isEmpty(value) {
			return nil
		}
		length, ok := lengthOf(value)
		if !ok || length >= n {
			return nil
		}
		return Errors{KeyMinLength: map[string]any{"requiredLength": n, "actualLength": length}}
	}
}

// MaxLength limits strings and collections to n elements.
func MaxLength(n int) Validator {
	return func(v View) Errors {
		length, ok := lengthOf(v.Value())
		if !ok || length <= n {
			return nil
		}
		return Errors{KeyMaxLength: map[string]any{"requiredLength": n, "actualLength": length}}
	}
}

// Pattern matches string values against pattern. The pattern is anchored at
// both ends unless it already is.
func Pattern(pattern string) Validator {
	return PatternRegexp(regexp.MustCompile(anchor(pattern)))
}

func anchor(expr string) string {
	if !strings.HasPrefix(expr, "^") {
		expr = "^" + expr
	}
	if !strings.HasSuffix(expr, "$") {
		expr += "$"
	}
	return expr
}

// PatternRegexp matches string values against re as given.
func PatternRegexp(re *regexp.Regexp) Validator {
	return func(v View) Errors {
		value := v.Value()
		if isEmpty(value) {
			return nil
		}
		s := fmt.Sprint(value)
		if re.MatchString(s) {
			return nil
		}
		return Errors{KeyPattern: map[string]any{"requiredPattern": re.String(), "actualValue": s}}
	}
}

// Min requires numeric values to be at least bound.
func Min(bound float64) Validator {
	return func(v View) Errors {
		actual, ok := toFloat(v.Value())
		if !ok || actual >= bound {
			return nil
		}
		return Errors{KeyMin: map[string]any{"min": bound, "actual": actual}}
	}
}

// Max requires numeric values to be at most bound.
func Max(bound float64) Validator {
	return func(v View) Errors {
		actual, ok := toFloat(v.Value())
		if !ok || actual <= bound {
			return nil
		}
		return Errors{KeyMax: map[string]any{"max": bound, "actual": actual}}
	}
}

// Compose runs validators in order and merges their errors.
func Compose(validators ...Validator) Validator {
	return func(v View) Errors {
		return runValidators(v, validators)
	}
}

// Nullable skips validator while the value is nil.
func Nullable(validator Validator) Validator {
	return func(v View) Errors {
		if v.Value() == nil || validator == nil {
			return nil
		}
		return validator(v)
	}
}

// MatchField requires the value to equal the control at path, resolved from
// the parent first and then from the root.
func MatchField(path string) Validator {
	return func(v View) Errors {
		other := resolveRelative(v, path)
		if other == nil {
			return nil
		}
		if reflect.DeepEqual(v.Value(), other.Value()) {
			return nil
		}
		return Errors{KeyMismatch: map[string]any{"field": path}}
	}
}

// FieldsMatch is a group validator requiring every named child to hold the
// same value.
func FieldsMatch(paths ...string) Validator {
	return func(v View) Errors {
		var (
			first any
			seen  bool
		)
		for _, path := range paths {
			c := v.Get(path)
			if c == nil || c.Disabled() {
				continue
			}
			if !seen {
				first, seen = c.Value(), true
				continue
			}
			if !reflect.DeepEqual(first, c.Value()) {
				return Errors{KeyMismatch: map[string]any{"fields": append([]string(nil), paths...)}}
			}
		}
		return nil
	}
}

func resolveRelative(v View, path string) View {
	if parent := v.Parent(); parent != nil {
		if found := parent.Get(path); found != nil {
			return found
		}
	}
	root := v.Root()
	if root == nil {
		return nil
	}
	return root.Get(path)
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case map[string]any:
		return len(typed) == 0
	}
	if items, ok := toSlice(value); ok {
		return len(items) == 0
	}
	return false
}

func lengthOf(value any) (int, bool) {
	switch typed := value.(type) {
	case string:
		return utf8.RuneCountInString(typed), true
	case map[string]any:
		return len(typed), true
	case nil:
		return 0, false
	}
	if items, ok := toSlice(value); ok {
		return len(items), true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	var f float64
	switch typed := value.(type) {
	case int:
		f = float64(typed)
	case int8:
		f = float64(typed)
	case int16:
		f = float64(typed)
	case int32:
		f = float64(typed)
	case int64:
		f = float64(typed)
	case uint:
		f = float64(typed)
	case uint8:
		f = float64(typed)
	case uint16:
		f = float64(typed)
	case uint32:
		f = float64(typed)
	case uint64:
		f = float64(typed)
	case float32:
		f = float64(typed)
	case float64:
		f = typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		if strings.TrimSpace(typed) == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
