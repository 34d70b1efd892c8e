package form

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/schema"
)

var (
	ErrUnknownRule = errors.New("form: unknown rule kind")
	ErrRuleParams  = errors.New("form: invalid rule parameters")
)

// ValidatorFactory builds a validator from a declarative rule.
type ValidatorFactory func(rule schema.Rule) (Validator, error)

// AsyncValidatorFactory builds an asynchronous validator from a rule.
type AsyncValidatorFactory func(rule schema.Rule) (AsyncValidator, error)

type registration struct {
	key   string
	sync  ValidatorFactory
	async AsyncValidatorFactory
}

// Registry maps rule kinds to validator factories. The zero value is empty;
// NewRegistry returns one preloaded with the built-in rules.
type Registry struct {
	mu    sync.RWMutex
	rules map[string]registration
}

// NewRegistry returns a registry holding the built-in rule kinds.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(schema.RuleRequired, KeyRequired, func(schema.Rule) (Validator, error) {
		return Required, nil
	})
	r.Register(schema.RuleRequiredTrue, KeyRequiredTrue, func(schema.Rule) (Validator, error) {
		return RequiredTrue, nil
	})
	r.Register(schema.RuleEmail, KeyEmail, func(schema.Rule) (Validator, error) {
		return Email, nil
	})
	r.Register(schema.RuleMinLength, KeyMinLength, func(rule schema.Rule) (Validator, error) {
		n, err := intParam(rule, "value")
		if err != nil {
			return nil, err
		}
		return MinLength(n), nil
	})
	r.Register(schema.RuleMaxLength, KeyMaxLength, func(rule schema.Rule) (Validator, error) {
		n, err := intParam(rule, "value")
		if err != nil {
			return nil, err
		}
		return MaxLength(n), nil
	})
	r.Register(schema.RuleMin, KeyMin, func(rule schema.Rule) (Validator, error) {
		bound, err := floatParam(rule, "value")
		if err != nil {
			return nil, err
		}
		return Min(bound), nil
	})
	r.Register(schema.RuleMax, KeyMax, func(rule schema.Rule) (Validator, error) {
		bound, err := floatParam(rule, "value")
		if err != nil {
			return nil, err
		}
		return Max(bound), nil
	})
	r.Register(schema.RulePattern, KeyPattern, func(rule schema.Rule) (Validator, error) {
		expr := rule.Param("pattern")
		if expr == "" {
			expr = rule.Param("value")
		}
		if expr == "" {
			return nil, fmt.Errorf("%w: %s requires a pattern", ErrRuleParams, rule.Kind)
		}
		re, err := regexp.Compile(anchor(expr))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRuleParams, rule.Kind, err)
		}
		return PatternRegexp(re), nil
	})
	r.Register(schema.RuleMatch, KeyMismatch, func(rule schema.Rule) (Validator, error) {
		field := rule.Param("field")
		if field == "" {
			return nil, fmt.Errorf("%w: %s requires a field", ErrRuleParams, rule.Kind)
		}
		return MatchField(field), nil
	})
	r.Register(schema.RuleFieldsMatch, KeyMismatch, func(rule schema.Rule) (Validator, error) {
		var fields []string
		for _, field := range strings.Split(rule.Param("fields"), ",") {
			if field = strings.TrimSpace(field); field != "" {
				fields = append(fields, field)
			}
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s requires at least two fields", ErrRuleParams, rule.Kind)
		}
		return FieldsMatch(fields...), nil
	})
	return r
}

// Register adds or replaces a synchronous rule kind. key is the error key the
// validator reports, used to attach rule messages.
func (r *Registry) Register(kind, key string, factory ValidatorFactory) {
	r.put(kind, registration{key: key, sync: factory})
}

// RegisterAsync adds or replaces an asynchronous rule kind.
func (r *Registry) RegisterAsync(kind, key string, factory AsyncValidatorFactory) {
	r.put(kind, registration{key: key, async: factory})
}

func (r *Registry) put(kind string, reg registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rules == nil {
		r.rules = make(map[string]registration)
	}
	r.rules[kind] = reg
}

func (r *Registry) lookup(kind string) (registration, bool) {
	if r == nil {
		return registration{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.rules[kind]
	return reg, ok
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	_, ok := r.lookup(kind)
	return ok
}

// IsAsync reports whether kind is registered as an asynchronous rule.
func (r *Registry) IsAsync(kind string) bool {
	reg, ok := r.lookup(kind)
	return ok && reg.async != nil
}

// ErrorKey returns the error key produced by kind.
func (r *Registry) ErrorKey(kind string) string {
	reg, _ := r.lookup(kind)
	return reg.key
}

// Kinds lists the registered rule kinds in sorted order.
func (r *Registry) Kinds() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.rules))
	for kind := range r.rules {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Validator builds the synchronous validator for rule.
func (r *Registry) Validator(rule schema.Rule) (Validator, error) {
	reg, ok := r.lookup(rule.Kind)
	if !ok || reg.sync == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, rule.Kind)
	}
	return reg.sync(rule)
}

// AsyncValidator builds the asynchronous validator for rule.
func (r *Registry) AsyncValidator(rule schema.Rule) (AsyncValidator, error) {
	reg, ok := r.lookup(rule.Kind)
	if !ok || reg.async == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, rule.Kind)
	}
	return reg.async(rule)
}

// Check builds rule without keeping the result, reporting unknown kinds and
// bad parameters.
func (r *Registry) Check(rule schema.Rule) error {
	if r.IsAsync(rule.Kind) {
		_, err := r.AsyncValidator(rule)
		return err
	}
	_, err := r.Validator(rule)
	return err
}

func intParam(rule schema.Rule, key string) (int, error) {
	raw := rule.Param(key)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s expects a non-negative integer %s, got %q", ErrRuleParams, rule.Kind, key, raw)
	}
	return n, nil
}

func floatParam(rule schema.Rule, key string) (float64, error) {
	raw := rule.Param(key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s expects a number %s, got %q", ErrRuleParams, rule.Kind, key, raw)
	}
	return f, nil
}
