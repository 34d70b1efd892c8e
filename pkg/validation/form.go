// Package validation lints declarative forms before they are built.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/expr"
	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// SchemaIssue is a single problem found in a form definition. Path is a JSON
// pointer into the document and Field the dotted control path.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult collects the issues of one form.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// ValidateFile loads path and validates it. Load failures are reported as an
// issue rather than an error so linters can keep going.
func ValidateFile(path string, registry *form.Registry) SchemaValidationResult {
	def, err := schema.LoadFile(path)
	if err != nil {
		return SchemaValidationResult{Issues: []SchemaIssue{{Message: strings.TrimPrefix(err.Error(), "schema: ")}}}
	}
	return ValidateForm(def, registry)
}

// ValidateForm checks a form definition against the rule kinds known to
// registry (the built-in registry when nil). Issues are sorted by path.
func ValidateForm(def schema.Form, registry *form.Registry) SchemaValidationResult {
	if registry == nil {
		registry = form.NewRegistry()
	}
	l := &linter{def: def, registry: registry}

	if len(def.Controls) == 0 {
		l.add("/controls", "", "form has no controls")
	}
	l.controls(def.Controls, "/controls", "")
	for i, rule := range def.Validators {
		l.rule(rule, fmt.Sprintf("/validators/%d", i), "", "")
	}

	sort.SliceStable(l.issues, func(i, j int) bool { return l.issues[i].Path < l.issues[j].Path })
	return SchemaValidationResult{Valid: len(l.issues) == 0, Issues: l.issues}
}

type linter struct {
	def      schema.Form
	registry *form.Registry
	issues   []SchemaIssue
}

func (l *linter) add(pointer, field, format string, args ...any) {
	l.issues = append(l.issues, SchemaIssue{Path: pointer, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l *linter) controls(controls []schema.Control, pointer, scope string) {
	seen := make(map[string]int, len(controls))
	for i, c := range controls {
		at := pointer + "/" + strconv.Itoa(i)
		if strings.TrimSpace(c.Name) == "" {
			l.add(at, scope, "control has no name")
			continue
		}
		if first, dup := seen[c.Name]; dup {
			l.add(at, join(scope, c.Name), "duplicate name (first defined at %s/%d)", pointer, first)
			continue
		}
		seen[c.Name] = i
		l.control(c, at, scope)
	}
}

func (l *linter) control(c schema.Control, pointer, scope string) {
	field := join(scope, c.Name)

	switch c.EffectiveKind() {
	case schema.KindField:
		if len(c.Controls) > 0 {
			l.add(pointer+"/controls", field, "fields cannot hold controls")
		}
	case schema.KindGroup:
		if len(c.Controls) == 0 {
			l.add(pointer+"/controls", field, "group has no controls")
		}
		l.controls(c.Controls, pointer+"/controls", field)
	case schema.KindArray:
		if c.Item == nil {
			l.add(pointer+"/item", field, "array has no item")
		} else {
			item := *c.Item
			item.Name = "0"
			l.control(item, pointer+"/item", field)
		}
		if c.Default != nil && !isList(c.Default) {
			l.add(pointer+"/default", field, "array default must be a list")
		}
	default:
		l.add(pointer+"/kind", field, "unknown kind %q", c.Kind)
	}

	for i, name := range c.Sanitize {
		if _, ok := form.SanitizerNamed(name); !ok {
			l.add(fmt.Sprintf("%s/sanitize/%d", pointer, i), field, "unknown sanitizer %q", name)
		}
	}
	switch form.UpdateOn(c.UpdateOn) {
	case "", form.UpdateOnChange, form.UpdateOnBlur:
	default:
		l.add(pointer+"/updateOn", field, "updateOn must be %q or %q", form.UpdateOnChange, form.UpdateOnBlur)
	}
	if len(c.Enum) > 0 && c.Default != nil && !contains(c.Enum, c.Default) {
		l.add(pointer+"/default", field, "default %v is not one of the enum values", c.Default)
	}

	for i, rule := range c.Rules {
		l.rule(rule, fmt.Sprintf("%s/rules/%d", pointer, i), field, scope)
	}
	for i, cond := range c.When {
		at := fmt.Sprintf("%s/when/%d", pointer, i)
		switch {
		case strings.TrimSpace(cond.Expr) != "":
			l.expr(cond, at, field, scope)
		case strings.TrimSpace(cond.Field) == "":
			l.add(at+"/field", field, "condition has no field or expr")
		case !l.resolves(scope, cond.Field):
			l.add(at+"/field", field, "condition refers to unknown field %q", cond.Field)
		}
		if len(cond.Rules) == 0 {
			l.add(at+"/rules", field, "condition has no rules")
		}
		for j, rule := range cond.Rules {
			ruleAt := fmt.Sprintf("%s/rules/%d", at, j)
			if l.registry.IsAsync(rule.Kind) {
				l.add(ruleAt, field, "conditions accept synchronous rules only, %q is asynchronous", rule.Kind)
				continue
			}
			l.rule(rule, ruleAt, field, scope)
		}
	}
}

func (l *linter) expr(cond schema.Condition, at, field, scope string) {
	if cond.Field != "" || cond.Equals != nil {
		l.add(at, field, "condition sets expr together with field or equals")
	}
	e, err := expr.Compile(cond.Expr)
	if err != nil {
		l.add(at+"/expr", field, "%s", strings.TrimPrefix(err.Error(), "expr: "))
		return
	}
	for _, path := range e.Fields() {
		switch {
		case !l.resolves(scope, path):
			l.add(at+"/expr", field, "condition expression refers to unknown field %q", path)
		case join(scope, path) == field || path == field:
			l.add(at+"/expr", field, "condition expression reads its own field %q", path)
		}
	}
}

func (l *linter) rule(rule schema.Rule, pointer, field, scope string) {
	if err := l.registry.Check(rule); err != nil {
		l.add(pointer, field, "%s", describe(err))
		return
	}
	switch rule.Kind {
	case schema.RuleMatch:
		if other := rule.Param("field"); !l.resolves(scope, other) {
			l.add(pointer, field, "match refers to unknown field %q", other)
		}
	case schema.RuleFieldsMatch:
		for _, other := range strings.Split(rule.Param("fields"), ",") {
			other = strings.TrimSpace(other)
			if other != "" && !l.resolves(field, other) {
				l.add(pointer, field, "fieldsMatch refers to unknown field %q", other)
			}
		}
	}
}

// resolves mirrors how form.Build looks up related controls: relative to the
// enclosing group first, then from the form root.
func (l *linter) resolves(scope, path string) bool {
	if scope != "" {
		if _, ok := l.def.Find(join(scope, path)); ok {
			return true
		}
	}
	_, ok := l.def.Find(path)
	return ok
}

func describe(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, form.ErrUnknownRule):
		msg = strings.TrimPrefix(msg, form.ErrUnknownRule.Error()+": ")
		return "unknown rule kind " + msg
	case errors.Is(err, form.ErrRuleParams):
		return strings.TrimPrefix(msg, form.ErrRuleParams.Error()+": ")
	}
	return strings.TrimPrefix(msg, "form: ")
}

func join(scope, name string) string {
	if scope == "" {
		return name
	}
	return scope + "." + name
}

func isList(value any) bool {
	if value == nil {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func contains(values []any, value any) bool {
	for _, candidate := range values {
		if form.Equals(candidate)(value) {
			return true
		}
	}
	return false
}
