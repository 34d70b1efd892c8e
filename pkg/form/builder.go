package form

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/internal/logging"
	"github.com/goliatone/go-formflow/pkg/expr"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// MessageMetaPrefix prefixes the Meta.Metadata keys holding rule messages,
// e.g. "message.minlength".
const MessageMetaPrefix = "message."

// BuildOption tunes Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	sanitizers map[string]Sanitizer
}

// WithNamedSanitizer makes fn available to schema entries under name.
func WithNamedSanitizer(name string, fn Sanitizer) BuildOption {
	return func(cfg *buildConfig) {
		if name != "" && fn != nil {
			cfg.sanitizers[name] = fn
		}
	}
}

type pendingCondition struct {
	scope  string
	target string
	conds  []schema.Condition
}

type builder struct {
	ctx      context.Context
	registry *Registry
	cfg      buildConfig
	log      *zap.Logger
}

// Build turns a declarative form into a live Group. Conditional rules follow
// their trigger controls until ctx is cancelled. A nil registry means
// NewRegistry().
func Build(ctx context.Context, def schema.Form, registry *Registry, opts ...BuildOption) (*Group, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	cfg := buildConfig{sanitizers: make(map[string]Sanitizer, len(namedSanitizers))}
	for name, fn := range namedSanitizers {
		cfg.sanitizers[name] = fn
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	b := &builder{ctx: ctx, registry: registry, cfg: cfg, log: logging.FromContext(ctx)}

	var pending []pendingCondition
	entries, err := b.entries(def.Controls, "", &pending)
	if err != nil {
		return nil, err
	}
	validators, asyncValidators, err := b.rules(def.Validators, "")
	if err != nil {
		return nil, err
	}
	root := NewGroup(entries,
		WithValidators(validators...),
		WithAsyncValidators(asyncValidators...),
		WithMeta(Meta{
			Label:       def.Title,
			Description: def.Description,
			Metadata:    copyStrings(def.Metadata),
		}),
	)
	if err := b.bind(root, pending); err != nil {
		return nil, err
	}
	b.log.Debug("form: built",
		zap.String("form", def.ID),
		zap.Int("controls", len(entries)),
		zap.Int("conditions", len(pending)),
	)
	return root, nil
}

func (b *builder) entries(defs []schema.Control, scope string, pending *[]pendingCondition) ([]Entry, error) {
	entries := make([]Entry, 0, len(defs))
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return nil, fmt.Errorf("form: build %s: control without a name", describe(scope))
		}
		path := joinPath(scope, def.Name)
		c, err := b.control(def, path, pending)
		if err != nil {
			return nil, err
		}
		if len(def.When) > 0 {
			*pending = append(*pending, pendingCondition{scope: scope, target: path, conds: def.When})
		}
		entries = append(entries, Entry{Name: def.Name, Control: c})
	}
	return entries, nil
}

func (b *builder) control(def schema.Control, path string, pending *[]pendingCondition) (Control, error) {
	rules := def.Rules
	if def.Required && !hasRule(rules, schema.RuleRequired) {
		rules = append([]schema.Rule{{Kind: schema.RuleRequired}}, rules...)
	}
	validators, asyncValidators, err := b.rules(rules, path)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithValidators(validators...),
		WithAsyncValidators(asyncValidators...),
		WithMeta(b.meta(def)),
	}
	if def.Disabled {
		opts = append(opts, WithDisabled())
	}

	switch def.EffectiveKind() {
	case schema.KindField:
		for _, name := range def.Sanitize {
			fn, ok := b.cfg.sanitizers[name]
			if !ok {
				return nil, fmt.Errorf("form: build %s: unknown sanitizer %q", path, name)
			}
			opts = append(opts, WithSanitizer(fn))
		}
		if def.UpdateOn != "" {
			mode := UpdateOn(def.UpdateOn)
			if mode != UpdateOnChange && mode != UpdateOnBlur {
				return nil, fmt.Errorf("form: build %s: unknown updateOn %q", path, def.UpdateOn)
			}
			opts = append(opts, WithUpdateOn(mode))
		}
		value := def.Default
		if value == nil && def.Type == schema.FieldTypeBoolean {
			value = false
		}
		return NewField(value, opts...), nil

	case schema.KindGroup:
		entries, err := b.entries(def.Controls, path, pending)
		if err != nil {
			return nil, err
		}
		g := NewGroup(entries, opts...)
		if def.Default != nil {
			if err := g.PatchValue(def.Default, Silent()); err != nil {
				return nil, fmt.Errorf("form: build %s: default: %w", path, err)
			}
		}
		return g, nil

	case schema.KindArray:
		if def.Item == nil {
			return nil, fmt.Errorf("form: build %s: array without item", path)
		}
		item := *def.Item
		dryRun := *b
		var cancel context.CancelFunc
		dryRun.ctx, cancel = context.WithCancel(b.ctx)
		cancel()
		if _, err := dryRun.item(item, path); err != nil {
			return nil, err
		}
		factory := func() Control {
			c, err := b.item(item, path)
			if err != nil {
				b.log.Error("form: build array item", zap.String("path", path), zap.Error(err))
				return NewField(nil)
			}
			return c
		}
		a := NewArray(nil, append(opts, WithItemFactory(factory))...)
		if def.Default != nil {
			if _, ok := toSlice(def.Default); !ok {
				return nil, fmt.Errorf("form: build %s: default: %w", path, ErrValueShape)
			}
			a.Reset(def.Default, Silent())
		}
		return a, nil

	default:
		return nil, fmt.Errorf("form: build %s: unknown kind %q", path, def.Kind)
	}
}

// item builds one array item. Conditions inside the item resolve against the
// item itself.
func (b *builder) item(def schema.Control, path string) (Control, error) {
	var pending []pendingCondition
	if def.Name == "" {
		def.Name = "item"
	}
	c, err := b.control(def, "", &pending)
	if err != nil {
		return nil, fmt.Errorf("%w (item of %s)", err, path)
	}
	if len(def.When) > 0 {
		pending = append(pending, pendingCondition{target: "", conds: def.When})
	}
	if err := b.bind(c, pending); err != nil {
		return nil, fmt.Errorf("%w (item of %s)", err, path)
	}
	return c, nil
}

func (b *builder) rules(rules []schema.Rule, path string) ([]Validator, []AsyncValidator, error) {
	var (
		validators      []Validator
		asyncValidators []AsyncValidator
	)
	for _, rule := range rules {
		if b.registry.IsAsync(rule.Kind) {
			av, err := b.registry.AsyncValidator(rule)
			if err != nil {
				return nil, nil, fmt.Errorf("form: build %s: %w", describe(path), err)
			}
			asyncValidators = append(asyncValidators, av)
			continue
		}
		v, err := b.registry.Validator(rule)
		if err != nil {
			return nil, nil, fmt.Errorf("form: build %s: %w", describe(path), err)
		}
		validators = append(validators, v)
	}
	return validators, asyncValidators, nil
}

func (b *builder) bind(root Control, pending []pendingCondition) error {
	for _, p := range pending {
		target := root.Get(p.target)
		if target == nil {
			return fmt.Errorf("%w: %s", ErrUnknownControl, describe(p.target))
		}
		resolve := func(path string) Control {
			if c := root.Get(joinPath(p.scope, path)); c != nil {
				return c
			}
			return root.Get(path)
		}
		conds := make([]Conditional, 0, len(p.conds))
		for _, cond := range p.conds {
			validators, asyncValidators, err := b.rules(cond.Rules, p.target)
			if err != nil {
				return err
			}
			if len(asyncValidators) > 0 {
				return fmt.Errorf("form: build %s: conditions accept synchronous rules only", describe(p.target))
			}
			if strings.TrimSpace(cond.Expr) != "" {
				conditional, err := exprConditional(cond.Expr, target, resolve)
				if err != nil {
					return fmt.Errorf("form: build %s: %w", describe(p.target), err)
				}
				conditional.Validators = validators
				conds = append(conds, conditional)
				continue
			}
			trigger := resolve(cond.Field)
			if trigger == nil {
				return fmt.Errorf("form: build %s: condition field: %w: %s", describe(p.target), ErrUnknownControl, cond.Field)
			}
			var predicate Predicate
			if cond.Equals != nil {
				predicate = Equals(cond.Equals)
			}
			conds = append(conds, Conditional{Trigger: trigger, Predicate: predicate, Validators: validators})
		}
		Bind(b.ctx, target, conds...)
	}
	return nil
}

// exprConditional compiles src and watches every control it reads. The
// target and its ancestors may not appear in the expression.
func exprConditional(src string, target Control, resolve func(string) Control) (Conditional, error) {
	e, err := expr.Compile(src)
	if err != nil {
		return Conditional{}, err
	}
	controls := make(map[string]Control, len(e.Fields()))
	var watch []Control
	for _, path := range e.Fields() {
		c := resolve(path)
		if c == nil {
			return Conditional{}, fmt.Errorf("condition expression: %w: %s", ErrUnknownControl, path)
		}
		if encloses(c, target) {
			return Conditional{}, fmt.Errorf("condition expression reads its own control %q", path)
		}
		controls[path] = c
		watch = append(watch, c)
	}
	if len(watch) == 0 {
		return Conditional{}, fmt.Errorf("condition expression %q reads no field", src)
	}
	return Conditional{
		Trigger:   watch[0],
		Watch:     watch[1:],
		Predicate: Expr(e, func(path string) Control { return controls[path] }),
	}, nil
}

// encloses reports whether c is target or one of its ancestors.
func encloses(c, target Control) bool {
	for cur := target; cur != nil; cur = cur.Parent() {
		if cur == c {
			return true
		}
	}
	return false
}

func (b *builder) meta(def schema.Control) Meta {
	meta := Meta{
		Label:       def.DisplayLabel(),
		Description: def.Description,
		Placeholder: def.Placeholder,
		Type:        string(def.Type),
		Format:      def.Format,
		Enum:        append([]any(nil), def.Enum...),
		Metadata:    copyStrings(def.Metadata),
	}
	addMessage := func(rule schema.Rule) {
		if rule.Message == "" {
			return
		}
		key := b.registry.ErrorKey(rule.Kind)
		if key == "" {
			return
		}
		if meta.Metadata == nil {
			meta.Metadata = make(map[string]string)
		}
		meta.Metadata[MessageMetaPrefix+key] = rule.Message
	}
	for _, rule := range def.Rules {
		addMessage(rule)
	}
	for _, cond := range def.When {
		for _, rule := range cond.Rules {
			addMessage(rule)
		}
	}
	return meta
}

func hasRule(rules []schema.Rule, kind string) bool {
	for _, rule := range rules {
		if rule.Kind == kind {
			return true
		}
	}
	return false
}

func copyStrings(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func describe(path string) string {
	if path == "" {
		return "form"
	}
	return path
}
