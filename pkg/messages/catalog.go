// Package messages renders human readable text for form validation errors.
package messages

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// FallbackKey names the template used for error keys without their own.
const FallbackKey = "*"

var defaultTemplates = map[string]string{
	form.KeyRequired:     "{{ label }} is required",
	form.KeyRequiredTrue: "{{ label }} must be accepted",
	form.KeyEmail:        "{{ label }} must be a valid email address",
	form.KeyMinLength:    "{{ label }} must be at least {{ requiredLength }} characters",
	form.KeyMaxLength:    "{{ label }} must be at most {{ requiredLength }} characters",
	form.KeyPattern:      "{{ label }} has an invalid format",
	form.KeyMin:          "{{ label }} must be at least {{ min }}",
	form.KeyMax:          "{{ label }} must be at most {{ max }}",
	form.KeyMismatch:     "{{ label }} does not match",
	"async":              "{{ label }} could not be validated: {{ error }}",
	FallbackKey:          "{{ label }} is invalid ({{ key }})",
}

// Message is the rendered text for one error key.
type Message struct {
	Key  string
	Text string
}

// Option configures a Catalog.
type Option func(*config)

type config struct {
	templates map[string]string
}

// WithTemplate overrides the template for key. Use FallbackKey to replace
// the catch-all template.
func WithTemplate(key, source string) Option {
	return func(cfg *config) {
		if key = strings.TrimSpace(key); key != "" {
			cfg.templates[key] = source
		}
	}
}

// WithTemplates overrides several templates at once.
func WithTemplates(templates map[string]string) Option {
	return func(cfg *config) {
		for key, source := range templates {
			WithTemplate(key, source)(cfg)
		}
	}
}

// Catalog renders pongo2 templates for error keys. Controls can override a
// template through the form.MessageMetaPrefix metadata entries added by
// form.Build.
type Catalog struct {
	mu        sync.RWMutex
	set       *pongo2.TemplateSet
	templates map[string]*pongo2.Template
	overrides map[string]*pongo2.Template
}

// New compiles the default templates plus any overrides.
func New(opts ...Option) (*Catalog, error) {
	cfg := &config{templates: make(map[string]string, len(defaultTemplates))}
	for key, source := range defaultTemplates {
		cfg.templates[key] = source
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	c := &Catalog{
		set:       pongo2.NewSet("formflow-messages", pongo2.DefaultLoader),
		templates: make(map[string]*pongo2.Template, len(cfg.templates)),
		overrides: make(map[string]*pongo2.Template),
	}
	for key, source := range cfg.templates {
		tpl, err := c.compile(source)
		if err != nil {
			return nil, fmt.Errorf("messages: compile %q: %w", key, err)
		}
		c.templates[key] = tpl
	}
	return c, nil
}

// LoadFile reads a YAML or JSON map of error keys to templates.
func LoadFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("messages: read %s: %w", path, err)
	}
	var out map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("messages: parse %s: %w", path, err)
	}
	return out, nil
}

// Render produces the text for key using details as template context.
// Map details are exposed key by key; any other detail is available as
// "error". label names the control.
func (c *Catalog) Render(key string, details any, label string) (string, error) {
	if c == nil {
		return "", errors.New("messages: catalog is nil")
	}
	c.mu.RLock()
	tpl, ok := c.templates[key]
	if !ok {
		tpl = c.templates[FallbackKey]
	}
	c.mu.RUnlock()
	return execute(tpl, key, details, label)
}

// For renders every error of control in key order. Overrides found in the
// control metadata win over the catalog templates.
func (c *Catalog) For(control form.Control) []Message {
	if control == nil {
		return nil
	}
	errs := control.Errors()
	if len(errs) == 0 {
		return nil
	}
	meta := control.Meta()
	label := meta.Label
	if label == "" {
		label = schema.Humanize(control.Name())
	}

	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Message, 0, len(keys))
	for _, key := range keys {
		text, err := c.renderFor(meta, key, errs[key], label)
		if err != nil {
			text = fmt.Sprintf("%s is invalid (%s)", label, key)
		}
		out = append(out, Message{Key: key, Text: text})
	}
	return out
}

// First returns the first message of control, if any.
func (c *Catalog) First(control form.Control) (string, bool) {
	msgs := c.For(control)
	if len(msgs) == 0 {
		return "", false
	}
	return msgs[0].Text, true
}

// Collect renders the messages of root and every descendant, keyed by
// dotted path. Controls without errors are left out.
func (c *Catalog) Collect(root form.Control) map[string][]Message {
	out := make(map[string][]Message)
	form.Walk(root, func(path string, control form.Control) bool {
		if msgs := c.For(control); len(msgs) > 0 {
			out[path] = msgs
		}
		return true
	})
	return out
}

func (c *Catalog) renderFor(meta form.Meta, key string, details any, label string) (string, error) {
	source, ok := meta.Metadata[form.MessageMetaPrefix+key]
	if !ok {
		return c.Render(key, details, label)
	}
	tpl, err := c.override(source)
	if err != nil {
		return "", err
	}
	return execute(tpl, key, details, label)
}

func (c *Catalog) override(source string) (*pongo2.Template, error) {
	c.mu.RLock()
	tpl, ok := c.overrides[source]
	c.mu.RUnlock()
	if ok {
		return tpl, nil
	}
	tpl, err := c.compile(source)
	if err != nil {
		return nil, fmt.Errorf("messages: compile override: %w", err)
	}
	c.mu.Lock()
	c.overrides[source] = tpl
	c.mu.Unlock()
	return tpl, nil
}

// compile builds a template that renders plain text, without HTML escaping.
func (c *Catalog) compile(source string) (*pongo2.Template, error) {
	return c.set.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
}

func execute(tpl *pongo2.Template, key string, details any, label string) (string, error) {
	ctx := pongo2.Context{"label": label, "key": key}
	switch typed := details.(type) {
	case map[string]any:
		for k, v := range typed {
			ctx[k] = displayValue(v)
		}
	case bool:
	default:
		ctx["error"] = displayValue(typed)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("messages: render %q: %w", key, err)
	}
	return strings.TrimSpace(out), nil
}

// displayValue prints whole floats without a fractional part.
func displayValue(v any) any {
	if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return int64(f)
	}
	return v
}
