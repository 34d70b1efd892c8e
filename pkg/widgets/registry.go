// Package widgets picks the prompt used to ask for a field.
package widgets

import (
	"slices"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/schema"
)

const (
	WidgetConfirm  = "confirm"
	WidgetSelect   = "select"
	WidgetPassword = "password"
	WidgetTextArea = "textarea"
	WidgetInput    = "input"
)

// Matcher reports whether a widget fits a field.
type Matcher func(meta form.Meta) bool

type candidate struct {
	widget   string
	priority int
	matches  Matcher
}

// Registry resolves widgets. Candidates are kept ordered by descending
// priority; equal priorities keep registration order.
type Registry struct {
	mu         sync.RWMutex
	candidates []candidate
}

// NewRegistry returns a registry holding the confirm, select, password and
// textarea matchers.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.Register(WidgetConfirm, 90, func(meta form.Meta) bool {
		return meta.Type == string(schema.FieldTypeBoolean)
	})
	reg.Register(WidgetSelect, 80, func(meta form.Meta) bool {
		return len(meta.Enum) > 0
	})
	reg.Register(WidgetPassword, 70, func(meta form.Meta) bool {
		return strings.EqualFold(meta.Format, "password") || strings.EqualFold(meta.Metadata["secret"], "true")
	})
	reg.Register(WidgetTextArea, 60, func(meta form.Meta) bool {
		switch strings.ToLower(strings.TrimSpace(meta.Format)) {
		case "textarea", "markdown", "json", "yaml":
			return true
		}
		return false
	})
	return reg
}

// Register adds matcher for widget. Blank names and nil matchers are ignored.
func (r *Registry) Register(widget string, priority int, matcher Matcher) {
	widget = strings.TrimSpace(widget)
	if r == nil || widget == "" || matcher == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	at, _ := slices.BinarySearchFunc(r.candidates, priority, func(c candidate, p int) int {
		// descending, and past any equal priorities
		if c.priority >= p {
			return -1
		}
		return 1
	})
	r.candidates = slices.Insert(r.candidates, at, candidate{widget: widget, priority: priority, matches: matcher})
}

// Resolve returns the widget for meta. A "widget" metadata entry is used as
// is; otherwise the first matching candidate wins.
func (r *Registry) Resolve(meta form.Meta) (string, bool) {
	if hint := strings.TrimSpace(meta.Metadata["widget"]); hint != "" {
		return hint, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	candidates := slices.Clone(r.candidates)
	r.mu.RUnlock()

	for _, c := range candidates {
		if c.matches(meta) {
			return c.widget, true
		}
	}
	return "", false
}

// ResolveOrDefault is Resolve falling back to WidgetInput.
func (r *Registry) ResolveOrDefault(meta form.Meta) string {
	if widget, ok := r.Resolve(meta); ok {
		return widget
	}
	return WidgetInput
}
