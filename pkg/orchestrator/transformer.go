package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// Transformer mutates a form definition before it is linted and built.
type Transformer interface {
	Transform(ctx context.Context, def *schema.Form) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, def *schema.Form) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, def *schema.Form) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, def)
}

// PresetTransformer applies declarative overrides loaded from a YAML or JSON
// document. Field keys are dotted control paths; "item" (or "items") steps
// into an array's item definition:
//
//	title: Join us
//	metadata: {theme: dark}
//	fields:
//	  email: {label: Work email, placeholder: you@company.com}
//	  phones.item: {rules: [{kind: pattern, params: {pattern: "[0-9-]+"}}]}
type PresetTransformer struct {
	document presetDocument
}

type presetDocument struct {
	Title       string                `yaml:"title"`
	Description string                `yaml:"description"`
	Metadata    map[string]string     `yaml:"metadata"`
	Fields      map[string]fieldPatch `yaml:"fields"`
}

type fieldPatch struct {
	Label       string            `yaml:"label"`
	Description string            `yaml:"description"`
	Placeholder string            `yaml:"placeholder"`
	Rename      string            `yaml:"rename"`
	Required    *bool             `yaml:"required"`
	Disabled    *bool             `yaml:"disabled"`
	Rules       []schema.Rule     `yaml:"rules"`
	Metadata    map[string]string `yaml:"metadata"`
}

// NewPresetTransformer constructs a transformer from raw YAML or JSON bytes.
func NewPresetTransformer(data []byte) (*PresetTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("preset transformer: document is empty")
	}
	var document presetDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("preset transformer: parse document: %w", err)
	}
	return &PresetTransformer{document: document}, nil
}

// NewPresetTransformerFromFS loads a preset document from fsys.
func NewPresetTransformerFromFS(fsys fs.FS, path string) (*PresetTransformer, error) {
	if fsys == nil {
		return nil, errors.New("preset transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("preset transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("preset transformer: read %s: %w", path, err)
	}
	return NewPresetTransformer(data)
}

// Transform applies the patches onto def. Paths are applied in sorted order
// so a rename never affects another patch of the same document.
func (t *PresetTransformer) Transform(ctx context.Context, def *schema.Form) error {
	if def == nil {
		return errors.New("preset transformer: form definition is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.document.Title != "" {
		def.Title = t.document.Title
	}
	if t.document.Description != "" {
		def.Description = t.document.Description
	}
	if len(t.document.Metadata) > 0 {
		def.Metadata = mergeStringMap(def.Metadata, t.document.Metadata)
	}

	paths := make([]string, 0, len(t.document.Fields))
	for path := range t.document.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	targets := make([]*schema.Control, len(paths))
	for i, path := range paths {
		control := findControl(def.Controls, strings.Split(path, "."))
		if control == nil {
			return fmt.Errorf("preset transformer: control %q not found", path)
		}
		targets[i] = control
	}
	for i, path := range paths {
		applyPatch(targets[i], t.document.Fields[path])
	}
	return nil
}

func applyPatch(control *schema.Control, patch fieldPatch) {
	if patch.Label != "" {
		control.Label = patch.Label
	}
	if patch.Description != "" {
		control.Description = patch.Description
	}
	if patch.Placeholder != "" {
		control.Placeholder = patch.Placeholder
	}
	if patch.Required != nil {
		control.Required = *patch.Required
	}
	if patch.Disabled != nil {
		control.Disabled = *patch.Disabled
	}
	if len(patch.Rules) > 0 {
		control.Rules = append(control.Rules, patch.Rules...)
	}
	if len(patch.Metadata) > 0 {
		control.Metadata = mergeStringMap(control.Metadata, patch.Metadata)
	}
	if name := strings.TrimSpace(patch.Rename); name != "" {
		control.Name = name
	}
}

func findControl(controls []schema.Control, segments []string) *schema.Control {
	if len(segments) == 0 || segments[0] == "" {
		return nil
	}
	for idx := range controls {
		control := &controls[idx]
		if control.Name != segments[0] {
			continue
		}
		return descend(control, segments[1:])
	}
	return nil
}

func descend(control *schema.Control, segments []string) *schema.Control {
	if len(segments) == 0 {
		return control
	}
	if segments[0] == "item" || segments[0] == "items" {
		if control.Item == nil {
			return nil
		}
		return descend(control.Item, segments[1:])
	}
	return findControl(control.Controls, segments)
}

func mergeStringMap(dst, src map[string]string) map[string]string {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
