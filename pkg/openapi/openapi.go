// Package openapi derives declarative forms from the request bodies of
// OpenAPI 3 operations.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/schema"
)

// ExtensionPrefix marks vendor extensions read from schema properties, such
// as x-formflow-placeholder or x-formflow-sanitize.
const ExtensionPrefix = "x-formflow-"

var (
	ErrOperationNotFound = errors.New("openapi: operation not found")
	ErrNoRequestBody     = errors.New("openapi: operation has no request body schema")
)

// Option configures document loading.
type Option func(*config)

type config struct {
	externalRefs bool
}

// WithExternalRefs allows $ref entries pointing outside the document.
func WithExternalRefs(allowed bool) Option {
	return func(cfg *config) {
		cfg.externalRefs = allowed
	}
}

// OperationRef summarises an operation that can be turned into a form.
type OperationRef struct {
	ID      string
	Method  string
	Path    string
	Summary string
}

type operation struct {
	OperationRef
	op *openapi3.Operation
}

// Operations lists the operations of raw that carry a request body, sorted
// by id. Operations without an operationId are named "method:path".
func Operations(ctx context.Context, raw []byte, opts ...Option) ([]OperationRef, error) {
	ops, err := load(ctx, raw, opts)
	if err != nil {
		return nil, err
	}
	refs := make([]OperationRef, 0, len(ops))
	for _, op := range ops {
		if requestSchema(op.op) != nil {
			refs = append(refs, op.OperationRef)
		}
	}
	return refs, nil
}

// FormFromOperation converts the request body schema of operationID into a
// form definition.
func FormFromOperation(ctx context.Context, raw []byte, operationID string, opts ...Option) (schema.Form, error) {
	ops, err := load(ctx, raw, opts)
	if err != nil {
		return schema.Form{}, err
	}
	for _, op := range ops {
		if op.ID != operationID {
			continue
		}
		body := requestSchema(op.op)
		if body == nil {
			return schema.Form{}, fmt.Errorf("%w: %s", ErrNoRequestBody, operationID)
		}
		form := schema.Form{
			ID:          op.ID,
			Title:       strings.TrimSpace(op.Summary),
			Description: strings.TrimSpace(op.op.Description),
			Controls:    propertiesToControls(body, map[*openapi3.Schema]bool{}),
			Metadata: map[string]string{
				"method": op.Method,
				"path":   op.Path,
			},
		}
		return form, nil
	}
	return schema.Form{}, fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
}

func load(ctx context.Context, raw []byte, opts []Option) ([]operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: cfg.externalRefs,
	}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}

	var ops []operation
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			ops = append(ops, operation{
				OperationRef: OperationRef{ID: id, Method: strings.ToUpper(method), Path: path, Summary: op.Summary},
				op:           op,
			})
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].ID < ops[j].ID })
	return ops, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil && mt.Schema.Value != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

// propertiesToControls converts the properties of an object schema, and of
// any allOf members, in name order. Properties that refer back to a schema
// already being converted are dropped.
func propertiesToControls(src *openapi3.Schema, stack map[*openapi3.Schema]bool) []schema.Control {
	stack[src] = true
	defer delete(stack, src)

	properties := make(map[string]*openapi3.SchemaRef)
	required := make(map[string]bool)
	collectProperties(src, properties, required)

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	controls := make([]schema.Control, 0, len(names))
	for _, name := range names {
		ref := properties[name]
		if ref == nil || ref.Value == nil || stack[ref.Value] {
			continue
		}
		controls = append(controls, convert(name, ref.Value, required[name], stack))
	}
	return controls
}

func collectProperties(src *openapi3.Schema, properties map[string]*openapi3.SchemaRef, required map[string]bool) {
	if src == nil {
		return
	}
	for name, ref := range src.Properties {
		properties[name] = ref
	}
	for _, name := range src.Required {
		required[name] = true
	}
	for _, member := range src.AllOf {
		if member != nil {
			collectProperties(member.Value, properties, required)
		}
	}
}

func convert(name string, src *openapi3.Schema, required bool, stack map[*openapi3.Schema]bool) schema.Control {
	control := schema.Control{
		Name:        name,
		Type:        schema.FieldType(firstType(src)),
		Format:      src.Format,
		Label:       strings.TrimSpace(src.Title),
		Description: strings.TrimSpace(src.Description),
		Default:     src.Default,
		Required:    required,
		Disabled:    src.ReadOnly,
	}
	if len(src.Enum) > 0 {
		control.Enum = append([]any(nil), src.Enum...)
	}

	switch {
	case control.Type == schema.FieldTypeObject || (control.Type == "" && len(src.Properties) > 0):
		control.Kind = schema.KindGroup
		control.Type = schema.FieldTypeObject
		control.Controls = propertiesToControls(src, stack)
	case control.Type == schema.FieldTypeArray:
		control.Kind = schema.KindArray
		if src.Items != nil && src.Items.Value != nil && !stack[src.Items.Value] {
			item := convert("item", src.Items.Value, false, stack)
			control.Item = &item
		}
	default:
		control.Kind = schema.KindField
	}

	control.Rules = rules(src, control.Kind)
	applyExtensions(&control, src.Extensions)
	return control
}

func rules(src *openapi3.Schema, kind schema.Kind) []schema.Rule {
	var out []schema.Rule
	value := func(kind string, v string) {
		out = append(out, schema.Rule{Kind: kind, Params: map[string]string{"value": v}})
	}
	if kind == schema.KindArray {
		if src.MinItems != 0 {
			value(schema.RuleMinLength, strconv.FormatUint(src.MinItems, 10))
		}
		if src.MaxItems != nil {
			value(schema.RuleMaxLength, strconv.FormatUint(*src.MaxItems, 10))
		}
		return out
	}
	if src.MinLength != 0 {
		value(schema.RuleMinLength, strconv.FormatUint(src.MinLength, 10))
	}
	if src.MaxLength != nil {
		value(schema.RuleMaxLength, strconv.FormatUint(*src.MaxLength, 10))
	}
	if src.Min != nil {
		value(schema.RuleMin, strconv.FormatFloat(*src.Min, 'f', -1, 64))
	}
	if src.Max != nil {
		value(schema.RuleMax, strconv.FormatFloat(*src.Max, 'f', -1, 64))
	}
	if src.Pattern != "" {
		out = append(out, schema.Rule{Kind: schema.RulePattern, Params: map[string]string{"pattern": src.Pattern}})
	}
	if strings.EqualFold(src.Format, "email") {
		out = append(out, schema.Rule{Kind: schema.RuleEmail})
	}
	return out
}

// applyExtensions reads x-formflow-* vendor extensions. placeholder,
// sanitize (comma separated) and update-on map onto the control; any other
// string valued key is kept as metadata without the prefix.
func applyExtensions(control *schema.Control, extensions map[string]any) {
	keys := make([]string, 0, len(extensions))
	for key := range extensions {
		if strings.HasPrefix(key, ExtensionPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		raw, ok := extensions[key].(string)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		switch name := strings.TrimPrefix(key, ExtensionPrefix); name {
		case "placeholder":
			control.Placeholder = raw
		case "sanitize":
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					control.Sanitize = append(control.Sanitize, part)
				}
			}
		case "update-on":
			control.UpdateOn = strings.ToLower(raw)
		default:
			if control.Metadata == nil {
				control.Metadata = make(map[string]string)
			}
			control.Metadata[name] = raw
		}
	}
}

func firstType(src *openapi3.Schema) string {
	if src.Type == nil {
		return ""
	}
	for _, t := range src.Type.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}
