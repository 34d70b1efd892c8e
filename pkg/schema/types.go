package schema

import "strings"

// Kind selects the control built for a schema entry.
type Kind string

const (
	KindField Kind = "field"
	KindGroup Kind = "group"
	KindArray Kind = "array"
)

// FieldType is the simplified value type of a field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// Rule kinds understood by the default form registry. Length limits and
// numeric bounds keep their threshold in Params["value"], pattern rules keep
// the expression in Params["pattern"] and match rules name the other control
// in Params["field"]. fieldsMatch lists comma separated paths in
// Params["fields"].
const (
	RuleRequired     = "required"
	RuleRequiredTrue = "requiredTrue"
	RuleEmail        = "email"
	RuleMinLength    = "minLength"
	RuleMaxLength    = "maxLength"
	RuleMin          = "min"
	RuleMax          = "max"
	RulePattern      = "pattern"
	RuleMatch        = "match"
	RuleFieldsMatch  = "fieldsMatch"
)

// Rule is a single validation constraint. Message optionally overrides the
// text rendered for the error it produces.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Param returns the trimmed parameter stored under key.
func (r Rule) Param(key string) string {
	if r.Params == nil {
		return ""
	}
	return strings.TrimSpace(r.Params[key])
}

// Condition adds Rules to a control while the control at Field holds Equals.
// Field is resolved from the enclosing group first and then from the form
// root. A nil Equals matches any non-empty value.
//
// Expr replaces Field and Equals with an expression over several fields,
// such as `plan == "pro" && !trial`. Field paths in it resolve the same way.
type Condition struct {
	Field  string `json:"field,omitempty" yaml:"field,omitempty"`
	Equals any    `json:"equals,omitempty" yaml:"equals,omitempty"`
	Expr   string `json:"expr,omitempty" yaml:"expr,omitempty"`
	Rules  []Rule `json:"rules" yaml:"rules"`
}

// Control is one entry of a form: a field, a nested group or an array.
type Control struct {
	Name        string            `json:"name" yaml:"name"`
	Kind        Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	Type        FieldType         `json:"type,omitempty" yaml:"type,omitempty"`
	Format      string            `json:"format,omitempty" yaml:"format,omitempty"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string            `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Enum        []any             `json:"enum,omitempty" yaml:"enum,omitempty"`
	Required    bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Disabled    bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Sanitize    []string          `json:"sanitize,omitempty" yaml:"sanitize,omitempty"`
	UpdateOn    string            `json:"updateOn,omitempty" yaml:"updateOn,omitempty"`
	Rules       []Rule            `json:"rules,omitempty" yaml:"rules,omitempty"`
	Controls    []Control         `json:"controls,omitempty" yaml:"controls,omitempty"`
	Item        *Control          `json:"item,omitempty" yaml:"item,omitempty"`
	When        []Condition       `json:"when,omitempty" yaml:"when,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// EffectiveKind returns Kind, inferring it from the shape of the entry when
// unset.
func (c Control) EffectiveKind() Kind {
	if c.Kind != "" {
		return c.Kind
	}
	switch {
	case c.Item != nil || c.Type == FieldTypeArray:
		return KindArray
	case len(c.Controls) > 0 || c.Type == FieldTypeObject:
		return KindGroup
	default:
		return KindField
	}
}

// DisplayLabel returns Label or a label derived from Name.
func (c Control) DisplayLabel() string {
	if label := strings.TrimSpace(c.Label); label != "" {
		return label
	}
	return Humanize(c.Name)
}

// Form is the top-level declarative form. Validators run on the root group.
type Form struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Controls    []Control         `json:"controls" yaml:"controls"`
	Validators  []Rule            `json:"validators,omitempty" yaml:"validators,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Find resolves a dotted path such as "address.street" against the form
// definition. Array segments address the item template, so "items.0.name"
// and "items.name" both reach the item's name control and "items.0" is the
// item template itself.
func (f Form) Find(path string) (Control, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Control{}, false
	}
	controls := f.Controls
	var current Control
	segments := strings.Split(path, ".")
	for i := 0; i < len(segments); i++ {
		found := false
		for _, candidate := range controls {
			if candidate.Name == segments[i] {
				current, found = candidate, true
				break
			}
		}
		if !found {
			return Control{}, false
		}
		if current.EffectiveKind() == KindArray && current.Item != nil {
			if i+1 < len(segments) && isIndex(segments[i+1]) {
				i++
				current = *current.Item
				controls = current.Controls
				continue
			}
			controls = current.Item.Controls
			continue
		}
		controls = current.Controls
	}
	return current, true
}

func isIndex(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
