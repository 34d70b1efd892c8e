package form

// Field is a leaf control holding a single value.
type Field struct {
	*node
	value        any
	defaultValue any
	sanitizers   []Sanitizer
	updateOn     UpdateOn
	draft        any
	hasDraft     bool
}

// NewField creates a field with an initial value. The initial value is also
// the value restored by Reset(nil).
func NewField(value any, opts ...Option) *Field {
	cfg := collectOptions(opts)
	f := &Field{
		node:       newNode(cfg),
		sanitizers: append([]Sanitizer(nil), cfg.sanitizers...),
		updateOn:   cfg.updateOn,
	}
	f.self = f
	f.value = f.sanitize(value)
	f.defaultValue = f.value
	f.do(func(ev *events) {
		f.updateLocked(updateOptions{silent: true}, ev)
	})
	return f
}

// UpdateOn reports when Input commits a value.
func (f *Field) UpdateOn() UpdateOn {
	return f.updateOn
}

// Input records a value typed by a user. The field becomes dirty; with
// UpdateOnBlur the value is held back until Blur or MarkAsTouched.
func (f *Field) Input(value any) {
	f.do(func(ev *events) {
		f.isDirty = true
		if f.updateOn == UpdateOnBlur {
			f.draft, f.hasDraft = value, true
			return
		}
		f.value = f.sanitize(value)
		f.updateLocked(updateOptions{}, ev)
	})
}

// Blur marks the field as touched, committing any held-back input.
func (f *Field) Blur() {
	f.MarkAsTouched()
}

// MarkAsTouched marks the field as touched and commits held-back input.
func (f *Field) MarkAsTouched() {
	f.do(func(ev *events) {
		f.isTouched = true
		if !f.hasDraft {
			return
		}
		f.value = f.sanitize(f.draft)
		f.draft, f.hasDraft = nil, false
		f.updateLocked(updateOptions{}, ev)
	})
}

func (f *Field) sanitize(value any) any {
	for _, fn := range f.sanitizers {
		if fn != nil {
			value = fn(value)
		}
	}
	return value
}

func (f *Field) children() []Control { return nil }

func (f *Field) valueLocked(bool) any { return f.value }

func (f *Field) assignLocked(value any, _ bool, _ updateOptions, _ *events) error {
	f.value = f.sanitize(value)
	f.draft, f.hasDraft = nil, false
	return nil
}

func (f *Field) resetLocked(value any, _ updateOptions, _ *events) {
	if value == nil {
		value = f.defaultValue
	}
	f.value = f.sanitize(value)
	f.draft, f.hasDraft = nil, false
}
