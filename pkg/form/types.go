package form

import (
	"context"
	"errors"

	"github.com/goliatone/go-formflow/pkg/rx"
)

// Status is the validation status of a control.
type Status string

const (
	StatusValid    Status = "VALID"
	StatusInvalid  Status = "INVALID"
	StatusPending  Status = "PENDING"
	StatusDisabled Status = "DISABLED"
)

// UpdateOn controls when user input is committed to a field.
type UpdateOn string

const (
	UpdateOnChange UpdateOn = "change"
	UpdateOnBlur   UpdateOn = "blur"
)

var (
	ErrValueShape     = errors.New("form: value does not match control shape")
	ErrMissingValue   = errors.New("form: missing value for control")
	ErrUnknownControl = errors.New("form: unknown control")
	ErrIndexRange     = errors.New("form: index out of range")
	ErrDuplicateName  = errors.New("form: control name already registered")
	ErrNoItemFactory  = errors.New("form: array has no item factory")
)

// Errors maps error keys such as "required" or "minlength" to details. A nil
// or empty map means the control is valid.
type Errors map[string]any

// Has reports whether key is present.
func (e Errors) Has(key string) bool {
	_, ok := e[key]
	return ok
}

func (e Errors) clone() Errors {
	if len(e) == 0 {
		return nil
	}
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

func mergeErrors(sets ...Errors) Errors {
	var out Errors
	for _, set := range sets {
		for k, v := range set {
			if out == nil {
				out = make(Errors)
			}
			out[k] = v
		}
	}
	return out
}

// View is the read-only face of a control handed to validators. It is only
// valid while the validator runs.
type View interface {
	Name() string
	Value() any
	Status() Status
	Errors() Errors
	Disabled() bool
	Dirty() bool
	Touched() bool
	Meta() Meta
	Parent() View
	Root() View
	Get(path string) View
}

// Validator inspects a control and returns the errors it finds, or nil.
type Validator func(View) Errors

// AsyncValidator starts an out-of-band validation. It is invoked while the
// tree is locked, so it must read what it needs from the view before
// returning; the returned stream is observed later and its first value is
// the result. Cancelling ctx means the result is no longer wanted.
type AsyncValidator func(ctx context.Context, control View) rx.Observable[Errors]

// Sanitizer normalises a value before it is stored on a field.
type Sanitizer func(any) any

// Meta carries descriptive data used by prompts and message rendering.
type Meta struct {
	Label       string
	Description string
	Placeholder string
	Type        string
	Format      string
	Enum        []any
	Metadata    map[string]string
}

// Control is implemented by Field, Group and Array.
type Control interface {
	Name() string
	Value() any
	RawValue() any
	Status() Status
	Valid() bool
	Invalid() bool
	Pending() bool
	Disabled() bool
	Enabled() bool
	Errors() Errors
	HasError(key string) bool
	GetError(key string) any
	Dirty() bool
	Pristine() bool
	Touched() bool
	Meta() Meta
	Parent() Control
	Root() Control
	Get(path string) Control

	ValueChanges() rx.Observable[any]
	StatusChanges() rx.Observable[Status]

	SetValue(value any, opts ...UpdateOption) error
	PatchValue(value any, opts ...UpdateOption) error
	Reset(value any, opts ...UpdateOption)
	UpdateValueAndValidity(opts ...UpdateOption)
	SetValidators(validators ...Validator)
	AddValidators(validators ...Validator)
	ClearValidators()
	SetAsyncValidators(validators ...AsyncValidator)
	SetErrors(errs Errors, opts ...UpdateOption)
	Enable(opts ...UpdateOption)
	Disable(opts ...UpdateOption)
	MarkAsTouched()
	MarkAsUntouched()
	MarkAsDirty()
	MarkAsPristine()

	base() *node
	children() []Control
	valueLocked(raw bool) any
	assignLocked(value any, patch bool, opts updateOptions, ev *events) error
	resetLocked(value any, opts updateOptions, ev *events)
}

// Option configures a control at construction time.
type Option func(*options)

type options struct {
	validators      []Validator
	asyncValidators []AsyncValidator
	sanitizers      []Sanitizer
	disabled        bool
	updateOn        UpdateOn
	meta            Meta
	itemFactory     func() Control
}

func collectOptions(opts []Option) options {
	cfg := options{updateOn: UpdateOnChange}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithValidators attaches synchronous validators.
func WithValidators(validators ...Validator) Option {
	return func(o *options) {
		o.validators = append(o.validators, validators...)
	}
}

// WithAsyncValidators attaches asynchronous validators.
func WithAsyncValidators(validators ...AsyncValidator) Option {
	return func(o *options) {
		o.asyncValidators = append(o.asyncValidators, validators...)
	}
}

// WithSanitizer registers sanitizers applied, in order, to every value set on
// a field.
func WithSanitizer(sanitizers ...Sanitizer) Option {
	return func(o *options) {
		o.sanitizers = append(o.sanitizers, sanitizers...)
	}
}

// WithDisabled creates the control disabled.
func WithDisabled() Option {
	return func(o *options) {
		o.disabled = true
	}
}

// WithUpdateOn selects when Input commits a value.
func WithUpdateOn(mode UpdateOn) Option {
	return func(o *options) {
		if mode != "" {
			o.updateOn = mode
		}
	}
}

// WithMeta attaches descriptive metadata.
func WithMeta(meta Meta) Option {
	return func(o *options) {
		o.meta = meta
	}
}

// WithItemFactory sets the template used by Array.PushNew and by SetValue
// when it has to grow the array.
func WithItemFactory(factory func() Control) Option {
	return func(o *options) {
		o.itemFactory = factory
	}
}

// UpdateOption tunes a single mutation.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	onlySelf bool
	silent   bool
}

func collectUpdate(opts []UpdateOption) updateOptions {
	cfg := updateOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// OnlySelf stops the change from re-validating ancestors.
func OnlySelf() UpdateOption {
	return func(o *updateOptions) { o.onlySelf = true }
}

// Silent suppresses value and status notifications.
func Silent() UpdateOption {
	return func(o *updateOptions) { o.silent = true }
}
