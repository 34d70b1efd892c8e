package form

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-formflow/pkg/rx"
)

type tree struct {
	mu sync.Mutex
}

// events collects notifications while the tree is locked so they can be
// delivered once it is released.
type events struct {
	fns []func()
}

func (e *events) add(fn func()) {
	e.fns = append(e.fns, fn)
}

func (e *events) flush() {
	for _, fn := range e.fns {
		fn()
	}
}

// node holds the state shared by every control kind. Field, Group and Array
// embed it and provide the shape-specific parts of Control.
type node struct {
	tree     *tree
	self     Control
	parent   Control
	nodeName string
	meta     Meta

	validators      []Validator
	asyncValidators []AsyncValidator
	errs            Errors
	pending         bool
	asyncGen        uint64
	asyncCancel     context.CancelFunc

	isDisabled bool
	isDirty    bool
	isTouched  bool

	valueChanges  *rx.Subject[any]
	statusChanges *rx.Subject[Status]
}

func newNode(cfg options) *node {
	return &node{
		tree:            &tree{},
		meta:            cfg.meta,
		validators:      append([]Validator(nil), cfg.validators...),
		asyncValidators: append([]AsyncValidator(nil), cfg.asyncValidators...),
		isDisabled:      cfg.disabled,
		valueChanges:    rx.NewSubject[any](),
		statusChanges:   rx.NewSubject[Status](),
	}
}

func (n *node) base() *node { return n }

func (n *node) do(fn func(ev *events)) {
	t := n.tree
	t.mu.Lock()
	ev := &events{}
	fn(ev)
	t.mu.Unlock()
	ev.flush()
}

func read[T any](n *node, fn func() T) T {
	t := n.tree
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn()
}

// --- derived state -------------------------------------------------------

func statusLocked(c Control) Status {
	n := c.base()
	if n.isDisabled {
		return StatusDisabled
	}
	kids := c.children()
	statuses := make([]Status, len(kids))
	allDisabled := len(kids) > 0
	for i, kid := range kids {
		statuses[i] = statusLocked(kid)
		if statuses[i] != StatusDisabled {
			allDisabled = false
		}
	}
	if allDisabled {
		return StatusDisabled
	}
	if len(n.errs) > 0 {
		return StatusInvalid
	}
	pending := n.pending
	for _, status := range statuses {
		switch status {
		case StatusInvalid:
			return StatusInvalid
		case StatusPending:
			pending = true
		}
	}
	if pending {
		return StatusPending
	}
	return StatusValid
}

func excludedLocked(c Control) bool {
	return statusLocked(c) == StatusDisabled
}

func dirtyLocked(c Control) bool {
	if c.base().isDirty {
		return true
	}
	for _, kid := range c.children() {
		if dirtyLocked(kid) {
			return true
		}
	}
	return false
}

func touchedLocked(c Control) bool {
	if c.base().isTouched {
		return true
	}
	for _, kid := range c.children() {
		if touchedLocked(kid) {
			return true
		}
	}
	return false
}

func lookupLocked(c Control, path string) Control {
	if c == nil {
		return nil
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return c
	}
	current := c
	for _, segment := range strings.Split(path, ".") {
		switch typed := current.(type) {
		case *Group:
			next, ok := typed.controls[segment]
			if !ok {
				return nil
			}
			current = next
		case *Array:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(typed.items) {
				return nil
			}
			current = typed.items[idx]
		default:
			return nil
		}
	}
	return current
}

func rootLocked(c Control) Control {
	for c.base().parent != nil {
		c = c.base().parent
	}
	return c
}

// --- validation ----------------------------------------------------------

func runValidators(v View, validators []Validator) Errors {
	var out Errors
	for _, validate := range validators {
		if validate == nil {
			continue
		}
		out = mergeErrors(out, validate(v))
	}
	return out
}

func (n *node) updateLocked(opts updateOptions, ev *events) {
	c := n.self
	n.cancelAsyncLocked()
	n.errs = nil
	if statusLocked(c) != StatusDisabled {
		n.errs = runValidators(view{c}, n.validators)
		if len(n.errs) == 0 && len(n.asyncValidators) > 0 {
			n.startAsyncLocked(opts)
		}
	}
	n.emitLocked(opts, ev)
	if !opts.onlySelf && n.parent != nil {
		n.parent.base().updateLocked(opts, ev)
	}
}

// refreshDescendantsLocked re-validates every descendant of c bottom-up without touching
// ancestors.
func refreshDescendantsLocked(c Control, opts updateOptions, ev *events) {
	childOpts := opts
	childOpts.onlySelf = true
	for _, kid := range c.children() {
		refreshDescendantsLocked(kid, childOpts, ev)
		kid.base().updateLocked(childOpts, ev)
	}
}

func (n *node) emitLocked(opts updateOptions, ev *events) {
	if opts.silent {
		return
	}
	value := n.self.valueLocked(false)
	status := statusLocked(n.self)
	values, statuses := n.valueChanges, n.statusChanges
	ev.add(func() {
		values.Next(value)
		statuses.Next(status)
	})
}

// emitStatusChainLocked publishes the current status of n and each ancestor
// without re-running validators.
func (n *node) emitStatusChainLocked(opts updateOptions, ev *events) {
	if opts.silent {
		return
	}
	for c := n.self; c != nil; c = c.base().parent {
		status := statusLocked(c)
		statuses := c.base().statusChanges
		ev.add(func() { statuses.Next(status) })
		if opts.onlySelf {
			return
		}
	}
}

func (n *node) cancelAsyncLocked() {
	if n.asyncCancel != nil {
		n.asyncCancel()
		n.asyncCancel = nil
	}
	n.pending = false
	n.asyncGen++
}

func (n *node) startAsyncLocked(opts updateOptions) {
	n.pending = true
	gen := n.asyncGen
	ctx, cancel := context.WithCancel(context.Background())
	n.asyncCancel = cancel

	v := view{n.self}
	sources := make([]rx.Observable[Errors], 0, len(n.asyncValidators))
	for _, validate := range n.asyncValidators {
		if validate == nil {
			continue
		}
		sources = append(sources, rx.Take(validate(ctx, v), 1))
	}

	go func() {
		defer cancel()
		results, err := rx.First(ctx, rx.ForkJoin(sources...))
		if ctx.Err() != nil {
			return
		}
		var errs Errors
		switch {
		case err == nil:
			errs = mergeErrors(results...)
		case errors.Is(err, rx.ErrEmpty):
		default:
			errs = Errors{"async": err.Error()}
		}
		n.finishAsync(gen, errs, opts)
	}()
}

func (n *node) finishAsync(gen uint64, errs Errors, opts updateOptions) {
	n.do(func(ev *events) {
		if n.asyncGen != gen || !n.pending {
			return
		}
		n.pending = false
		n.asyncCancel = nil
		n.errs = errs
		n.emitStatusChainLocked(updateOptions{silent: opts.silent}, ev)
	})
}

func setDisabledLocked(c Control, disabled bool) {
	n := c.base()
	n.isDisabled = disabled
	if disabled {
		n.cancelAsyncLocked()
		n.errs = nil
	}
	for _, kid := range c.children() {
		setDisabledLocked(kid, disabled)
	}
}

func adoptTree(c Control, t *tree) {
	c.base().tree = t
	for _, kid := range c.children() {
		adoptTree(kid, t)
	}
}

func markPristineLocked(c Control) {
	c.base().isDirty = false
	for _, kid := range c.children() {
		markPristineLocked(kid)
	}
}

func markUntouchedLocked(c Control) {
	c.base().isTouched = false
	for _, kid := range c.children() {
		markUntouchedLocked(kid)
	}
}

// --- Control methods shared by every kind --------------------------------

// Name returns the key of the control inside its parent.
func (n *node) Name() string { return read(n, func() string { return n.nodeName }) }

// Value returns the aggregate value, leaving out disabled descendants.
func (n *node) Value() any { return read(n, func() any { return n.self.valueLocked(false) }) }

// RawValue returns the value including disabled descendants.
func (n *node) RawValue() any { return read(n, func() any { return n.self.valueLocked(true) }) }

// Status returns the current status.
func (n *node) Status() Status { return read(n, func() Status { return statusLocked(n.self) }) }

// Valid reports true for VALID and for DISABLED controls.
func (n *node) Valid() bool {
	status := n.Status()
	return status == StatusValid || status == StatusDisabled
}

func (n *node) Invalid() bool  { return n.Status() == StatusInvalid }
func (n *node) Pending() bool  { return n.Status() == StatusPending }
func (n *node) Disabled() bool { return n.Status() == StatusDisabled }
func (n *node) Enabled() bool  { return !n.Disabled() }

// Errors returns a copy of the control's own errors.
func (n *node) Errors() Errors { return read(n, func() Errors { return n.errs.clone() }) }

// HasError reports whether the control's own errors contain key.
func (n *node) HasError(key string) bool {
	return read(n, func() bool { return n.errs.Has(key) })
}

// GetError returns the details stored under key.
func (n *node) GetError(key string) any {
	return read(n, func() any { return n.errs[key] })
}

func (n *node) Dirty() bool    { return read(n, func() bool { return dirtyLocked(n.self) }) }
func (n *node) Pristine() bool { return !n.Dirty() }
func (n *node) Touched() bool  { return read(n, func() bool { return touchedLocked(n.self) }) }
func (n *node) Meta() Meta     { return read(n, func() Meta { return n.meta }) }

func (n *node) Parent() Control { return read(n, func() Control { return n.parent }) }
func (n *node) Root() Control   { return read(n, func() Control { return rootLocked(n.self) }) }

// Get resolves a dotted path such as "address.street" or "items.0.name".
func (n *node) Get(path string) Control {
	return read(n, func() Control { return lookupLocked(n.self, path) })
}

func (n *node) ValueChanges() rx.Observable[any]     { return n.valueChanges }
func (n *node) StatusChanges() rx.Observable[Status] { return n.statusChanges }

// SetValue replaces the value. Groups and arrays require a value for every
// child.
func (n *node) SetValue(value any, opts ...UpdateOption) error {
	return n.assign(value, false, opts)
}

// PatchValue updates the children present in value and ignores the rest.
func (n *node) PatchValue(value any, opts ...UpdateOption) error {
	return n.assign(value, true, opts)
}

func (n *node) assign(value any, patch bool, opts []UpdateOption) error {
	o := collectUpdate(opts)
	var err error
	n.do(func(ev *events) {
		if err = n.self.assignLocked(value, patch, o, ev); err != nil {
			return
		}
		n.updateLocked(o, ev)
	})
	return err
}

// Reset restores value (or the construction defaults when value is nil) and
// marks the control pristine and untouched.
func (n *node) Reset(value any, opts ...UpdateOption) {
	o := collectUpdate(opts)
	n.do(func(ev *events) {
		n.self.resetLocked(value, o, ev)
		markPristineLocked(n.self)
		markUntouchedLocked(n.self)
		n.updateLocked(o, ev)
	})
}

// UpdateValueAndValidity re-runs validators and republishes value and status.
func (n *node) UpdateValueAndValidity(opts ...UpdateOption) {
	o := collectUpdate(opts)
	n.do(func(ev *events) {
		n.updateLocked(o, ev)
	})
}

// SetValidators replaces the synchronous validators. Call
// UpdateValueAndValidity to apply them.
func (n *node) SetValidators(validators ...Validator) {
	n.do(func(*events) {
		n.validators = append([]Validator(nil), validators...)
	})
}

func (n *node) AddValidators(validators ...Validator) {
	n.do(func(*events) {
		n.validators = append(n.validators, validators...)
	})
}

func (n *node) ClearValidators() {
	n.do(func(*events) {
		n.validators = nil
	})
}

func (n *node) SetAsyncValidators(validators ...AsyncValidator) {
	n.do(func(*events) {
		n.asyncValidators = append([]AsyncValidator(nil), validators...)
	})
}

// SetErrors overrides the control's errors without running validators, for
// example to surface errors reported by a server.
func (n *node) SetErrors(errs Errors, opts ...UpdateOption) {
	o := collectUpdate(opts)
	n.do(func(ev *events) {
		n.cancelAsyncLocked()
		n.errs = errs.clone()
		n.emitStatusChainLocked(o, ev)
	})
}

// Enable re-enables the control and its descendants and re-validates them.
func (n *node) Enable(opts ...UpdateOption) {
	n.setDisabled(false, opts)
}

// Disable excludes the control and its descendants from validation and from
// the parent's value.
func (n *node) Disable(opts ...UpdateOption) {
	n.setDisabled(true, opts)
}

func (n *node) setDisabled(disabled bool, opts []UpdateOption) {
	o := collectUpdate(opts)
	n.do(func(ev *events) {
		setDisabledLocked(n.self, disabled)
		refreshDescendantsLocked(n.self, o, ev)
		n.updateLocked(o, ev)
	})
}

func (n *node) MarkAsTouched() {
	n.do(func(*events) { n.isTouched = true })
}

func (n *node) MarkAsUntouched() {
	n.do(func(*events) { markUntouchedLocked(n.self) })
}

func (n *node) MarkAsDirty() {
	n.do(func(*events) { n.isDirty = true })
}

func (n *node) MarkAsPristine() {
	n.do(func(*events) { markPristineLocked(n.self) })
}

// MarkAllAsTouched marks c and every descendant as touched.
func MarkAllAsTouched(c Control) {
	c.base().do(func(*events) {
		var mark func(Control)
		mark = func(c Control) {
			c.base().isTouched = true
			for _, kid := range c.children() {
				mark(kid)
			}
		}
		mark(c)
	})
}

// --- view ------------------------------------------------------------------

type view struct {
	c Control
}

func wrapView(c Control) View {
	if c == nil {
		return nil
	}
	return view{c: c}
}

func (v view) Name() string   { return v.c.base().nodeName }
func (v view) Value() any     { return v.c.valueLocked(false) }
func (v view) Status() Status { return statusLocked(v.c) }
func (v view) Errors() Errors { return v.c.base().errs.clone() }
func (v view) Disabled() bool { return statusLocked(v.c) == StatusDisabled }
func (v view) Dirty() bool    { return dirtyLocked(v.c) }
func (v view) Touched() bool  { return touchedLocked(v.c) }
func (v view) Meta() Meta     { return v.c.base().meta }
func (v view) Parent() View   { return wrapView(v.c.base().parent) }
func (v view) Root() View     { return wrapView(rootLocked(v.c)) }
func (v view) Get(path string) View {
	return wrapView(lookupLocked(v.c, path))
}
