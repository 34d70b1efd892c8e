package form

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/goliatone/go-formflow/pkg/expr"
	"github.com/goliatone/go-formflow/pkg/rx"
)

// Predicate decides from a trigger value whether conditional validators apply.
type Predicate func(value any) bool

// Expr matches while e holds. Field paths of e are read through resolve,
// and a path resolve cannot find reads as null. The trigger value is ignored,
// so the conditional should watch every control e reads.
func Expr(e *expr.Expr, resolve func(path string) Control) Predicate {
	return func(any) bool {
		return e.Eval(func(path string) any {
			if c := resolve(path); c != nil {
				return c.Value()
			}
			return nil
		})
	}
}

// Equals matches trigger values equal to expected. Values of different types
// match when they print the same, so 1 matches "1" and true matches "true".
func Equals(expected any) Predicate {
	return func(value any) bool {
		if reflect.DeepEqual(value, expected) {
			return true
		}
		if value == nil || expected == nil {
			return false
		}
		return fmt.Sprint(value) == fmt.Sprint(expected)
	}
}

// Conditional attaches Validators to a target while Predicate holds for the
// value of Trigger. A nil Predicate matches any non-empty value. Changes of
// the Watch controls re-evaluate Predicate against the current value of
// Trigger.
type Conditional struct {
	Trigger    Control
	Predicate  Predicate
	Validators []Validator
	Watch      []Control
}

// Binding keeps a target's validators in sync with its conditionals.
type Binding struct {
	target Control
	base   []Validator
	conds  []Conditional

	mu     sync.Mutex
	active []bool
	subs   []*rx.Subscription
}

// When applies validators to target whenever predicate holds for the value
// of trigger and removes them otherwise, re-validating target on each change
// of trigger. The validators target already had are always kept. Dispose the
// returned subscription to stop following trigger.
func When(ctx context.Context, trigger Control, predicate Predicate, target Control, validators ...Validator) *rx.Subscription {
	b := Bind(ctx, target, Conditional{Trigger: trigger, Predicate: predicate, Validators: validators})
	if len(b.subs) == 0 {
		return nil
	}
	return b.subs[0]
}

// Bind follows every conditional at once so that several triggers can
// contribute validators to the same target.
func Bind(ctx context.Context, target Control, conds ...Conditional) *Binding {
	b := &Binding{target: target}
	target.base().do(func(*events) {
		b.base = append([]Validator(nil), target.base().validators...)
	})
	for _, cond := range conds {
		if cond.Trigger != nil {
			b.conds = append(b.conds, cond)
		}
	}
	b.active = make([]bool, len(b.conds))

	for idx, cond := range b.conds {
		sub := rx.Subscribe(ctx, cond.Trigger.ValueChanges(), rx.Observer[any]{
			Next: func(value any) { b.apply(idx, value) },
		})
		b.subs = append(b.subs, sub)
		for _, watched := range cond.Watch {
			if watched == nil || watched == cond.Trigger {
				continue
			}
			trigger := cond.Trigger
			sub := rx.Subscribe(ctx, watched.ValueChanges(), rx.Observer[any]{
				Next: func(any) { b.apply(idx, trigger.Value()) },
			})
			b.subs = append(b.subs, sub)
		}
	}
	for idx, cond := range b.conds {
		b.apply(idx, cond.Trigger.Value())
	}
	return b
}

// Active reports which conditionals currently apply, in registration order.
func (b *Binding) Active() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.active...)
}

// Dispose stops following the triggers. The target keeps its current
// validators.
func (b *Binding) Dispose() {
	for _, sub := range b.subs {
		sub.Dispose()
	}
}

func (b *Binding) apply(idx int, value any) {
	cond := b.conds[idx]
	var matched bool
	if cond.Predicate != nil {
		matched = cond.Predicate(value)
	} else {
		matched = !isEmpty(value)
	}

	n := b.target.base()
	n.do(func(ev *events) {
		b.mu.Lock()
		b.active[idx] = matched
		validators := append([]Validator(nil), b.base...)
		for i, on := range b.active {
			if on {
				validators = append(validators, b.conds[i].Validators...)
			}
		}
		b.mu.Unlock()

		n.validators = validators
		n.updateLocked(updateOptions{}, ev)
	})
}
