package form

import (
	"fmt"
	"strconv"
)

// Array is an ordered list of controls of the same shape. Children are named
// by their index.
type Array struct {
	*node
	items   []Control
	factory func() Control
}

// NewArray creates an array holding items.
func NewArray(items []Control, opts ...Option) *Array {
	cfg := collectOptions(opts)
	a := &Array{
		node:    newNode(cfg),
		factory: cfg.itemFactory,
	}
	a.self = a
	a.do(func(ev *events) {
		for _, item := range items {
			if item == nil {
				continue
			}
			a.items = append(a.items, item)
		}
		a.renumberLocked()
		if a.isDisabled {
			setDisabledLocked(a, true)
		}
		silent := updateOptions{silent: true}
		refreshDescendantsLocked(a, silent, ev)
		a.updateLocked(silent, ev)
	})
	return a
}

// Len returns the number of items.
func (a *Array) Len() int {
	return read(a.node, func() int { return len(a.items) })
}

// At returns the item at index i, or nil when out of range.
func (a *Array) At(i int) Control {
	return read(a.node, func() Control {
		if i < 0 || i >= len(a.items) {
			return nil
		}
		return a.items[i]
	})
}

// Controls returns a snapshot of the items.
func (a *Array) Controls() []Control {
	return read(a.node, func() []Control {
		return append([]Control(nil), a.items...)
	})
}

// Push appends c.
func (a *Array) Push(c Control, opts ...UpdateOption) {
	if c == nil {
		return
	}
	o := collectUpdate(opts)
	a.do(func(ev *events) {
		a.items = append(a.items, c)
		a.attachLocked(c, o, ev)
	})
}

// PushNew appends an item built by the item factory and returns it.
func (a *Array) PushNew(opts ...UpdateOption) (Control, error) {
	if a.factory == nil {
		return nil, ErrNoItemFactory
	}
	c := a.factory()
	a.Push(c, opts...)
	return c, nil
}

// Insert places c at index i, shifting later items. i may equal Len.
func (a *Array) Insert(i int, c Control, opts ...UpdateOption) error {
	if c == nil {
		return fmt.Errorf("%w: nil control", ErrUnknownControl)
	}
	o := collectUpdate(opts)
	var err error
	a.do(func(ev *events) {
		if i < 0 || i > len(a.items) {
			err = fmt.Errorf("%w: %d", ErrIndexRange, i)
			return
		}
		a.items = append(a.items, nil)
		copy(a.items[i+1:], a.items[i:])
		a.items[i] = c
		a.attachLocked(c, o, ev)
	})
	return err
}

// RemoveAt detaches the item at index i.
func (a *Array) RemoveAt(i int, opts ...UpdateOption) error {
	o := collectUpdate(opts)
	var err error
	a.do(func(ev *events) {
		if i < 0 || i >= len(a.items) {
			err = fmt.Errorf("%w: %d", ErrIndexRange, i)
			return
		}
		removed := a.items[i]
		a.items = append(a.items[:i], a.items[i+1:]...)
		detachLocked(removed)
		a.renumberLocked()
		a.updateLocked(o, ev)
	})
	return err
}

// Move relocates the item at from so that it ends up at index to.
func (a *Array) Move(from, to int, opts ...UpdateOption) error {
	o := collectUpdate(opts)
	var err error
	a.do(func(ev *events) {
		if from < 0 || from >= len(a.items) {
			err = fmt.Errorf("%w: %d", ErrIndexRange, from)
			return
		}
		if to < 0 || to >= len(a.items) {
			err = fmt.Errorf("%w: %d", ErrIndexRange, to)
			return
		}
		if from == to {
			return
		}
		moved := a.items[from]
		a.items = append(a.items[:from], a.items[from+1:]...)
		a.items = append(a.items, nil)
		copy(a.items[to+1:], a.items[to:])
		a.items[to] = moved
		a.renumberLocked()
		a.updateLocked(o, ev)
	})
	return err
}

// Clear removes every item.
func (a *Array) Clear(opts ...UpdateOption) {
	o := collectUpdate(opts)
	a.do(func(ev *events) {
		for _, item := range a.items {
			detachLocked(item)
		}
		a.items = nil
		a.updateLocked(o, ev)
	})
}

func (a *Array) attachLocked(c Control, o updateOptions, ev *events) {
	n := c.base()
	n.parent = a
	adoptTree(c, a.tree)
	if a.isDisabled {
		setDisabledLocked(c, true)
	}
	a.renumberLocked()
	childOpts := updateOptions{onlySelf: true, silent: o.silent}
	refreshDescendantsLocked(c, childOpts, ev)
	n.updateLocked(childOpts, ev)
	a.updateLocked(o, ev)
}

func (a *Array) renumberLocked() {
	for i, item := range a.items {
		n := item.base()
		n.parent = a
		n.nodeName = strconv.Itoa(i)
		adoptTree(item, a.tree)
	}
}

func (a *Array) children() []Control {
	return a.items
}

func (a *Array) valueLocked(raw bool) any {
	includeAll := raw || excludedLocked(a)
	out := make([]any, 0, len(a.items))
	for _, item := range a.items {
		if !includeAll && excludedLocked(item) {
			continue
		}
		out = append(out, item.valueLocked(raw))
	}
	return out
}

func (a *Array) assignLocked(value any, patch bool, opts updateOptions, ev *events) error {
	if patch && value == nil {
		return nil
	}
	if !patch {
		if err := checkShape(a, value); err != nil {
			return err
		}
	}
	values, ok := toSlice(value)
	if !ok {
		return fmt.Errorf("%w: %s expects a slice, got %T", ErrValueShape, a.nodeName, value)
	}
	if !patch {
		a.resizeLocked(len(values))
	}
	childOpts := updateOptions{onlySelf: true, silent: opts.silent}
	for i, sub := range values {
		if i >= len(a.items) {
			break
		}
		item := a.items[i]
		if err := item.assignLocked(sub, patch, childOpts, ev); err != nil {
			return err
		}
		item.base().updateLocked(childOpts, ev)
	}
	return nil
}

func (a *Array) resetLocked(value any, opts updateOptions, ev *events) {
	values, _ := toSlice(value)
	if value != nil {
		a.resizeLocked(len(values))
	}
	childOpts := updateOptions{onlySelf: true, silent: opts.silent}
	for i, item := range a.items {
		var sub any
		if i < len(values) {
			sub = values[i]
		}
		item.resetLocked(sub, childOpts, ev)
		item.base().updateLocked(childOpts, ev)
	}
}

// resizeLocked grows or shrinks the array to size using the item factory.
// Without a factory the array keeps its length.
func (a *Array) resizeLocked(size int) {
	if a.factory == nil {
		return
	}
	for len(a.items) > size {
		last := a.items[len(a.items)-1]
		a.items = a.items[:len(a.items)-1]
		detachLocked(last)
	}
	for len(a.items) < size {
		item := a.factory()
		if a.isDisabled {
			setDisabledLocked(item, true)
		}
		a.items = append(a.items, item)
	}
	a.renumberLocked()
}

func toSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		return convertSlice(typed), true
	case []int:
		return convertSlice(typed), true
	case []float64:
		return convertSlice(typed), true
	case []bool:
		return convertSlice(typed), true
	case []map[string]any:
		return convertSlice(typed), true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func convertSlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
