package form

import (
	"fmt"
	"strconv"
)

// Entry names a child control of a Group.
type Entry struct {
	Name    string
	Control Control
}

// Group is an ordered set of named controls. Its value is a map of the
// enabled children's values.
type Group struct {
	*node
	names    []string
	controls map[string]Control
}

// NewGroup creates a group from entries, keeping their order. A repeated name
// replaces the earlier control in place.
func NewGroup(entries []Entry, opts ...Option) *Group {
	cfg := collectOptions(opts)
	g := &Group{
		node:     newNode(cfg),
		controls: make(map[string]Control, len(entries)),
	}
	g.self = g
	g.do(func(ev *events) {
		for _, entry := range entries {
			if entry.Control == nil {
				continue
			}
			g.putLocked(entry.Name, entry.Control)
		}
		if g.isDisabled {
			setDisabledLocked(g, true)
		}
		silent := updateOptions{silent: true}
		refreshDescendantsLocked(g, silent, ev)
		g.updateLocked(silent, ev)
	})
	return g
}

// Names returns the child names in order.
func (g *Group) Names() []string {
	return read(g.node, func() []string {
		return append([]string(nil), g.names...)
	})
}

// Control returns the direct child called name, or nil.
func (g *Group) Control(name string) Control {
	return read(g.node, func() Control { return g.controls[name] })
}

// Contains reports whether a child called name is registered.
func (g *Group) Contains(name string) bool {
	return read(g.node, func() bool {
		_, ok := g.controls[name]
		return ok
	})
}

// AddControl appends a child. It fails with ErrDuplicateName when the name is
// taken.
func (g *Group) AddControl(name string, c Control, opts ...UpdateOption) error {
	if c == nil {
		return fmt.Errorf("%w: %s", ErrUnknownControl, name)
	}
	o := collectUpdate(opts)
	var err error
	g.do(func(ev *events) {
		if _, exists := g.controls[name]; exists {
			err = fmt.Errorf("%w: %s", ErrDuplicateName, name)
			return
		}
		g.putLocked(name, c)
		g.settleLocked(c, o, ev)
	})
	return err
}

// SetControl adds or replaces the child called name.
func (g *Group) SetControl(name string, c Control, opts ...UpdateOption) {
	if c == nil {
		return
	}
	o := collectUpdate(opts)
	g.do(func(ev *events) {
		if previous, exists := g.controls[name]; exists {
			detachLocked(previous)
		}
		g.putLocked(name, c)
		g.settleLocked(c, o, ev)
	})
}

// RemoveControl detaches the child called name.
func (g *Group) RemoveControl(name string, opts ...UpdateOption) error {
	o := collectUpdate(opts)
	var err error
	g.do(func(ev *events) {
		c, exists := g.controls[name]
		if !exists {
			err = fmt.Errorf("%w: %s", ErrUnknownControl, name)
			return
		}
		delete(g.controls, name)
		for i, existing := range g.names {
			if existing == name {
				g.names = append(g.names[:i], g.names[i+1:]...)
				break
			}
		}
		detachLocked(c)
		g.updateLocked(o, ev)
	})
	return err
}

func (g *Group) putLocked(name string, c Control) {
	if _, exists := g.controls[name]; !exists {
		g.names = append(g.names, name)
	}
	g.controls[name] = c
	n := c.base()
	n.parent = g
	n.nodeName = name
	adoptTree(c, g.tree)
}

// settleLocked validates a freshly attached subtree and then the group.
func (g *Group) settleLocked(c Control, o updateOptions, ev *events) {
	childOpts := updateOptions{onlySelf: true, silent: o.silent}
	refreshDescendantsLocked(c, childOpts, ev)
	c.base().updateLocked(childOpts, ev)
	g.updateLocked(o, ev)
}

func detachLocked(c Control) {
	n := c.base()
	n.parent = nil
	adoptTree(c, &tree{})
}

func (g *Group) children() []Control {
	out := make([]Control, 0, len(g.names))
	for _, name := range g.names {
		out = append(out, g.controls[name])
	}
	return out
}

func (g *Group) valueLocked(raw bool) any {
	includeAll := raw || excludedLocked(g)
	out := make(map[string]any, len(g.names))
	for _, name := range g.names {
		c := g.controls[name]
		if !includeAll && excludedLocked(c) {
			continue
		}
		out[name] = c.valueLocked(raw)
	}
	return out
}

func (g *Group) assignLocked(value any, patch bool, opts updateOptions, ev *events) error {
	if patch && value == nil {
		return nil
	}
	if !patch {
		if err := checkShape(g, value); err != nil {
			return err
		}
	}
	values, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: %s expects map[string]any, got %T", ErrValueShape, g.nodeName, value)
	}
	childOpts := updateOptions{onlySelf: true, silent: opts.silent}
	for _, name := range g.names {
		sub, present := values[name]
		if !present {
			continue
		}
		c := g.controls[name]
		if err := c.assignLocked(sub, patch, childOpts, ev); err != nil {
			return err
		}
		c.base().updateLocked(childOpts, ev)
	}
	return nil
}

func (g *Group) resetLocked(value any, opts updateOptions, ev *events) {
	values, _ := value.(map[string]any)
	childOpts := updateOptions{onlySelf: true, silent: opts.silent}
	for _, name := range g.names {
		c := g.controls[name]
		c.resetLocked(values[name], childOpts, ev)
		c.base().updateLocked(childOpts, ev)
	}
}

// checkShape verifies, before anything is written, that a SetValue payload
// covers every control of the subtree.
func checkShape(c Control, value any) error {
	switch typed := c.(type) {
	case *Group:
		values, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s expects map[string]any, got %T", ErrValueShape, pathOf(c), value)
		}
		for key := range values {
			if _, known := typed.controls[key]; !known {
				return fmt.Errorf("%w: %s", ErrUnknownControl, joinPath(pathOf(c), key))
			}
		}
		for _, name := range typed.names {
			sub, present := values[name]
			if !present {
				return fmt.Errorf("%w: %s", ErrMissingValue, joinPath(pathOf(c), name))
			}
			if err := checkShape(typed.controls[name], sub); err != nil {
				return err
			}
		}
	case *Array:
		items, ok := toSlice(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a slice, got %T", ErrValueShape, pathOf(c), value)
		}
		if typed.factory == nil && len(items) != len(typed.items) {
			return fmt.Errorf("%w: %s has %d items, got %d", ErrValueShape, pathOf(c), len(typed.items), len(items))
		}
		// entries past the current length are checked against one detached
		// item from the factory, since resizing happens only after the check.
		var spare Control
		for i, item := range items {
			if i < len(typed.items) {
				if err := checkShape(typed.items[i], item); err != nil {
					return err
				}
				continue
			}
			if spare == nil {
				spare = typed.factory()
			}
			if err := checkShape(spare, item); err != nil {
				return fmt.Errorf("%s: %w", joinPath(pathOf(c), strconv.Itoa(i)), err)
			}
		}
	}
	return nil
}

func pathOf(c Control) string {
	var segments []string
	for c != nil && c.base().parent != nil {
		segments = append([]string{c.base().nodeName}, segments...)
		c = c.base().parent
	}
	path := ""
	for _, segment := range segments {
		path = joinPath(path, segment)
	}
	return path
}

func joinPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + "." + name
}
