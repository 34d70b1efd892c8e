package form

// Walk calls fn for c and every descendant, depth first, in child order.
// Paths are dotted and relative to c, which itself has the empty path.
// Returning false from fn skips the descendants of that control.
func Walk(c Control, fn func(path string, c Control) bool) {
	if c == nil {
		return
	}
	var kids []Entry
	c.base().do(func(*events) {
		kids = entriesLocked(c)
	})
	if !fn("", c) {
		return
	}
	for _, kid := range kids {
		Walk(kid.Control, func(path string, sub Control) bool {
			return fn(joinPath(kid.Name, path), sub)
		})
	}
}

func entriesLocked(c Control) []Entry {
	kids := c.children()
	out := make([]Entry, len(kids))
	for i, kid := range kids {
		out[i] = Entry{Name: kid.base().nodeName, Control: kid}
	}
	return out
}
