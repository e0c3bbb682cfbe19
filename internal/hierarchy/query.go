package hierarchy

import "github.com/l1jgo/scenegraph/internal/core/ecs"

// Parent returns the parent of e, or Null for roots.
func (t *Tree) Parent(e ecs.EntityID) ecs.EntityID {
	if r, ok := t.rels.Get(e); ok {
		return r.Parent
	}
	return ecs.Null
}

// ChildCount returns the number of direct children of e.
func (t *Tree) ChildCount(e ecs.EntityID) int {
	if r, ok := t.rels.Get(e); ok {
		return r.Children
	}
	return 0
}

// GetChild returns the index-th child of e, or Null when out of range.
func (t *Tree) GetChild(e ecs.EntityID, index int) ecs.EntityID {
	r, ok := t.rels.Get(e)
	if !ok || index < 0 || index >= r.Children {
		return ecs.Null
	}
	return t.childAt(r, index)
}

// Children returns the direct children of e in sibling order.
func (t *Tree) Children(e ecs.EntityID) []ecs.EntityID {
	r, ok := t.rels.Get(e)
	if !ok || r.Children == 0 {
		return nil
	}
	out := make([]ecs.EntityID, 0, r.Children)
	for c := r.First; c != ecs.Null; c = t.rel(c).Next {
		out = append(out, c)
	}
	return out
}

// Descendants returns every entity below e in depth-first pre-order,
// excluding e itself.
func (t *Tree) Descendants(e ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	t.walk(e, func(c ecs.EntityID) {
		if c != e {
			out = append(out, c)
		}
	})
	return out
}

// Subtree returns e followed by all its descendants in depth-first pre-order.
func (t *Tree) Subtree(e ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	t.walk(e, func(c ecs.EntityID) { out = append(out, c) })
	return out
}

// walk visits root and its descendants in pre-order with an explicit stack.
func (t *Tree) walk(root ecs.EntityID, fn func(ecs.EntityID)) {
	stack := []ecs.EntityID{root}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(e)
		r, ok := t.rels.Get(e)
		if !ok || r.Children == 0 {
			continue
		}
		// Push in reverse so the first child is visited first.
		for c := r.Last; c != ecs.Null; c = t.rel(c).Prev {
			stack = append(stack, c)
		}
	}
}

// Ancestors returns the ancestors of e, nearest first.
func (t *Tree) Ancestors(e ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	for p := t.Parent(e); p != ecs.Null; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// FamilyLine returns e followed by its ancestors, nearest first.
func (t *Tree) FamilyLine(e ecs.EntityID) []ecs.EntityID {
	return append([]ecs.EntityID{e}, t.Ancestors(e)...)
}

// IsAncestor reports whether ancestor appears in the parent chain of e.
func (t *Tree) IsAncestor(ancestor, e ecs.EntityID) bool {
	if ancestor == ecs.Null {
		return false
	}
	for p := t.Parent(e); p != ecs.Null; p = t.Parent(p) {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Root returns the topmost ancestor of e, or e itself.
func (t *Tree) Root(e ecs.EntityID) ecs.EntityID {
	for p := t.Parent(e); p != ecs.Null; p = t.Parent(p) {
		e = p
	}
	return e
}
