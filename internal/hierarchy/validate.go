package hierarchy

import (
	"fmt"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
)

// ValidateChildren checks the sibling list of p: children count matches the
// walk, prev/next pointers agree, every child points back at p, and indices
// run 0..n-1.
func (t *Tree) ValidateChildren(p ecs.EntityID) error {
	prel, ok := t.rels.Get(p)
	if !ok {
		return nil
	}
	if (prel.Children == 0) != (prel.First == ecs.Null && prel.Last == ecs.Null) {
		return fmt.Errorf("%s: children=%d but first=%s last=%s", p, prel.Children, prel.First, prel.Last)
	}
	prev := ecs.Null
	n := 0
	for c := prel.First; c != ecs.Null; {
		r, ok := t.rels.Get(c)
		if !ok {
			return fmt.Errorf("%s: child %s has no relationship", p, c)
		}
		if r.Parent != p {
			return fmt.Errorf("%s: child %s points at parent %s", p, c, r.Parent)
		}
		if r.Prev != prev {
			return fmt.Errorf("%s: child %s prev=%s, want %s", p, c, r.Prev, prev)
		}
		if r.Index != n {
			return fmt.Errorf("%s: child %s index=%d, want %d", p, c, r.Index, n)
		}
		n++
		if n > prel.Children {
			return fmt.Errorf("%s: walk exceeds children=%d", p, prel.Children)
		}
		prev = c
		c = r.Next
	}
	if n != prel.Children {
		return fmt.Errorf("%s: walk visited %d, children=%d", p, n, prel.Children)
	}
	if prel.Last != prev {
		return fmt.Errorf("%s: last=%s, walk ended at %s", p, prel.Last, prev)
	}
	return nil
}

// Validate checks every sibling list and that no parent chain loops.
func (t *Tree) Validate() error {
	var err error
	limit := t.rels.Len()
	t.rels.Each(func(e ecs.EntityID, r *Relationship) {
		if err != nil {
			return
		}
		if err = t.ValidateChildren(e); err != nil {
			return
		}
		depth := 0
		for p := r.Parent; p != ecs.Null; p = t.Parent(p) {
			if p == e || depth > limit {
				err = fmt.Errorf("%s: parent chain contains a cycle", e)
				return
			}
			depth++
		}
	})
	return err
}

func (t *Tree) mustValidate(p ecs.EntityID) {
	if p == ecs.Null {
		return
	}
	if err := t.ValidateChildren(p); err != nil {
		panic("hierarchy: invariant violated: " + err.Error())
	}
}
