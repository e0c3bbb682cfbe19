// Package hierarchy maintains the parent/child structure of scene entities as
// an intrusive doubly-linked sibling list stored in a Relationship component.
//
// A Tree is single-writer: the frame owner mutates it, everything else reads.
// Operations on entities without a Relationship behave as if the entity had
// no parent and no children.
package hierarchy

import (
	"errors"
	"fmt"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"go.uber.org/zap"
)

// AtEnd inserts a child after the current last child.
const AtEnd = -1

// Component type names used in the registry.
const (
	RelationshipType = "relationship"
	DirtyType        = "dirty"
)

var (
	// ErrCycle is returned when a reparent would make an entity its own ancestor.
	ErrCycle = errors.New("hierarchy: parent is the entity itself or one of its descendants")
	// ErrNotAlive is returned when a handle is stale or null.
	ErrNotAlive = errors.New("hierarchy: entity is not alive")
)

// Relationship is the per-entity tree linkage.
type Relationship struct {
	Parent   ecs.EntityID
	First    ecs.EntityID
	Last     ecs.EntityID
	Prev     ecs.EntityID
	Next     ecs.EntityID
	Index    int // position among siblings, meaningless for roots
	Children int
}

// Dirty marks an entity whose derived spatial data is stale.
type Dirty struct{}

// Tree is the relationship structure of one World.
type Tree struct {
	world *ecs.World
	rels  *ecs.PtrComponentStore[Relationship]
	dirty *ecs.PtrComponentStore[Dirty]
	log   *zap.Logger

	// Debug re-validates every touched sibling list after each mutation and
	// panics on violation.
	Debug bool

	// OnReparent runs after an entity has been linked under a new parent (or
	// detached to root). The scene uses it to re-resolve UI canvas owners.
	OnReparent func(e ecs.EntityID)
}

// NewTree registers the Relationship and Dirty stores on w.
func NewTree(w *ecs.World, log *zap.Logger) *Tree {
	return &Tree{
		world: w,
		rels:  ecs.Register[Relationship](w.Registry(), RelationshipType),
		dirty: ecs.Register[Dirty](w.Registry(), DirtyType),
		log:   log,
	}
}

func (t *Tree) World() *ecs.World { return t.world }

// Relationships exposes the relationship store. After Sort, iterating it
// visits every ancestor before its descendants.
func (t *Tree) Relationships() *ecs.PtrComponentStore[Relationship] { return t.rels }

// DirtyStore exposes the dirty tag store.
func (t *Tree) DirtyStore() *ecs.PtrComponentStore[Dirty] { return t.dirty }

// Get returns the relationship of e, if any.
func (t *Tree) Get(e ecs.EntityID) (*Relationship, bool) {
	return t.rels.Get(e)
}

func (t *Tree) rel(e ecs.EntityID) *Relationship {
	r, ok := t.rels.Get(e)
	if !ok {
		panic(fmt.Sprintf("hierarchy: %s is linked but has no relationship", e))
	}
	return r
}

// SetParent appends e as the last child of parent. A null parent detaches e
// to the root.
func (t *Tree) SetParent(e, parent ecs.EntityID) error {
	return t.SetParentAt(e, parent, AtEnd)
}

// Detach moves e to the root.
func (t *Tree) Detach(e ecs.EntityID) {
	_ = t.SetParentAt(e, ecs.Null, AtEnd)
}

// SetParentAt links e under parent at the given sibling index. Indices out
// of [0, children] (including AtEnd) append. The call is a no-op if e is
// already at that position.
func (t *Tree) SetParentAt(e, parent ecs.EntityID, index int) error {
	if !t.world.Alive(e) {
		return ErrNotAlive
	}
	if parent != ecs.Null {
		if !t.world.Alive(parent) {
			return ErrNotAlive
		}
		if parent == e || t.IsAncestor(e, parent) {
			t.log.Warn("reparent rejected: would create a cycle",
				zap.Stringer("entity", e), zap.Stringer("parent", parent))
			return ErrCycle
		}
	}

	rel, linked := t.rels.Get(e)
	if !linked && parent == ecs.Null {
		return nil
	}
	if linked && rel.Parent == parent {
		if parent == ecs.Null {
			return nil
		}
		target := index
		if n := t.rel(parent).Children; target < 0 || target > n-1 {
			target = n - 1
		}
		if target == rel.Index {
			return nil
		}
	}

	if linked {
		t.unlink(e, rel)
	} else if parent != ecs.Null {
		rel = t.rels.Add(e)
	}

	t.MarkDirty(e)

	if parent != ecs.Null {
		t.insert(e, rel, parent, index)
	}

	if t.Debug {
		t.mustValidate(parent)
	}
	if t.OnReparent != nil {
		t.OnReparent(e)
	}
	return nil
}

// unlink splices e out of its parent's child list and resets its sibling
// linkage. Children of e are untouched.
func (t *Tree) unlink(e ecs.EntityID, rel *Relationship) {
	p := rel.Parent
	if p == ecs.Null {
		return
	}
	prel := t.rel(p)
	switch {
	case prel.First == e && prel.Last == e:
		prel.First, prel.Last = ecs.Null, ecs.Null
	case prel.First == e:
		t.rel(rel.Next).Prev = ecs.Null
		prel.First = rel.Next
	case prel.Last == e:
		t.rel(rel.Prev).Next = ecs.Null
		prel.Last = rel.Prev
	default:
		t.rel(rel.Prev).Next = rel.Next
		t.rel(rel.Next).Prev = rel.Prev
	}
	prel.Children--

	next, idx := rel.Next, rel.Index
	rel.Parent, rel.Prev, rel.Next, rel.Index = ecs.Null, ecs.Null, ecs.Null, 0

	if prel.Children == 0 && prel.Parent == ecs.Null {
		// p no longer participates in the tree.
		t.rels.Remove(p)
	} else {
		t.fixIndices(next, idx)
	}

	if t.Debug && t.rels.Has(p) {
		t.mustValidate(p)
	}
}

// insert links a detached e into parent's child list at index.
func (t *Tree) insert(e ecs.EntityID, rel *Relationship, parent ecs.EntityID, index int) {
	prel := t.rels.Add(parent)
	n := prel.Children
	if index < 0 || index > n {
		index = n
	}
	rel.Parent = parent

	switch {
	case n == 0:
		prel.First, prel.Last = e, e
		rel.Index = 0
	case index == 0:
		old := prel.First
		t.rel(old).Prev = e
		rel.Next = old
		prel.First = e
	case index == n:
		last := prel.Last
		t.rel(last).Next = e
		rel.Prev = last
		prel.Last = e
		rel.Index = n
	default:
		after := t.childAt(prel, index)
		arel := t.rel(after)
		before := arel.Prev
		t.rel(before).Next = e
		arel.Prev = e
		rel.Prev, rel.Next = before, after
	}
	prel.Children++

	if n > 0 && index < n {
		t.fixIndices(e, index)
	}
}

// fixIndices renumbers siblings from start onward, beginning at idx.
func (t *Tree) fixIndices(start ecs.EntityID, idx int) {
	for c := start; c != ecs.Null; idx++ {
		r := t.rel(c)
		r.Index = idx
		c = r.Next
	}
}

func (t *Tree) childAt(prel *Relationship, index int) ecs.EntityID {
	c := prel.First
	for i := 0; i < index && c != ecs.Null; i++ {
		c = t.rel(c).Next
	}
	return c
}

// link joins a and b as adjacent siblings; either side may be null.
func (t *Tree) link(a, b ecs.EntityID) {
	if a != ecs.Null {
		t.rel(a).Next = b
	}
	if b != ecs.Null {
		t.rel(b).Prev = a
	}
}

// SwapSiblings exchanges the positions of a and b. Entities that do not share
// a parent are left alone.
func (t *Tree) SwapSiblings(a, b ecs.EntityID) {
	if a == b {
		return
	}
	ra, okA := t.rels.Get(a)
	rb, okB := t.rels.Get(b)
	if !okA || !okB || ra.Parent == ecs.Null || ra.Parent != rb.Parent {
		t.log.Debug("swap ignored: not siblings", zap.Stringer("a", a), zap.Stringer("b", b))
		return
	}
	p := ra.Parent
	prel := t.rel(p)

	switch {
	case ra.Next == b:
		prev, next := ra.Prev, rb.Next
		t.link(prev, b)
		t.link(b, a)
		t.link(a, next)
	case rb.Next == a:
		prev, next := rb.Prev, ra.Next
		t.link(prev, a)
		t.link(a, b)
		t.link(b, next)
	default:
		aPrev, aNext := ra.Prev, ra.Next
		bPrev, bNext := rb.Prev, rb.Next
		t.link(aPrev, b)
		t.link(b, aNext)
		t.link(bPrev, a)
		t.link(a, bNext)
	}
	ra.Index, rb.Index = rb.Index, ra.Index

	if prel.First == a {
		prel.First = b
	} else if prel.First == b {
		prel.First = a
	}
	if prel.Last == a {
		prel.Last = b
	} else if prel.Last == b {
		prel.Last = a
	}

	t.MarkDirty(a)
	t.MarkDirty(b)
	if t.Debug {
		t.mustValidate(p)
	}
}

// MoveToFirst makes e the first child of its parent.
func (t *Tree) MoveToFirst(e ecs.EntityID) {
	if r, ok := t.rels.Get(e); ok && r.Parent != ecs.Null && r.Index != 0 {
		_ = t.SetParentAt(e, r.Parent, 0)
	}
}

// MoveToLast makes e the last child of its parent.
func (t *Tree) MoveToLast(e ecs.EntityID) {
	if r, ok := t.rels.Get(e); ok && r.Parent != ecs.Null && r.Next != ecs.Null {
		_ = t.SetParentAt(e, r.Parent, AtEnd)
	}
}

// MoveToNext swaps e with its next sibling.
func (t *Tree) MoveToNext(e ecs.EntityID) {
	if r, ok := t.rels.Get(e); ok && r.Parent != ecs.Null && r.Next != ecs.Null {
		t.SwapSiblings(e, r.Next)
	}
}

// MoveToPrevious swaps e with its previous sibling.
func (t *Tree) MoveToPrevious(e ecs.EntityID) {
	if r, ok := t.rels.Get(e); ok && r.Parent != ecs.Null && r.Prev != ecs.Null {
		t.SwapSiblings(e, r.Prev)
	}
}

// DetachChildren moves every child of e to the root.
func (t *Tree) DetachChildren(e ecs.EntityID) {
	for {
		r, ok := t.rels.Get(e)
		if !ok || r.Children == 0 {
			return
		}
		t.Detach(r.First)
	}
}
