package hierarchy

import (
	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"go.uber.org/zap"
)

// MarkDirty tags e and its whole subtree as stale. Already-dirty descendants
// are walked again; a new mark may come from a different ancestor. Stale
// handles are ignored.
func (t *Tree) MarkDirty(e ecs.EntityID) {
	if !t.world.Alive(e) {
		t.log.Debug("mark dirty on dead entity ignored", zap.Stringer("entity", e))
		return
	}
	t.walk(e, func(c ecs.EntityID) {
		if !t.dirty.Has(c) {
			t.dirty.Set(c, &Dirty{})
		}
	})
}

func (t *Tree) IsDirty(e ecs.EntityID) bool {
	return t.dirty.Has(e)
}

// DirtyCount returns the number of entities carrying the Dirty tag.
func (t *Tree) DirtyCount() int {
	return t.dirty.Len()
}

// ClearDirty removes every Dirty tag in one batch, once derived data has
// been recomputed for the frame.
func (t *Tree) ClearDirty() {
	t.dirty.Clear()
}
