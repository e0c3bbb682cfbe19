package hierarchy

import (
	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"go.uber.org/zap"
)

// lineage caches the root-to-entity path of every linked entity for one
// sort pass. path[len-1] is the entity itself; set holds the ancestors.
type lineage struct {
	path []ecs.EntityID
	set  map[ecs.EntityID]struct{}
}

// Sort reorders the relationship store so that iterating it visits every
// ancestor before its descendants, and siblings in index order. Run once per
// frame before transform composition.
func (t *Tree) Sort() {
	if t.rels.Len() < 2 {
		return
	}
	lines := make(map[ecs.EntityID]*lineage, t.rels.Len())
	t.rels.Each(func(e ecs.EntityID, _ *Relationship) {
		chain := t.Ancestors(e)
		l := &lineage{
			path: make([]ecs.EntityID, len(chain)+1),
			set:  make(map[ecs.EntityID]struct{}, len(chain)),
		}
		for i, a := range chain {
			l.path[len(chain)-1-i] = a
			l.set[a] = struct{}{}
		}
		l.path[len(chain)] = e
		lines[e] = l
	})

	ambiguous := 0
	t.rels.Sort(func(a, b ecs.EntityID) bool {
		less, ok := t.before(a, b, lines[a], lines[b])
		if !ok {
			ambiguous++
		}
		return less
	})
	if ambiguous > 0 {
		t.log.Warn("hierarchy sort fell back to handle order; sibling indices are inconsistent",
			zap.Int("comparisons", ambiguous))
	}
}

// before reports whether l sorts before r. ok is false when the sibling
// indices could not disambiguate two distinct entities.
func (t *Tree) before(l, r ecs.EntityID, ll, rl *lineage) (less, ok bool) {
	if l == r {
		return false, true
	}
	if _, isAnc := ll.set[r]; isAnc {
		return false, true
	}
	if _, isAnc := rl.set[l]; isAnc {
		return true, true
	}

	// Neither contains the other, so the paths diverge before either ends.
	n := min(len(ll.path), len(rl.path))
	for i := 0; i < n; i++ {
		a, b := ll.path[i], rl.path[i]
		if a == b {
			continue
		}
		if i == 0 {
			// Distinct roots.
			return a < b, true
		}
		ia, ib := t.rel(a).Index, t.rel(b).Index
		if ia != ib {
			return ia < ib, true
		}
		return a < b, false
	}
	return l < r, false
}
