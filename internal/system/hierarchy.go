package system

import (
	"time"

	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/hierarchy"
)

// HierarchySystem runs the topological ordering pass so later phases can
// visit parents before children in one linear walk. Phase 2 (Hierarchy).
type HierarchySystem struct {
	tree *hierarchy.Tree
}

func NewHierarchySystem(tree *hierarchy.Tree) *HierarchySystem {
	return &HierarchySystem{tree: tree}
}

func (s *HierarchySystem) Phase() coresys.Phase { return coresys.PhaseHierarchy }

func (s *HierarchySystem) Update(_ time.Duration) {
	s.tree.Sort()
}
