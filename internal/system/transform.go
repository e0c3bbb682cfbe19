package system

import (
	"time"

	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/scene"
)

// TransformSystem composes world transforms of dirty entities and clears
// their Dirty tags. Phase 3 (Transform).
type TransformSystem struct {
	scene *scene.Scene
	// Last holds the number of entities recomputed in the latest frame.
	Last int
}

func NewTransformSystem(s *scene.Scene) *TransformSystem {
	return &TransformSystem{scene: s}
}

func (s *TransformSystem) Phase() coresys.Phase { return coresys.PhaseTransform }

func (s *TransformSystem) Update(_ time.Duration) {
	s.Last = s.scene.UpdateTransforms()
}
