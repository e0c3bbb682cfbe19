package system

import (
	"time"

	coresys "github.com/l1jgo/scenegraph/internal/core/system"
	"github.com/l1jgo/scenegraph/internal/scene"
)

// ScriptSystem advances every enabled script instance. Phase 1 (Update).
type ScriptSystem struct {
	scene *scene.Scene
}

func NewScriptSystem(s *scene.Scene) *ScriptSystem {
	return &ScriptSystem{scene: s}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScriptSystem) Update(dt time.Duration) {
	s.scene.UpdateScripts(dt)
}
