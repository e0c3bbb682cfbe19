package scene

import (
	"fmt"
	"time"

	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"go.uber.org/zap"
)

// ScriptRef identifies a script instance owned by a ScriptHost.
type ScriptRef uint32

// Lifecycle names the script callbacks fired by the scene.
type Lifecycle string

const (
	OnEnable  Lifecycle = "on_enable"
	OnDisable Lifecycle = "on_disable"
	OnUnload  Lifecycle = "on_unload"
	OnDestroy Lifecycle = "on_destroy"
)

// ScriptHost runs script instances on behalf of the scene. The scene decides
// when callbacks fire; the host decides what they do.
type ScriptHost interface {
	Instantiate(e ecs.EntityID, id ecs.UUID, class string) (ScriptRef, error)
	Invoke(ref ScriptRef, ev Lifecycle)
	Update(ref ScriptRef, dt time.Duration)
	Release(ref ScriptRef)
}

// AttachScript instantiates class for e. If the scene is running and e is
// enabled the instance receives on_enable immediately.
func (s *Scene) AttachScript(e ecs.EntityID, class string) error {
	if s.host == nil {
		return fmt.Errorf("attach script %q: no script host", class)
	}
	if !s.world.Alive(e) {
		return fmt.Errorf("attach script %q: entity %s is not alive", class, e)
	}
	id, _ := s.world.UUID(e)
	ref, err := s.host.Instantiate(e, id, class)
	if err != nil {
		return fmt.Errorf("attach script %q: %w", class, err)
	}
	if old, ok := s.scripts.Get(e); ok {
		s.host.Release(old.Instance)
	}
	s.scripts.Set(e, &Script{Class: class, Instance: ref})
	if s.running && !s.disabled.Has(e) {
		s.host.Invoke(ref, OnEnable)
	}
	return nil
}

// SetEnabled toggles the Disabled tag, firing on_enable/on_disable while the
// scene is running.
func (s *Scene) SetEnabled(e ecs.EntityID, enabled bool) {
	if !s.live(e, "set enabled") {
		return
	}
	if enabled == !s.disabled.Has(e) {
		return
	}
	if enabled {
		s.disabled.Remove(e)
	} else {
		s.disabled.Set(e, &Disabled{})
	}
	sc, ok := s.scripts.Get(e)
	if !ok || !s.running || s.host == nil {
		return
	}
	if enabled {
		s.host.Invoke(sc.Instance, OnEnable)
	} else {
		s.host.Invoke(sc.Instance, OnDisable)
	}
}

func (s *Scene) Enabled(e ecs.EntityID) bool {
	return !s.disabled.Has(e)
}

// Start marks the scene running and enables every enabled script.
func (s *Scene) Start() {
	if s.running {
		return
	}
	s.running = true
	s.eachEnabledScript(func(sc *Script) { s.host.Invoke(sc.Instance, OnEnable) })
	s.log.Info("scene started", zap.String("scene", s.name), zap.Int("entities", s.world.Pool().Len()))
}

// Stop disables every enabled script and marks the scene stopped.
func (s *Scene) Stop() {
	if !s.running {
		return
	}
	s.eachEnabledScript(func(sc *Script) { s.host.Invoke(sc.Instance, OnDisable) })
	s.running = false
	s.log.Info("scene stopped", zap.String("scene", s.name))
}

func (s *Scene) Running() bool { return s.running }

// UpdateScripts advances every enabled script instance by dt.
func (s *Scene) UpdateScripts(dt time.Duration) {
	if !s.running {
		return
	}
	s.eachEnabledScript(func(sc *Script) { s.host.Update(sc.Instance, dt) })
}

func (s *Scene) eachEnabledScript(fn func(*Script)) {
	if s.host == nil {
		return
	}
	// Scripts may destroy entities; only tag writes happen until the sweep.
	ecs.EachExcept(s.scripts, func(_ ecs.EntityID, sc *Script) { fn(sc) }, s.disabled)
}
