package scene

import (
	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/core/event"
	"go.uber.org/zap"
)

// Destroy queues e for removal at the next sweep. With includeChildren the
// whole subtree is queued. Queued entities stay fully usable until then.
func (s *Scene) Destroy(e ecs.EntityID, includeChildren bool) {
	if !s.live(e, "destroy") {
		return
	}
	if !includeChildren {
		s.destroy.Set(e, &Destroy{})
		return
	}
	for _, c := range s.tree.Subtree(e) {
		if !s.destroy.Has(c) {
			s.destroy.Set(c, &Destroy{})
		}
	}
}

// Queued reports whether e is marked for the next sweep.
func (s *Scene) Queued(e ecs.EntityID) bool {
	return s.destroy.Has(e)
}

// QueuedCount returns the number of entities waiting for the sweep.
func (s *Scene) QueuedCount() int {
	return s.destroy.Len()
}

// DestroyImmediate removes e (and its subtree with includeChildren) now.
// Without includeChildren the children of e are detached to the root first.
func (s *Scene) DestroyImmediate(e ecs.EntityID, includeChildren bool) {
	if !s.live(e, "destroy") {
		return
	}
	s.tree.Detach(e)

	doomed := []ecs.EntityID{e}
	if includeChildren {
		doomed = s.tree.Subtree(e)
	} else {
		s.tree.DetachChildren(e)
	}
	for _, d := range doomed {
		id := s.retire(d)
		s.world.DestroyEntity(d)
		event.Emit(s.bus, event.EntityDestroyed{Entity: d, UUID: id})
	}
}

// DestroyQueued sweeps every Destroy-marked entity: lifecycle callbacks and
// uuid unmapping first, then relationship edges to survivors are cut, then
// all marked entities leave storage in one batch. Returns the number removed.
func (s *Scene) DestroyQueued() int {
	if s.destroy.Len() == 0 {
		return 0
	}
	doomed := s.destroy.Entities()
	set := make(map[ecs.EntityID]struct{}, len(doomed))
	for _, d := range doomed {
		set[d] = struct{}{}
	}

	ids := make([]ecs.UUID, len(doomed))
	for i, d := range doomed {
		ids[i] = s.retire(d)
	}

	for _, d := range doomed {
		if p := s.tree.Parent(d); p != ecs.Null {
			if _, gone := set[p]; !gone {
				s.tree.Detach(d)
			}
		}
		for _, c := range s.tree.Children(d) {
			if _, gone := set[c]; !gone {
				s.tree.Detach(c)
			}
		}
	}

	s.world.DestroyBatch(doomed)
	for i, d := range doomed {
		event.Emit(s.bus, event.EntityDestroyed{Entity: d, UUID: ids[i]})
	}
	s.log.Debug("destroy sweep", zap.String("scene", s.name), zap.Int("removed", len(doomed)))
	return len(doomed)
}

// retire fires lifecycle callbacks for e (disable when running and enabled,
// then unload, then destroy), releases its script instance and unmaps its
// uuid. Storage is left untouched.
func (s *Scene) retire(e ecs.EntityID) ecs.UUID {
	if sc, ok := s.scripts.Get(e); ok && s.host != nil {
		if s.running && !s.disabled.Has(e) {
			s.host.Invoke(sc.Instance, OnDisable)
		}
		s.host.Invoke(sc.Instance, OnUnload)
		s.host.Invoke(sc.Instance, OnDestroy)
		s.host.Release(sc.Instance)
	}
	id, _ := s.world.UUID(e)
	s.world.Unmap(e)
	return id
}
