package scripting

import (
	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/core/event"
	"github.com/l1jgo/scenegraph/internal/scene"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Bind exposes a `scene` table to scripts. Entities are addressed by uuid
// hex strings. Structural changes available to scripts are limited to
// reparenting and deferred destruction, which are safe while the scene is
// iterating script instances.
//
//	scene.find(name)                -> uuid | nil
//	scene.name(uuid)                -> string
//	scene.parent(uuid)              -> uuid | nil
//	scene.children(uuid)            -> { uuid... }
//	scene.set_parent(uuid, parent?) -> bool
//	scene.set_position(uuid, x, y)
//	scene.position(uuid)            -> x, y (world)
//	scene.destroy(uuid, children?)
//
// Bind also forwards scene events one frame late: a moved entity's instance
// gets on_reparent(self, parent_uuid | nil), and a global
// on_entity_destroyed(uuid) function, when defined, sees every removal.
func (e *Engine) Bind(s *scene.Scene) {
	api := e.vm.NewTable()
	fns := map[string]lua.LGFunction{
		"find": func(L *lua.LState) int {
			ent, ok := s.FindByName(L.CheckString(1))
			return pushEntity(L, s, ent, ok)
		},
		"name": func(L *lua.LState) int {
			ent, ok := checkEntity(L, s, 1)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(s.EntityName(ent)))
			return 1
		},
		"parent": func(L *lua.LState) int {
			ent, ok := checkEntity(L, s, 1)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			p := s.Tree().Parent(ent)
			return pushEntity(L, s, p, p != ecs.Null)
		},
		"children": func(L *lua.LState) int {
			out := L.NewTable()
			if ent, ok := checkEntity(L, s, 1); ok {
				for _, c := range s.Tree().Children(ent) {
					if id, ok := s.World().UUID(c); ok {
						out.Append(lua.LString(id.String()))
					}
				}
			}
			L.Push(out)
			return 1
		},
		"set_parent": func(L *lua.LState) int {
			ent, ok := checkEntity(L, s, 1)
			if !ok {
				L.Push(lua.LFalse)
				return 1
			}
			parent := ecs.Null
			if L.Get(2) != lua.LNil {
				if parent, ok = checkEntity(L, s, 2); !ok {
					L.Push(lua.LFalse)
					return 1
				}
			}
			L.Push(lua.LBool(s.SetParent(ent, parent) == nil))
			return 1
		},
		"set_position": func(L *lua.LState) int {
			if ent, ok := checkEntity(L, s, 1); ok {
				s.SetPosition(ent, float64(L.CheckNumber(2)), float64(L.CheckNumber(3)))
			}
			return 0
		},
		"position": func(L *lua.LState) int {
			ent, ok := checkEntity(L, s, 1)
			if !ok {
				return 0
			}
			x, y, ok := s.WorldPosition(ent)
			if !ok {
				return 0
			}
			L.Push(lua.LNumber(x))
			L.Push(lua.LNumber(y))
			return 2
		},
		"destroy": func(L *lua.LState) int {
			if ent, ok := checkEntity(L, s, 1); ok {
				s.Destroy(ent, L.OptBool(2, false))
			}
			return 0
		},
	}
	for name, fn := range fns {
		api.RawSetString(name, e.vm.NewFunction(fn))
	}
	e.vm.SetGlobal("scene", api)
	e.watch(s)
}

func (e *Engine) watch(s *scene.Scene) {
	event.Subscribe(s.Bus(), func(ev event.EntityReparented) {
		sc, ok := s.Scripts().Get(ev.Entity)
		if !ok {
			return
		}
		var parent lua.LValue = lua.LNil
		if id, ok := s.World().UUID(ev.Parent); ok {
			parent = lua.LString(id.String())
		}
		e.call(sc.Instance, "on_reparent", parent)
	})
	event.Subscribe(s.Bus(), func(ev event.EntityDestroyed) {
		fn, ok := e.vm.GetGlobal("on_entity_destroyed").(*lua.LFunction)
		if !ok {
			return
		}
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LString(ev.UUID.String())); err != nil {
			e.log.Error("lua hook error",
				zap.String("hook", "on_entity_destroyed"),
				zap.Stringer("entity", ev.Entity),
				zap.Error(err))
		}
	})
}

func checkEntity(L *lua.LState, s *scene.Scene, n int) (ecs.EntityID, bool) {
	id, err := ecs.ParseUUID(L.CheckString(n))
	if err != nil {
		return ecs.Null, false
	}
	return s.World().Lookup(id)
}

func pushEntity(L *lua.LState, s *scene.Scene, ent ecs.EntityID, ok bool) int {
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	id, ok := s.World().UUID(ent)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id.String()))
	return 1
}
