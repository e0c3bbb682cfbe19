// Package scene layers entity lifecycle, deferred destruction and transform
// composition over the hierarchy.
package scene

import (
	"github.com/l1jgo/scenegraph/internal/core/ecs"
	"github.com/l1jgo/scenegraph/internal/core/event"
	"github.com/l1jgo/scenegraph/internal/hierarchy"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Scene owns one World, its hierarchy and the component stores the frame
// systems operate on. Accessed only from the frame loop goroutine.
type Scene struct {
	name  string
	world *ecs.World
	tree  *hierarchy.Tree
	bus   *event.Bus
	host  ScriptHost
	log   *zap.Logger

	running bool

	names      *ecs.PtrComponentStore[Name]
	transforms *ecs.PtrComponentStore[Transform]
	rects      *ecs.PtrComponentStore[RectTransform]
	canvases   *ecs.PtrComponentStore[Canvas]
	scripts    *ecs.PtrComponentStore[Script]
	disabled   *ecs.PtrComponentStore[Disabled]
	destroy    *ecs.PtrComponentStore[Destroy]
}

// Options configures New.
type Options struct {
	Name        string
	DebugChecks bool
	Host        ScriptHost // may be nil
	Bus         *event.Bus // may be nil
}

func New(opts Options, log *zap.Logger) *Scene {
	w := ecs.NewWorld()
	tree := hierarchy.NewTree(w, log)
	tree.Debug = opts.DebugChecks

	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus()
	}
	reg := w.Registry()
	s := &Scene{
		name:       opts.Name,
		world:      w,
		tree:       tree,
		bus:        bus,
		host:       opts.Host,
		log:        log,
		names:      ecs.Register[Name](reg, NameType),
		transforms: ecs.Register[Transform](reg, TransformType),
		rects:      ecs.Register[RectTransform](reg, RectTransformType),
		canvases:   ecs.Register[Canvas](reg, CanvasType),
		scripts:    ecs.Register[Script](reg, ScriptType),
		disabled:   ecs.Register[Disabled](reg, DisabledType),
		destroy:    ecs.Register[Destroy](reg, DestroyType),
	}
	tree.OnReparent = s.onReparent
	return s
}

func (s *Scene) Name() string              { return s.name }
func (s *Scene) World() *ecs.World         { return s.world }
func (s *Scene) Tree() *hierarchy.Tree     { return s.tree }
func (s *Scene) Bus() *event.Bus           { return s.bus }
func (s *Scene) Log() *zap.Logger          { return s.log }
func (s *Scene) Len() int                  { return s.world.Pool().Len() }
func (s *Scene) Alive(e ecs.EntityID) bool { return s.world.Alive(e) }

func (s *Scene) Names() *ecs.PtrComponentStore[Name]                   { return s.names }
func (s *Scene) Transforms() *ecs.PtrComponentStore[Transform]         { return s.transforms }
func (s *Scene) RectTransforms() *ecs.PtrComponentStore[RectTransform] { return s.rects }
func (s *Scene) Canvases() *ecs.PtrComponentStore[Canvas]              { return s.canvases }
func (s *Scene) Scripts() *ecs.PtrComponentStore[Script]               { return s.scripts }

// CreateEntity creates a named entity with a fresh uuid.
func (s *Scene) CreateEntity(name string) ecs.EntityID {
	e := s.world.CreateEntity()
	s.SetName(e, name)
	return e
}

// CreateEntityWithUUID creates a named entity bound to id, as the loader
// does when reconstructing a saved scene.
func (s *Scene) CreateEntityWithUUID(id ecs.UUID, name string) ecs.EntityID {
	e := s.world.CreateEntityWithUUID(id)
	s.SetName(e, name)
	return e
}

// live reports whether e is alive. Writes through stale handles are dropped.
func (s *Scene) live(e ecs.EntityID, op string) bool {
	if s.world.Alive(e) {
		return true
	}
	s.log.Debug(op+" on dead entity ignored", zap.Stringer("entity", e))
	return false
}

// SetName stores name in NFC form. An empty name removes the component.
func (s *Scene) SetName(e ecs.EntityID, name string) {
	if !s.live(e, "set name") {
		return
	}
	if name == "" {
		s.names.Remove(e)
		return
	}
	s.names.Set(e, &Name{Value: norm.NFC.String(name)})
}

// EntityName returns the stored name of e.
func (s *Scene) EntityName(e ecs.EntityID) string {
	if n, ok := s.names.Get(e); ok {
		return n.Value
	}
	return ""
}

// FindByName returns the first entity, in storage order, whose name matches
// name under Unicode case folding.
func (s *Scene) FindByName(name string) (ecs.EntityID, bool) {
	fold := cases.Fold()
	want := fold.String(norm.NFC.String(name))
	found := ecs.Null
	s.names.Each(func(e ecs.EntityID, n *Name) {
		if found == ecs.Null && fold.String(n.Value) == want {
			found = e
		}
	})
	return found, found != ecs.Null
}

// SetParent links e under parent at the end of its child list.
func (s *Scene) SetParent(e, parent ecs.EntityID) error {
	return s.tree.SetParent(e, parent)
}

// onReparent re-resolves canvas owners below e and announces the move.
func (s *Scene) onReparent(e ecs.EntityID) {
	for _, c := range s.tree.Subtree(e) {
		if rt, ok := s.rects.Get(c); ok {
			rt.Canvas = s.findCanvas(c)
		}
	}
	if s.destroy.Has(e) {
		return
	}
	event.Emit(s.bus, event.EntityReparented{Entity: e, Parent: s.tree.Parent(e)})
}

// findCanvas walks the ancestors of e for the nearest Canvas.
func (s *Scene) findCanvas(e ecs.EntityID) ecs.EntityID {
	for p := s.tree.Parent(e); p != ecs.Null; p = s.tree.Parent(p) {
		if s.canvases.Has(p) {
			return p
		}
	}
	return ecs.Null
}
