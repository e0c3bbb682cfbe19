package event

import "github.com/l1jgo/scenegraph/internal/core/ecs"

// EntityReparented is emitted after an entity has been linked under a new
// parent or detached to the root (Parent == ecs.Null).
type EntityReparented struct {
	Entity ecs.EntityID
	Parent ecs.EntityID
}

// EntityDestroyed is emitted once per entity removed from storage, by either
// the sweep or immediate destruction. The handle is already stale.
type EntityDestroyed struct {
	Entity ecs.EntityID
	UUID   ecs.UUID
}
