package ecs

// World is the top-level ECS container. It owns the entity pool, the component
// registry and the uuid handle table. Deferred destruction is layered on top
// by the scene through a Destroy tag store.
type World struct {
	pool     *EntityPool
	registry *Registry
	handles  *HandleTable
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
		handles:  NewHandleTable(),
	}
}

func (w *World) Pool() *EntityPool     { return w.pool }
func (w *World) Registry() *Registry   { return w.registry }
func (w *World) Handles() *HandleTable { return w.handles }

// CreateEntity allocates a handle bound to a fresh random uuid.
func (w *World) CreateEntity() EntityID {
	for {
		u := NewUUID()
		if _, taken := w.handles.Lookup(u); !taken {
			return w.CreateEntityWithUUID(u)
		}
	}
}

// CreateEntityWithUUID allocates a handle bound to u. u must not be in use.
func (w *World) CreateEntityWithUUID(u UUID) EntityID {
	id := w.pool.Create()
	w.handles.Insert(u, id)
	return id
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// UUID returns the external identifier of id.
func (w *World) UUID(id EntityID) (UUID, bool) {
	return w.handles.UUID(id)
}

// Lookup finds the live handle bound to u.
func (w *World) Lookup(u UUID) (EntityID, bool) {
	return w.handles.Lookup(u)
}

// Unmap drops the uuid mapping of id without freeing its storage.
func (w *World) Unmap(id EntityID) {
	w.handles.Remove(id)
}

// DestroyEntity clears every component of id, unmaps it and frees its handle.
func (w *World) DestroyEntity(id EntityID) {
	if !w.pool.Alive(id) {
		return
	}
	w.registry.RemoveAll(id)
	w.handles.Remove(id)
	w.pool.Destroy(id)
}

// DestroyBatch removes all given entities with one compaction per store.
func (w *World) DestroyBatch(ids []EntityID) {
	if len(ids) == 0 {
		return
	}
	w.registry.RemoveBatch(ids)
	for _, id := range ids {
		w.handles.Remove(id)
		w.pool.Destroy(id)
	}
}
