package ecs

import "fmt"

// Registry tracks all component stores and supports bulk cleanup on entity
// destroy. Stores are also indexed by component type name so the
// serialization layer can test presence without knowing the Go type.
type Registry struct {
	stores []Removable
	byName map[string]Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 16),
		byName: make(map[string]Removable, 16),
	}
}

// Register adds a component store to the registry under a type name.
// Registering the same name twice is a programming error.
func (r *Registry) Register(name string, store Removable) {
	if _, dup := r.byName[name]; dup {
		panic(fmt.Sprintf("ecs: component store %q registered twice", name))
	}
	r.stores = append(r.stores, store)
	r.byName[name] = store
}

// Lookup returns the store registered under name.
func (r *Registry) Lookup(name string) (Removable, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, s := range r.stores {
		s.Remove(id)
	}
}

// RemoveBatch clears every given entity from every store, one compaction
// per store.
func (r *Registry) RemoveBatch(ids []EntityID) {
	for _, s := range r.stores {
		s.RemoveBatch(ids)
	}
}

// Register creates a typed store, registers it and returns it.
func Register[T any](r *Registry, name string) *PtrComponentStore[T] {
	s := NewPtrComponentStore[T]()
	r.Register(name, s)
	return s
}
