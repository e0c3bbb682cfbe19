package ecs

import "sort"

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
	RemoveBatch(ids []EntityID)
	Has(id EntityID) bool
}

// PtrComponentStore is a sparse-set store for ECS components. The sparse
// array is indexed by EntityID.Index(); the dense arrays keep owners and
// component pointers packed in iteration order. Pointers returned by Get and
// Add stay valid until the component is removed.
type PtrComponentStore[T any] struct {
	sparse   []int32 // entity index -> dense position, -1 when absent
	entities []EntityID
	data     []*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		sparse:   make([]int32, 0, 256),
		entities: make([]EntityID, 0, 256),
		data:     make([]*T, 0, 256),
	}
}

func (s *PtrComponentStore[T]) pos(id EntityID) int {
	idx := int(id.Index())
	if id == Null || idx >= len(s.sparse) {
		return -1
	}
	p := int(s.sparse[idx])
	if p < 0 || s.entities[p] != id {
		return -1
	}
	return p
}

// Set stores c for id, replacing any previous value. A dense entry left by
// another generation of the same index is overwritten in place, so the store
// never holds two entries for one index.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if id == Null {
		return
	}
	idx := int(id.Index())
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, -1)
	}
	if p := s.sparse[idx]; p >= 0 {
		s.entities[p] = id
		s.data[p] = c
		return
	}
	s.sparse[idx] = int32(len(s.entities))
	s.entities = append(s.entities, id)
	s.data = append(s.data, c)
}

// Add returns the component of id, creating a zero value if absent.
func (s *PtrComponentStore[T]) Add(id EntityID) *T {
	if c, ok := s.Get(id); ok {
		return c
	}
	c := new(T)
	s.Set(id, c)
	return c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	p := s.pos(id)
	if p < 0 {
		return nil, false
	}
	return s.data[p], true
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	return s.pos(id) >= 0
}

// Remove swaps the last dense element into the vacated slot.
func (s *PtrComponentStore[T]) Remove(id EntityID) {
	p := s.pos(id)
	if p < 0 {
		return
	}
	last := len(s.entities) - 1
	moved := s.entities[last]
	s.entities[p] = moved
	s.data[p] = s.data[last]
	s.sparse[moved.Index()] = int32(p)
	s.sparse[id.Index()] = -1
	s.data[last] = nil
	s.entities = s.entities[:last]
	s.data = s.data[:last]
}

// RemoveBatch deletes multiple entities in a single compaction pass,
// preserving the relative order of the survivors.
func (s *PtrComponentStore[T]) RemoveBatch(ids []EntityID) {
	if len(ids) == 0 || len(s.entities) == 0 {
		return
	}
	removed := 0
	for _, id := range ids {
		if p := s.pos(id); p >= 0 {
			s.sparse[id.Index()] = -1
			removed++
		}
	}
	if removed == 0 {
		return
	}
	w := 0
	for r, id := range s.entities {
		if s.sparse[id.Index()] < 0 {
			continue
		}
		s.entities[w] = id
		s.data[w] = s.data[r]
		s.sparse[id.Index()] = int32(w)
		w++
	}
	for i := w; i < len(s.data); i++ {
		s.data[i] = nil
	}
	s.entities = s.entities[:w]
	s.data = s.data[:w]
}

// Clear removes every component from the store.
func (s *PtrComponentStore[T]) Clear() {
	for _, id := range s.entities {
		s.sparse[id.Index()] = -1
	}
	clear(s.data)
	s.entities = s.entities[:0]
	s.data = s.data[:0]
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.entities)
}

// Each visits components in dense order. fn must not add or remove
// components of this store.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.entities {
		fn(id, s.data[i])
	}
}

// Entities returns a copy of the owners in dense order.
func (s *PtrComponentStore[T]) Entities() []EntityID {
	out := make([]EntityID, len(s.entities))
	copy(out, s.entities)
	return out
}

// Sort reorders the dense arrays in place so that Each visits owners in the
// order defined by less.
func (s *PtrComponentStore[T]) Sort(less func(a, b EntityID) bool) {
	sort.Sort(&storeSorter[T]{s: s, less: less})
}

type storeSorter[T any] struct {
	s    *PtrComponentStore[T]
	less func(a, b EntityID) bool
}

func (o *storeSorter[T]) Len() int { return len(o.s.entities) }

func (o *storeSorter[T]) Less(i, j int) bool {
	return o.less(o.s.entities[i], o.s.entities[j])
}

func (o *storeSorter[T]) Swap(i, j int) {
	s := o.s
	s.entities[i], s.entities[j] = s.entities[j], s.entities[i]
	s.data[i], s.data[j] = s.data[j], s.data[i]
	s.sparse[s.entities[i].Index()] = int32(i)
	s.sparse[s.entities[j].Index()] = int32(j)
}
