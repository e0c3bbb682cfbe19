package ecs

// Each2 iterates over entities that have both component A and B.
// Iteration follows sa's dense order, so a sorted driver store yields a
// sorted visit.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	for i, id := range sa.entities {
		if b, ok := sb.Get(id); ok {
			fn(id, sa.data[i], b)
		}
	}
}

// EachExcept iterates over owners of A that do not appear in any of the
// excluded stores.
func EachExcept[A any](sa *PtrComponentStore[A], fn func(EntityID, *A), exclude ...Removable) {
outer:
	for i, id := range sa.entities {
		for _, x := range exclude {
			if x.Has(id) {
				continue outer
			}
		}
		fn(id, sa.data[i])
	}
}
