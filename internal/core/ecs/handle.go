package ecs

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// UUID is the persistent external identifier of an entity. It is unique
// within a scene and survives save/load, unlike EntityID.
type UUID uint64

// NewUUID draws a random v4 UUID and folds its 128 bits into 64.
func NewUUID() UUID {
	for {
		u := uuid.New()
		v := binary.LittleEndian.Uint64(u[:8]) ^ binary.LittleEndian.Uint64(u[8:])
		if v != 0 {
			return UUID(v)
		}
	}
}

func (u UUID) String() string { return fmt.Sprintf("%016x", uint64(u)) }

// ParseUUID parses the hex form produced by String.
func ParseUUID(s string) (UUID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse uuid %q: %w", s, err)
	}
	return UUID(v), nil
}

// HandleTable maps external identifiers to entity handles in both directions.
// Both directions are updated together on every insert and remove.
type HandleTable struct {
	byUUID   map[UUID]EntityID
	byEntity map[EntityID]UUID
}

func NewHandleTable() *HandleTable {
	return &HandleTable{
		byUUID:   make(map[UUID]EntityID, 256),
		byEntity: make(map[EntityID]UUID, 256),
	}
}

// Insert binds u to id. A uuid already bound to a live entity panics.
func (t *HandleTable) Insert(u UUID, id EntityID) {
	if prev, dup := t.byUUID[u]; dup {
		panic(fmt.Sprintf("ecs: duplicate uuid %s (held by %s, wanted by %s)", u, prev, id))
	}
	if old, ok := t.byEntity[id]; ok {
		delete(t.byUUID, old)
	}
	t.byUUID[u] = id
	t.byEntity[id] = u
}

// Remove unbinds id and its uuid.
func (t *HandleTable) Remove(id EntityID) {
	u, ok := t.byEntity[id]
	if !ok {
		return
	}
	delete(t.byEntity, id)
	delete(t.byUUID, u)
}

func (t *HandleTable) Lookup(u UUID) (EntityID, bool) {
	id, ok := t.byUUID[u]
	return id, ok
}

func (t *HandleTable) UUID(id EntityID) (UUID, bool) {
	u, ok := t.byEntity[id]
	return u, ok
}

func (t *HandleTable) Len() int { return len(t.byUUID) }
