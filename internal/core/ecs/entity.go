package ecs

import (
	"fmt"
	"sync"
)

// Entity identifies a game object. An index is reused only after the
// previous occupant was deleted and maintained, and always with a strictly
// greater generation, so stale copies never alias a new entity.
type Entity struct {
	Index      uint32
	Generation uint32
}

func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.Index, e.Generation)
}

// IsZero reports whether e is the zero Entity, which is never alive.
func (e Entity) IsZero() bool { return e.Generation == 0 }

// Entities is the generational arena behind a World. It is safe for
// concurrent use so systems may spawn entities without declaring access.
type Entities struct {
	mu          sync.RWMutex
	generations []uint32
	alive       []bool
	free        []uint32
	pending     []Entity
	count       int
}

func newEntities() *Entities {
	return &Entities{}
}

// Create allocates an entity, reusing a maintained index when one is free.
func (es *Entities) Create() Entity {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.createLocked()
}

// CreateN allocates n entities in one lock acquisition.
func (es *Entities) CreateN(n int) []Entity {
	if n <= 0 {
		return nil
	}
	out := make([]Entity, n)
	es.mu.Lock()
	defer es.mu.Unlock()
	for i := range out {
		out[i] = es.createLocked()
	}
	return out
}

func (es *Entities) createLocked() Entity {
	es.count++
	if n := len(es.free); n > 0 {
		idx := es.free[n-1]
		es.free = es.free[:n-1]
		es.alive[idx] = true
		return Entity{Index: idx, Generation: es.generations[idx]}
	}
	idx := uint32(len(es.generations))
	es.generations = append(es.generations, 1)
	es.alive = append(es.alive, true)
	return Entity{Index: idx, Generation: 1}
}

// Delete kills e and bumps its generation. The index stays reserved until
// the owning World removes its components in Maintain. Deleting a stale or
// already deleted entity is a no-op returning false.
func (es *Entities) Delete(e Entity) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	if !es.aliveLocked(e) {
		return false
	}
	es.alive[e.Index] = false
	es.generations[e.Index]++
	es.pending = append(es.pending, e)
	es.count--
	return true
}

// IsAlive reports whether e refers to the current occupant of its index.
func (es *Entities) IsAlive(e Entity) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.aliveLocked(e)
}

func (es *Entities) aliveLocked(e Entity) bool {
	if e.Generation == 0 || int(e.Index) >= len(es.generations) {
		return false
	}
	return es.alive[e.Index] && es.generations[e.Index] == e.Generation
}

// Current returns the live entity occupying index, if any.
func (es *Entities) Current(index uint32) (Entity, bool) {
	es.mu.RLock()
	defer es.mu.RUnlock()
	if int(index) >= len(es.generations) || !es.alive[index] {
		return Entity{}, false
	}
	return Entity{Index: index, Generation: es.generations[index]}, true
}

// Len returns the number of live entities.
func (es *Entities) Len() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.count
}

// Pending returns how many deleted indices still await maintenance.
func (es *Entities) Pending() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.pending)
}

// takePending hands the deleted entities to the caller. They must be passed
// back through release once their components are gone.
func (es *Entities) takePending() []Entity {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := es.pending
	es.pending = nil
	return out
}

func (es *Entities) release(deleted []Entity) {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, e := range deleted {
		es.free = append(es.free, e.Index)
	}
}
