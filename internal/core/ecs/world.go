package ecs

// remover is implemented by every Store so despawning can strip an entity
// from all of them.
type remover interface {
	Remove(id EntityID)
}

// World owns entity allocation and the component stores registered with it.
// Despawns are deferred until Flush, which the cleanup system calls at the
// end of the tick.
type World struct {
	pool    *entityPool
	stores  []remover
	pending []EntityID
}

func NewWorld() *World {
	return &World{
		pool:    newEntityPool(),
		stores:  make([]remover, 0, 8),
		pending: make([]EntityID, 0, 32),
	}
}

// Register creates a store for T owned by w.
func Register[T any](w *World) *Store[T] {
	s := NewStore[T]()
	w.stores = append(w.stores, s)
	return s
}

func (w *World) Spawn() EntityID {
	return w.pool.create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.alive(id)
}

// Count returns the number of live entities.
func (w *World) Count() int {
	return w.pool.count()
}

// Despawn queues id for removal at the next Flush.
func (w *World) Despawn(id EntityID) {
	w.pending = append(w.pending, id)
}

// Flush removes every queued entity and its components. Returns how many
// entities were actually destroyed.
func (w *World) Flush() int {
	n := 0
	for _, id := range w.pending {
		if !w.pool.destroy(id) {
			continue // despawned twice or stale
		}
		for _, s := range w.stores {
			s.Remove(id)
		}
		n++
	}
	w.pending = w.pending[:0]
	return n
}
