package ecs

import (
	"cmp"
	"slices"
)

// Store holds one component type by value, keyed by entity. Game-loop
// goroutine only.
type Store[T any] struct {
	data map[EntityID]T
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{data: make(map[EntityID]T, 64)}
}

func (s *Store[T]) Insert(id EntityID, c T) {
	s.data[id] = c
}

func (s *Store[T]) Get(id EntityID) (T, bool) {
	c, ok := s.data[id]
	return c, ok
}

// Update applies fn to the stored component in place. Missing entities are
// skipped and Update returns false.
func (s *Store[T]) Update(id EntityID, fn func(*T)) bool {
	c, ok := s.data[id]
	if !ok {
		return false
	}
	fn(&c)
	s.data[id] = c
	return true
}

func (s *Store[T]) Remove(id EntityID) {
	delete(s.data, id)
}

func (s *Store[T]) Len() int {
	return len(s.data)
}

// Each visits every component in entity order so systems behave the same
// from tick to tick.
func (s *Store[T]) Each(fn func(EntityID, T)) {
	ids := make([]EntityID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, cmp.Compare[EntityID])
	for _, id := range ids {
		fn(id, s.data[id])
	}
}
