package relation

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Set is an insertion-ordered set of entity pointers. Entities keep one Set
// per navigable association end.
type Set[T comparable] struct {
	items *orderedmap.OrderedMap[T, struct{}]
}

func NewSet[T comparable]() *Set[T] {
	return &Set[T]{items: orderedmap.New[T, struct{}]()}
}

// Add reports whether v was not present before.
func (s *Set[T]) Add(v T) bool {
	_, present := s.items.Set(v, struct{}{})
	return !present
}

// Remove reports whether v was present.
func (s *Set[T]) Remove(v T) bool {
	_, present := s.items.Delete(v)
	return present
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items.Get(v)
	return ok
}

func (s *Set[T]) Len() int {
	return s.items.Len()
}

// Items returns a copy in insertion order, safe to range over while the set
// is being mutated.
func (s *Set[T]) Items() []T {
	out := make([]T, 0, s.items.Len())
	for pair := s.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

