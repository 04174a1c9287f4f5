package relation

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Unbounded disables the maximum of a Qualified collection.
const Unbounded = -1

// Qualified is a keyed collection: every value sits under a unique qualifier
// (emoji code, phone number) and can be looked up in O(1).
type Qualified[K comparable, V comparable] struct {
	name  string
	min   int
	max   int
	items *orderedmap.OrderedMap[K, V]
}

// NewQualified creates an empty collection. min is only enforced by Remove;
// max may be Unbounded.
func NewQualified[K comparable, V comparable](name string, min, max int) *Qualified[K, V] {
	return &Qualified[K, V]{
		name:  name,
		min:   min,
		max:   max,
		items: orderedmap.New[K, V](),
	}
}

// Put inserts v under k and reports whether it was inserted. A key that is
// already taken, by v or by another value, leaves the collection untouched and
// returns (false, nil). Inserting past the maximum fails with ErrCapacityExceeded.
func (q *Qualified[K, V]) Put(k K, v V) (bool, error) {
	if _, taken := q.items.Get(k); taken {
		return false, nil
	}
	if q.Full() {
		return false, fmt.Errorf("%s: at most %d entries: %w", q.name, q.max, ErrCapacityExceeded)
	}
	q.items.Set(k, v)
	return true, nil
}

// Remove deletes the value under k, refusing to go below the minimum.
func (q *Qualified[K, V]) Remove(k K) (V, error) {
	v, ok := q.items.Get(k)
	if !ok {
		var zero V
		return zero, fmt.Errorf("%s %v: %w", q.name, k, ErrNotFound)
	}
	if q.items.Len()-1 < q.min {
		var zero V
		return zero, fmt.Errorf("%s: at least %d entries: %w", q.name, q.min, ErrMinimumViolation)
	}
	q.items.Delete(k)
	return v, nil
}

// Detach deletes the value under k without the minimum check. It is what moving
// a value to another collection uses.
func (q *Qualified[K, V]) Detach(k K) (V, bool) {
	return q.items.Delete(k)
}

// Get never fails; ok is false when k is absent.
func (q *Qualified[K, V]) Get(k K) (V, bool) {
	return q.items.Get(k)
}

func (q *Qualified[K, V]) Len() int {
	return q.items.Len()
}

func (q *Qualified[K, V]) Max() int {
	return q.max
}

func (q *Qualified[K, V]) Full() bool {
	return q.max != Unbounded && q.items.Len() >= q.max
}

// SetMax changes the maximum. It cannot drop below the current size.
func (q *Qualified[K, V]) SetMax(n int) error {
	if n != Unbounded && (n < q.items.Len() || n < q.min) {
		return fmt.Errorf("%s: maximum %d below current size %d: %w", q.name, n, q.items.Len(), ErrValidation)
	}
	q.max = n
	return nil
}

// Keys returns the qualifiers in insertion order.
func (q *Qualified[K, V]) Keys() []K {
	out := make([]K, 0, q.items.Len())
	for pair := q.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Values returns the values in insertion order.
func (q *Qualified[K, V]) Values() []V {
	out := make([]V, 0, q.items.Len())
	for pair := q.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}
