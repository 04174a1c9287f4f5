package relation

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry is the extent of one entity kind: the live instances indexed by
// their unique key. Being registered is what "alive" means.
type Registry[K comparable, V comparable] struct {
	name  string
	key   func(V) K
	items *orderedmap.OrderedMap[K, V]
}

// NewRegistry creates an empty registry. key extracts the unique key of an entity
// and must be stable while the entity is registered.
func NewRegistry[K comparable, V comparable](name string, key func(V) K) *Registry[K, V] {
	return &Registry[K, V]{
		name:  name,
		key:   key,
		items: orderedmap.New[K, V](),
	}
}

func (r *Registry[K, V]) Name() string { return r.name }

// Register adds v to the live set. It fails with ErrDuplicateKey when another live
// entity already uses the same key; registering the same entity twice is a no-op.
func (r *Registry[K, V]) Register(v V) error {
	k := r.key(v)
	if existing, ok := r.items.Get(k); ok {
		if existing == v {
			return nil
		}
		return fmt.Errorf("%s %v: %w", r.name, k, ErrDuplicateKey)
	}
	r.items.Set(k, v)
	return nil
}

// Unregister removes v. It fails with ErrNotFound when v is not the live entry for its key.
func (r *Registry[K, V]) Unregister(v V) error {
	k := r.key(v)
	existing, ok := r.items.Get(k)
	if !ok || existing != v {
		return fmt.Errorf("%s %v: %w", r.name, k, ErrNotFound)
	}
	r.items.Delete(k)
	return nil
}

func (r *Registry[K, V]) Get(k K) (V, bool) {
	return r.items.Get(k)
}

// Contains reports whether v itself (not merely its key) is alive.
func (r *Registry[K, V]) Contains(v V) bool {
	existing, ok := r.items.Get(r.key(v))
	return ok && existing == v
}

func (r *Registry[K, V]) Len() int {
	return r.items.Len()
}

// All returns the live entities in registration order. The slice is a copy.
func (r *Registry[K, V]) All() []V {
	out := make([]V, 0, r.items.Len())
	for pair := r.items.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (r *Registry[K, V]) Clear() {
	r.items = orderedmap.New[K, V]()
}

// Reload replaces the content with vs. The batch is checked for duplicate keys
// before anything changes: on failure the registry keeps its previous content.
func (r *Registry[K, V]) Reload(vs []V) error {
	next := orderedmap.New[K, V](len(vs))
	for _, v := range vs {
		k := r.key(v)
		if _, dup := next.Get(k); dup {
			return fmt.Errorf("reload %s %v: %w", r.name, k, ErrDuplicateKey)
		}
		next.Set(k, v)
	}
	r.items = next
	return nil
}

// View is the read-only face of a Registry handed to code that must not
// register or unregister entities itself.
type View[K comparable, V comparable] interface {
	Get(K) (V, bool)
	Contains(V) bool
	Len() int
	All() []V
}

var _ View[string, *struct{}] = (*Registry[string, *struct{}])(nil)
