package relation

import "fmt"

// RemovePolicy decides what removing a pair that is not linked does.
type RemovePolicy int

const (
	// Strict fails with ErrNotFound.
	Strict RemovePolicy = iota
	// Lenient is a no-op.
	Lenient
)

// Link describes a many-to-many association between A and B. Forward and
// Reverse return the association ends stored on the entities themselves; Link
// only keeps them in step.
type Link[A, B comparable] struct {
	Name    string
	Forward func(A) *Set[B]
	Reverse func(B) *Set[A]
	Policy  RemovePolicy
}

// Add links a and b in both directions. Repeating it is a no-op; the result
// reports whether the pair is new.
func (l Link[A, B]) Add(a A, b B) bool {
	added := l.Forward(a).Add(b)
	l.Reverse(b).Add(a)
	return added
}

// Remove unlinks a and b in both directions.
func (l Link[A, B]) Remove(a A, b B) error {
	if !l.Forward(a).Contains(b) {
		if l.Policy == Lenient {
			return nil
		}
		return fmt.Errorf("%s: %w", l.Name, ErrNotFound)
	}
	l.Forward(a).Remove(b)
	l.Reverse(b).Remove(a)
	return nil
}

func (l Link[A, B]) Linked(a A, b B) bool {
	return l.Forward(a).Contains(b)
}

// Detach removes every link a takes part in.
func (l Link[A, B]) Detach(a A) {
	fwd := l.Forward(a)
	for _, b := range fwd.Items() {
		fwd.Remove(b)
		l.Reverse(b).Remove(a)
	}
}

// DetachReverse removes every link b takes part in.
func (l Link[A, B]) DetachReverse(b B) {
	rev := l.Reverse(b)
	for _, a := range rev.Items() {
		rev.Remove(a)
		l.Forward(a).Remove(b)
	}
}

// Ref is the single-valued flavour of Link: every A points to at most one B,
// and B keeps the set of As pointing at it.
type Ref[A, B comparable] struct {
	Name    string
	Get     func(A) B
	Put     func(A, B)
	Reverse func(B) *Set[A]
}

// Set points a at b, unlinking the previous target first. Setting the current
// target again is a no-op.
func (r Ref[A, B]) Set(a A, b B) {
	var zero B
	old := r.Get(a)
	if old == b {
		return
	}
	if old != zero {
		r.Reverse(old).Remove(a)
	}
	r.Put(a, b)
	if b != zero {
		r.Reverse(b).Add(a)
	}
}

// Clear unlinks a from its target, if any.
func (r Ref[A, B]) Clear(a A) {
	var zero B
	r.Set(a, zero)
}

// DetachReverse clears every A pointing at b.
func (r Ref[A, B]) DetachReverse(b B) {
	for _, a := range r.Reverse(b).Items() {
		r.Clear(a)
	}
}
