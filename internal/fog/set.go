package fog

import "cryptdelve.gg/internal/area"

// Set is an insertion-ordered set of revealed area keys. Order matters for
// persistence: when a record outgrows its cap, the earliest-revealed cells go
// first.
type Set struct {
	keys  []area.Key
	index map[area.Key]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{index: make(map[area.Key]struct{})}
}

// Add inserts k and reports whether the set changed.
func (s *Set) Add(k area.Key) bool {
	if _, ok := s.index[k]; ok {
		return false
	}
	s.index[k] = struct{}{}
	s.keys = append(s.keys, k)
	return true
}

// Has reports membership.
func (s *Set) Has(k area.Key) bool {
	_, ok := s.index[k]
	return ok
}

// Len reports the number of keys.
func (s *Set) Len() int { return len(s.keys) }

// Keys returns the keys in insertion order. The slice is a copy.
func (s *Set) Keys() []area.Key {
	out := make([]area.Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// dropOldest removes the first n keys in insertion order.
func (s *Set) dropOldest(n int) {
	if n <= 0 {
		return
	}
	if n > len(s.keys) {
		n = len(s.keys)
	}
	for _, k := range s.keys[:n] {
		delete(s.index, k)
	}
	s.keys = append([]area.Key(nil), s.keys[n:]...)
}
