package util

import (
	"cmp"
	"slices"
)

// Set is a generic set of comparable values
type Set[K comparable] map[K]struct{}

// SetOf creates a new set containing the given elements
func SetOf[K comparable](elements ...K) Set[K] {
	s := make(Set[K], len(elements))
	for _, e := range elements {
		s[e] = struct{}{}
	}
	return s
}

// Add adds an element to the set
func (s Set[K]) Add(key K) {
	s[key] = struct{}{}
}

// Remove removes an element from the set
func (s Set[K]) Remove(key K) {
	delete(s, key)
}

// Contains returns true if the element exists in the set
func (s Set[K]) Contains(key K) bool {
	_, ok := s[key]
	return ok
}

// ContainsAll returns true if every provided element exists in the set
func (s Set[K]) ContainsAll(keys Set[K]) bool {
	for k := range keys {
		if !s.Contains(k) {
			return false
		}
	}
	return true
}

// Len returns the number of elements in the set
func (s Set[K]) Len() int {
	return len(s)
}

// IsEmpty returns true if the set is empty
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}

// Sorted returns the elements of a set in ascending order
func Sorted[K cmp.Ordered](s Set[K]) []K {
	res := make([]K, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}
