package tree

import "sort"

// ExpansionSet is the set of item keys whose children are shown.
type ExpansionSet map[string]struct{}

// NewExpansionSet returns a set holding keys.
func NewExpansionSet(keys ...string) ExpansionSet {
	s := make(ExpansionSet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s ExpansionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts key.
func (s ExpansionSet) Add(key string) {
	s[key] = struct{}{}
}

// Delete removes key.
func (s ExpansionSet) Delete(key string) {
	delete(s, key)
}

// Len returns the number of keys.
func (s ExpansionSet) Len() int {
	return len(s)
}

// Keys returns the keys in sorted order.
func (s ExpansionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (s ExpansionSet) Clone() ExpansionSet {
	out := make(ExpansionSet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same keys.
func (s ExpansionSet) Equal(other ExpansionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}
