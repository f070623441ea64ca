package querycache

import "strings"

// Key identifies a distinct queryable resource plus parameter set. Keys are
// structured as ordered parts (namespace, operation, parameters...) so that
// related entries can be matched by prefix.
type Key []string

// NewKey builds a Key from its ordered parts.
func NewKey(parts ...string) Key {
	return Key(parts)
}

// String returns the canonical form of the key, used as the map index.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with all parts of prefix, in order.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}
