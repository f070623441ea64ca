package querycache

import "errors"

// ErrTypeMismatch is returned when an entry holds a value of a different
// type than the one requested. Keys are expected to map to a single type;
// hitting this error indicates a key collision between namespaces.
var ErrTypeMismatch = errors.New("cached value has unexpected type")
