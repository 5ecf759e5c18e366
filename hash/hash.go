// Package hash provides the 64-bit content-addressed identifier used
// everywhere a Unit or a RuntimeContext needs to name something —
// functions, types, constants, object-key sets, field names — without
// carrying the name itself into the hot path.
package hash

import (
	"fmt"
	"hash/fnv"
)

// Hash is an opaque 64-bit identifier produced by the external compiler.
// Names are debug-only; the runtime core never compares by name.
type Hash uint64

// String renders the hash as a fixed-width hex value for disassembly
// and error messages.
func (h Hash) String() string {
	return fmt.Sprintf("#%016x", uint64(h))
}

// Of derives a Hash from an item's fully-qualified name. The external
// compiler is free to use any scheme; this helper exists for tests and
// for cmd/loom-asm, which assemble units without a real compiler.
func Of(item string) Hash {
	h := fnv.New64a()
	_, _ = h.Write([]byte(item))
	return Hash(h.Sum64())
}

// Map is a lookup table keyed by Hash, used for RuntimeContext's three
// tables and Unit's function directory. It is a thin wrapper rather
// than a bare map so construction sites read the same way the pools do.
type Map[V any] struct {
	entries map[Hash]V
}

// NewMap creates an empty Map, optionally sized for n entries.
func NewMap[V any](capacity int) Map[V] {
	return Map[V]{entries: make(map[Hash]V, capacity)}
}

// Get looks up a value by hash.
func (m Map[V]) Get(h Hash) (V, bool) {
	v, ok := m.entries[h]
	return v, ok
}

// Set installs or replaces a value under a hash.
func (m Map[V]) Set(h Hash, v V) {
	m.entries[h] = v
}

// SetIfAbsent installs a value only if the hash is not already bound,
// reporting whether the insert happened. Used by ContextBuilder to
// reject duplicate registrations instead of silently overwriting.
func (m Map[V]) SetIfAbsent(h Hash, v V) bool {
	if _, exists := m.entries[h]; exists {
		return false
	}
	m.entries[h] = v
	return true
}

// Len reports the number of bound hashes.
func (m Map[V]) Len() int {
	return len(m.entries)
}

// Clone makes a shallow copy, used when sealing a builder into an
// immutable table.
func (m Map[V]) Clone() Map[V] {
	out := make(map[Hash]V, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return Map[V]{entries: out}
}

// Range iterates entries in unspecified order, for disassembly/inspection.
func (m Map[V]) Range(fn func(Hash, V) bool) {
	for k, v := range m.entries {
		if !fn(k, v) {
			return
		}
	}
}
