// Package values implements the tagged Value/Key union that flows across
// the stack, the unit's static pools, and every native function boundary.
// Primitive kinds carry their data inline; heap kinds share one mutable
// handle so aliased Values observe each other's writes, mirroring the
// teacher's Value{Type, Data} union in values/value.go generalized away
// from PHP's specific type lattice.
package values

// Kind discriminates a Value's representation.
type Kind byte

const (
	// Primitive kinds: stored inline in a Value, never allocate.
	KindUnit Kind = iota
	KindBool
	KindInt
	KindFloat
	KindChar
	KindType

	// Heap kinds: a Value of these kinds holds a handle shared by every
	// alias of the same underlying object.
	KindString
	KindBytes
	KindVec
	KindMap
	KindTuple
	KindRecord
	KindVariant
	KindFunction
	KindGenerator
	KindFuture
	KindIterator
	KindAny
)

var kindNames = [...]string{
	KindUnit:      "unit",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindChar:      "char",
	KindType:      "type",
	KindString:    "string",
	KindBytes:     "bytes",
	KindVec:       "vec",
	KindMap:       "map",
	KindTuple:     "tuple",
	KindRecord:    "record",
	KindVariant:   "variant",
	KindFunction:  "function",
	KindGenerator: "generator",
	KindFuture:    "future",
	KindIterator:  "iterator",
	KindAny:       "any",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "kind(?)"
}

// isHeap reports whether values of this kind carry a *heapObject.
func (k Kind) isHeap() bool {
	return k >= KindString
}
