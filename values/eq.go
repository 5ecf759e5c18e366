package values

import "math"

// Eq is the strict structural equality protocol: NaN != NaN, and a
// cross-type numeric comparison (Int vs Float) is false even when the
// values denote the same quantity. Collections compare element-wise and
// short-circuit; map equality is order-independent. See SPEC_FULL.md §15
// for why Eq stays total/strict while PartialEq widens.
func Eq(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUnit:
		return true
	case KindBool:
		return a.AsBool() == b.AsBool()
	case KindInt:
		return a.AsInt() == b.AsInt()
	case KindFloat:
		return a.AsFloat() == b.AsFloat() // NaN != NaN falls out of ==
	case KindChar:
		return a.AsChar() == b.AsChar()
	case KindType:
		return a.AsTypeHash() == b.AsTypeHash()
	case KindString:
		return a.SameHandle(b) || a.AsString() == b.AsString()
	case KindBytes:
		return a.SameHandle(b) || bytesEqual(a.AsBytes(), b.AsBytes())
	case KindVec:
		return vecEq(a, b, Eq)
	case KindMap:
		return mapEq(a, b, Eq)
	case KindTuple:
		return tupleEq(a, b, Eq)
	case KindRecord:
		return recordEq(a, b, Eq)
	case KindVariant:
		return variantEq(a, b, Eq)
	default:
		// Function/Generator/Future/Iterator/Any compare by handle identity.
		return a.SameHandle(b)
	}
}

// PartialEq is the looser protocol: Int and Float widen and compare by
// value (NaN still excluded), everything else falls back to Eq's rule.
func PartialEq(a, b Value) bool {
	if af, bf, _, ok := numeric(a, b); ok {
		if math.IsNaN(af) || math.IsNaN(bf) {
			return false
		}
		return af == bf
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindVec:
		return vecEq(a, b, PartialEq)
	case KindMap:
		return mapEq(a, b, PartialEq)
	case KindTuple:
		return tupleEq(a, b, PartialEq)
	case KindRecord:
		return recordEq(a, b, PartialEq)
	case KindVariant:
		return variantEq(a, b, PartialEq)
	default:
		return Eq(a, b)
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func vecEq(a, b Value, eq func(Value, Value) bool) bool {
	if a.SameHandle(b) {
		return true
	}
	av, bv := a.VecSlice(), b.VecSlice()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if !eq(av[i], bv[i]) {
			return false
		}
	}
	return true
}

func tupleEq(a, b Value, eq func(Value, Value) bool) bool {
	if a.SameHandle(b) {
		return true
	}
	av, bv := a.TupleSlice(), b.TupleSlice()
	if len(av) != len(bv) {
		return false
	}
	for i := range av {
		if !eq(av[i], bv[i]) {
			return false
		}
	}
	return true
}

// mapEq is order-independent: two maps are equal iff they have the same
// key set and every paired value compares equal under eq.
func mapEq(a, b Value, eq func(Value, Value) bool) bool {
	if a.SameHandle(b) {
		return true
	}
	if a.MapLen() != b.MapLen() {
		return false
	}
	equal := true
	a.MapRange(func(k Key, av Value) bool {
		bv, ok := b.MapGet(k)
		if !ok || !eq(av, bv) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

func recordEq(a, b Value, eq func(Value, Value) bool) bool {
	if a.SameHandle(b) {
		return true
	}
	if a.RecordTypeHash() != b.RecordTypeHash() {
		return false
	}
	af, bf := a.RecordFields(), b.RecordFields()
	if len(af) != len(bf) {
		return false
	}
	for k, av := range af {
		bv, ok := bf[k]
		if !ok || !eq(av, bv) {
			return false
		}
	}
	return true
}

func variantEq(a, b Value, eq func(Value, Value) bool) bool {
	if a.SameHandle(b) {
		return true
	}
	if a.VariantEnumHash() != b.VariantEnumHash() || a.VariantHash() != b.VariantHash() {
		return false
	}
	af, bf := a.VariantFields(), b.VariantFields()
	if len(af) != len(bf) {
		return false
	}
	for k, av := range af {
		bv, ok := bf[k]
		if !ok || !eq(av, bv) {
			return false
		}
	}
	return true
}
