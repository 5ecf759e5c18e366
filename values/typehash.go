package values

import "github.com/wudi/loom/hash"

// TypeHash reports the type identity a value dispatches protocols and
// TypeCheck against. Record/Variant carry a user-defined type hash from
// construction; Any carries the host-supplied type hash it was built
// with; every other kind has one fixed, built-in type hash derived from
// its Kind name, since primitives and built-in collections have no
// user-defined type declaration to hash instead.
func TypeHash(v Value) hash.Hash {
	switch v.kind {
	case KindRecord:
		return v.RecordTypeHash()
	case KindVariant:
		return v.VariantEnumHash()
	case KindAny:
		th, _ := v.AsAny()
		return th
	default:
		return builtinTypeHashes[v.kind]
	}
}

var builtinTypeHashes = func() [KindAny + 1]hash.Hash {
	var table [KindAny + 1]hash.Hash
	for k := KindUnit; k <= KindAny; k++ {
		table[k] = hash.Of("type::" + k.String())
	}
	return table
}()
