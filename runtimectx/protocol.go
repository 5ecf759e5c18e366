package runtimectx

import "github.com/wudi/loom/hash"

// Reserved protocol hashes. A type that wants custom iteration,
// indexing, equality, or formatting registers a FunctionHandler under
// the relevant hash in its own Module; the vm looks handlers up here
// instead of ever special-casing a host type by name. Grounded on the
// Protocol::INTO_ITER / Protocol::INDEX_SET style in
// _examples/original_source/.../modules/collections/hash_map.rs.
var (
	ProtocolIntoIter    = hash.Of("protocol::into_iter")
	ProtocolIndexGet    = hash.Of("protocol::index_get")
	ProtocolIndexSet    = hash.Of("protocol::index_set")
	ProtocolPartialEq   = hash.Of("protocol::partial_eq")
	ProtocolEq          = hash.Of("protocol::eq")
	ProtocolStringDebug = hash.Of("protocol::string_debug")
	ProtocolDisplay     = hash.Of("protocol::display")
	ProtocolDebug       = hash.Of("protocol::debug")
)

// ProtocolHash composes a per-type protocol hash: the protocol handler
// a specific type registers lives under hash.Of(typeHash.String()+"::"+protocol),
// so two unrelated types' INTO_ITER handlers never collide.
func ProtocolHash(typeHash hash.Hash, protocol hash.Hash) hash.Hash {
	return hash.Of(typeHash.String() + "::" + protocol.String())
}
