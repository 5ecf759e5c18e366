// Package runtimectx implements the host-extension surface: a sealed
// RuntimeContext of native functions, constants, and const-constructors
// a Unit's bytecode can call into, built once via ContextBuilder from
// one or more Modules. Grounded on
// _examples/original_source/crates/rune/src/runtime/runtime_context.rs
// (three hash::Map tables behind a Send+Sync assertion) and wudi-hey's
// registry.Registry (a mutex-guarded name-keyed table this package
// closes into a build-once/read-forever value, since a RuntimeContext
// must need no locking once execution starts).
package runtimectx

import (
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

// FunctionHandler is a native function's entry point. It pops its own
// fixed arity off the stack and pushes at most one result, narrowed
// from wudi-hey's registry.BuiltinImplementation/BuiltinCallContext
// (which also carries
// PHP-specific output buffering, globals, and halt — out of scope for
// the runtime core). A native function's arity is never carried by the
// calling instruction (Call resolves purely by hash); each handler
// closes over the arity it expects and pops exactly that many values,
// the same way the Unit-side callee's own FunctionMeta.Arity is fixed
// at build time rather than passed at the call site.
type FunctionHandler func(stack *vmstack.Stack) error

// ConstConstructor builds a host-defined constant value on demand,
// grounded on rune::hash::Map<ConstConstructImpl> in runtime_context.rs.
type ConstConstructor func() (values.Value, error)

// RuntimeContext is immutable once built: three hash-keyed tables with
// no mutex, since nothing mutates them after ContextBuilder.Build.
type RuntimeContext struct {
	functions    hash.Map[FunctionHandler]
	constants    hash.Map[values.Value]
	constructors hash.Map[ConstConstructor]
}

// Function looks up a native function handler by hash.
func (rc *RuntimeContext) Function(h hash.Hash) (FunctionHandler, bool) {
	return rc.functions.Get(h)
}

// Constant looks up a pre-built constant value by hash.
func (rc *RuntimeContext) Constant(h hash.Hash) (values.Value, bool) {
	return rc.constants.Get(h)
}

// Constructor looks up a const-constructor by hash.
func (rc *RuntimeContext) Constructor(h hash.Hash) (ConstConstructor, bool) {
	return rc.constructors.Get(h)
}
