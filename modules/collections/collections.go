// Package collections supplies the Map/Vec associated methods the core
// opcode set deliberately leaves out: Iter/LoadIndex/StoreIndex/Eq
// already give bytecode raw construction, indexing, and iteration over
// Map/Vec (opcodes/opcodes.go, vm/exec.go), but a method call like
// `m.insert(k, v)` still has to resolve to something through
// CallInstance. Grounded on
// _examples/original_source/crates/rune/src/modules/collections/hash_map.rs's
// module-setup shape (module.function_meta / module.associated_function
// per method), translated into the runtimectx.Module/ProtocolHash idiom;
// extended to Vec by the same pattern since the pack carries no
// dedicated vec module to ground that half on directly.
package collections

import (
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

var (
	mapTypeHash = values.TypeHash(values.NewMap())
	vecTypeHash = values.TypeHash(values.NewVec(nil))
)

// methodHash is the per-type handler key CallInstance resolves a
// method call against: runtimectx.ProtocolHash(TypeHash(receiver),
// hash.Of(name)), composed once at registration time per type/method
// pair rather than per call.
func methodHash(typeHash hash.Hash, name string) hash.Hash {
	return runtimectx.ProtocolHash(typeHash, hash.Of(name))
}

// Module returns the collections module, registering Map's and Vec's
// associated methods. A compiled call `recv.method(args...)` pushes
// its arguments first and the receiver last, so every handler here
// pops the receiver before its arguments, in reverse push order —
// CallInstance's calling convention (vm/exec.go's execCallInstance).
func Module() *runtimectx.Module {
	m := runtimectx.NewModule("collections")
	registerMap(m)
	registerVec(m)
	return m
}

func registerMap(m *runtimectx.Module) {
	m.Function(methodHash(mapTypeHash, "len"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		stack.Push(values.NewInt(int64(recv.MapLen())))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "is_empty"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		stack.Push(values.NewBool(recv.MapLen() == 0))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "clear"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		if err := recv.MapClear(); err != nil {
			return err
		}
		stack.Push(values.Unit)
		return nil
	})
	m.Function(methodHash(mapTypeHash, "insert"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		val := stack.Pop()
		key := stack.Pop()
		k, err := values.NewKey(key)
		if err != nil {
			return err
		}
		prev, had := recv.MapGet(k)
		if err := recv.MapSet(k, val); err != nil {
			return err
		}
		if had {
			stack.Push(prev)
		} else {
			stack.Push(values.Unit)
		}
		return nil
	})
	m.Function(methodHash(mapTypeHash, "get"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		key := stack.Pop()
		k, err := values.NewKey(key)
		if err != nil {
			return err
		}
		val, ok := recv.MapGet(k)
		stack.Push(values.NewTuple([]values.Value{val, values.NewBool(ok)}))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "contains_key"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		key := stack.Pop()
		k, err := values.NewKey(key)
		if err != nil {
			return err
		}
		_, ok := recv.MapGet(k)
		stack.Push(values.NewBool(ok))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "remove"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		key := stack.Pop()
		k, err := values.NewKey(key)
		if err != nil {
			return err
		}
		val, had := recv.MapGet(k)
		if had {
			if err := recv.MapDelete(k); err != nil {
				return err
			}
		}
		stack.Push(values.NewTuple([]values.Value{val, values.NewBool(had)}))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "keys"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		var keys []values.Value
		var walkErr error
		recv.MapRange(func(k values.Key, _ values.Value) bool {
			kv, err := k.ToValue()
			if err != nil {
				walkErr = err
				return false
			}
			keys = append(keys, kv)
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		stack.Push(values.NewVec(keys))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "values"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		var vals []values.Value
		recv.MapRange(func(_ values.Key, v values.Value) bool {
			vals = append(vals, v)
			return true
		})
		stack.Push(values.NewVec(vals))
		return nil
	})
	m.Function(methodHash(mapTypeHash, "extend"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		other := stack.Pop()
		var walkErr error
		other.MapRange(func(k values.Key, v values.Value) bool {
			if err := recv.MapSet(k, v); err != nil {
				walkErr = err
				return false
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}
		stack.Push(values.Unit)
		return nil
	})
}

func registerVec(m *runtimectx.Module) {
	m.Function(methodHash(vecTypeHash, "len"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		stack.Push(values.NewInt(int64(recv.VecLen())))
		return nil
	})
	m.Function(methodHash(vecTypeHash, "is_empty"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		stack.Push(values.NewBool(recv.VecLen() == 0))
		return nil
	})
	m.Function(methodHash(vecTypeHash, "clear"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		if err := recv.VecClear(); err != nil {
			return err
		}
		stack.Push(values.Unit)
		return nil
	})
	m.Function(methodHash(vecTypeHash, "push"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		elem := stack.Pop()
		if err := recv.VecPush(elem); err != nil {
			return err
		}
		stack.Push(values.Unit)
		return nil
	})
	m.Function(methodHash(vecTypeHash, "pop"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		elem, ok, err := recv.VecPop()
		if err != nil {
			return err
		}
		stack.Push(values.NewTuple([]values.Value{elem, values.NewBool(ok)}))
		return nil
	})
	m.Function(methodHash(vecTypeHash, "get"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		idx := stack.Pop()
		elem, ok := recv.VecGet(int(idx.AsInt()))
		stack.Push(values.NewTuple([]values.Value{elem, values.NewBool(ok)}))
		return nil
	})
	m.Function(methodHash(vecTypeHash, "contains"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		needle := stack.Pop()
		found := false
		for i := 0; i < recv.VecLen(); i++ {
			elem, _ := recv.VecGet(i)
			if values.Eq(elem, needle) {
				found = true
				break
			}
		}
		stack.Push(values.NewBool(found))
		return nil
	})
	m.Function(methodHash(vecTypeHash, "extend"), func(stack *vmstack.Stack) error {
		recv := stack.Pop()
		other := stack.Pop()
		for i := 0; i < other.VecLen(); i++ {
			elem, _ := other.VecGet(i)
			if err := recv.VecPush(elem); err != nil {
				return err
			}
		}
		stack.Push(values.Unit)
		return nil
	})
}
