package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vm"
)

// buildContext registers the collections module alone.
func buildContext(t *testing.T) *runtimectx.RuntimeContext {
	t.Helper()
	b := runtimectx.NewContextBuilder()
	require.NoError(t, b.Add(Module()))
	return b.Build()
}

// callInstance emits a CallInstance against the named method. The
// caller pushes the arguments first and the receiver last before
// calling it, matching execCallInstance's receiver-last-pushed calling
// convention.
func callInstance(b *unit.Builder, method string) {
	h := hash.Of(method)
	a, bb := opcodes.Hash64(uint64(h))
	b.Emit(opcodes.Instruction{Op: opcodes.CallInstance, A: a, B: bb})
}

func TestMapInsertGetLen(t *testing.T) {
	b := unit.NewBuilder()
	keyIdx := b.AddString("k")
	valIdx := b.AddConstant(values.NewInt(7))
	entry := b.Len()

	// insert(k, 7) on a fresh map
	b.Emit(opcodes.Instruction{Op: opcodes.Map, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0}) // stash map for later use
	b.Emit(opcodes.Instruction{Op: opcodes.PushString, A: keyIdx})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: valIdx})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "insert")
	b.Emit(opcodes.Instruction{Op: opcodes.Drop, A: 0}) // discard insert's previous-value result

	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.PushString, A: keyIdx})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "get")
	b.Emit(opcodes.Instruction{Op: opcodes.Return})

	h := hash.Of("map_insert_get")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	result, err := vm.New(u, buildContext(t), nil).Call(h, nil)
	require.NoError(t, err)
	require.Equal(t, values.KindTuple, result.Kind())
	got, ok := result.TupleGet(0)
	require.True(t, ok)
	assert.Equal(t, int64(7), got.AsInt())
	found, ok := result.TupleGet(1)
	require.True(t, ok)
	assert.True(t, found.AsBool())
}

func TestMapIsEmptyOnFreshMap(t *testing.T) {
	b := unit.NewBuilder()
	entry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Map, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "is_empty")
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	h := hash.Of("map_empty")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	result, err := vm.New(u, buildContext(t), nil).Call(h, nil)
	require.NoError(t, err)
	assert.True(t, result.AsBool())
}

func TestVecPushThenLen(t *testing.T) {
	b := unit.NewBuilder()
	one := b.AddConstant(values.NewInt(1))
	two := b.AddConstant(values.NewInt(2))
	entry := b.Len()

	b.Emit(opcodes.Instruction{Op: opcodes.Vec, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "push")
	b.Emit(opcodes.Instruction{Op: opcodes.Drop, A: 0})

	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "push")
	b.Emit(opcodes.Instruction{Op: opcodes.Drop, A: 0})

	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "len")
	b.Emit(opcodes.Instruction{Op: opcodes.Return})

	h := hash.Of("vec_push_len")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	result, err := vm.New(u, buildContext(t), nil).Call(h, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.AsInt())
}

func TestVecPopOnEmptyReportsNotOk(t *testing.T) {
	b := unit.NewBuilder()
	entry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Vec, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	callInstance(b, "pop")
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	h := hash.Of("vec_pop_empty")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	result, err := vm.New(u, buildContext(t), nil).Call(h, nil)
	require.NoError(t, err)
	ok, found := result.TupleGet(1)
	require.True(t, found)
	assert.False(t, ok.AsBool())
}
