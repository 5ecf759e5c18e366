package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
)

// TestClosureEnvironmentScenario reproduces the closure-environment
// reasoning behind values.Function's Env field end to end: a closure
// body's raw arity includes its captured environment as a hidden last
// parameter, so the three ways of invoking it — the raw hash bypass
// with too few args, the raw hash bypass with a non-tuple arg, and a
// correctly supplied environment — land on BadArgumentCount,
// ExpectedType, and success respectively, using nothing but ordinary
// Copy/LoadIndex/Closure opcodes.
func TestClosureEnvironmentScenario(t *testing.T) {
	b := unit.NewBuilder()
	bodyHash := hash.Of("closure_body")
	mainHash := hash.Of("main")

	zeroIdx := b.AddConstant(values.NewInt(0))
	bodyEntry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: zeroIdx})
	b.Emit(opcodes.Instruction{Op: opcodes.LoadIndex})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(bodyHash, unit.FunctionMeta{EntryIP: bodyEntry, Arity: 1, Kind: unit.FunctionClosure})

	mainEntry := b.Len()
	ha, hb := opcodes.Hash64(uint64(bodyHash))
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Tuple, A: 1})
	b.Emit(opcodes.Instruction{Op: opcodes.Closure, A: ha, B: hb})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(mainHash, unit.FunctionMeta{EntryIP: mainEntry, Arity: 1, Kind: unit.FunctionNormal})

	u := b.Build()
	ctx := runtimectx.NewContextBuilder().Build()

	fnVal, err := New(u, ctx, nil).Call(mainHash, []values.Value{values.NewInt(42)})
	require.NoError(t, err)
	require.Equal(t, values.KindFunction, fnVal.Kind())
	assert.Equal(t, 0, fnVal.AsFunction().Arity)

	_, err = New(u, ctx, nil).Call(bodyHash, nil)
	var verr *VMError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, BadArgumentCount, verr.Kind)

	_, err = New(u, ctx, nil).Call(bodyHash, []values.Value{values.NewInt(0)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ExpectedType, verr.Kind)

	result, err := New(u, ctx, nil).Call(bodyHash, []values.Value{values.NewTuple([]values.Value{values.NewInt(84)})})
	require.NoError(t, err)
	assert.Equal(t, int64(84), result.AsInt())
}

// TestCallFnSuppliesClosureEnvironment exercises the CallFn opcode
// path: a driver function loads a previously built closure out of a
// constant slot and invokes it with zero visible arguments; CallFn
// must append the closure's captured environment itself to reach the
// raw arity the body actually expects.
func TestCallFnSuppliesClosureEnvironment(t *testing.T) {
	b := unit.NewBuilder()
	bodyHash := hash.Of("closure_body")
	mainHash := hash.Of("main")
	driverHash := hash.Of("driver")
	closureConst := hash.Of("const::closure")

	zeroIdx := b.AddConstant(values.NewInt(0))
	bodyEntry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: zeroIdx})
	b.Emit(opcodes.Instruction{Op: opcodes.LoadIndex})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(bodyHash, unit.FunctionMeta{EntryIP: bodyEntry, Arity: 1, Kind: unit.FunctionClosure})

	mainEntry := b.Len()
	ha, hb := opcodes.Hash64(uint64(bodyHash))
	b.Emit(opcodes.Instruction{Op: opcodes.Copy, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Tuple, A: 1})
	b.Emit(opcodes.Instruction{Op: opcodes.Closure, A: ha, B: hb})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(mainHash, unit.FunctionMeta{EntryIP: mainEntry, Arity: 1, Kind: unit.FunctionNormal})

	ca, cb := opcodes.Hash64(uint64(closureConst))
	driverEntry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.LoadConst, A: ca, B: cb})
	b.Emit(opcodes.Instruction{Op: opcodes.CallFn, A: 0})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(driverHash, unit.FunctionMeta{EntryIP: driverEntry, Arity: 0, Kind: unit.FunctionNormal})

	u := b.Build()

	fnVal, err := New(u, runtimectx.NewContextBuilder().Build(), nil).Call(mainHash, []values.Value{values.NewInt(42)})
	require.NoError(t, err)

	m := runtimectx.NewModule("test").Constant(closureConst, fnVal)
	builder := runtimectx.NewContextBuilder()
	require.NoError(t, builder.Add(m))
	ctx := builder.Build()

	result, err := New(u, ctx, nil).Call(driverHash, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.AsInt())
}

// TestMapEqualityEndToEnd runs the Eq opcode over two maps built in
// different insertion orders with the same int keys, confirming the
// vm-level Eq instruction delegates to values.Eq's order-independent
// comparison rather than any positional one.
func TestMapEqualityEndToEnd(t *testing.T) {
	b := unit.NewBuilder()
	one := b.AddConstant(values.NewInt(1))
	two := b.AddConstant(values.NewInt(2))
	entry := b.Len()
	// {1: 2, 2: 1}
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.Map, A: 2})
	// {2: 1, 1: 2}
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.Map, A: 2})
	b.Emit(opcodes.Instruction{Op: opcodes.Eq})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	h := hash.Of("maps_eq")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	result, err := New(u, runtimectx.NewContextBuilder().Build(), nil).Call(h, nil)
	require.NoError(t, err)
	assert.True(t, result.AsBool())
}

func TestMissingFunctionRaisesMissingFunction(t *testing.T) {
	u := unit.NewBuilder().Build()
	_, err := New(u, runtimectx.NewContextBuilder().Build(), nil).Call(hash.Of("nope"), nil)
	var verr *VMError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MissingFunction, verr.Kind)
}

// TestCallBoundedRaisesBudgetExhausted confirms the non-resumable
// budget guard turns Limited into a terminal BudgetExhausted error,
// distinct from ordinary Resume's resumable Limited outcome.
func TestCallBoundedRaisesBudgetExhausted(t *testing.T) {
	b := unit.NewBuilder()
	one := b.AddConstant(values.NewInt(1))
	entry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.Pop})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	h := hash.Of("slow")
	b.DeclareFunction(h, unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionNormal})
	u := b.Build()

	_, err := New(u, runtimectx.NewContextBuilder().Build(), nil).CallBounded(h, nil, 1)
	var verr *VMError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, BudgetExhausted, verr.Kind)
}

// TestVMErrorCarriesFrameTrace confirms a nested call's failure reports
// one FrameInfo per open caller frame, outermost first.
func TestVMErrorCarriesFrameTrace(t *testing.T) {
	b := unit.NewBuilder()
	innerHash := hash.Of("inner")
	ia, ib := opcodes.Hash64(uint64(innerHash))
	missingHash := hash.Of("missing")
	ma, mb := opcodes.Hash64(uint64(missingHash))

	innerEntry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Call, A: ma, B: mb})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(innerHash, unit.FunctionMeta{EntryIP: innerEntry, Arity: 0, Kind: unit.FunctionNormal})

	outerEntry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Call, A: ia, B: ib})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	outerHash := hash.Of("outer")
	b.DeclareFunction(outerHash, unit.FunctionMeta{EntryIP: outerEntry, Arity: 0, Kind: unit.FunctionNormal})

	u := b.Build()
	_, err := New(u, runtimectx.NewContextBuilder().Build(), nil).Call(outerHash, nil)
	var verr *VMError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MissingFunction, verr.Kind)
	require.Len(t, verr.Frames, 2)
}
