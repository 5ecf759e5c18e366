package execution

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

func buildGenerator(t *testing.T) (*unit.Unit, unit.FunctionMeta) {
	t.Helper()
	b := unit.NewBuilder()
	one := b.AddConstant(values.NewInt(1))
	two := b.AddConstant(values.NewInt(2))
	entry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: one})
	b.Emit(opcodes.Instruction{Op: opcodes.Yield})
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: two})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	meta := unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionGenerator}
	h := hash.Of("gen")
	b.DeclareFunction(h, meta)
	return b.Build(), meta
}

func TestResumeYieldsThenCompletes(t *testing.T) {
	u, meta := buildGenerator(t)
	e := New(u, runtimectx.NewContextBuilder().Build(), meta, nil)

	outcome, err := e.Resume(Unlimited())
	require.NoError(t, err)
	assert.Equal(t, vm.Yielded, outcome)
	assert.False(t, e.Done())

	outcome, err = e.Resume(Unlimited())
	require.NoError(t, err)
	assert.Equal(t, vm.Complete, outcome)
	assert.True(t, e.Done())
	assert.Equal(t, int64(2), e.Result().AsInt())
}

func TestResumeValueMatchesGeneratorProtocol(t *testing.T) {
	u, meta := buildGenerator(t)
	e := New(u, runtimectx.NewContextBuilder().Build(), meta, nil)

	v, done, err := e.ResumeValue(Unlimited())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, int64(1), v.AsInt())

	v, done, err = e.ResumeValue(Unlimited())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, int64(2), v.AsInt())
}

func TestRunToCompletionRejectsYield(t *testing.T) {
	u, meta := buildGenerator(t)
	e := New(u, runtimectx.NewContextBuilder().Build(), meta, nil)
	_, err := e.RunToCompletion()
	assert.ErrorIs(t, err, ErrSuspended)
}

func TestResumeAfterErrorReturnsStoredError(t *testing.T) {
	b := unit.NewBuilder()
	entry := b.Len()
	b.Emit(opcodes.Instruction{Op: opcodes.Call, A: 0, B: 0})
	h := hash.Of("bad")
	meta := unit.FunctionMeta{EntryIP: entry, Arity: 0, Kind: unit.FunctionGenerator}
	b.DeclareFunction(h, meta)
	u := b.Build()

	e := New(u, runtimectx.NewContextBuilder().Build(), meta, nil)
	_, err := e.Resume(Unlimited())
	require.Error(t, err)
	assert.True(t, e.Done())

	_, err2 := e.Resume(Unlimited())
	assert.Equal(t, err, err2)
}

func TestLimitedBudgetDoesNotAdvanceInstructionPointer(t *testing.T) {
	u, meta := buildGenerator(t)
	e := New(u, runtimectx.NewContextBuilder().Build(), meta, nil)

	outcome, err := e.Resume(1)
	require.NoError(t, err)
	assert.Equal(t, vm.Limited, outcome)
	assert.Equal(t, uint64(1), e.Report().Instructions)
	// One PushInt ran on the single tick of budget; the Yield at ip=1
	// is the next instruction attempted, and has not executed yet.
	assert.Equal(t, 1, e.IP())
}
