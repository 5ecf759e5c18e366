package unit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/values"
)

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder()
	idx := b.AddConstant(values.NewInt(42))
	b.Emit(opcodes.Instruction{Op: opcodes.PushInt, A: idx})
	b.Emit(opcodes.Instruction{Op: opcodes.Return})
	b.DeclareFunction(hash.Of("main"), FunctionMeta{EntryIP: 0, Arity: 0, Kind: FunctionNormal})

	u := b.Build()

	inst, ok := u.At(0)
	require.True(t, ok)
	assert.Equal(t, opcodes.PushInt, inst.Op)

	_, ok = u.At(100)
	assert.False(t, ok)

	meta, ok := u.Function(hash.Of("main"))
	require.True(t, ok)
	assert.Equal(t, 0, meta.Arity)
	assert.Equal(t, FunctionNormal, meta.Kind)
}

func TestDisassembleResolvesOperands(t *testing.T) {
	b := NewBuilder()
	idx := b.AddString("hello")
	b.Emit(opcodes.Instruction{Op: opcodes.PushString, A: idx})
	u := b.Build()

	var buf bytes.Buffer
	require.NoError(t, u.Disassemble(&buf))
	assert.True(t, strings.Contains(buf.String(), `"hello"`))
}
