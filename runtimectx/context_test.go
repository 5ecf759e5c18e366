package runtimectx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

func TestBuildResolvesRegisteredFunction(t *testing.T) {
	h := hash.Of("mymod::double")
	m := NewModule("mymod").Function(h, func(stack *vmstack.Stack) error {
		args := stack.PopN(1)
		v, err := values.Mul(args[0], values.NewInt(2))
		if err != nil {
			return err
		}
		stack.Push(v)
		return nil
	})

	b := NewContextBuilder()
	require.NoError(t, b.Add(m))
	ctx := b.Build()

	fn, ok := ctx.Function(h)
	require.True(t, ok)

	s := vmstack.New(2)
	s.Push(values.NewInt(21))
	require.NoError(t, fn(s))
	assert.Equal(t, int64(42), s.Pop().AsInt())
}

func TestAddRejectsDuplicateHash(t *testing.T) {
	h := hash.Of("mymod::thing")
	noop := func(stack *vmstack.Stack) error { return nil }

	b := NewContextBuilder()
	require.NoError(t, b.Add(NewModule("a").Function(h, noop)))
	err := b.Add(NewModule("b").Function(h, noop))
	assert.Error(t, err)
}

func TestProtocolHashIsPerType(t *testing.T) {
	typeA := hash.Of("type::A")
	typeB := hash.Of("type::B")
	assert.NotEqual(t, ProtocolHash(typeA, ProtocolIntoIter), ProtocolHash(typeB, ProtocolIntoIter))
}
