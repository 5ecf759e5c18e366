package testmod

import (
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

func TestAssertPassesOnTrue(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewBool(true))
	stack.Push(values.Unit)
	require.NoError(t, assert(stack))
	tassert.Equal(t, values.KindUnit, stack.Pop().Kind())
}

func TestAssertFailsOnFalseWithCustomMessage(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewBool(false))
	stack.Push(values.NewString("widgets must balance"))
	err := assert(stack)
	require.Error(t, err)
	tassert.Contains(t, err.Error(), "widgets must balance")
}

func TestAssertEqPassesOnEqualValues(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewInt(1))
	stack.Push(values.NewInt(1))
	stack.Push(values.Unit)
	require.NoError(t, assertEq(stack))
}

func TestAssertEqFailsWithLeftRightRendering(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewInt(1))
	stack.Push(values.NewInt(2))
	stack.Push(values.Unit)
	err := assertEq(stack)
	require.Error(t, err)
	tassert.Contains(t, err.Error(), "left: 1")
	tassert.Contains(t, err.Error(), "right: 2")
}

func TestAssertNePassesOnDifferentValues(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewInt(1))
	stack.Push(values.NewInt(2))
	stack.Push(values.Unit)
	require.NoError(t, assertNe(stack))
}

func TestAssertNeFailsOnEqualValues(t *testing.T) {
	stack := vmstack.New(8)
	stack.Push(values.NewInt(5))
	stack.Push(values.NewInt(5))
	stack.Push(values.Unit)
	err := assertNe(stack)
	require.Error(t, err)
}
