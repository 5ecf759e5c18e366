package vmstack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/loom/values"
)

func TestPushPopOrder(t *testing.T) {
	s := New(4)
	s.Push(values.NewInt(1))
	s.Push(values.NewInt(2))
	assert.Equal(t, int64(2), s.Pop().AsInt())
	assert.Equal(t, int64(1), s.Pop().AsInt())
}

func TestCleanKeepsTopDropsBelow(t *testing.T) {
	s := New(4)
	s.Push(values.NewInt(1))
	s.Push(values.NewInt(2))
	s.Push(values.NewInt(3)) // result
	s.Clean(2)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(3), s.Peek().AsInt())
}

func TestCleanZeroIsNoOp(t *testing.T) {
	s := New(4)
	s.Push(values.NewInt(1))
	s.Clean(0)
	assert.Equal(t, 1, s.Len())
}

func TestFrameLifecycle(t *testing.T) {
	s := New(4)
	s.Push(values.NewInt(10)) // argument
	f := s.EnterFrame(5, 1)
	assert.Equal(t, 0, f.Base)
	s.Push(values.NewInt(99)) // return value
	out, err := s.LeaveFrame(true)
	require.NoError(t, err)
	assert.Equal(t, 5, out.ReturnIP)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(99), s.Peek().AsInt())
}

func TestLeaveFrameWithoutOpenFrameErrors(t *testing.T) {
	s := New(4)
	_, err := s.LeaveFrame(false)
	assert.Error(t, err)
}
