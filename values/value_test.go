package values

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	assert.Equal(t, int64(42), NewInt(42).AsInt())
	assert.True(t, NewBool(true).AsBool())
	assert.Equal(t, 'x', NewChar('x').AsChar())
	assert.InDelta(t, 3.5, NewFloat(3.5).AsFloat(), 0)
}

func TestVecAliasing(t *testing.T) {
	v := NewVec([]Value{NewInt(1), NewInt(2)})
	alias := v
	require.NoError(t, alias.VecPush(NewInt(3)))
	assert.Equal(t, 3, v.VecLen())
}

func TestMapEqualityIsOrderIndependent(t *testing.T) {
	a := NewMap()
	require.NoError(t, mustKey(t, NewString("a")).set(a, NewInt(1)))
	require.NoError(t, mustKey(t, NewString("b")).set(a, NewInt(2)))

	b := NewMap()
	require.NoError(t, mustKey(t, NewString("b")).set(b, NewInt(2)))
	require.NoError(t, mustKey(t, NewString("a")).set(b, NewInt(1)))

	assert.True(t, Eq(a, b))
}

func TestMapPartialEqWidensNumericValues(t *testing.T) {
	a := NewMap()
	require.NoError(t, mustKey(t, NewString("a")).set(a, NewInt(1)))

	b := NewMap()
	require.NoError(t, mustKey(t, NewString("a")).set(b, NewFloat(1.0)))

	assert.False(t, Eq(a, b))
	assert.True(t, PartialEq(a, b))
}

func TestEqRejectsNaN(t *testing.T) {
	nan := NewFloat(math.NaN())
	assert.False(t, Eq(nan, nan))
	assert.False(t, PartialEq(nan, nan))
}

func TestKeyRoundTrip(t *testing.T) {
	original := NewTuple([]Value{NewInt(7), NewString("hi"), NewBool(true)})
	k, err := NewKey(original)
	require.NoError(t, err)
	back, err := k.ToValue()
	require.NoError(t, err)
	assert.True(t, Eq(original, back))
}

func TestKeyRejectsFloat(t *testing.T) {
	_, err := NewKey(NewFloat(1.5))
	assert.Error(t, err)
}

func TestIntAddOverflow(t *testing.T) {
	_, err := Add(NewInt(math.MaxInt64), NewInt(1))
	assert.ErrorIs(t, err, ErrArithmeticOverflow)
}

func TestDivisionByZero(t *testing.T) {
	_, err := Div(NewInt(1), NewInt(0))
	assert.ErrorIs(t, err, ErrArithmeticZeroDivision)
}

func TestMixedNumericAddWidensToFloat(t *testing.T) {
	sum, err := Add(NewInt(1), NewFloat(2.5))
	require.NoError(t, err)
	assert.Equal(t, KindFloat, sum.Kind())
	assert.InDelta(t, 3.5, sum.AsFloat(), 0)
}

// --- helpers ---

type keyHandle struct {
	t   *testing.T
	key Key
}

func mustKey(t *testing.T, v Value) keyHandle {
	t.Helper()
	k, err := NewKey(v)
	require.NoError(t, err)
	return keyHandle{t: t, key: k}
}

func (h keyHandle) set(m, val Value) error {
	return m.MapSet(h.key, val)
}
