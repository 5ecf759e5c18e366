package budget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickExhaustsAtZero(t *testing.T) {
	c := New(2)
	assert.True(t, c.Tick())
	assert.True(t, c.Tick())
	assert.False(t, c.Tick())
}

func TestUnlimitedNeverExhausts(t *testing.T) {
	c := Unlimited()
	for i := 0; i < 1000; i++ {
		assert.True(t, c.Tick())
	}
}

func TestReplaceReturnsPrevious(t *testing.T) {
	c := New(5)
	prev := c.Replace(10)
	assert.Equal(t, uint64(5), prev)
	assert.Equal(t, uint64(10), c.Get())
}

func TestScopedRestoresAfterward(t *testing.T) {
	c := New(5)
	c.Scoped(100, func() {
		assert.Equal(t, uint64(100), c.Get())
	})
	assert.Equal(t, uint64(5), c.Get())
}

// TestBudgetSplittingDeterminism exercises the invariant that total
// instructions executed is the same whether spent in one resume or
// split across several.
func TestBudgetSplittingDeterminism(t *testing.T) {
	total := uint64(10)
	oneShot := New(total)
	ticks := 0
	for oneShot.Tick() {
		ticks++
	}
	assert.Equal(t, int(total), ticks)

	split := New(3)
	splitTicks := 0
	consumed := uint64(0)
	for consumed < total {
		for split.Tick() {
			splitTicks++
			consumed++
			if consumed == total {
				break
			}
		}
		if consumed < total {
			split.Replace(3)
		}
	}
	assert.Equal(t, ticks, splitTicks)
}
