// Package budget implements the instruction counter Resume(budget) uses
// to bound how much work a single resume call may perform before
// yielding Limited. Grounded on
// _examples/original_source/crates/rune/src/runtime/budget/no_std.rs,
// whose contract is exactly two primitives: get the current budget,
// and replace it with a new value while returning the old one. The
// original exposes that contract through a thread-local pair of
// extern "C" functions; Go has no equivalent primitive; each
// Execution.Resume call creates a *budget.Counter and passes it
// explicitly to its VM's Resume instead of reaching for a
// package-level thread-local, which
// would need its own goroutine-ID bookkeeping to be safe.
package budget

import "math"

// Counter tracks remaining instruction budget for one Execution.
// Unlimited counters never report exhaustion; Tick always succeeds.
type Counter struct {
	remaining uint64
	unlimited bool
}

// Unlimited returns a Counter that never exhausts — the budget
// vm.VM.Call runs its call under, regardless of cost.
func Unlimited() *Counter {
	return &Counter{unlimited: true}
}

// New returns a Counter with n ticks remaining.
func New(n uint64) *Counter {
	return &Counter{remaining: n}
}

// Get reports the current remaining budget (math.MaxUint64 if unlimited).
func (c *Counter) Get() uint64 {
	if c.unlimited {
		return math.MaxUint64
	}
	return c.remaining
}

// Replace installs a new budget, returning the previous value.
func (c *Counter) Replace(n uint64) uint64 {
	prev := c.Get()
	c.unlimited = false
	c.remaining = n
	return prev
}

// Tick consumes one unit of budget, reporting false once a limited
// counter reaches zero. An unlimited counter always reports true.
func (c *Counter) Tick() bool {
	if c.unlimited {
		return true
	}
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	return true
}

// Scoped temporarily replaces the budget for the duration of fn,
// restoring the previous value afterward, also when fn panics — for
// code that must run a bounded amount of nested VM work without
// being starved by (or starving) the caller's own budget.
func (c *Counter) Scoped(n uint64, fn func()) {
	prev := c.Replace(n)
	defer c.Replace(prev)
	fn()
}
