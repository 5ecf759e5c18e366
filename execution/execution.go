// Package execution implements the resumable driver wrapped around a
// generator or async function call: constructing one does not run its
// body, and each Resume call advances it by at most one budget's
// worth of instructions before reporting why it stopped. Grounded on
// wudi-hey's ExecuteUntilYield/ResumeFromYield pause-and-resume pair
// in vm/vm.go, generalized from a shared *ExecutionContext/*CallFrame
// pair with a bool "yielded" return into one Execution per suspendable
// call, each owning its own *vm.VM and reporting the three-way
// vm.Outcome a nested generator/async call needs — a "linked list of
// nested generator/async sub-executions" becomes a parent-less tree of
// Executions instead, since each owns its call stack independently
// rather than sharing one.
package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/wudi/loom/budget"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vm"
)

// Execution wraps one *vm.VM driving a single top-level call — normal,
// generator, or async — to completion or suspension. SessionID
// correlates log/trace lines when two clones of the same Unit run on
// separate threads.
type Execution struct {
	SessionID uuid.UUID

	machine *vm.VM
	u       *unit.Unit
	ctx     *runtimectx.RuntimeContext

	startedAt time.Time
	ticks     uint64

	done   bool
	result values.Value
	err    error
}

// New constructs an Execution for meta, pushing args and opening its
// top-level frame without running anything — matching how calling a
// generator/async function constructs a paused value instead of
// running its body.
func New(u *unit.Unit, ctx *runtimectx.RuntimeContext, meta unit.FunctionMeta, args []values.Value) *Execution {
	e := &Execution{SessionID: uuid.New(), u: u, ctx: ctx, startedAt: time.Now()}
	e.machine = vm.New(u, ctx, e)
	e.machine.Seed(meta, args)
	return e
}

// Spawn implements vm.ExecutionFactory: a generator/async call nested
// inside this Execution's own body becomes a child Execution sharing
// the same Unit and RuntimeContext, grounded on wudi-hey's
// CallFrame.Generator field threading a runtime2.Generator down into
// nested frame execution.
func (e *Execution) Spawn(meta unit.FunctionMeta, args []values.Value) values.Resumable {
	return New(e.u, e.ctx, meta, args)
}

// Resume advances the Execution by at most n instructions, reporting
// why it stopped. Calling Resume again after a Complete outcome is a
// driver bug (ErrAlreadyDone); calling it again after Yielded or
// Limited continues exactly where execution paused.
func (e *Execution) Resume(n uint64) (vm.Outcome, error) {
	if e.done {
		if e.err != nil {
			return 0, e.err
		}
		return 0, ErrAlreadyDone
	}

	bgt := budget.New(n)
	outcome, err := e.machine.Resume(bgt)
	e.ticks += n - bgt.Get()
	if err != nil {
		e.done, e.err = true, err
		return 0, err
	}
	if outcome == vm.Complete {
		e.done, e.result = true, e.machine.Result()
	}
	return outcome, nil
}

// RunToCompletion drives the Execution forward under successive
// budget.New(n) slices until it completes or fails, treating a
// suspending Yield as the caller's mistake (ErrSuspended) — the
// convenience a host reaches for when it knows a call can't
// legitimately yield, the way vm.VM.Call drives an ordinary function
// call synchronously.
func (e *Execution) RunToCompletion() (values.Value, error) {
	const slice = 1 << 16
	for {
		outcome, err := e.Resume(slice)
		if err != nil {
			return values.Unit, err
		}
		switch outcome {
		case vm.Complete:
			return e.result, nil
		case vm.Yielded:
			return values.Unit, ErrSuspended
		}
	}
}

// ResumeValue implements values.Resumable for the Await/GeneratorNext
// opcodes: result holds the value produced either way — the yielded
// value when !done, the final return value once done — so a caller
// never needs to branch on Outcome directly, only on done.
func (e *Execution) ResumeValue(n uint64) (values.Value, bool, error) {
	outcome, err := e.Resume(n)
	if err != nil {
		return values.Unit, false, err
	}
	switch outcome {
	case vm.Complete:
		return e.result, true, nil
	case vm.Yielded:
		return e.machine.YieldValue(), false, nil
	default:
		return values.Unit, false, nil
	}
}

// Done reports whether the Execution has completed or failed.
func (e *Execution) Done() bool { return e.done }

// Result reports the value a completed Execution produced; Unit until
// Done reports true.
func (e *Execution) Result() values.Value { return e.result }

// Err reports the error a failed Execution raised, nil otherwise.
func (e *Execution) Err() error { return e.err }

// IP reports the instruction about to execute, the location of a
// paused Execution.
func (e *Execution) IP() int { return e.machine.IP() }

// Report summarizes one Execution's cost, grounded on wudi-hey's
// profileState.render()/GetPerformanceReport() instruction-count
// summary, rendered with humanize instead of a bare Sprintf.
type Report struct {
	SessionID    uuid.UUID
	Instructions uint64
	Elapsed      time.Duration
	Done         bool
}

// Report snapshots the Execution's running cost so far.
func (e *Execution) Report() Report {
	return Report{
		SessionID:    e.SessionID,
		Instructions: e.ticks,
		Elapsed:      time.Since(e.startedAt),
		Done:         e.done,
	}
}

func (r Report) String() string {
	return fmt.Sprintf("session %s: %s instructions in %s (started %s)",
		r.SessionID, humanize.Comma(int64(r.Instructions)), r.Elapsed.Round(time.Microsecond),
		humanize.Time(time.Now().Add(-r.Elapsed)))
}

// unlimited is the budget ResumeValue's callers pass when they want an
// effectively-unbounded nested resume (Await/GeneratorNext) — not
// budget.Unlimited()'s true no-op counter, since a nested Resume still
// needs a finite n to hand to budget.New for Resume's own bookkeeping.
const unlimited = uint64(math.MaxUint64)

// Unlimited is the budget value Await/GeneratorNext hand to a nested
// Execution's ResumeValue to drive it as far as it will go in one step.
func Unlimited() uint64 { return unlimited }
