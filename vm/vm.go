// Package vm implements the stack-based bytecode interpreter: one VM
// owns one operand stack and drives a single top-level call to
// completion or suspension. Grounded on wudi-hey's vm/vm.go
// dispatch-loop shape (a big switch over an Opcode, an instruction
// pointer, a call stack), rewired around the redesigned opcodes/values
// packages and the pure-stack-effect instruction set.
package vm

import (
	"github.com/wudi/loom/budget"
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

// Outcome reports why Resume returned control to its caller.
type Outcome byte

const (
	// Complete means the top-level call finished; Result() holds its
	// return value.
	Complete Outcome = iota
	// Yielded means a Yield or Await instruction suspended execution;
	// YieldValue() holds the value it carried. The VM's stack and
	// instruction pointer are left intact for a later Resume to
	// continue exactly where it paused.
	Yielded
	// Limited means the budget passed to Resume ran out before the
	// call could finish or suspend on its own. The next instruction
	// has not been executed; a later Resume with fresh budget retries
	// it, so total instructions executed never depends on how the
	// budget was split across Resume calls.
	Limited
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case Yielded:
		return "yielded"
	case Limited:
		return "limited"
	default:
		return "outcome(?)"
	}
}

// ExecutionFactory constructs a suspendable sub-execution for a
// generator or async function meta: calling such a function must not
// run its body, only construct a paused Execution object. Defined here
// rather than taking a direct dependency on package execution, which
// wraps *VM itself and would otherwise cycle back into this package.
type ExecutionFactory interface {
	Spawn(meta unit.FunctionMeta, args []values.Value) values.Resumable
}

// VM interprets one Unit's bytecode against one RuntimeContext. It is
// not safe for concurrent use — concurrency lives at the Execution
// level, each with its own VM and stack.
type VM struct {
	unit    *unit.Unit
	ctx     *runtimectx.RuntimeContext
	stack   *vmstack.Stack
	factory ExecutionFactory

	ip         int
	result     values.Value
	yieldValue values.Value

	// Trace, if set, is called immediately before every instruction
	// executes — a host installs one for a --trace CLI flag or an
	// interactive stepper (cmd/loomdbg), mirroring wudi-hey's
	// vm.DebugMode/vm.breakpoints instrumentation without baking a
	// specific debugger's concerns into the dispatch loop itself.
	Trace func(ip int, inst opcodes.Instruction)
}

// New returns a VM ready to run calls against u under ctx. factory may
// be nil if the unit never calls a generator or async function —
// attempting to do so without one raises UnsupportedYield rather than
// panicking.
func New(u *unit.Unit, ctx *runtimectx.RuntimeContext, factory ExecutionFactory) *VM {
	return &VM{unit: u, ctx: ctx, stack: vmstack.New(64), factory: factory}
}

// Result reports the value a Complete Resume produced.
func (vm *VM) Result() values.Value { return vm.result }

// YieldValue reports the value a Yielded Resume produced.
func (vm *VM) YieldValue() values.Value { return vm.yieldValue }

// IP reports the instruction about to execute — used by cmd/loomdbg to
// annotate a paused Execution.
func (vm *VM) IP() int { return vm.ip }

// Stack exposes the operand stack for a debugger's inspection commands
// (cmd/loomdbg's "stack"). Not for bytecode dispatch use —
// step() and the exec* helpers hold the only mutating references.
func (vm *VM) Stack() *vmstack.Stack { return vm.stack }

// Unit reports the compilation unit this VM is interpreting, for a
// debugger's disassembly view.
func (vm *VM) Unit() *unit.Unit { return vm.unit }

// Call is the host-facing entry point for a normal (non-generator,
// non-async) top-level call: it checks args against the callee's raw
// arity — which, for a closure body, includes the hidden captured-
// environment slot that CallFn would otherwise supply automatically —
// and runs the call to completion under an unlimited budget. Calling a
// generator or async function's hash instead constructs and returns
// its paused Generator/Future value without running any of its body,
// matching how the Call/CallFn opcodes treat the same FunctionMeta.Kind
// inside compiled bytecode.
func (vm *VM) Call(entry hash.Hash, args []values.Value) (values.Value, error) {
	meta, ok := vm.unit.Function(entry)
	if !ok {
		return values.Unit, missingFunction(vm.ip, opcodes.Call, entry)
	}
	if len(args) != meta.Arity {
		return values.Unit, badArgumentCount(vm.ip, opcodes.Call, len(args), meta.Arity)
	}
	if meta.Kind == unit.FunctionGenerator || meta.Kind == unit.FunctionAsync {
		return vm.spawnValue(meta, args)
	}
	vm.Seed(meta, args)
	outcome, err := vm.Resume(budget.Unlimited())
	if err != nil {
		return values.Unit, err
	}
	if outcome == Yielded {
		return values.Unit, unsupportedYield(vm.ip, opcodes.Yield)
	}
	return vm.result, nil
}

// Seed pushes args and opens the top-level call frame for meta without
// running anything — the construction half of a generator/async call,
// used by package execution's ExecutionFactory implementation to build
// a fresh VM for a nested suspendable body.
func (vm *VM) Seed(meta unit.FunctionMeta, args []values.Value) {
	for _, a := range args {
		vm.stack.Push(a)
	}
	vm.stack.EnterFrame(-1, meta.Arity)
	vm.ip = meta.EntryIP
}

func (vm *VM) spawnValue(meta unit.FunctionMeta, args []values.Value) (values.Value, error) {
	if vm.factory == nil {
		return values.Unit, newVMError(UnsupportedYield, vm.ip, opcodes.Call,
			"no ExecutionFactory installed for a generator/async call", nil)
	}
	exec := vm.factory.Spawn(meta, args)
	if meta.Kind == unit.FunctionGenerator {
		return values.NewGenerator(&values.GeneratorState{Exec: exec}), nil
	}
	return values.NewFuture(&values.FutureState{Exec: exec}), nil
}

// stepSignal tells Resume's driver loop what just happened inside step.
type stepSignal byte

const (
	sigContinue stepSignal = iota
	sigComplete
	sigYielded
)

// Resume drives the VM forward, ticking bgt once per instruction
// attempted, until the top-level call completes, suspends, or the
// budget runs out. Safe to call repeatedly on the same VM after a
// Yielded or Limited outcome — all state needed to continue lives on
// vm.stack and vm.ip.
func (vm *VM) Resume(bgt *budget.Counter) (Outcome, error) {
	for {
		if !bgt.Tick() {
			return Limited, nil
		}
		sig, err := vm.step()
		if err != nil {
			if verr, ok := err.(*VMError); ok && verr.Frames == nil {
				verr.Frames = vm.trace()
			}
			return 0, err
		}
		switch sig {
		case sigComplete:
			return Complete, nil
		case sigYielded:
			return Yielded, nil
		}
	}
}

// trace snapshots the currently open call frames for a VMError's Frames
// field, outermost first.
func (vm *VM) trace() []FrameInfo {
	frames := vm.stack.Frames()
	out := make([]FrameInfo, len(frames))
	for i, f := range frames {
		out[i] = FrameInfo{ReturnIP: f.ReturnIP}
	}
	return out
}

// CallBounded runs entry to completion like Call, but under a fixed
// instruction budget instead of an unlimited one: if the call hasn't
// finished when the budget runs out, it raises BudgetExhausted rather
// than silently reporting Limited — a non-resumable budget guard for a
// host that wants a hard ceiling on a single synchronous call, distinct
// from ordinary resumable Resume usage.
func (vm *VM) CallBounded(entry hash.Hash, args []values.Value, maxInstructions uint64) (values.Value, error) {
	meta, ok := vm.unit.Function(entry)
	if !ok {
		return values.Unit, missingFunction(vm.ip, opcodes.Call, entry)
	}
	if len(args) != meta.Arity {
		return values.Unit, badArgumentCount(vm.ip, opcodes.Call, len(args), meta.Arity)
	}
	if meta.Kind == unit.FunctionGenerator || meta.Kind == unit.FunctionAsync {
		return vm.spawnValue(meta, args)
	}
	vm.Seed(meta, args)
	outcome, err := vm.Resume(budget.New(maxInstructions))
	if err != nil {
		return values.Unit, err
	}
	switch outcome {
	case Yielded:
		return values.Unit, unsupportedYield(vm.ip, opcodes.Yield)
	case Limited:
		return values.Unit, budgetExhausted(vm.ip, opcodes.Call, maxInstructions)
	}
	return vm.result, nil
}

func (vm *VM) step() (stepSignal, error) {
	inst, ok := vm.unit.At(vm.ip)
	if !ok {
		return 0, outOfBounds(vm.ip, opcodes.Pop)
	}
	if vm.Trace != nil {
		vm.Trace(vm.ip, inst)
	}
	op := inst.Op

	switch op {
	case opcodes.Pop:
		vm.stack.Pop()
		vm.ip++
	case opcodes.PopN:
		vm.stack.PopN(int(inst.A))
		vm.ip++
	case opcodes.Clean:
		vm.stack.Clean(int(inst.A))
		vm.ip++
	case opcodes.Copy:
		vm.stack.Push(vm.stack.At(vm.stack.FrameBase() + int(inst.A)))
		vm.ip++
	case opcodes.Move:
		vm.stack.SetAt(vm.stack.FrameBase()+int(inst.A), vm.stack.Pop())
		vm.ip++
	case opcodes.Drop:
		vm.stack.DropAt(int(inst.A))
		vm.ip++
	case opcodes.Swap:
		vm.stack.SwapAt(int(inst.A), int(inst.B))
		vm.ip++

	case opcodes.PushUnit:
		vm.stack.Push(values.Unit)
		vm.ip++
	case opcodes.PushBool:
		vm.stack.Push(values.NewBool(inst.A != 0))
		vm.ip++
	case opcodes.PushInt, opcodes.PushFloat:
		if int(inst.A) >= len(vm.unit.Constants) {
			return 0, outOfBounds(vm.ip, op)
		}
		vm.stack.Push(vm.unit.Constants[inst.A])
		vm.ip++
	case opcodes.PushChar:
		vm.stack.Push(values.NewChar(rune(inst.A)))
		vm.ip++
	case opcodes.PushString:
		if int(inst.A) >= len(vm.unit.Strings) {
			return 0, outOfBounds(vm.ip, op)
		}
		vm.stack.Push(values.NewString(vm.unit.Strings[inst.A]))
		vm.ip++
	case opcodes.PushBytes:
		if int(inst.A) >= len(vm.unit.ByteArrays) {
			return 0, outOfBounds(vm.ip, op)
		}
		src := vm.unit.ByteArrays[inst.A]
		vm.stack.Push(values.NewBytes(append([]byte(nil), src...)))
		vm.ip++
	case opcodes.LoadConst:
		return vm.execLoadConst(inst)

	case opcodes.Add, opcodes.Sub, opcodes.Mul, opcodes.Div, opcodes.Rem,
		opcodes.And, opcodes.Or, opcodes.BitAnd, opcodes.BitOr, opcodes.BitXor,
		opcodes.Shl, opcodes.Shr:
		return vm.execBinaryArith(op)
	case opcodes.Neg, opcodes.Not:
		return vm.execUnaryArith(op)
	case opcodes.Eq, opcodes.Neq:
		a, b := vm.stack.Pop(), vm.stack.Pop()
		eq := values.Eq(b, a)
		if op == opcodes.Neq {
			eq = !eq
		}
		vm.stack.Push(values.NewBool(eq))
		vm.ip++
	case opcodes.Lt, opcodes.Le, opcodes.Gt, opcodes.Ge:
		return vm.execCompare(op)

	case opcodes.Jump:
		vm.ip = int(inst.A)
	case opcodes.JumpIf:
		if vm.stack.Pop().AsBool() {
			vm.ip = int(inst.A)
		} else {
			vm.ip++
		}
	case opcodes.JumpIfNot:
		if !vm.stack.Pop().AsBool() {
			vm.ip = int(inst.A)
		} else {
			vm.ip++
		}
	case opcodes.JumpIfOrPop:
		if vm.stack.Peek().AsBool() {
			vm.ip = int(inst.A)
		} else {
			vm.stack.Pop()
			vm.ip++
		}
	case opcodes.MatchJump:
		return vm.execMatchJump(inst)

	case opcodes.Call:
		return vm.execCall(inst)
	case opcodes.CallOffset:
		vm.stack.EnterFrame(vm.ip+1, int(inst.B))
		vm.ip = int(inst.A)
	case opcodes.CallInstance:
		return vm.execCallInstance(inst)
	case opcodes.CallFn:
		return vm.execCallFn(inst)
	case opcodes.Return:
		return vm.execReturn()
	case opcodes.ReturnUnit:
		vm.stack.Push(values.Unit)
		return vm.execReturn()

	case opcodes.Closure:
		return vm.execClosure(inst)

	case opcodes.Tuple:
		elems := vm.stack.PopN(int(inst.A))
		vm.stack.Push(values.NewTuple(elems))
		vm.ip++
	case opcodes.Record:
		return vm.execRecord(inst, false)
	case opcodes.Variant:
		return vm.execRecord(inst, true)
	case opcodes.LoadField:
		return vm.execLoadField(inst)
	case opcodes.StoreField:
		return vm.execStoreField(inst)
	case opcodes.LoadIndex:
		return vm.execLoadIndex()
	case opcodes.StoreIndex:
		return vm.execStoreIndex()

	case opcodes.Vec:
		elems := vm.stack.PopN(int(inst.A))
		vm.stack.Push(values.NewVec(elems))
		vm.ip++
	case opcodes.Map:
		return vm.execMap(inst)
	case opcodes.Range:
		return vm.execRange()
	case opcodes.Iter:
		return vm.execIter()
	case opcodes.IterNext:
		return vm.execIterNext(inst)

	case opcodes.Yield:
		vm.yieldValue = vm.stack.Pop()
		vm.ip++
		return sigYielded, nil
	case opcodes.Await:
		return vm.execAwait()
	case opcodes.GeneratorNext:
		return vm.execGeneratorNext()

	case opcodes.TypeCheck:
		v := vm.stack.Pop()
		want := hash.Hash(opcodes.Unhash64(inst.A, inst.B))
		vm.stack.Push(values.NewBool(values.TypeHash(v) == want))
		vm.ip++

	case opcodes.DropSet:
		vm.execDropSet(inst)
		vm.ip++

	default:
		return 0, newVMError(UserPanic, vm.ip, op, "unimplemented opcode", nil)
	}

	return sigContinue, nil
}
