package vm

import (
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
)

// enterOrSpawn opens a normal call frame for meta, or — when meta names
// a generator/async entry — constructs the paused handle value
// (values.Generator/values.Future) instead of running anything. The
// arity args meta expects
// must already be the top of stack when this is called; on the
// generator/async path they are popped back off. entered reports which
// branch ran, so callers know whether ip was redirected into the
// callee (no ip++ this step) or left to fall through normally.
func (vm *VM) enterOrSpawn(meta unit.FunctionMeta, returnIP int) (entered bool, err error) {
	if meta.Kind == unit.FunctionGenerator || meta.Kind == unit.FunctionAsync {
		args := vm.stack.PopN(meta.Arity)
		v, err := vm.spawnValue(meta, args)
		if err != nil {
			return false, err
		}
		vm.stack.Push(v)
		return false, nil
	}
	vm.stack.EnterFrame(returnIP, meta.Arity)
	vm.ip = meta.EntryIP
	return true, nil
}

func (vm *VM) execLoadConst(inst opcodes.Instruction) (stepSignal, error) {
	h := hash.Hash(opcodes.Unhash64(inst.A, inst.B))
	if v, ok := vm.ctx.Constant(h); ok {
		vm.stack.Push(v)
		vm.ip++
		return sigContinue, nil
	}
	if ctor, ok := vm.ctx.Constructor(h); ok {
		v, err := ctor()
		if err != nil {
			return 0, newVMError(MissingItem, vm.ip, opcodes.LoadConst, err.Error(), err)
		}
		vm.stack.Push(v)
		vm.ip++
		return sigContinue, nil
	}
	return 0, missingItem(vm.ip, opcodes.LoadConst, h)
}

func (vm *VM) execBinaryArith(op opcodes.Op) (stepSignal, error) {
	b, a := vm.stack.Pop(), vm.stack.Pop()
	var result values.Value
	var err error
	switch op {
	case opcodes.Add:
		result, err = values.Add(a, b)
	case opcodes.Sub:
		result, err = values.Sub(a, b)
	case opcodes.Mul:
		result, err = values.Mul(a, b)
	case opcodes.Div:
		result, err = values.Div(a, b)
	case opcodes.Rem:
		result, err = values.Rem(a, b)
	case opcodes.And:
		result, err = values.And(a, b)
	case opcodes.Or:
		result, err = values.Or(a, b)
	case opcodes.BitAnd:
		result, err = values.BitAnd(a, b)
	case opcodes.BitOr:
		result, err = values.BitOr(a, b)
	case opcodes.BitXor:
		result, err = values.BitXor(a, b)
	case opcodes.Shl:
		result, err = values.Shl(a, b)
	case opcodes.Shr:
		result, err = values.Shr(a, b)
	}
	if err != nil {
		return 0, wrapArithmetic(vm.ip, op, err)
	}
	vm.stack.Push(result)
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execUnaryArith(op opcodes.Op) (stepSignal, error) {
	a := vm.stack.Pop()
	var result values.Value
	var err error
	if op == opcodes.Neg {
		result, err = values.Neg(a)
	} else {
		result, err = values.Not(a)
	}
	if err != nil {
		return 0, wrapArithmetic(vm.ip, op, err)
	}
	vm.stack.Push(result)
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execCompare(op opcodes.Op) (stepSignal, error) {
	b, a := vm.stack.Pop(), vm.stack.Pop()
	cmp, err := values.Compare(a, b)
	if err != nil {
		return 0, expectedType(vm.ip, op, "orderable", a.Kind().String()+"/"+b.Kind().String())
	}
	var result bool
	switch op {
	case opcodes.Lt:
		result = cmp < 0
	case opcodes.Le:
		result = cmp <= 0
	case opcodes.Gt:
		result = cmp > 0
	case opcodes.Ge:
		result = cmp >= 0
	}
	vm.stack.Push(values.NewBool(result))
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execMatchJump(inst opcodes.Instruction) (stepSignal, error) {
	if int(inst.A) >= len(vm.unit.MatchTables) {
		return 0, outOfBounds(vm.ip, opcodes.MatchJump)
	}
	v := vm.stack.Pop()
	if v.Kind() != values.KindVariant {
		return 0, expectedType(vm.ip, opcodes.MatchJump, "variant", v.Kind().String())
	}
	for _, arm := range vm.unit.MatchTables[inst.A] {
		if arm.Variant == v.VariantHash() {
			vm.ip = arm.Target
			return sigContinue, nil
		}
	}
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execCall(inst opcodes.Instruction) (stepSignal, error) {
	h := hash.Hash(opcodes.Unhash64(inst.A, inst.B))
	if meta, ok := vm.unit.Function(h); ok {
		entered, err := vm.enterOrSpawn(meta, vm.ip+1)
		if err != nil {
			return 0, err
		}
		if !entered {
			vm.ip++
		}
		return sigContinue, nil
	}
	if fn, ok := vm.ctx.Function(h); ok {
		if err := fn(vm.stack); err != nil {
			return 0, asVMError(vm.ip, opcodes.Call, err)
		}
		vm.ip++
		return sigContinue, nil
	}
	return 0, missingFunction(vm.ip, opcodes.Call, h)
}

// execCallInstance dispatches on the receiver's runtime type: the
// instruction's hash names a method, not a function, composed with the
// popped receiver's own type hash via runtimectx.ProtocolHash before
// resolution, so two unrelated types can register unrelated methods
// under the same plain name with no collision.
func (vm *VM) execCallInstance(inst opcodes.Instruction) (stepSignal, error) {
	method := hash.Hash(opcodes.Unhash64(inst.A, inst.B))
	receiver := vm.stack.Pop()
	resolved := runtimectx.ProtocolHash(values.TypeHash(receiver), method)

	if meta, ok := vm.unit.Function(resolved); ok {
		vm.stack.Push(receiver)
		entered, err := vm.enterOrSpawn(meta, vm.ip+1)
		if err != nil {
			return 0, err
		}
		if !entered {
			vm.ip++
		}
		return sigContinue, nil
	}
	if fn, ok := vm.ctx.Function(resolved); ok {
		vm.stack.Push(receiver)
		if err := fn(vm.stack); err != nil {
			return 0, asVMError(vm.ip, opcodes.CallInstance, err)
		}
		vm.ip++
		return sigContinue, nil
	}
	return 0, protocolMissing(vm.ip, opcodes.CallInstance, values.TypeHash(receiver), method)
}

// execCallFn dispatches through a first-class Function value — the one
// call form where the callee's own stored arity, not the call site's,
// is authoritative: a mismatch is a BadArgumentCount, and an FnClosure
// callee has its captured environment appended as a hidden final raw
// argument the bytecode never pushes itself.
func (vm *VM) execCallFn(inst opcodes.Instruction) (stepSignal, error) {
	args := vm.stack.PopN(int(inst.A))
	callee := vm.stack.Pop()
	if callee.Kind() != values.KindFunction {
		return 0, expectedType(vm.ip, opcodes.CallFn, "function", callee.Kind().String())
	}
	fn := callee.AsFunction()
	if len(args) != fn.Arity {
		return 0, badArgumentCount(vm.ip, opcodes.CallFn, len(args), fn.Arity)
	}

	rawArgs := args
	switch fn.Kind {
	case values.FnClosure:
		rawArgs = append(append([]values.Value(nil), args...), fn.Env)
	case values.FnBound:
		rawArgs = append([]values.Value{fn.Receiver}, args...)
	}

	meta, ok := vm.unit.Function(fn.Hash)
	if !ok {
		return 0, missingFunction(vm.ip, opcodes.CallFn, fn.Hash)
	}
	if len(rawArgs) != meta.Arity {
		return 0, badArgumentCount(vm.ip, opcodes.CallFn, len(rawArgs), meta.Arity)
	}
	for _, a := range rawArgs {
		vm.stack.Push(a)
	}
	entered, err := vm.enterOrSpawn(meta, vm.ip+1)
	if err != nil {
		return 0, err
	}
	if !entered {
		vm.ip++
	}
	return sigContinue, nil
}

func (vm *VM) execReturn() (stepSignal, error) {
	frame, err := vm.stack.LeaveFrame(true)
	if err != nil {
		return 0, newVMError(StackUnderflow, vm.ip, opcodes.Return, err.Error(), err)
	}
	if vm.stack.Depth() == 0 && frame.ReturnIP < 0 {
		vm.result = vm.stack.Pop()
		return sigComplete, nil
	}
	vm.ip = frame.ReturnIP
	return sigContinue, nil
}

// execClosure builds a Function value of kind FnClosure: it pops the
// captured-environment Tuple a preceding Tuple instruction built, looks
// up the target's raw arity (which counts that environment as its
// final hidden parameter), and stores the function's visible arity —
// one less — on the value itself, the number CallFn checks a dynamic
// caller's argument count against.
func (vm *VM) execClosure(inst opcodes.Instruction) (stepSignal, error) {
	h := hash.Hash(opcodes.Unhash64(inst.A, inst.B))
	env := vm.stack.Pop()
	meta, ok := vm.unit.Function(h)
	if !ok {
		return 0, missingFunction(vm.ip, opcodes.Closure, h)
	}
	fn := &values.Function{Kind: values.FnClosure, Hash: h, Arity: meta.Arity - 1, Env: env}
	vm.stack.Push(values.NewFunction(fn))
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execRecord(inst opcodes.Instruction, variant bool) (stepSignal, error) {
	if int(inst.A) >= len(vm.unit.FieldSets) {
		return 0, outOfBounds(vm.ip, opcodes.Record)
	}
	fs := vm.unit.FieldSets[inst.A]
	vals := vm.stack.PopN(len(fs.Fields))
	fields := make(map[string]values.Value, len(fs.Fields))
	for i, name := range fs.Fields {
		fields[name] = vals[i]
	}
	if variant {
		vm.stack.Push(values.NewVariant(fs.TypeHash, fs.VariantHash, fields))
	} else {
		vm.stack.Push(values.NewRecord(fs.TypeHash, fields))
	}
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execLoadField(inst opcodes.Instruction) (stepSignal, error) {
	name, err := vm.stringAt(inst.A, opcodes.LoadField)
	if err != nil {
		return 0, err
	}
	v := vm.stack.Pop()
	var val values.Value
	var ok bool
	switch v.Kind() {
	case values.KindRecord:
		val, ok = v.RecordGet(name)
	case values.KindVariant:
		val, ok = v.VariantGet(name)
	default:
		return 0, expectedType(vm.ip, opcodes.LoadField, "record", v.Kind().String())
	}
	if !ok {
		return 0, newVMError(MissingItem, vm.ip, opcodes.LoadField, name, nil)
	}
	vm.stack.Push(val)
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execStoreField(inst opcodes.Instruction) (stepSignal, error) {
	name, err := vm.stringAt(inst.A, opcodes.StoreField)
	if err != nil {
		return 0, err
	}
	val := vm.stack.Pop()
	rec := vm.stack.Pop()
	if rec.Kind() != values.KindRecord {
		return 0, expectedType(vm.ip, opcodes.StoreField, "record", rec.Kind().String())
	}
	rec.RecordSet(name, val)
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execLoadIndex() (stepSignal, error) {
	idx := vm.stack.Pop()
	coll := vm.stack.Pop()
	switch coll.Kind() {
	case values.KindTuple:
		i, ok := requireInt(idx)
		if !ok {
			return 0, expectedType(vm.ip, opcodes.LoadIndex, "int", idx.Kind().String())
		}
		val, ok := coll.TupleGet(i)
		if !ok {
			return 0, indexOutOfBounds(vm.ip, opcodes.LoadIndex, coll.TupleLen(), i)
		}
		vm.stack.Push(val)
	case values.KindVec:
		i, ok := requireInt(idx)
		if !ok {
			return 0, expectedType(vm.ip, opcodes.LoadIndex, "int", idx.Kind().String())
		}
		val, ok := coll.VecGet(i)
		if !ok {
			return 0, indexOutOfBounds(vm.ip, opcodes.LoadIndex, coll.VecLen(), i)
		}
		vm.stack.Push(val)
	case values.KindMap:
		key, err := values.NewKey(idx)
		if err != nil {
			return 0, expectedType(vm.ip, opcodes.LoadIndex, "key", idx.Kind().String())
		}
		val, ok := coll.MapGet(key)
		if !ok {
			return 0, missingIndexKey(vm.ip, opcodes.LoadIndex)
		}
		vm.stack.Push(val)
	default:
		if fn, ok := vm.ctx.Function(runtimectx.ProtocolHash(values.TypeHash(coll), runtimectx.ProtocolIndexGet)); ok {
			vm.stack.Push(coll)
			vm.stack.Push(idx)
			if err := fn(vm.stack); err != nil {
				return 0, asVMError(vm.ip, opcodes.LoadIndex, err)
			}
		} else if idx.Kind() == values.KindInt {
			return 0, expectedType(vm.ip, opcodes.LoadIndex, "tuple", coll.Kind().String())
		} else {
			return 0, expectedType(vm.ip, opcodes.LoadIndex, "map", coll.Kind().String())
		}
	}
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execStoreIndex() (stepSignal, error) {
	val := vm.stack.Pop()
	idx := vm.stack.Pop()
	coll := vm.stack.Pop()
	switch coll.Kind() {
	case values.KindVec:
		i, ok := requireInt(idx)
		if !ok {
			return 0, expectedType(vm.ip, opcodes.StoreIndex, "int", idx.Kind().String())
		}
		if !coll.VecSet(i, val) {
			return 0, indexOutOfBounds(vm.ip, opcodes.StoreIndex, coll.VecLen(), i)
		}
	case values.KindMap:
		key, err := values.NewKey(idx)
		if err != nil {
			return 0, expectedType(vm.ip, opcodes.StoreIndex, "key", idx.Kind().String())
		}
		if err := coll.MapSet(key, val); err != nil {
			return 0, accessError(vm.ip, opcodes.StoreIndex, err)
		}
	default:
		return 0, expectedType(vm.ip, opcodes.StoreIndex, "vec or map", coll.Kind().String())
	}
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execMap(inst opcodes.Instruction) (stepSignal, error) {
	pairs := vm.stack.PopN(2 * int(inst.A))
	m := values.NewMap()
	for i := 0; i < len(pairs); i += 2 {
		k, err := values.NewKey(pairs[i])
		if err != nil {
			return 0, expectedType(vm.ip, opcodes.Map, "key", pairs[i].Kind().String())
		}
		if err := m.MapSet(k, pairs[i+1]); err != nil {
			return 0, accessError(vm.ip, opcodes.Map, err)
		}
	}
	vm.stack.Push(m)
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execRange() (stepSignal, error) {
	end := vm.stack.Pop()
	start := vm.stack.Pop()
	if start.Kind() != values.KindInt || end.Kind() != values.KindInt {
		return 0, expectedType(vm.ip, opcodes.Range, "int", start.Kind().String()+"/"+end.Kind().String())
	}
	cur := start.AsInt()
	last := end.AsInt()
	it := &values.IteratorState{
		Next: func() (values.Value, bool, error) {
			if cur >= last {
				return values.Unit, false, nil
			}
			v := values.NewInt(cur)
			cur++
			return v, true, nil
		},
	}
	vm.stack.Push(values.NewIterator(it))
	vm.ip++
	return sigContinue, nil
}

// execIter builds an Iterator over a Vec/Map/Tuple source, or via the
// INTO_ITER protocol for anything else — the named protocol a host
// module registers to make its own kinds iterable. Vec/Map sources
// hold an exclusive claim for the iterator's
// lifetime so a structural mutation mid-walk raises AccessError instead
// of silently skipping or repeating elements.
func (vm *VM) execIter() (stepSignal, error) {
	src := vm.stack.Pop()
	switch src.Kind() {
	case values.KindVec:
		release, err := src.VecClaim()
		if err != nil {
			return 0, accessError(vm.ip, opcodes.Iter, err)
		}
		i := 0
		vm.stack.Push(values.NewIterator(&values.IteratorState{
			Next: func() (values.Value, bool, error) {
				if i >= src.VecLen() {
					return values.Unit, false, nil
				}
				v, _ := src.VecGet(i)
				i++
				return v, true, nil
			},
			Release: release,
		}))
	case values.KindTuple:
		elems := src.TupleSlice()
		i := 0
		vm.stack.Push(values.NewIterator(&values.IteratorState{
			Next: func() (values.Value, bool, error) {
				if i >= len(elems) {
					return values.Unit, false, nil
				}
				v := elems[i]
				i++
				return v, true, nil
			},
		}))
	case values.KindMap:
		release, err := src.MapClaim()
		if err != nil {
			return 0, accessError(vm.ip, opcodes.Iter, err)
		}
		var entries []values.Value
		src.MapRange(func(k values.Key, v values.Value) bool {
			kv, kerr := k.ToValue()
			if kerr == nil {
				entries = append(entries, values.NewTuple([]values.Value{kv, v}))
			}
			return true
		})
		i := 0
		vm.stack.Push(values.NewIterator(&values.IteratorState{
			Next: func() (values.Value, bool, error) {
				if i >= len(entries) {
					return values.Unit, false, nil
				}
				v := entries[i]
				i++
				return v, true, nil
			},
			Release: release,
		}))
	default:
		fn, ok := vm.ctx.Function(runtimectx.ProtocolHash(values.TypeHash(src), runtimectx.ProtocolIntoIter))
		if !ok {
			return 0, protocolMissing(vm.ip, opcodes.Iter, values.TypeHash(src), runtimectx.ProtocolIntoIter)
		}
		vm.stack.Push(src)
		if err := fn(vm.stack); err != nil {
			return 0, asVMError(vm.ip, opcodes.Iter, err)
		}
	}
	vm.ip++
	return sigContinue, nil
}

// execIterNext pops the iterator, advances it, and — on continuation —
// pushes the produced value followed by the iterator again so the
// bytecode loop can call IterNext on it once more; on exhaustion the
// iterator's claim (if any) is released and control jumps to A without
// pushing a value.
func (vm *VM) execIterNext(inst opcodes.Instruction) (stepSignal, error) {
	top := vm.stack.Pop()
	if top.Kind() != values.KindIterator {
		return 0, expectedType(vm.ip, opcodes.IterNext, "iterator", top.Kind().String())
	}
	it := top.AsIterator()
	v, ok, err := it.Next()
	if err != nil {
		return 0, accessError(vm.ip, opcodes.IterNext, err)
	}
	if !ok {
		if it.Release != nil {
			it.Release()
		}
		vm.ip = int(inst.A)
		return sigContinue, nil
	}
	vm.stack.Push(v)
	vm.stack.Push(top)
	vm.ip++
	return sigContinue, nil
}

// execAwait resumes a Future's underlying execution until it completes
// or the future's own budget runs dry; an incomplete future re-suspends
// the whole calling Execution with Yielded, the same cooperative-
// suspension shape Await gives generator bodies.
func (vm *VM) execAwait() (stepSignal, error) {
	top := vm.stack.Pop()
	if top.Kind() != values.KindFuture {
		return 0, expectedType(vm.ip, opcodes.Await, "future", top.Kind().String())
	}
	f := top.AsFuture()
	if f.Done {
		vm.stack.Push(f.Result)
		vm.ip++
		return sigContinue, nil
	}
	result, done, err := f.Exec.ResumeValue(^uint64(0))
	if err != nil {
		f.Done, f.Err = true, err
		return 0, asVMError(vm.ip, opcodes.Await, err)
	}
	if done {
		f.Done, f.Result = true, result
		vm.stack.Push(result)
		vm.ip++
		return sigContinue, nil
	}
	vm.stack.Push(top)
	vm.yieldValue = values.Unit
	return sigYielded, nil
}

// execGeneratorNext resumes a Generator's underlying execution by one
// step, pushing the produced value and an is-done boolean as a Tuple —
// the shape a for-loop compiled over a generator iterates against.
func (vm *VM) execGeneratorNext() (stepSignal, error) {
	top := vm.stack.Pop()
	if top.Kind() != values.KindGenerator {
		return 0, expectedType(vm.ip, opcodes.GeneratorNext, "generator", top.Kind().String())
	}
	g := top.AsGenerator()
	if g.Done {
		vm.stack.Push(values.NewTuple([]values.Value{values.Unit, values.NewBool(true)}))
		vm.ip++
		return sigContinue, nil
	}
	v, done, err := g.Exec.ResumeValue(^uint64(0))
	if err != nil {
		g.Done = true
		return 0, asVMError(vm.ip, opcodes.GeneratorNext, err)
	}
	g.Done, g.Last = done, v
	vm.stack.Push(values.NewTuple([]values.Value{v, values.NewBool(done)}))
	vm.ip++
	return sigContinue, nil
}

func (vm *VM) execDropSet(inst opcodes.Instruction) {
	if int(inst.A) >= len(vm.unit.DropSets) {
		return
	}
	base := vm.stack.FrameBase()
	for _, off := range vm.unit.DropSets[inst.A] {
		vm.stack.SetAt(base+int(off), values.Unit)
	}
}

func (vm *VM) stringAt(idx uint32, op opcodes.Op) (string, error) {
	if int(idx) >= len(vm.unit.Strings) {
		return "", outOfBounds(vm.ip, op)
	}
	return vm.unit.Strings[idx], nil
}

func requireInt(v values.Value) (int, bool) {
	if v.Kind() != values.KindInt {
		return 0, false
	}
	return int(v.AsInt()), true
}

// asVMError passes a *VMError a native handler already constructed
// through unchanged, and wraps anything else as a UserPanic — a native
// function is host code, not bytecode, so an arbitrary Go error from it
// is treated the same way a panicking native call would be.
func asVMError(ip int, op opcodes.Op, err error) *VMError {
	if ve, ok := err.(*VMError); ok {
		return ve
	}
	return userPanic(ip, op, err.Error())
}
