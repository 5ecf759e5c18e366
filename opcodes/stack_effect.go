package opcodes

// StackEffect is the net change in stack depth an instruction causes,
// independent of its operands — positive pushes, negative pops. A few
// opcodes have data-dependent effect (PopN, Clean, Call, CallFn, MatchJump,
// Tuple/Record/Variant/Vec/Map with a variable arity carried in A) and
// report zero here; their real effect is computed from the operand at
// disassembly/verification time via VariableEffect.
var stackEffect = map[Op]int{
	Pop: -1, Copy: 1, Move: -1, Drop: -1, Swap: 0,

	PushUnit: 1, PushBool: 1, PushInt: 1, PushFloat: 1, PushChar: 1,
	PushString: 1, PushBytes: 1, LoadConst: 1,

	Add: -1, Sub: -1, Mul: -1, Div: -1, Rem: -1,
	Neg: 0, Not: 0,
	And: -1, Or: -1, BitAnd: -1, BitOr: -1, BitXor: -1, Shl: -1, Shr: -1,
	Eq: -1, Neq: -1, Lt: -1, Le: -1, Gt: -1, Ge: -1,

	Jump: 0, JumpIf: -1, JumpIfNot: -1, JumpIfOrPop: 0,

	Return: 0, ReturnUnit: 0,

	LoadField: 0, StoreField: -2, LoadIndex: -1, StoreIndex: -3,

	Iter: 0,

	Yield: -1, Await: 0,

	TypeCheck: 0,
}

// StackEffect reports an instruction's fixed net stack effect, or
// (0, false) if the opcode's effect depends on its operand (PopN, Clean,
// Call/CallOffset/CallInstance/CallFn, MatchJump, Closure, Tuple,
// Record, Variant, Vec, Map, Range, IterNext, GeneratorNext, DropSet).
func (op Op) StackEffect() (int, bool) {
	if v, ok := stackEffect[op]; ok {
		return v, true
	}
	return 0, false
}

// VariableEffect computes the net stack effect for an opcode whose
// effect depends on its A operand, given the instruction's own operand
// values. Callers must only use this for opcodes where StackEffect
// returns false.
func VariableEffect(inst Instruction) int {
	switch inst.Op {
	case PopN:
		return -int(inst.A)
	case Clean:
		// A values beneath the top are discarded; the top stays.
		return -int(inst.A)
	case Call, CallInstance:
		// Arity isn't carried on the instruction — it's resolved from
		// the Unit/RuntimeContext at dispatch time — so the net effect
		// isn't computable from the bare instruction. A verifier needs
		// the owning Unit to check these; report 0 here.
		return 0
	case CallOffset:
		// B = arity args consumed, one result pushed.
		return -int(inst.B) + 1
	case CallFn:
		// A = arity args + 1 callee consumed, one result pushed.
		return -int(inst.A)
	case MatchJump:
		return -1
	case Closure:
		return 0 // captured-environment tuple consumed, closure pushed: net 0
	case Tuple, Vec:
		return -int(inst.A) + 1
	case Record, Variant:
		// A selects the FieldSet pool entry (type identity + field
		// order); B carries the field count redundantly so the net
		// effect is computable without resolving the pool.
		return -int(inst.B) + 1
	case Map:
		return -2*int(inst.A) + 1
	case Range:
		return -2 + 1
	case IterNext:
		return 1 // pushes value on continue; on end, jumps without pushing
	case GeneratorNext:
		return 0 // generator consumed, (value, done) tuple pushed: net 0
	case DropSet:
		return 0
	default:
		return 0
	}
}
