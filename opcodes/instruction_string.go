package opcodes

import "fmt"

// String renders a raw disassembly line. It cannot resolve pool/hash
// operands into names — that requires the owning Unit's static pools —
// so unit.Disassemble re-renders operand-bearing instructions itself
// and only falls back to this for opcodes it doesn't special-case.
func (inst Instruction) String() string {
	switch inst.Op {
	case Pop, Copy, Move, Drop, Swap, Neg, Not, Jump, Return, ReturnUnit, Iter, Yield, Await, GeneratorNext:
		return inst.Op.String()
	case PopN, PushBool, PushChar, JumpIf, JumpIfNot, JumpIfOrPop, Clean, DropSet,
		Tuple, Record, Variant, Vec, IterNext:
		return fmt.Sprintf("%s %d", inst.Op, inst.A)
	case Map:
		return fmt.Sprintf("%s %d", inst.Op, inst.A)
	default:
		return fmt.Sprintf("%s %d %d", inst.Op, inst.A, inst.B)
	}
}
