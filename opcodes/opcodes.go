// Package opcodes defines the instruction set the virtual machine
// dispatches. Grounded on wudi-hey's opcodes/opcodes.go — a byte
// Opcode, grouped iota const blocks by category, a name table and a
// String() disassembler — but the encoding itself is redesigned: the
// teacher's Instruction is register-windowed (OpType1/OpType2/Result
// describe where each operand lives); this ISA is pure stack effect,
// so only a bare (Op, A, B) triple remains.
package opcodes

// Op is the single-byte instruction tag.
type Op byte

const (
	// Stack discipline. Copy{A}/Move{A} address A as an offset from the
	// current frame's base — the mechanism locals and parameters are
	// read and written through, since this ISA has no dedicated locals
	// array. Copy pushes a duplicate of frame[A]; Move pops the top of
	// stack into frame[A]. Drop{A}/Swap{A,B} instead address A (and B)
	// as a depth below the top of stack, independent of any frame —
	// Drop discards the value A slots below the top, shifting later
	// values down; Swap exchanges the values at depth A and depth B.
	Pop Op = iota
	PopN
	Clean
	Copy
	Move
	Drop
	Swap

	// Literals/constants. Push* with a pool index operand reference the
	// owning Unit's static pools (ints/floats/strings/bytes); PushBool
	// and PushChar carry their value inline in A. LoadConst resolves a
	// hash.Hash (split across A<<32|B) against the RuntimeContext's
	// constant table.
	PushUnit
	PushBool
	PushInt
	PushFloat
	PushChar
	PushString
	PushBytes
	LoadConst

	// Arithmetic/logic/comparison.
	Add
	Sub
	Mul
	Div
	Rem
	Neg
	Not
	And
	Or
	BitAnd
	BitOr
	BitXor
	Shl
	Shr
	Eq
	Neq
	Lt
	Le
	Gt
	Ge

	// Control flow. Jump targets are absolute instruction indices in A.
	Jump
	JumpIf
	JumpIfNot
	JumpIfOrPop
	MatchJump

	// Calls. Call and CallInstance carry a 64-bit hash.Hash (A<<32|B) and
	// trust the compiler for arity — the callee's arity is resolved from
	// the Unit's function directory or the RuntimeContext at dispatch
	// time, not carried on the instruction. CallInstance additionally
	// pops a receiver and composes its runtime type hash with the
	// operand hash (a method name) before resolving. CallOffset calls by
	// absolute instruction pointer (A) with an explicit arity (B) — used
	// for call sites with no stable hash to resolve (e.g. self-recursion
	// into a local entry point). CallFn calls the Function value on top
	// of the arguments (A = arity the call site pushed); a mismatch
	// against the Function's own arity is a BadArgumentCount, since this
	// is the one call form dispatching on a runtime value instead of a
	// statically known callee.
	Call
	CallOffset
	CallInstance
	CallFn
	Return
	ReturnUnit

	// Closures. The closed-over function's hash is split across A<<32|B;
	// the assembler emits a preceding Tuple building the captured
	// environment, which Closure consumes off the stack.
	Closure

	// Records/tuples. Record/Variant carry A = the FieldSets pool index
	// (type identity plus field order) and B = field count, redundant
	// with the pool entry but kept on the instruction so its stack
	// effect is computable without resolving the pool. LoadField/
	// StoreField address a field by a plain interned name (A = Strings
	// pool index), not by FieldSets index.
	Tuple
	Record
	Variant
	LoadField
	StoreField
	LoadIndex
	StoreIndex

	// Collections.
	Vec
	Map
	Range
	Iter
	IterNext

	// Suspension.
	Yield
	Await
	GeneratorNext

	// Type tests. A<<32|B is the hash.Hash of the expected type.
	TypeCheck

	// Scopes. A is the index into the Unit's drop-set pool.
	DropSet
)

var opNames = [...]string{
	Pop: "pop", PopN: "pop_n", Clean: "clean", Copy: "copy", Move: "move", Drop: "drop", Swap: "swap",
	PushUnit: "push_unit", PushBool: "push_bool", PushInt: "push_int", PushFloat: "push_float",
	PushChar: "push_char", PushString: "push_string", PushBytes: "push_bytes", LoadConst: "load_const",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem", Neg: "neg", Not: "not",
	And: "and", Or: "or", BitAnd: "bit_and", BitOr: "bit_or", BitXor: "bit_xor", Shl: "shl", Shr: "shr",
	Eq: "eq", Neq: "neq", Lt: "lt", Le: "le", Gt: "gt", Ge: "ge",
	Jump: "jump", JumpIf: "jump_if", JumpIfNot: "jump_if_not", JumpIfOrPop: "jump_if_or_pop", MatchJump: "match_jump",
	Call: "call", CallOffset: "call_offset", CallInstance: "call_instance", CallFn: "call_fn",
	Return: "return", ReturnUnit: "return_unit",
	Closure: "closure",
	Tuple:   "tuple", Record: "record", Variant: "variant",
	LoadField: "load_field", StoreField: "store_field", LoadIndex: "load_index", StoreIndex: "store_index",
	Vec: "vec", Map: "map", Range: "range", Iter: "iter", IterNext: "iter_next",
	Yield: "yield", Await: "await", GeneratorNext: "generator_next",
	TypeCheck: "type_check",
	DropSet:   "drop_set",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op(?)"
}

var opByName = func() map[string]Op {
	m := make(map[string]Op, len(opNames))
	for op, name := range opNames {
		if name != "" {
			m[name] = Op(op)
		}
	}
	return m
}()

// ParseOp is String's inverse, used by cmd/loom-asm's text assembler to
// resolve a mnemonic to its Op.
func ParseOp(name string) (Op, bool) {
	op, ok := opByName[name]
	return op, ok
}

// Instruction is the fixed-width encoding every opcode shares: one byte
// tag plus two 32-bit immediates. Most instructions use only A; two-
// immediate forms (LoadConst, Call, CallInstance, Closure, TypeCheck)
// split a 64-bit hash across A/B. MatchJump uses A as a MatchTables
// pool index — each entry already carries its own arm list, so no
// separate arm count or base is needed.
type Instruction struct {
	Op Op
	A  uint32
	B  uint32
}

// Hash64 packs a 64-bit operand (a hash.Hash) into A/B for opcodes that
// need one, and Unhash64 reverses it — kept here rather than importing
// package hash, since opcodes must stay below hash/values/unit in the
// dependency order the rest of the runtime core builds on.
func Hash64(h uint64) (a, b uint32) {
	return uint32(h >> 32), uint32(h)
}

func Unhash64(a, b uint32) uint64 {
	return uint64(a)<<32 | uint64(b)
}
