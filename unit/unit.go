// Package unit defines the immutable compiled artifact the virtual
// machine executes: an instruction stream plus the static pools and
// function directory a real compiler would populate. Grounded on
// wudi-hey's opcodes/opcodes.go organizational texture and
// registry/types.go's function-directory shape, generalized from a
// name-keyed registry to a hash-keyed one.
package unit

import (
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/values"
)

// FunctionKind distinguishes how Vm::call should treat a function's
// entry: a normal or closure call runs the body immediately (a closure
// takes its captured environment as its last argument); Generator/Async
// calls construct a suspended value instead.
type FunctionKind byte

const (
	FunctionNormal FunctionKind = iota
	FunctionClosure
	FunctionGenerator
	FunctionAsync
)

func (k FunctionKind) String() string {
	switch k {
	case FunctionNormal:
		return "normal"
	case FunctionClosure:
		return "closure"
	case FunctionGenerator:
		return "generator"
	case FunctionAsync:
		return "async"
	default:
		return "function-kind(?)"
	}
}

// FunctionMeta is a function directory entry: where its body starts,
// how many stack slots its frame opens with, and which of the four
// call shapes it is. Arity is the raw count a direct call must supply:
// for FunctionClosure it includes the captured-environment value as
// its last slot, since the body reads it with an ordinary Copy the
// same way it reads any other argument. CallFn hides that slot from
// its caller — a constructed Function value's public Arity (see
// values.Function) is this Arity minus one for a closure — and appends
// the captured Env itself before entering the frame.
type FunctionMeta struct {
	EntryIP int
	Arity   int
	Kind    FunctionKind
}

// FieldSet names a Record's or Variant's fields in construction order,
// resolved by index from the Record/Variant opcode's operand — the
// object-key tuple pool record/variant construction and pattern match
// share. VariantHash is zero for a plain Record.
type FieldSet struct {
	TypeHash    hash.Hash
	VariantHash hash.Hash
	Fields      []string
}

// MatchArm is one entry of a MatchJump table: if the scrutinee's
// variant hash equals Variant, control jumps to Target; MatchJump falls
// through to the next instruction if no arm matches.
type MatchArm struct {
	Variant hash.Hash
	Target  int
}

// DebugTable carries optional per-instruction source information and
// human-readable names, entirely absent in a Unit built without debug
// info (cmd/loom-asm can omit it; a release build would too).
type DebugTable struct {
	Spans         map[int]SourceSpan
	FunctionNames map[hash.Hash]string
	LocalNames    map[hash.Hash][]string
}

// SourceSpan is a source location a real compiler would stamp on each
// instruction; unit.Builder accepts them optionally.
type SourceSpan struct {
	File        string
	Line, Column int
}

// Unit is the immutable artifact the compiler hands the runtime core;
// the core never rereads source text. Build it with Builder; there is
// no exported mutator once built.
type Unit struct {
	Instructions []opcodes.Instruction
	Functions    hash.Map[FunctionMeta]

	Strings     []string
	ByteArrays  [][]byte
	Constants   []values.Value
	FieldSets   []FieldSet
	DropSets    [][]uint32
	MatchTables [][]MatchArm

	Debug *DebugTable // nil if the unit carries no debug info
}

// At returns the instruction at ip and whether ip is in bounds.
func (u *Unit) At(ip int) (opcodes.Instruction, bool) {
	if ip < 0 || ip >= len(u.Instructions) {
		return opcodes.Instruction{}, false
	}
	return u.Instructions[ip], true
}

// Function looks up a function directory entry by hash.
func (u *Unit) Function(h hash.Hash) (FunctionMeta, bool) {
	return u.Functions.Get(h)
}
