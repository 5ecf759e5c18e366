package unit

import (
	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/values"
)

// Builder hand-assembles a Unit one instruction and pool entry at a
// time — the compiler's role of handing the core a populated Unit,
// stood in for here since there is no lexer/parser/resolver front end
// in this module. cmd/loom-asm and every test in this module build
// units this way.
type Builder struct {
	instructions []opcodes.Instruction
	functions    hash.Map[FunctionMeta]

	strings     []string
	byteArrays  [][]byte
	constants   []values.Value
	fieldSets   []FieldSet
	dropSets    [][]uint32
	matchTables [][]MatchArm

	debug *DebugTable
}

// NewBuilder returns an empty Builder ready to accept instructions.
func NewBuilder() *Builder {
	return &Builder{functions: hash.NewMap[FunctionMeta](0)}
}

// Emit appends an instruction and returns its index, for callers that
// need to patch a jump target once the destination is known.
func (b *Builder) Emit(inst opcodes.Instruction) int {
	b.instructions = append(b.instructions, inst)
	return len(b.instructions) - 1
}

// Patch overwrites a previously emitted instruction, used for forward
// jumps whose target wasn't known at Emit time.
func (b *Builder) Patch(ip int, inst opcodes.Instruction) {
	b.instructions[ip] = inst
}

// Len reports the current instruction count, i.e. the ip the next
// Emit will receive — useful for recording a jump target before it
// exists.
func (b *Builder) Len() int {
	return len(b.instructions)
}

// DeclareFunction registers a function directory entry.
func (b *Builder) DeclareFunction(h hash.Hash, meta FunctionMeta) {
	b.functions.Set(h, meta)
}

// AddString interns a string literal, returning its pool index for use
// as a PushString operand.
func (b *Builder) AddString(s string) uint32 {
	b.strings = append(b.strings, s)
	return uint32(len(b.strings) - 1)
}

// AddBytes interns a byte literal.
func (b *Builder) AddBytes(bs []byte) uint32 {
	b.byteArrays = append(b.byteArrays, bs)
	return uint32(len(b.byteArrays) - 1)
}

// AddConstant interns a pre-built literal Value (Int/Float/whatever a
// PushInt/PushFloat/etc. opcode resolves at runtime).
func (b *Builder) AddConstant(v values.Value) uint32 {
	b.constants = append(b.constants, v)
	return uint32(len(b.constants) - 1)
}

// AddFieldSet interns a Record/Variant field-name ordering.
func (b *Builder) AddFieldSet(fs FieldSet) uint32 {
	b.fieldSets = append(b.fieldSets, fs)
	return uint32(len(b.fieldSets) - 1)
}

// AddDropSet interns a list of frame-relative stack slots a DropSet
// instruction clears on scope exit.
func (b *Builder) AddDropSet(slots []uint32) uint32 {
	b.dropSets = append(b.dropSets, slots)
	return uint32(len(b.dropSets) - 1)
}

// AddMatchTable interns a MatchJump arm table.
func (b *Builder) AddMatchTable(arms []MatchArm) uint32 {
	b.matchTables = append(b.matchTables, arms)
	return uint32(len(b.matchTables) - 1)
}

// SetDebug attaches optional debug metadata; a Unit built without a
// call to SetDebug has Debug == nil, which every consumer must treat
// as a valid, simply less helpful, Unit.
func (b *Builder) SetDebug(d *DebugTable) {
	b.debug = d
}

// Build seals the Builder into an immutable Unit. The Builder remains
// usable afterward (Build copies its pools), though nothing in this
// module relies on that.
func (b *Builder) Build() *Unit {
	return &Unit{
		Instructions: append([]opcodes.Instruction(nil), b.instructions...),
		Functions:    b.functions.Clone(),
		Strings:      append([]string(nil), b.strings...),
		ByteArrays:   append([][]byte(nil), b.byteArrays...),
		Constants:    append([]values.Value(nil), b.constants...),
		FieldSets:    append([]FieldSet(nil), b.fieldSets...),
		DropSets:     append([][]uint32(nil), b.dropSets...),
		MatchTables:  append([][]MatchArm(nil), b.matchTables...),
		Debug:        b.debug,
	}
}
