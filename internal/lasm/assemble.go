// Package lasm assembles a small, deliberately source-language-free
// textual instruction format into a *unit.Unit — there is no lexer/
// parser/resolver front end in this runtime core, so cmd/loom-asm and
// cmd/loomdbg are the only way to get hand-written bytecode into a
// Unit outside of unit.Builder calls in Go test code.
// Grounded on unit/builder.go's pool-interning API and
// opcodes/opcodes.go's mnemonic table (ParseOp is that table's
// inverse).
//
// Format, one instruction/directive per line:
//
//	.function NAME [arity=N] [kind=normal|closure|generator|async]
//	  label:
//	  push_int 42
//	  jump label
//	  return
//	.end
//
//	.matchtable NAME
//	  variant_name -> label
//	.end
//
// Literal operands are interned into the Unit's pools automatically
// (push_int/push_float/push_string/push_bytes); symbolic operands
// (load_const/call/call_instance/closure/type_check) are hashed with
// hash.Of; jump/call_offset targets and match table arms resolve
// against labels defined anywhere in the file, found in a first pass
// over the source; match_jump names a .matchtable block.
package lasm

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/unit"
	"github.com/wudi/loom/values"
)

// noOperandOps need no operand at all — purely stack-effect
// instructions with nothing left to encode.
var noOperandOps = map[opcodes.Op]bool{
	opcodes.Pop: true, opcodes.Return: true, opcodes.ReturnUnit: true,
	opcodes.PushUnit: true, opcodes.LoadIndex: true, opcodes.StoreIndex: true,
	opcodes.Range: true, opcodes.Iter: true, opcodes.Yield: true,
	opcodes.Await: true, opcodes.GeneratorNext: true,
	opcodes.Add: true, opcodes.Sub: true, opcodes.Mul: true, opcodes.Div: true,
	opcodes.Rem: true, opcodes.Neg: true, opcodes.Not: true, opcodes.And: true,
	opcodes.Or: true, opcodes.BitAnd: true, opcodes.BitOr: true, opcodes.BitXor: true,
	opcodes.Shl: true, opcodes.Shr: true, opcodes.Eq: true, opcodes.Neq: true,
	opcodes.Lt: true, opcodes.Le: true, opcodes.Gt: true, opcodes.Ge: true,
}

// intOperandOps take one bare integer literal as A.
var intOperandOps = map[opcodes.Op]bool{
	opcodes.PopN: true, opcodes.Clean: true, opcodes.Copy: true, opcodes.Move: true,
	opcodes.Drop: true, opcodes.Tuple: true, opcodes.Vec: true, opcodes.PushBool: true,
	opcodes.PushChar: true, opcodes.CallFn: true, opcodes.MatchJump: true,
}

// hashOperandOps take one symbolic name, hashed and split across A/B.
var hashOperandOps = map[opcodes.Op]bool{
	opcodes.LoadConst: true, opcodes.Call: true, opcodes.CallInstance: true,
	opcodes.Closure: true, opcodes.TypeCheck: true,
}

type asmError struct {
	line int
	msg  string
}

func (e *asmError) Error() string { return fmt.Sprintf("line %d: %s", e.line, e.msg) }

// Assemble parses src into a *unit.Unit.
func Assemble(src string) (*unit.Unit, error) {
	lines := strings.Split(src, "\n")

	labels, err := scanLabels(lines)
	if err != nil {
		return nil, err
	}

	b := unit.NewBuilder()
	var funcName string
	var funcEntry int
	var funcArity int
	var funcKind unit.FunctionKind
	inFunction := false

	var matchName string
	var matchArms []unit.MatchArm
	inMatchTable := false
	matchTables := map[string]uint32{}

	for i, raw := range lines {
		lineNo := i + 1
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			continue // label, already resolved in scanLabels
		}

		fields, err := tokenize(line)
		if err != nil {
			return nil, &asmError{lineNo, err.Error()}
		}
		head := fields[0]

		switch {
		case head == ".function":
			if inFunction {
				return nil, &asmError{lineNo, ".function without matching .end"}
			}
			inFunction = true
			funcName = fields[1]
			funcArity = 0
			funcKind = unit.FunctionNormal
			funcEntry = b.Len()
			for _, f := range fields[2:] {
				k, v, _ := strings.Cut(f, "=")
				switch k {
				case "arity":
					n, err := strconv.Atoi(v)
					if err != nil {
						return nil, &asmError{lineNo, "bad arity: " + v}
					}
					funcArity = n
				case "kind":
					funcKind, err = parseFunctionKind(v)
					if err != nil {
						return nil, &asmError{lineNo, err.Error()}
					}
				}
			}
			continue

		case head == ".matchtable":
			if inMatchTable {
				return nil, &asmError{lineNo, ".matchtable without matching .end"}
			}
			inMatchTable = true
			matchName = fields[1]
			matchArms = nil
			continue

		case head == ".end":
			if inMatchTable {
				idx := b.AddMatchTable(matchArms)
				matchTables[matchName] = idx
				inMatchTable = false
				continue
			}
			if inFunction {
				b.DeclareFunction(hash.Of(funcName), unit.FunctionMeta{
					EntryIP: funcEntry, Arity: funcArity, Kind: funcKind,
				})
				inFunction = false
				continue
			}
			return nil, &asmError{lineNo, ".end with nothing open"}
		}

		if inMatchTable {
			// "variant_name -> label"
			if len(fields) != 3 || fields[1] != "->" {
				return nil, &asmError{lineNo, "matchtable arm must be 'variant -> label'"}
			}
			target, ok := labels[fields[2]]
			if !ok {
				return nil, &asmError{lineNo, "unknown label " + fields[2]}
			}
			matchArms = append(matchArms, unit.MatchArm{Variant: hash.Of(fields[0]), Target: target})
			continue
		}

		if !inFunction {
			return nil, &asmError{lineNo, "instruction outside .function block"}
		}

		if err := emitInstruction(b, head, fields[1:], labels, matchTables); err != nil {
			return nil, &asmError{lineNo, err.Error()}
		}
	}

	if inFunction {
		return nil, &asmError{len(lines), "missing .end for .function " + funcName}
	}
	return b.Build(), nil
}

func parseFunctionKind(s string) (unit.FunctionKind, error) {
	switch s {
	case "normal":
		return unit.FunctionNormal, nil
	case "closure":
		return unit.FunctionClosure, nil
	case "generator":
		return unit.FunctionGenerator, nil
	case "async":
		return unit.FunctionAsync, nil
	default:
		return 0, fmt.Errorf("unknown function kind %q", s)
	}
}

// scanLabels makes a first pass counting emitted instructions to learn
// every label's resolved ip before any operand needing one is encoded.
func scanLabels(lines []string) (map[string]int, error) {
	labels := map[string]int{}
	ip := 0
	inMatchTable := false
	for i, raw := range lines {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		if line == ".end" {
			inMatchTable = false
			continue
		}
		if strings.HasPrefix(line, ".matchtable") {
			inMatchTable = true
			continue
		}
		if strings.HasPrefix(line, ".") {
			continue
		}
		if inMatchTable {
			continue // arm lines ("variant -> label") emit nothing
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			name := strings.TrimSuffix(line, ":")
			if _, dup := labels[name]; dup {
				return nil, &asmError{i + 1, "duplicate label " + name}
			}
			labels[name] = ip
			continue
		}
		ip++
	}
	return labels, nil
}

func emitInstruction(b *unit.Builder, name string, args []string, labels map[string]int, matchTables map[string]uint32) error {
	op, ok := opcodes.ParseOp(name)
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", name)
	}

	switch {
	case noOperandOps[op]:
		b.Emit(opcodes.Instruction{Op: op})
		return nil

	case op == opcodes.Swap:
		a, err := expectInt(args, 0)
		if err != nil {
			return err
		}
		c, err := expectInt(args, 1)
		if err != nil {
			return err
		}
		b.Emit(opcodes.Instruction{Op: op, A: uint32(a), B: uint32(c)})
		return nil

	case intOperandOps[op]:
		if op == opcodes.MatchJump {
			idx, ok := matchTables[requireArg(args, 0)]
			if !ok {
				return fmt.Errorf("unknown match table %q", requireArg(args, 0))
			}
			b.Emit(opcodes.Instruction{Op: op, A: idx})
			return nil
		}
		a, err := expectInt(args, 0)
		if err != nil {
			return err
		}
		b.Emit(opcodes.Instruction{Op: op, A: uint32(a)})
		return nil

	case op == opcodes.PushInt:
		n, err := strconv.ParseInt(requireArg(args, 0), 10, 64)
		if err != nil {
			return fmt.Errorf("bad int literal: %v", err)
		}
		idx := b.AddConstant(values.NewInt(n))
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	case op == opcodes.PushFloat:
		f, err := strconv.ParseFloat(requireArg(args, 0), 64)
		if err != nil {
			return fmt.Errorf("bad float literal: %v", err)
		}
		idx := b.AddConstant(values.NewFloat(f))
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	case op == opcodes.PushString:
		s, err := strconv.Unquote(requireArg(args, 0))
		if err != nil {
			return fmt.Errorf("bad string literal: %v", err)
		}
		idx := b.AddString(s)
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	case op == opcodes.PushBytes:
		raw, err := hex.DecodeString(requireArg(args, 0))
		if err != nil {
			return fmt.Errorf("bad hex literal: %v", err)
		}
		idx := b.AddBytes(raw)
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	case hashOperandOps[op]:
		h := uint64(hash.Of(requireArg(args, 0)))
		a, c := opcodes.Hash64(h)
		b.Emit(opcodes.Instruction{Op: op, A: a, B: c})
		return nil

	case op == opcodes.CallOffset:
		target, ok := labels[requireArg(args, 0)]
		if !ok {
			return fmt.Errorf("unknown label %q", args[0])
		}
		arity, err := expectInt(args, 1)
		if err != nil {
			return err
		}
		b.Emit(opcodes.Instruction{Op: op, A: uint32(target), B: uint32(arity)})
		return nil

	case op == opcodes.Jump || op == opcodes.JumpIf || op == opcodes.JumpIfNot || op == opcodes.JumpIfOrPop:
		target, ok := labels[requireArg(args, 0)]
		if !ok {
			return fmt.Errorf("unknown label %q", args[0])
		}
		b.Emit(opcodes.Instruction{Op: op, A: uint32(target)})
		return nil

	case op == opcodes.LoadField || op == opcodes.StoreField:
		idx := b.AddString(requireArg(args, 0))
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	case op == opcodes.Record || op == opcodes.Variant:
		return emitRecordLike(b, op, args)

	case op == opcodes.DropSet:
		slots := make([]uint32, 0, len(args))
		for _, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("bad drop-set slot: %v", err)
			}
			slots = append(slots, uint32(n))
		}
		idx := b.AddDropSet(slots)
		b.Emit(opcodes.Instruction{Op: op, A: idx})
		return nil

	default:
		return fmt.Errorf("mnemonic %q not supported by this assembler", name)
	}
}

// emitRecordLike handles "record Type field1 field2" and
// "variant Enum Variant field1 field2".
func emitRecordLike(b *unit.Builder, op opcodes.Op, args []string) error {
	var fs unit.FieldSet
	var fields []string
	if op == opcodes.Record {
		if len(args) < 1 {
			return fmt.Errorf("record needs a type name")
		}
		fs.TypeHash = hash.Of(args[0])
		fields = args[1:]
	} else {
		if len(args) < 2 {
			return fmt.Errorf("variant needs an enum and variant name")
		}
		fs.TypeHash = hash.Of(args[0])
		fs.VariantHash = hash.Of(args[1])
		fields = args[2:]
	}
	fs.Fields = append([]string(nil), fields...)
	idx := b.AddFieldSet(fs)
	b.Emit(opcodes.Instruction{Op: op, A: idx, B: uint32(len(fields))})
	return nil
}

func expectInt(args []string, i int) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing operand %d", i)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("bad integer operand %q: %v", args[i], err)
	}
	return n, nil
}

func requireArg(args []string, i int) string {
	if i >= len(args) {
		return ""
	}
	return args[i]
}

func stripComment(line string) string {
	inQuote := false
	for i, r := range line {
		switch r {
		case '"':
			inQuote = !inQuote
		case '#':
			if !inQuote {
				return line[:i]
			}
		}
	}
	return line
}

// tokenize splits a line on whitespace, keeping double-quoted segments
// (which may contain spaces) as a single field.
func tokenize(line string) ([]string, error) {
	var fields []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ' ' || c == '\t':
			if inQuote {
				cur.WriteByte(c)
			} else {
				flush()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted string")
	}
	flush()
	return fields, nil
}
