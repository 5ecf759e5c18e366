package unit

import (
	"fmt"
	"io"

	"github.com/wudi/loom/opcodes"
)

// Disassemble writes a readable listing of the instruction stream,
// resolving pool operands (strings, constants, field sets) into their
// values — the piece opcodes.Instruction.String() can't do on its
// own, since it has no Unit to resolve against. Hash operands
// (load_const/call/call_instance/closure/type_check) are printed as
// raw hex, not as names. Grounded on the teacher's
// Instruction.String()/opNames texture in opcodes/opcodes.go,
// generalized to pool resolution.
func (u *Unit) Disassemble(w io.Writer) error {
	for ip, inst := range u.Instructions {
		label := ""
		if u.Debug != nil {
			if span, ok := u.Debug.Spans[ip]; ok {
				label = fmt.Sprintf("  ; %s:%d:%d", span.File, span.Line, span.Column)
			}
		}
		line := u.disassembleOne(ip, inst)
		if _, err := fmt.Fprintf(w, "%6d  %s%s\n", ip, line, label); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unit) disassembleOne(ip int, inst opcodes.Instruction) string {
	switch inst.Op {
	case opcodes.PushString:
		return fmt.Sprintf("push_string %q", u.stringAt(inst.A))
	case opcodes.PushBytes:
		return fmt.Sprintf("push_bytes %d bytes", len(u.byteArrayAt(inst.A)))
	case opcodes.PushInt, opcodes.PushFloat:
		if int(inst.A) < len(u.Constants) {
			return fmt.Sprintf("%s %s", inst.Op, u.Constants[inst.A].Display())
		}
		return inst.String()
	case opcodes.Record, opcodes.Variant:
		if int(inst.A) < len(u.FieldSets) {
			fs := u.FieldSets[inst.A]
			return fmt.Sprintf("%s %s %v", inst.Op, fs.TypeHash, fs.Fields)
		}
		return inst.String()
	case opcodes.TypeCheck, opcodes.Closure, opcodes.LoadConst, opcodes.Call, opcodes.CallInstance:
		h := opcodes.Unhash64(inst.A, inst.B)
		return fmt.Sprintf("%s %#016x", inst.Op, h)
	default:
		return inst.String()
	}
}

func (u *Unit) stringAt(idx uint32) string {
	if int(idx) < len(u.Strings) {
		return u.Strings[idx]
	}
	return "<out of range>"
}

func (u *Unit) byteArrayAt(idx uint32) []byte {
	if int(idx) < len(u.ByteArrays) {
		return u.ByteArrays[idx]
	}
	return nil
}
