package lasm

import (
	"fmt"
	"io"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/unit"
)

// Disassemble prints the Unit's function directory followed by
// unit.Unit.Disassemble's own pool-resolving instruction listing — the
// function-boundary view a Unit's own method doesn't provide, layered
// on top of it rather than re-deriving instruction rendering here.
func Disassemble(w io.Writer, u *unit.Unit) error {
	u.Functions.Range(func(h hash.Hash, meta unit.FunctionMeta) bool {
		name := h.String()
		if u.Debug != nil {
			if n, ok := u.Debug.FunctionNames[h]; ok {
				name = n
			}
		}
		fmt.Fprintf(w, "; function %s entry=%d arity=%d kind=%s\n", name, meta.EntryIP, meta.Arity, meta.Kind)
		return true
	})
	return u.Disassemble(w)
}

// Tracer builds a vm.Trace-compatible func that prints each executed
// instruction to w, used by the run command's --trace flag.
func Tracer(w io.Writer) func(ip int, inst opcodes.Instruction) {
	return func(ip int, inst opcodes.Instruction) {
		fmt.Fprintf(w, "%6d  %-16s a=%-10d b=%d\n", ip, inst.Op.String(), inst.A, inst.B)
	}
}
