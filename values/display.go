package values

import (
	"fmt"
	"strconv"
	"strings"
)

// Display is the built-in fallback renderer used when no DISPLAY
// protocol handler is registered for a value's type. runtimectx
// consults the protocol table first; this exists so every value has
// some textual form even in a bare RuntimeContext (tests, disassembly),
// grounded on wudi-hey's VarDump/PrintR fallback formatting in
// values/value.go, stripped of PHP's var_dump-specific indentation and
// recursion markers.
func (v Value) Display() string {
	return v.render(false, make(map[*heapObject]bool))
}

// Debug is the fallback DEBUG protocol renderer: like Display but
// quotes strings and chars, for disassembler/REPL inspection.
func (v Value) Debug() string {
	return v.render(true, make(map[*heapObject]bool))
}

func (v Value) render(debug bool, seen map[*heapObject]bool) string {
	switch v.kind {
	case KindUnit:
		return "()"
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindChar:
		if debug {
			return strconv.QuoteRune(v.AsChar())
		}
		return string(v.AsChar())
	case KindType:
		return v.AsTypeHash().String()
	case KindString:
		if debug {
			return strconv.Quote(v.AsString())
		}
		return v.AsString()
	case KindBytes:
		return fmt.Sprintf("b%q", v.AsBytes())
	case KindVec:
		if seen[v.heap] {
			return "[...]"
		}
		seen[v.heap] = true
		parts := make([]string, 0, v.VecLen())
		for _, e := range v.VecSlice() {
			parts = append(parts, e.render(true, seen))
		}
		delete(seen, v.heap)
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		if seen[v.heap] {
			return "#{...}"
		}
		seen[v.heap] = true
		parts := make([]string, 0, v.MapLen())
		v.MapRange(func(k Key, val Value) bool {
			kv, err := k.ToValue()
			keyStr := string(k)
			if err == nil {
				keyStr = kv.render(true, seen)
			}
			parts = append(parts, keyStr+": "+val.render(true, seen))
			return true
		})
		delete(seen, v.heap)
		return "#{" + strings.Join(parts, ", ") + "}"
	case KindTuple:
		parts := make([]string, 0, v.TupleLen())
		for _, e := range v.TupleSlice() {
			parts = append(parts, e.render(true, seen))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindRecord:
		fields := v.RecordFields()
		parts := make([]string, 0, len(fields))
		for name, val := range fields {
			parts = append(parts, name+": "+val.render(true, seen))
		}
		return v.RecordTypeHash().String() + "{" + strings.Join(parts, ", ") + "}"
	case KindVariant:
		fields := v.VariantFields()
		parts := make([]string, 0, len(fields))
		for name, val := range fields {
			parts = append(parts, name+": "+val.render(true, seen))
		}
		return v.VariantHash().String() + "{" + strings.Join(parts, ", ") + "}"
	case KindFunction:
		return fmt.Sprintf("fn(%s)", v.AsFunction().Hash)
	case KindGenerator:
		return "generator"
	case KindFuture:
		return "future"
	case KindIterator:
		return "iterator"
	case KindAny:
		th, _ := v.AsAny()
		return fmt.Sprintf("any(%s)", th)
	default:
		return "?"
	}
}
