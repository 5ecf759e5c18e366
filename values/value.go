package values

import (
	"github.com/wudi/loom/hash"
)

// Value is the tagged union flowing across the stack, unit static pools,
// and native function boundaries. Primitive kinds are inline (prim holds
// the bit pattern); heap kinds share a *heapObject so every Value built
// from the same constructor call observes the others' mutations.
type Value struct {
	kind Kind
	prim uint64
	heap *heapObject
}

// Kind reports the Value's representation tag.
func (v Value) Kind() Kind { return v.kind }

// --- primitive constructors ---

// Unit is the singular value of unit type, analogous to PHP's null but
// distinct from "absent" — there is no separate "undefined" in this model.
var Unit = Value{kind: KindUnit}

func NewBool(b bool) Value {
	var p uint64
	if b {
		p = 1
	}
	return Value{kind: KindBool, prim: p}
}

func NewInt(i int64) Value {
	return Value{kind: KindInt, prim: uint64(i)}
}

func NewFloat(f float64) Value {
	return Value{kind: KindFloat, prim: floatBits(f)}
}

func NewChar(r rune) Value {
	return Value{kind: KindChar, prim: uint64(uint32(r))}
}

func NewType(h hash.Hash) Value {
	return Value{kind: KindType, prim: uint64(h)}
}

// --- primitive accessors (caller must check Kind first) ---

func (v Value) AsBool() bool    { return v.prim != 0 }
func (v Value) AsInt() int64    { return int64(v.prim) }
func (v Value) AsFloat() float64 { return floatFromBits(v.prim) }
func (v Value) AsChar() rune    { return rune(uint32(v.prim)) }
func (v Value) AsTypeHash() hash.Hash { return hash.Hash(v.prim) }

// --- heap constructors ---

func NewString(s string) Value {
	return Value{kind: KindString, heap: newHeapObject(s)}
}

func NewBytes(b []byte) Value {
	return Value{kind: KindBytes, heap: newHeapObject(&bytesData{b: b})}
}

func NewVec(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindVec, heap: newHeapObject(&vecData{elems: elems})}
}

func NewMap() Value {
	return Value{kind: KindMap, heap: newHeapObject(&mapData{entries: make(map[Key]Value)})}
}

func NewTuple(elems []Value) Value {
	return Value{kind: KindTuple, heap: newHeapObject(&tupleData{elems: elems})}
}

func NewRecord(typeHash hash.Hash, fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{kind: KindRecord, heap: newHeapObject(&recordData{typeHash: typeHash, fields: fields})}
}

func NewVariant(enumHash, variantHash hash.Hash, fields map[string]Value) Value {
	if fields == nil {
		fields = make(map[string]Value)
	}
	return Value{kind: KindVariant, heap: newHeapObject(&variantData{enumHash: enumHash, variantHash: variantHash, fields: fields})}
}

func NewFunction(fn *Function) Value {
	return Value{kind: KindFunction, heap: newHeapObject(fn)}
}

func NewGenerator(g *GeneratorState) Value {
	return Value{kind: KindGenerator, heap: newHeapObject(g)}
}

func NewFuture(f *FutureState) Value {
	return Value{kind: KindFuture, heap: newHeapObject(f)}
}

func NewIterator(it *IteratorState) Value {
	return Value{kind: KindIterator, heap: newHeapObject(it)}
}

func NewAny(typeHash hash.Hash, data any) Value {
	return Value{kind: KindAny, heap: newHeapObject(&anyData{typeHash: typeHash, data: data})}
}

// --- heap payload structs ---

type bytesData struct{ b []byte }
type vecData struct{ elems []Value }
type mapData struct{ entries map[Key]Value }
type tupleData struct{ elems []Value }
type recordData struct {
	typeHash hash.Hash
	fields   map[string]Value
}
type variantData struct {
	enumHash, variantHash hash.Hash
	fields                map[string]Value
}
type anyData struct {
	typeHash hash.Hash
	data     any
}

// heapHandle returns the Value's heap pointer for identity comparisons
// (two Values alias the same object iff their handles are equal).
func (v Value) heapHandle() *heapObject { return v.heap }

// SameHandle reports whether two heap Values share storage.
func (v Value) SameHandle(other Value) bool {
	return v.heap != nil && v.heap == other.heap
}

// --- string ---

func (v Value) AsString() string {
	return v.heap.payload.(string)
}

// --- bytes ---

func (v Value) AsBytes() []byte {
	return v.heap.payload.(*bytesData).b
}

func (v Value) SetBytes(b []byte) {
	v.heap.payload.(*bytesData).b = b
}

// --- vec ---

func (v Value) VecLen() int {
	return len(v.heap.payload.(*vecData).elems)
}

func (v Value) VecGet(i int) (Value, bool) {
	d := v.heap.payload.(*vecData).elems
	if i < 0 || i >= len(d) {
		return Value{}, false
	}
	return d[i], true
}

func (v Value) VecSet(i int, elem Value) bool {
	d := v.heap.payload.(*vecData)
	if i < 0 || i >= len(d.elems) {
		return false
	}
	d.elems[i] = elem
	return true
}

func (v Value) VecPush(elem Value) error {
	d := v.heap.payload.(*vecData)
	release, err := v.heap.claim()
	if err != nil {
		return err
	}
	defer release()
	d.elems = append(d.elems, elem)
	return nil
}

// VecPop removes and returns the last element, reporting false if the
// vec was empty.
func (v Value) VecPop() (Value, bool, error) {
	d := v.heap.payload.(*vecData)
	if len(d.elems) == 0 {
		return Value{}, false, nil
	}
	release, err := v.heap.claim()
	if err != nil {
		return Value{}, false, err
	}
	defer release()
	last := d.elems[len(d.elems)-1]
	d.elems = d.elems[:len(d.elems)-1]
	return last, true, nil
}

// VecClear truncates the vec to zero length in place.
func (v Value) VecClear() error {
	d := v.heap.payload.(*vecData)
	release, err := v.heap.claim()
	if err != nil {
		return err
	}
	defer release()
	d.elems = d.elems[:0]
	return nil
}

func (v Value) VecSlice() []Value {
	return v.heap.payload.(*vecData).elems
}

// VecClaim holds an exclusive claim on the underlying vector for the
// duration of an iteration, so a concurrent structural mutation raises
// AccessError instead of invalidating indices mid-walk.
func (v Value) VecClaim() (release func(), err error) {
	return v.heap.claim()
}

// --- map ---

func (v Value) MapLen() int {
	return len(v.heap.payload.(*mapData).entries)
}

func (v Value) MapGet(k Key) (Value, bool) {
	val, ok := v.heap.payload.(*mapData).entries[k]
	return val, ok
}

func (v Value) MapSet(k Key, val Value) error {
	release, err := v.heap.claim()
	if err != nil {
		return err
	}
	defer release()
	v.heap.payload.(*mapData).entries[k] = val
	return nil
}

func (v Value) MapDelete(k Key) error {
	release, err := v.heap.claim()
	if err != nil {
		return err
	}
	defer release()
	delete(v.heap.payload.(*mapData).entries, k)
	return nil
}

// MapClear removes every entry in place.
func (v Value) MapClear() error {
	release, err := v.heap.claim()
	if err != nil {
		return err
	}
	defer release()
	d := v.heap.payload.(*mapData)
	for k := range d.entries {
		delete(d.entries, k)
	}
	return nil
}

func (v Value) MapRange(fn func(Key, Value) bool) {
	for k, val := range v.heap.payload.(*mapData).entries {
		if !fn(k, val) {
			return
		}
	}
}

func (v Value) MapClaim() (release func(), err error) {
	return v.heap.claim()
}

// --- tuple ---

func (v Value) TupleLen() int {
	return len(v.heap.payload.(*tupleData).elems)
}

func (v Value) TupleGet(i int) (Value, bool) {
	d := v.heap.payload.(*tupleData).elems
	if i < 0 || i >= len(d) {
		return Value{}, false
	}
	return d[i], true
}

func (v Value) TupleSlice() []Value {
	return v.heap.payload.(*tupleData).elems
}

// --- record ---

func (v Value) RecordTypeHash() hash.Hash {
	return v.heap.payload.(*recordData).typeHash
}

func (v Value) RecordGet(field string) (Value, bool) {
	val, ok := v.heap.payload.(*recordData).fields[field]
	return val, ok
}

func (v Value) RecordSet(field string, val Value) {
	v.heap.payload.(*recordData).fields[field] = val
}

func (v Value) RecordFields() map[string]Value {
	return v.heap.payload.(*recordData).fields
}

// --- variant ---

func (v Value) VariantEnumHash() hash.Hash {
	return v.heap.payload.(*variantData).enumHash
}

func (v Value) VariantHash() hash.Hash {
	return v.heap.payload.(*variantData).variantHash
}

func (v Value) VariantGet(field string) (Value, bool) {
	val, ok := v.heap.payload.(*variantData).fields[field]
	return val, ok
}

func (v Value) VariantFields() map[string]Value {
	return v.heap.payload.(*variantData).fields
}

// --- function / generator / future / iterator / any ---

func (v Value) AsFunction() *Function {
	return v.heap.payload.(*Function)
}

func (v Value) AsGenerator() *GeneratorState {
	return v.heap.payload.(*GeneratorState)
}

func (v Value) AsFuture() *FutureState {
	return v.heap.payload.(*FutureState)
}

func (v Value) AsIterator() *IteratorState {
	return v.heap.payload.(*IteratorState)
}

func (v Value) AsAny() (hash.Hash, any) {
	d := v.heap.payload.(*anyData)
	return d.typeHash, d.data
}
