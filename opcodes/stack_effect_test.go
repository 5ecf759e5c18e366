package opcodes

import "testing"

// TestEveryOpHasAKnownEffect guards the fixed stack-effect table:
// every Op must resolve through either the fixed table or
// VariableEffect, none silently falling through to an unaccounted
// default.
func TestEveryOpHasAKnownEffect(t *testing.T) {
	variable := map[Op]bool{
		PopN: true, Clean: true, Call: true, CallOffset: true, CallInstance: true, CallFn: true,
		MatchJump: true, Closure: true, Tuple: true, Record: true, Variant: true,
		Vec: true, Map: true, Range: true, IterNext: true, GeneratorNext: true, DropSet: true,
	}
	for op := Pop; op <= DropSet; op++ {
		if _, ok := op.StackEffect(); ok {
			continue
		}
		if variable[op] {
			continue
		}
		t.Errorf("op %s has neither a fixed nor a documented variable stack effect", op)
	}
}

func TestFixedEffects(t *testing.T) {
	cases := []struct {
		op   Op
		want int
	}{
		{Pop, -1},
		{PushInt, 1},
		{Add, -1},
		{StoreField, -2},
		{LoadIndex, -1},
	}
	for _, c := range cases {
		got, ok := c.op.StackEffect()
		if !ok {
			t.Fatalf("%s: expected a fixed effect", c.op)
		}
		if got != c.want {
			t.Errorf("%s: got %d want %d", c.op, got, c.want)
		}
	}
}

func TestVariableEffects(t *testing.T) {
	if got := VariableEffect(Instruction{Op: PopN, A: 3}); got != -3 {
		t.Errorf("PopN{3}: got %d want -3", got)
	}
	if got := VariableEffect(Instruction{Op: CallFn, A: 2}); got != -2 {
		t.Errorf("CallFn{2}: got %d want -2", got)
	}
	if got := VariableEffect(Instruction{Op: CallOffset, B: 2}); got != -1 {
		t.Errorf("CallOffset{arity:2}: got %d want -1", got)
	}
	if got := VariableEffect(Instruction{Op: Vec, A: 4}); got != -3 {
		t.Errorf("Vec{4}: got %d want -3", got)
	}
	if got := VariableEffect(Instruction{Op: Map, A: 2}); got != -3 {
		t.Errorf("Map{2}: got %d want -3", got)
	}
}
