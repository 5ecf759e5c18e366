// Package testmod is a runtime-side rendering of
// original_source/.../modules/test.rs's assert!/assert_eq!/assert_ne!
// macros. Those are compile-time macros that expand to an `if` plus a
// ::std::panic call — a source-language front-end concern this runtime
// core has no macro expander for — there is no parser/compiler front
// end in this module at all. The runtime-level equivalent is three ordinary native
// functions that perform the same check and, on failure, return a Go
// error a native FunctionHandler's caller turns into a UserPanic
// (vm/exec.go's asVMError) — the same panic a bytecode-compiled
// assert! would have reached, just raised directly instead of via
// expanded `if`/`panic` bytecode.
package testmod

import (
	"fmt"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/runtimectx"
	"github.com/wudi/loom/values"
	"github.com/wudi/loom/vmstack"
)

// Module returns the test module: assert, assert_eq, assert_ne.
func Module() *runtimectx.Module {
	m := runtimectx.NewModule("test")
	m.Function(hash.Of("test::assert"), assert)
	m.Function(hash.Of("test::assert_eq"), assertEq)
	m.Function(hash.Of("test::assert_ne"), assertNe)
	return m
}

// assert(cond, message) pops message then cond; message defaults to a
// generic string when the caller passes Unit instead of a String,
// mirroring the macro's two call shapes (assert!(expr) vs
// assert!(expr, "message")).
func assert(stack *vmstack.Stack) error {
	message := stack.Pop()
	cond := stack.Pop()
	if cond.Kind() != values.KindBool {
		return fmt.Errorf("test.assert: condition must be a bool, got %s", cond.Kind())
	}
	if cond.AsBool() {
		stack.Push(values.Unit)
		return nil
	}
	return fmt.Errorf("assertion failed: %s", assertMessage(message, "assertion failed"))
}

func assertEq(stack *vmstack.Stack) error {
	message := stack.Pop()
	right := stack.Pop()
	left := stack.Pop()
	if values.Eq(left, right) {
		stack.Push(values.Unit)
		return nil
	}
	return fmt.Errorf("assertion failed (left == right): %s\nleft: %s\nright: %s",
		assertMessage(message, "assertion failed (left == right):"), left.Debug(), right.Debug())
}

func assertNe(stack *vmstack.Stack) error {
	message := stack.Pop()
	right := stack.Pop()
	left := stack.Pop()
	if !values.Eq(left, right) {
		stack.Push(values.Unit)
		return nil
	}
	return fmt.Errorf("assertion failed (left != right): %s\nleft: %s\nright: %s",
		assertMessage(message, "assertion failed (left != right):"), left.Debug(), right.Debug())
}

func assertMessage(message values.Value, fallback string) string {
	if message.Kind() == values.KindString {
		return message.AsString()
	}
	return fallback
}
