package vm

import (
	"errors"
	"fmt"

	"github.com/wudi/loom/hash"
	"github.com/wudi/loom/opcodes"
	"github.com/wudi/loom/values"
)

// ErrorKind is the closed set of failure conditions a VM step can
// raise. Grounded on wudi-hey's sentinel-error-per-condition style in
// vm/errors.go, collapsed into one enum since every kind here already
// carries structured fields (VMError.Detail) instead of needing a
// distinct Go sentinel per case.
type ErrorKind byte

const (
	BadArgumentCount ErrorKind = iota
	ExpectedType
	MissingFunction
	MissingItem
	MissingIndexKey
	IndexOutOfBounds
	ArithmeticOverflow
	ArithmeticZeroDivision
	AccessError
	UnsupportedYield
	ProtocolMissing
	StackUnderflow
	OutOfBounds
	BudgetExhausted
	UserPanic
)

var errorKindNames = [...]string{
	BadArgumentCount: "BadArgumentCount", ExpectedType: "ExpectedType",
	MissingFunction: "MissingFunction", MissingItem: "MissingItem",
	MissingIndexKey: "MissingIndexKey", IndexOutOfBounds: "IndexOutOfBounds",
	ArithmeticOverflow: "ArithmeticOverflow", ArithmeticZeroDivision: "ArithmeticZeroDivision",
	AccessError: "AccessError", UnsupportedYield: "UnsupportedYield",
	ProtocolMissing: "ProtocolMissing", StackUnderflow: "StackUnderflow",
	OutOfBounds: "OutOfBounds", BudgetExhausted: "BudgetExhausted", UserPanic: "UserPanic",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) && errorKindNames[k] != "" {
		return errorKindNames[k]
	}
	return "ErrorKind(?)"
}

// FrameInfo is one entry of a VMError's call trace: the instruction
// the enclosing call will resume at once its callee returns. Grounded
// on wudi-hey's CallFrame-derived stack traces in vm/errors.go,
// narrowed to the one field vmstack.Frame actually carries.
type FrameInfo struct {
	ReturnIP int
}

// VMError is the Execution-terminating error every VM step can produce.
// Grounded on wudi-hey's VMError{Type, Message, Context, Frame,
// Opcode, IP}/Unwrap/Is in vm/errors.go, generalized from a
// sentinel-error Type field to the closed ErrorKind enum above, and
// carrying the same frame/opcode/ip triage context.
// Frames is populated once, by Resume, from the stack open at the
// moment the error escaped — constructors in this file leave it nil.
type VMError struct {
	Kind    ErrorKind
	Detail  string
	IP      int
	Op      opcodes.Op
	Frames  []FrameInfo
	Wrapped error
}

func (e *VMError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s at ip=%d (%s): %s", e.Kind, e.IP, e.Op, e.Detail)
	}
	return fmt.Sprintf("%s at ip=%d (%s)", e.Kind, e.IP, e.Op)
}

func (e *VMError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a *VMError with the same Kind, so
// callers can `errors.Is(err, &VMError{Kind: vm.AccessError})`.
func (e *VMError) Is(target error) bool {
	var other *VMError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func newVMError(kind ErrorKind, ip int, op opcodes.Op, detail string, wrapped error) *VMError {
	return &VMError{Kind: kind, Detail: detail, IP: ip, Op: op, Wrapped: wrapped}
}

func badArgumentCount(ip int, op opcodes.Op, actual, expected int) *VMError {
	return newVMError(BadArgumentCount, ip, op, fmt.Sprintf("actual=%d expected=%d", actual, expected), nil)
}

func expectedType(ip int, op opcodes.Op, expected, actual string) *VMError {
	return newVMError(ExpectedType, ip, op, fmt.Sprintf("expected=%s actual=%s", expected, actual), nil)
}

func missingFunction(ip int, op opcodes.Op, h hash.Hash) *VMError {
	return newVMError(MissingFunction, ip, op, h.String(), nil)
}

func missingItem(ip int, op opcodes.Op, h hash.Hash) *VMError {
	return newVMError(MissingItem, ip, op, h.String(), nil)
}

func missingIndexKey(ip int, op opcodes.Op) *VMError {
	return newVMError(MissingIndexKey, ip, op, "", nil)
}

func indexOutOfBounds(ip int, op opcodes.Op, length, index int) *VMError {
	return newVMError(IndexOutOfBounds, ip, op, fmt.Sprintf("len=%d index=%d", length, index), nil)
}

func unsupportedYield(ip int, op opcodes.Op) *VMError {
	return newVMError(UnsupportedYield, ip, op, "", nil)
}

func protocolMissing(ip int, op opcodes.Op, typeHash, protocol hash.Hash) *VMError {
	return newVMError(ProtocolMissing, ip, op, fmt.Sprintf("type=%s protocol=%s", typeHash, protocol), nil)
}

func stackUnderflow(ip int, op opcodes.Op) *VMError {
	return newVMError(StackUnderflow, ip, op, "", nil)
}

func outOfBounds(ip int, op opcodes.Op) *VMError {
	return newVMError(OutOfBounds, ip, op, "", nil)
}

func userPanic(ip int, op opcodes.Op, detail string) *VMError {
	return newVMError(UserPanic, ip, op, detail, nil)
}

// budgetExhausted is raised only by a non-resumable budget guard
// (vm.CallBounded) — ordinary Resume reports Limited instead, since a
// bounded one-shot call has no caller left to hand a paused Execution
// back to.
func budgetExhausted(ip int, op opcodes.Op, spent uint64) *VMError {
	return newVMError(BudgetExhausted, ip, op, fmt.Sprintf("spent=%d", spent), nil)
}

func accessError(ip int, op opcodes.Op, err error) *VMError {
	return newVMError(AccessError, ip, op, "", err)
}

// wrapArithmetic translates a values package arithmetic sentinel
// (ErrArithmeticOverflow / ErrArithmeticZeroDivision / ErrInvalidOperand)
// into the matching VMError, decorating it with frame context — the
// teacher's WrapError/DecorateError pattern in vm/errors.go, generalized
// from a single sentinel set to values' arithmetic errors specifically.
func wrapArithmetic(ip int, op opcodes.Op, err error) *VMError {
	switch {
	case errors.Is(err, values.ErrArithmeticOverflow):
		return newVMError(ArithmeticOverflow, ip, op, "", err)
	case errors.Is(err, values.ErrArithmeticZeroDivision):
		return newVMError(ArithmeticZeroDivision, ip, op, "", err)
	default:
		return expectedType(ip, op, "numeric", "non-numeric")
	}
}
