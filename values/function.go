package values

import "github.com/wudi/loom/hash"

// FunctionKind distinguishes the four call shapes a Function value can
// take. Grounded on values.Closure in wudi-hey, generalized because
// this runtime's Function also stands for bound methods and the two
// suspendable call kinds (generator/async), which wudi-hey models as
// separate Goroutine plumbing instead of a single value kind.
type FunctionKind byte

const (
	FnClosure FunctionKind = iota
	FnBound
	FnGeneratorEntry
	FnAsyncEntry
)

// Function is the payload behind a KindFunction Value. Hash names the
// entry point in the owning Unit's function directory. Env carries the
// captured environment as a Tuple Value for FnClosure — the closure
// environment is passed as a hidden last argument; calling a Function
// of Kind FnClosure without its Env bound
// is exactly the missing-environment scenario (BadArgumentCount/
// ExpectedType instead of a nil-pointer fault).
type Function struct {
	Kind     FunctionKind
	Hash     hash.Hash
	Arity    int
	Env      Value // Unit if not a closure
	Receiver Value // Unit unless Kind == FnBound
}

// Resumable is implemented by execution.Execution. Function, GeneratorState
// and FutureState reference it through this narrow interface rather than
// importing package execution directly, since execution imports vm which
// imports values — a direct reference would cycle.
type Resumable interface {
	// ResumeValue drives the underlying execution forward under budget,
	// reporting the produced value (if any), whether the execution has
	// run to completion, and any error it raised.
	ResumeValue(budget uint64) (result Value, done bool, err error)
}

// GeneratorState is the payload behind a KindGenerator Value.
type GeneratorState struct {
	Exec Resumable
	Done bool
	Last Value
}

// FutureState is the payload behind a KindFuture Value.
type FutureState struct {
	Exec   Resumable
	Done   bool
	Result Value
	Err    error
}

// IteratorState is the payload behind a KindIterator Value, produced by
// the INTO_ITER protocol handler for the source collection. Next reports
// (value, ok, err); ok is false once exhausted. Release must be called
// when the iterator is dropped so a held claim on the source collection
// is freed — see values.AccessError.
type IteratorState struct {
	Next    func() (Value, bool, error)
	Release func()
}
