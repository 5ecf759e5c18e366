package execution

import "errors"

// ErrSuspended is returned by RunToCompletion when the underlying VM
// yields instead of completing — a driver that wants suspension
// semantics should call Resume directly and inspect its Outcome
// instead.
var ErrSuspended = errors.New("execution: yielded instead of completing")

// ErrAlreadyDone is returned by Resume once an Execution has already
// completed (a failed Execution returns its stored error again instead);
// resuming a finished Execution again is a driver bug, not a condition
// a VM step could itself raise.
var ErrAlreadyDone = errors.New("execution: already complete")
