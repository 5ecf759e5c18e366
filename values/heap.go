package values

import "sync"

// heapObject is the shared, interior-mutable storage behind every heap
// Value. Aliasing two Values of the same handle means both observe
// mutation through StoreField/StoreIndex/push et al. Grounded on the
// teacher's WaitGroup (values/value.go), which guards a plain counter
// with a sync.Mutex instead of leaving it racy; generalized here to any
// payload so the claim discipline is uniform across heap kinds.
type heapObject struct {
	mu      sync.Mutex
	claimed bool
	payload any
}

func newHeapObject(payload any) *heapObject {
	return &heapObject{payload: payload}
}

// claim takes exclusive ownership of the object for the duration of an
// iteration or an in-place mutation that must not observe itself being
// resized out from under it. release must be called exactly once.
//
// A second claim while the first is outstanding is the AccessError
// scenario: mutating a Vec/Map while an Iterator over the same handle
// is live.
func (h *heapObject) claim() (release func(), err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.claimed {
		return nil, &AccessError{}
	}
	h.claimed = true
	return func() {
		h.mu.Lock()
		h.claimed = false
		h.mu.Unlock()
	}, nil
}

// AccessError reports a conflicting exclusive claim on a heap object —
// typically a mutation attempted while an iterator over the same Vec or
// Map is still live.
type AccessError struct {
	Detail string
}

func (e *AccessError) Error() string {
	if e.Detail == "" {
		return "access error: heap object already claimed"
	}
	return "access error: " + e.Detail
}
