package fetchkit

import (
	"context"
	"sync"
)

// requestHandle is the cancellation capability for one in-flight logical
// request. Cancelling it with a sentinel cause (ErrSuperseded, ErrAborted,
// ErrTimedOut) terminates the request and records why.
type requestHandle struct {
	cancel context.CancelCauseFunc
}

// inflightRegistry tracks at most one cancellation handle per method::URL
// key. Issuing a new request under a key cancels and evicts the previous
// handle before the new one dispatches.
type inflightRegistry struct {
	mu      sync.Mutex
	entries map[string]*requestHandle
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{
		entries: make(map[string]*requestHandle),
	}
}

// begin registers a fresh handle under key, superseding any prior one.
// The returned context is cancelled when the handle is.
func (r *inflightRegistry) begin(ctx context.Context, key string) (context.Context, *requestHandle, bool) {
	ctx, cancel := context.WithCancelCause(ctx)
	handle := &requestHandle{cancel: cancel}

	r.mu.Lock()
	prev, superseded := r.entries[key]
	r.entries[key] = handle
	r.mu.Unlock()

	if superseded {
		prev.cancel(ErrSuperseded)
	}
	return ctx, handle, superseded
}

// finish removes the handle when the request settles. A superseded request
// must not evict its successor, so the entry is only removed when it is
// still the caller's own.
func (r *inflightRegistry) finish(key string, handle *requestHandle) {
	r.mu.Lock()
	if current, ok := r.entries[key]; ok && current == handle {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	// Release the context resources of a settled request.
	handle.cancel(nil)
}

// abortAll cancels every registered handle and clears the registry; later
// calls to the same keys start from a clean slate.
func (r *inflightRegistry) abortAll() int {
	r.mu.Lock()
	handles := make([]*requestHandle, 0, len(r.entries))
	for key, handle := range r.entries {
		handles = append(handles, handle)
		delete(r.entries, key)
	}
	r.mu.Unlock()

	for _, handle := range handles {
		handle.cancel(ErrAborted)
	}
	return len(handles)
}

// size reports the number of in-flight keys.
func (r *inflightRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
