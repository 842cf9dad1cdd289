// Package correlate implements request/response correlation over a
// channel that has no inherent call/return semantics. Each pending
// request is a one-shot handler keyed by its request id: the first of
// {matching response, timeout, caller cancellation} wins, and anything
// arriving later finds no handler and is dropped.
package correlate

import (
	"context"
	"sync"
	"time"

	"ballotd/internal/domain"
)

type Registry struct {
	mu      sync.Mutex
	pending map[string]chan domain.SigningResponse
}

func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]chan domain.SigningResponse)}
}

// Pending is the one-shot handle for a registered request. Await
// consumes it; the handler is always gone once Await returns.
type Pending struct {
	registry  *Registry
	requestID string
	ch        chan domain.SigningResponse
}

// Register installs a one-shot handler for requestID and returns the
// handle to wait on. Registration is synchronous: once Register
// returns, a response can be resolved even if Await has not started
// yet. Registering a requestID that already has a live handler is an
// error: it means a stale leftover, never a legitimate second waiter.
func (r *Registry) Register(requestID string) (*Pending, error) {
	ch := make(chan domain.SigningResponse, 1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.pending[requestID]; exists {
		return nil, domain.ErrDuplicateHandler
	}
	r.pending[requestID] = ch
	return &Pending{registry: r, requestID: requestID, ch: ch}, nil
}

// Resolve delivers a response to the waiter for requestID, if one is
// still registered. Returns false when no handler exists, which is the
// normal fate of a late or duplicate response.
func (r *Registry) Resolve(requestID string, resp domain.SigningResponse) bool {
	r.mu.Lock()
	ch, ok := r.pending[requestID]
	if ok {
		delete(r.pending, requestID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- resp // buffered; never blocks
	return true
}

// Await blocks until the response arrives, the timeout elapses, or ctx
// is cancelled. The handler is deregistered before Await returns, so
// exactly one of {response delivered, timeout} occurs per request id.
func (p *Pending) Await(ctx context.Context, timeout time.Duration) (domain.SigningResponse, error) {
	defer p.registry.remove(p.requestID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-p.ch:
		return resp, nil
	case <-timer.C:
		return domain.SigningResponse{}, domain.ErrSigningTimeout
	case <-ctx.Done():
		return domain.SigningResponse{}, ctx.Err()
	}
}

// PendingCount reports the number of live handlers. Used by tests and
// the health endpoint.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Registry) remove(requestID string) {
	r.mu.Lock()
	delete(r.pending, requestID)
	r.mu.Unlock()
}
