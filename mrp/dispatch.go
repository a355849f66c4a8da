package mrp

import (
	"sync"

	"github.com/arag0re/go-mrp-remote/mrperrors"
)

// Observer is invoked synchronously, from the single-threaded loop
// that owns the data channel, once per decoded inbound envelope (spec
// §9 event-emitter semantics). Observers must not block or recurse
// into the registry; anything that needs to send should enqueue work
// for the loop instead.
type Observer func(Envelope)

// waiter is one entry of the pending-response registry: an optional
// type filter and the channel its completion is delivered on.
type waiter struct {
	filter *Type
	result chan waiterResult
}

type waiterResult struct {
	env Envelope
	err error
}

// Registry is the MRP pending-response registry plus observer
// registry for one data channel (spec §3, §9). The first waiter whose
// filter matches an arriving envelope is dequeued and fulfilled; a
// waiter with no filter matches the next envelope unconditionally.
type Registry struct {
	mu        sync.Mutex
	waiters   []*waiter
	observers []Observer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Observe registers an observer invoked for every dispatched envelope
// regardless of whether a waiter also claims it.
func (r *Registry) Observe(obs Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, obs)
}

// Await enqueues a waiter for the next envelope matching filter (or
// any envelope, if filter is nil) and returns it without blocking; the
// caller blocks in Wait until Dispatch delivers one or Cancel fails it.
func (r *Registry) Await(filter *Type) *waiter {
	w := &waiter{filter: filter, result: make(chan waiterResult, 1)}
	r.mu.Lock()
	r.waiters = append(r.waiters, w)
	r.mu.Unlock()
	return w
}

// Wait blocks on w until Dispatch fulfills it.
func (w *waiter) Wait() (Envelope, error) {
	res := <-w.result
	return res.env, res.err
}

// Cancel removes w from the registry if still pending and fails it
// with a Transport timeout error; used when a caller's deadline
// expires (spec §5 Cancellation).
func (r *Registry) Cancel(w *waiter) {
	r.mu.Lock()
	for i, existing := range r.waiters {
		if existing == w {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			r.mu.Unlock()
			w.result <- waiterResult{err: mrperrors.Transport("mrp: request timed out waiting for response")}
			return
		}
	}
	r.mu.Unlock()
}

// Dispatch delivers env to the first matching waiter (removing it)
// and to every observer.
func (r *Registry) Dispatch(env Envelope) {
	r.mu.Lock()
	var matched *waiter
	for i, w := range r.waiters {
		if w.filter == nil || *w.filter == env.Type {
			matched = w
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			break
		}
	}
	observers := append([]Observer{}, r.observers...)
	r.mu.Unlock()

	if matched != nil {
		matched.result <- waiterResult{env: env}
	}
	for _, obs := range observers {
		obs(env)
	}
}

// CloseWithError fails every pending waiter with err (spec §5:
// connection close cancels every pending waiter with a "closed"
// failure) and drops all observers.
func (r *Registry) CloseWithError(err error) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	r.observers = nil
	r.mu.Unlock()

	for _, w := range waiters {
		w.result <- waiterResult{err: err}
	}
}
