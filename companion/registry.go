package companion

import (
	"sync"

	"github.com/arag0re/go-mrp-remote/mrperrors"
	"github.com/arag0re/go-mrp-remote/opack"
)

// Observer is invoked for every inbound map that no pending transfer
// claims (spec §4.8: "unmatched inbound maps are delivered as
// events").
type Observer func(opack.Map)

type pending struct {
	result chan pendingResult
}

type pendingResult struct {
	m   opack.Map
	err error
}

// transferRegistry is the Companion transfer registry of spec §3: a
// mapping from a monotonically increasing transfer identifier to a
// pending completion. A matching inbound message removes and fulfils
// the entry; Cancel removes and fails it on timeout.
type transferRegistry struct {
	mu        sync.Mutex
	next      int64
	pending   map[int64]*pending
	observers []Observer
}

func newTransferRegistry() *transferRegistry {
	return &transferRegistry{pending: make(map[int64]*pending)}
}

// nextTransfer returns the next monotonically increasing transfer
// identifier (spec §3, §6 "_x").
func (r *transferRegistry) nextTransfer() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	return r.next
}

// await registers a pending completion for transfer id x.
func (r *transferRegistry) await(x int64) *pending {
	p := &pending{result: make(chan pendingResult, 1)}
	r.mu.Lock()
	r.pending[x] = p
	r.mu.Unlock()
	return p
}

func (p *pending) wait() (opack.Map, error) {
	res := <-p.result
	return res.m, res.err
}

// cancel removes x's pending entry, if still outstanding, and fails it
// with a timeout error.
func (r *transferRegistry) cancel(x int64) {
	r.mu.Lock()
	p, ok := r.pending[x]
	if ok {
		delete(r.pending, x)
	}
	r.mu.Unlock()
	if ok {
		p.result <- pendingResult{err: mrperrors.Transport("companion: request timed out waiting for response")}
	}
}

func (r *transferRegistry) observe(obs Observer) {
	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
}

// dispatch delivers an inbound map to the pending entry named by its
// "_x" field, or to every observer if none claims it.
func (r *transferRegistry) dispatch(m opack.Map) {
	x, hasTransfer := transferOf(m)

	r.mu.Lock()
	var matched *pending
	if hasTransfer {
		if p, ok := r.pending[x]; ok {
			matched = p
			delete(r.pending, x)
		}
	}
	observers := append([]Observer{}, r.observers...)
	r.mu.Unlock()

	if matched != nil {
		matched.result <- pendingResult{m: m}
		return
	}
	for _, obs := range observers {
		obs(m)
	}
}

// closeWithError fails every pending entry with err and drops all
// observers (spec §5: connection close cancels every pending request).
func (r *transferRegistry) closeWithError(err error) {
	r.mu.Lock()
	all := r.pending
	r.pending = make(map[int64]*pending)
	r.observers = nil
	r.mu.Unlock()

	for _, p := range all {
		p.result <- pendingResult{err: err}
	}
}

func transferOf(m opack.Map) (int64, bool) {
	v, ok := m.Get("_x")
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
