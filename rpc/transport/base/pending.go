package base

import (
	"fmt"
	"github.com/ValentinKolb/udsrpc/lib/util"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	"github.com/ValentinKolb/udsrpc/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"sync"
	"time"
)

// pendingRequest is a registered callback waiting for its response
type pendingRequest struct {
	fn       transport.ResponseFunc
	deadline time.Time // zero if the request never expires
}

// pendingTable maps correlation ids to callbacks.
//
// The map itself is lock free, so the reader goroutine can dispatch while
// callers register. Every entry leaves the table exactly once through take,
// evictExpired or drain and its callback is called by whoever removed it.
// With a timeout, entries and their deadlines only change together under mu.
type pendingTable struct {
	requests *xsync.MapOf[string, *pendingRequest]
	timeout  time.Duration

	mu        sync.Mutex
	deadlines *util.MapHeap[string]
}

// newPendingTable creates a table. A timeout of 0 disables expiry
func newPendingTable(timeout time.Duration) *pendingTable {
	return &pendingTable{
		requests:  xsync.NewMapOf[string, *pendingRequest](),
		timeout:   timeout,
		deadlines: util.NewMapHeap[string](),
	}
}

// register stores fn under id, replacing a previous registration
func (p *pendingTable) register(id string, fn transport.ResponseFunc) {
	req := &pendingRequest{fn: fn}
	if p.timeout <= 0 {
		p.requests.Store(id, req)
		return
	}
	req.deadline = time.Now().Add(p.timeout)

	// The entry and its deadline change together
	p.mu.Lock()
	p.requests.Store(id, req)
	p.deadlines.AddItem(id, req.deadline.UnixNano())
	p.mu.Unlock()
}

// unregister removes id without calling its callback
func (p *pendingTable) unregister(id string) bool {
	_, ok := p.remove(id)
	return ok
}

// take removes and returns the callback registered under id
func (p *pendingTable) take(id string) (transport.ResponseFunc, bool) {
	req, ok := p.remove(id)
	if !ok {
		return nil, false
	}
	return req.fn, true
}

// evictExpired removes all requests whose deadline is before now and calls
// their callbacks with ErrPendingTimeout. It returns the number of evicted requests
func (p *pendingTable) evictExpired(now time.Time) int {
	if p.timeout <= 0 {
		return 0
	}

	// Remove under the heap lock, call callbacks without it
	var expired []*pendingRequest
	var ids []string
	p.mu.Lock()
	for {
		next, ok := p.deadlines.Peek()
		if !ok || next.Priority > now.UnixNano() {
			break
		}
		p.deadlines.PopItem()

		req, ok := p.requests.LoadAndDelete(next.Key)
		if !ok {
			continue
		}
		expired = append(expired, req)
		ids = append(ids, next.Key)
	}
	p.mu.Unlock()

	for i, req := range expired {
		req.fn(nil, fmt.Errorf("%w: %s", common.ErrPendingTimeout, ids[i]))
	}
	return len(expired)
}

// drain removes every request and calls its callback with cause
func (p *pendingTable) drain(cause error) int {
	drained := 0
	p.requests.Range(func(id string, _ *pendingRequest) bool {
		if req, ok := p.remove(id); ok {
			drained++
			req.fn(nil, cause)
		}
		return true
	})
	return drained
}

// size returns the number of registered requests
func (p *pendingTable) size() int {
	return p.requests.Size()
}

// remove deletes id and its deadline
func (p *pendingTable) remove(id string) (*pendingRequest, bool) {
	if p.timeout <= 0 {
		return p.requests.LoadAndDelete(id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	req, ok := p.requests.LoadAndDelete(id)
	if ok {
		p.deadlines.RemoveByKey(id)
	}
	return req, ok
}
