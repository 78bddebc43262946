package client

import (
	"sync"

	"snmp-stack/application/snmp"
	"snmp-stack/application/snmp/actor/common"

	"github.com/pkg/errors"
)

type pendingKey struct {
	peer      common.PeerKey
	requestID int32
}

type result struct {
	varbinds []snmp.Varbind
	err      error
}

// pendingRequest is resolved at most once.
// res must only be read after done is closed.
type pendingRequest struct {
	done chan struct{}
	once sync.Once
	res  result
}

func (p *pendingRequest) resolve(res result) (resolved bool) {
	p.once.Do(func() {
		p.res = res
		close(p.done)
		resolved = true
	})
	return resolved
}

type pendingTable struct {
	entries map[pendingKey]*pendingRequest
	closed  bool
	mu      sync.Mutex
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[pendingKey]*pendingRequest)}
}

// register adds an entry under key.
// release removes it again and can be called any number of times.
func (t *pendingTable) register(key pendingKey) (_ *pendingRequest, release func(), _ error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, ErrClientClosed
	}
	if _, ok := t.entries[key]; ok {
		return nil, nil, errors.Wrapf(ErrRequestInFlight, "request id %d to %s", key.requestID, key.peer)
	}

	p := &pendingRequest{done: make(chan struct{})}
	t.entries[key] = p

	release = func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		// The key may have been taken again by a later request.
		if t.entries[key] == p {
			delete(t.entries, key)
		}
	}

	return p, release, nil
}

// resolve removes the entry under key and resolves it with res.
// It reports false if there was nothing to resolve.
func (t *pendingTable) resolve(key pendingKey, res result) bool {
	t.mu.Lock()
	p, ok := t.entries[key]
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	return p.resolve(res)
}

// closeAll resolves every entry with err and refuses further registers.
func (t *pendingTable) closeAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[pendingKey]*pendingRequest)
	t.closed = true
	t.mu.Unlock()

	for _, p := range entries {
		p.resolve(result{err: err})
	}
}

func (t *pendingTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
