package session

import "sync"

// AckCallback is invoked exactly once when an ack-tracked message's ACK
// arrives, or when the owning peer is destroyed before it arrives.
type AckCallback func(resultCode uint32, response []byte, err error)

// ackTable tracks pending ack-tracked requests for one peer, keyed by
// the ack id embedded in the outbound message.
type ackTable struct {
	mu      sync.Mutex
	nextID  uint32
	pending map[uint32]AckCallback
}

func newAckTable() *ackTable {
	return &ackTable{nextID: 1, pending: make(map[uint32]AckCallback)}
}

// Register allocates the next ack id and records its callback, to be
// invoked on receipt of the matching ACK or on peer teardown.
func (t *ackTable) Register(cb AckCallback) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	if t.nextID == 0 {
		t.nextID = 1
	}
	t.pending[id] = cb
	return id
}

// Resolve invokes and removes the callback for ackID, if still pending.
// It reports whether an entry was found.
func (t *ackTable) Resolve(ackID, resultCode uint32, response []byte) bool {
	t.mu.Lock()
	cb, ok := t.pending[ackID]
	if ok {
		delete(t.pending, ackID)
	}
	t.mu.Unlock()

	if ok && cb != nil {
		cb(resultCode, response, nil)
	}
	return ok
}

// FailAll invokes every still-pending callback with err and clears the table.
func (t *ackTable) FailAll(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[uint32]AckCallback)
	t.mu.Unlock()

	for _, cb := range pending {
		if cb != nil {
			cb(0, nil, err)
		}
	}
}
