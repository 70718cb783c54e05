package session

import "container/list"

// SendResult is the terminal outcome delivered to a queued frame's
// completion callback.
type SendResult uint8

const (
	SendOK SendResult = iota
	SendUserCancel
	SendConnectionLost
)

// pendingFrame is one outbound unit in a peer's send queue.
type pendingFrame struct {
	frame    []byte
	written  int // bytes of frame already handed to the socket
	onDone   func(SendResult)
	canceled bool
}

// SendQueue is a per-connection FIFO of outbound frames with optional
// per-frame completion callbacks and cancellation. It performs no I/O
// itself; the session I/O pump drains it against a socket.
type SendQueue struct {
	l *list.List // of *pendingFrame
}

// NewSendQueue returns an empty SendQueue.
func NewSendQueue() *SendQueue {
	return &SendQueue{l: list.New()}
}

// Enqueue appends a frame with an optional completion callback.
func (q *SendQueue) Enqueue(frame []byte, onDone func(SendResult)) {
	q.l.PushBack(&pendingFrame{frame: frame, onDone: onDone})
}

// Empty reports whether the queue has no pending frames.
func (q *SendQueue) Empty() bool {
	return q.l.Len() == 0
}

// PeekFront returns the unwritten remainder of the head frame, or nil if
// the queue is empty.
func (q *SendQueue) PeekFront() []byte {
	e := q.l.Front()
	if e == nil {
		return nil
	}
	pf := e.Value.(*pendingFrame)
	return pf.frame[pf.written:]
}

// Advance records that n further bytes of the head frame were written to
// the socket. It does not pop the frame even if fully written; call
// PopFrontWith(SendOK) once the caller has confirmed completion.
func (q *SendQueue) Advance(n int) {
	e := q.l.Front()
	if e == nil {
		return
	}
	pf := e.Value.(*pendingFrame)
	pf.written += n
}

// HeadFullyWritten reports whether every byte of the head frame has been
// handed to the socket.
func (q *SendQueue) HeadFullyWritten() bool {
	e := q.l.Front()
	if e == nil {
		return false
	}
	pf := e.Value.(*pendingFrame)
	return pf.written >= len(pf.frame)
}

// PopFrontWith removes the head frame and invokes its completion
// callback, if any, with result. It is a no-op on an empty queue.
func (q *SendQueue) PopFrontWith(result SendResult) {
	e := q.l.Front()
	if e == nil {
		return
	}
	q.l.Remove(e)
	pf := e.Value.(*pendingFrame)
	if pf.onDone != nil && !pf.canceled {
		pf.onDone(result)
	}
}

// CancelAll drains every pending frame, invoking each completion callback
// with result exactly once.
func (q *SendQueue) CancelAll(result SendResult) {
	for e := q.l.Front(); e != nil; e = q.l.Front() {
		q.l.Remove(e)
		pf := e.Value.(*pendingFrame)
		if pf.onDone != nil {
			pf.onDone(result)
		}
	}
}
