package session

import (
	"net"
	"sync"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// PeerID internally identifies a remote connection. Monotonic, never
// reused within a session instance.
type PeerID uint64

// Peer is one remote (or, transiently during the join protocol,
// partially-established) participant record.
type Peer struct {
	mu sync.Mutex

	ID    PeerID
	State PeerState

	Conn       net.Conn
	RemoteIP   string
	RemotePort uint32

	PlayerID   uint32
	PlayerName string
	PlayerData []byte
	PlayerCtx  any // opaque, owned by the embedding application

	// host marks the peer record that represents the session host, from
	// a non-host instance's point of view.
	host bool

	recvBuf  []byte // accumulates partial frame bytes from the stream
	recvBusy bool

	SendQ    *SendQueue
	SendOpen bool // false once local graceful shutdown has been queued

	Acks *ackTable
}

// NewPeer returns a Peer in state ACCEPTED or one of the CONNECTING_*
// states, ready to be driven by the I/O pump.
func NewPeer(id PeerID, conn net.Conn, initial PeerState) *Peer {
	return &Peer{
		ID:       id,
		State:    initial,
		Conn:     conn,
		SendQ:    NewSendQueue(),
		SendOpen: true,
		Acks:     newAckTable(),
	}
}

// Apply drives the peer's connection FSM with event and records the new
// state. It does not execute the returned Actions: callers that need
// the side effects of a transition (closing the socket, dispatching
// DESTROY_PLAYER) perform them explicitly, typically via
// teardownPeerLocked.
func (p *Peer) Apply(event PeerEvent) PeerFSMResult {
	p.mu.Lock()
	res := ApplyPeerEvent(p.State, event)
	p.State = res.NewState
	p.mu.Unlock()
	return res
}

// Connected reports whether the peer has completed its handshake.
func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State == PeerConnected
}

// Closing reports whether the peer is draining toward teardown. A
// CLOSING peer may still drain outbound frames and deliver ack
// callbacks for previously-registered acks, but discards inbound
// application payloads.
func (p *Peer) Closing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.State == PeerClosing
}

// Feed appends newly-read bytes to the peer's receive buffer and
// extracts every complete frame currently available, invoking handle
// for each in arrival order. Partial trailing bytes remain buffered for
// the next read.
func (p *Peer) Feed(data []byte, handle func(frame []byte) error) error {
	p.recvBuf = append(p.recvBuf, data...)

	for {
		n, err := wire.PeekFrameLen(p.recvBuf)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		frame := make([]byte, n)
		copy(frame, p.recvBuf[:n])
		p.recvBuf = p.recvBuf[n:]
		if err := handle(frame); err != nil {
			return err
		}
	}
}
