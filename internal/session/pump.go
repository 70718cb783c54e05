package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// acceptedConn is handed from the listener's accept loop to the pump's
// main select loop.
type acceptedConn struct {
	conn net.Conn
}

// readResult is handed from a per-peer reader goroutine to the pump.
type readResult struct {
	peerID PeerID
	data   []byte
	err    error
}

// peerInbox serialises frame handling for one peer: frames queue here
// and are drained by a single worker-pool task at a time, in arrival
// order, so that two peers run concurrently across the pool but no
// single peer's frames ever overtake each other.
type peerInbox struct {
	mu     sync.Mutex
	queue  [][]byte
	active bool
}

// Pump is the session's I/O event loop: it watches the TCP
// listener, every peer's TCP socket, the best-effort UDP socket, and a
// work-ready channel, dispatching each event to the session under its
// own lock. One pump per Session.
type Pump struct {
	s       *Session
	logger  *slog.Logger
	workers *WorkerPool

	acceptCh chan acceptedConn
	readCh   chan readResult

	inboxMu sync.Mutex
	inboxes map[PeerID]*peerInbox
}

// NewPump returns a Pump ready to Run against listener and the
// session's already-accepted peer sockets.
func NewPump(s *Session, workers *WorkerPool, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pump{
		s:        s,
		logger:   logger.With(slog.String("component", "pump")),
		workers:  workers,
		acceptCh: make(chan acceptedConn, 16),
		readCh:   make(chan readResult, 64),
		inboxes:  make(map[PeerID]*peerInbox),
	}
}

// Run drives the pump's event loop until ctx is cancelled. It also
// starts the listener accept loop and the best-effort UDP reader if the
// session owns those sockets.
func (pm *Pump) Run(ctx context.Context) {
	if pm.s.net.Listener != nil {
		go pm.acceptLoop(ctx, pm.s.net.Listener)
	}
	if pm.s.net.UDP != nil {
		go pm.udpReadLoop(ctx)
	}

	pm.s.mu.Lock()
	for id, p := range pm.s.peers {
		go pm.readLoop(ctx, id, p.Conn)
	}
	pm.s.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			pm.logger.Info("pump stopped")
			return

		case ac := <-pm.acceptCh:
			pm.handleAccept(ctx, ac.conn)

		case r := <-pm.readCh:
			pm.handleRead(r)
		}
	}
}

// acceptLoop accepts inbound TCP connections and forwards them to the
// pump's select loop.
func (pm *Pump) acceptLoop(ctx context.Context, l net.Listener) {
	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			pm.logger.Error("accept failed", slog.Any("error", err))
			return
		}
		select {
		case pm.acceptCh <- acceptedConn{conn: conn}:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// readLoop repeatedly reads from conn and forwards each chunk to the
// pump's select loop; it exits (delivering a final error) when the
// connection closes or ctx is cancelled.
func (pm *Pump) readLoop(ctx context.Context, peerID PeerID, conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case pm.readCh <- readResult{peerID: peerID, data: chunk}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			select {
			case pm.readCh <- readResult{peerID: peerID, err: err}:
			case <-ctx.Done():
			}
			return
		}
	}
}

// udpReadLoop services the session's best-effort UDP socket, routing
// each inbound MESSAGE datagram to its sender's peer record.
func (pm *Pump) udpReadLoop(ctx context.Context) {
	buf := make([]byte, wire.MaxFrameSize)
	for {
		if ctx.Err() != nil {
			return
		}
		pm.s.net.UDP.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := pm.s.net.UDP.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			pm.logger.Warn("udp recv error", slog.Any("error", err))
			continue
		}

		msg, err := wire.UnmarshalMessage(buf[:n])
		if err != nil {
			pm.logger.Debug("malformed best-effort MESSAGE", slog.Any("error", err))
			continue
		}

		pm.s.mu.Lock()
		matched := pm.s.handleBestEffortMessageLocked(addr, msg)
		pm.s.mu.Unlock()
		if !matched {
			pm.logger.Debug("dropped best-effort MESSAGE from unknown sender", slog.String("from", addr.String()))
		}
	}
}

func (pm *Pump) handleAccept(ctx context.Context, conn net.Conn) {
	pm.s.mu.Lock()
	peerID := PeerID(pm.s.peerIDs.allocate())
	p := NewPeer(peerID, conn, PeerAccepted)
	if host, port, ok := splitHostPort(conn.RemoteAddr()); ok {
		p.RemoteIP, p.RemotePort = host, port
	}
	pm.s.peers[peerID] = p
	pm.s.mu.Unlock()

	go pm.readLoop(ctx, peerID, conn)
}

func (pm *Pump) handleRead(r readResult) {
	if r.err != nil {
		reason := DestroyConnectionLost
		if errors.Is(r.err, io.EOF) {
			reason = DestroyNormal
		}
		pm.s.mu.Lock()
		pm.s.teardownPeerLocked(r.peerID, reason, r.err)
		pm.s.mu.Unlock()
		return
	}

	pm.s.mu.Lock()
	p, ok := pm.s.lookupPeerLocked(r.peerID)
	pm.s.mu.Unlock()
	if !ok {
		return
	}

	err := p.Feed(r.data, func(frame []byte) error {
		pm.enqueueFrame(r.peerID, frame)
		return nil
	})
	if err != nil {
		pm.s.mu.Lock()
		pm.s.teardownPeerLocked(r.peerID, DestroyConnectionLost, err)
		pm.s.mu.Unlock()
	}
}

// enqueueFrame queues frame for peerID's serialised handling. Frames
// for one peer always execute in arrival order: if no drain is already
// running for this peer, one is submitted to the worker pool; otherwise
// the frame joins that drain's queue.
func (pm *Pump) enqueueFrame(peerID PeerID, frame []byte) {
	pm.inboxMu.Lock()
	inbox, ok := pm.inboxes[peerID]
	if !ok {
		inbox = &peerInbox{}
		pm.inboxes[peerID] = inbox
	}
	pm.inboxMu.Unlock()

	inbox.mu.Lock()
	inbox.queue = append(inbox.queue, frame)
	start := !inbox.active
	inbox.active = true
	inbox.mu.Unlock()

	if start {
		pm.workers.Submit(func() { pm.drainInbox(peerID, inbox) })
	}
}

// drainInbox runs on a worker-pool goroutine, handling every frame
// queued for peerID since the last drain, one at a time and in order,
// until the queue empties.
func (pm *Pump) drainInbox(peerID PeerID, inbox *peerInbox) {
	for {
		inbox.mu.Lock()
		if len(inbox.queue) == 0 {
			inbox.active = false
			inbox.mu.Unlock()
			pm.maybeCleanupInbox(peerID)
			return
		}
		frame := inbox.queue[0]
		inbox.queue = inbox.queue[1:]
		inbox.mu.Unlock()

		_ = pm.s.HandleFrame(peerID, frame)
		pm.flushSends(peerID)
	}
}

// maybeCleanupInbox removes peerID's inbox once the peer itself is gone
// and no frames remain queued for it, so that a long-lived session
// doesn't accumulate an inbox per peer that has ever connected.
func (pm *Pump) maybeCleanupInbox(peerID PeerID) {
	pm.s.mu.Lock()
	_, live := pm.s.lookupPeerLocked(peerID)
	pm.s.mu.Unlock()
	if live {
		return
	}

	pm.inboxMu.Lock()
	defer pm.inboxMu.Unlock()
	if inbox, ok := pm.inboxes[peerID]; ok && !inbox.active && len(inbox.queue) == 0 {
		delete(pm.inboxes, peerID)
	}
}

// flushSends drains as much of peerID's send queue as the socket will
// accept without blocking the pump indefinitely, advancing and popping
// frames as they complete. Once a CLOSING peer's queue is fully
// drained, the peer is torn down: this is what actually completes a
// graceful close for that peer (socket closed, removed from the
// session, DESTROY_PLAYER delivered).
func (pm *Pump) flushSends(peerID PeerID) {
	pm.s.mu.Lock()
	p, ok := pm.s.lookupPeerLocked(peerID)
	pm.s.mu.Unlock()
	if !ok {
		return
	}

	for {
		pm.s.mu.Lock()
		remaining := p.SendQ.PeekFront()
		pm.s.mu.Unlock()
		if remaining == nil {
			break
		}

		n, err := p.Conn.Write(remaining)
		if err != nil {
			pm.s.mu.Lock()
			pm.s.teardownPeerLocked(peerID, DestroyConnectionLost, err)
			pm.s.mu.Unlock()
			return
		}

		pm.s.mu.Lock()
		p.SendQ.Advance(n)
		fullyWritten := p.SendQ.HeadFullyWritten()
		if fullyWritten {
			p.SendQ.PopFrontWith(SendOK)
		}
		closingDrained := p.State == PeerClosing && p.SendQ.Empty()
		pm.s.mu.Unlock()

		if closingDrained {
			pm.s.mu.Lock()
			pm.s.teardownPeerLocked(peerID, DestroyNormal, nil)
			p.Apply(EventDrained)
			pm.s.mu.Unlock()
			return
		}
		if !fullyWritten {
			break
		}
	}
}

// splitHostPort extracts a dotted-decimal host and numeric port from a
// net.Addr, working for both TCP and UDP addresses since both format
// via "host:port".
func splitHostPort(addr net.Addr) (string, uint32, bool) {
	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, false
	}
	return host, uint32(port), true
}
