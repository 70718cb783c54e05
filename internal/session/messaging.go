package session

import (
	"fmt"
	"net"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// AllPlayers is the SendTo target sentinel selecting fan-out to every
// connected player.
const AllPlayers uint32 = 0xFFFFFFFF

// SendTo enqueues payload for delivery to target (a specific player id,
// the local player id for loopback, or AllPlayers for fan-out). It
// returns the async handle for a non-SYNC call; SYNC calls return 0
// having already completed.
func (s *Session) SendTo(target uint32, payload []byte, flags wire.ApplicationMessageFlags) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected && s.state != StateHosting {
		return 0, fmt.Errorf("send: %w", ErrState)
	}

	sync := flags.Has(wire.FlagSync)
	var handle uint32
	if !sync {
		handle = s.registerOp(OpKindSend, nil)
	}

	var targets []uint32
	switch {
	case target == AllPlayers:
		for playerID := range s.playerToPeer {
			targets = append(targets, playerID)
		}
		if !flags.Has(wire.FlagNoLoopback) {
			targets = append(targets, s.localPlayerID)
		}
	case target == s.localPlayerID:
		targets = []uint32{s.localPlayerID}
	default:
		targets = []uint32{target}
	}

	for _, playerID := range targets {
		if playerID == s.localPlayerID {
			s.dispatch(Event{Kind: EventReceive, SenderPlayerID: s.localPlayerID, Payload: payload})
			continue
		}
		p, ok := s.lookupPeerByPlayerLocked(playerID)
		if !ok || p.Closing() {
			continue
		}
		frame := wire.MessageMsg{SenderPlayerID: s.localPlayerID, Flags: flags, Payload: payload}.Marshal()
		if flags.Has(wire.FlagGuaranteed) {
			p.SendQ.Enqueue(frame, nil)
		} else {
			s.sendBestEffortLocked(p, frame)
		}
	}

	if !sync {
		s.completeOp(handle)
		s.dispatch(Event{Kind: EventAsyncOpComplete, Handle: handle})
		return handle, nil
	}
	return 0, nil
}

// sendBestEffortLocked transmits frame to p over the session's
// best-effort UDP socket rather than its reliable TCP queue. If the
// session has no UDP socket or p's session address isn't known (a peer
// accepted inbound only reports its ephemeral TCP source address, which
// is not its best-effort listening address), it falls back to the
// reliable queue rather than silently dropping the payload.
func (s *Session) sendBestEffortLocked(p *Peer, frame []byte) {
	if s.net.UDP == nil || p.RemotePort == 0 {
		p.SendQ.Enqueue(frame, nil)
		return
	}
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", p.RemoteIP, p.RemotePort))
	if err != nil {
		p.SendQ.Enqueue(frame, nil)
		return
	}
	if _, err := s.net.UDP.WriteTo(frame, addr); err != nil {
		p.SendQ.Enqueue(frame, nil)
	}
}

// handleMessage delivers an inbound MESSAGE frame as a RECEIVE event. A
// CLOSING peer's application payloads are discarded.
func (s *Session) handleMessage(peerID PeerID, msg wire.MessageMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok || p.Closing() {
		return
	}
	s.dispatch(Event{Kind: EventReceive, SenderPlayerID: msg.SenderPlayerID, Payload: msg.Payload})
}

// handleBestEffortMessageLocked resolves an inbound best-effort MESSAGE
// datagram's sender by matching its source address against the peers'
// recorded session addresses, then delivers it exactly like an inbound
// TCP MESSAGE. Callers hold s.mu. Reports whether a matching peer was
// found.
func (s *Session) handleBestEffortMessageLocked(from net.Addr, msg wire.MessageMsg) bool {
	host, port, ok := splitHostPort(from)
	if !ok {
		return false
	}
	for _, p := range s.peers {
		if p.RemoteIP == host && p.RemotePort == port {
			if p.Closing() {
				return true
			}
			s.dispatch(Event{Kind: EventReceive, SenderPlayerID: msg.SenderPlayerID, Payload: msg.Payload})
			return true
		}
	}
	return false
}
