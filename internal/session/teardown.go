package session

import (
	"fmt"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// teardownPeerLocked removes peerID from the session, failing its
// pending acks, cancelling its send queue, and closing its socket, then
// delivers DESTROY_PLAYER for it if it had ever reached CONNECTED.
// Callers hold s.mu. This is the sole path that actually executes the
// FSM's terminal actions (ActionCloseSocket, ActionEmitDestroyPlayer)
// for a peer, whether the peer arrived here via a read error, a
// protocol rejection, or a drained graceful CLOSING queue.
func (s *Session) teardownPeerLocked(peerID PeerID, reason DestroyReason, cause error) {
	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}

	hadPlayer := p.PlayerID != 0
	wasConnectedOrClosing := p.State == PeerConnected || p.State == PeerClosing

	s.resolveMeshWait(peerID, cause)
	p.Acks.FailAll(fmt.Errorf("%w", ErrConnectionLost))
	p.SendQ.CancelAll(SendConnectionLost)
	if p.Conn != nil {
		_ = p.Conn.Close()
	}

	delete(s.peers, peerID)
	if hadPlayer {
		delete(s.playerToPeer, p.PlayerID)
	}

	if wasConnectedOrClosing && hadPlayer {
		s.dispatch(Event{Kind: EventDestroyPlayer, PlayerID: p.PlayerID, DestroyReason: reason})
	}

	if s.gracefulClosePending && len(s.peers) == 0 {
		s.gracefulClosePending = false
		s.finishTerminationLocked(DestroyNormal)
	}
}

// finishTerminationLocked transitions the session to TERMINATED and
// delivers the local player's own DESTROY_PLAYER, the terminal event of
// a session's lifecycle. Callers hold s.mu and must already have torn
// down, or be in the process of tearing down, every peer.
func (s *Session) finishTerminationLocked(reason DestroyReason) {
	s.state = StateTerminated
	s.dispatch(Event{Kind: EventDestroyPlayer, PlayerID: s.localPlayerID, DestroyReason: reason})
}

// handleDestroyPeer processes a host-issued DESTROY_PEER. The victim
// leaves the session voluntarily; every other recipient simply records
// the departure.
func (s *Session) handleDestroyPeer(_ PeerID, msg wire.DestroyPeerMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.VictimPlayerID == s.localPlayerID {
		s.state = StateClosing
		s.closeAllPeersLocked(DestroyNormal)
		s.finishTerminationLocked(DestroyNormal)
		return
	}

	if victimPeerID, ok := s.playerToPeer[msg.VictimPlayerID]; ok {
		s.teardownPeerLocked(victimPeerID, DestroyNormal, nil)
	}
}

// handleTerminateSession processes a host-issued TERMINATE_SESSION: the
// receiving peer delivers a terminate-session event then tears itself
// down entirely.
func (s *Session) handleTerminateSession(_ PeerID, msg wire.TerminateSessionMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateClosing
	s.dispatch(Event{Kind: EventTerminateSession, Result: ErrConnectionLost, ReplyData: msg.Data})
	s.closeAllPeersLocked(DestroyConnectionLost)
	s.finishTerminationLocked(DestroyConnectionLost)
}

func (s *Session) handleGroupCreate(msg wire.GroupCreateMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := &Group{ID: msg.GroupID, Name: msg.GroupName, Data: msg.GroupData, OwnerID: msg.OwnerPlayerID}
	if s.groups.Create(g) {
		s.dispatch(Event{Kind: EventGroupCreate, GroupID: msg.GroupID, PlayerName: msg.GroupName, PlayerData: msg.GroupData})
	}
}

func (s *Session) handleGroupDestroy(msg wire.GroupDestroyMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groups.Destroy(msg.GroupID) {
		s.dispatch(Event{Kind: EventGroupDestroy, GroupID: msg.GroupID, ReplyData: msg.ReasonData})
	}
}

// closeAllPeersLocked tears down every remaining peer with reason,
// local player's own DESTROY_PLAYER excluded (callers deliver that
// separately, last). Callers hold s.mu.
func (s *Session) closeAllPeersLocked(reason DestroyReason) {
	for id := range s.peers {
		s.teardownPeerLocked(id, reason, nil)
	}
}

// Close tears the session down. Graceful (immediate=false) transitions
// each peer to CLOSING and lets its send queue drain before tearing it
// down; abrupt (immediate=true) tears every peer down immediately. In
// both cases the local player's own DESTROY_PLAYER is delivered last,
// once every peer is actually gone, and the session reaches TERMINATED.
func (s *Session) Close(immediate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateTerminated {
		return fmt.Errorf("close: %w", ErrState)
	}

	s.state = StateClosing

	if immediate {
		for id := range s.peers {
			s.teardownPeerLocked(id, DestroyNormal, nil)
		}
		s.finishTerminationLocked(DestroyNormal)
		return nil
	}

	if len(s.peers) == 0 {
		s.finishTerminationLocked(DestroyNormal)
		return nil
	}

	s.gracefulClosePending = true
	for id, p := range s.peers {
		if p.State != PeerConnected {
			// Mid-handshake peers have no EventGracefulClose transition
			// and no application traffic worth draining; tear them down
			// directly rather than wait on a drain that will never come.
			s.teardownPeerLocked(id, DestroyNormal, nil)
			continue
		}
		p.Apply(EventGracefulClose)
	}
	if s.gracefulClosePending && len(s.peers) == 0 {
		s.gracefulClosePending = false
		s.finishTerminationLocked(DestroyNormal)
	}
	// Any peer that did transition to CLOSING is finished off by the I/O
	// pump once its send queue drains: flushSends calls teardownPeerLocked,
	// which fires finishTerminationLocked once the last peer is gone.
	return nil
}

// TerminateSession is host-only: it sends TERMINATE_SESSION with blob
// to every peer, then tears the session down locally.
func (s *Session) TerminateSession(blob []byte) error {
	s.mu.Lock()
	if !s.isHost {
		s.mu.Unlock()
		return fmt.Errorf("terminate session: %w", ErrState)
	}
	for _, p := range s.peers {
		if !p.Connected() {
			continue
		}
		frame := wire.TerminateSessionMsg{Data: blob}.Marshal()
		p.SendQ.Enqueue(frame, nil)
	}
	s.mu.Unlock()

	return s.Close(false)
}

// DestroyPeer is host-only: it sends DESTROY_PEER to the victim and to
// every other peer.
func (s *Session) DestroyPeer(playerID uint32, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isHost {
		return fmt.Errorf("destroy peer: %w", ErrState)
	}
	if _, ok := s.playerToPeer[playerID]; !ok {
		return fmt.Errorf("destroy peer %d: %w", playerID, ErrNotFound)
	}

	frame := wire.DestroyPeerMsg{VictimPlayerID: playerID, ReasonData: blob}.Marshal()
	for _, p := range s.peers {
		if p.Connected() {
			p.SendQ.Enqueue(frame, nil)
		}
	}
	return nil
}
