package session

import (
	"fmt"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// HandleFrame routes one decoded inbound frame from peerID to its
// message-specific handler. Called by the I/O pump once per complete
// frame. A decode or routing error is fatal to the owning
// peer connection.
func (s *Session) HandleFrame(peerID PeerID, frame []byte) error {
	code, err := wire.PeekCode(frame)
	if err != nil {
		s.destroyPeerOnError(peerID, err)
		return fmt.Errorf("peek message code: %w", err)
	}

	switch code {
	case wire.ConnectHost:
		msg, err := wire.UnmarshalConnectHost(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.acceptConnectHost(peerID, msg)

	case wire.ConnectHostOK:
		msg, err := wire.UnmarshalConnectHostOK(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleConnectHostOK(peerID, msg, s.dial)

	case wire.ConnectHostFail:
		msg, err := wire.UnmarshalConnectHostFail(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleConnectHostFail(peerID, msg)

	case wire.ConnectPeer:
		msg, err := wire.UnmarshalConnectPeer(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.acceptConnectPeer(peerID, msg)

	case wire.ConnectPeerOK:
		msg, err := wire.UnmarshalConnectPeerOK(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleConnectPeerOK(peerID, msg)

	case wire.ConnectPeerFail:
		msg, err := wire.UnmarshalConnectPeerFail(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleConnectPeerFail(peerID, msg)

	case wire.Message:
		msg, err := wire.UnmarshalMessage(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleMessage(peerID, msg)

	case wire.PlayerInfo:
		msg, err := wire.UnmarshalPlayerInfo(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handlePlayerInfo(peerID, msg)

	case wire.Ack:
		msg, err := wire.UnmarshalAck(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleAck(peerID, msg)

	case wire.AppDesc:
		msg, err := wire.UnmarshalAppDesc(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleAppDesc(peerID, msg)

	case wire.DestroyPeer:
		msg, err := wire.UnmarshalDestroyPeer(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleDestroyPeer(peerID, msg)

	case wire.TerminateSession:
		msg, err := wire.UnmarshalTerminateSession(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleTerminateSession(peerID, msg)

	case wire.GroupCreate:
		msg, err := wire.UnmarshalGroupCreate(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleGroupCreate(msg)

	case wire.GroupDestroy:
		msg, err := wire.UnmarshalGroupDestroy(frame)
		if err != nil {
			s.destroyPeerOnError(peerID, err)
			return err
		}
		s.handleGroupDestroy(msg)

	default:
		err := fmt.Errorf("unknown message code %s: %w", code, wire.ErrTypeMismatch)
		s.destroyPeerOnError(peerID, err)
		return err
	}
	return nil
}

// destroyPeerOnError tears down peerID with CONNECTION_LOST following a
// fatal decode error.
func (s *Session) destroyPeerOnError(peerID PeerID, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownPeerLocked(peerID, DestroyConnectionLost, cause)
}

func (s *Session) handleConnectPeerOK(peerID PeerID, msg wire.ConnectPeerOKMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}
	p.PlayerID = msg.PlayerID
	p.PlayerName = msg.PlayerName
	p.PlayerData = msg.PlayerData
	s.playerToPeer[msg.PlayerID] = peerID
	res := p.Apply(EventRecvOK)

	s.resolveMeshWait(peerID, nil)

	if res.Changed {
		s.dispatch(Event{Kind: EventCreatePlayer, PlayerID: msg.PlayerID, PlayerName: msg.PlayerName, PlayerData: msg.PlayerData})
	}
}

func (s *Session) handleConnectPeerFail(peerID PeerID, msg wire.ConnectPeerFailMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}
	p.Apply(EventRecvFail)
	s.resolveMeshWait(peerID, fmt.Errorf("peer rejected join: %w (%s)", ErrValidationRejected, JoinErrorCode(msg.ErrorCode)))
	s.teardownPeerLocked(peerID, DestroyConnectionLost, nil)
}
