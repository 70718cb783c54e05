package session

import (
	"fmt"
	"net"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// HostConfig configures Host.
type HostConfig struct {
	InstanceGUID wire.GUID
}

// Host transitions a freshly-constructed Session into HOSTING: it
// becomes its own player id 1 host record and starts accepting
// CONNECT_HOST on its listener.
func (s *Session) Host(cfg HostConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNew {
		return fmt.Errorf("host: %w", ErrState)
	}
	if err := validatePlayerName(s.localPlayerName); err != nil {
		return err
	}

	s.instanceGUID = cfg.InstanceGUID
	s.isHost = true
	s.localPlayerID = s.playerIDs.Allocate()
	s.hostPlayerID = s.localPlayerID
	s.state = StateHosting

	s.dispatch(Event{
		Kind:       EventCreatePlayer,
		PlayerID:   s.localPlayerID,
		PlayerName: s.localPlayerName,
		PlayerData: s.localPlayerData,
		PlayerCtx:  s.localPlayerCtx,
	})
	return nil
}

// acceptConnectHost handles an inbound CONNECT_HOST on a peer still in
// ACCEPTED state, transitioning it through INDICATING. The embedding
// application's admission decision is solicited via INDICATE_CONNECT;
// a non-success return is treated as a generic host-rejected veto.
func (s *Session) acceptConnectHost(peerID PeerID, msg wire.ConnectHostMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}
	p.Apply(EventRecvConnectHost)

	joinErr := s.validateJoinLocked(msg.ApplicationGUID, msg.InstanceGUID, msg.Password)
	if joinErr != JoinErrNone {
		p.Apply(EventAppReject)
		frame := wire.ConnectHostFailMsg{ErrorCode: uint32(joinErr)}.Marshal()
		p.SendQ.Enqueue(frame, nil)
		return
	}

	assignedID := s.playerIDs.Allocate()

	s.dispatch(Event{
		Kind:        EventIndicateConnect,
		PlayerID:    assignedID,
		PlayerName:  msg.PlayerName,
		PlayerData:  msg.PlayerData,
		RequestData: msg.RequestData,
	})

	// Re-validate: the peer may have been torn down while the
	// application was deliberating.
	p, ok = s.lookupPeerLocked(peerID)
	if !ok {
		return
	}

	accepted, replyData := true, []byte(nil)
	if s.admit != nil {
		s.mu.Unlock()
		accepted, replyData = s.admit(ConnectRequest{
			PlayerID:    assignedID,
			PlayerName:  msg.PlayerName,
			PlayerData:  msg.PlayerData,
			RequestData: msg.RequestData,
		})
		s.mu.Lock()
		if p, ok = s.lookupPeerLocked(peerID); !ok {
			return
		}
	}
	if !accepted {
		p.Apply(EventAppReject)
		frame := wire.ConnectHostFailMsg{ErrorCode: uint32(JoinErrHostRejected), ReplyData: replyData}.Marshal()
		p.SendQ.Enqueue(frame, nil)
		return
	}

	p.PlayerID = assignedID
	p.PlayerName = msg.PlayerName
	p.PlayerData = msg.PlayerData
	s.playerToPeer[assignedID] = peerID

	peerList := make([]wire.PeerAddr, 0, len(s.peers))
	for otherID, other := range s.peers {
		if otherID == peerID || !other.Connected() {
			continue
		}
		peerList = append(peerList, wire.PeerAddr{PlayerID: other.PlayerID, IP: other.RemoteIP, Port: other.RemotePort})
	}

	res := p.Apply(EventAppAccept)
	ok2 := s.lookupPeerLocked2(peerID, p)
	if !ok2 {
		return
	}

	frame := wire.ConnectHostOKMsg{
		InstanceGUID:    s.instanceGUID,
		HostPlayerID:    s.hostPlayerID,
		AssignedID:      assignedID,
		Peers:           peerList,
		ReplyData:       replyData,
		HostName:        s.localPlayerName,
		HostData:        s.localPlayerData,
		MaxPlayers:      s.maxPlayers,
		SessionName:     s.sessionName,
		SessionPassword: s.password,
		ApplicationData: s.applicationData,
	}.Marshal()
	p.SendQ.Enqueue(frame, nil)

	if res.Changed {
		s.dispatch(Event{
			Kind:       EventCreatePlayer,
			PlayerID:   assignedID,
			PlayerName: msg.PlayerName,
			PlayerData: msg.PlayerData,
		})
	}
}

// lookupPeerLocked2 re-confirms p is still the current record for
// peerID; cheap guard against the peer having been replaced or removed
// during a lock release.
func (s *Session) lookupPeerLocked2(peerID PeerID, p *Peer) bool {
	cur, ok := s.lookupPeerLocked(peerID)
	return ok && cur == p
}

// validateJoinLocked runs the host-side admission checks, in order:
// application GUID, instance GUID (if supplied), password, then
// capacity.
func (s *Session) validateJoinLocked(appGUID, instanceGUID wire.GUID, password string) JoinErrorCode {
	if appGUID != s.applicationGUID {
		return JoinErrApplicationMismatch
	}
	if !instanceGUID.IsZero() && instanceGUID != s.instanceGUID {
		return JoinErrInstanceMismatch
	}
	if s.password != "" && password != s.password {
		return JoinErrBadPassword
	}
	if s.maxPlayers != 0 && uint32(len(s.playerToPeer))+1 >= s.maxPlayers {
		return JoinErrSessionFull
	}
	return JoinErrNone
}

// acceptConnectPeer handles an inbound CONNECT_PEER during mesh
// completion: any existing CONNECTED peer validates the joiner's
// application GUID, instance GUID, and password, then replies
// CONNECT_PEER_OK or CONNECT_PEER_FAIL.
func (s *Session) acceptConnectPeer(peerID PeerID, msg wire.ConnectPeerMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}

	joinErr := s.validateJoinLocked(msg.ApplicationGUID, msg.InstanceGUID, msg.Password)
	if joinErr != JoinErrNone {
		frame := wire.ConnectPeerFailMsg{ErrorCode: uint32(joinErr)}.Marshal()
		p.SendQ.Enqueue(frame, nil)
		p.Apply(EventRemoteOrError)
		return
	}

	p.PlayerID = msg.PlayerID
	p.PlayerName = msg.PlayerName
	p.PlayerData = msg.PlayerData
	s.playerToPeer[msg.PlayerID] = peerID

	res := p.Apply(EventRecvConnectPeer)

	frame := wire.ConnectPeerOKMsg{
		PlayerID:   s.localPlayerID,
		PlayerName: s.localPlayerName,
		PlayerData: s.localPlayerData,
	}.Marshal()
	p.SendQ.Enqueue(frame, nil)

	if res.Changed {
		s.dispatch(Event{Kind: EventCreatePlayer, PlayerID: msg.PlayerID, PlayerName: msg.PlayerName, PlayerData: msg.PlayerData})
	}
}

// DialFunc opens a TCP connection to addr. Exposed so tests can
// substitute an in-memory transport; internal/transport.DialTCP is the
// production implementation.
type DialFunc func(network, addr string) (net.Conn, error)
