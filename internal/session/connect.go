package session

import (
	"fmt"
	"sync"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// ConnectConfig configures Connect.
type ConnectConfig struct {
	HostAddr     string // resolved (family, ip, port) tuple, as a dial target
	InstanceGUID wire.GUID
	RequestData  []byte
}

// Connect opens a TCP connection to the host and runs the join protocol
//. It is asynchronous: completion is reported via
// a CONNECT_COMPLETE event once the full peer mesh has either completed
// or definitively failed.
func (s *Session) Connect(cfg ConnectConfig) error {
	s.mu.Lock()
	if s.state != StateNew {
		s.mu.Unlock()
		return fmt.Errorf("connect: %w", ErrState)
	}
	if err := validatePlayerName(s.localPlayerName); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = StateConnectingToHost
	dial := s.dial
	s.mu.Unlock()

	conn, err := dial("tcp", cfg.HostAddr)
	if err != nil {
		s.mu.Lock()
		s.state = StateConnectFailed
		s.dispatch(Event{Kind: EventConnectComplete, JoinError: JoinErrConnectionLost, Result: err})
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	peerID := PeerID(s.peerIDs.allocate())
	p := NewPeer(peerID, conn, PeerConnectingHost)
	p.host = true
	if host, port, ok := splitHostPort(conn.RemoteAddr()); ok {
		p.RemoteIP, p.RemotePort = host, port
	}
	s.peers[peerID] = p
	res := p.Apply(EventTCPOpen)
	if res.Changed {
		frame := wire.ConnectHostMsg{
			InstanceGUID:    cfg.InstanceGUID,
			ApplicationGUID: s.applicationGUID,
			Password:        s.password,
			RequestData:     cfg.RequestData,
			PlayerName:      s.localPlayerName,
			PlayerData:      s.localPlayerData,
		}.Marshal()
		p.SendQ.Enqueue(frame, nil)
	}
	s.mu.Unlock()
	return nil
}

// handleConnectHostOK processes the host's acceptance, fans out
// CONNECT_PEER to every listed peer, and tracks mesh completion.
func (s *Session) handleConnectHostOK(peerID PeerID, msg wire.ConnectHostOKMsg, dial DialFunc) {
	s.mu.Lock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		s.mu.Unlock()
		return
	}

	s.instanceGUID = msg.InstanceGUID
	s.hostPlayerID = msg.HostPlayerID
	s.localPlayerID = msg.AssignedID
	s.maxPlayers = msg.MaxPlayers
	s.sessionName = msg.SessionName
	s.password = msg.SessionPassword
	s.applicationData = msg.ApplicationData

	p.PlayerID = msg.HostPlayerID
	p.PlayerName = msg.HostName
	p.PlayerData = msg.HostData
	s.playerToPeer[msg.HostPlayerID] = peerID

	s.state = StateConnectingToPeers

	p.Apply(EventRecvOK)

	s.dispatch(Event{Kind: EventCreatePlayer, PlayerID: s.localPlayerID, PlayerName: s.localPlayerName, PlayerData: s.localPlayerData})
	s.dispatch(Event{Kind: EventCreatePlayer, PlayerID: msg.HostPlayerID, PlayerName: msg.HostName, PlayerData: msg.HostData})

	pending := len(msg.Peers)
	replyData := msg.ReplyData

	if pending == 0 {
		s.state = StateConnected
		s.dispatch(Event{Kind: EventConnectComplete, JoinError: JoinErrNone, ReplyData: replyData})
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	var (
		mu       sync.Mutex
		remain   = pending
		anyFail  error
		newPeers []PeerID
	)

	for _, addr := range msg.Peers {
		go func(addr wire.PeerAddr) {
			id, err := s.connectToMeshPeer(addr, dial)

			mu.Lock()
			if err != nil && anyFail == nil {
				anyFail = err
			}
			if err == nil {
				newPeers = append(newPeers, id)
			}
			remain--
			done := remain == 0
			result, peersSnapshot := anyFail, append([]PeerID(nil), newPeers...)
			mu.Unlock()

			if done {
				s.finishMeshCompletion(result, peersSnapshot, replyData)
			}
		}(addr)
	}
}

// connectToMeshPeer dials one mesh edge and runs the CONNECT_PEER
// handshake synchronously from the caller goroutine's perspective; the
// session mutex is taken only for the brief state mutations.
func (s *Session) connectToMeshPeer(addr wire.PeerAddr, dial DialFunc) (PeerID, error) {
	conn, err := dial("tcp", fmt.Sprintf("%s:%d", addr.IP, addr.Port))
	if err != nil {
		return 0, fmt.Errorf("dial peer %d: %w", addr.PlayerID, ErrConnectionLost)
	}

	s.mu.Lock()
	peerID := PeerID(s.peerIDs.allocate())
	p := NewPeer(peerID, conn, PeerConnectingPeer)
	p.RemoteIP = addr.IP
	p.RemotePort = addr.Port
	s.peers[peerID] = p
	wait := make(chan error, 1)
	s.meshWait[peerID] = wait
	res := p.Apply(EventTCPOpen)
	if res.Changed {
		frame := wire.ConnectPeerMsg{
			InstanceGUID:    s.instanceGUID,
			ApplicationGUID: s.applicationGUID,
			Password:        s.password,
			PlayerID:        s.localPlayerID,
			PlayerName:      s.localPlayerName,
			PlayerData:      s.localPlayerData,
		}.Marshal()
		p.SendQ.Enqueue(frame, nil)
	}
	s.mu.Unlock()

	err = <-wait
	if err != nil {
		return peerID, err
	}
	return peerID, nil
}

// resolveMeshWait signals the waiting connectToMeshPeer goroutine for
// peerID, if one is registered. Callers hold s.mu.
func (s *Session) resolveMeshWait(peerID PeerID, err error) {
	ch, ok := s.meshWait[peerID]
	if !ok {
		return
	}
	delete(s.meshWait, peerID)
	ch <- err
}

// finishMeshCompletion transitions to CONNECTED once every mesh edge
// has resolved, or rolls back every newly-opened peer socket on
// failure. This is the single point, along with handleConnectHostOK's
// pending==0 branch, that dispatches this join's CONNECT_COMPLETE —
// exactly one of the two fires per Connect call.
func (s *Session) finishMeshCompletion(failure error, newPeers []PeerID, replyData []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if failure != nil {
		for _, id := range newPeers {
			s.teardownPeerLocked(id, DestroyConnectionLost, failure)
		}
		s.state = StateConnectFailed
		s.dispatch(Event{Kind: EventConnectComplete, JoinError: JoinErrPeerMeshFailed, Result: failure})
		return
	}

	s.state = StateConnected
	s.dispatch(Event{Kind: EventConnectComplete, JoinError: JoinErrNone, ReplyData: replyData})
}

// handleConnectHostFail surfaces the host's rejection to the joiner.
func (s *Session) handleConnectHostFail(peerID PeerID, msg wire.ConnectHostFailMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}
	p.Apply(EventRecvFail)
	s.teardownPeerLocked(peerID, DestroyConnectionLost, nil)
	s.state = StateConnectFailed

	s.dispatch(Event{
		Kind:      EventConnectComplete,
		JoinError: JoinErrorCode(msg.ErrorCode),
		ReplyData: msg.ReplyData,
	})
}
