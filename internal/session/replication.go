package session

import (
	"fmt"
	"sync/atomic"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// SetPeerInfo updates the local player's identity and, once joined,
// replicates it to every connected peer via an ack-tracked PLAYERINFO
// message. If sync is true the call blocks until every ack
// has arrived or a peer is lost.
func (s *Session) SetPeerInfo(name string, data []byte, sync bool) error {
	s.mu.Lock()

	if err := validatePlayerName(name); err != nil {
		s.mu.Unlock()
		return err
	}
	s.localPlayerName = name
	s.localPlayerData = data

	if s.state != StateConnected && s.state != StateHosting {
		s.mu.Unlock()
		return nil // strictly local: not yet joined
	}

	type outcome struct{ err error }
	var pending int32
	done := make(chan outcome, 1)
	var firstErr atomic.Value

	for _, p := range s.peers {
		if !p.Connected() {
			continue
		}
		pending++
		ackID := p.Acks.Register(func(resultCode uint32, _ []byte, err error) {
			if err != nil {
				firstErr.CompareAndSwap(nil, err)
			} else if resultCode != 0 {
				firstErr.CompareAndSwap(nil, fmt.Errorf("peer rejected PLAYERINFO: code %d", resultCode))
			}
			if atomic.AddInt32(&pending, -1) == 0 {
				var e error
				if v := firstErr.Load(); v != nil {
					e = v.(error)
				}
				done <- outcome{err: e}
			}
		})
		frame := wire.PlayerInfoMsg{AckID: ackID, PlayerID: s.localPlayerID, PlayerName: name, PlayerData: data}.Marshal()
		p.SendQ.Enqueue(frame, nil)
	}

	handle := s.registerOp(OpKindPeerInfo, nil)
	if pending == 0 {
		s.completeOp(handle)
		s.dispatch(Event{Kind: EventAsyncOpComplete, Handle: handle})
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if !sync {
		go func() {
			<-done
			s.mu.Lock()
			s.completeOp(handle)
			s.dispatch(Event{Kind: EventAsyncOpComplete, Handle: handle})
			s.mu.Unlock()
		}()
		return nil
	}

	out := <-done
	s.mu.Lock()
	s.completeOp(handle)
	s.mu.Unlock()
	return out.err
}

// handlePlayerInfo applies a remote PLAYERINFO update and acks it.
func (s *Session) handlePlayerInfo(peerID PeerID, msg wire.PlayerInfoMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}
	p.PlayerName = msg.PlayerName
	p.PlayerData = msg.PlayerData

	ack := wire.AckMsg{AckID: msg.AckID, ResultCode: 0}.Marshal()
	p.SendQ.Enqueue(ack, nil)

	s.dispatch(Event{Kind: EventPeerInfo, PlayerID: msg.PlayerID, PlayerName: msg.PlayerName, PlayerData: msg.PlayerData})
}

// handleAck resolves the pending callback registered for msg.AckID on
// the peer that sent it.
func (s *Session) handleAck(peerID PeerID, msg wire.AckMsg) {
	s.mu.Lock()
	p, ok := s.lookupPeerLocked(peerID)
	s.mu.Unlock()
	if !ok {
		return
	}
	p.Acks.Resolve(msg.AckID, msg.ResultCode, msg.ResponseData)
}

// SetApplicationDesc is host-only: it updates the session-wide
// description and propagates it to every peer via an ack-tracked
// APPDESC message.
func (s *Session) SetApplicationDesc(desc ApplicationDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isHost {
		return fmt.Errorf("set application desc: %w", ErrState)
	}

	s.maxPlayers = desc.MaxPlayers
	s.sessionName = desc.SessionName
	s.password = desc.Password
	s.applicationData = desc.ApplicationData

	for _, p := range s.peers {
		if !p.Connected() {
			continue
		}
		ackID := p.Acks.Register(nil)
		frame := wire.AppDescMsg{
			AckID:           ackID,
			MaxPlayers:      desc.MaxPlayers,
			SessionName:     desc.SessionName,
			Password:        desc.Password,
			ApplicationData: desc.ApplicationData,
		}.Marshal()
		p.SendQ.Enqueue(frame, nil)
	}

	d := desc
	s.dispatch(Event{Kind: EventApplicationDesc, Desc: &d})
	return nil
}

// handleAppDesc applies a host-propagated APPDESC update and acks it.
func (s *Session) handleAppDesc(peerID PeerID, msg wire.AppDescMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupPeerLocked(peerID)
	if !ok {
		return
	}

	s.maxPlayers = msg.MaxPlayers
	s.sessionName = msg.SessionName
	s.password = msg.Password
	s.applicationData = msg.ApplicationData

	ack := wire.AckMsg{AckID: msg.AckID, ResultCode: 0}.Marshal()
	p.SendQ.Enqueue(ack, nil)

	d := ApplicationDesc{MaxPlayers: msg.MaxPlayers, SessionName: msg.SessionName, Password: msg.Password, ApplicationData: msg.ApplicationData}
	s.dispatch(Event{Kind: EventApplicationDesc, Desc: &d})
}
