// Package session implements the peer-to-peer session engine: the
// per-peer connection state machine, the full-mesh join protocol, the
// send/receive pipeline, the ack-tracked sub-protocol, application
// description and peer info replication, and teardown. One coarse
// mutex serialises all session, peer, and group mutation; the
// embedding application's callback is always invoked with that mutex
// released.
package session

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// State is the session's overall lifecycle state.
type State uint8

const (
	StateNew State = iota
	StateInitialised
	StateHosting
	StateConnectingToHost
	StateConnectingToPeers
	StateConnectFailed
	StateConnected
	StateClosing
	StateTerminated
)

// String returns the human-readable session state name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInitialised:
		return "INITIALISED"
	case StateHosting:
		return "HOSTING"
	case StateConnectingToHost:
		return "CONNECTING_TO_HOST"
	case StateConnectingToPeers:
		return "CONNECTING_TO_PEERS"
	case StateConnectFailed:
		return "CONNECT_FAILED"
	case StateConnected:
		return "CONNECTED"
	case StateClosing:
		return "CLOSING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// CancelScope selects which pending async operations CancelAsyncOperation
// targets when handle is zero.
type CancelScope uint8

const (
	CancelEnums CancelScope = 1 << iota
	CancelConnects
	CancelSends
	CancelPeerInfo
	CancelAll = CancelEnums | CancelConnects | CancelSends | CancelPeerInfo
)

// Config configures a new Session.
type Config struct {
	ApplicationGUID wire.GUID
	SessionName     string
	Password        string
	ApplicationData []byte
	MaxPlayers      uint32
	PlayerName      string
	PlayerData      []byte
	PlayerCtx       any
	Handler         EventHandler
	// Admit is consulted on every inbound CONNECT_HOST, after the
	// session has already checked application GUID, instance GUID,
	// password, and capacity. A nil Admit accepts unconditionally. Any
	// non-success return is treated as a generic host-rejected veto.
	// It runs with the session mutex released, the same as an event
	// dispatch.
	Admit  func(req ConnectRequest) (accept bool, replyData []byte)
	Logger *slog.Logger
	// Dial opens a TCP connection to a mesh peer discovered during join
	// protocol completion. internal/transport.DialTCP is the production
	// implementation.
	Dial DialFunc
}

// ConnectRequest is the information available to Config.Admit when a
// remote peer requests to join.
type ConnectRequest struct {
	PlayerID    uint32 // tentatively assigned, valid only if accepted
	PlayerName  string
	PlayerData  []byte
	RequestData []byte
}

// pendingAsyncOp lets CancelAsyncOperation reach an in-flight operation
// by handle without knowing its concrete kind up front.
type pendingAsyncOp struct {
	kind   OpKind
	cancel func() // invoked with the session lock held
}

// Session is one instance of the session engine: either hosting or
// joined to a remote host.
type Session struct {
	mu sync.Mutex

	logger *slog.Logger
	state  State

	instanceGUID    wire.GUID
	applicationGUID wire.GUID
	sessionName     string
	password        string
	applicationData []byte
	maxPlayers      uint32

	localPlayerID   uint32
	localPlayerName string
	localPlayerData []byte
	localPlayerCtx  any
	hostPlayerID    uint32
	isHost          bool

	playerIDs *PlayerIDAllocator
	peerIDs   *peerIDAllocator
	handles   *HandleAllocator

	peers        map[PeerID]*Peer
	playerToPeer map[uint32]PeerID
	groups       *groupTable

	handler EventHandler
	admit   func(ConnectRequest) (bool, []byte)
	dial    DialFunc

	ops map[uint32]*pendingAsyncOp

	// meshWait holds one channel per in-flight mesh-completion dial,
	// signalled by handleConnectPeerOK/Fail when that edge's handshake
	// resolves (see connect.go's connectToMeshPeer).
	meshWait map[PeerID]chan error

	// net is the session's owned non-peer sockets: the TCP listener,
	// the best-effort UDP socket, and the discovery UDP socket. Wired
	// by internal/transport at session construction.
	net Transports

	// gracefulClosePending is true between a graceful Close(false) call
	// and the last peer actually draining, so teardownPeerLocked knows
	// to finish the session once s.peers empties out.
	gracefulClosePending bool
}

// Transports bundles the sockets a Session owns directly, as opposed to
// per-peer TCP connections.
type Transports struct {
	Listener  net.Listener
	UDP       net.PacketConn
	Discovery net.PacketConn
}

// New returns a Session in state NEW, ready for Host or Connect.
func New(cfg Config, t Transports) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		logger:          logger.With(slog.String("component", "session")),
		state:           StateNew,
		applicationGUID: cfg.ApplicationGUID,
		sessionName:     cfg.SessionName,
		password:        cfg.Password,
		applicationData: cfg.ApplicationData,
		maxPlayers:      cfg.MaxPlayers,
		localPlayerName: cfg.PlayerName,
		localPlayerData: cfg.PlayerData,
		localPlayerCtx:  cfg.PlayerCtx,
		playerIDs:       NewPlayerIDAllocator(),
		peerIDs:         newPeerIDAllocator(),
		handles:         NewHandleAllocator(),
		peers:           make(map[PeerID]*Peer),
		playerToPeer:    make(map[uint32]PeerID),
		groups:          newGroupTable(),
		handler:         cfg.Handler,
		admit:           cfg.Admit,
		dial:            cfg.Dial,
		ops:             make(map[uint32]*pendingAsyncOp),
		meshWait:        make(map[PeerID]chan error),
		net:             t,
	}
}

// dispatch delivers ev to the embedding application's handler with the
// session mutex released, then reacquires it before returning. Callers must treat any
// snapshotted state as potentially stale afterward and re-validate
// before acting on it further.
func (s *Session) dispatch(ev Event) {
	h := s.handler
	if h == nil {
		return
	}
	s.mu.Unlock()
	h(ev)
	s.mu.Lock()
}

// lookupPeerLocked returns the peer for id if it still exists. Callers
// hold s.mu.
func (s *Session) lookupPeerLocked(id PeerID) (*Peer, bool) {
	p, ok := s.peers[id]
	return p, ok
}

// lookupPeerByPlayerLocked resolves a player id to its peer record.
// Callers hold s.mu.
func (s *Session) lookupPeerByPlayerLocked(playerID uint32) (*Peer, bool) {
	id, ok := s.playerToPeer[playerID]
	if !ok {
		return nil, false
	}
	return s.lookupPeerLocked(id)
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LocalPlayerID returns the local participant's player id. Stable from
// entry to CONNECTED/HOSTING until teardown.
func (s *Session) LocalPlayerID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localPlayerID
}

// GetApplicationDesc returns the current shared application description.
// Inside an APPLICATION_DESC event callback this reflects the
// already-updated values.
func (s *Session) GetApplicationDesc() ApplicationDesc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ApplicationDesc{
		MaxPlayers:      s.maxPlayers,
		SessionName:     s.sessionName,
		Password:        s.password,
		ApplicationData: s.applicationData,
	}
}

// registerOp records a cancellable pending operation under a freshly
// allocated handle. Callers hold s.mu.
func (s *Session) registerOp(kind OpKind, cancel func()) uint32 {
	h := s.handles.Allocate(kind)
	s.ops[h] = &pendingAsyncOp{kind: kind, cancel: cancel}
	return h
}

// completeOp removes the bookkeeping entry for handle. Callers hold
// s.mu. It is a no-op if the handle is unknown (already completed or
// cancelled).
func (s *Session) completeOp(handle uint32) {
	delete(s.ops, handle)
}

// CancelAsyncOperation cancels a specific pending operation by handle,
// or every operation matching scope when handle is zero.
func (s *Session) CancelAsyncOperation(handle uint32, scope CancelScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if handle != 0 {
		op, ok := s.ops[handle]
		if !ok {
			return fmt.Errorf("cancel handle %d: %w", handle, ErrNotFound)
		}
		delete(s.ops, handle)
		if op.cancel != nil {
			op.cancel()
		}
		return nil
	}

	var toCancel []*pendingAsyncOp
	for h, op := range s.ops {
		if scopeMatches(scope, op.kind) {
			toCancel = append(toCancel, op)
			delete(s.ops, h)
		}
	}
	for _, op := range toCancel {
		if op.cancel != nil {
			op.cancel()
		}
	}
	return nil
}

func scopeMatches(scope CancelScope, kind OpKind) bool {
	switch kind {
	case OpKindEnum:
		return scope&CancelEnums != 0
	case OpKindConnect:
		return scope&CancelConnects != 0
	case OpKindSend:
		return scope&CancelSends != 0
	case OpKindPeerInfo:
		return scope&CancelPeerInfo != 0
	default:
		return false
	}
}

// validatePlayerName returns ErrInvalidArgument if name is empty.
func validatePlayerName(name string) error {
	if name == "" {
		return fmt.Errorf("player name: %w", ErrInvalidArgument)
	}
	return nil
}
