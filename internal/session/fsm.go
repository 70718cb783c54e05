package session

// This file implements the peer connection state machine as a
// pure function over a transition table -- no side effects, no Session
// dependency. This makes it trivially testable and auditable against the
// state diagram below.
//
// State diagram:
//
//	(accept from listener)                     -> ACCEPTED
//	(local connect initiated to host)           -> CONNECTING_HOST
//	CONNECTING_HOST (tcp open)                  -> REQUESTING_HOST
//	(local connect initiated to non-host peer)  -> CONNECTING_PEER
//	CONNECTING_PEER (tcp open)                  -> REQUESTING_PEER
//	ACCEPTED        (recv CONNECT_HOST)         -> INDICATING
//	INDICATING      (app accepts)               -> CONNECTED
//	INDICATING      (app rejects / validation)  -> terminal (send FAIL, close)
//	ACCEPTED        (recv CONNECT_PEER)          -> CONNECTED
//	REQUESTING_HOST (recv CONNECT_HOST_OK)      -> CONNECTED
//	REQUESTING_PEER (recv CONNECT_PEER_OK)      -> CONNECTED
//	REQUESTING_*    (recv *_FAIL)                -> terminal (connect fails)
//	CONNECTED       (graceful local shutdown)   -> CLOSING
//	CONNECTED       (remote close or error)      -> terminal (destroy)

// PeerState is one state in the per-peer connection state machine.
type PeerState uint8

const (
	PeerAccepted PeerState = iota
	PeerConnectingHost
	PeerRequestingHost
	PeerConnectingPeer
	PeerRequestingPeer
	PeerIndicating
	PeerConnected
	PeerClosing
	// PeerTerminal models the sink any failed or torn-down peer record
	// reaches before removal.
	PeerTerminal
)

// String returns the human-readable peer state name.
func (s PeerState) String() string {
	switch s {
	case PeerAccepted:
		return "ACCEPTED"
	case PeerConnectingHost:
		return "CONNECTING_HOST"
	case PeerRequestingHost:
		return "REQUESTING_HOST"
	case PeerConnectingPeer:
		return "CONNECTING_PEER"
	case PeerRequestingPeer:
		return "REQUESTING_PEER"
	case PeerIndicating:
		return "INDICATING"
	case PeerConnected:
		return "CONNECTED"
	case PeerClosing:
		return "CLOSING"
	case PeerTerminal:
		return "TERMINAL"
	default:
		return "UNKNOWN"
	}
}

// PeerEvent is an input to the peer connection state machine.
type PeerEvent uint8

const (
	// EventTCPOpen fires when a locally-initiated connect finishes
	// dialing.
	EventTCPOpen PeerEvent = iota
	// EventRecvConnectHost fires when ACCEPTED receives CONNECT_HOST.
	EventRecvConnectHost
	// EventRecvConnectPeer fires when ACCEPTED receives CONNECT_PEER.
	EventRecvConnectPeer
	// EventAppAccept fires when the embedding application accepts an
	// INDICATING join.
	EventAppAccept
	// EventAppReject fires when the embedding application rejects an
	// INDICATING join, or validation failed before the application was
	// asked.
	EventAppReject
	// EventRecvOK fires on CONNECT_HOST_OK / CONNECT_PEER_OK.
	EventRecvOK
	// EventRecvFail fires on CONNECT_HOST_FAIL / CONNECT_PEER_FAIL.
	EventRecvFail
	// EventGracefulClose fires on a local graceful shutdown request.
	EventGracefulClose
	// EventRemoteOrError fires on remote close or a transport error.
	EventRemoteOrError
	// EventDrained fires once a CLOSING peer's send queue has fully
	// drained and its write side has shut down.
	EventDrained
)

// String returns the human-readable peer event name.
func (e PeerEvent) String() string {
	switch e {
	case EventTCPOpen:
		return "TCPOpen"
	case EventRecvConnectHost:
		return "RecvConnectHost"
	case EventRecvConnectPeer:
		return "RecvConnectPeer"
	case EventAppAccept:
		return "AppAccept"
	case EventAppReject:
		return "AppReject"
	case EventRecvOK:
		return "RecvOK"
	case EventRecvFail:
		return "RecvFail"
	case EventGracefulClose:
		return "GracefulClose"
	case EventRemoteOrError:
		return "RemoteOrError"
	case EventDrained:
		return "Drained"
	default:
		return "Unknown"
	}
}

// PeerAction is a side-effect the caller must execute after a transition.
type PeerAction uint8

const (
	ActionSendConnectHost PeerAction = iota + 1
	ActionSendConnectPeer
	ActionSendConnectHostOK
	ActionSendConnectPeerOK
	ActionSendConnectHostFail
	ActionSendConnectPeerFail
	ActionEmitCreatePlayer
	ActionEmitConnectComplete
	ActionEmitDestroyPlayer
	ActionCloseSocket
	ActionShutdownWrite
)

// String returns the human-readable action name.
func (a PeerAction) String() string {
	switch a {
	case ActionSendConnectHost:
		return "SendConnectHost"
	case ActionSendConnectPeer:
		return "SendConnectPeer"
	case ActionSendConnectHostOK:
		return "SendConnectHostOK"
	case ActionSendConnectPeerOK:
		return "SendConnectPeerOK"
	case ActionSendConnectHostFail:
		return "SendConnectHostFail"
	case ActionSendConnectPeerFail:
		return "SendConnectPeerFail"
	case ActionEmitCreatePlayer:
		return "EmitCreatePlayer"
	case ActionEmitConnectComplete:
		return "EmitConnectComplete"
	case ActionEmitDestroyPlayer:
		return "EmitDestroyPlayer"
	case ActionCloseSocket:
		return "CloseSocket"
	case ActionShutdownWrite:
		return "ShutdownWrite"
	default:
		return "Unknown"
	}
}

type peerStateEvent struct {
	state PeerState
	event PeerEvent
}

type peerTransition struct {
	newState PeerState
	actions  []PeerAction
}

// PeerFSMResult holds the outcome of applying an event to the peer FSM.
type PeerFSMResult struct {
	OldState PeerState
	NewState PeerState
	Actions  []PeerAction
	Changed  bool
}

//nolint:gochecknoglobals // FSM transition table is intentionally package-level.
var peerFSMTable = map[peerStateEvent]peerTransition{
	{PeerConnectingHost, EventTCPOpen}: {
		newState: PeerRequestingHost,
		actions:  []PeerAction{ActionSendConnectHost},
	},
	{PeerConnectingPeer, EventTCPOpen}: {
		newState: PeerRequestingPeer,
		actions:  []PeerAction{ActionSendConnectPeer},
	},
	{PeerAccepted, EventRecvConnectHost}: {
		newState: PeerIndicating,
		actions:  nil,
	},
	{PeerIndicating, EventAppAccept}: {
		newState: PeerConnected,
		actions:  []PeerAction{ActionSendConnectHostOK, ActionEmitCreatePlayer},
	},
	{PeerIndicating, EventAppReject}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionSendConnectHostFail, ActionCloseSocket},
	},
	{PeerAccepted, EventRecvConnectPeer}: {
		newState: PeerConnected,
		actions:  []PeerAction{ActionSendConnectPeerOK, ActionEmitCreatePlayer},
	},
	{PeerRequestingHost, EventRecvOK}: {
		newState: PeerConnected,
		actions:  []PeerAction{ActionEmitConnectComplete},
	},
	{PeerRequestingPeer, EventRecvOK}: {
		newState: PeerConnected,
		actions:  []PeerAction{ActionEmitCreatePlayer},
	},
	{PeerRequestingHost, EventRecvFail}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionEmitConnectComplete, ActionCloseSocket},
	},
	{PeerRequestingPeer, EventRecvFail}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
	{PeerConnected, EventGracefulClose}: {
		newState: PeerClosing,
		actions:  nil,
	},
	{PeerClosing, EventDrained}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionShutdownWrite, ActionEmitDestroyPlayer, ActionCloseSocket},
	},
	{PeerConnected, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionEmitDestroyPlayer, ActionCloseSocket},
	},
	{PeerClosing, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionEmitDestroyPlayer, ActionCloseSocket},
	},
	// A connect attempt still in flight can also be torn down directly by
	// remote error (e.g. reset before the handshake completes).
	{PeerConnectingHost, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
	{PeerConnectingPeer, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
	{PeerRequestingHost, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionEmitConnectComplete, ActionCloseSocket},
	},
	{PeerRequestingPeer, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
	{PeerIndicating, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
	{PeerAccepted, EventRemoteOrError}: {
		newState: PeerTerminal,
		actions:  []PeerAction{ActionCloseSocket},
	},
}

// ApplyPeerEvent applies an event to the given peer state and returns the
// result. Pure function; the caller executes the returned actions.
// Unlisted (state, event) pairs are silently ignored: Changed is false and
// Actions is empty.
func ApplyPeerEvent(current PeerState, event PeerEvent) PeerFSMResult {
	tr, ok := peerFSMTable[peerStateEvent{current, event}]
	if !ok {
		return PeerFSMResult{OldState: current, NewState: current}
	}
	return PeerFSMResult{
		OldState: current,
		NewState: tr.newState,
		Actions:  tr.actions,
		Changed:  current != tr.newState,
	}
}
