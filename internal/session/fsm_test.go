package session_test

import (
	"testing"

	"github.com/kestrelnet/dpsession/internal/session"
)

func TestApplyPeerEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		state       session.PeerState
		event       session.PeerEvent
		wantState   session.PeerState
		wantChanged bool
		wantActions []session.PeerAction
	}{
		{
			name:        "dial to host completes, sends CONNECT_HOST",
			state:       session.PeerConnectingHost,
			event:       session.EventTCPOpen,
			wantState:   session.PeerRequestingHost,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionSendConnectHost},
		},
		{
			name:        "dial to peer completes, sends CONNECT_PEER",
			state:       session.PeerConnectingPeer,
			event:       session.EventTCPOpen,
			wantState:   session.PeerRequestingPeer,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionSendConnectPeer},
		},
		{
			name:        "accepted peer receives CONNECT_HOST, moves to indicating",
			state:       session.PeerAccepted,
			event:       session.EventRecvConnectHost,
			wantState:   session.PeerIndicating,
			wantChanged: true,
			wantActions: nil,
		},
		{
			name:        "application accepts an indicating join",
			state:       session.PeerIndicating,
			event:       session.EventAppAccept,
			wantState:   session.PeerConnected,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionSendConnectHostOK, session.ActionEmitCreatePlayer},
		},
		{
			name:        "application rejects an indicating join",
			state:       session.PeerIndicating,
			event:       session.EventAppReject,
			wantState:   session.PeerTerminal,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionSendConnectHostFail, session.ActionCloseSocket},
		},
		{
			name:        "accepted peer receives CONNECT_PEER during mesh completion",
			state:       session.PeerAccepted,
			event:       session.EventRecvConnectPeer,
			wantState:   session.PeerConnected,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionSendConnectPeerOK, session.ActionEmitCreatePlayer},
		},
		{
			name:        "host accept completes the join",
			state:       session.PeerRequestingHost,
			event:       session.EventRecvOK,
			wantState:   session.PeerConnected,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionEmitConnectComplete},
		},
		{
			name:        "peer mesh accept completes",
			state:       session.PeerRequestingPeer,
			event:       session.EventRecvOK,
			wantState:   session.PeerConnected,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionEmitCreatePlayer},
		},
		{
			name:        "host rejects the join",
			state:       session.PeerRequestingHost,
			event:       session.EventRecvFail,
			wantState:   session.PeerTerminal,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionEmitConnectComplete, session.ActionCloseSocket},
		},
		{
			name:        "graceful local shutdown request begins draining",
			state:       session.PeerConnected,
			event:       session.EventGracefulClose,
			wantState:   session.PeerClosing,
			wantChanged: true,
			wantActions: nil,
		},
		{
			name:        "closing peer finishes draining",
			state:       session.PeerClosing,
			event:       session.EventDrained,
			wantState:   session.PeerTerminal,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionShutdownWrite, session.ActionEmitDestroyPlayer, session.ActionCloseSocket},
		},
		{
			name:        "connected peer is lost to a remote error",
			state:       session.PeerConnected,
			event:       session.EventRemoteOrError,
			wantState:   session.PeerTerminal,
			wantChanged: true,
			wantActions: []session.PeerAction{session.ActionEmitDestroyPlayer, session.ActionCloseSocket},
		},
		{
			name:        "unlisted pair is a no-op",
			state:       session.PeerAccepted,
			event:       session.EventAppAccept,
			wantState:   session.PeerAccepted,
			wantChanged: false,
			wantActions: nil,
		},
		{
			name:        "terminal state absorbs further events",
			state:       session.PeerTerminal,
			event:       session.EventRemoteOrError,
			wantState:   session.PeerTerminal,
			wantChanged: false,
			wantActions: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := session.ApplyPeerEvent(tt.state, tt.event)

			if res.OldState != tt.state {
				t.Errorf("OldState = %v, want %v", res.OldState, tt.state)
			}
			if res.NewState != tt.wantState {
				t.Errorf("NewState = %v, want %v", res.NewState, tt.wantState)
			}
			if res.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", res.Changed, tt.wantChanged)
			}
			if len(res.Actions) != len(tt.wantActions) {
				t.Fatalf("Actions = %v, want %v", res.Actions, tt.wantActions)
			}
			for i, a := range res.Actions {
				if a != tt.wantActions[i] {
					t.Errorf("Actions[%d] = %v, want %v", i, a, tt.wantActions[i])
				}
			}
		})
	}
}

// TestPeerStateStringCoversAllValues guards against a state being added to
// the enum without a matching String() case.
func TestPeerStateStringCoversAllValues(t *testing.T) {
	t.Parallel()

	states := []session.PeerState{
		session.PeerAccepted, session.PeerConnectingHost, session.PeerRequestingHost,
		session.PeerConnectingPeer, session.PeerRequestingPeer, session.PeerIndicating,
		session.PeerConnected, session.PeerClosing, session.PeerTerminal,
	}
	for _, s := range states {
		if s.String() == "UNKNOWN" {
			t.Errorf("PeerState %d has no String() case", s)
		}
	}
}

// TestPeerEventStringCoversAllValues guards against an event being added
// to the enum without a matching String() case.
func TestPeerEventStringCoversAllValues(t *testing.T) {
	t.Parallel()

	events := []session.PeerEvent{
		session.EventTCPOpen, session.EventRecvConnectHost, session.EventRecvConnectPeer,
		session.EventAppAccept, session.EventAppReject, session.EventRecvOK,
		session.EventRecvFail, session.EventGracefulClose, session.EventRemoteOrError,
		session.EventDrained,
	}
	for _, e := range events {
		if e.String() == "Unknown" {
			t.Errorf("PeerEvent %d has no String() case", e)
		}
	}
}
