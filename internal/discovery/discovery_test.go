package discovery_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/kestrelnet/dpsession/internal/discovery"
	"github.com/kestrelnet/dpsession/internal/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func appGUID(b byte) wire.GUID {
	var g wire.GUID
	g[0] = b
	return g
}

// listenLoopback opens a UDP4 socket on an ephemeral loopback port.
func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEnumerateReceivesMatchingResponse(t *testing.T) {
	t.Parallel()

	guid := appGUID(1)
	hostConn := listenLoopback(t)
	callerConn := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	respondDone := make(chan struct{})
	go func() {
		defer close(respondDone)
		_ = discovery.Respond(ctx, hostConn, guid, func(req wire.HostEnumRequestMsg, from net.Addr) (discovery.ResponderDesc, bool) {
			return discovery.ResponderDesc{SessionName: "Arena", MaxPlayers: 4, CurrentPlayers: 1}, true
		}, nil)
	}()

	var got []discovery.Response
	req := discovery.Request{
		ApplicationGUID: guid,
		BroadcastAddr:   hostConn.LocalAddr().String(),
		Schedule:        discovery.Schedule{EnumCount: 2, RetryInterval: 20 * time.Millisecond, Timeout: 150 * time.Millisecond},
	}

	err := discovery.Enumerate(ctx, callerConn, req, nil, func(r discovery.Response) {
		got = append(got, r)
	})
	cancel()
	<-respondDone

	if err != nil {
		t.Fatalf("Enumerate() error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("Enumerate() collected no responses")
	}
	if got[0].SessionName != "Arena" {
		t.Errorf("SessionName = %q, want %q", got[0].SessionName, "Arena")
	}
}

func TestEnumerateFiltersOnApplicationGUID(t *testing.T) {
	t.Parallel()

	hostGUID := appGUID(1)
	callerGUID := appGUID(2)

	hostConn := listenLoopback(t)
	callerConn := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	respondDone := make(chan struct{})
	go func() {
		defer close(respondDone)
		_ = discovery.Respond(ctx, hostConn, hostGUID, func(req wire.HostEnumRequestMsg, from net.Addr) (discovery.ResponderDesc, bool) {
			return discovery.ResponderDesc{SessionName: "Arena"}, true
		}, nil)
	}()

	var got []discovery.Response
	req := discovery.Request{
		ApplicationGUID: callerGUID,
		BroadcastAddr:   hostConn.LocalAddr().String(),
		Schedule:        discovery.Schedule{EnumCount: 1, RetryInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
	}

	err := discovery.Enumerate(ctx, callerConn, req, nil, func(r discovery.Response) {
		got = append(got, r)
	})
	cancel()
	<-respondDone

	if err != nil {
		t.Fatalf("Enumerate() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Enumerate() collected %d responses for a mismatched application GUID, want 0", len(got))
	}
}

func TestEnumerateCancelledContextReturnsErrCancelled(t *testing.T) {
	t.Parallel()

	callerConn := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := discovery.Request{
		BroadcastAddr: "127.0.0.1:1",
		Schedule:      discovery.Schedule{EnumCount: 5, RetryInterval: time.Second, Timeout: time.Second},
	}

	err := discovery.Enumerate(ctx, callerConn, req, nil, func(discovery.Response) {})
	if !errors.Is(err, discovery.ErrCancelled) {
		t.Errorf("Enumerate() error = %v, want ErrCancelled", err)
	}
}

func TestRespondSuppressesReplyWhenHandlerDeclines(t *testing.T) {
	t.Parallel()

	guid := appGUID(3)
	hostConn := listenLoopback(t)
	callerConn := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	respondDone := make(chan struct{})
	go func() {
		defer close(respondDone)
		_ = discovery.Respond(ctx, hostConn, guid, func(req wire.HostEnumRequestMsg, from net.Addr) (discovery.ResponderDesc, bool) {
			return discovery.ResponderDesc{}, false
		}, nil)
	}()

	req := discovery.Request{
		ApplicationGUID: guid,
		BroadcastAddr:   hostConn.LocalAddr().String(),
		Schedule:        discovery.Schedule{EnumCount: 1, RetryInterval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond},
	}

	var got []discovery.Response
	err := discovery.Enumerate(ctx, callerConn, req, nil, func(r discovery.Response) {
		got = append(got, r)
	})
	cancel()
	<-respondDone

	if err != nil {
		t.Fatalf("Enumerate() error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d responses, want 0 when the handler declines", len(got))
	}
}

func TestRespondStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	hostConn := listenLoopback(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- discovery.Respond(ctx, hostConn, appGUID(1), func(wire.HostEnumRequestMsg, net.Addr) (discovery.ResponderDesc, bool) {
			return discovery.ResponderDesc{}, true
		}, nil)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Respond() did not return after context cancellation")
	}
}
