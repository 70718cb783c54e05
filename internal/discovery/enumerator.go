// Package discovery implements host enumeration over broadcast UDP: a
// caller broadcasts HOST_ENUM_REQUEST on a retry/timeout schedule and
// collects HOST_ENUM_RESPONSE replies; a host listens on the discovery
// port and answers queries matching its application GUID.
package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// ErrCancelled is returned by Enumerate when the caller's context is
// cancelled before the retry schedule completes.
var ErrCancelled = errors.New("discovery: enumeration cancelled")

// Schedule controls the enumeration retry/timeout cadence.
type Schedule struct {
	EnumCount     int
	RetryInterval time.Duration
	Timeout       time.Duration
}

// Request configures one enumeration run.
type Request struct {
	ApplicationGUID wire.GUID // zero GUID means "no filter"
	UserData        []byte
	BroadcastAddr   string // e.g. "255.255.255.255:6500"
	Schedule        Schedule
}

// Response is one parsed HOST_ENUM_RESPONSE, tagged with the sender's
// address.
type Response struct {
	wire.HostEnumResponseMsg
	From string
}

// Enumerate runs the host enumeration schedule against a caller-owned
// UDP socket: sends EnumCount queries spaced by RetryInterval, then
// waits Timeout after the last send before returning. onResponse is
// invoked once per matching reply, in receipt order, from an internal
// receive goroutine that Enumerate stops before it returns, so no
// callback runs after Enumerate has returned. Cancelling ctx stops
// retries immediately and returns ErrCancelled.
func Enumerate(ctx context.Context, conn net.PacketConn, req Request, logger *slog.Logger, onResponse func(Response)) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "discovery.enumerator"))

	broadcastAddr, err := net.ResolveUDPAddr("udp4", req.BroadcastAddr)
	if err != nil {
		return err
	}

	recvCtx, stopRecv := context.WithCancel(ctx)
	recvDone := make(chan struct{})
	go recvLoop(recvCtx, conn, req.ApplicationGUID, onResponse, logger, recvDone)
	defer func() {
		stopRecv()
		<-recvDone
	}()

	tick := uint32(0)
	sends := max(req.Schedule.EnumCount, 1)
	for i := range sends {
		frame := wire.HostEnumRequestMsg{ApplicationGUID: req.ApplicationGUID, Tick: tick, UserData: req.UserData}.Marshal()
		if _, err := conn.WriteTo(frame, broadcastAddr); err != nil {
			logger.Warn("broadcast send failed", slog.Any("error", err))
		}
		tick++
		if i == sends-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ErrCancelled
		case <-time.After(req.Schedule.RetryInterval):
		}
	}

	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-time.After(req.Schedule.Timeout):
	}
	return nil
}

func recvLoop(ctx context.Context, conn net.PacketConn, filterGUID wire.GUID, onResponse func(Response), logger *slog.Logger, done chan struct{}) {
	defer close(done)
	buf := make([]byte, wire.MaxFrameSize)
	for {
		if ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Debug("recv error", slog.Any("error", err))
			continue
		}

		msg, err := wire.UnmarshalHostEnumResponse(buf[:n])
		if err != nil {
			logger.Debug("malformed HOST_ENUM_RESPONSE", slog.Any("error", err))
			continue
		}
		if !filterGUID.IsZero() && msg.ApplicationGUID != filterGUID {
			continue
		}
		onResponse(Response{HostEnumResponseMsg: msg, From: addr.String()})
	}
}
