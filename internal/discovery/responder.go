package discovery

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/kestrelnet/dpsession/internal/wire"
)

// QueryHandler is consulted for each inbound HOST_ENUM_REQUEST whose
// application GUID matches (or which carried no filter). It returns the
// current application description and player count to advertise, and an
// optional application-supplied response blob, or ok=false to suppress
// a reply entirely.
type QueryHandler func(req wire.HostEnumRequestMsg, from net.Addr) (resp ResponderDesc, ok bool)

// ResponderDesc is the application description advertised in reply to a
// matching HOST_ENUM_REQUEST.
type ResponderDesc struct {
	InstanceGUID    wire.GUID
	SessionName     string
	MaxPlayers      uint32
	CurrentPlayers  uint32
	ApplicationData []byte
	ResponseData    []byte
}

// Respond listens on conn (the discovery-only broadcast-receive socket)
// until ctx is cancelled, answering every HOST_ENUM_REQUEST whose
// application GUID matches applicationGUID or carried the null filter.
func Respond(ctx context.Context, conn net.PacketConn, applicationGUID wire.GUID, handle QueryHandler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "discovery.responder"))

	buf := make([]byte, wire.MaxFrameSize)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("recv error", slog.Any("error", err))
			continue
		}

		req, err := wire.UnmarshalHostEnumRequest(buf[:n])
		if err != nil {
			logger.Debug("malformed HOST_ENUM_REQUEST", slog.Any("error", err))
			continue
		}
		if !req.ApplicationGUID.IsZero() && req.ApplicationGUID != applicationGUID {
			continue
		}

		desc, ok := handle(req, addr)
		if !ok {
			continue
		}

		reply := wire.HostEnumResponseMsg{
			ApplicationGUID: applicationGUID,
			InstanceGUID:    desc.InstanceGUID,
			SessionName:     desc.SessionName,
			MaxPlayers:      desc.MaxPlayers,
			CurrentPlayers:  desc.CurrentPlayers,
			ApplicationData: desc.ApplicationData,
			Tick:            req.Tick,
			ResponseData:    desc.ResponseData,
		}.Marshal()

		if _, err := conn.WriteTo(reply, addr); err != nil {
			logger.Warn("reply send failed", slog.Any("error", err))
		}
	}
}
