package main

import (
	"log/slog"
	"net"

	"github.com/kestrelnet/dpsession/internal/discovery"
	sessionmetrics "github.com/kestrelnet/dpsession/internal/metrics"
	"github.com/kestrelnet/dpsession/internal/session"
	"github.com/kestrelnet/dpsession/internal/wire"
)

// newMetricsHandler returns a session.EventHandler that logs every event
// and records the peer gauge and join-failure counter against collector.
func newMetricsHandler(sessionName string, collector *sessionmetrics.Collector, logger *slog.Logger) session.EventHandler {
	log := logger.With(slog.String("component", "events"))

	return func(ev session.Event) {
		switch ev.Kind {
		case session.EventCreatePlayer:
			collector.RegisterPeer(sessionName)
			log.Info("player joined", slog.Uint64("player_id", uint64(ev.PlayerID)), slog.String("name", ev.PlayerName))

		case session.EventDestroyPlayer:
			collector.UnregisterPeer(sessionName)
			log.Info("player left", slog.Uint64("player_id", uint64(ev.PlayerID)), slog.String("reason", ev.DestroyReason.String()))

		case session.EventIndicateConnect:
			log.Debug("join request", slog.Uint64("player_id", uint64(ev.PlayerID)), slog.String("name", ev.PlayerName))

		case session.EventConnectComplete:
			if ev.JoinError != session.JoinErrNone {
				collector.IncJoinFailures(sessionName, ev.JoinError.String())
				log.Warn("join failed", slog.String("join_error", ev.JoinError.String()))
				return
			}
			log.Info("join complete")

		case session.EventReceive:
			log.Debug("message received", slog.Uint64("sender", uint64(ev.SenderPlayerID)), slog.Int("bytes", len(ev.Payload)))

		case session.EventTerminateSession:
			log.Info("session terminated by host")

		default:
			log.Debug("event", slog.String("kind", ev.Kind.String()))
		}
	}
}

// newQueryHandler answers HOST_ENUM_REQUEST with the session's current
// description, incrementing collector's enum-response counter per reply.
func newQueryHandler(sess *session.Session, instanceGUID wire.GUID, collector *sessionmetrics.Collector, sessionName string) discovery.QueryHandler {
	return func(_ wire.HostEnumRequestMsg, _ net.Addr) (discovery.ResponderDesc, bool) {
		desc := sess.GetApplicationDesc()
		collector.IncEnumResponses(sessionName)
		return discovery.ResponderDesc{
			InstanceGUID:    instanceGUID,
			SessionName:     desc.SessionName,
			MaxPlayers:      desc.MaxPlayers,
			ApplicationData: desc.ApplicationData,
		}, true
	}
}
